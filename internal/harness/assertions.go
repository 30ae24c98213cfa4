package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against snap and returns one
// message per failure.
func EvaluateAssertions(snap Snapshot, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertPinned:
			err = assertPinned(snap, a)
		case AssertItem:
			err = assertItem(snap, a)
		case AssertCycle:
			err = assertCycle(snap, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func assertPinned(snap Snapshot, a Assertion) error {
	want := slices.Clone(a.Addresses)
	sort.Strings(want)
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(want, snap.Pins) {
		return &AssertionError{
			Type:     AssertPinned,
			Expected: fmt.Sprintf("%v", want),
			Actual:   fmt.Sprintf("%v", snap.Pins),
		}
	}
	return nil
}

func assertItem(snap Snapshot, a Assertion) error {
	for _, item := range snap.Items {
		if item.ItemID != a.Item {
			continue
		}
		if diff := matchFields(item.fields(), a.Expect); diff != "" {
			return &AssertionError{
				Type:     AssertItem,
				Expected: fmt.Sprintf("%s with %v", a.Item, a.Expect),
				Actual:   diff,
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertItem,
		Expected: fmt.Sprintf("%s in the ledger", a.Item),
		Actual:   "not tracked",
	}
}

func assertCycle(snap Snapshot, a Assertion) error {
	if a.Cycle < 1 || a.Cycle > len(snap.Cycles) {
		return &AssertionError{
			Type:     AssertCycle,
			Expected: fmt.Sprintf("cycle %d", a.Cycle),
			Actual:   fmt.Sprintf("%d cycles ran", len(snap.Cycles)),
		}
	}
	c := snap.Cycles[a.Cycle-1]
	if diff := matchFields(c.fields(), a.Expect); diff != "" {
		return &AssertionError{
			Type:     AssertCycle,
			Expected: fmt.Sprintf("cycle %d with %v", a.Cycle, a.Expect),
			Actual:   diff,
		}
	}
	return nil
}

// matchFields compares the expected subset against actual by printed value,
// which lets YAML ints match int64 fields. Returns "" on a match.
func matchFields(actual, expected map[string]any) string {
	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var diffs []string
	for _, k := range keys {
		got, ok := actual[k]
		if !ok {
			diffs = append(diffs, fmt.Sprintf("unknown field %q", k))
			continue
		}
		if fmt.Sprint(got) != fmt.Sprint(expected[k]) {
			diffs = append(diffs, fmt.Sprintf("%s = %v", k, got))
		}
	}
	return strings.Join(diffs, ", ")
}
