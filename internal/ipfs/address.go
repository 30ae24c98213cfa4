package ipfs

import (
	"errors"
	"strings"

	"github.com/ipfs/go-cid"
)

// ValidateAddress cleans a candidate content address and returns its
// canonical string form. Surrounding whitespace and an /ipfs/ prefix are
// stripped; anything that does not then decode as a CID is rejected.
func ValidateAddress(candidate string) (string, error) {
	s := strings.TrimSpace(candidate)
	s = strings.TrimPrefix(s, "/ipfs/")
	if s == "" {
		return "", &InvalidAddressError{Candidate: candidate, Err: errors.New("empty")}
	}
	if strings.ContainsAny(s, "/ \t\n") {
		return "", &InvalidAddressError{Candidate: candidate, Err: errors.New("not a bare address")}
	}

	c, err := cid.Decode(s)
	if err != nil {
		return "", &InvalidAddressError{Candidate: candidate, Err: err}
	}
	return c.String(), nil
}
