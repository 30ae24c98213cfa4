package ipfs

import (
	"errors"
	"fmt"
)

// NetworkError reports a timeout or unreachable node.
type NetworkError struct {
	Op      string
	Address string
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Address != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Address, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// PinError reports a rejected pin operation.
type PinError struct {
	Address string
	Err     error
}

func (e *PinError) Error() string {
	return fmt.Sprintf("pin %s: %v", e.Address, e.Err)
}

func (e *PinError) Unwrap() error { return e.Err }

// InvalidAddressError reports a malformed content address.
type InvalidAddressError struct {
	Candidate string
	Err       error
}

func (e *InvalidAddressError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid content address %q: %v", e.Candidate, e.Err)
	}
	return fmt.Sprintf("invalid content address %q", e.Candidate)
}

func (e *InvalidAddressError) Unwrap() error { return e.Err }

// IsNetworkError returns true if err wraps a *NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsPinError returns true if err wraps a *PinError.
func IsPinError(err error) bool {
	var pe *PinError
	return errors.As(err, &pe)
}

// IsInvalidAddress returns true if err wraps an *InvalidAddressError.
func IsInvalidAddress(err error) bool {
	var ie *InvalidAddressError
	return errors.As(err, &ie)
}
