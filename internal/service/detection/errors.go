package detection

import "fmt"

// InputError reports an image that could not be used: undecodable, unsupported or empty.
type InputError struct {
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid input image: %s: %v", e.Reason, e.Err)
	}
	return "invalid input image: " + e.Reason
}

func (e *InputError) Unwrap() error { return e.Err }

// DependencyError reports a scorer that is unavailable or failed to load.
type DependencyError struct {
	Component string
	Err       error
}

func (e *DependencyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s unavailable: %v", e.Component, e.Err)
	}
	return e.Component + " unavailable"
}

func (e *DependencyError) Unwrap() error { return e.Err }
