package grid

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrMissingLocator     = errors.New("missing locator")
	ErrNotFound           = errors.New("element not found")
	ErrUnsupportedLocator = errors.New("unsupported locator")
)

// AutomationError wraps a failure raised by the browser while locating or
// interacting with an element. Op names the search step that failed.
type AutomationError struct {
	Op  string
	Err error
}

func (e *AutomationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *AutomationError) Unwrap() error {
	return e.Err
}

func automation(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *AutomationError
	if errors.As(err, &ae) {
		return err
	}
	return &AutomationError{Op: op, Err: err}
}

func invalid(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}
