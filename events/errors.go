package events

import (
	"fmt"

	"github.com/xraph/go-utils/errs"

	"github.com/xraph/keel"
)

const (
	// CodeInvalidListener indicates a value that cannot be used as a listener
	CodeInvalidListener = "INVALID_LISTENER"

	// CodePayloadType indicates a dispatch result of an unexpected type
	CodePayloadType = "PAYLOAD_TYPE"
)

var (
	// ErrInvalidListener is the cause of every invalid listener error.
	ErrInvalidListener = errs.NewError(CodeInvalidListener, "invalid listener", nil)

	// ErrPayloadTypeSentinel is the cause of every payload type error.
	ErrPayloadTypeSentinel = errs.NewError(CodePayloadType, "unexpected payload type", nil)
)

func invalidListener(l any) *errs.Error {
	return errs.NewError(
		CodeInvalidListener,
		fmt.Sprintf("cannot use %T as a listener", l),
		ErrInvalidListener,
	).WithContext("type", fmt.Sprintf("%T", l)).(*errs.Error)
}

// ErrPayloadType creates an error for a dispatch whose result is not the
// expected type.
func ErrPayloadType(event string, want, got any) *errs.Error {
	return errs.NewError(
		CodePayloadType,
		fmt.Sprintf("event '%s' produced %T, want %T", event, got, want),
		ErrPayloadTypeSentinel,
	).WithContext("event", event).
		WithContext("actual_type", fmt.Sprintf("%T", got)).(*errs.Error)
}

// IsInvalidListener reports whether err was caused by an unusable listener.
func IsInvalidListener(err error) bool {
	return keel.HasCause(err, ErrInvalidListener)
}

// IsPayloadType reports whether err was caused by a mistyped dispatch result.
func IsPayloadType(err error) bool {
	return keel.HasCause(err, ErrPayloadTypeSentinel)
}
