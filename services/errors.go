package services

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindValidation
	KindConflict
	KindInvalidState
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindInvalidState:
		return "invalid_state"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Error is the typed failure returned by every service operation.
// Message is safe to show to the caller; Err is kept for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns KindInternal for errors that are not *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Unauthenticated(msg string) *Error { return &Error{Kind: KindUnauthenticated, Message: msg} }
func Forbidden(msg string) *Error       { return &Error{Kind: KindForbidden, Message: msg} }
func NotFound(msg string) *Error        { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) *Error        { return &Error{Kind: KindConflict, Message: msg} }
func InvalidState(msg string) *Error    { return &Error{Kind: KindInvalidState, Message: msg} }

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Upstream(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: msg, Err: err}
}

var (
	ErrUnauthenticated = Unauthenticated("authentication required")
	ErrForbidden       = Forbidden("you are not allowed to perform this action")

	ErrUserNotFound     = NotFound("user not found")
	ErrTeacherNotFound  = NotFound("teacher not found")
	ErrSlotNotFound     = NotFound("availability slot not found")
	ErrBookingNotFound  = NotFound("booking not found")
	ErrSessionNotFound  = NotFound("session not found")
	ErrPaymentNotFound  = NotFound("payment not found")
	ErrReviewNotFound   = NotFound("review not found")
	ErrMaterialNotFound = NotFound("material not found")
	ErrOrderNotFound    = NotFound("order not found")
	ErrPayoutNotFound   = NotFound("payout not found")
	ErrSkillNotFound    = NotFound("skill not found")

	ErrAlreadyBooked    = Conflict("slot is already booked")
	ErrBookingConflict  = Conflict("slot conflicts with an existing booking")
	ErrSlotBooked       = Conflict("booked slots cannot be deleted")
	ErrDuplicateReview  = Conflict("a review for this booking already exists")
	ErrAlreadyPurchased = Conflict("material already purchased")
	ErrEmailTaken       = Conflict("email is already registered")
	ErrAlreadyOnboarded = Conflict("profile already completed")

	ErrBookingNotPending   = InvalidState("booking is not in pending status")
	ErrBookingNotCompleted = InvalidState("reviews can only be submitted for completed bookings")
)
