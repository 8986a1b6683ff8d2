package market_errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidInput       = errors.New("invalid input")
	ErrTooLarge           = errors.New("payload too large")
	ErrRateLimited        = errors.New("rate limited")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrAlreadyExists      = errors.New("already exists")
)

// Chat and marketplace errors. Each wraps one of the common errors so
// status mapping keeps working through errors.Is.
var (
	ErrNotRoomMember  = fmt.Errorf("%w: not a member of this room", ErrForbidden)
	ErrNotOwner       = fmt.Errorf("%w: not the owner", ErrForbidden)
	ErrNotJoined      = fmt.Errorf("%w: room not joined", ErrInvalidInput)
	ErrEmptyChat      = fmt.Errorf("%w: chat is empty", ErrInvalidInput)
	ErrChatTooLong    = fmt.Errorf("%w: chat is too long", ErrTooLarge)
	ErrSelfRoom       = fmt.Errorf("%w: cannot open a room on your own service", ErrInvalidInput)
	ErrServiceClosed  = fmt.Errorf("%w: service already completed", ErrConflict)
	ErrStorageMissing = fmt.Errorf("%w: storage not configured", ErrServiceUnavailable)
	ErrNotRequester   = fmt.Errorf("%w: only the requester can answer this room", ErrForbidden)
	ErrRoomAnswered   = fmt.Errorf("%w: room already accepted", ErrConflict)
	ErrUserBlocked    = fmt.Errorf("%w: user is blocked", ErrForbidden)
)
