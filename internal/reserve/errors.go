package reserve

import "errors"

// ErrAlreadyInitialized is returned by Init when the reserve already has
// an aToken address recorded.
var ErrAlreadyInitialized = errors.New("reserve: already initialized")

// ErrNotInitialized is returned when an operation is attempted against a
// reserve that has never been initialized.
var ErrNotInitialized = errors.New("reserve: not initialized")

// ErrTimeWentBackwards is returned when the caller supplies a logical
// timestamp earlier than the reserve's last update.
var ErrTimeWentBackwards = errors.New("reserve: time went backwards")

// ErrInvariantViolation is returned when treasury accrual would be
// negative, indicating upstream bookkeeping allowed debt or supply to
// shrink between Cache and UpdateState without going through this core.
var ErrInvariantViolation = errors.New("reserve: invariant violation in treasury accrual")
