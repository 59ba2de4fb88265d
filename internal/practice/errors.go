package practice

import "errors"

var (
	// ErrInvalidConfig is returned when an owner console update fails validation.
	ErrInvalidConfig = errors.New("practice: invalid configuration")
	// ErrCharityFull is returned when a counselor has no charity capacity left.
	ErrCharityFull = errors.New("practice: counselor charity capacity reached")
	// ErrCharityDisabled is returned while the charity program is switched off.
	ErrCharityDisabled = errors.New("practice: charity program disabled")
	// ErrNotParticipating is returned for counselors outside the program.
	ErrNotParticipating = errors.New("practice: counselor not in charity program")
	// ErrClientLimitReached is returned once a client used up their charity sessions.
	ErrClientLimitReached = errors.New("practice: client charity limit reached")
	// ErrClientRequired is returned when charity use is recorded without a phone.
	ErrClientRequired = errors.New("practice: client phone is required")
)
