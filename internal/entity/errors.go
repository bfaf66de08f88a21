package entity

import "errors"

var (
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidDelay  = errors.New("invalid delay")
	ErrEmptySteps    = errors.New("sequence has no steps")
)
