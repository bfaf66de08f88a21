package repository

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrFollowUpCompleted = errors.New("follow-up already completed")
)
