package services

import "errors"

var (
	// ErrNoPanel is returned when no run in this process has produced a panel
	ErrNoPanel = errors.New("no panel available; trigger a run first")
	// ErrNoHistory is returned when run history is requested without a store
	ErrNoHistory = errors.New("run history is not configured")
)
