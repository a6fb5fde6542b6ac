package dbbadger

import "errors"

var (
	// ErrOutputAlreadyExists ...
	ErrOutputAlreadyExists = errors.New("output already exists")
	// ErrNullEntry ...
	ErrNullEntry = errors.New("tx log entry must not be null")
	// ErrNullSlate ...
	ErrNullSlate = errors.New("slate must not be null")
)
