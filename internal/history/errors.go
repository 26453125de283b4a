package history

import "errors"

var (
	ErrRunNotFound     = errors.New("run not found")
	ErrFailedToSaveRun = errors.New("failed to save run")
)
