package report

import "errors"

var (
	ErrUnknownFormat    = errors.New("unknown output format")
	ErrFailedToRender   = errors.New("failed to render report")
	ErrFailedToWriteOut = errors.New("failed to write report")
)
