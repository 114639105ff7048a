package video

import "errors"

var (
	ErrNotFound     = errors.New("video: not found")
	ErrInvalidInput = errors.New("video: invalid input")
)
