package errors

import "errors"

var (
	ErrEmptyKey    = errors.New("empty key")
	ErrInvalidData = errors.New("invalid data type")
	ErrQueueEmpty  = errors.New("work queue is empty")
	ErrDecodeUnit  = errors.New("failed to decode work unit")
	ErrNotPrepared = errors.New("scoring provider is not prepared")
)
