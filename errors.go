package main

import "errors"

var (
	errInvalidJSON   = errors.New("payload: invalid json")
	errUnsafeSegment = errors.New("fixture: unsafe path segment")
)
