package probing

import "errors"

var (
	// ErrNoCPU is returned when no aggregate cpu line can be read.
	ErrNoCPU = errors.New("probing: aggregate cpu counters not found")

	// ErrNoMemory is returned when total or available memory is missing.
	ErrNoMemory = errors.New("probing: memory totals not found")

	// ErrUnknownProbe is returned by New for an unsupported probe name.
	ErrUnknownProbe = errors.New("probing: unknown probe")
)
