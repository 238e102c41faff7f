package graphing

import "errors"

// ErrNotEnoughData is returned when no metric has two or more points.
var ErrNotEnoughData = errors.New("graphing: need at least 2 reports per metric")
