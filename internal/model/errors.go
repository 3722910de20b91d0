package model

import "errors"

// Sentinel errors for model-level invariant violations — callers use
// errors.Is against these.
var (
	ErrInvalidProjectBounds = errors.New("model: project end must be after start")
	ErrInvalidGranularity   = errors.New("model: granularity must be positive")
	ErrCyclicDependency     = errors.New("model: dependency graph contains a cycle")
	ErrUnknownTaskRef       = errors.New("model: dependency references unknown task")
	ErrUnknownResourceRef   = errors.New("model: allocation references unknown resource")
	ErrAmbiguousAttribute   = errors.New("model: task declares more than one of effort/duration/length")
)
