package engine

import "errors"

var (
	// ErrExecution marks a step that failed at runtime.
	ErrExecution = errors.New("step execution failed")

	// ErrDepthExceeded marks a step tree nested beyond MaxChainDepth.
	// Unlike the loop iteration cap this is an execution error: normal
	// workflows never approach it.
	ErrDepthExceeded = errors.New("step nesting too deep")
)
