package agent

import "github.com/pkg/errors"

// Failure kinds the loop signals. None of them escape Run; they shape the
// returned text and the logs.
var (
	ErrTransport        = errors.New("transport failure")
	ErrDecisionParse    = errors.New("malformed decision")
	ErrToolNotFound     = errors.New("tool not found")
	ErrMissingParameter = errors.New("missing required parameter")
	ErrToolExecution    = errors.New("tool execution failed")
	ErrIterationLimit   = errors.New("iteration limit exceeded")
)
