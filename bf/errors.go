package bf

import (
	"errors"
	"fmt"
)

// The two structural errors. Use errors.Is to tell them apart.
var (
	ErrUnmatchedLoopEnd   = errors.New("unmatched ']': loop end without loop start")
	ErrUnmatchedLoopStart = errors.New("unmatched '[': loop start without loop end")
)

// StructuralError reports a bracket-matching failure and where it became
// observable. For ErrUnmatchedLoopEnd, Pos is the offending ']'. For
// ErrUnmatchedLoopStart, Pos is the innermost '[' left open.
type StructuralError struct {
	Err error
	Pos Pos
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: %v", e.Pos, e.Err)
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}
