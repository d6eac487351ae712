package domain

import (
	"errors"
	"fmt"
)

// Stage-tagged failure kinds. Whole-stage failures (translation, generation)
// are fatal and surface to the caller; per-candidate and per-variant kinds
// are absorbed by the pipeline and only degrade quality.
var (
	ErrTranslation    = errors.New("translation failure")
	ErrRetrieval      = errors.New("retrieval failure")
	ErrGrading        = errors.New("grading failure")
	ErrRerank         = errors.New("rerank failure")
	ErrGeneration     = errors.New("generation failure")
	ErrBudgetExceeded = errors.New("budget exceeded")

	ErrLawNotFound  = errors.New("law not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
