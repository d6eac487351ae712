package resilience

import (
	"context"
	"errors"

	"github.com/normanhq/norman/internal/core/domain"
)

// Classify applies the rules shared by every backend classifier and defers
// to the backend-specific check for the rest. Context cancellation never
// counts against the breaker; an open breaker is worth retrying once the
// cooldown lapses. A check returning ok=false falls back to a permanent,
// breaker-counted failure.
func Classify(err error, backend func(error) (ErrorClassification, bool)) ErrorClassification {
	if err == nil {
		return ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassification{}
	}
	if IsCircuitOpen(err) {
		return ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}
	if backend != nil {
		if class, ok := backend(err); ok {
			return class
		}
	}
	return ErrorClassification{RecordFailure: true}
}

// WrapTemporary tags err as a temporary failure when the classifier says
// another attempt could succeed, so the transport layer can map it to a
// 503. Errors already tagged pass through unchanged.
func WrapTemporary(operation string, err error, classify ErrorClassifier) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}

	retryable := IsCircuitOpen(err)
	if classify != nil {
		retryable = retryable || classify(err).Retryable
	}
	if retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
