package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker/v2"

	"github.com/normanhq/norman/internal/core/domain"
)

func TestClassifySharedRules(t *testing.T) {
	errBackend := errors.New("connection refused")
	backend := func(err error) (ErrorClassification, bool) {
		if errors.Is(err, errBackend) {
			return ErrorClassification{Retryable: true, RecordFailure: true}, true
		}
		return ErrorClassification{}, false
	}

	cases := []struct {
		name string
		err  error
		want ErrorClassification
	}{
		{"nil", nil, ErrorClassification{}},
		{"canceled context", context.Canceled, ErrorClassification{}},
		{"deadline exceeded", context.DeadlineExceeded, ErrorClassification{}},
		{"open breaker", gobreaker.ErrOpenState, ErrorClassification{Retryable: true, RecordFailure: true}},
		{"backend retryable", errBackend, ErrorClassification{Retryable: true, RecordFailure: true}},
		{"unclassified", errors.New("bad request"), ErrorClassification{RecordFailure: true}},
	}
	for _, tc := range cases {
		if got := Classify(tc.err, backend); got != tc.want {
			t.Fatalf("%s: Classify() = %+v, want %+v", tc.name, got, tc.want)
		}
	}
}

func TestClassifyWithoutBackendCheck(t *testing.T) {
	got := Classify(errors.New("unknown"), nil)
	if got.Retryable || !got.RecordFailure {
		t.Fatalf("unclassified error must be a permanent breaker failure, got %+v", got)
	}
}

func TestWrapTemporaryTagsRetryableErrors(t *testing.T) {
	errDown := errors.New("backend down")
	retryAll := func(error) ErrorClassification {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}

	err := WrapTemporary("qdrant_search", errDown, retryAll)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary classification, got %v", err)
	}
	if !errors.Is(err, errDown) {
		t.Fatalf("wrapped error must keep the cause, got %v", err)
	}

	// Already tagged errors pass through unchanged.
	if again := WrapTemporary("qdrant_search", err, retryAll); again != err {
		t.Fatalf("double wrap: %v", again)
	}
}

func TestWrapTemporaryLeavesPermanentErrors(t *testing.T) {
	errBad := errors.New("invalid request")
	permanent := func(error) ErrorClassification {
		return ErrorClassification{RecordFailure: true}
	}

	if err := WrapTemporary("ollama_generate", errBad, permanent); err != errBad {
		t.Fatalf("permanent error must pass through, got %v", err)
	}
	if err := WrapTemporary("ollama_generate", nil, permanent); err != nil {
		t.Fatalf("nil must stay nil, got %v", err)
	}
}
