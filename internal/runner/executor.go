package runner

import (
	"context"
	"fmt"
	"time"

	"codeshare/internal/model"
)

// Result is what an execution backend reports for one run.
type Result struct {
	Output    string `json:"output"`
	Error     string `json:"error,omitempty"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// Executor runs a session buffer. Real backends are sandboxed services
// external to this process; the interface keeps them opaque.
type Executor interface {
	Execute(ctx context.Context, code string, language model.Language) (*Result, error)
}

// Local is the fallback executor used when no backend is configured.
// It validates the request and reports that execution happens elsewhere,
// so the API surface stays usable without a sandbox.
type Local struct{}

// NewLocal creates the fallback executor.
func NewLocal() *Local {
	return &Local{}
}

// Execute implements Executor.
func (e *Local) Execute(ctx context.Context, code string, language model.Language) (*Result, error) {
	start := time.Now()
	if !language.Valid() {
		return nil, fmt.Errorf("unsupported language %q", language)
	}
	return &Result{
		Output:    "",
		Error:     fmt.Sprintf("no %s execution backend configured", language),
		ElapsedMs: time.Since(start).Milliseconds(),
	}, nil
}
