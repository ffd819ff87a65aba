package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/botweaver/botweaver/pkg/models"
)

// stubExecutor records action invocations and fails on demand.
type stubExecutor struct {
	mu       sync.Mutex
	calls    []stubCall
	failures map[string]error
	response any
}

type stubCall struct {
	actionType string
	params     map[string]any
	context    models.ExecutionContext
}

func newStubExecutor() *stubExecutor {
	return &stubExecutor{failures: make(map[string]error)}
}

func (s *stubExecutor) Execute(_ context.Context, actionType string, params map[string]any, executionCtx models.ExecutionContext) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, stubCall{actionType: actionType, params: params, context: executionCtx})

	if err, ok := s.failures[actionType]; ok {
		return nil, err
	}

	return s.response, nil
}

func (s *stubExecutor) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.calls)
}

var errBoom = errors.New("boom")

// fakeClock delivers delays immediately and a fixed wall-clock time.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	return f.now
}

func (f *fakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- f.now.Add(d)

	return ch
}
