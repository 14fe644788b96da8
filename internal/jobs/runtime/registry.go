package runtime

import (
	"context"
	"fmt"
	"sync"
)

// Args is the serialisable argument bag handed to a job. It must survive a JSON round trip.
type Args map[string]string

type Handler interface {
	Type() string
	Run(ctx context.Context, args Args) error
}

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	t := h.Type()
	if t == "" {
		return fmt.Errorf("handler Type() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[t]; exists {
		return fmt.Errorf("handler already registered for job_type=%s", t)
	}
	r.handlers[t] = h
	return nil
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}

// Run looks up jobType and runs it, converting a handler panic into an error.
func (r *Registry) Run(ctx context.Context, jobType string, args Args) (err error) {
	h, ok := r.Get(jobType)
	if !ok {
		return &MissingHandlerError{JobType: jobType}
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = &PanicError{JobType: jobType, Val: rec}
		}
	}()
	return h.Run(ctx, args)
}

type MissingHandlerError struct{ JobType string }

func (e *MissingHandlerError) Error() string {
	return "no handler registered for job_type=" + e.JobType
}

type PanicError struct {
	JobType string
	Val     any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("job_type=%s panic: %v", e.JobType, e.Val)
}
