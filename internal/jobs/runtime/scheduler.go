package runtime

import (
	"context"
	"time"
)

// Scheduler runs a named job once after delay. Delivery is at-least-once and carries
// no ordering guarantee between jobs.
type Scheduler interface {
	Schedule(ctx context.Context, jobType string, args Args, delay time.Duration) error
}

type HandlerFunc struct {
	Name string
	Fn   func(ctx context.Context, args Args) error
}

func (h HandlerFunc) Type() string { return h.Name }

func (h HandlerFunc) Run(ctx context.Context, args Args) error { return h.Fn(ctx, args) }
