package runtime

import (
	"context"
	"errors"
	"testing"
)

func TestRegistryRejectsDuplicateAndEmpty(t *testing.T) {
	r := NewRegistry()
	h := HandlerFunc{Name: "aggregate", Fn: func(context.Context, Args) error { return nil }}
	if err := r.Register(h); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(h); err == nil {
		t.Fatalf("Register duplicate: expected error")
	}
	if err := r.Register(HandlerFunc{}); err == nil {
		t.Fatalf("Register empty type: expected error")
	}
}

func TestRegistryRunRecoversPanicAndReportsMissing(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(HandlerFunc{Name: "boom", Fn: func(context.Context, Args) error { panic("kaput") }})

	err := r.Run(context.Background(), "boom", nil)
	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("Run panic: want *PanicError got=%v", err)
	}

	err = r.Run(context.Background(), "missing", nil)
	var me *MissingHandlerError
	if !errors.As(err, &me) || me.JobType != "missing" {
		t.Fatalf("Run missing: want *MissingHandlerError got=%v", err)
	}
}
