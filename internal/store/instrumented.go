package store

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Operation names used in errors, metrics and spans.
const (
	OpAppend = "append"
	OpQuery  = "query"
	OpDelete = "delete"
)

// Result status values for recorded operations.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// OperationRecorder receives one call per store round trip.
type OperationRecorder interface {
	RecordStoreOperation(ctx context.Context, backend, operation, status string, duration time.Duration)
}

// Instrumented wraps a TaskStore with metrics and tracing.
type Instrumented struct {
	next     TaskStore
	backend  string
	recorder OperationRecorder
	tracer   trace.Tracer
}

// Instrument wraps next. recorder may be nil.
//
// Usage:
//
//	st := store.Instrument(googlesheets.New(...), "sheets", provider.Metrics())
func Instrument(next TaskStore, backend string, recorder OperationRecorder) *Instrumented {
	return &Instrumented{
		next:     next,
		backend:  backend,
		recorder: recorder,
		tracer:   otel.Tracer("todobot/store"),
	}
}

// Append implements TaskStore.
func (s *Instrumented) Append(ctx context.Context, task Task) error {
	return s.observe(ctx, OpAppend, func(ctx context.Context) error {
		return s.next.Append(ctx, task)
	})
}

// Query implements TaskStore.
func (s *Instrumented) Query(ctx context.Context, userID string) ([]Task, error) {
	var rows []Task
	err := s.observe(ctx, OpQuery, func(ctx context.Context) error {
		var err error
		rows, err = s.next.Query(ctx, userID)
		return err
	})
	return rows, err
}

// DeleteMatching implements TaskStore.
func (s *Instrumented) DeleteMatching(ctx context.Context, userID, name string) (int, error) {
	var n int
	err := s.observe(ctx, OpDelete, func(ctx context.Context) error {
		var err error
		n, err = s.next.DeleteMatching(ctx, userID, name)
		return err
	})
	return n, err
}

func (s *Instrumented) observe(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "store."+op, trace.WithAttributes(
		attribute.String("store.backend", s.backend),
	))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	status := StatusSuccess
	if err != nil {
		status = StatusError
		span.RecordError(err)
		span.SetStatus(codes.Error, string(KindOf(err)))
	}
	if s.recorder != nil {
		s.recorder.RecordStoreOperation(ctx, s.backend, op, status, duration)
	}
	return err
}
