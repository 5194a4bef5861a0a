package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"todobot/internal/store"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want store.Kind
	}{
		{"store error", store.NewError(store.OpDelete, store.KindNotFound, store.ErrTableNotFound), store.KindNotFound},
		{"wrapped store error", fmt.Errorf("complete: %w", store.NewError(store.OpQuery, store.KindUnavailable, errors.New("503"))), store.KindUnavailable},
		{"deadline promoted to timeout", store.NewError(store.OpAppend, store.KindUnavailable, context.DeadlineExceeded), store.KindTimeout},
		{"bare deadline", context.DeadlineExceeded, store.KindTimeout},
		{"plain error", errors.New("boom"), store.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := store.KindOf(tt.err); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	err := store.NewError(store.OpDelete, store.KindNotFound, store.ErrTableNotFound)
	if !errors.Is(err, store.ErrTableNotFound) {
		t.Error("expected errors.Is to find ErrTableNotFound")
	}
	want := "store delete: not_found: table not found"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestKind_Retryable(t *testing.T) {
	if !store.KindTimeout.Retryable() || !store.KindUnavailable.Retryable() {
		t.Error("timeout and unavailable should be retryable")
	}
	if store.KindNotFound.Retryable() || store.KindUnauthorized.Retryable() {
		t.Error("not_found and unauthorized should not be retryable")
	}
}

type recordedOp struct {
	backend, op, status string
}

type fakeRecorder struct {
	ops []recordedOp
}

func (r *fakeRecorder) RecordStoreOperation(_ context.Context, backend, op, status string, _ time.Duration) {
	r.ops = append(r.ops, recordedOp{backend, op, status})
}

type failingStore struct{ store.Memory }

func (f *failingStore) Query(ctx context.Context, userID string) ([]store.Task, error) {
	return nil, store.NewError(store.OpQuery, store.KindUnavailable, errors.New("down"))
}

func TestInstrumented_RecordsOperations(t *testing.T) {
	rec := &fakeRecorder{}
	st := store.Instrument(&failingStore{}, "memory", rec)
	ctx := context.Background()

	if err := st.Append(ctx, store.Task{UserID: "U1", Name: "a", Deadline: "2025-01-01"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := st.Query(ctx, "U1"); err == nil {
		t.Fatal("expected query error")
	}
	n, err := st.DeleteMatching(ctx, "U1", "a")
	if err != nil || n != 1 {
		t.Fatalf("expected 1 deleted, got %d (%v)", n, err)
	}

	want := []recordedOp{
		{"memory", store.OpAppend, store.StatusSuccess},
		{"memory", store.OpQuery, store.StatusError},
		{"memory", store.OpDelete, store.StatusSuccess},
	}
	if len(rec.ops) != len(want) {
		t.Fatalf("expected %d ops, got %d", len(want), len(rec.ops))
	}
	for i := range want {
		if rec.ops[i] != want[i] {
			t.Errorf("op %d: expected %+v, got %+v", i, want[i], rec.ops[i])
		}
	}
}

func TestInstrumented_NilRecorder(t *testing.T) {
	st := store.Instrument(store.NewMemory(), "memory", nil)
	if err := st.Append(context.Background(), store.Task{UserID: "U1", Name: "a"}); err != nil {
		t.Fatalf("append: %v", err)
	}
}
