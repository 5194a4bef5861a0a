// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"sync"

	"todobot/internal/store"
)

// Call records one TaskStore invocation.
type Call struct {
	Op     string // store.OpAppend, store.OpQuery, store.OpDelete
	UserID string
	Name   string
	Task   store.Task
}

// FakeStore is an in-memory store.TaskStore that records calls and supports
// error injection.
type FakeStore struct {
	mem *store.Memory

	mu    sync.Mutex
	calls []Call

	// Error injection for testing
	AppendErr error
	QueryErr  error
	DeleteErr error
}

// NewFakeStore creates an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{mem: store.NewMemory()}
}

// Seed appends rows without recording calls.
func (f *FakeStore) Seed(rows ...store.Task) {
	for _, r := range rows {
		_ = f.mem.Append(context.Background(), r)
	}
}

// Rows returns the current table contents.
func (f *FakeStore) Rows() []store.Task {
	rows, _ := f.mem.Query(context.Background(), "")
	return rows
}

// Calls returns a copy of the recorded calls.
func (f *FakeStore) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]Call, len(f.calls))
	copy(result, f.calls)
	return result
}

func (f *FakeStore) record(c Call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

// Append implements store.TaskStore.
func (f *FakeStore) Append(ctx context.Context, task store.Task) error {
	f.record(Call{Op: store.OpAppend, UserID: task.UserID, Name: task.Name, Task: task})
	if f.AppendErr != nil {
		return f.AppendErr
	}
	return f.mem.Append(ctx, task)
}

// Query implements store.TaskStore.
func (f *FakeStore) Query(ctx context.Context, userID string) ([]store.Task, error) {
	f.record(Call{Op: store.OpQuery, UserID: userID})
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	return f.mem.Query(ctx, userID)
}

// DeleteMatching implements store.TaskStore.
func (f *FakeStore) DeleteMatching(ctx context.Context, userID, name string) (int, error) {
	f.record(Call{Op: store.OpDelete, UserID: userID, Name: name})
	if f.DeleteErr != nil {
		return 0, f.DeleteErr
	}
	return f.mem.DeleteMatching(ctx, userID, name)
}

// FakeReplier records replies instead of sending them.
type FakeReplier struct {
	mu      sync.Mutex
	replies []Reply

	// Err, if set, is returned from every Reply call.
	Err error
}

// Reply is one recorded outgoing message.
type Reply struct {
	Token string
	Text  string
}

// Reply records the message.
func (r *FakeReplier) Reply(ctx context.Context, replyToken, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, Reply{Token: replyToken, Text: text})
	return r.Err
}

// Replies returns a copy of the recorded replies.
func (r *FakeReplier) Replies() []Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]Reply, len(r.replies))
	copy(result, r.replies)
	return result
}
