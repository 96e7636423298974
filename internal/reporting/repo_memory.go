package reporting

import (
	"context"
	"sync"

	"contract-sender/internal/calls"
	"contract-sender/internal/users"
)

// MemoryRepo is a simple in-memory snapshot source for tests and the CLI's
// offline mode (reading a JSON dump instead of the backend).
type MemoryRepo struct {
	mu sync.Mutex

	Calls []calls.Record
	Users []users.Account

	// Err, when set, is returned by every list call.
	Err error
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) ListCalls(ctx context.Context) ([]calls.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := make([]calls.Record, len(r.Calls))
	copy(out, r.Calls)
	return out, nil
}

func (r *MemoryRepo) ListUsers(ctx context.Context) ([]users.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := make([]users.Account, len(r.Users))
	copy(out, r.Users)
	return out, nil
}
