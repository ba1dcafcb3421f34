package booking

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned when no row exists for an id.
var ErrNotFound = errors.New("booking not found")

// Repository defines the persistence interface for booking requests.
type Repository interface {
	Create(ctx context.Context, b *BookingRequest) error
	GetByID(ctx context.Context, id string) (*BookingRequest, error)
	Update(ctx context.Context, b *BookingRequest) error

	// FindOverlapping returns rows for the unit (and doctor, unless
	// doctorSlug is empty) whose interval intersects [startMs, endMs).
	FindOverlapping(ctx context.Context, unitSlug, doctorSlug string, startMs, endMs int64) ([]*BookingRequest, error)

	// ListExpirable returns undecided rows whose confirm deadline is
	// before nowMs, for the periodic sweep.
	ListExpirable(ctx context.Context, nowMs int64, limit int) ([]*BookingRequest, error)

	// ListUndecided returns pending/needs_approval rows, oldest first,
	// for the operator review queue.
	ListUndecided(ctx context.Context, limit int) ([]*BookingRequest, error)

	CountByStatus(ctx context.Context) (map[Status]int64, error)
}

// InMemoryRepository keeps bookings in process memory. Used in development
// and tests; PostgresRepository is the production implementation.
type InMemoryRepository struct {
	mu   sync.RWMutex
	rows map[string]*BookingRequest
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{rows: make(map[string]*BookingRequest)}
}

func (r *InMemoryRepository) Create(ctx context.Context, b *BookingRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.rows[b.ID] = &cp
	return nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*BookingRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, b *BookingRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[b.ID]; !ok {
		return ErrNotFound
	}
	cp := *b
	r.rows[b.ID] = &cp
	return nil
}

func (r *InMemoryRepository) FindOverlapping(ctx context.Context, unitSlug, doctorSlug string, startMs, endMs int64) ([]*BookingRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*BookingRequest
	for _, row := range r.rows {
		if row.UnitSlug != unitSlug {
			continue
		}
		if doctorSlug != "" && row.DoctorSlug != doctorSlug {
			continue
		}
		if !row.Overlaps(startMs, endMs) {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAtMs < out[j].StartAtMs })
	return out, nil
}

func (r *InMemoryRepository) ListExpirable(ctx context.Context, nowMs int64, limit int) ([]*BookingRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*BookingRequest
	for _, row := range r.rows {
		if row.Status.Terminal() || nowMs <= row.ConfirmByMs {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConfirmByMs < out[j].ConfirmByMs })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *InMemoryRepository) ListUndecided(ctx context.Context, limit int) ([]*BookingRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*BookingRequest
	for _, row := range r.rows {
		if row.Status != StatusPending && row.Status != StatusNeedsApproval {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAtMs < out[j].CreatedAtMs })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *InMemoryRepository) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[Status]int64)
	for _, row := range r.rows {
		counts[row.Status]++
	}
	return counts, nil
}

var _ Repository = (*InMemoryRepository)(nil)
