package booking

import (
	"context"
	"errors"
	"testing"
)

func seedRow(t *testing.T, repo Repository, b *BookingRequest) {
	t.Helper()
	if err := repo.Create(context.Background(), b); err != nil {
		t.Fatalf("seed %s: %v", b.ID, err)
	}
}

func TestInMemoryCreateGetUpdate(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	b := &BookingRequest{ID: "b1", UnitSlug: "centro", DoctorSlug: "dra-ana-castro", Status: StatusPending}
	seedRow(t, repo, b)

	// Mutating the original must not leak into the store.
	b.Status = StatusDeclined

	got, err := repo.GetByID(ctx, "b1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != StatusPending {
		t.Errorf("stored status = %s, want pending", got.Status)
	}

	got.Status = StatusConfirmed
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	again, _ := repo.GetByID(ctx, "b1")
	if again.Status != StatusConfirmed {
		t.Errorf("updated status = %s, want confirmed", again.Status)
	}
}

func TestInMemoryNotFound(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID error = %v, want ErrNotFound", err)
	}
	if err := repo.Update(ctx, &BookingRequest{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update error = %v, want ErrNotFound", err)
	}
}

func TestInMemoryFindOverlapping(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	seedRow(t, repo, &BookingRequest{ID: "a", UnitSlug: "centro", DoctorSlug: "dra-ana-castro", StartAtMs: 1000, EndAtMs: 2000})
	seedRow(t, repo, &BookingRequest{ID: "b", UnitSlug: "centro", DoctorSlug: "dr-paulo-lima", StartAtMs: 1500, EndAtMs: 2500})
	seedRow(t, repo, &BookingRequest{ID: "c", UnitSlug: "jardins", DoctorSlug: "dra-ana-castro", StartAtMs: 1000, EndAtMs: 2000})
	seedRow(t, repo, &BookingRequest{ID: "d", UnitSlug: "centro", DoctorSlug: "dra-ana-castro", StartAtMs: 3000, EndAtMs: 4000})

	t.Run("specific doctor", func(t *testing.T) {
		rows, err := repo.FindOverlapping(ctx, "centro", "dra-ana-castro", 500, 2500)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 1 || rows[0].ID != "a" {
			t.Errorf("got %d rows, want only row a", len(rows))
		}
	})

	t.Run("empty doctor matches whole unit", func(t *testing.T) {
		rows, err := repo.FindOverlapping(ctx, "centro", "", 500, 2500)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 2 {
			t.Fatalf("got %d rows, want 2", len(rows))
		}
		if rows[0].ID != "a" || rows[1].ID != "b" {
			t.Errorf("rows not ordered by start: %s, %s", rows[0].ID, rows[1].ID)
		}
	})

	t.Run("touching intervals do not overlap", func(t *testing.T) {
		rows, err := repo.FindOverlapping(ctx, "centro", "dra-ana-castro", 2000, 3000)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 0 {
			t.Errorf("got %d rows, want 0", len(rows))
		}
	})
}

func TestInMemoryListExpirable(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	seedRow(t, repo, &BookingRequest{ID: "stale1", Status: StatusPending, ConfirmByMs: 100})
	seedRow(t, repo, &BookingRequest{ID: "stale2", Status: StatusNeedsApproval, ConfirmByMs: 200})
	seedRow(t, repo, &BookingRequest{ID: "fresh", Status: StatusPending, ConfirmByMs: 9000})
	seedRow(t, repo, &BookingRequest{ID: "done", Status: StatusConfirmed, ConfirmByMs: 100})

	rows, err := repo.ListExpirable(ctx, 1000, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].ID != "stale1" || rows[1].ID != "stale2" {
		t.Errorf("rows not ordered by deadline: %s, %s", rows[0].ID, rows[1].ID)
	}

	limited, _ := repo.ListExpirable(ctx, 1000, 1)
	if len(limited) != 1 {
		t.Errorf("limit not applied: got %d rows", len(limited))
	}
}

func TestInMemoryListUndecided(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	seedRow(t, repo, &BookingRequest{ID: "p2", Status: StatusPending, CreatedAtMs: 200})
	seedRow(t, repo, &BookingRequest{ID: "p1", Status: StatusNeedsApproval, CreatedAtMs: 100})
	seedRow(t, repo, &BookingRequest{ID: "x", Status: StatusDeclined, CreatedAtMs: 50})

	rows, err := repo.ListUndecided(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].ID != "p1" || rows[1].ID != "p2" {
		t.Errorf("rows not oldest first: %s, %s", rows[0].ID, rows[1].ID)
	}
}

func TestInMemoryCountByStatus(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	seedRow(t, repo, &BookingRequest{ID: "1", Status: StatusPending})
	seedRow(t, repo, &BookingRequest{ID: "2", Status: StatusPending})
	seedRow(t, repo, &BookingRequest{ID: "3", Status: StatusConfirmed})

	counts, err := repo.CountByStatus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts[StatusPending] != 2 || counts[StatusConfirmed] != 1 {
		t.Errorf("counts = %v", counts)
	}
}
