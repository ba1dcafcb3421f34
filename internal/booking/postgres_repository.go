package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxQuerier is the pool subset the repository needs; pgxmock satisfies it.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores booking requests in the relational database.
type PostgresRepository struct {
	db pgxQuerier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("booking: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting mocks for tests.
func NewPostgresRepositoryWithDB(db pgxQuerier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const bookingColumns = `id, unit_slug, doctor_slug, doctor_name, service_id,
	start_at_ms, end_at_ms, status, patient_name, whatsapp, notes,
	created_at_ms, confirm_by_ms, decided_at_ms, decided_by, decision_note,
	override_conflict`

func (r *PostgresRepository) Create(ctx context.Context, b *BookingRequest) error {
	query := `
		INSERT INTO booking_requests (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := r.db.Exec(ctx, query,
		b.ID,
		b.UnitSlug,
		b.DoctorSlug,
		b.DoctorName,
		b.ServiceID,
		b.StartAtMs,
		b.EndAtMs,
		string(b.Status),
		b.PatientName,
		b.WhatsApp,
		b.Notes,
		b.CreatedAtMs,
		b.ConfirmByMs,
		b.DecidedAtMs,
		b.DecidedBy,
		b.DecisionNote,
		b.OverrideConflict,
	)
	if err != nil {
		return fmt.Errorf("booking: insert failed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*BookingRequest, error) {
	query := `SELECT ` + bookingColumns + ` FROM booking_requests WHERE id = $1`
	row := r.db.QueryRow(ctx, query, id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("booking: select failed: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) Update(ctx context.Context, b *BookingRequest) error {
	query := `
		UPDATE booking_requests
		SET status = $2,
		    decided_at_ms = $3,
		    decided_by = $4,
		    decision_note = $5,
		    override_conflict = $6
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query,
		b.ID,
		string(b.Status),
		b.DecidedAtMs,
		b.DecidedBy,
		b.DecisionNote,
		b.OverrideConflict,
	)
	if err != nil {
		return fmt.Errorf("booking: update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) FindOverlapping(ctx context.Context, unitSlug, doctorSlug string, startMs, endMs int64) ([]*BookingRequest, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM booking_requests
		WHERE unit_slug = $1
		  AND ($2 = '' OR doctor_slug = $2)
		  AND start_at_ms < $4
		  AND end_at_ms > $3
		ORDER BY start_at_ms
	`
	rows, err := r.db.Query(ctx, query, unitSlug, doctorSlug, startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("booking: overlap query failed: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (r *PostgresRepository) ListExpirable(ctx context.Context, nowMs int64, limit int) ([]*BookingRequest, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM booking_requests
		WHERE status IN ('pending', 'needs_approval')
		  AND confirm_by_ms < $1
		ORDER BY confirm_by_ms
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, nowMs, limit)
	if err != nil {
		return nil, fmt.Errorf("booking: expirable query failed: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (r *PostgresRepository) ListUndecided(ctx context.Context, limit int) ([]*BookingRequest, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM booking_requests
		WHERE status IN ('pending', 'needs_approval')
		ORDER BY created_at_ms
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("booking: undecided query failed: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (r *PostgresRepository) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM booking_requests GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("booking: count query failed: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("booking: count scan failed: %w", err)
		}
		counts[Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("booking: count rows failed: %w", err)
	}
	return counts, nil
}

func scanBooking(row pgx.Row) (*BookingRequest, error) {
	var b BookingRequest
	var status string
	err := row.Scan(
		&b.ID,
		&b.UnitSlug,
		&b.DoctorSlug,
		&b.DoctorName,
		&b.ServiceID,
		&b.StartAtMs,
		&b.EndAtMs,
		&status,
		&b.PatientName,
		&b.WhatsApp,
		&b.Notes,
		&b.CreatedAtMs,
		&b.ConfirmByMs,
		&b.DecidedAtMs,
		&b.DecidedBy,
		&b.DecisionNote,
		&b.OverrideConflict,
	)
	if err != nil {
		return nil, err
	}
	b.Status = Status(status)
	return &b, nil
}

func scanBookings(rows pgx.Rows) ([]*BookingRequest, error) {
	var out []*BookingRequest
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("booking: scan failed: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("booking: rows failed: %w", err)
	}
	return out, nil
}

var _ Repository = (*PostgresRepository)(nil)
