package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/sports-hall-booking/internal/model"
	"github.com/iliyamo/sports-hall-booking/internal/slot"
)

// AvailabilityRepo persists availability windows.
type AvailabilityRepo struct {
	db *sql.DB
}

func NewAvailabilityRepo(db *sql.DB) *AvailabilityRepo {
	return &AvailabilityRepo{db: db}
}

const availabilityColumns = `id, hall_id, start_at, end_at, created_at`

func scanAvailability(s rowScanner) (model.Availability, error) {
	var a model.Availability
	err := s.Scan(&a.ID, &a.HallID, &a.Start, &a.End, &a.CreatedAt)
	return a, err
}

func (r *AvailabilityRepo) list(ctx context.Context, q string, args ...any) ([]model.Availability, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Availability, 0)
	for rows.Next() {
		a, err := scanAvailability(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListOverlapping returns windows of the hall overlapping [from, to).
func (r *AvailabilityRepo) ListOverlapping(ctx context.Context, hallID uint64, from, to time.Time) ([]model.Availability, error) {
	return r.list(ctx,
		`SELECT `+availabilityColumns+` FROM availabilities
		 WHERE hall_id = ? AND start_at < ? AND end_at > ?
		 ORDER BY start_at`,
		hallID, to.UTC(), from.UTC())
}

// ListByHall returns every window of the hall ordered by start.
func (r *AvailabilityRepo) ListByHall(ctx context.Context, hallID uint64) ([]model.Availability, error) {
	return r.list(ctx, `SELECT `+availabilityColumns+` FROM availabilities WHERE hall_id = ? ORDER BY start_at`, hallID)
}

// GetByID fetches one window.
func (r *AvailabilityRepo) GetByID(ctx context.Context, id uint64) (*model.Availability, error) {
	a, err := scanAvailability(r.db.QueryRowContext(ctx, `SELECT `+availabilityColumns+` FROM availabilities WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Delete removes a window.
func (r *AvailabilityRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM availabilities WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateBatch inserts the given windows for a hall in one transaction.
// The hall row is locked first so concurrent batches for the same hall
// serialize.  A window overlapping an existing one (including windows
// inserted earlier in the same batch) is skipped and returned in
// rejected; the rest are inserted and returned in created.
func (r *AvailabilityRepo) CreateBatch(ctx context.Context, hallID uint64, windows []slot.Interval) (created []model.Availability, rejected []slot.Interval, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := lockHallTx(ctx, tx, hallID); err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC().Truncate(time.Second)
	for _, w := range windows {
		var n int
		const qOverlap = `SELECT COUNT(*) FROM availabilities WHERE hall_id = ? AND start_at < ? AND end_at > ?`
		if err := tx.QueryRowContext(ctx, qOverlap, hallID, w.End.UTC(), w.Start.UTC()).Scan(&n); err != nil {
			return nil, nil, err
		}
		if n > 0 {
			rejected = append(rejected, w)
			continue
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO availabilities (hall_id, start_at, end_at, created_at) VALUES (?, ?, ?, ?)`,
			hallID, w.Start.UTC(), w.End.UTC(), now)
		if err != nil {
			return nil, nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, nil, err
		}
		created = append(created, model.Availability{
			ID: uint64(id), HallID: hallID, Start: w.Start.UTC(), End: w.End.UTC(), CreatedAt: now,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	committed = true
	return created, rejected, nil
}

// lockHallTx takes the row lock on the hall that serializes every write
// touching its schedule.  Returns ErrNotFound for an unknown hall.
func lockHallTx(ctx context.Context, tx *sql.Tx, hallID uint64) error {
	var id uint64
	err := tx.QueryRowContext(ctx, `SELECT id FROM halls WHERE id = ? FOR UPDATE`, hallID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
