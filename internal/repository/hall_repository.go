package repository // repository holds data access logic for domain entities

import (
	"context"      // context is used to manage deadlines and cancellation
	"database/sql" // sql provides DB primitives
	"errors"       // errors.Is for sql.ErrNoRows

	"github.com/iliyamo/sports-hall-booking/internal/model"
)

// HallRepo provides methods to create, retrieve and modify halls.
type HallRepo struct {
	db *sql.DB // db is the underlying database connection
}

// NewHallRepo constructs a HallRepo with the given DB handle.
func NewHallRepo(db *sql.DB) *HallRepo {
	return &HallRepo{db: db}
}

const hallColumns = `id, owner_id, name, address, price, description, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHall(s rowScanner) (*model.Hall, error) {
	var h model.Hall
	if err := s.Scan(&h.ID, &h.OwnerID, &h.Name, &h.Address, &h.Price, &h.Description, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, err
	}
	return &h, nil
}

// Create inserts a new hall.  OwnerID and Name must be set.  After the
// insert the row is read back so timestamps are populated.
func (r *HallRepo) Create(ctx context.Context, h *model.Hall) error {
	if h.Description == "" {
		h.Description = model.DefaultHallDescription
	}
	const qInsert = `INSERT INTO halls (owner_id, name, address, price, description) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert, h.OwnerID, h.Name, h.Address, h.Price, h.Description)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*h = *got
	return nil
}

// GetByID retrieves a hall by its ID regardless of owner.  It returns
// ErrNotFound when no row is found.
func (r *HallRepo) GetByID(ctx context.Context, id uint64) (*model.Hall, error) {
	h, err := scanHall(r.db.QueryRowContext(ctx, `SELECT `+hallColumns+` FROM halls WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return h, nil
}

// ListByOwner returns every hall of the owner ordered by id.
func (r *HallRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Hall, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+hallColumns+` FROM halls WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Hall, 0)
	for rows.Next() {
		h, err := scanHall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

// UpdateByIDAndOwner updates the editable hall fields if the hall belongs
// to h.OwnerID.  Returns ErrNotFound when no such hall exists.
func (r *HallRepo) UpdateByIDAndOwner(ctx context.Context, h *model.Hall) error {
	const q = `UPDATE halls
               SET name = ?, address = ?, price = ?, description = ?, updated_at = CURRENT_TIMESTAMP
               WHERE id = ? AND owner_id = ?`
	res, err := r.db.ExecContext(ctx, q, h.Name, h.Address, h.Price, h.Description, h.ID, h.OwnerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 for an unchanged row as well; tell them apart.
		if _, err := r.GetByIDAndOwner(ctx, h.ID, h.OwnerID); err != nil {
			return err
		}
	}
	return nil
}

// GetByIDAndOwner retrieves a hall only if it belongs to the owner.
func (r *HallRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*model.Hall, error) {
	h, err := scanHall(r.db.QueryRowContext(ctx, `SELECT `+hallColumns+` FROM halls WHERE id = ? AND owner_id = ?`, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return h, nil
}

// DeleteByIDAndOwner removes a hall of the owner.  Halls with blocking
// appointments in the future cannot be deleted and yield ErrConflict.
func (r *HallRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var hid uint64
	err = tx.QueryRowContext(ctx, `SELECT id FROM halls WHERE id = ? AND owner_id = ? FOR UPDATE`, id, ownerID).Scan(&hid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	var active int
	const qActive = `SELECT COUNT(*) FROM appointments
	                 WHERE hall_id = ? AND status IN ('pending','approved') AND end_at > UTC_TIMESTAMP()`
	if err := tx.QueryRowContext(ctx, qActive, id).Scan(&active); err != nil {
		return err
	}
	if active > 0 {
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM halls WHERE id = ?`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
