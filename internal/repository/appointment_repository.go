package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/sports-hall-booking/internal/model"
)

// AppointmentRepo persists appointments and runs the booking transaction.
type AppointmentRepo struct {
	db *sql.DB
}

func NewAppointmentRepo(db *sql.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

const appointmentColumns = `a.id, a.hall_id, a.user_id, a.start_at, a.end_at, a.status, a.checked_in, a.created_at, a.updated_at`

func scanAppointment(s rowScanner, extra ...any) (model.Appointment, error) {
	var (
		a      model.Appointment
		status string
	)
	dest := append([]any{&a.ID, &a.HallID, &a.UserID, &a.Start, &a.End, &status, &a.CheckedIn, &a.CreatedAt, &a.UpdatedAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		return a, err
	}
	a.Status = model.AppointmentStatus(status)
	return a, nil
}

func (r *AppointmentRepo) list(ctx context.Context, q string, args ...any) ([]model.Appointment, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AppointmentRepo) listWithHall(ctx context.Context, q string, args ...any) ([]model.HallAppointment, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.HallAppointment, 0)
	for rows.Next() {
		var ha model.HallAppointment
		a, err := scanAppointment(rows, &ha.HallName, &ha.HallPrice)
		if err != nil {
			return nil, err
		}
		ha.Appointment = a
		out = append(out, ha)
	}
	return out, rows.Err()
}

// CreateIfFree is the booking transaction.  Inside one transaction it
//  1. locks the hall row (serializes all bookings of the hall),
//  2. requires an availability window containing [Start, End),
//  3. requires that no pending or approved appointment overlaps it,
//  4. inserts the appointment.
// On success a.ID is set.  Errors: ErrNotFound, ErrOutsideAvailability,
// ErrSlotTaken.
func (r *AppointmentRepo) CreateIfFree(ctx context.Context, a *model.Appointment) error {
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

	if err := lockHallTx(ctx, tx, a.HallID); err != nil {
		return err
	}

	start, end := a.Start.UTC(), a.End.UTC()

	var windows int
	const qInside = `SELECT COUNT(*) FROM availabilities WHERE hall_id = ? AND start_at <= ? AND end_at >= ?`
	if err := tx.QueryRowContext(ctx, qInside, a.HallID, start, end).Scan(&windows); err != nil {
		return err
	}
	if windows == 0 {
		return ErrOutsideAvailability
	}

	var busy int
	const qBusy = `SELECT COUNT(*) FROM appointments
	               WHERE hall_id = ? AND status IN ('pending','approved') AND start_at < ? AND end_at > ?`
	if err := tx.QueryRowContext(ctx, qBusy, a.HallID, end, start).Scan(&busy); err != nil {
		return err
	}
	if busy > 0 {
		return ErrSlotTaken
	}

	const qInsert = `INSERT INTO appointments (hall_id, user_id, start_at, end_at, status, checked_in, created_at, updated_at)
	                 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, qInsert, a.HallID, a.UserID, start, end, string(a.Status), a.CheckedIn, a.CreatedAt.UTC(), a.UpdatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	a.ID = uint64(id)
	return nil
}

// GetByID fetches one appointment.
func (r *AppointmentRepo) GetByID(ctx context.Context, id uint64) (*model.Appointment, error) {
	a, err := scanAppointment(r.db.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments a WHERE a.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// ListBlocking returns pending and approved appointments of the hall
// overlapping [from, to).
func (r *AppointmentRepo) ListBlocking(ctx context.Context, hallID uint64, from, to time.Time) ([]model.Appointment, error) {
	return r.list(ctx,
		`SELECT `+appointmentColumns+` FROM appointments a
		 WHERE a.hall_id = ? AND a.status IN ('pending','approved') AND a.start_at < ? AND a.end_at > ?
		 ORDER BY a.start_at`,
		hallID, to.UTC(), from.UTC())
}

// UpdateStatus moves an appointment from one status to another only if
// it still has the expected status.  Returns ErrStatusChanged otherwise.
func (r *AppointmentRepo) UpdateStatus(ctx context.Context, id uint64, from, to model.AppointmentStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE appointments SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status = ? AND checked_in = 0`,
		string(to), id, string(from))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStatusChanged
	}
	return nil
}

// MarkCheckedIn sets checked_in on an approved appointment that is not
// yet checked in.  Returns ErrStatusChanged when the row no longer
// qualifies.
func (r *AppointmentRepo) MarkCheckedIn(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE appointments SET checked_in = 1, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status = 'approved' AND checked_in = 0`,
		id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStatusChanged
	}
	return nil
}

// ListByUser returns the user's appointments, newest first.
func (r *AppointmentRepo) ListByUser(ctx context.Context, userID uint64) ([]model.HallAppointment, error) {
	return r.listWithHall(ctx,
		`SELECT `+appointmentColumns+`, h.name, h.price FROM appointments a
		 JOIN halls h ON h.id = a.hall_id
		 WHERE a.user_id = ? ORDER BY a.start_at DESC`, userID)
}

// ListByHallAndStatus returns appointments of a hall in one status,
// ordered by start.
func (r *AppointmentRepo) ListByHallAndStatus(ctx context.Context, hallID uint64, status model.AppointmentStatus) ([]model.Appointment, error) {
	return r.list(ctx,
		`SELECT `+appointmentColumns+` FROM appointments a WHERE a.hall_id = ? AND a.status = ? ORDER BY a.start_at`,
		hallID, string(status))
}

// ListByOwner returns appointments across all halls of the owner, newest first.
func (r *AppointmentRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.HallAppointment, error) {
	return r.listWithHall(ctx,
		`SELECT `+appointmentColumns+`, h.name, h.price FROM appointments a
		 JOIN halls h ON h.id = a.hall_id
		 WHERE h.owner_id = ? ORDER BY a.start_at DESC`, ownerID)
}

// ListByOwnerBetween returns appointments of the owner's halls starting
// in [from, to), used for monthly reports.
func (r *AppointmentRepo) ListByOwnerBetween(ctx context.Context, ownerID uint64, from, to time.Time) ([]model.HallAppointment, error) {
	return r.listWithHall(ctx,
		`SELECT `+appointmentColumns+`, h.name, h.price FROM appointments a
		 JOIN halls h ON h.id = a.hall_id
		 WHERE h.owner_id = ? AND a.start_at >= ? AND a.start_at < ?
		 ORDER BY a.start_at`, ownerID, from.UTC(), to.UTC())
}

// ListReviewable returns the user's checked-in appointments that have no
// review yet.
func (r *AppointmentRepo) ListReviewable(ctx context.Context, userID uint64) ([]model.HallAppointment, error) {
	return r.listWithHall(ctx,
		`SELECT `+appointmentColumns+`, h.name, h.price FROM appointments a
		 JOIN halls h ON h.id = a.hall_id
		 LEFT JOIN reviews rv ON rv.appointment_id = a.id
		 WHERE a.user_id = ? AND a.checked_in = 1 AND rv.id IS NULL
		 ORDER BY a.start_at DESC`, userID)
}
