package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/sports-hall-booking/internal/model"
)

// ReviewRepo persists hall reviews.  reviews.appointment_id is unique.
type ReviewRepo struct {
	db *sql.DB
}

func NewReviewRepo(db *sql.DB) *ReviewRepo {
	return &ReviewRepo{db: db}
}

// Create inserts a review and sets its ID.  A second review for the same
// appointment yields ErrDuplicate.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO reviews (hall_id, appointment_id, user_id, rating, comment, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rv.HallID, rv.AppointmentID, rv.UserID, rv.Rating, rv.Comment, rv.CreatedAt.UTC())
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
	rv.ID = uint64(id)
	return nil
}

const reviewSelect = `SELECT rv.id, rv.hall_id, rv.appointment_id, rv.user_id, rv.rating, rv.comment, rv.created_at, h.name
	FROM reviews rv JOIN halls h ON h.id = rv.hall_id `

func (r *ReviewRepo) list(ctx context.Context, where string, args ...any) ([]model.HallReview, error) {
	rows, err := r.db.QueryContext(ctx, reviewSelect+where+` ORDER BY rv.created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.HallReview, 0)
	for rows.Next() {
		var v model.HallReview
		if err := rows.Scan(&v.ID, &v.HallID, &v.AppointmentID, &v.UserID, &v.Rating, &v.Comment, &v.CreatedAt, &v.HallName); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListByHall returns reviews of a hall, newest first.
func (r *ReviewRepo) ListByHall(ctx context.Context, hallID uint64) ([]model.HallReview, error) {
	return r.list(ctx, `WHERE rv.hall_id = ?`, hallID)
}

// ListByUser returns reviews written by the user.
func (r *ReviewRepo) ListByUser(ctx context.Context, userID uint64) ([]model.HallReview, error) {
	return r.list(ctx, `WHERE rv.user_id = ?`, userID)
}

// ListByOwner returns reviews of every hall the owner manages.
func (r *ReviewRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.HallReview, error) {
	return r.list(ctx, `WHERE h.owner_id = ?`, ownerID)
}
