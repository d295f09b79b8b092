package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/sports-hall-booking/internal/model"
)

// HallSearchQuery defines filters & pagination for the public hall list.
type HallSearchQuery struct {
	Name     string
	Address  string
	Page     int
	PageSize int
}

// Normalize clamps paging values to sane bounds.
func (q *HallSearchQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = 20
	}
}

// Search returns one page of halls matching the filters plus the total
// number of matches.
func (r *HallRepo) Search(ctx context.Context, q HallSearchQuery) ([]model.Hall, int64, error) {
	q.Normalize()
	where := []string{}
	args := []any{}

	if q.Name != "" {
		where = append(where, "LOWER(name) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Name)+"%")
	}
	if q.Address != "" {
		where = append(where, "LOWER(address) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Address)+"%")
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM halls WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (q.Page - 1) * q.PageSize
	dataSQL := `SELECT ` + hallColumns + ` FROM halls WHERE ` + cond + ` ORDER BY name ASC, id ASC LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), q.PageSize, offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Hall, 0, q.PageSize)
	for rows.Next() {
		h, err := scanHall(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
