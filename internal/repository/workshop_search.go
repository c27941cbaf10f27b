package repository

import (
	"context"
	"strings"
)

// WorkshopSearchQuery defines filters & pagination for searching workshops.
type WorkshopSearchQuery struct {
	Name     string
	Category string
	Virtual  *bool
	Page     int
	PageSize int
}

// PublicWorkshopRow is the sanitized shape returned to the browse and
// search endpoints.  Host contact details are deliberately absent.
type PublicWorkshopRow struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	IsVirtual   bool   `json:"is_virtual"`
	Street      string `json:"street,omitempty"`
	HostID      uint64 `json:"host_id"`
	HostName    string `json:"host_name"`
}

// Search returns workshops whose name matches the query, newest first,
// along with the total match count for pagination. Matching is
// case-insensitive substring search, the same contract the original
// listing page offered.
func (r *WorkshopRepo) Search(ctx context.Context, q WorkshopSearchQuery) ([]PublicWorkshopRow, int64, error) {
	where := []string{}
	args := []any{}

	if q.Name != "" {
		where = append(where, "LOWER(w.name) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Name)+"%")
	}
	if q.Category != "" {
		where = append(where, "w.category = ?")
		args = append(args, q.Category)
	}
	if q.Virtual != nil {
		where = append(where, "w.is_virtual = ?")
		args = append(args, *q.Virtual)
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	countSQL := `SELECT COUNT(*)
		FROM workshops w
		WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := q.PageSize
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	dataSQL := `SELECT
			w.id,
			w.name,
			w.description,
			w.category,
			w.is_virtual,
			w.street,
			w.host_id,
			COALESCE(p.name, '') AS host_name
		FROM workshops w
		LEFT JOIN profiles p ON p.user_id = w.host_id
		WHERE ` + cond + `
		ORDER BY w.created_at DESC
		LIMIT ? OFFSET ?`

	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]PublicWorkshopRow, 0, limit)
	for rows.Next() {
		var d PublicWorkshopRow
		if err := rows.Scan(
			&d.ID,
			&d.Name,
			&d.Description,
			&d.Category,
			&d.IsVirtual,
			&d.Street,
			&d.HostID,
			&d.HostName,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
