package video

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// storeTimeout bounds every store call so a slow database surfaces as an
// error instead of hanging the request.
const storeTimeout = 5 * time.Second

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL. Annotation geometry is kept as
// jsonb next to the owning row.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, v *Video) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`insert into videos(title, description, file_path, user_id) values($1,$2,$3,$4) returning id, created_at`,
		v.Title, nullString(v.Description), v.FilePath, v.UserID,
	)
	if err := row.Scan(&v.ID, &v.CreatedAt); err != nil {
		return err
	}

	for i := range v.Lines {
		points, err := json.Marshal(v.Lines[i])
		if err != nil {
			return err
		}
		row := tx.QueryRowContext(ctx,
			`insert into video_lines(video_id, type, points) values($1,$2,$3) returning id`,
			v.ID, v.Lines[i].Type, points,
		)
		if err := row.Scan(&v.Lines[i].ID); err != nil {
			return err
		}
	}
	for i := range v.Masks {
		points, err := json.Marshal(v.Masks[i])
		if err != nil {
			return err
		}
		row := tx.QueryRowContext(ctx,
			`insert into video_masks(video_id, points) values($1,$2) returning id`,
			v.ID, points,
		)
		if err := row.Scan(&v.Masks[i].ID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *PGStore) Find(ctx context.Context, id int64) (*Video, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx,
		`select id, title, coalesce(description,''), file_path, user_id, created_at from videos where id=$1`, id)
	v, err := scanVideo(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadGeometry(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *PGStore) List(ctx context.Context) ([]*Video, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`select id, title, coalesce(description,''), file_path, user_id, created_at from videos order by created_at desc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// Empty catalog must serialize as [], same as MemoryStore.
	res := []*Video{}
	for rows.Next() {
		var v Video
		if err := rows.Scan(&v.ID, &v.Title, &v.Description, &v.FilePath, &v.UserID, &v.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, v := range res {
		if err := s.loadGeometry(ctx, v); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (s *PGStore) Delete(ctx context.Context, id int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	var filePath string
	err := s.db.QueryRowContext(ctx,
		`delete from videos where id=$1 returning file_path`, id).Scan(&filePath)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return filePath, nil
}

func (s *PGStore) loadGeometry(ctx context.Context, v *Video) error {
	lines, err := s.db.QueryContext(ctx,
		`select id, type, points from video_lines where video_id=$1 order by id`, v.ID)
	if err != nil {
		return err
	}
	defer lines.Close()

	v.Lines = []Line{}
	for lines.Next() {
		var (
			id     int64
			typ    string
			points []byte
			line   Line
		)
		if err := lines.Scan(&id, &typ, &points); err != nil {
			return err
		}
		if err := json.Unmarshal(points, &line); err != nil {
			return err
		}
		line.ID = id
		line.Type = typ
		v.Lines = append(v.Lines, line)
	}
	if err := lines.Err(); err != nil {
		return err
	}

	masks, err := s.db.QueryContext(ctx,
		`select id, points from video_masks where video_id=$1 order by id`, v.ID)
	if err != nil {
		return err
	}
	defer masks.Close()

	v.Masks = []Mask{}
	for masks.Next() {
		var (
			id     int64
			points []byte
			mask   Mask
		)
		if err := masks.Scan(&id, &points); err != nil {
			return err
		}
		if err := json.Unmarshal(points, &mask); err != nil {
			return err
		}
		mask.ID = id
		v.Masks = append(v.Masks, mask)
	}
	return masks.Err()
}

func scanVideo(row *sql.Row) (*Video, error) {
	var v Video
	if err := row.Scan(&v.ID, &v.Title, &v.Description, &v.FilePath, &v.UserID, &v.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
