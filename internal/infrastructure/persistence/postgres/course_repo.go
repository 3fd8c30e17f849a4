package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/natibo/natibo/internal/domain/course"
	"github.com/natibo/natibo/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE REPOSITORY IMPLEMENTATION
// A course is stored as one JSONB snapshot, so every change of a course is a
// single row write guarded by its version.
// ══════════════════════════════════════════════════════════════════════════════

// CourseRepository implements course.Repository for PostgreSQL.
type CourseRepository struct {
	conn *Connection
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(conn *Connection) *CourseRepository {
	return &CourseRepository{conn: conn}
}

const courseColumns = `id, state, version`

// Create inserts a course with version 1.
func (r *CourseRepository) Create(ctx context.Context, c *course.Course) error {
	state, err := marshalCourse(c)
	if err != nil {
		return err
	}

	_, err = r.conn.Pool().Exec(ctx, `
		INSERT INTO courses (id, title, languages, books, state, version, day_completed, advanceable, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6, $7, $8, $9)`,
		c.ID(), c.Title(), c.Snapshot().Languages, c.Books(), state,
		dayCompleted(c), c.Advanceable(), c.CreatedAt(), c.UpdatedAt(),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrCourseAlreadyExists
		}
		return fmt.Errorf("postgres: create course: %w", err)
	}

	c.MarkPersisted(1)
	return nil
}

// GetByID loads a course.
func (r *CourseRepository) GetByID(ctx context.Context, id string) (*course.Course, error) {
	row := r.conn.Pool().QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id)
	c, err := scanCourse(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrCourseNotFound
		}
		return nil, fmt.Errorf("postgres: get course %s: %w", id, err)
	}
	return c, nil
}

// Update writes the course if nobody else wrote it since it was loaded.
func (r *CourseRepository) Update(ctx context.Context, c *course.Course) error {
	state, err := marshalCourse(c)
	if err != nil {
		return err
	}

	var version int
	err = r.conn.Pool().QueryRow(ctx, `
		UPDATE courses
		SET title = $3, state = $4, version = version + 1,
		    day_completed = $5, advanceable = $6, updated_at = $7
		WHERE id = $1 AND version = $2
		RETURNING version`,
		c.ID(), c.Version(), c.Title(), state, dayCompleted(c), c.Advanceable(), c.UpdatedAt(),
	).Scan(&version)
	if err == nil {
		c.MarkPersisted(version)
		return nil
	}
	if !IsNoRows(err) {
		return fmt.Errorf("postgres: update course %s: %w", c.ID(), err)
	}

	var exists bool
	if err := r.conn.Pool().QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM courses WHERE id = $1)`, c.ID()).Scan(&exists); err != nil {
		return fmt.Errorf("postgres: update course %s: %w", c.ID(), err)
	}
	if !exists {
		return shared.ErrCourseNotFound
	}
	return shared.ErrStaleCourse
}

// Delete removes a course.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.conn.Pool().Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete course %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrCourseNotFound
	}
	return nil
}

// List returns courses ordered by creation time.
func (r *CourseRepository) List(ctx context.Context, opts course.ListOptions) ([]*course.Course, error) {
	opts = opts.Normalize()
	rows, err := r.conn.Pool().Query(ctx,
		`SELECT `+courseColumns+` FROM courses ORDER BY created_at, id LIMIT $1 OFFSET $2`,
		opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list courses: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*course.Course, error) {
		return scanCourse(row)
	})
}

// ListAdvanceable returns ids of courses waiting for their next day, oldest first.
func (r *CourseRepository) ListAdvanceable(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.conn.Pool().Query(ctx,
		`SELECT id FROM courses WHERE advanceable ORDER BY updated_at LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list advanceable courses: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func marshalCourse(c *course.Course) ([]byte, error) {
	snap := c.Snapshot()
	// Playlists are rebuilt on load.
	stripPlaylists(snap.CurrentDay)
	for i := range snap.PastDays {
		stripPlaylists(&snap.PastDays[i])
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("postgres: marshal course %s: %w", c.ID(), err)
	}
	return data, nil
}

func stripPlaylists(d *course.DaySnapshot) {
	if d == nil {
		return
	}
	for i := range d.Sets {
		d.Sets[i].Playlist = nil
	}
}

func scanCourse(row pgx.Row) (*course.Course, error) {
	var (
		id      string
		state   []byte
		version int
	)
	if err := row.Scan(&id, &state, &version); err != nil {
		return nil, err
	}

	var snap course.Snapshot
	if err := json.Unmarshal(state, &snap); err != nil {
		return nil, fmt.Errorf("decode course %s: %w", id, err)
	}
	c, err := course.Restore(snap)
	if err != nil {
		return nil, fmt.Errorf("restore course %s: %w", id, err)
	}
	c.MarkPersisted(version)
	return c, nil
}

func dayCompleted(c *course.Course) bool {
	d := c.CurrentDay()
	return d != nil && d.IsCompleted()
}
