package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"consultancy_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	applicationNotFoundMsg = "application not found"
	courseNotFoundMsg      = "course not found"
)

// Repository provides database operations for courses and applications.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new applications repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Course struct {
	ID                  uuid.UUID
	UniversityName      string
	Name                string
	Level               string
	Country             string
	ApplicationDeadline *time.Time
	CreatedAt           time.Time
}

type Milestone struct {
	Name        string     `json:"name"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Application is read joined with its course so callers get the deadline
// without a second lookup.
type Application struct {
	ID             uuid.UUID
	StudentID      uuid.UUID
	CourseID       *uuid.UUID
	UniversityName string
	Status         string
	Milestones     []Milestone
	SubmittedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	CourseName     *string
	CourseDeadline *time.Time
}

func (r *Repository) CreateCourse(ctx context.Context, c Course) (Course, error) {
	query := `
		INSERT INTO courses (id, university_name, name, level, country, application_deadline, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, university_name, name, level, country, application_deadline, created_at`

	var created Course
	err := r.pool.QueryRow(ctx, query, c.ID, c.UniversityName, c.Name, c.Level, c.Country, c.ApplicationDeadline, c.CreatedAt).
		Scan(&created.ID, &created.UniversityName, &created.Name, &created.Level, &created.Country, &created.ApplicationDeadline, &created.CreatedAt)
	if err != nil {
		return Course{}, fmt.Errorf("create course: %w", err)
	}
	return created, nil
}

func (r *Repository) GetCourse(ctx context.Context, id uuid.UUID) (Course, error) {
	query := `SELECT id, university_name, name, level, country, application_deadline, created_at FROM courses WHERE id = $1`

	var c Course
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&c.ID, &c.UniversityName, &c.Name, &c.Level, &c.Country, &c.ApplicationDeadline, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Course{}, apperr.NotFound(courseNotFoundMsg)
		}
		return Course{}, fmt.Errorf("get course: %w", err)
	}
	return c, nil
}

// ListCourses optionally filters by country (exact match).
func (r *Repository) ListCourses(ctx context.Context, country string) ([]Course, error) {
	var countryFilter *string
	if country != "" {
		countryFilter = &country
	}

	query := `
		SELECT id, university_name, name, level, country, application_deadline, created_at
		FROM courses
		WHERE ($1::text IS NULL OR country = $1)
		ORDER BY university_name, name`

	rows, err := r.pool.Query(ctx, query, countryFilter)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	items := make([]Course, 0)
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.UniversityName, &c.Name, &c.Level, &c.Country, &c.ApplicationDeadline, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const applicationSelect = `
	SELECT a.id, a.student_id, a.course_id, a.university_name, a.status, a.milestones,
	       a.submitted_at, a.created_at, a.updated_at, c.name, c.application_deadline
	FROM applications a
	LEFT JOIN courses c ON c.id = a.course_id`

func scanApplication(row pgx.Row) (Application, error) {
	var a Application
	var milestonesJSON []byte
	err := row.Scan(
		&a.ID, &a.StudentID, &a.CourseID, &a.UniversityName, &a.Status, &milestonesJSON,
		&a.SubmittedAt, &a.CreatedAt, &a.UpdatedAt, &a.CourseName, &a.CourseDeadline,
	)
	if err != nil {
		return Application{}, err
	}
	if len(milestonesJSON) > 0 {
		_ = json.Unmarshal(milestonesJSON, &a.Milestones)
	}
	if a.Milestones == nil {
		a.Milestones = []Milestone{}
	}
	return a, nil
}

func (r *Repository) Create(ctx context.Context, a Application) (Application, error) {
	milestonesJSON, err := json.Marshal(nonNilMilestones(a.Milestones))
	if err != nil {
		return Application{}, fmt.Errorf("marshal milestones: %w", err)
	}

	query := `
		INSERT INTO applications (id, student_id, course_id, university_name, status, milestones, submitted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	if _, err := r.pool.Exec(ctx, query,
		a.ID, a.StudentID, a.CourseID, a.UniversityName, a.Status, milestonesJSON, a.SubmittedAt, a.CreatedAt, a.UpdatedAt,
	); err != nil {
		return Application{}, fmt.Errorf("create application: %w", err)
	}
	return r.GetByID(ctx, a.ID)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Application, error) {
	a, err := scanApplication(r.pool.QueryRow(ctx, applicationSelect+` WHERE a.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Application{}, apperr.NotFound(applicationNotFoundMsg)
		}
		return Application{}, fmt.Errorf("get application: %w", err)
	}
	return a, nil
}

type ListParams struct {
	StudentID *uuid.UUID
	Status    string
}

// List returns applications matching the filters, oldest first (storage
// order for automation scans).
func (r *Repository) List(ctx context.Context, params ListParams) ([]Application, error) {
	var status *string
	if params.Status != "" {
		status = &params.Status
	}

	query := applicationSelect + `
		WHERE ($1::uuid IS NULL OR a.student_id = $1)
		  AND ($2::text IS NULL OR a.status = $2)
		ORDER BY a.created_at`

	rows, err := r.pool.Query(ctx, query, params.StudentID, status)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	items := make([]Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// UpdateStatus sets status, and submitted_at when provided.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, submittedAt *time.Time) (Application, error) {
	query := `
		UPDATE applications
		SET status = $2, submitted_at = COALESCE($3, submitted_at), updated_at = now()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, status, submittedAt)
	if err != nil {
		return Application{}, fmt.Errorf("update application status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Application{}, apperr.NotFound(applicationNotFoundMsg)
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) UpdateMilestones(ctx context.Context, id uuid.UUID, milestones []Milestone) (Application, error) {
	milestonesJSON, err := json.Marshal(nonNilMilestones(milestones))
	if err != nil {
		return Application{}, fmt.Errorf("marshal milestones: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `UPDATE applications SET milestones = $2, updated_at = now() WHERE id = $1`, id, milestonesJSON)
	if err != nil {
		return Application{}, fmt.Errorf("update milestones: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Application{}, apperr.NotFound(applicationNotFoundMsg)
	}
	return r.GetByID(ctx, id)
}

func nonNilMilestones(m []Milestone) []Milestone {
	if m == nil {
		return []Milestone{}
	}
	return m
}
