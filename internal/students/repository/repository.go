package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"consultancy_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	studentNotFoundMsg    = "student not found"
	studentDuplicateEmail = "a student with this email already exists"
)

// Repository provides database operations for students and their
// append-only activity (inquiries, engagements, communications).
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new students repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type EducationEntry struct {
	Institution   string `json:"institution"`
	Qualification string `json:"qualification"`
	Grade         string `json:"grade,omitempty"`
	YearCompleted int    `json:"yearCompleted,omitempty"`
}

type EnglishTest struct {
	TestType     string  `json:"testType"`
	OverallScore float64 `json:"overallScore"`
	TakenOn      string  `json:"takenOn,omitempty"`
}

type Passport struct {
	Number         string `json:"number"`
	IssuingCountry string `json:"issuingCountry"`
	ExpiryDate     string `json:"expiryDate,omitempty"`
}

type Student struct {
	ID                       uuid.UUID
	FirstName                string
	LastName                 string
	Email                    *string
	Phone                    *string
	DateOfBirth              *time.Time
	Nationality              *string
	PreferredCountries       []string
	PreferredDegreeLevel     *string
	PreferredFields          []string
	EducationHistory         []EducationEntry
	EnglishTest              *EnglishTest
	Passport                 *Passport
	Source                   *string
	Status                   string
	ProfileCompleteness      int
	LeadScoreAdjustment      int
	LeadScoreAdjustmentNotes *string
	CounselorID              *uuid.UUID
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// FullName joins first and last name.
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

type ListParams struct {
	Status      string
	CounselorID *uuid.UUID
	Search      string
	Limit       int
	Offset      int
}

const studentColumns = `
	id, first_name, last_name, email, phone, date_of_birth, nationality,
	preferred_countries, preferred_degree_level, preferred_fields,
	education_history, english_test, passport, source, status,
	profile_completeness, lead_score_adjustment, lead_score_adjustment_notes,
	counselor_id, created_at, updated_at`

func scanStudent(row pgx.Row) (Student, error) {
	var s Student
	var educationJSON, englishJSON, passportJSON []byte
	err := row.Scan(
		&s.ID, &s.FirstName, &s.LastName, &s.Email, &s.Phone, &s.DateOfBirth, &s.Nationality,
		&s.PreferredCountries, &s.PreferredDegreeLevel, &s.PreferredFields,
		&educationJSON, &englishJSON, &passportJSON, &s.Source, &s.Status,
		&s.ProfileCompleteness, &s.LeadScoreAdjustment, &s.LeadScoreAdjustmentNotes,
		&s.CounselorID, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return Student{}, err
	}
	// Malformed nested documents degrade to "absent" rather than failing the read.
	_ = json.Unmarshal(educationJSON, &s.EducationHistory)
	if len(englishJSON) > 0 && string(englishJSON) != "null" {
		var t EnglishTest
		if json.Unmarshal(englishJSON, &t) == nil {
			s.EnglishTest = &t
		}
	}
	if len(passportJSON) > 0 && string(passportJSON) != "null" {
		var p Passport
		if json.Unmarshal(passportJSON, &p) == nil {
			s.Passport = &p
		}
	}
	return s, nil
}

func encodeNested(s Student) (education, english, passport []byte) {
	education, _ = json.Marshal(nonNilEducation(s.EducationHistory))
	if s.EnglishTest != nil {
		english, _ = json.Marshal(s.EnglishTest)
	}
	if s.Passport != nil {
		passport, _ = json.Marshal(s.Passport)
	}
	return education, english, passport
}

func (r *Repository) Create(ctx context.Context, s Student) (Student, error) {
	education, english, passport := encodeNested(s)
	query := `
		INSERT INTO students (
			id, first_name, last_name, email, phone, date_of_birth, nationality,
			preferred_countries, preferred_degree_level, preferred_fields,
			education_history, english_test, passport, source, status,
			profile_completeness, lead_score_adjustment, lead_score_adjustment_notes,
			counselor_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10,
			$11, $12, $13, $14, $15,
			$16, $17, $18,
			$19, $20, $21
		)
		RETURNING ` + studentColumns

	created, err := scanStudent(r.pool.QueryRow(ctx, query,
		s.ID, s.FirstName, s.LastName, s.Email, s.Phone, s.DateOfBirth, s.Nationality,
		nonNil(s.PreferredCountries), s.PreferredDegreeLevel, nonNil(s.PreferredFields),
		education, english, passport, s.Source, s.Status,
		s.ProfileCompleteness, s.LeadScoreAdjustment, s.LeadScoreAdjustmentNotes,
		s.CounselorID, s.CreatedAt, s.UpdatedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return Student{}, apperr.Conflict(studentDuplicateEmail)
		}
		return Student{}, fmt.Errorf("create student: %w", err)
	}
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	s, err := scanStudent(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Student{}, apperr.NotFound(studentNotFoundMsg)
	}
	if err != nil {
		return Student{}, fmt.Errorf("get student: %w", err)
	}
	return s, nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE lower(email) = lower($1)`
	s, err := scanStudent(r.pool.QueryRow(ctx, query, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return Student{}, apperr.NotFound(studentNotFoundMsg)
	}
	if err != nil {
		return Student{}, fmt.Errorf("find student by email: %w", err)
	}
	return s, nil
}

// List filters by exact-match status/counselor and an optional name/email
// search. Returns the page and the total match count.
func (r *Repository) List(ctx context.Context, params ListParams) ([]Student, int, error) {
	var search *string
	if trimmed := strings.TrimSpace(params.Search); trimmed != "" {
		pattern := "%" + trimmed + "%"
		search = &pattern
	}
	var status *string
	if params.Status != "" {
		status = &params.Status
	}

	where := `
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::uuid IS NULL OR counselor_id = $2)
		  AND ($3::text IS NULL OR first_name ILIKE $3 OR last_name ILIKE $3 OR email ILIKE $3)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM students`+where, status, params.CounselorID, search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}

	query := `SELECT ` + studentColumns + ` FROM students` + where + `
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`

	rows, err := r.pool.Query(ctx, query, status, params.CounselorID, search, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	items, err := collectStudents(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListAll returns every student in storage order for batch jobs.
func (r *Repository) ListAll(ctx context.Context) ([]Student, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+studentColumns+` FROM students`)
	if err != nil {
		return nil, fmt.Errorf("list all students: %w", err)
	}
	defer rows.Close()
	return collectStudents(rows)
}

func collectStudents(rows pgx.Rows) ([]Student, error) {
	items := make([]Student, 0)
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// Update replaces the whole profile (last write wins).
func (r *Repository) Update(ctx context.Context, s Student) (Student, error) {
	education, english, passport := encodeNested(s)
	query := `
		UPDATE students SET
			first_name = $2, last_name = $3, email = $4, phone = $5, date_of_birth = $6,
			nationality = $7, preferred_countries = $8, preferred_degree_level = $9,
			preferred_fields = $10, education_history = $11, english_test = $12,
			passport = $13, source = $14, status = $15, profile_completeness = $16,
			counselor_id = $17, updated_at = $18
		WHERE id = $1
		RETURNING ` + studentColumns

	updated, err := scanStudent(r.pool.QueryRow(ctx, query,
		s.ID, s.FirstName, s.LastName, s.Email, s.Phone, s.DateOfBirth,
		s.Nationality, nonNil(s.PreferredCountries), s.PreferredDegreeLevel,
		nonNil(s.PreferredFields), education, english,
		passport, s.Source, s.Status, s.ProfileCompleteness,
		s.CounselorID, s.UpdatedAt,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Student{}, apperr.NotFound(studentNotFoundMsg)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return Student{}, apperr.Conflict(studentDuplicateEmail)
		}
		return Student{}, fmt.Errorf("update student: %w", err)
	}
	return updated, nil
}

// SetScoreAdjustment overwrites the manual adjustment and its notes.
func (r *Repository) SetScoreAdjustment(ctx context.Context, id uuid.UUID, points int, notes *string) (Student, error) {
	query := `
		UPDATE students
		SET lead_score_adjustment = $2, lead_score_adjustment_notes = $3, updated_at = now()
		WHERE id = $1
		RETURNING ` + studentColumns

	updated, err := scanStudent(r.pool.QueryRow(ctx, query, id, points, notes))
	if errors.Is(err, pgx.ErrNoRows) {
		return Student{}, apperr.NotFound(studentNotFoundMsg)
	}
	if err != nil {
		return Student{}, fmt.Errorf("set score adjustment: %w", err)
	}
	return updated, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func nonNilEducation(values []EducationEntry) []EducationEntry {
	if values == nil {
		return []EducationEntry{}
	}
	return values
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
