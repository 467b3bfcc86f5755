package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Inquiry struct {
	ID                uuid.UUID
	StudentID         uuid.UUID
	CountryOfInterest *string
	DegreeLevel       *string
	FieldOfStudy      *string
	Source            *string
	Message           string
	CreatedAt         time.Time
}

type Engagement struct {
	ID             uuid.UUID
	StudentID      uuid.UUID
	EngagementType string
	Points         *int
	OccurredAt     time.Time
}

type Communication struct {
	ID          uuid.UUID
	StudentID   uuid.UUID
	Channel     string
	Direction   string
	Subject     *string
	Summary     string
	CounselorID *uuid.UUID
	OccurredAt  time.Time
}

const inquiryColumns = `id, student_id, country_of_interest, degree_level, field_of_study, source, message, created_at`

func scanInquiry(row pgx.Row) (Inquiry, error) {
	var i Inquiry
	err := row.Scan(&i.ID, &i.StudentID, &i.CountryOfInterest, &i.DegreeLevel, &i.FieldOfStudy, &i.Source, &i.Message, &i.CreatedAt)
	return i, err
}

func (r *Repository) CreateInquiry(ctx context.Context, inq Inquiry) (Inquiry, error) {
	query := `
		INSERT INTO inquiries (id, student_id, country_of_interest, degree_level, field_of_study, source, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + inquiryColumns

	created, err := scanInquiry(r.pool.QueryRow(ctx, query,
		inq.ID, inq.StudentID, inq.CountryOfInterest, inq.DegreeLevel, inq.FieldOfStudy, inq.Source, inq.Message, inq.CreatedAt))
	if err != nil {
		return Inquiry{}, fmt.Errorf("create inquiry: %w", err)
	}
	return created, nil
}

// ListInquiries returns a student's inquiries, newest first.
func (r *Repository) ListInquiries(ctx context.Context, studentID uuid.UUID) ([]Inquiry, error) {
	query := `SELECT ` + inquiryColumns + ` FROM inquiries WHERE student_id = $1 ORDER BY created_at DESC`
	return r.queryInquiries(ctx, "list inquiries", query, studentID)
}

func (r *Repository) queryInquiries(ctx context.Context, op, query string, args ...any) ([]Inquiry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	items := make([]Inquiry, 0)
	for rows.Next() {
		inq, err := scanInquiry(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		items = append(items, inq)
	}
	return items, rows.Err()
}

func (r *Repository) CreateEngagement(ctx context.Context, e Engagement) (Engagement, error) {
	query := `
		INSERT INTO lead_engagements (id, student_id, engagement_type, points, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, student_id, engagement_type, points, occurred_at`

	var created Engagement
	err := r.pool.QueryRow(ctx, query, e.ID, e.StudentID, e.EngagementType, e.Points, e.OccurredAt).
		Scan(&created.ID, &created.StudentID, &created.EngagementType, &created.Points, &created.OccurredAt)
	if err != nil {
		return Engagement{}, fmt.Errorf("create engagement: %w", err)
	}
	return created, nil
}

// ListEngagements returns engagements for one student, or for every student
// when studentID is nil.
func (r *Repository) ListEngagements(ctx context.Context, studentID *uuid.UUID) ([]Engagement, error) {
	query := `
		SELECT id, student_id, engagement_type, points, occurred_at
		FROM lead_engagements
		WHERE ($1::uuid IS NULL OR student_id = $1)
		ORDER BY occurred_at DESC`

	rows, err := r.pool.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("list engagements: %w", err)
	}
	defer rows.Close()

	items := make([]Engagement, 0)
	for rows.Next() {
		var e Engagement
		if err := rows.Scan(&e.ID, &e.StudentID, &e.EngagementType, &e.Points, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan engagement: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const communicationColumns = `id, student_id, channel, direction, subject, summary, counselor_id, occurred_at`

func scanCommunication(row pgx.Row) (Communication, error) {
	var c Communication
	err := row.Scan(&c.ID, &c.StudentID, &c.Channel, &c.Direction, &c.Subject, &c.Summary, &c.CounselorID, &c.OccurredAt)
	return c, err
}

func (r *Repository) CreateCommunication(ctx context.Context, c Communication) (Communication, error) {
	query := `
		INSERT INTO communication_logs (id, student_id, channel, direction, subject, summary, counselor_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + communicationColumns

	created, err := scanCommunication(r.pool.QueryRow(ctx, query,
		c.ID, c.StudentID, c.Channel, c.Direction, c.Subject, c.Summary, c.CounselorID, c.OccurredAt))
	if err != nil {
		return Communication{}, fmt.Errorf("create communication: %w", err)
	}
	return created, nil
}

// ListCommunications returns a student's communication log, newest first.
func (r *Repository) ListCommunications(ctx context.Context, studentID uuid.UUID) ([]Communication, error) {
	query := `SELECT ` + communicationColumns + ` FROM communication_logs WHERE student_id = $1 ORDER BY occurred_at DESC`
	return r.queryCommunications(ctx, "list communications", query, studentID)
}

// ListLatestCommunications returns the newest communication of every student
// that has at least one.
func (r *Repository) ListLatestCommunications(ctx context.Context) ([]Communication, error) {
	query := `
		SELECT DISTINCT ON (student_id) ` + communicationColumns + `
		FROM communication_logs
		ORDER BY student_id, occurred_at DESC`
	return r.queryCommunications(ctx, "list latest communications", query)
}

func (r *Repository) queryCommunications(ctx context.Context, op, query string, args ...any) ([]Communication, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	items := make([]Communication, 0)
	for rows.Next() {
		c, err := scanCommunication(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}
