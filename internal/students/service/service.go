package service

import (
	"context"
	"strings"
	"time"

	"consultancy_backend/internal/events"
	"consultancy_backend/internal/students/repository"
	"consultancy_backend/internal/students/transport"
	"consultancy_backend/platform/apperr"
	"consultancy_backend/platform/phone"
	"consultancy_backend/platform/sanitize"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

const (
	StatusNewLead               = "new_lead"
	StatusContacted             = "contacted"
	StatusQualified             = "qualified"
	StatusApplicationInProgress = "application_in_progress"
	StatusOfferReceived         = "offer_received"
	StatusVisaProcessing        = "visa_processing"
	StatusEnrolled              = "enrolled"
	StatusLost                  = "lost"
)

// Statuses lists every valid student status; registered as the
// "student_status" validation tag.
var Statuses = []string{
	StatusNewLead, StatusContacted, StatusQualified, StatusApplicationInProgress,
	StatusOfferReceived, StatusVisaProcessing, StatusEnrolled, StatusLost,
}

// StudentStore is the persistence port used by the service.
type StudentStore interface {
	Create(ctx context.Context, s repository.Student) (repository.Student, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Student, error)
	FindByEmail(ctx context.Context, email string) (repository.Student, error)
	List(ctx context.Context, params repository.ListParams) ([]repository.Student, int, error)
	Update(ctx context.Context, s repository.Student) (repository.Student, error)
	SetScoreAdjustment(ctx context.Context, id uuid.UUID, points int, notes *string) (repository.Student, error)

	CreateInquiry(ctx context.Context, inq repository.Inquiry) (repository.Inquiry, error)
	ListInquiries(ctx context.Context, studentID uuid.UUID) ([]repository.Inquiry, error)
	CreateEngagement(ctx context.Context, e repository.Engagement) (repository.Engagement, error)
	ListEngagements(ctx context.Context, studentID *uuid.UUID) ([]repository.Engagement, error)
	CreateCommunication(ctx context.Context, c repository.Communication) (repository.Communication, error)
	ListCommunications(ctx context.Context, studentID uuid.UUID) ([]repository.Communication, error)
}

// StructValidator validates import records one at a time.
type StructValidator interface {
	Struct(s interface{}) error
}

// Service provides business logic for students.
type Service struct {
	repo     StudentStore
	eventBus events.Bus
	phones   phone.Normalizer
	val      StructValidator
	now      func() time.Time
}

// New creates a new students service.
func New(repo StudentStore, eventBus events.Bus, phones phone.Normalizer, val StructValidator) *Service {
	return &Service{repo: repo, eventBus: eventBus, phones: phones, val: val, now: time.Now}
}

func (s *Service) Create(ctx context.Context, req transport.CreateStudentRequest) (transport.StudentResponse, error) {
	student, err := s.buildStudent(req)
	if err != nil {
		return transport.StudentResponse{}, err
	}

	created, err := s.repo.Create(ctx, student)
	if err != nil {
		return transport.StudentResponse{}, err
	}

	s.publishCreated(ctx, created, false)
	return mapStudentResponse(created), nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.StudentResponse, error) {
	student, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.StudentResponse{}, err
	}
	return mapStudentResponse(student), nil
}

func (s *Service) List(ctx context.Context, req transport.ListStudentsRequest) (transport.ListStudentsResponse, error) {
	page, pageSize := req.Page, req.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	params := repository.ListParams{
		Status: req.Status,
		Search: req.Search,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}
	if req.CounselorID != "" {
		counselorID, err := uuid.Parse(req.CounselorID)
		if err != nil {
			return transport.ListStudentsResponse{}, apperr.Validation("invalid counselorId")
		}
		params.CounselorID = &counselorID
	}

	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.ListStudentsResponse{}, err
	}

	resp := make([]transport.StudentResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, mapStudentResponse(item))
	}

	return transport.ListStudentsResponse{
		Items:      resp,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// Update applies the non-nil fields of req and recomputes the profile
// completeness.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateStudentRequest) (transport.StudentResponse, error) {
	student, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.StudentResponse{}, err
	}

	if err := s.applyUpdate(&student, req); err != nil {
		return transport.StudentResponse{}, err
	}
	student.ProfileCompleteness = ProfileCompleteness(student)
	student.UpdatedAt = s.now()

	updated, err := s.repo.Update(ctx, student)
	if err != nil {
		return transport.StudentResponse{}, err
	}
	return mapStudentResponse(updated), nil
}

// SetScoreAdjustment overwrites the manual adjustment and its notes. Both are
// stored as sent. There is no audit trail; the previous values are lost.
func (s *Service) SetScoreAdjustment(ctx context.Context, id uuid.UUID, actorID uuid.UUID, req transport.ScoreAdjustmentRequest) (transport.ScoreAdjustmentResponse, error) {
	updated, err := s.repo.SetScoreAdjustment(ctx, id, req.Points, req.Notes)
	if err != nil {
		return transport.ScoreAdjustmentResponse{}, err
	}

	s.eventBus.Publish(ctx, events.LeadScoreAdjusted{
		BaseEvent:  events.NewBaseEvent(),
		StudentID:  updated.ID,
		Points:     updated.LeadScoreAdjustment,
		AdjustedBy: actorID,
	})

	return transport.ScoreAdjustmentResponse{
		StudentID: updated.ID,
		Points:    updated.LeadScoreAdjustment,
		Notes:     updated.LeadScoreAdjustmentNotes,
	}, nil
}

func (s *Service) buildStudent(req transport.CreateStudentRequest) (repository.Student, error) {
	now := s.now()
	status := req.Status
	if status == "" {
		status = StatusNewLead
	}

	dob, err := parseOptionalDate(req.DateOfBirth)
	if err != nil {
		return repository.Student{}, err
	}

	student := repository.Student{
		ID:                   uuid.New(),
		FirstName:            sanitize.Text(req.FirstName),
		LastName:             sanitize.Text(req.LastName),
		Email:                optionalEmail(req.Email),
		Phone:                s.phones.NormalizePtr(&req.Phone),
		DateOfBirth:          dob,
		Nationality:          optionalText(req.Nationality),
		PreferredCountries:   cleanList(req.PreferredCountries),
		PreferredDegreeLevel: optionalText(req.PreferredDegreeLevel),
		PreferredFields:      cleanList(req.PreferredFields),
		EducationHistory:     mapEducationIn(req.EducationHistory),
		EnglishTest:          mapEnglishTestIn(req.EnglishTest),
		Passport:             mapPassportIn(req.Passport),
		Source:               optionalSource(req.Source),
		Status:               status,
		CounselorID:          req.CounselorID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	student.ProfileCompleteness = ProfileCompleteness(student)
	return student, nil
}

func (s *Service) applyUpdate(student *repository.Student, req transport.UpdateStudentRequest) error {
	if req.FirstName != nil {
		student.FirstName = sanitize.Text(*req.FirstName)
	}
	if req.LastName != nil {
		student.LastName = sanitize.Text(*req.LastName)
	}
	if req.Email != nil {
		student.Email = optionalEmail(*req.Email)
	}
	if req.Phone != nil {
		student.Phone = s.phones.NormalizePtr(req.Phone)
	}
	if req.DateOfBirth != nil {
		dob, err := parseOptionalDate(*req.DateOfBirth)
		if err != nil {
			return err
		}
		student.DateOfBirth = dob
	}
	if req.Nationality != nil {
		student.Nationality = optionalText(*req.Nationality)
	}
	if req.PreferredCountries != nil {
		student.PreferredCountries = cleanList(*req.PreferredCountries)
	}
	if req.PreferredDegreeLevel != nil {
		student.PreferredDegreeLevel = optionalText(*req.PreferredDegreeLevel)
	}
	if req.PreferredFields != nil {
		student.PreferredFields = cleanList(*req.PreferredFields)
	}
	if req.EducationHistory != nil {
		student.EducationHistory = mapEducationIn(*req.EducationHistory)
	}
	if req.EnglishTest != nil {
		student.EnglishTest = mapEnglishTestIn(req.EnglishTest)
	}
	if req.Passport != nil {
		student.Passport = mapPassportIn(req.Passport)
	}
	if req.Source != nil {
		student.Source = optionalSource(*req.Source)
	}
	if req.Status != nil {
		student.Status = *req.Status
	}
	if req.CounselorID != nil {
		student.CounselorID = req.CounselorID
	}
	return nil
}

func (s *Service) publishCreated(ctx context.Context, student repository.Student, imported bool) {
	evt := events.StudentCreated{
		BaseEvent:   events.NewBaseEvent(),
		StudentID:   student.ID,
		CounselorID: student.CounselorID,
		Imported:    imported,
	}
	if student.Email != nil {
		evt.Email = *student.Email
	}
	if student.Source != nil {
		evt.Source = *student.Source
	}
	s.eventBus.Publish(ctx, evt)
}

func parseOptionalDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, apperr.Validation("dates must use the YYYY-MM-DD format")
	}
	return &parsed, nil
}

func optionalText(value string) *string {
	return sanitize.OptionalText(&value)
}

func optionalEmail(value string) *string {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// optionalSource keeps the value as typed apart from surrounding spaces;
// referral scoring is case-exact.
func optionalSource(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if cleaned := sanitize.Text(v); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}
