package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"consultancy_backend/internal/events"
	"consultancy_backend/internal/students/repository"
	"consultancy_backend/internal/students/transport"
	"consultancy_backend/platform/apperr"
	"consultancy_backend/platform/logger"
	"consultancy_backend/platform/phone"
	"consultancy_backend/platform/validator"

	"github.com/google/uuid"
)

type fakeStore struct {
	mu       sync.Mutex
	students map[uuid.UUID]repository.Student
	comms    []repository.Communication
	failOn   string
}

func newFakeStore() *fakeStore {
	return &fakeStore{students: make(map[uuid.UUID]repository.Student)}
}

func (f *fakeStore) Create(_ context.Context, s repository.Student) (repository.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.Email != nil && *s.Email == f.failOn {
		return repository.Student{}, apperr.Internal("insert failed")
	}
	f.students[s.ID] = s
	return s, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (repository.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.students[id]
	if !ok {
		return repository.Student{}, apperr.NotFound("student not found")
	}
	return s, nil
}

func (f *fakeStore) FindByEmail(_ context.Context, email string) (repository.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.students {
		if s.Email != nil && strings.EqualFold(*s.Email, email) {
			return s, nil
		}
	}
	return repository.Student{}, apperr.NotFound("student not found")
}

func (f *fakeStore) List(context.Context, repository.ListParams) ([]repository.Student, int, error) {
	return nil, 0, nil
}

func (f *fakeStore) Update(_ context.Context, s repository.Student) (repository.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.students[s.ID] = s
	return s, nil
}

func (f *fakeStore) SetScoreAdjustment(_ context.Context, id uuid.UUID, points int, notes *string) (repository.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.students[id]
	if !ok {
		return repository.Student{}, apperr.NotFound("student not found")
	}
	s.LeadScoreAdjustment = points
	s.LeadScoreAdjustmentNotes = notes
	f.students[id] = s
	return s, nil
}

func (f *fakeStore) CreateInquiry(_ context.Context, inq repository.Inquiry) (repository.Inquiry, error) {
	return inq, nil
}

func (f *fakeStore) ListInquiries(context.Context, uuid.UUID) ([]repository.Inquiry, error) {
	return nil, nil
}

func (f *fakeStore) CreateEngagement(_ context.Context, e repository.Engagement) (repository.Engagement, error) {
	return e, nil
}

func (f *fakeStore) ListEngagements(context.Context, *uuid.UUID) ([]repository.Engagement, error) {
	return nil, nil
}

func (f *fakeStore) CreateCommunication(_ context.Context, c repository.Communication) (repository.Communication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comms = append(f.comms, c)
	return c, nil
}

func (f *fakeStore) ListCommunications(context.Context, uuid.UUID) ([]repository.Communication, error) {
	return nil, nil
}

func newTestService(t *testing.T, store *fakeStore) (*Service, *events.InMemoryBus) {
	t.Helper()
	val := validator.New()
	if err := val.RegisterOneOf("student_status", Statuses...); err != nil {
		t.Fatalf("register status tag: %v", err)
	}
	bus := events.NewInMemoryBus(logger.Discard())
	svc := New(store, bus, phone.NewNormalizer("GB"), val)
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }
	return svc, bus
}

func TestCreateNormalizesAndComputesCompleteness(t *testing.T) {
	store := newFakeStore()
	svc, bus := newTestService(t, store)

	var created int
	bus.Subscribe(events.StudentCreated{}.EventName(), events.HandlerFunc(func(context.Context, events.Event) error {
		created++
		return nil
	}))

	resp, err := svc.Create(context.Background(), transport.CreateStudentRequest{
		FirstName:          "  Amira ",
		LastName:           "Khan",
		Email:              " Amira@Example.COM ",
		Phone:              "0121 234 5678",
		PreferredCountries: []string{"UK", " "},
		Source:             "referral",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	bus.Wait()

	if resp.Email == nil || *resp.Email != "amira@example.com" {
		t.Fatalf("expected lowercased email, got %v", resp.Email)
	}
	if resp.Phone == nil || *resp.Phone != "+441212345678" {
		t.Fatalf("expected E.164 phone, got %v", resp.Phone)
	}
	if resp.Status != StatusNewLead {
		t.Fatalf("expected default status new_lead, got %s", resp.Status)
	}
	if len(resp.PreferredCountries) != 1 {
		t.Fatalf("expected blank countries dropped, got %v", resp.PreferredCountries)
	}
	// first, last, email, phone, countries = 5 of 12
	if resp.ProfileCompleteness != 42 {
		t.Fatalf("expected completeness 42, got %d", resp.ProfileCompleteness)
	}
	if created != 1 {
		t.Fatalf("expected one StudentCreated event, got %d", created)
	}
}

func TestProfileCompletenessBounds(t *testing.T) {
	if got := ProfileCompleteness(repository.Student{}); got != 0 {
		t.Fatalf("expected 0 for empty profile, got %d", got)
	}

	v := "x"
	dob := time.Now()
	full := repository.Student{
		FirstName: "a", LastName: "b", Email: &v, Phone: &v, DateOfBirth: &dob, Nationality: &v,
		PreferredCountries: []string{"UK"}, PreferredDegreeLevel: &v, PreferredFields: []string{"Law"},
		EducationHistory: []repository.EducationEntry{{Institution: "x", Qualification: "y"}},
		EnglishTest:      &repository.EnglishTest{TestType: "IELTS", OverallScore: 7},
		Passport:         &repository.Passport{Number: "1", IssuingCountry: "PK"},
	}
	if got := ProfileCompleteness(full); got != 100 {
		t.Fatalf("expected 100 for full profile, got %d", got)
	}
}

func TestImportSkipsMissingAndDuplicateEmails(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(t, store)

	existing := "taken@example.com"
	store.students[uuid.New()] = repository.Student{ID: uuid.New(), FirstName: "Old", Email: &existing}

	result, err := svc.Import(context.Background(), transport.ImportStudentsRequest{Students: []transport.CreateStudentRequest{
		{FirstName: "A", Email: "a@example.com"},
		{FirstName: "B"},
		{FirstName: "C", Email: "TAKEN@example.com"},
		{FirstName: "D", Email: "a@example.com"},
		{FirstName: "", Email: "e@example.com"},
		{FirstName: "F", Email: "f@example.com", Status: "bogus"},
		{FirstName: "G", Email: "g@example.com"},
	}})
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if result.Imported != 2 {
		t.Fatalf("expected 2 imported, got %d", result.Imported)
	}
	if result.Skipped != 5 {
		t.Fatalf("expected 5 skipped (missing, existing, in-batch duplicate, two invalid), got %d", result.Skipped)
	}
	if result.Imported+result.Skipped != 7 {
		t.Fatalf("imported + skipped must cover the batch, got %d + %d", result.Imported, result.Skipped)
	}
	if len(result.Errors) != 5 {
		t.Fatalf("expected 5 error entries, got %d: %+v", len(result.Errors), result.Errors)
	}
	if result.Errors[0].Index != 1 || result.Errors[0].Reason != reasonMissingEmail {
		t.Fatalf("unexpected first error %+v", result.Errors[0])
	}
}

func TestImportContinuesAfterStorageFailure(t *testing.T) {
	store := newFakeStore()
	store.failOn = "boom@example.com"
	svc, _ := newTestService(t, store)

	result, err := svc.Import(context.Background(), transport.ImportStudentsRequest{Students: []transport.CreateStudentRequest{
		{FirstName: "Boom", Email: "boom@example.com"},
		{FirstName: "Fine", Email: "fine@example.com"},
	}})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Imported != 1 || result.Skipped != 1 || len(result.Errors) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestSetScoreAdjustmentOverwritesVerbatim(t *testing.T) {
	store := newFakeStore()
	svc, bus := newTestService(t, store)

	id := uuid.New()
	store.students[id] = repository.Student{ID: id, FirstName: "A", LeadScoreAdjustment: 12}

	notes := "  IELTS <7 but   strong\tSOP & refs  "
	resp, err := svc.SetScoreAdjustment(context.Background(), id, uuid.New(), transport.ScoreAdjustmentRequest{Points: -7, Notes: &notes})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	bus.Wait()

	if resp.Points != -7 || resp.Notes == nil || *resp.Notes != notes {
		t.Fatalf("unexpected response %+v", resp)
	}
	stored := store.students[id]
	if stored.LeadScoreAdjustment != -7 {
		t.Fatal("expected stored adjustment to be overwritten")
	}
	if stored.LeadScoreAdjustmentNotes == nil || *stored.LeadScoreAdjustmentNotes != notes {
		t.Fatalf("notes drifted: %q", derefString(stored.LeadScoreAdjustmentNotes))
	}
}

func TestSetScoreAdjustmentIsUnbounded(t *testing.T) {
	store := newFakeStore()
	svc, bus := newTestService(t, store)
	val := validator.New()

	id := uuid.New()
	store.students[id] = repository.Student{ID: id, FirstName: "A"}

	for _, points := range []int{150, -250} {
		req := transport.ScoreAdjustmentRequest{Points: points}
		if err := val.Struct(req); err != nil {
			t.Fatalf("points %d rejected: %v", points, err)
		}
		resp, err := svc.SetScoreAdjustment(context.Background(), id, uuid.New(), req)
		if err != nil {
			t.Fatalf("adjust %d: %v", points, err)
		}
		if resp.Points != points {
			t.Fatalf("expected %d back, got %d", points, resp.Points)
		}
		reloaded, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("reload: %v", err)
		}
		if reloaded.LeadScoreAdjustment != points {
			t.Fatalf("expected %d stored, got %d", points, reloaded.LeadScoreAdjustment)
		}
	}
	bus.Wait()
}

func derefString(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

func TestSetScoreAdjustmentUnknownStudent(t *testing.T) {
	svc, _ := newTestService(t, newFakeStore())
	_, err := svc.SetScoreAdjustment(context.Background(), uuid.New(), uuid.New(), transport.ScoreAdjustmentRequest{Points: 3})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLogCommunicationStampsCounselor(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(t, store)

	id := uuid.New()
	store.students[id] = repository.Student{ID: id, FirstName: "A"}
	counselor := uuid.New()

	resp, err := svc.LogCommunication(context.Background(), id, counselor, transport.CreateCommunicationRequest{
		Channel: "call", Direction: "outbound", Summary: "<p>Discussed offers</p>",
	})
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if resp.CounselorID == nil || *resp.CounselorID != counselor {
		t.Fatalf("expected counselor stamped, got %v", resp.CounselorID)
	}
	if resp.Summary != "Discussed offers" {
		t.Fatalf("expected sanitized summary, got %q", resp.Summary)
	}
}
