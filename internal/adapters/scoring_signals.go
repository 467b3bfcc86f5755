package adapters

import (
	"context"

	appsrepo "consultancy_backend/internal/applications/repository"
	"consultancy_backend/internal/scoring/engine"
	studentsrepo "consultancy_backend/internal/students/repository"

	"github.com/google/uuid"
)

// ScoringSignalLoader assembles scoring input from the students and
// applications repositories.
type ScoringSignalLoader struct {
	students     *studentsrepo.Repository
	applications *appsrepo.Repository
}

func NewScoringSignalLoader(students *studentsrepo.Repository, applications *appsrepo.Repository) *ScoringSignalLoader {
	return &ScoringSignalLoader{students: students, applications: applications}
}

func (l *ScoringSignalLoader) StudentIDs(ctx context.Context) ([]uuid.UUID, error) {
	all, err := l.students.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(all))
	for _, s := range all {
		ids = append(ids, s.ID)
	}
	return ids, nil
}

func (l *ScoringSignalLoader) Load(ctx context.Context, studentID uuid.UUID) (engine.Input, error) {
	student, err := l.students.GetByID(ctx, studentID)
	if err != nil {
		return engine.Input{}, err
	}
	inquiries, err := l.students.ListInquiries(ctx, studentID)
	if err != nil {
		return engine.Input{}, err
	}
	engagements, err := l.students.ListEngagements(ctx, &studentID)
	if err != nil {
		return engine.Input{}, err
	}
	comms, err := l.students.ListCommunications(ctx, studentID)
	if err != nil {
		return engine.Input{}, err
	}
	apps, err := l.applications.List(ctx, appsrepo.ListParams{StudentID: &studentID})
	if err != nil {
		return engine.Input{}, err
	}

	in := engine.Input{Student: ScoringStudent(student)}
	if len(inquiries) > 0 {
		in.Inquiry = ScoringInquiry(inquiries[0])
	}
	for _, e := range engagements {
		in.Engagements = append(in.Engagements, engine.Engagement{Points: e.Points, OccurredAt: e.OccurredAt})
	}
	for _, a := range apps {
		in.Applications = append(in.Applications, engine.Application{Status: a.Status})
	}
	if len(comms) > 0 {
		last := comms[0].OccurredAt
		in.LastContactAt = &last
	}
	return in, nil
}

// ScoringStudent maps a stored profile to the engine's view of it.
func ScoringStudent(s studentsrepo.Student) engine.Student {
	return engine.Student{
		Email:                deref(s.Email),
		Phone:                deref(s.Phone),
		PreferredCountries:   s.PreferredCountries,
		PreferredDegreeLevel: deref(s.PreferredDegreeLevel),
		PreferredFields:      s.PreferredFields,
		Source:               deref(s.Source),
		Adjustment:           s.LeadScoreAdjustment,
	}
}

func ScoringInquiry(inq studentsrepo.Inquiry) *engine.Inquiry {
	return &engine.Inquiry{
		CountryOfInterest: deref(inq.CountryOfInterest),
		DegreeLevel:       deref(inq.DegreeLevel),
		FieldOfStudy:      deref(inq.FieldOfStudy),
		Source:            deref(inq.Source),
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
