package service

import (
	"consultancy_backend/internal/students/repository"
	"consultancy_backend/internal/students/transport"
)

func mapStudentResponse(s repository.Student) transport.StudentResponse {
	resp := transport.StudentResponse{
		ID:                       s.ID,
		FirstName:                s.FirstName,
		LastName:                 s.LastName,
		Email:                    s.Email,
		Phone:                    s.Phone,
		Nationality:              s.Nationality,
		PreferredCountries:       nonNil(s.PreferredCountries),
		PreferredDegreeLevel:     s.PreferredDegreeLevel,
		PreferredFields:          nonNil(s.PreferredFields),
		EducationHistory:         make([]transport.EducationEntry, 0, len(s.EducationHistory)),
		Source:                   s.Source,
		Status:                   s.Status,
		ProfileCompleteness:      s.ProfileCompleteness,
		LeadScoreAdjustment:      s.LeadScoreAdjustment,
		LeadScoreAdjustmentNotes: s.LeadScoreAdjustmentNotes,
		CounselorID:              s.CounselorID,
		CreatedAt:                s.CreatedAt,
		UpdatedAt:                s.UpdatedAt,
	}
	if s.DateOfBirth != nil {
		dob := s.DateOfBirth.Format(dateLayout)
		resp.DateOfBirth = &dob
	}
	for _, e := range s.EducationHistory {
		resp.EducationHistory = append(resp.EducationHistory, transport.EducationEntry(e))
	}
	if s.EnglishTest != nil {
		t := transport.EnglishTest(*s.EnglishTest)
		resp.EnglishTest = &t
	}
	if s.Passport != nil {
		p := transport.Passport(*s.Passport)
		resp.Passport = &p
	}
	return resp
}

func mapEducationIn(entries []transport.EducationEntry) []repository.EducationEntry {
	out := make([]repository.EducationEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, repository.EducationEntry{
			Institution:   sanitizeField(e.Institution),
			Qualification: sanitizeField(e.Qualification),
			Grade:         sanitizeField(e.Grade),
			YearCompleted: e.YearCompleted,
		})
	}
	return out
}

func mapEnglishTestIn(t *transport.EnglishTest) *repository.EnglishTest {
	if t == nil {
		return nil
	}
	return &repository.EnglishTest{
		TestType:     sanitizeField(t.TestType),
		OverallScore: t.OverallScore,
		TakenOn:      t.TakenOn,
	}
}

func mapPassportIn(p *transport.Passport) *repository.Passport {
	if p == nil {
		return nil
	}
	return &repository.Passport{
		Number:         sanitizeField(p.Number),
		IssuingCountry: sanitizeField(p.IssuingCountry),
		ExpiryDate:     p.ExpiryDate,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
