package service

import (
	"math"
	"strings"

	"consultancy_backend/internal/students/repository"
	"consultancy_backend/platform/sanitize"
)

// profileFieldCount is the number of profile fields ProfileCompleteness
// checks.
const profileFieldCount = 12

// ProfileCompleteness returns the share of filled profile fields as a
// percentage in [0, 100].
func ProfileCompleteness(s repository.Student) int {
	filled := 0
	checks := []bool{
		strings.TrimSpace(s.FirstName) != "",
		strings.TrimSpace(s.LastName) != "",
		filledPtr(s.Email),
		filledPtr(s.Phone),
		s.DateOfBirth != nil,
		filledPtr(s.Nationality),
		len(s.PreferredCountries) > 0,
		filledPtr(s.PreferredDegreeLevel),
		len(s.PreferredFields) > 0,
		len(s.EducationHistory) > 0,
		s.EnglishTest != nil,
		s.Passport != nil,
	}
	for _, ok := range checks {
		if ok {
			filled++
		}
	}
	return int(math.Round(float64(filled) * 100 / profileFieldCount))
}

func filledPtr(v *string) bool {
	return v != nil && strings.TrimSpace(*v) != ""
}

func sanitizeField(v string) string {
	return sanitize.Text(v)
}
