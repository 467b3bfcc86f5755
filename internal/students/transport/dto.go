package transport

import (
	"time"

	"github.com/google/uuid"
)

type EducationEntry struct {
	Institution   string `json:"institution" validate:"required,max=200"`
	Qualification string `json:"qualification" validate:"required,max=200"`
	Grade         string `json:"grade,omitempty" validate:"omitempty,max=50"`
	YearCompleted int    `json:"yearCompleted,omitempty" validate:"omitempty,min=1950,max=2100"`
}

type EnglishTest struct {
	TestType     string  `json:"testType" validate:"required,max=50"`
	OverallScore float64 `json:"overallScore" validate:"gte=0,lte=120"`
	TakenOn      string  `json:"takenOn,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type Passport struct {
	Number         string `json:"number" validate:"required,max=50"`
	IssuingCountry string `json:"issuingCountry" validate:"required,max=100"`
	ExpiryDate     string `json:"expiryDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type CreateStudentRequest struct {
	FirstName            string           `json:"firstName" validate:"required,notblank,max=100"`
	LastName             string           `json:"lastName" validate:"max=100"`
	Email                string           `json:"email,omitempty" validate:"omitempty,email"`
	Phone                string           `json:"phone,omitempty" validate:"omitempty,max=50"`
	DateOfBirth          string           `json:"dateOfBirth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Nationality          string           `json:"nationality,omitempty" validate:"omitempty,max=100"`
	PreferredCountries   []string         `json:"preferredCountries,omitempty" validate:"omitempty,max=20,dive,max=100"`
	PreferredDegreeLevel string           `json:"preferredDegreeLevel,omitempty" validate:"omitempty,max=100"`
	PreferredFields      []string         `json:"preferredFields,omitempty" validate:"omitempty,max=20,dive,max=100"`
	EducationHistory     []EducationEntry `json:"educationHistory,omitempty" validate:"omitempty,dive"`
	EnglishTest          *EnglishTest     `json:"englishTest,omitempty" validate:"omitempty"`
	Passport             *Passport        `json:"passport,omitempty" validate:"omitempty"`
	Source               string           `json:"source,omitempty" validate:"omitempty,max=50"`
	Status               string           `json:"status,omitempty" validate:"omitempty,student_status"`
	CounselorID          *uuid.UUID       `json:"counselorId,omitempty"`
}

type UpdateStudentRequest struct {
	FirstName            *string           `json:"firstName,omitempty" validate:"omitempty,notblank,max=100"`
	LastName             *string           `json:"lastName,omitempty" validate:"omitempty,max=100"`
	Email                *string           `json:"email,omitempty" validate:"omitempty,email"`
	Phone                *string           `json:"phone,omitempty" validate:"omitempty,max=50"`
	DateOfBirth          *string           `json:"dateOfBirth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Nationality          *string           `json:"nationality,omitempty" validate:"omitempty,max=100"`
	PreferredCountries   *[]string         `json:"preferredCountries,omitempty" validate:"omitempty,max=20,dive,max=100"`
	PreferredDegreeLevel *string           `json:"preferredDegreeLevel,omitempty" validate:"omitempty,max=100"`
	PreferredFields      *[]string         `json:"preferredFields,omitempty" validate:"omitempty,max=20,dive,max=100"`
	EducationHistory     *[]EducationEntry `json:"educationHistory,omitempty" validate:"omitempty,dive"`
	EnglishTest          *EnglishTest      `json:"englishTest,omitempty" validate:"omitempty"`
	Passport             *Passport         `json:"passport,omitempty" validate:"omitempty"`
	Source               *string           `json:"source,omitempty" validate:"omitempty,max=50"`
	Status               *string           `json:"status,omitempty" validate:"omitempty,student_status"`
	CounselorID          *uuid.UUID        `json:"counselorId,omitempty"`
}

type StudentResponse struct {
	ID                       uuid.UUID        `json:"id"`
	FirstName                string           `json:"firstName"`
	LastName                 string           `json:"lastName"`
	Email                    *string          `json:"email,omitempty"`
	Phone                    *string          `json:"phone,omitempty"`
	DateOfBirth              *string          `json:"dateOfBirth,omitempty"`
	Nationality              *string          `json:"nationality,omitempty"`
	PreferredCountries       []string         `json:"preferredCountries"`
	PreferredDegreeLevel     *string          `json:"preferredDegreeLevel,omitempty"`
	PreferredFields          []string         `json:"preferredFields"`
	EducationHistory         []EducationEntry `json:"educationHistory"`
	EnglishTest              *EnglishTest     `json:"englishTest,omitempty"`
	Passport                 *Passport        `json:"passport,omitempty"`
	Source                   *string          `json:"source,omitempty"`
	Status                   string           `json:"status"`
	ProfileCompleteness      int              `json:"profileCompleteness"`
	LeadScoreAdjustment      int              `json:"leadScoreAdjustment"`
	LeadScoreAdjustmentNotes *string          `json:"leadScoreAdjustmentNotes,omitempty"`
	CounselorID              *uuid.UUID       `json:"counselorId,omitempty"`
	CreatedAt                time.Time        `json:"createdAt"`
	UpdatedAt                time.Time        `json:"updatedAt"`
}

type ListStudentsRequest struct {
	Status      string `form:"status" validate:"omitempty,student_status"`
	CounselorID string `form:"counselorId" validate:"omitempty,uuid"`
	Search      string `form:"search" validate:"omitempty,max=100"`
	Page        int    `form:"page" validate:"omitempty,min=1"`
	PageSize    int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type ListStudentsResponse struct {
	Items      []StudentResponse `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}

type ScoreAdjustmentRequest struct {
	Points int     `json:"points"`
	Notes  *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type ScoreAdjustmentResponse struct {
	StudentID uuid.UUID `json:"studentId"`
	Points    int       `json:"points"`
	Notes     *string   `json:"notes,omitempty"`
}

// ImportStudentsRequest is the admin bulk import payload. Records are
// validated one by one so a bad record never aborts the batch.
type ImportStudentsRequest struct {
	Students []CreateStudentRequest `json:"students" validate:"required,min=1,max=1000"`
}

type ImportError struct {
	Index  int    `json:"index"`
	Email  string `json:"email,omitempty"`
	Reason string `json:"reason"`
}

type ImportStudentsResponse struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

type CreateInquiryRequest struct {
	CountryOfInterest string `json:"countryOfInterest,omitempty" validate:"omitempty,max=100"`
	DegreeLevel       string `json:"degreeLevel,omitempty" validate:"omitempty,max=100"`
	FieldOfStudy      string `json:"fieldOfStudy,omitempty" validate:"omitempty,max=100"`
	Source            string `json:"source,omitempty" validate:"omitempty,max=50"`
	Message           string `json:"message,omitempty" validate:"omitempty,max=5000"`
}

type InquiryResponse struct {
	ID                uuid.UUID `json:"id"`
	StudentID         uuid.UUID `json:"studentId"`
	CountryOfInterest *string   `json:"countryOfInterest,omitempty"`
	DegreeLevel       *string   `json:"degreeLevel,omitempty"`
	FieldOfStudy      *string   `json:"fieldOfStudy,omitempty"`
	Source            *string   `json:"source,omitempty"`
	Message           string    `json:"message"`
	CreatedAt         time.Time `json:"createdAt"`
}

type CreateEngagementRequest struct {
	EngagementType string `json:"engagementType" validate:"required,max=50"`
	Points         *int   `json:"points,omitempty" validate:"omitempty,gte=-25,lte=25"`
}

type EngagementResponse struct {
	ID             uuid.UUID `json:"id"`
	StudentID      uuid.UUID `json:"studentId"`
	EngagementType string    `json:"engagementType"`
	Points         *int      `json:"points,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

type CreateCommunicationRequest struct {
	Channel    string     `json:"channel" validate:"required,oneof=email call whatsapp meeting sms"`
	Direction  string     `json:"direction" validate:"required,oneof=inbound outbound"`
	Subject    string     `json:"subject,omitempty" validate:"omitempty,max=200"`
	Summary    string     `json:"summary" validate:"max=5000"`
	OccurredAt *time.Time `json:"occurredAt,omitempty"`
}

type CommunicationResponse struct {
	ID          uuid.UUID  `json:"id"`
	StudentID   uuid.UUID  `json:"studentId"`
	Channel     string     `json:"channel"`
	Direction   string     `json:"direction"`
	Subject     *string    `json:"subject,omitempty"`
	Summary     string     `json:"summary"`
	CounselorID *uuid.UUID `json:"counselorId,omitempty"`
	OccurredAt  time.Time  `json:"occurredAt"`
}
