package service

import (
	"context"
	"strings"

	"consultancy_backend/internal/students/repository"
	"consultancy_backend/internal/students/transport"
	"consultancy_backend/platform/sanitize"

	"github.com/google/uuid"
)

func (s *Service) AddInquiry(ctx context.Context, studentID uuid.UUID, req transport.CreateInquiryRequest) (transport.InquiryResponse, error) {
	if _, err := s.repo.GetByID(ctx, studentID); err != nil {
		return transport.InquiryResponse{}, err
	}

	created, err := s.repo.CreateInquiry(ctx, repository.Inquiry{
		ID:                uuid.New(),
		StudentID:         studentID,
		CountryOfInterest: optionalText(req.CountryOfInterest),
		DegreeLevel:       optionalText(req.DegreeLevel),
		FieldOfStudy:      optionalText(req.FieldOfStudy),
		Source:            optionalSource(req.Source),
		Message:           sanitize.Text(req.Message),
		CreatedAt:         s.now(),
	})
	if err != nil {
		return transport.InquiryResponse{}, err
	}
	return mapInquiry(created), nil
}

func (s *Service) ListInquiries(ctx context.Context, studentID uuid.UUID) ([]transport.InquiryResponse, error) {
	items, err := s.repo.ListInquiries(ctx, studentID)
	if err != nil {
		return nil, err
	}
	resp := make([]transport.InquiryResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, mapInquiry(item))
	}
	return resp, nil
}

func (s *Service) AddEngagement(ctx context.Context, studentID uuid.UUID, req transport.CreateEngagementRequest) (transport.EngagementResponse, error) {
	if _, err := s.repo.GetByID(ctx, studentID); err != nil {
		return transport.EngagementResponse{}, err
	}

	created, err := s.repo.CreateEngagement(ctx, repository.Engagement{
		ID:             uuid.New(),
		StudentID:      studentID,
		EngagementType: strings.TrimSpace(req.EngagementType),
		Points:         req.Points,
		OccurredAt:     s.now(),
	})
	if err != nil {
		return transport.EngagementResponse{}, err
	}
	return transport.EngagementResponse(created), nil
}

func (s *Service) ListEngagements(ctx context.Context, studentID uuid.UUID) ([]transport.EngagementResponse, error) {
	items, err := s.repo.ListEngagements(ctx, &studentID)
	if err != nil {
		return nil, err
	}
	resp := make([]transport.EngagementResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, transport.EngagementResponse(item))
	}
	return resp, nil
}

// LogCommunication records a contact with the student. The acting counselor
// is stored as the author.
func (s *Service) LogCommunication(ctx context.Context, studentID uuid.UUID, counselorID uuid.UUID, req transport.CreateCommunicationRequest) (transport.CommunicationResponse, error) {
	if _, err := s.repo.GetByID(ctx, studentID); err != nil {
		return transport.CommunicationResponse{}, err
	}

	occurredAt := s.now()
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	created, err := s.repo.CreateCommunication(ctx, repository.Communication{
		ID:          uuid.New(),
		StudentID:   studentID,
		Channel:     req.Channel,
		Direction:   req.Direction,
		Subject:     optionalText(req.Subject),
		Summary:     sanitize.Text(req.Summary),
		CounselorID: &counselorID,
		OccurredAt:  occurredAt,
	})
	if err != nil {
		return transport.CommunicationResponse{}, err
	}
	return transport.CommunicationResponse(created), nil
}

func (s *Service) ListCommunications(ctx context.Context, studentID uuid.UUID) ([]transport.CommunicationResponse, error) {
	items, err := s.repo.ListCommunications(ctx, studentID)
	if err != nil {
		return nil, err
	}
	resp := make([]transport.CommunicationResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, transport.CommunicationResponse(item))
	}
	return resp, nil
}

func mapInquiry(i repository.Inquiry) transport.InquiryResponse {
	return transport.InquiryResponse(i)
}
