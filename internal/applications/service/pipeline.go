package service

const (
	StatusDraft                 = "draft"
	StatusSubmittedToUniversity = "submitted_to_university"
	StatusConditionalOffer      = "conditional_offer"
	StatusUnconditionalOffer    = "unconditional_offer"
	StatusEnrolled              = "enrolled"
	StatusRejected              = "rejected"
	StatusWithdrawn             = "withdrawn"
)

// Statuses lists every application status; registered as the
// "application_status" validation tag.
var Statuses = []string{
	StatusDraft, StatusSubmittedToUniversity, StatusConditionalOffer,
	StatusUnconditionalOffer, StatusEnrolled, StatusRejected, StatusWithdrawn,
}

// DefaultMilestones seed a new application when the caller gives none.
var DefaultMilestones = []string{
	"documents_collected",
	"application_submitted",
	"offer_received",
	"visa_applied",
	"enrolled",
}

var transitions = map[string][]string{
	StatusDraft:                 {StatusSubmittedToUniversity, StatusWithdrawn},
	StatusSubmittedToUniversity: {StatusConditionalOffer, StatusUnconditionalOffer, StatusRejected, StatusWithdrawn},
	StatusConditionalOffer:      {StatusUnconditionalOffer, StatusRejected, StatusWithdrawn},
	StatusUnconditionalOffer:    {StatusEnrolled, StatusWithdrawn},
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status string) bool {
	_, ok := transitions[status]
	return !ok
}

// CanTransition reports whether from → to follows the pipeline.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
