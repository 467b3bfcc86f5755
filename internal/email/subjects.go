package email

const (
	subjectFollowUp        = "Following up on your study abroad plans"
	subjectTaskAssignedFmt = "[%s] New task for %s"
	subjectAccountCreated  = "Your counselor account has been created"
)
