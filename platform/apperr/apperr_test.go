package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
	}{
		{NotFound("missing"), http.StatusNotFound},
		{Validation("bad"), http.StatusBadRequest},
		{Conflict("running"), http.StatusConflict},
		{Forbidden("nope"), http.StatusForbidden},
		{Unauthorized("who"), http.StatusUnauthorized},
		{Internal("boom"), http.StatusInternalServerError},
		{Unavailable("llm down", errors.New("timeout")), http.StatusBadGateway},
		{New(KindUnknown, "?"), http.StatusBadRequest},
	}

	for _, tc := range cases {
		if got := tc.err.HTTPStatus(); got != tc.status {
			t.Errorf("%q: expected %d, got %d", tc.err.Message, tc.status, got)
		}
	}
}

func TestGetKindFollowsWrapChain(t *testing.T) {
	base := Conflict("automation run already in progress")
	wrapped := fmt.Errorf("trigger run: %w", base)

	if !Is(wrapped, KindConflict) {
		t.Fatalf("expected wrapped error to be a conflict, got kind %d", GetKind(wrapped))
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Fatal("expected plain error to have unknown kind")
	}
}

func TestErrorMessageIncludesOp(t *testing.T) {
	err := Validation("points out of range").WithOp("scoring.Adjust")
	if err.Error() != "scoring.Adjust: points out of range" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
