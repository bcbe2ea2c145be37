package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"plain error", cause, Internal},
		{"typed", New(NotFound, "listing not found"), NotFound},
		{"wrapped typed", fmt.Errorf("create deal: %w", New(FailedPrecondition, "self")), FailedPrecondition},
		{"typed with cause", Wrap(Internal, "unexpected", cause), Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrap_KeepsCauseButNotMessage(t *testing.T) {
	cause := errors.New("pq: relation does not exist")
	err := Wrap(Internal, "An unexpected error occurred while creating the deal.", cause)

	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable via errors.Is")
	}
	if err.Error() != "An unexpected error occurred while creating the deal." {
		t.Errorf("message leaked cause: %q", err.Error())
	}
}

func TestKind_Status(t *testing.T) {
	tests := map[Kind]string{
		Unauthenticated:    "UNAUTHENTICATED",
		InvalidArgument:    "INVALID_ARGUMENT",
		NotFound:           "NOT_FOUND",
		FailedPrecondition: "FAILED_PRECONDITION",
		Internal:           "INTERNAL",
		Kind("bogus"):      "INTERNAL",
	}
	for kind, want := range tests {
		if got := kind.Status(); got != want {
			t.Errorf("%q.Status() = %q, want %q", kind, got, want)
		}
	}
}
