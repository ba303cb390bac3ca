package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "nil", err: nil, wantStatus: http.StatusOK},
		{name: "not_found_wrapped", err: fmt.Errorf("load user: %w", ErrNotFound), wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "invalid", err: Invalid("score %d out of range", 140), wantStatus: http.StatusBadRequest, wantCode: "invalid_argument"},
		{name: "explicit", err: New(http.StatusConflict, "conflict", errors.New("dup")), wantStatus: http.StatusConflict, wantCode: "conflict"},
		{name: "unknown", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, code := Status(tc.err)
			if status != tc.wantStatus || code != tc.wantCode {
				t.Fatalf("Status(%v)=(%d,%q), want (%d,%q)", tc.err, status, code, tc.wantStatus, tc.wantCode)
			}
		})
	}
}

func TestInvalidIsInvalidArgument(t *testing.T) {
	if !errors.Is(Invalid("bad"), ErrInvalidArgument) {
		t.Fatalf("Invalid should wrap ErrInvalidArgument")
	}
}
