package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestIsMatchesWrappedKinds(t *testing.T) {
	base := NewNotFound("dataset.Attendance", "county not found", nil)
	wrapped := fmt.Errorf("handler: %w", base)

	if !Is(wrapped, ErrNotFound) {
		t.Fatalf("expected wrapped error to match ErrNotFound")
	}
	if Is(wrapped, ErrValidation) {
		t.Fatalf("did not expect wrapped error to match ErrValidation")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", NewValidation("op", "bad level", nil), http.StatusBadRequest},
		{"auth", NewAuth("op", "missing key"), http.StatusUnauthorized},
		{"not found", NewNotFound("op", "no county", nil), http.StatusNotFound},
		{"external", NewExternal("op", "openai", "timeout", nil), http.StatusBadGateway},
		{"data", NewData("op", "/tmp/x.csv", "bad csv", nil), http.StatusInternalServerError},
		{"plain", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPublicMessage(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NewValidation("api.level", "invalid level", nil))
	if got := PublicMessage(err); got != "invalid level" {
		t.Errorf("PublicMessage() = %q", got)
	}
	if got := PublicMessage(fmt.Errorf("raw")); got != "internal error" {
		t.Errorf("PublicMessage(raw) = %q", got)
	}
}

func TestDataErrorIncludesPath(t *testing.T) {
	err := NewData("presence.Read", "/data/p.csv", "open failed", fmt.Errorf("no such file"))
	want := "data: presence.Read: open failed (/data/p.csv): no such file"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
