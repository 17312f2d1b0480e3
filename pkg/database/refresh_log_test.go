package database

import (
	"errors"
	"strings"
	"testing"

	"election-insights/internal/constants"
)

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, constants.RefreshLogListDefault},
		{-3, constants.RefreshLogListDefault},
		{7, 7},
		{constants.RefreshLogListMax + 1, constants.RefreshLogListMax},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestErrorText(t *testing.T) {
	if v := errorText(nil); v.Valid {
		t.Errorf("nil error should be NULL, got %+v", v)
	}
	if v := errorText(errors.New("boom")); !v.Valid || v.String != "boom" {
		t.Errorf("errorText = %+v", v)
	}
}

func TestNormalizeDSN(t *testing.T) {
	got, err := normalizeDSN("user:pw@tcp(localhost:3306)/elections")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "parseTime=true") {
		t.Errorf("dsn = %q, want parseTime=true", got)
	}
	if _, err := normalizeDSN("not a dsn"); err == nil {
		t.Error("expected error for malformed DSN")
	}
}
