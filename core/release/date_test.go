package release

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2024-03-15", "2024-03-15", false},
		{" 2024-03-15 ", "2024-03-15", false},
		{"2024-03-15T00:30:00+02:00", "2024-03-15", false},
		{"2024-03-15T23:59:59-08:00", "2024-03-15", false},
		{"2024-03-15T10:00:00.123Z", "2024-03-15", false},
		{"2024/03/15", "2024-03-15", false},
		{"", "", true},
		{"15/03/2024", "", true},
		{"2024-13-01", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeDate(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Errorf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeDate() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeDate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDateRoundTripIgnoresLocalZone(t *testing.T) {
	zones := []string{"UTC", "America/Los_Angeles", "Pacific/Kiritimati", "Asia/Kolkata"}
	for _, name := range zones {
		loc, err := time.LoadLocation(name)
		if err != nil {
			t.Skipf("zone %s unavailable: %v", name, err)
		}
		t.Run(name, func(t *testing.T) {
			prev := time.Local
			time.Local = loc
			defer func() { time.Local = prev }()

			stored, err := NormalizeDate("2024-03-15")
			if err != nil {
				t.Fatalf("NormalizeDate() error: %v", err)
			}
			parsed, err := ParseDate(stored)
			if err != nil {
				t.Fatalf("ParseDate() error: %v", err)
			}
			if parsed.Location() != time.UTC || parsed.Hour() != 0 {
				t.Errorf("expected UTC midnight, got %v", parsed)
			}
			if back := parsed.Format(DateLayout); back != "2024-03-15" {
				t.Errorf("round trip gave %s", back)
			}
		})
	}
}
