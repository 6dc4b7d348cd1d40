package domain

import (
	"testing"
	"time"
)

func TestParseInstanceKey(t *testing.T) {
	key, err := ParseInstanceKey("20220103_68_K")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !key.StartDate.Equal(time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start date = %v", key.StartDate)
	}
	if key.Participation != 68 {
		t.Errorf("participation = %d, want 68", key.Participation)
	}
	if !key.Dispersion {
		t.Errorf("dispersion = false, want true")
	}
	if key.Code() != "20220103_68_K" {
		t.Errorf("Code() = %q", key.Code())
	}

	year, week := key.Week()
	if year != 2022 || week != 1 {
		t.Errorf("Week() = %d/%d, want 2022/1", year, week)
	}
}

func TestParseInstanceKeyRejectsMalformed(t *testing.T) {
	for _, code := range []string{"", "20220103_68", "2022-01-03_68_K", "20220103_x_K", "20220103_120_K", "20220103_68_Z"} {
		if _, err := ParseInstanceKey(code); err == nil {
			t.Errorf("ParseInstanceKey(%q) expected error", code)
		}
	}
}
