package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Identity shared by a real dataset, its model run and every derived record.
// Encoded as YYYYMMDD_<participation>_<K|N>, e.g. "20220103_68_K".
type InstanceKey struct {
	StartDate     time.Time
	Participation int
	Dispersion    bool
}

func (k InstanceKey) Code() string {
	suffix := "N"
	if k.Dispersion {
		suffix = "K"
	}
	return fmt.Sprintf("%s_%d_%s", k.StartDate.Format("20060102"), k.Participation, suffix)
}

func (k InstanceKey) String() string { return k.Code() }

// Year and ISO week of the instance start date.
func (k InstanceKey) Week() (year, week int) {
	return k.StartDate.ISOWeek()
}

// ParseInstanceKey parses the textual instance code exactly once at the boundary.
func ParseInstanceKey(code string) (InstanceKey, error) {
	parts := strings.Split(strings.TrimSpace(code), "_")
	if len(parts) != 3 {
		return InstanceKey{}, fmt.Errorf("parse instance key %q: expected 3 '_' separated parts", code)
	}

	start, err := time.Parse("20060102", parts[0])
	if err != nil {
		return InstanceKey{}, fmt.Errorf("parse instance key %q: start date: %w", code, err)
	}

	participation, err := strconv.Atoi(parts[1])
	if err != nil || participation < 0 || participation > 100 {
		return InstanceKey{}, fmt.Errorf("parse instance key %q: participation must be 0-100", code)
	}

	var dispersion bool
	switch strings.ToUpper(parts[2]) {
	case "K":
		dispersion = true
	case "N":
		dispersion = false
	default:
		return InstanceKey{}, fmt.Errorf("parse instance key %q: dispersion flag must be K or N", code)
	}

	return InstanceKey{StartDate: start, Participation: participation, Dispersion: dispersion}, nil
}
