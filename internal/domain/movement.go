package domain

import "time"

// Semantic bucket of a raw movement event.
type MovementKind string

const (
	KindRelocation MovementKind = "RELOCATION"
	KindDeliver    MovementKind = "DELIVER"
	KindLoad       MovementKind = "LOAD"
	KindReceive    MovementKind = "RECEIVE"
	KindDischarge  MovementKind = "DISCHARGE"
	KindShift      MovementKind = "SHIFT"
	KindOther      MovementKind = "OTHER"
)

// AllMovementKinds returns every kind in a fixed reporting order.
func AllMovementKinds() []MovementKind {
	return []MovementKind{
		KindRelocation,
		KindDeliver,
		KindLoad,
		KindReceive,
		KindDischarge,
		KindShift,
		KindOther,
	}
}

// Lowercase metric name used in KPI records.
func (k MovementKind) Metric() string {
	switch k {
	case KindRelocation:
		return "relocation"
	case KindDeliver:
		return "deliver"
	case KindLoad:
		return "load"
	case KindReceive:
		return "receive"
	case KindDischarge:
		return "discharge"
	case KindShift:
		return "shift"
	default:
		return "other"
	}
}

// Represents one observed container movement from the operations log.
// Records are built once at the ingestion boundary and never mutated.
type MovementRecord struct {
	Timestamp   time.Time
	Origin      string
	Destination string
	RawKind     string
	Segregation string
	Category    string
	ContainerID string
	Period      Period
}

// HasEndpoints reports whether both origin and destination were recorded.
func (m MovementRecord) HasEndpoints() bool {
	return m.Origin != "" && m.Destination != ""
}
