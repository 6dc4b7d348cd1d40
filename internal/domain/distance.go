package domain

// Source table that produced a distance edge.
type DistanceSource string

const (
	SourceBlockMatrix   DistanceSource = "block_matrix"
	SourceBlockGateSite DistanceSource = "block_gate_site"
	SourceGeneric       DistanceSource = "generic"
)

// One row of a distance reference table, as read from its source.
type DistanceRow struct {
	Origin      string
	Destination string
	Meters      int
}

// The three heterogeneous reference tables a resolver is built from.
type DistanceTables struct {
	BlockMatrix   []DistanceRow
	BlockGateSite []DistanceRow
	Generic       []DistanceRow
}

// Len returns the number of rows across all tables.
func (t DistanceTables) Len() int {
	return len(t.BlockMatrix) + len(t.BlockGateSite) + len(t.Generic)
}

// Directed edge between two canonical locations.
type DistanceEdge struct {
	Origin      LocationCode
	Destination LocationCode
	Meters      int
	Source      DistanceSource
	Mirrored    bool
}

// Outcome of a single distance lookup.
type LookupOutcome string

const (
	LookupFound          LookupOutcome = "found"
	LookupNotFound       LookupOutcome = "not_found"
	LookupSkippedSpecial LookupOutcome = "skipped_special"
)

// Result of resolving an origin/destination pair.
type DistanceLookup struct {
	Origin      LocationCode
	Destination LocationCode
	Outcome     LookupOutcome
	Meters      int
	Source      DistanceSource
	Reversed    bool
}

func (l DistanceLookup) Found() bool { return l.Outcome == LookupFound }
