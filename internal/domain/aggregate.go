package domain

// Optimizer output for one segregation, block and period.
// A run's aggregates are superseded wholesale on re-run, never patched.
type ModelMovementAggregate struct {
	Segregation   string
	Block         string
	Period        int
	Receive       int
	Load          int
	Discharge     int
	Deliver       int
	Volume        int
	OccupiedUnits int
}

// Total returns every movement the model scheduled for this row.
func (a ModelMovementAggregate) Total() int {
	return a.Receive + a.Load + a.Discharge + a.Deliver
}

// Precomputed distance totals of the optimizer's solution, when available.
type ModelDistanceSummary struct {
	TotalMeters   int
	LoadMeters    int
	DeliverMeters int
	DeliverCount  int
	LoadCount     int
}
