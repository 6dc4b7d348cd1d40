package domain

// Occupied capacity of one block during one period.
type OccupancySample struct {
	Block    string
	Period   int
	Occupied float64
	Capacity float64
}

// Workload assigned to one block during one period.
type WorkloadSample struct {
	Block    string
	Period   int
	Workload float64
}

// Per-block occupancy and workload aggregates over the horizon.
type BlockBalance struct {
	Block            string
	AvgOccupancyPct  float64
	MinOccupancyPct  float64
	MaxOccupancyPct  float64
	TotalWorkload    float64
	OccupancyPeriods int
}
