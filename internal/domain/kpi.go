package domain

import (
	"time"

	"github.com/google/uuid"
)

type KPICategory string

const (
	CategoryMovements  KPICategory = "movements"
	CategoryDistance   KPICategory = "distance"
	CategoryEfficiency KPICategory = "efficiency"
)

const (
	UnitMovements        = "movements"
	UnitMeters           = "meters"
	UnitEstimatedMeters  = "meters_estimated"
	UnitPercent          = "percent"
	UnitEstimatedPercent = "percent_estimated"
)

// One comparative metric between observed and model behaviour.
// The set of records for an instance is recomputed and replaced on every run.
type KPIRecord struct {
	Category       KPICategory
	Metric         string
	RealValue      float64
	ModelValue     float64
	Difference     float64
	ImprovementPct float64
	Unit           string
}

// Key identifies the record inside one run's set.
func (k KPIRecord) Key() string {
	return string(k.Category) + "/" + k.Metric
}

type RunStatus string

const (
	RunProcessing RunStatus = "processing"
	RunCompleted  RunStatus = "completed"
)

// Aggregated scalars of one reconciliation run.
type ResultSummary struct {
	Instance InstanceKey
	RunID    uuid.UUID
	Status   RunStatus

	RealMovementsTotal   int
	RealByKind           map[MovementKind]int
	OperationalReal      int
	OperationalModel     int
	ModelLoad            int
	ModelDeliver         int
	MovementReduction    int
	MovementReductionPct float64

	RealDistanceTotal      int
	RealDistanceByKind     map[MovementKind]int
	ModelDistanceTotal     int
	ModelDistanceEstimated bool
	DistanceSaved          int
	EfficiencyGainPct      float64

	BalanceCV          float64
	WorkloadTotal      float64
	WorkloadMax        float64
	WorkloadMin        float64
	OccupancyAvgPct    float64
	OccupancyMaxPct    float64
	OccupancyMinPct    float64
	SegregationsActive int

	MovementsWithDistanceData int
	ResolvedLookups           int
	UnresolvedLookups         int
	SkippedSpecialLookups     int
	UnrecognizedKinds         int
	DistanceCoveragePct       float64

	StartedAt   time.Time
	CompletedAt time.Time
}

// Aggregated comparison for one period of the horizon.
type PeriodMetric struct {
	Period             int
	Day                int
	Shift              int
	RealMovements      int
	RealRelocations    int
	ModelMovements     int
	RealDistanceMeters int
	Workload           float64
	AvgOccupancyPct    float64
}

// Everything one run produces for an instance, replaced as a unit.
type RunResult struct {
	Summary ResultSummary
	KPIs    []KPIRecord
	Periods []PeriodMetric
	Blocks  []BlockBalance
}

// Read model served to reporting clients.
type Dashboard struct {
	Summary ResultSummary
	KPIs    []KPIRecord
	Periods []PeriodMetric
}
