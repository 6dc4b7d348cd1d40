package dto

import (
	"time"
	"yard-kpi-service/internal/domain"
)

type RunResponse struct {
	Instance  string    `json:"instance"`
	RunID     string    `json:"run_id"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

type MovementSummary struct {
	RealTotal        int            `json:"real_total"`
	RealByKind       map[string]int `json:"real_by_kind"`
	OperationalReal  int            `json:"operational_real"`
	OperationalModel int            `json:"operational_model"`
	ModelLoad        int            `json:"model_load"`
	ModelDeliver     int            `json:"model_deliver"`
	Reduction        int            `json:"reduction"`
	ReductionPct     float64        `json:"reduction_pct"`
}

type DistanceSummary struct {
	RealTotalMeters   int            `json:"real_total_meters"`
	RealByKindMeters  map[string]int `json:"real_by_kind_meters"`
	ModelTotalMeters  int            `json:"model_total_meters"`
	ModelEstimated    bool           `json:"model_estimated"`
	SavedMeters       int            `json:"saved_meters"`
	EfficiencyGainPct float64        `json:"efficiency_gain_pct"`
	CoveragePct       float64        `json:"coverage_pct"`
	WithDistanceData  int            `json:"movements_with_distance_data"`
	ResolvedLookups   int            `json:"resolved_lookups"`
	UnresolvedLookups int            `json:"unresolved_lookups"`
	SkippedSpecial    int            `json:"skipped_special_lookups"`
}

type BalanceSummary struct {
	CV                 float64 `json:"cv"`
	WorkloadTotal      float64 `json:"workload_total"`
	WorkloadMax        float64 `json:"workload_max"`
	WorkloadMin        float64 `json:"workload_min"`
	OccupancyAvgPct    float64 `json:"occupancy_avg_pct"`
	OccupancyMaxPct    float64 `json:"occupancy_max_pct"`
	OccupancyMinPct    float64 `json:"occupancy_min_pct"`
	SegregationsActive int     `json:"segregations_active"`
}

type SummaryResponse struct {
	Instance          string          `json:"instance"`
	RunID             string          `json:"run_id"`
	Status            string          `json:"status"`
	Movements         MovementSummary `json:"movements"`
	Distance          DistanceSummary `json:"distance"`
	Balance           BalanceSummary  `json:"balance"`
	UnrecognizedKinds int             `json:"unrecognized_kinds"`
	StartedAt         time.Time       `json:"started_at"`
	CompletedAt       time.Time       `json:"completed_at"`
}

func byKind(m map[domain.MovementKind]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k.Metric()] = v
	}
	return out
}

// NewSummaryResponse flattens a committed summary into its wire form.
func NewSummaryResponse(s domain.ResultSummary) SummaryResponse {
	return SummaryResponse{
		Instance: s.Instance.Code(),
		RunID:    s.RunID.String(),
		Status:   string(s.Status),
		Movements: MovementSummary{
			RealTotal:        s.RealMovementsTotal,
			RealByKind:       byKind(s.RealByKind),
			OperationalReal:  s.OperationalReal,
			OperationalModel: s.OperationalModel,
			ModelLoad:        s.ModelLoad,
			ModelDeliver:     s.ModelDeliver,
			Reduction:        s.MovementReduction,
			ReductionPct:     s.MovementReductionPct,
		},
		Distance: DistanceSummary{
			RealTotalMeters:   s.RealDistanceTotal,
			RealByKindMeters:  byKind(s.RealDistanceByKind),
			ModelTotalMeters:  s.ModelDistanceTotal,
			ModelEstimated:    s.ModelDistanceEstimated,
			SavedMeters:       s.DistanceSaved,
			EfficiencyGainPct: s.EfficiencyGainPct,
			CoveragePct:       s.DistanceCoveragePct,
			WithDistanceData:  s.MovementsWithDistanceData,
			ResolvedLookups:   s.ResolvedLookups,
			UnresolvedLookups: s.UnresolvedLookups,
			SkippedSpecial:    s.SkippedSpecialLookups,
		},
		Balance: BalanceSummary{
			CV:                 s.BalanceCV,
			WorkloadTotal:      s.WorkloadTotal,
			WorkloadMax:        s.WorkloadMax,
			WorkloadMin:        s.WorkloadMin,
			OccupancyAvgPct:    s.OccupancyAvgPct,
			OccupancyMaxPct:    s.OccupancyMaxPct,
			OccupancyMinPct:    s.OccupancyMinPct,
			SegregationsActive: s.SegregationsActive,
		},
		UnrecognizedKinds: s.UnrecognizedKinds,
		StartedAt:         s.StartedAt,
		CompletedAt:       s.CompletedAt,
	}
}
