package dto

import "yard-kpi-service/internal/domain"

type KPIResponse struct {
	Category       string  `json:"category"`
	Metric         string  `json:"metric"`
	RealValue      float64 `json:"real_value"`
	ModelValue     float64 `json:"model_value"`
	Difference     float64 `json:"difference"`
	ImprovementPct float64 `json:"improvement_pct"`
	Unit           string  `json:"unit"`
}

type ListKPIsResponse struct {
	Instance string        `json:"instance"`
	KPIs     []KPIResponse `json:"kpis"`
}

type PeriodResponse struct {
	Period             int     `json:"period"`
	Day                int     `json:"day"`
	Shift              int     `json:"shift"`
	RealMovements      int     `json:"real_movements"`
	RealRelocations    int     `json:"real_relocations"`
	ModelMovements     int     `json:"model_movements"`
	RealDistanceMeters int     `json:"real_distance_meters"`
	Workload           float64 `json:"workload"`
	AvgOccupancyPct    float64 `json:"avg_occupancy_pct"`
}

type DashboardResponse struct {
	Summary SummaryResponse  `json:"summary"`
	KPIs    []KPIResponse    `json:"kpis"`
	Periods []PeriodResponse `json:"periods"`
}

func NewKPIResponses(kpis []domain.KPIRecord) []KPIResponse {
	out := make([]KPIResponse, 0, len(kpis))
	for _, k := range kpis {
		out = append(out, KPIResponse{
			Category:       string(k.Category),
			Metric:         k.Metric,
			RealValue:      k.RealValue,
			ModelValue:     k.ModelValue,
			Difference:     k.Difference,
			ImprovementPct: k.ImprovementPct,
			Unit:           k.Unit,
		})
	}
	return out
}

func NewDashboardResponse(d domain.Dashboard) DashboardResponse {
	periods := make([]PeriodResponse, 0, len(d.Periods))
	for _, p := range d.Periods {
		periods = append(periods, PeriodResponse{
			Period:             p.Period,
			Day:                p.Day,
			Shift:              p.Shift,
			RealMovements:      p.RealMovements,
			RealRelocations:    p.RealRelocations,
			ModelMovements:     p.ModelMovements,
			RealDistanceMeters: p.RealDistanceMeters,
			Workload:           p.Workload,
			AvgOccupancyPct:    p.AvgOccupancyPct,
		})
	}

	return DashboardResponse{
		Summary: NewSummaryResponse(d.Summary),
		KPIs:    NewKPIResponses(d.KPIs),
		Periods: periods,
	}
}
