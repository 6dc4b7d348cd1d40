package services

import (
	"sort"
	"yard-kpi-service/internal/domain"
	"yard-kpi-service/internal/stats"
)

type periodAcc struct {
	metric    domain.PeriodMetric
	occupancy []float64
}

// ComputePeriodMetrics groups observed and model activity by period index.
// kinds and lookups are parallel to records; either may be nil. Records without
// a valid period are left out.
func ComputePeriodMetrics(
	records []domain.MovementRecord,
	kinds []domain.MovementKind,
	lookups []domain.DistanceLookup,
	model []domain.ModelMovementAggregate,
	workload []domain.WorkloadSample,
	occupancy []domain.OccupancySample,
) []domain.PeriodMetric {
	acc := map[int]*periodAcc{}
	get := func(idx int) *periodAcc {
		a, ok := acc[idx]
		if !ok {
			p := domain.PeriodFromIndex(idx)
			a = &periodAcc{metric: domain.PeriodMetric{Period: idx, Day: p.Day, Shift: p.Shift}}
			acc[idx] = a
		}
		return a
	}

	for i, r := range records {
		idx := r.Period.Index()
		if idx <= 0 {
			continue
		}
		a := get(idx)
		a.metric.RealMovements++

		var kind domain.MovementKind
		if i < len(kinds) {
			kind = kinds[i]
		} else {
			kind = ClassifyMovement(r.RawKind)
		}
		if kind == domain.KindRelocation {
			a.metric.RealRelocations++
		}
		if i < len(lookups) && lookups[i].Found() {
			a.metric.RealDistanceMeters += lookups[i].Meters
		}
	}

	for _, m := range model {
		if m.Period <= 0 {
			continue
		}
		get(m.Period).metric.ModelMovements += m.Total()
	}
	for _, w := range workload {
		if w.Period <= 0 {
			continue
		}
		get(w.Period).metric.Workload += w.Workload
	}
	for _, o := range occupancy {
		if o.Period <= 0 {
			continue
		}
		a := get(o.Period)
		a.occupancy = append(a.occupancy, OccupancyPct(o))
	}

	out := make([]domain.PeriodMetric, 0, len(acc))
	for _, a := range acc {
		a.metric.Workload = stats.Round2(a.metric.Workload)
		a.metric.AvgOccupancyPct = stats.Round2(stats.Mean(a.occupancy))
		out = append(out, a.metric)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })

	return out
}
