package services

import (
	"sort"
	"yard-kpi-service/internal/domain"
	"yard-kpi-service/internal/stats"
)

// Load balance of the yard across blocks.
type BalanceReport struct {
	Blocks          []domain.BlockBalance
	CV              float64
	WorkloadTotal   float64
	WorkloadMax     float64
	WorkloadMin     float64
	OccupancyAvgPct float64
	OccupancyMaxPct float64
	OccupancyMinPct float64
}

// OccupancyPct returns occupied/capacity as a percentage, 0 when capacity is not positive.
func OccupancyPct(s domain.OccupancySample) float64 {
	if s.Capacity <= 0 {
		return 0
	}
	return stats.SafePercent(s.Occupied, s.Capacity)
}

// ComputeBalance aggregates occupancy and workload per block. The balance score is
// the coefficient of variation of per-block workload totals; lower is better.
func ComputeBalance(occupancy []domain.OccupancySample, workload []domain.WorkloadSample) BalanceReport {
	occByBlock := map[string][]float64{}
	all := make([]float64, 0, len(occupancy))
	for _, s := range occupancy {
		pct := OccupancyPct(s)
		occByBlock[s.Block] = append(occByBlock[s.Block], pct)
		all = append(all, pct)
	}

	loadByBlock := map[string]float64{}
	for _, s := range workload {
		loadByBlock[s.Block] += s.Workload
	}

	names := make([]string, 0, len(occByBlock)+len(loadByBlock))
	seen := map[string]struct{}{}
	for b := range occByBlock {
		seen[b] = struct{}{}
		names = append(names, b)
	}
	for b := range loadByBlock {
		if _, ok := seen[b]; !ok {
			names = append(names, b)
		}
	}
	sort.Strings(names)

	var r BalanceReport
	r.Blocks = make([]domain.BlockBalance, 0, len(names))
	totals := make([]float64, 0, len(loadByBlock))
	for _, b := range names {
		pcts := occByBlock[b]
		r.Blocks = append(r.Blocks, domain.BlockBalance{
			Block:            b,
			AvgOccupancyPct:  stats.Round2(stats.Mean(pcts)),
			MinOccupancyPct:  stats.Round2(stats.Min(pcts)),
			MaxOccupancyPct:  stats.Round2(stats.Max(pcts)),
			TotalWorkload:    stats.Round2(loadByBlock[b]),
			OccupancyPeriods: len(pcts),
		})
		if w, ok := loadByBlock[b]; ok {
			totals = append(totals, w)
		}
	}

	r.CV = stats.Round2(stats.CoefficientOfVariation(totals))
	r.WorkloadTotal = stats.Round2(stats.Sum(totals))
	r.WorkloadMax = stats.Round2(stats.Max(totals))
	r.WorkloadMin = stats.Round2(stats.Min(totals))
	r.OccupancyAvgPct = stats.Round2(stats.Mean(all))
	r.OccupancyMaxPct = stats.Round2(stats.Max(all))
	r.OccupancyMinPct = stats.Round2(stats.Min(all))

	return r
}

// Apply copies the balance scalars into a run summary.
func (r BalanceReport) Apply(s *domain.ResultSummary) {
	s.BalanceCV = r.CV
	s.WorkloadTotal = r.WorkloadTotal
	s.WorkloadMax = r.WorkloadMax
	s.WorkloadMin = r.WorkloadMin
	s.OccupancyAvgPct = r.OccupancyAvgPct
	s.OccupancyMaxPct = r.OccupancyMaxPct
	s.OccupancyMinPct = r.OccupancyMinPct
}
