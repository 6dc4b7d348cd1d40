package services

import (
	"sort"
	"yard-kpi-service/internal/domain"
	"yard-kpi-service/internal/ports"
	"yard-kpi-service/internal/stats"
)

// Inputs of one KPI computation. Classification may be left empty, in which
// case the records are classified sequentially.
type AggregationInput struct {
	Records        []domain.MovementRecord
	Classification Classification
	Model          []domain.ModelMovementAggregate
	ModelDistance  *domain.ModelDistanceSummary
}

type KPIResult struct {
	KPIs    []domain.KPIRecord
	Summary domain.ResultSummary
	// Lookups is parallel to the input records; records without both
	// endpoints keep the zero value.
	Lookups []domain.DistanceLookup
	Misses  *DistanceMisses
}

type missKey struct {
	kind        domain.MovementKind
	outcome     domain.LookupOutcome
	origin      string
	destination string
}

// One group of distance lookups that produced no distance.
type DistanceMiss struct {
	Kind        domain.MovementKind
	Outcome     domain.LookupOutcome
	Origin      string
	Destination string
	Count       int
}

// DistanceMisses accumulates unresolved lookups of a single run for diagnostics.
type DistanceMisses struct {
	m map[missKey]int
}

func NewDistanceMisses() *DistanceMisses {
	return &DistanceMisses{m: map[missKey]int{}}
}

func (d *DistanceMisses) Add(kind domain.MovementKind, l domain.DistanceLookup) {
	d.m[missKey{kind: kind, outcome: l.Outcome, origin: l.Origin.Code, destination: l.Destination.Code}]++
}

func (d *DistanceMisses) Total() int {
	n := 0
	for _, v := range d.m {
		n += v
	}
	return n
}

// Top returns up to limit groups, most frequent first. limit <= 0 returns all.
func (d *DistanceMisses) Top(limit int) []DistanceMiss {
	out := make([]DistanceMiss, 0, len(d.m))
	for k, v := range d.m {
		out = append(out, DistanceMiss{
			Kind:        k.kind,
			Outcome:     k.outcome,
			Origin:      k.origin,
			Destination: k.destination,
			Count:       v,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.Origin != b.Origin {
			return a.Origin < b.Origin
		}
		if a.Destination != b.Destination {
			return a.Destination < b.Destination
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Outcome < b.Outcome
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ComputeKPIs compares the observed movement stream against the model aggregates.
// It never fails: unknown kinds land in OTHER and missing distances contribute 0
// while being counted in the summary.
func ComputeKPIs(in AggregationInput, resolver ports.DistanceResolver) KPIResult {
	cls := in.Classification
	if len(cls.Kinds) != len(in.Records) {
		cls = classifyAll(in.Records)
	}

	var sum domain.ResultSummary
	sum.RealByKind = make(map[domain.MovementKind]int, len(domain.AllMovementKinds()))
	sum.RealDistanceByKind = make(map[domain.MovementKind]int, len(domain.AllMovementKinds()))
	for _, k := range domain.AllMovementKinds() {
		sum.RealByKind[k] = cls.Count(k)
		sum.RealDistanceByKind[k] = 0
	}
	sum.RealMovementsTotal = len(in.Records)
	sum.UnrecognizedKinds = cls.UnrecognizedTotal()

	// Model side.
	var modelReceive, modelDischarge, modelTotal int
	segregations := map[string]struct{}{}
	for _, a := range in.Model {
		sum.ModelLoad += a.Load
		sum.ModelDeliver += a.Deliver
		modelReceive += a.Receive
		modelDischarge += a.Discharge
		modelTotal += a.Total()
		if a.Total() > 0 && a.Segregation != "" {
			segregations[a.Segregation] = struct{}{}
		}
	}
	sum.SegregationsActive = len(segregations)

	sum.OperationalReal = cls.Operational()
	sum.OperationalModel = sum.ModelLoad + sum.ModelDeliver
	sum.MovementReduction = sum.OperationalReal - sum.OperationalModel
	sum.MovementReductionPct = stats.Round2(stats.SafePercent(float64(sum.MovementReduction), float64(sum.OperationalReal)))

	// Distances.
	misses := NewDistanceMisses()
	lookups := make([]domain.DistanceLookup, len(in.Records))
	for i, r := range in.Records {
		if !r.HasEndpoints() {
			continue
		}
		sum.MovementsWithDistanceData++

		l := resolver.Resolve(r.Origin, r.Destination)
		lookups[i] = l

		switch l.Outcome {
		case domain.LookupFound:
			sum.ResolvedLookups++
			sum.RealDistanceTotal += l.Meters
			sum.RealDistanceByKind[cls.Kinds[i]] += l.Meters
		case domain.LookupSkippedSpecial:
			sum.SkippedSpecialLookups++
			misses.Add(cls.Kinds[i], l)
		default:
			sum.UnresolvedLookups++
			misses.Add(cls.Kinds[i], l)
		}
	}
	sum.DistanceCoveragePct = stats.Round2(stats.SafePercent(float64(sum.ResolvedLookups), float64(sum.MovementsWithDistanceData)))

	if in.ModelDistance != nil {
		sum.ModelDistanceTotal = in.ModelDistance.TotalMeters
	} else {
		// Assumes the model removes every relocation and leaves loads and deliveries unchanged.
		sum.ModelDistanceTotal = sum.RealDistanceTotal - sum.RealDistanceByKind[domain.KindRelocation]
		sum.ModelDistanceEstimated = true
	}
	sum.DistanceSaved = sum.RealDistanceTotal - sum.ModelDistanceTotal
	sum.EfficiencyGainPct = stats.Round2(stats.SafePercent(float64(sum.DistanceSaved), float64(sum.RealDistanceTotal)))

	modelByKind := map[domain.MovementKind]int{
		domain.KindDeliver:   sum.ModelDeliver,
		domain.KindLoad:      sum.ModelLoad,
		domain.KindReceive:   modelReceive,
		domain.KindDischarge: modelDischarge,
	}

	kpis := make([]domain.KPIRecord, 0, 24)

	kpis = append(kpis,
		compareRecord(domain.CategoryMovements, "total", float64(sum.RealMovementsTotal), float64(modelTotal), domain.UnitMovements),
		compareRecord(domain.CategoryMovements, "operational", float64(sum.OperationalReal), float64(sum.OperationalModel), domain.UnitMovements),
	)
	for _, k := range domain.AllMovementKinds() {
		kpis = append(kpis, compareRecord(domain.CategoryMovements, k.Metric(), float64(sum.RealByKind[k]), float64(modelByKind[k]), domain.UnitMovements))
	}
	kpis = append(kpis, gainRecord(domain.CategoryMovements, "movement_reduction", float64(sum.MovementReduction), sum.MovementReductionPct, domain.UnitMovements))

	meters, percent := domain.UnitMeters, domain.UnitPercent
	if sum.ModelDistanceEstimated {
		meters, percent = domain.UnitEstimatedMeters, domain.UnitEstimatedPercent
	}

	kpis = append(kpis, compareRecord(domain.CategoryDistance, "total", float64(sum.RealDistanceTotal), float64(sum.ModelDistanceTotal), meters))
	for _, k := range domain.AllMovementKinds() {
		observed := sum.RealDistanceByKind[k]
		if observed == 0 {
			continue
		}
		model, unit := modelDistanceForKind(k, observed, in.ModelDistance)
		kpis = append(kpis, compareRecord(domain.CategoryDistance, k.Metric(), float64(observed), float64(model), unit))
	}
	kpis = append(kpis,
		gainRecord(domain.CategoryDistance, "distance_saved", float64(sum.DistanceSaved), sum.EfficiencyGainPct, meters),
		observedRecord(domain.CategoryDistance, "coverage_pct", sum.DistanceCoveragePct, domain.UnitPercent),
	)

	realEfficiency := stats.SafePercent(float64(sum.RealMovementsTotal-sum.RealByKind[domain.KindRelocation]), float64(sum.RealMovementsTotal))
	kpis = append(kpis,
		gainRecord(domain.CategoryEfficiency, "efficiency_gain_pct", sum.EfficiencyGainPct, sum.EfficiencyGainPct, percent),
		gainRecord(domain.CategoryEfficiency, "movement_reduction_pct", sum.MovementReductionPct, sum.MovementReductionPct, domain.UnitPercent),
		percentRecord(domain.CategoryEfficiency, "operational_efficiency", realEfficiency, 100, domain.UnitPercent),
	)

	return KPIResult{KPIs: kpis, Summary: sum, Lookups: lookups, Misses: misses}
}

// modelDistanceForKind returns the model distance of one kind and whether it was measured.
// The model performs no relocations, so that value is exact in both cases.
func modelDistanceForKind(k domain.MovementKind, observed int, summary *domain.ModelDistanceSummary) (int, string) {
	switch {
	case k == domain.KindRelocation:
		return 0, domain.UnitMeters
	case summary != nil && k == domain.KindLoad:
		return summary.LoadMeters, domain.UnitMeters
	case summary != nil && k == domain.KindDeliver:
		return summary.DeliverMeters, domain.UnitMeters
	default:
		return observed, domain.UnitEstimatedMeters
	}
}

// compareRecord reports a quantity the model should reduce.
// Improvement is the reduction relative to the observed value.
func compareRecord(cat domain.KPICategory, metric string, observed, model float64, unit string) domain.KPIRecord {
	diff := observed - model
	return domain.KPIRecord{
		Category:       cat,
		Metric:         metric,
		RealValue:      stats.Round2(observed),
		ModelValue:     stats.Round2(model),
		Difference:     stats.Round2(diff),
		ImprovementPct: stats.Round2(stats.SafePercent(diff, observed)),
		Unit:           unit,
	}
}

// percentRecord reports a percentage the model should raise; improvement is in points.
func percentRecord(cat domain.KPICategory, metric string, observed, model float64, unit string) domain.KPIRecord {
	diff := model - observed
	return domain.KPIRecord{
		Category:       cat,
		Metric:         metric,
		RealValue:      stats.Round2(observed),
		ModelValue:     stats.Round2(model),
		Difference:     stats.Round2(diff),
		ImprovementPct: stats.Round2(diff),
		Unit:           unit,
	}
}

// gainRecord reports a derived gain: the observed baseline is 0 and the model value is the gain.
func gainRecord(cat domain.KPICategory, metric string, gain, improvementPct float64, unit string) domain.KPIRecord {
	return domain.KPIRecord{
		Category:       cat,
		Metric:         metric,
		ModelValue:     stats.Round2(gain),
		Difference:     stats.Round2(gain),
		ImprovementPct: stats.Round2(improvementPct),
		Unit:           unit,
	}
}

// observedRecord reports a property of the observed data only.
func observedRecord(cat domain.KPICategory, metric string, value float64, unit string) domain.KPIRecord {
	return domain.KPIRecord{
		Category:  cat,
		Metric:    metric,
		RealValue: stats.Round2(value),
		Unit:      unit,
	}
}
