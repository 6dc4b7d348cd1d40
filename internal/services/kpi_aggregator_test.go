package services

import (
	"math"
	"reflect"
	"testing"
	"yard-kpi-service/internal/adapters/distance"
	"yard-kpi-service/internal/domain"
)

func repeat(raw string, n int) []domain.MovementRecord {
	out := make([]domain.MovementRecord, n)
	for i := range out {
		out[i] = domain.MovementRecord{RawKind: raw}
	}
	return out
}

func findKPI(t *testing.T, kpis []domain.KPIRecord, cat domain.KPICategory, metric string) domain.KPIRecord {
	t.Helper()
	for _, k := range kpis {
		if k.Category == cat && k.Metric == metric {
			return k
		}
	}
	t.Fatalf("kpi %s/%s not found", cat, metric)
	return domain.KPIRecord{}
}

func TestComputeKPIsMovementReduction(t *testing.T) {
	var records []domain.MovementRecord
	records = append(records, repeat("YARD", 100)...)
	records = append(records, repeat("DLVR", 200)...)
	records = append(records, repeat("LOAD", 150)...)
	records = append(records, repeat("RECV", 180)...)
	records = append(records, repeat("DSCH", 170)...)

	model := []domain.ModelMovementAggregate{
		{Segregation: "s1", Block: "C1", Period: 1, Deliver: 100, Load: 40},
		{Segregation: "s2", Block: "C2", Period: 2, Deliver: 80, Load: 100},
	}

	res := ComputeKPIs(AggregationInput{Records: records, Model: model}, distance.NewMockDistanceProvider(nil))
	s := res.Summary

	if s.OperationalReal != 450 {
		t.Fatalf("operational real = %d, want 450", s.OperationalReal)
	}
	if s.OperationalModel != 320 {
		t.Fatalf("operational model = %d, want 320", s.OperationalModel)
	}
	if s.MovementReduction != 130 {
		t.Fatalf("movement reduction = %d, want 130", s.MovementReduction)
	}
	if s.MovementReductionPct != 28.89 {
		t.Fatalf("movement reduction pct = %v, want 28.89", s.MovementReductionPct)
	}
	if s.SegregationsActive != 2 {
		t.Fatalf("segregations active = %d, want 2", s.SegregationsActive)
	}

	op := findKPI(t, res.KPIs, domain.CategoryMovements, "operational")
	if op.RealValue != 450 || op.ModelValue != 320 || op.Difference != 130 || op.ImprovementPct != 28.89 {
		t.Fatalf("operational kpi = %+v", op)
	}
	reloc := findKPI(t, res.KPIs, domain.CategoryMovements, "relocation")
	if reloc.ModelValue != 0 || reloc.ImprovementPct != 100 {
		t.Fatalf("relocation kpi = %+v, want model 0 and 100%% improvement", reloc)
	}
	pct := findKPI(t, res.KPIs, domain.CategoryEfficiency, "movement_reduction_pct")
	if pct.ModelValue != 28.89 {
		t.Fatalf("movement_reduction_pct kpi = %+v", pct)
	}
}

func distanceScenario() ([]domain.MovementRecord, *distance.MockDistanceProvider) {
	records := []domain.MovementRecord{
		{RawKind: "YARD", Origin: "C1", Destination: "C2"},
		{RawKind: "YARD", Origin: "C2", Destination: "C3"},
		{RawKind: "LOAD", Origin: "C3", Destination: "SITIO-SUR"},
		{RawKind: "DLVR", Origin: "C1", Destination: "GATE-1"},
	}
	provider := distance.NewMockDistanceProvider([]distance.MockPair{
		{From: "C1", To: "C2", Meters: 2000},
		{From: "C2", To: "C3", Meters: 3000},
		{From: "C3", To: "SITIO-SUR", Meters: 3000},
		{From: "C1", To: "GATE-1", Meters: 2000},
	})
	return records, provider
}

func TestComputeKPIsEstimatedModelDistance(t *testing.T) {
	records, provider := distanceScenario()

	res := ComputeKPIs(AggregationInput{Records: records}, provider)
	s := res.Summary

	if s.RealDistanceTotal != 10000 {
		t.Fatalf("real distance = %d, want 10000", s.RealDistanceTotal)
	}
	if !s.ModelDistanceEstimated {
		t.Fatalf("model distance should be flagged as estimated")
	}
	if s.ModelDistanceTotal != 5000 {
		t.Fatalf("model distance = %d, want 5000", s.ModelDistanceTotal)
	}
	if s.DistanceSaved != 5000 {
		t.Fatalf("distance saved = %d, want 5000", s.DistanceSaved)
	}
	if s.EfficiencyGainPct != 50 {
		t.Fatalf("efficiency gain = %v, want 50", s.EfficiencyGainPct)
	}
	if s.DistanceCoveragePct != 100 {
		t.Fatalf("coverage = %v, want 100", s.DistanceCoveragePct)
	}

	total := findKPI(t, res.KPIs, domain.CategoryDistance, "total")
	if total.Unit != domain.UnitEstimatedMeters {
		t.Fatalf("distance total unit = %q, want %q", total.Unit, domain.UnitEstimatedMeters)
	}
	gain := findKPI(t, res.KPIs, domain.CategoryEfficiency, "efficiency_gain_pct")
	if gain.Unit != domain.UnitEstimatedPercent || gain.ModelValue != 50 {
		t.Fatalf("efficiency gain kpi = %+v", gain)
	}
	reloc := findKPI(t, res.KPIs, domain.CategoryDistance, "relocation")
	if reloc.RealValue != 5000 || reloc.ModelValue != 0 || reloc.Unit != domain.UnitMeters {
		t.Fatalf("relocation distance kpi = %+v", reloc)
	}
}

func TestComputeKPIsMeasuredModelDistance(t *testing.T) {
	records, provider := distanceScenario()

	res := ComputeKPIs(AggregationInput{
		Records:       records,
		ModelDistance: &domain.ModelDistanceSummary{TotalMeters: 7000, LoadMeters: 4000, DeliverMeters: 3000},
	}, provider)
	s := res.Summary

	if s.ModelDistanceEstimated {
		t.Fatalf("model distance should not be estimated when a summary is supplied")
	}
	if s.DistanceSaved != 3000 || s.EfficiencyGainPct != 30 {
		t.Fatalf("saved = %d gain = %v, want 3000 and 30", s.DistanceSaved, s.EfficiencyGainPct)
	}
	load := findKPI(t, res.KPIs, domain.CategoryDistance, "load")
	if load.ModelValue != 4000 || load.Unit != domain.UnitMeters {
		t.Fatalf("load distance kpi = %+v", load)
	}
	total := findKPI(t, res.KPIs, domain.CategoryDistance, "total")
	if total.Unit != domain.UnitMeters {
		t.Fatalf("distance total unit = %q, want meters", total.Unit)
	}
}

func TestComputeKPIsSpecialEndpointIsCounted(t *testing.T) {
	records := []domain.MovementRecord{
		{RawKind: "LOAD", Origin: "VESSEL", Destination: "C1"},
		{RawKind: "LOAD", Origin: "C1", Destination: "C9"},
		{RawKind: "YARD", Origin: "C1", Destination: "C2"},
		{RawKind: "RECV"},
	}
	provider := distance.NewMockDistanceProvider([]distance.MockPair{
		{From: "VESSEL", To: "C1", Meters: 900},
		{From: "C1", To: "C2", Meters: 100},
	}, "VESSEL")

	res := ComputeKPIs(AggregationInput{Records: records}, provider)
	s := res.Summary

	if s.RealDistanceTotal != 100 {
		t.Fatalf("real distance = %d, want 100", s.RealDistanceTotal)
	}
	if s.SkippedSpecialLookups != 1 || s.UnresolvedLookups != 1 || s.ResolvedLookups != 1 {
		t.Fatalf("lookups resolved/unresolved/skipped = %d/%d/%d, want 1/1/1",
			s.ResolvedLookups, s.UnresolvedLookups, s.SkippedSpecialLookups)
	}
	if s.MovementsWithDistanceData != 3 {
		t.Fatalf("movements with distance data = %d, want 3", s.MovementsWithDistanceData)
	}
	if s.DistanceCoveragePct != 33.33 {
		t.Fatalf("coverage = %v, want 33.33", s.DistanceCoveragePct)
	}
	if res.Misses.Total() != 2 {
		t.Fatalf("misses = %d, want 2", res.Misses.Total())
	}
	top := res.Misses.Top(1)
	if len(top) != 1 {
		t.Fatalf("top misses = %d, want 1", len(top))
	}
	if provider.Calls() != 3 {
		t.Fatalf("resolver calls = %d, want 3", provider.Calls())
	}
}

func TestComputeKPIsEmptyInputHasNoNaN(t *testing.T) {
	res := ComputeKPIs(AggregationInput{}, distance.NewMockDistanceProvider(nil))

	for _, k := range res.KPIs {
		for _, v := range []float64{k.RealValue, k.ModelValue, k.Difference, k.ImprovementPct} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("kpi %s has non-finite value %+v", k.Key(), k)
			}
		}
	}
	s := res.Summary
	if s.MovementReductionPct != 0 || s.EfficiencyGainPct != 0 || s.DistanceCoveragePct != 0 {
		t.Fatalf("percentages on empty input = %v/%v/%v, want 0", s.MovementReductionPct, s.EfficiencyGainPct, s.DistanceCoveragePct)
	}
}

func TestComputeKPIsIsIdempotent(t *testing.T) {
	records, provider := distanceScenario()
	in := AggregationInput{
		Records: records,
		Model:   []domain.ModelMovementAggregate{{Segregation: "s1", Block: "C1", Period: 1, Load: 1, Deliver: 1}},
	}

	a := ComputeKPIs(in, provider)
	b := ComputeKPIs(in, provider)
	if !reflect.DeepEqual(a.KPIs, b.KPIs) {
		t.Fatalf("kpis differ between identical runs:\n%+v\n%+v", a.KPIs, b.KPIs)
	}
}

func TestComputeKPIsRecomputesIndependently(t *testing.T) {
	records, provider := distanceScenario()
	first := ComputeKPIs(AggregationInput{Records: records}, provider)

	changed := distance.NewMockDistanceProvider([]distance.MockPair{
		{From: "C1", To: "C2", Meters: 2500},
		{From: "C2", To: "C3", Meters: 3000},
		{From: "C3", To: "SITIO-SUR", Meters: 3000},
		{From: "C1", To: "GATE-1", Meters: 2000},
	})
	second := ComputeKPIs(AggregationInput{Records: records}, changed)

	for _, k := range first.KPIs {
		if k.Category != domain.CategoryMovements {
			continue
		}
		if got := findKPI(t, second.KPIs, k.Category, k.Metric); got != k {
			t.Fatalf("unrelated kpi %s changed: %+v -> %+v", k.Key(), k, got)
		}
	}
	if findKPI(t, second.KPIs, domain.CategoryDistance, "relocation").RealValue != 5500 {
		t.Fatalf("relocation distance was not recomputed")
	}
}
