package services

import (
	"testing"
	"yard-kpi-service/internal/domain"
)

func TestComputePeriodMetrics(t *testing.T) {
	records := []domain.MovementRecord{
		{RawKind: "YARD", Period: domain.Period{Day: 1, Shift: 1}},
		{RawKind: "LOAD", Period: domain.Period{Day: 1, Shift: 1}},
		{RawKind: "YARD", Period: domain.Period{Day: 2, Shift: 3}},
		{RawKind: "LOAD"},
	}
	lookups := []domain.DistanceLookup{
		{Outcome: domain.LookupFound, Meters: 120},
		{Outcome: domain.LookupNotFound},
		{Outcome: domain.LookupFound, Meters: 80},
		{},
	}
	model := []domain.ModelMovementAggregate{
		{Block: "C1", Period: 1, Load: 2, Deliver: 1},
		{Block: "C1", Period: 4, Receive: 5},
	}
	workload := []domain.WorkloadSample{{Block: "C1", Period: 1, Workload: 2.5}}
	occupancy := []domain.OccupancySample{
		{Block: "C1", Period: 1, Occupied: 25, Capacity: 100},
		{Block: "C2", Period: 1, Occupied: 75, Capacity: 100},
	}

	got := ComputePeriodMetrics(records, nil, lookups, model, workload, occupancy)

	if len(got) != 3 {
		t.Fatalf("periods = %d, want 3", len(got))
	}
	p1 := got[0]
	if p1.Period != 1 || p1.RealMovements != 2 || p1.RealRelocations != 1 || p1.ModelMovements != 3 {
		t.Fatalf("period 1 = %+v", p1)
	}
	if p1.RealDistanceMeters != 120 || p1.Workload != 2.5 || p1.AvgOccupancyPct != 50 {
		t.Fatalf("period 1 distance/workload/occupancy = %+v", p1)
	}
	if got[1].Period != 4 || got[1].ModelMovements != 5 || got[1].RealMovements != 0 {
		t.Fatalf("period 4 = %+v", got[1])
	}
	if got[2].Period != 6 || got[2].Day != 2 || got[2].Shift != 3 || got[2].RealRelocations != 1 {
		t.Fatalf("period 6 = %+v", got[2])
	}
}
