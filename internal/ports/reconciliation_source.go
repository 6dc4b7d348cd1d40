package ports

import (
	"context"
	"yard-kpi-service/internal/domain"
)

// Port: a boundary for reading the inputs of one reconciliation run.
type ReconciliationSource interface {
	// Return the observed movements of an instance ordered by timestamp.
	ListMovements(ctx context.Context, key domain.InstanceKey) ([]domain.MovementRecord, error)
	// Return the optimizer aggregates of an instance.
	ListModelAggregates(ctx context.Context, key domain.InstanceKey) ([]domain.ModelMovementAggregate, error)
	// Return the distance reference tables.
	LoadDistanceTables(ctx context.Context) (domain.DistanceTables, error)
	// Return the precomputed model distance summary, or nil when none was stored.
	GetModelDistanceSummary(ctx context.Context, key domain.InstanceKey) (*domain.ModelDistanceSummary, error)
	// Return block occupancy samples of the model run.
	ListOccupancy(ctx context.Context, key domain.InstanceKey) ([]domain.OccupancySample, error)
	// Return block workload samples of the model run.
	ListWorkload(ctx context.Context, key domain.InstanceKey) ([]domain.WorkloadSample, error)
}
