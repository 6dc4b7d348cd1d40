package ports

import (
	"context"
	"errors"
	"yard-kpi-service/internal/domain"
)

// Port: storage of derived reconciliation results.
type ResultRepository interface {
	// Delete every derived row of the instance and insert the new set in one transaction.
	ReplaceResults(ctx context.Context, res domain.RunResult) error
	// Return the committed summary of an instance.
	GetSummary(ctx context.Context, key domain.InstanceKey) (*domain.ResultSummary, error)
	// Return the committed KPI records, optionally filtered by category.
	ListKPIs(ctx context.Context, key domain.InstanceKey, category domain.KPICategory) ([]domain.KPIRecord, error)
	// Return the committed per-period metrics ordered by period.
	ListPeriodMetrics(ctx context.Context, key domain.InstanceKey) ([]domain.PeriodMetric, error)
}

// Returned when no committed result exists for an instance.
var ErrNotFound = errors.New("not found")
