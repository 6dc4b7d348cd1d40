package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"yard-kpi-service/internal/domain"
	"yard-kpi-service/internal/platform/db"
	"yard-kpi-service/internal/platform/obs"
)

// SQL-backed implementation of the ReconciliationSource port.
type SQLDatasetSource struct {
	*SQLDistanceReference
}

func NewSQLDatasetSource(sqlDB *sql.DB, driver string) *SQLDatasetSource {
	return &SQLDatasetSource{SQLDistanceReference: NewSQLDistanceReference(sqlDB, driver)}
}

func (s *SQLDatasetSource) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	if s.DB == nil {
		return nil, errors.New("dataset source: DB is nil")
	}
	return s.DB.QueryContext(ctx, db.Rebind(s.Driver, q), args...)
}

// Return all movements of an instance in recorded order.
func (s *SQLDatasetSource) ListMovements(ctx context.Context, key domain.InstanceKey) (_ []domain.MovementRecord, err error) {
	defer obs.Time(ctx, "dataset.ListMovements")(&err)

	rows, err := s.query(ctx, `
	SELECT
		occurred_at,
		origin,
		destination,
		raw_kind,
		segregation,
		category,
		container_id,
		period_day,
		period_shift
	FROM movements
	WHERE instance = ?
	ORDER BY seq;
	`, key.Code())
	if err != nil {
		return nil, fmt.Errorf("list movements: query movements table: %w", err)
	}
	defer rows.Close()

	out := make([]domain.MovementRecord, 0, 1024)
	for rows.Next() {
		var m domain.MovementRecord
		var ts string
		if err := rows.Scan(&ts, &m.Origin, &m.Destination, &m.RawKind, &m.Segregation, &m.Category, &m.ContainerID, &m.Period.Day, &m.Period.Shift); err != nil {
			return nil, fmt.Errorf("list movements: scan row: %w", err)
		}
		if m.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("list movements: parse timestamp %q: %w", ts, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list movements: row iteration: %w", err)
	}

	return out, nil
}

// Return the model aggregates of an instance.
func (s *SQLDatasetSource) ListModelAggregates(ctx context.Context, key domain.InstanceKey) (_ []domain.ModelMovementAggregate, err error) {
	defer obs.Time(ctx, "dataset.ListModelAggregates")(&err)

	rows, err := s.query(ctx, `
	SELECT
		segregation,
		block,
		period,
		receive_count,
		load_count,
		discharge_count,
		deliver_count,
		volume,
		occupied_units
	FROM model_aggregates
	WHERE instance = ?
	ORDER BY period, segregation, block;
	`, key.Code())
	if err != nil {
		return nil, fmt.Errorf("list model aggregates: query model_aggregates table: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ModelMovementAggregate, 0, 256)
	for rows.Next() {
		var a domain.ModelMovementAggregate
		if err := rows.Scan(&a.Segregation, &a.Block, &a.Period, &a.Receive, &a.Load, &a.Discharge, &a.Deliver, &a.Volume, &a.OccupiedUnits); err != nil {
			return nil, fmt.Errorf("list model aggregates: scan row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list model aggregates: row iteration: %w", err)
	}

	return out, nil
}

// Return the stored model distance summary, or nil when the model run has none.
func (s *SQLDatasetSource) GetModelDistanceSummary(ctx context.Context, key domain.InstanceKey) (_ *domain.ModelDistanceSummary, err error) {
	defer obs.Time(ctx, "dataset.GetModelDistanceSummary")(&err)

	if s.DB == nil {
		return nil, errors.New("dataset source: DB is nil")
	}

	var m domain.ModelDistanceSummary
	err = s.DB.QueryRowContext(ctx, db.Rebind(s.Driver, `
	SELECT total_meters, load_meters, deliver_meters, deliver_count, load_count
	FROM model_distance_summaries
	WHERE instance = ?;
	`), key.Code()).Scan(&m.TotalMeters, &m.LoadMeters, &m.DeliverMeters, &m.DeliverCount, &m.LoadCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get model distance summary: %w", err)
	}

	return &m, nil
}

func (s *SQLDatasetSource) ListOccupancy(ctx context.Context, key domain.InstanceKey) (_ []domain.OccupancySample, err error) {
	defer obs.Time(ctx, "dataset.ListOccupancy")(&err)

	rows, err := s.query(ctx, `
	SELECT block, period, occupied, capacity
	FROM occupancy_samples
	WHERE instance = ?
	ORDER BY period, block;
	`, key.Code())
	if err != nil {
		return nil, fmt.Errorf("list occupancy: query occupancy_samples table: %w", err)
	}
	defer rows.Close()

	var out []domain.OccupancySample
	for rows.Next() {
		var o domain.OccupancySample
		if err := rows.Scan(&o.Block, &o.Period, &o.Occupied, &o.Capacity); err != nil {
			return nil, fmt.Errorf("list occupancy: scan row: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list occupancy: row iteration: %w", err)
	}

	return out, nil
}

func (s *SQLDatasetSource) ListWorkload(ctx context.Context, key domain.InstanceKey) (_ []domain.WorkloadSample, err error) {
	defer obs.Time(ctx, "dataset.ListWorkload")(&err)

	rows, err := s.query(ctx, `
	SELECT block, period, workload
	FROM workload_samples
	WHERE instance = ?
	ORDER BY period, block;
	`, key.Code())
	if err != nil {
		return nil, fmt.Errorf("list workload: query workload_samples table: %w", err)
	}
	defer rows.Close()

	var out []domain.WorkloadSample
	for rows.Next() {
		var w domain.WorkloadSample
		if err := rows.Scan(&w.Block, &w.Period, &w.Workload); err != nil {
			return nil, fmt.Errorf("list workload: scan row: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list workload: row iteration: %w", err)
	}

	return out, nil
}
