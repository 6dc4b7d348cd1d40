package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"yard-kpi-service/internal/domain"
	"yard-kpi-service/internal/platform/db"
	"yard-kpi-service/internal/platform/obs"
	"yard-kpi-service/internal/ports"

	"github.com/google/uuid"
)

var ErrNotFound = ports.ErrNotFound

// SQL-backed implementation of the ResultRepository port.
type SQLResultRepository struct {
	DB     *sql.DB
	Driver string
}

func NewSQLResultRepository(sqlDB *sql.DB, driver string) *SQLResultRepository {
	return &SQLResultRepository{DB: sqlDB, Driver: driver}
}

func (s *SQLResultRepository) q(query string) string {
	return db.Rebind(s.Driver, query)
}

// ReplaceResults deletes every derived row of the instance and inserts the new
// set in one transaction. Any failure rolls back and leaves the previous set intact.
func (s *SQLResultRepository) ReplaceResults(ctx context.Context, res domain.RunResult) (err error) {
	defer obs.Time(ctx, "results.ReplaceResults")(&err)

	if s.DB == nil {
		return errors.New("result repository: DB is nil")
	}
	instance := res.Summary.Instance.Code()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace results: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"kpi_records", "period_metrics", "block_balances", "result_summaries"} {
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM `+table+` WHERE instance = ?;`), instance); err != nil {
			return fmt.Errorf("replace results: delete %s: %w", table, err)
		}
	}

	if err := s.insertSummary(ctx, tx, res.Summary); err != nil {
		return fmt.Errorf("replace results: %w", err)
	}
	if err := s.insertKPIs(ctx, tx, instance, res.KPIs); err != nil {
		return fmt.Errorf("replace results: %w", err)
	}
	if err := s.insertPeriods(ctx, tx, instance, res.Periods); err != nil {
		return fmt.Errorf("replace results: %w", err)
	}
	if err := s.insertBlocks(ctx, tx, instance, res.Blocks); err != nil {
		return fmt.Errorf("replace results: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace results: commit tx: %w", err)
	}
	return nil
}

func (s *SQLResultRepository) insertSummary(ctx context.Context, tx *sql.Tx, sum domain.ResultSummary) error {
	byKind, err := json.Marshal(sum.RealByKind)
	if err != nil {
		return fmt.Errorf("insert summary: encode real_by_kind: %w", err)
	}
	distByKind, err := json.Marshal(sum.RealDistanceByKind)
	if err != nil {
		return fmt.Errorf("insert summary: encode real_distance_by_kind: %w", err)
	}

	estimated := 0
	if sum.ModelDistanceEstimated {
		estimated = 1
	}

	_, err = tx.ExecContext(ctx, s.q(`
	INSERT INTO result_summaries (
		instance, run_id, status,
		real_movements_total, real_by_kind, operational_real, operational_model,
		model_load, model_deliver, movement_reduction, movement_reduction_pct,
		real_distance_total, real_distance_by_kind, model_distance_total, model_distance_estimated,
		distance_saved, efficiency_gain_pct,
		balance_cv, workload_total, workload_max, workload_min,
		occupancy_avg_pct, occupancy_max_pct, occupancy_min_pct, segregations_active,
		movements_with_distance_data, resolved_lookups, unresolved_lookups, skipped_special_lookups,
		unrecognized_kinds, distance_coverage_pct,
		started_at, completed_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`),
		sum.Instance.Code(), sum.RunID.String(), string(sum.Status),
		sum.RealMovementsTotal, string(byKind), sum.OperationalReal, sum.OperationalModel,
		sum.ModelLoad, sum.ModelDeliver, sum.MovementReduction, sum.MovementReductionPct,
		sum.RealDistanceTotal, string(distByKind), sum.ModelDistanceTotal, estimated,
		sum.DistanceSaved, sum.EfficiencyGainPct,
		sum.BalanceCV, sum.WorkloadTotal, sum.WorkloadMax, sum.WorkloadMin,
		sum.OccupancyAvgPct, sum.OccupancyMaxPct, sum.OccupancyMinPct, sum.SegregationsActive,
		sum.MovementsWithDistanceData, sum.ResolvedLookups, sum.UnresolvedLookups, sum.SkippedSpecialLookups,
		sum.UnrecognizedKinds, sum.DistanceCoveragePct,
		formatTime(sum.StartedAt), formatTime(sum.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}
	return nil
}

func (s *SQLResultRepository) insertKPIs(ctx context.Context, tx *sql.Tx, instance string, kpis []domain.KPIRecord) error {
	stmt, err := tx.PrepareContext(ctx, s.q(`
	INSERT INTO kpi_records (
		instance, category, metric, real_value, model_value, difference, improvement_pct, unit
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?);
	`))
	if err != nil {
		return fmt.Errorf("insert kpis: prepare: %w", err)
	}
	defer stmt.Close()

	for _, k := range kpis {
		if _, err := stmt.ExecContext(ctx, instance, string(k.Category), k.Metric, k.RealValue, k.ModelValue, k.Difference, k.ImprovementPct, k.Unit); err != nil {
			return fmt.Errorf("insert kpis: %s: %w", k.Key(), err)
		}
	}
	return nil
}

func (s *SQLResultRepository) insertPeriods(ctx context.Context, tx *sql.Tx, instance string, periods []domain.PeriodMetric) error {
	stmt, err := tx.PrepareContext(ctx, s.q(`
	INSERT INTO period_metrics (
		instance, period, day, shift, real_movements, real_relocations,
		model_movements, real_distance_meters, workload, avg_occupancy_pct
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`))
	if err != nil {
		return fmt.Errorf("insert period metrics: prepare: %w", err)
	}
	defer stmt.Close()

	for _, p := range periods {
		if _, err := stmt.ExecContext(ctx, instance, p.Period, p.Day, p.Shift, p.RealMovements, p.RealRelocations,
			p.ModelMovements, p.RealDistanceMeters, p.Workload, p.AvgOccupancyPct); err != nil {
			return fmt.Errorf("insert period metrics: period %d: %w", p.Period, err)
		}
	}
	return nil
}

func (s *SQLResultRepository) insertBlocks(ctx context.Context, tx *sql.Tx, instance string, blocks []domain.BlockBalance) error {
	stmt, err := tx.PrepareContext(ctx, s.q(`
	INSERT INTO block_balances (
		instance, block, avg_occupancy_pct, min_occupancy_pct, max_occupancy_pct, total_workload, occupancy_periods
	)
	VALUES (?, ?, ?, ?, ?, ?, ?);
	`))
	if err != nil {
		return fmt.Errorf("insert block balances: prepare: %w", err)
	}
	defer stmt.Close()

	for _, b := range blocks {
		if _, err := stmt.ExecContext(ctx, instance, b.Block, b.AvgOccupancyPct, b.MinOccupancyPct, b.MaxOccupancyPct, b.TotalWorkload, b.OccupancyPeriods); err != nil {
			return fmt.Errorf("insert block balances: block %s: %w", b.Block, err)
		}
	}
	return nil
}

// Return the committed summary of an instance.
func (s *SQLResultRepository) GetSummary(ctx context.Context, key domain.InstanceKey) (_ *domain.ResultSummary, err error) {
	defer obs.Time(ctx, "results.GetSummary")(&err)

	if s.DB == nil {
		return nil, errors.New("result repository: DB is nil")
	}

	sum := domain.ResultSummary{Instance: key}
	var runID, status, byKind, distByKind, startedAt, completedAt string
	var estimated int

	err = s.DB.QueryRowContext(ctx, s.q(`
	SELECT
		run_id, status,
		real_movements_total, real_by_kind, operational_real, operational_model,
		model_load, model_deliver, movement_reduction, movement_reduction_pct,
		real_distance_total, real_distance_by_kind, model_distance_total, model_distance_estimated,
		distance_saved, efficiency_gain_pct,
		balance_cv, workload_total, workload_max, workload_min,
		occupancy_avg_pct, occupancy_max_pct, occupancy_min_pct, segregations_active,
		movements_with_distance_data, resolved_lookups, unresolved_lookups, skipped_special_lookups,
		unrecognized_kinds, distance_coverage_pct,
		started_at, completed_at
	FROM result_summaries
	WHERE instance = ?;
	`), key.Code()).Scan(
		&runID, &status,
		&sum.RealMovementsTotal, &byKind, &sum.OperationalReal, &sum.OperationalModel,
		&sum.ModelLoad, &sum.ModelDeliver, &sum.MovementReduction, &sum.MovementReductionPct,
		&sum.RealDistanceTotal, &distByKind, &sum.ModelDistanceTotal, &estimated,
		&sum.DistanceSaved, &sum.EfficiencyGainPct,
		&sum.BalanceCV, &sum.WorkloadTotal, &sum.WorkloadMax, &sum.WorkloadMin,
		&sum.OccupancyAvgPct, &sum.OccupancyMaxPct, &sum.OccupancyMinPct, &sum.SegregationsActive,
		&sum.MovementsWithDistanceData, &sum.ResolvedLookups, &sum.UnresolvedLookups, &sum.SkippedSpecialLookups,
		&sum.UnrecognizedKinds, &sum.DistanceCoveragePct,
		&startedAt, &completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get summary %s: %w", key.Code(), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get summary %s: %w", key.Code(), err)
	}

	if sum.RunID, err = uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("get summary %s: parse run id: %w", key.Code(), err)
	}
	sum.Status = domain.RunStatus(status)
	sum.ModelDistanceEstimated = estimated != 0
	if err := json.Unmarshal([]byte(byKind), &sum.RealByKind); err != nil {
		return nil, fmt.Errorf("get summary %s: decode real_by_kind: %w", key.Code(), err)
	}
	if err := json.Unmarshal([]byte(distByKind), &sum.RealDistanceByKind); err != nil {
		return nil, fmt.Errorf("get summary %s: decode real_distance_by_kind: %w", key.Code(), err)
	}
	if sum.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("get summary %s: started_at: %w", key.Code(), err)
	}
	if sum.CompletedAt, err = parseTime(completedAt); err != nil {
		return nil, fmt.Errorf("get summary %s: completed_at: %w", key.Code(), err)
	}

	return &sum, nil
}

// Return the committed KPI records of an instance; an empty category returns all.
func (s *SQLResultRepository) ListKPIs(ctx context.Context, key domain.InstanceKey, category domain.KPICategory) (_ []domain.KPIRecord, err error) {
	defer obs.Time(ctx, "results.ListKPIs")(&err)

	if s.DB == nil {
		return nil, errors.New("result repository: DB is nil")
	}

	query, args := listKPIsQuery(s.Driver, key, category)
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list kpis: query kpi_records table: %w", err)
	}
	defer rows.Close()

	out := make([]domain.KPIRecord, 0, 32)
	for rows.Next() {
		var k domain.KPIRecord
		var cat string
		if err := rows.Scan(&cat, &k.Metric, &k.RealValue, &k.ModelValue, &k.Difference, &k.ImprovementPct, &k.Unit); err != nil {
			return nil, fmt.Errorf("list kpis: scan row: %w", err)
		}
		k.Category = domain.KPICategory(cat)
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list kpis: row iteration: %w", err)
	}

	return out, nil
}

// Return the committed per-period metrics ordered by period.
func (s *SQLResultRepository) ListPeriodMetrics(ctx context.Context, key domain.InstanceKey) (_ []domain.PeriodMetric, err error) {
	defer obs.Time(ctx, "results.ListPeriodMetrics")(&err)

	if s.DB == nil {
		return nil, errors.New("result repository: DB is nil")
	}

	rows, err := s.DB.QueryContext(ctx, s.q(`
	SELECT period, day, shift, real_movements, real_relocations,
		model_movements, real_distance_meters, workload, avg_occupancy_pct
	FROM period_metrics
	WHERE instance = ?
	ORDER BY period;
	`), key.Code())
	if err != nil {
		return nil, fmt.Errorf("list period metrics: query period_metrics table: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PeriodMetric, 0, 32)
	for rows.Next() {
		var p domain.PeriodMetric
		if err := rows.Scan(&p.Period, &p.Day, &p.Shift, &p.RealMovements, &p.RealRelocations,
			&p.ModelMovements, &p.RealDistanceMeters, &p.Workload, &p.AvgOccupancyPct); err != nil {
			return nil, fmt.Errorf("list period metrics: scan row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list period metrics: row iteration: %w", err)
	}

	return out, nil
}

// Return the committed per-block balance of an instance.
func (s *SQLResultRepository) ListBlockBalances(ctx context.Context, key domain.InstanceKey) (_ []domain.BlockBalance, err error) {
	defer obs.Time(ctx, "results.ListBlockBalances")(&err)

	if s.DB == nil {
		return nil, errors.New("result repository: DB is nil")
	}

	rows, err := s.DB.QueryContext(ctx, s.q(`
	SELECT block, avg_occupancy_pct, min_occupancy_pct, max_occupancy_pct, total_workload, occupancy_periods
	FROM block_balances
	WHERE instance = ?
	ORDER BY block;
	`), key.Code())
	if err != nil {
		return nil, fmt.Errorf("list block balances: query block_balances table: %w", err)
	}
	defer rows.Close()

	var out []domain.BlockBalance
	for rows.Next() {
		var b domain.BlockBalance
		if err := rows.Scan(&b.Block, &b.AvgOccupancyPct, &b.MinOccupancyPct, &b.MaxOccupancyPct, &b.TotalWorkload, &b.OccupancyPeriods); err != nil {
			return nil, fmt.Errorf("list block balances: scan row: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list block balances: row iteration: %w", err)
	}

	return out, nil
}

// listKPIsQuery filters by category only when one is given, so every
// placeholder compares against a typed column.
func listKPIsQuery(driver string, key domain.InstanceKey, category domain.KPICategory) (string, []any) {
	where := `WHERE instance = ?`
	args := []any{key.Code()}
	if category != "" {
		where += ` AND category = ?`
		args = append(args, string(category))
	}

	return db.Rebind(driver, `
	SELECT category, metric, real_value, model_value, difference, improvement_pct, unit
	FROM kpi_records
	`+where+`
	ORDER BY category, metric;
	`), args
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
