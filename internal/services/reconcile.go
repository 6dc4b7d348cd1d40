package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
	"yard-kpi-service/internal/domain"
	"yard-kpi-service/internal/platform/obs"
	"yard-kpi-service/internal/ports"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrRunInProgress = errors.New("reconciliation already running for instance")

const (
	DefaultDashboardTTL = 5 * time.Minute
	missesLogged        = 10
)

// Builds the resolver for one run from the distance reference tables.
type ResolverFactory func(tables domain.DistanceTables) ports.DistanceResolver

// State of an in-flight run. Persisted rows only ever hold completed runs.
type RunState struct {
	RunID     uuid.UUID
	Status    domain.RunStatus
	StartedAt time.Time
}

// Reconciler runs the full reconciliation for one instance and serves the
// committed results. Runs for different instances may proceed concurrently.
type Reconciler struct {
	Source      ports.ReconciliationSource
	Results     ports.ResultRepository
	NewResolver ResolverFactory
	Cache       ports.DashboardCache
	Logger      *logrus.Logger
	Metrics     *obs.Metrics
	BatchSize   int
	CacheTTL    time.Duration
	Now         func() time.Time

	mu      sync.Mutex
	running map[string]RunState
	commits map[string]uint64
}

func NewReconciler(source ports.ReconciliationSource, results ports.ResultRepository, newResolver ResolverFactory) *Reconciler {
	return &Reconciler{
		Source:      source,
		Results:     results,
		NewResolver: newResolver,
		Logger:      obs.Logger(),
		BatchSize:   DefaultClassifyBatchSize,
		CacheTTL:    DefaultDashboardTTL,
		Now:         time.Now,
		running:     map[string]RunState{},
	}
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Reconciler) logger() *logrus.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return obs.Logger()
}

func (r *Reconciler) begin(key domain.InstanceKey) (RunState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running == nil {
		r.running = map[string]RunState{}
	}
	if _, ok := r.running[key.Code()]; ok {
		return RunState{}, fmt.Errorf("%w: %s", ErrRunInProgress, key.Code())
	}

	st := RunState{RunID: uuid.New(), Status: domain.RunProcessing, StartedAt: r.now().UTC()}
	r.running[key.Code()] = st
	return st, nil
}

// committed bumps the instance's commit counter. Dashboard compares it around
// its repository read to drop entries built from a superseded set.
func (r *Reconciler) committed(key domain.InstanceKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.commits == nil {
		r.commits = map[string]uint64{}
	}
	r.commits[key.Code()]++
}

func (r *Reconciler) commitCount(key domain.InstanceKey) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commits[key.Code()]
}

func (r *Reconciler) finish(key domain.InstanceKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, key.Code())
}

// InFlight reports the state of a run currently processing the instance.
func (r *Reconciler) InFlight(key domain.InstanceKey) (RunState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.running[key.Code()]
	return st, ok
}

// Reconcile recomputes every derived record of the instance and replaces the
// committed set atomically. On failure the previous committed set stays visible.
func (r *Reconciler) Reconcile(ctx context.Context, key domain.InstanceKey) (_ *domain.ResultSummary, err error) {
	defer obs.Time(ctx, "reconcile")(&err)

	if r.NewResolver == nil {
		return nil, errors.New("reconcile: resolver factory is nil")
	}

	run, err := r.begin(key)
	if err != nil {
		return nil, err
	}
	defer r.finish(key)

	status := "failed"
	defer func() { r.Metrics.RunFinished(status) }()

	log := r.logger().WithFields(logrus.Fields{
		"instance": key.Code(),
		"run_id":   run.RunID.String(),
	})
	log.Info("reconciliation started")

	records, err := r.Source.ListMovements(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reconcile: list movements: %w", err)
	}
	model, err := r.Source.ListModelAggregates(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reconcile: list model aggregates: %w", err)
	}
	tables, err := r.Source.LoadDistanceTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: load distance tables: %w", err)
	}
	modelDistance, err := r.Source.GetModelDistanceSummary(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reconcile: get model distance summary: %w", err)
	}
	occupancy, err := r.Source.ListOccupancy(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reconcile: list occupancy: %w", err)
	}
	workload, err := r.Source.ListWorkload(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reconcile: list workload: %w", err)
	}

	resolver := r.NewResolver(tables)

	cls, err := ClassifyMovements(ctx, records, r.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	for raw, n := range cls.Unrecognized {
		log.WithFields(logrus.Fields{"raw_kind": raw, "count": n}).Debug("unrecognized movement kind")
	}

	res := ComputeKPIs(AggregationInput{
		Records:        records,
		Classification: cls,
		Model:          model,
		ModelDistance:  modelDistance,
	}, resolver)
	balance := ComputeBalance(occupancy, workload)
	periods := ComputePeriodMetrics(records, cls.Kinds, res.Lookups, model, workload, occupancy)

	summary := res.Summary
	summary.Instance = key
	summary.RunID = run.RunID
	summary.StartedAt = run.StartedAt
	balance.Apply(&summary)

	for _, m := range res.Misses.Top(missesLogged) {
		log.WithFields(logrus.Fields{
			"kind":        m.Kind,
			"outcome":     m.Outcome,
			"origin":      m.Origin,
			"destination": m.Destination,
			"count":       m.Count,
		}).Debug("distance lookup miss")
	}
	if summary.ModelDistanceEstimated {
		log.Warn("model distance summary missing, model distance estimated from observed relocations")
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	summary.Status = domain.RunCompleted
	summary.CompletedAt = r.now().UTC()

	err = r.Results.ReplaceResults(ctx, domain.RunResult{
		Summary: summary,
		KPIs:    res.KPIs,
		Periods: periods,
		Blocks:  balance.Blocks,
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile: replace results: %w", err)
	}
	r.committed(key)

	if r.Cache != nil {
		if err := r.Cache.Delete(ctx, dashboardKey(key)); err != nil {
			log.WithError(err).Warn("invalidate dashboard cache")
		}
	}

	r.Metrics.Lookups(string(domain.LookupFound), summary.ResolvedLookups)
	r.Metrics.Lookups(string(domain.LookupNotFound), summary.UnresolvedLookups)
	r.Metrics.Lookups(string(domain.LookupSkippedSpecial), summary.SkippedSpecialLookups)
	r.Metrics.UnrecognizedKinds(summary.UnrecognizedKinds)
	status = string(domain.RunCompleted)

	log.WithFields(logrus.Fields{
		"movements":          summary.RealMovementsTotal,
		"kpis":               len(res.KPIs),
		"resolved_lookups":   summary.ResolvedLookups,
		"unresolved_lookups": summary.UnresolvedLookups,
		"skipped_lookups":    summary.SkippedSpecialLookups,
	}).Info("reconciliation completed")

	return &summary, nil
}

func dashboardKey(key domain.InstanceKey) string {
	return "dashboard:" + key.Code()
}

// Dashboard returns the committed results of an instance, served from the
// cache when present. Cache failures fall through to the repository.
func (r *Reconciler) Dashboard(ctx context.Context, key domain.InstanceKey) (_ *domain.Dashboard, err error) {
	defer obs.Time(ctx, "dashboard")(&err)

	ck := dashboardKey(key)
	log := r.logger().WithField("instance", key.Code())

	if r.Cache != nil {
		raw, ok, err := r.Cache.Get(ctx, ck)
		switch {
		case err != nil:
			log.WithError(err).Warn("read dashboard cache")
		case ok:
			var d domain.Dashboard
			if err := json.Unmarshal(raw, &d); err == nil {
				r.Metrics.CacheHit()
				return &d, nil
			}
			log.Warn("discarding undecodable dashboard cache entry")
		}
		r.Metrics.CacheMiss()
	}

	seen := r.commitCount(key)

	summary, err := r.Results.GetSummary(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("dashboard: get summary: %w", err)
	}
	kpis, err := r.Results.ListKPIs(ctx, key, "")
	if err != nil {
		return nil, fmt.Errorf("dashboard: list kpis: %w", err)
	}
	periods, err := r.Results.ListPeriodMetrics(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("dashboard: list period metrics: %w", err)
	}

	d := &domain.Dashboard{Summary: *summary, KPIs: kpis, Periods: periods}

	if r.Cache != nil {
		raw, err := json.Marshal(d)
		if err == nil {
			err = r.Cache.Set(ctx, ck, raw, r.CacheTTL)
		}
		if err != nil {
			log.WithError(err).Warn("write dashboard cache")
		}

		// A run committed during the read; its invalidation may have run before our Set.
		if r.commitCount(key) != seen {
			if err := r.Cache.Delete(ctx, ck); err != nil {
				log.WithError(err).Warn("invalidate dashboard cache")
			}
		}
	}

	return d, nil
}
