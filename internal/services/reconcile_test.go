package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"yard-kpi-service/internal/adapters/cache"
	"yard-kpi-service/internal/adapters/distance"
	"yard-kpi-service/internal/domain"
	"yard-kpi-service/internal/ports"
)

type fakeSource struct {
	records []domain.MovementRecord
	model   []domain.ModelMovementAggregate
	summary *domain.ModelDistanceSummary
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeSource) ListMovements(ctx context.Context, _ domain.InstanceKey) ([]domain.MovementRecord, error) {
	if f.block != nil {
		f.entered <- struct{}{}
		<-f.block
	}
	return f.records, nil
}

func (f *fakeSource) ListModelAggregates(context.Context, domain.InstanceKey) ([]domain.ModelMovementAggregate, error) {
	return f.model, nil
}

func (f *fakeSource) LoadDistanceTables(context.Context) (domain.DistanceTables, error) {
	return domain.DistanceTables{}, nil
}

func (f *fakeSource) GetModelDistanceSummary(context.Context, domain.InstanceKey) (*domain.ModelDistanceSummary, error) {
	return f.summary, nil
}

func (f *fakeSource) ListOccupancy(context.Context, domain.InstanceKey) ([]domain.OccupancySample, error) {
	return []domain.OccupancySample{{Block: "C1", Period: 1, Occupied: 50, Capacity: 100}}, nil
}

func (f *fakeSource) ListWorkload(context.Context, domain.InstanceKey) ([]domain.WorkloadSample, error) {
	return []domain.WorkloadSample{{Block: "C1", Period: 1, Workload: 3}}, nil
}

type fakeResults struct {
	mu       sync.Mutex
	fail     error
	replaced int
	reads    int
	current  map[string]domain.RunResult
	onRead   func()
}

func (f *fakeResults) ReplaceResults(_ context.Context, res domain.RunResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	if f.current == nil {
		f.current = map[string]domain.RunResult{}
	}
	f.current[res.Summary.Instance.Code()] = res
	f.replaced++
	return nil
}

func (f *fakeResults) get(key domain.InstanceKey) (domain.RunResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	res, ok := f.current[key.Code()]
	if !ok {
		return res, ports.ErrNotFound
	}
	return res, nil
}

func (f *fakeResults) GetSummary(_ context.Context, key domain.InstanceKey) (*domain.ResultSummary, error) {
	res, err := f.get(key)
	if err != nil {
		return nil, err
	}
	return &res.Summary, nil
}

func (f *fakeResults) ListKPIs(_ context.Context, key domain.InstanceKey, category domain.KPICategory) ([]domain.KPIRecord, error) {
	res, err := f.get(key)
	if err != nil {
		return nil, err
	}
	var out []domain.KPIRecord
	for _, k := range res.KPIs {
		if category == "" || k.Category == category {
			out = append(out, k)
		}
	}
	return out, nil
}

func (f *fakeResults) ListPeriodMetrics(_ context.Context, key domain.InstanceKey) ([]domain.PeriodMetric, error) {
	if hook := f.onRead; hook != nil {
		f.onRead = nil
		hook()
	}
	res, err := f.get(key)
	if err != nil {
		return nil, err
	}
	return res.Periods, nil
}

func mockResolver(domain.DistanceTables) ports.DistanceResolver {
	return distance.NewMockDistanceProvider([]distance.MockPair{{From: "C1", To: "C2", Meters: 100}})
}

func testKey(t *testing.T) domain.InstanceKey {
	t.Helper()
	key, err := domain.ParseInstanceKey("20220103_68_K")
	if err != nil {
		t.Fatalf("ParseInstanceKey: %v", err)
	}
	return key
}

func testSource() *fakeSource {
	records := []domain.MovementRecord{
		{RawKind: "YARD", Origin: "C1", Destination: "C2", Period: domain.Period{Day: 1, Shift: 1}},
		{RawKind: "DLVR", Origin: "C1", Destination: "GATE-1", Period: domain.Period{Day: 1, Shift: 1}},
	}
	return &fakeSource{
		records: records,
		model:   []domain.ModelMovementAggregate{{Segregation: "s1", Block: "C1", Period: 1, Deliver: 1}},
		summary: &domain.ModelDistanceSummary{TotalMeters: 50},
	}
}

func TestReconcileCommitsResults(t *testing.T) {
	ctx := context.Background()
	key := testKey(t)
	results := &fakeResults{}
	dash := cache.NewMemoryDashboardCache(10, nil)

	r := NewReconciler(testSource(), results, mockResolver)
	r.Cache = dash
	r.Now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	if err := dash.Set(ctx, dashboardKey(key), []byte(`{}`), time.Hour); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	sum, err := r.Reconcile(ctx, key)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if sum.Status != domain.RunCompleted {
		t.Fatalf("status = %s, want completed", sum.Status)
	}
	if sum.RealMovementsTotal != 2 {
		t.Fatalf("real movements = %d, want 2", sum.RealMovementsTotal)
	}
	if sum.RealDistanceTotal != 100 || sum.DistanceSaved != 50 {
		t.Fatalf("distance = %d saved %d, want 100 saved 50", sum.RealDistanceTotal, sum.DistanceSaved)
	}
	if sum.CompletedAt.IsZero() || sum.RunID.String() == "" {
		t.Fatalf("summary not stamped: %+v", sum)
	}
	if results.replaced != 1 {
		t.Fatalf("replaced = %d, want 1", results.replaced)
	}
	if _, ok, _ := dash.Get(ctx, dashboardKey(key)); ok {
		t.Fatalf("dashboard cache entry survived a completed run")
	}
	if _, ok := r.InFlight(key); ok {
		t.Fatalf("run still in flight after completion")
	}
}

func TestReconcileFailureKeepsPreviousResults(t *testing.T) {
	ctx := context.Background()
	key := testKey(t)
	results := &fakeResults{}

	r := NewReconciler(testSource(), results, mockResolver)
	first, err := r.Reconcile(ctx, key)
	if err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}

	results.fail = errors.New("disk full")
	if _, err := r.Reconcile(ctx, key); err == nil {
		t.Fatalf("expected error from failing repository")
	}

	sum, err := results.GetSummary(ctx, key)
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if sum.RunID != first.RunID {
		t.Fatalf("run id = %s, want previous %s", sum.RunID, first.RunID)
	}
	if _, ok := r.InFlight(key); ok {
		t.Fatalf("failed run still marked in flight")
	}
}

func TestReconcileRejectsConcurrentRun(t *testing.T) {
	ctx := context.Background()
	key := testKey(t)

	src := testSource()
	src.block = make(chan struct{})
	src.entered = make(chan struct{}, 1)

	r := NewReconciler(src, &fakeResults{}, mockResolver)

	done := make(chan error, 1)
	go func() {
		_, err := r.Reconcile(ctx, key)
		done <- err
	}()
	<-src.entered

	st, ok := r.InFlight(key)
	if !ok || st.Status != domain.RunProcessing {
		t.Fatalf("InFlight = %+v, %v; want processing", st, ok)
	}

	if _, err := r.Reconcile(ctx, key); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("err = %v, want ErrRunInProgress", err)
	}

	close(src.block)
	if err := <-done; err != nil {
		t.Fatalf("blocked Reconcile: %v", err)
	}
}

func TestReconcileRequiresResolverFactory(t *testing.T) {
	r := NewReconciler(testSource(), &fakeResults{}, nil)
	if _, err := r.Reconcile(context.Background(), testKey(t)); err == nil {
		t.Fatalf("expected error without resolver factory")
	}
}

func TestReconcileHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := &fakeResults{}
	r := NewReconciler(testSource(), results, mockResolver)
	if _, err := r.Reconcile(ctx, testKey(t)); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if results.replaced != 0 {
		t.Fatalf("replaced = %d, want 0 after cancellation", results.replaced)
	}
}

func TestDashboardUsesCache(t *testing.T) {
	ctx := context.Background()
	key := testKey(t)
	results := &fakeResults{}

	r := NewReconciler(testSource(), results, mockResolver)
	r.Cache = cache.NewMemoryDashboardCache(10, nil)

	if _, err := r.Dashboard(ctx, key); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound before any run", err)
	}

	if _, err := r.Reconcile(ctx, key); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	first, err := r.Dashboard(ctx, key)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	reads := results.reads

	second, err := r.Dashboard(ctx, key)
	if err != nil {
		t.Fatalf("cached Dashboard: %v", err)
	}
	if results.reads != reads {
		t.Fatalf("repository read on cache hit: reads = %d, want %d", results.reads, reads)
	}
	if second.Summary.RunID != first.Summary.RunID || len(second.KPIs) != len(first.KPIs) {
		t.Fatalf("cached dashboard differs from stored one")
	}
}

func TestDashboardDropsEntryBuiltDuringCommit(t *testing.T) {
	ctx := context.Background()
	key := testKey(t)
	results := &fakeResults{}
	dash := cache.NewMemoryDashboardCache(10, nil)

	r := NewReconciler(testSource(), results, mockResolver)
	r.Cache = dash

	first, err := r.Reconcile(ctx, key)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	// A second run commits and invalidates after the dashboard read its
	// summary but before it wrote the cache.
	var second *domain.ResultSummary
	results.onRead = func() {
		second, err = r.Reconcile(ctx, key)
		if err != nil {
			t.Fatalf("concurrent Reconcile: %v", err)
		}
	}

	stale, err := r.Dashboard(ctx, key)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if stale.Summary.RunID != first.RunID {
		t.Fatalf("dashboard run = %s, want the one read before the commit %s", stale.Summary.RunID, first.RunID)
	}
	if _, ok, _ := dash.Get(ctx, dashboardKey(key)); ok {
		t.Fatalf("dashboard built from a superseded set stayed cached")
	}

	fresh, err := r.Dashboard(ctx, key)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if fresh.Summary.RunID != second.RunID {
		t.Fatalf("dashboard run = %s, want latest %s", fresh.Summary.RunID, second.RunID)
	}
}
