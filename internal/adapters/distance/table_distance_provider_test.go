package distance

import (
	"context"
	"errors"
	"io"
	"testing"
	"yard-kpi-service/internal/domain"
	"yard-kpi-service/internal/location"

	"github.com/sirupsen/logrus"
)

func newProvider(tables domain.DistanceTables) *TableDistanceProvider {
	return NewTableDistanceProvider(tables, location.NewNormalizer(location.DefaultOptions()))
}

func TestGateAndSiteEdgesAreSymmetric(t *testing.T) {
	p := newProvider(domain.DistanceTables{
		BlockGateSite: []domain.DistanceRow{
			{Origin: "C1", Destination: "GATE-1", Meters: 420},
			{Origin: "Y-SAI-H2", Destination: "SITIO SUR", Meters: 610},
		},
		Generic: []domain.DistanceRow{
			{Origin: "PUERTA 2", Destination: "T3", Meters: 900},
		},
	})

	pairs := [][2]string{{"C1", "GATE-1"}, {"H2", "SITIO-SUR"}, {"GATE-2", "T3"}}
	for _, pair := range pairs {
		ab := p.Resolve(pair[0], pair[1])
		ba := p.Resolve(pair[1], pair[0])
		if !ab.Found() || !ba.Found() {
			t.Fatalf("Resolve(%s, %s) outcomes = %s/%s, want found/found", pair[0], pair[1], ab.Outcome, ba.Outcome)
		}
		if ab.Meters != ba.Meters {
			t.Fatalf("Resolve(%s, %s) = %d, reverse = %d, want equal", pair[0], pair[1], ab.Meters, ba.Meters)
		}
		if ba.Reversed {
			t.Fatalf("Resolve(%s, %s) used reversed fallback, want mirrored edge", pair[1], pair[0])
		}
	}
}

func TestBlockMatrixIsDirected(t *testing.T) {
	p := newProvider(domain.DistanceTables{
		BlockMatrix: []domain.DistanceRow{
			{Origin: "C1", Destination: "C2", Meters: 100},
			{Origin: "C2", Destination: "C1", Meters: 150},
			{Origin: "C1", Destination: "C3", Meters: 200},
		},
	})

	if got := p.Resolve("C1", "C2").Meters; got != 100 {
		t.Fatalf("C1->C2 = %d, want 100", got)
	}
	if got := p.Resolve("C2", "C1").Meters; got != 150 {
		t.Fatalf("C2->C1 = %d, want 150", got)
	}

	for _, e := range p.Edges() {
		if e.Origin.Code == "C3" {
			t.Fatalf("unexpected mirrored block edge %+v", e)
		}
	}

	// Only C1->C3 is listed; the lookup falls back to the reversed pair.
	got := p.Resolve("C3", "C1")
	if !got.Found() || !got.Reversed || got.Meters != 200 {
		t.Fatalf("C3->C1 = %+v, want reversed 200", got)
	}
}

func TestDuplicateRowsOverwrite(t *testing.T) {
	p := newProvider(domain.DistanceTables{
		BlockMatrix: []domain.DistanceRow{
			{Origin: "C1", Destination: "C2", Meters: 100},
			{Origin: "C01", Destination: "C02", Meters: 130},
		},
	})

	if got := p.Resolve("C1", "C2").Meters; got != 130 {
		t.Fatalf("C1->C2 = %d, want 130", got)
	}
	if got := p.Stats().Overwritten; got != 1 {
		t.Fatalf("overwritten = %d, want 1", got)
	}
	if got := p.Stats().Edges; got != 1 {
		t.Fatalf("edges = %d, want 1", got)
	}
}

func TestMirroredEdgeNeverReplacesListedEdge(t *testing.T) {
	p := newProvider(domain.DistanceTables{
		BlockGateSite: []domain.DistanceRow{
			{Origin: "GATE-1", Destination: "C1", Meters: 500},
			{Origin: "C1", Destination: "GATE-1", Meters: 450},
		},
	})

	if got := p.Resolve("GATE-1", "C1").Meters; got != 500 {
		t.Fatalf("GATE-1->C1 = %d, want listed 500", got)
	}
	if got := p.Resolve("C1", "GATE-1").Meters; got != 450 {
		t.Fatalf("C1->GATE-1 = %d, want listed 450", got)
	}
}

func TestRejectedRows(t *testing.T) {
	p := newProvider(domain.DistanceTables{
		Generic: []domain.DistanceRow{
			{Origin: "C1", Destination: "C2", Meters: -5},
			{Origin: "VESSEL", Destination: "C2", Meters: 300},
			{Origin: "", Destination: "C2", Meters: 10},
			{Origin: "C1", Destination: "C4", Meters: 0},
		},
	})

	s := p.Stats()
	if s.Rows != 4 || s.RejectedNegative != 1 || s.RejectedSpecial != 1 || s.RejectedEmpty != 1 {
		t.Fatalf("stats = %+v, want 4 rows with 3 rejections", s)
	}
	if s.Rejected() != 3 {
		t.Fatalf("rejected = %d, want 3", s.Rejected())
	}
	if got := p.Resolve("C1", "C4"); !got.Found() || got.Meters != 0 {
		t.Fatalf("C1->C4 = %+v, want found 0", got)
	}
}

func TestSpecialEndpointsAreSkipped(t *testing.T) {
	p := newProvider(domain.DistanceTables{
		Generic: []domain.DistanceRow{{Origin: "C1", Destination: "C2", Meters: 80}},
	})

	for _, pair := range [][2]string{{"VESSEL", "C1"}, {"C1", "Y-SAI-RAMP"}, {"GATE", "GATE"}, {"Y-SAI-M10-3", "C1"}, {"C2", "M10-2"}} {
		got := p.Resolve(pair[0], pair[1])
		if got.Outcome != domain.LookupSkippedSpecial {
			t.Fatalf("Resolve(%s, %s) outcome = %s, want skipped_special", pair[0], pair[1], got.Outcome)
		}
	}

	if got := p.Resolve("C1", "H9"); got.Outcome != domain.LookupNotFound {
		t.Fatalf("Resolve(C1, H9) outcome = %s, want not_found", got.Outcome)
	}
}

func TestGetDistance(t *testing.T) {
	p := newProvider(domain.DistanceTables{
		BlockGateSite: []domain.DistanceRow{{Origin: "T1", Destination: "GATE-4", Meters: 720}},
	})

	r, err := p.GetDistance(context.Background(), "GATE-4", "T1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.DistanceMeters != 720 || r.Source != domain.SourceBlockGateSite {
		t.Fatalf("result = %+v, want 720 from block_gate_site", r)
	}

	r, err = p.GetDistance(context.Background(), "Y-SAI-T01", "puerta 4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Origin != "T1" || r.Destination != "GATE-4" || r.DistanceMeters != 720 {
		t.Fatalf("result = %+v, want T1 -> GATE-4 720", r)
	}

	_, err = p.GetDistance(context.Background(), "T1", "T2")
	if !errors.Is(err, ErrDistanceNotFound) {
		t.Fatalf("err = %v, want ErrDistanceNotFound", err)
	}
}

func TestResolverFactoryBuildsPerRun(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.DebugLevel)

	factory := NewResolverFactory(nil, logger)

	first := factory(domain.DistanceTables{BlockMatrix: []domain.DistanceRow{{Origin: "C1", Destination: "C2", Meters: 100}}})
	second := factory(domain.DistanceTables{BlockMatrix: []domain.DistanceRow{{Origin: "C1", Destination: "C2", Meters: 130}}})

	if got := first.Resolve("C1", "C2").Meters; got != 100 {
		t.Fatalf("first resolver = %d, want 100", got)
	}
	if got := second.Resolve("C1", "C2").Meters; got != 130 {
		t.Fatalf("second resolver = %d, want 130", got)
	}
}
