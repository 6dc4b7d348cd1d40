package location

import (
	"testing"
	"yard-kpi-service/internal/domain"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer(DefaultOptions())

	tests := []struct {
		raw  string
		code string
		kind domain.LocationKind
		yard string
	}{
		{raw: "C1", code: "C1", kind: domain.LocationBlock, yard: "costanera"},
		{raw: " c01 ", code: "C1", kind: domain.LocationBlock, yard: "costanera"},
		{raw: "Y-SAI-C3-12", code: "C3", kind: domain.LocationBlock, yard: "costanera"},
		{raw: "Y-SAI-H5", code: "H5", kind: domain.LocationBlock, yard: "ohiggins"},
		{raw: "SAI-T02", code: "T2", kind: domain.LocationBlock, yard: "tebas"},
		{raw: "AB12", code: "AB12", kind: domain.LocationBlock},
		{raw: "C3-04-2", code: "C3", kind: domain.LocationBlock, yard: "costanera"},
		{raw: "GATE-01", code: "GATE-1", kind: domain.LocationGate},
		{raw: "puerta 3", code: "GATE-3", kind: domain.LocationGate},
		{raw: "Gate In", code: "GATE-1", kind: domain.LocationGate},
		{raw: "Sitio  Sur", code: "SITIO-SUR", kind: domain.LocationSite},
		{raw: "south site", code: "SITIO-SUR", kind: domain.LocationSite},
		{raw: "SITIO-NORTE", code: "SITIO-NORTE", kind: domain.LocationSite},
		{raw: "GATE", code: "GATE", kind: domain.LocationSpecial},
		{raw: "vessel", code: "VESSEL", kind: domain.LocationSpecial},
		{raw: "Y-SAI-RAMP", code: "Y-SAI-RAMP", kind: domain.LocationSpecial},
		{raw: "Y-SAI-M10", code: "Y-SAI-M10", kind: domain.LocationSpecial},
		{raw: "M10", code: "M10", kind: domain.LocationSpecial},
		{raw: "Y-SAI-M10-3", code: "M10", kind: domain.LocationSpecial},
		{raw: "M10-2", code: "M10", kind: domain.LocationSpecial},
		{raw: "Y-SAI-RAMP-2", code: "RAMP", kind: domain.LocationSpecial},
		{raw: "VESSEL 4", code: "VESSEL", kind: domain.LocationSpecial},
		{raw: "warehouse 7", code: "WAREHOUSE 7", kind: domain.LocationOther},
		{raw: "C123", code: "C123", kind: domain.LocationOther},
		{raw: "   ", code: "", kind: domain.LocationOther},
	}

	for _, tt := range tests {
		got := n.Normalize(tt.raw)
		if got.Code != tt.code || got.Kind != tt.kind || got.Yard != tt.yard {
			t.Fatalf("Normalize(%q) = %+v, want {Code:%s Kind:%s Yard:%s}", tt.raw, got, tt.code, tt.kind, tt.yard)
		}
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	n := NewNormalizer(Options{})
	inputs := []string{"Y-SAI-C3-12", "SITIO SUR", "GATE-2", "VESSEL", "???"}
	for _, in := range inputs {
		a, b := n.Normalize(in), n.Normalize(in)
		if a != b {
			t.Fatalf("Normalize(%q) not stable: %+v vs %+v", in, a, b)
		}
	}
}

func TestNormalizeCustomOptions(t *testing.T) {
	n := NewNormalizer(Options{
		Prefixes:      []string{"YARD-"},
		Aliases:       map[string]string{"main gate": "GATE-9"},
		SpecialTokens: []string{"TRUCK"},
		Yards:         map[string]string{"Z": "zeta"},
	})

	if got := n.Normalize("yard-z4"); got.Code != "Z4" || got.Yard != "zeta" {
		t.Fatalf("Normalize(yard-z4) = %+v, want Z4 in zeta", got)
	}
	if got := n.Normalize("Main Gate"); got.Code != "GATE-9" || got.Kind != domain.LocationGate {
		t.Fatalf("Normalize(Main Gate) = %+v, want GATE-9 gate", got)
	}
	if got := n.Normalize("truck"); got.Kind != domain.LocationSpecial {
		t.Fatalf("Normalize(truck) kind = %s, want special", got.Kind)
	}
	// Default specials are replaced, not merged.
	if got := n.Normalize("VESSEL"); got.Kind != domain.LocationOther {
		t.Fatalf("Normalize(VESSEL) kind = %s, want other", got.Kind)
	}
}
