package distance

import (
	"context"
	"fmt"
	"strings"
	"yard-kpi-service/internal/domain"
	"yard-kpi-service/internal/ports"
)

type MockPair struct {
	From, To string
	Meters   int
}

// MockDistanceProvider answers lookups from a fixed pair list without normalization.
// Endpoints listed in Special resolve as skipped.
type MockDistanceProvider struct {
	m       map[string]int
	Special map[string]bool
	calls   int
}

func NewMockDistanceProvider(pairs []MockPair, special ...string) *MockDistanceProvider {
	m := make(map[string]int, len(pairs))
	for _, p := range pairs {
		m[p.From+"|"+p.To] = p.Meters
	}
	sp := make(map[string]bool, len(special))
	for _, s := range special {
		sp[s] = true
	}
	return &MockDistanceProvider{m: m, Special: sp}
}

func (p *MockDistanceProvider) Resolve(origin, destination string) domain.DistanceLookup {
	p.calls++
	res := domain.DistanceLookup{
		Origin:      domain.LocationCode{Code: strings.ToUpper(origin), Kind: domain.LocationOther},
		Destination: domain.LocationCode{Code: strings.ToUpper(destination), Kind: domain.LocationOther},
		Outcome:     domain.LookupNotFound,
	}
	if p.Special[origin] || p.Special[destination] {
		res.Outcome = domain.LookupSkippedSpecial
		return res
	}
	if m, ok := p.m[origin+"|"+destination]; ok {
		res.Outcome = domain.LookupFound
		res.Meters = m
		res.Source = domain.SourceGeneric
	}
	return res
}

// Calls returns how many lookups were made. Not safe for concurrent use.
func (p *MockDistanceProvider) Calls() int { return p.calls }

func (p *MockDistanceProvider) GetDistance(ctx context.Context, origin, destination string) (ports.DistanceResult, error) {
	r := p.Resolve(origin, destination)
	if !r.Found() {
		return ports.DistanceResult{}, fmt.Errorf("%w: missing pair %q -> %q", ports.ErrDistanceNotFound, origin, destination)
	}

	return ports.DistanceResult{
		Origin:         r.Origin.Code,
		Destination:    r.Destination.Code,
		DistanceMeters: r.Meters,
		Source:         r.Source,
	}, nil
}
