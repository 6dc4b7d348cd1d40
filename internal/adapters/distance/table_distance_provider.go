package distance

import (
	"context"
	"fmt"
	"sort"
	"yard-kpi-service/internal/domain"
	"yard-kpi-service/internal/location"
	"yard-kpi-service/internal/ports"

	"github.com/sirupsen/logrus"
)

var ErrDistanceNotFound = ports.ErrDistanceNotFound

// Counters collected while merging the reference tables.
type BuildStats struct {
	Rows             int
	Edges            int
	Mirrored         int
	Overwritten      int
	RejectedNegative int
	RejectedSpecial  int
	RejectedEmpty    int
}

// Rejected returns the number of source rows that produced no edge.
func (s BuildStats) Rejected() int {
	return s.RejectedNegative + s.RejectedSpecial + s.RejectedEmpty
}

// TableDistanceProvider resolves yard distances from a directed edge map merged
// once from the distance reference tables. It is read-only after construction.
type TableDistanceProvider struct {
	normalizer *location.Normalizer
	edges      map[string]domain.DistanceEdge
	stats      BuildStats
}

// NewResolverFactory returns a constructor that builds a provider per run and
// logs how the reference tables merged.
func NewResolverFactory(normalizer *location.Normalizer, logger *logrus.Logger) func(domain.DistanceTables) ports.DistanceResolver {
	return func(tables domain.DistanceTables) ports.DistanceResolver {
		p := NewTableDistanceProvider(tables, normalizer)
		if logger != nil {
			st := p.Stats()
			logger.WithFields(logrus.Fields{
				"rows":              st.Rows,
				"edges":             st.Edges,
				"mirrored":          st.Mirrored,
				"overwritten":       st.Overwritten,
				"rejected_negative": st.RejectedNegative,
				"rejected_special":  st.RejectedSpecial,
				"rejected_empty":    st.RejectedEmpty,
			}).Debug("distance reference merged")
		}
		return p
	}
}

func NewTableDistanceProvider(tables domain.DistanceTables, normalizer *location.Normalizer) *TableDistanceProvider {
	if normalizer == nil {
		normalizer = location.NewNormalizer(location.DefaultOptions())
	}

	p := &TableDistanceProvider{
		normalizer: normalizer,
		edges:      make(map[string]domain.DistanceEdge, tables.Len()*2),
	}

	// Block pairs are directed exactly as listed.
	for _, row := range tables.BlockMatrix {
		p.add(row, domain.SourceBlockMatrix, false)
	}
	// Block to gate/site distances are listed once for both directions.
	for _, row := range tables.BlockGateSite {
		p.add(row, domain.SourceBlockGateSite, true)
	}
	for _, row := range tables.Generic {
		p.add(row, domain.SourceGeneric, false)
	}

	p.stats.Edges = len(p.edges)
	return p
}

func (p *TableDistanceProvider) add(row domain.DistanceRow, source domain.DistanceSource, symmetric bool) {
	p.stats.Rows++

	if row.Meters < 0 {
		p.stats.RejectedNegative++
		return
	}

	origin := p.normalizer.Normalize(row.Origin)
	destination := p.normalizer.Normalize(row.Destination)
	if origin.Code == "" || destination.Code == "" {
		p.stats.RejectedEmpty++
		return
	}
	if origin.Kind == domain.LocationSpecial || destination.Kind == domain.LocationSpecial {
		p.stats.RejectedSpecial++
		return
	}

	p.put(domain.DistanceEdge{
		Origin:      origin,
		Destination: destination,
		Meters:      row.Meters,
		Source:      source,
	})

	if symmetric || origin.Symmetric() || destination.Symmetric() {
		p.put(domain.DistanceEdge{
			Origin:      destination,
			Destination: origin,
			Meters:      row.Meters,
			Source:      source,
			Mirrored:    true,
		})
	}
}

// put stores an edge. Listed edges always replace; a mirrored edge never
// replaces a listed one.
func (p *TableDistanceProvider) put(e domain.DistanceEdge) {
	k := edgeKey(e.Origin.Code, e.Destination.Code)
	prev, ok := p.edges[k]
	if ok {
		if e.Mirrored && !prev.Mirrored {
			return
		}
		p.stats.Overwritten++
	}
	if e.Mirrored {
		p.stats.Mirrored++
	}
	p.edges[k] = e
}

func edgeKey(origin, destination string) string {
	return origin + "|" + destination
}

// Stats returns the counters collected while building the edge map.
func (p *TableDistanceProvider) Stats() BuildStats {
	return p.stats
}

// Edges returns the merged edge map ordered by origin then destination.
func (p *TableDistanceProvider) Edges() []domain.DistanceEdge {
	out := make([]domain.DistanceEdge, 0, len(p.edges))
	for _, e := range p.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Origin.Code != out[j].Origin.Code {
			return out[i].Origin.Code < out[j].Origin.Code
		}
		return out[i].Destination.Code < out[j].Destination.Code
	})
	return out
}

// Resolve normalizes both endpoints and looks up the directed edge, then the
// reversed pair. Special endpoints are skipped without a lookup.
func (p *TableDistanceProvider) Resolve(origin, destination string) domain.DistanceLookup {
	res := domain.DistanceLookup{
		Origin:      p.normalizer.Normalize(origin),
		Destination: p.normalizer.Normalize(destination),
		Outcome:     domain.LookupNotFound,
	}

	if res.Origin.Kind == domain.LocationSpecial || res.Destination.Kind == domain.LocationSpecial {
		res.Outcome = domain.LookupSkippedSpecial
		return res
	}
	if res.Origin.Code == "" || res.Destination.Code == "" {
		return res
	}

	if e, ok := p.edges[edgeKey(res.Origin.Code, res.Destination.Code)]; ok {
		res.Outcome = domain.LookupFound
		res.Meters = e.Meters
		res.Source = e.Source
		return res
	}
	if e, ok := p.edges[edgeKey(res.Destination.Code, res.Origin.Code)]; ok {
		res.Outcome = domain.LookupFound
		res.Meters = e.Meters
		res.Source = e.Source
		res.Reversed = true
	}

	return res
}

// GetDistance implements ports.DistanceProvider over the merged edge map.
func (p *TableDistanceProvider) GetDistance(ctx context.Context, origin, destination string) (ports.DistanceResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.DistanceResult{}, err
	}

	lookup := p.Resolve(origin, destination)
	if !lookup.Found() {
		return ports.DistanceResult{}, fmt.Errorf("%w: %q -> %q (%s)", ErrDistanceNotFound, origin, destination, lookup.Outcome)
	}

	return ports.DistanceResult{
		Origin:         lookup.Origin.Code,
		Destination:    lookup.Destination.Code,
		DistanceMeters: lookup.Meters,
		Source:         lookup.Source,
		Reversed:       lookup.Reversed,
	}, nil
}

// NewProviderFactory returns a constructor for point lookups over freshly loaded tables.
func NewProviderFactory(normalizer *location.Normalizer) func(domain.DistanceTables) ports.DistanceProvider {
	return func(tables domain.DistanceTables) ports.DistanceProvider {
		return NewTableDistanceProvider(tables, normalizer)
	}
}
