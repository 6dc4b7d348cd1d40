package services

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"yard-kpi-service/internal/domain"

	"golang.org/x/sync/errgroup"
)

const DefaultClassifyBatchSize = 5000

var rawKinds = map[string]domain.MovementKind{
	"YARD":       domain.KindRelocation,
	"RELOCATION": domain.KindRelocation,
	"DLVR":       domain.KindDeliver,
	"DELIVER":    domain.KindDeliver,
	"DELIVERY":   domain.KindDeliver,
	"LOAD":       domain.KindLoad,
	"RECV":       domain.KindReceive,
	"RECEIVE":    domain.KindReceive,
	"DSCH":       domain.KindDischarge,
	"DISCHARGE":  domain.KindDischarge,
	"SHFT":       domain.KindShift,
	"SHIFT":      domain.KindShift,
	"OTHR":       domain.KindOther,
	"OTHER":      domain.KindOther,
}

// ClassifyMovement maps a raw movement-kind string to its semantic bucket.
// Unknown strings fall into OTHER.
func ClassifyMovement(raw string) domain.MovementKind {
	k, _ := lookupKind(raw)
	return k
}

func lookupKind(raw string) (domain.MovementKind, bool) {
	k, ok := rawKinds[strings.ToUpper(strings.TrimSpace(raw))]
	if !ok {
		return domain.KindOther, false
	}
	return k, true
}

// IsOperational reports whether a kind is addressable by the optimizer.
// The set is fixed: relocations, deliveries and loads.
func IsOperational(k domain.MovementKind) bool {
	return k == domain.KindRelocation || k == domain.KindDeliver || k == domain.KindLoad
}

// OperationalSubset returns the records whose kind is operational, in input order.
func OperationalSubset(records []domain.MovementRecord) []domain.MovementRecord {
	out := make([]domain.MovementRecord, 0, len(records))
	for _, r := range records {
		if IsOperational(ClassifyMovement(r.RawKind)) {
			out = append(out, r)
		}
	}
	return out
}

// Result of classifying a movement stream. Kinds is parallel to the input records.
type Classification struct {
	Kinds        []domain.MovementKind
	Counts       map[domain.MovementKind]int
	Unrecognized map[string]int
}

func (c Classification) Count(k domain.MovementKind) int { return c.Counts[k] }

// Total returns the sum of the per-kind counts.
func (c Classification) Total() int {
	n := 0
	for _, v := range c.Counts {
		n += v
	}
	return n
}

func (c Classification) Operational() int {
	return c.Counts[domain.KindRelocation] + c.Counts[domain.KindDeliver] + c.Counts[domain.KindLoad]
}

func (c Classification) UnrecognizedTotal() int {
	n := 0
	for _, v := range c.Unrecognized {
		n += v
	}
	return n
}

type classifyBatch struct {
	counts       map[domain.MovementKind]int
	unrecognized map[string]int
}

// ClassifyMovements classifies records in parallel batches and reduces the
// per-batch tallies once every batch has finished.
func ClassifyMovements(ctx context.Context, records []domain.MovementRecord, batchSize int) (Classification, error) {
	if batchSize <= 0 {
		batchSize = DefaultClassifyBatchSize
	}

	kinds := make([]domain.MovementKind, len(records))
	batches := make([]classifyBatch, (len(records)+batchSize-1)/batchSize)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := range batches {
		start := i * batchSize
		end := min(start+batchSize, len(records))

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			b := classifyBatch{
				counts:       make(map[domain.MovementKind]int, len(rawKinds)),
				unrecognized: map[string]int{},
			}
			for j := start; j < end; j++ {
				k, ok := lookupKind(records[j].RawKind)
				if !ok {
					b.unrecognized[strings.TrimSpace(records[j].RawKind)]++
				}
				kinds[j] = k
				b.counts[k]++
			}
			batches[i] = b
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Classification{}, fmt.Errorf("classify movements: %w", err)
	}

	out := Classification{
		Kinds:        kinds,
		Counts:       make(map[domain.MovementKind]int, len(domain.AllMovementKinds())),
		Unrecognized: map[string]int{},
	}
	for _, k := range domain.AllMovementKinds() {
		out.Counts[k] = 0
	}
	for _, b := range batches {
		for k, v := range b.counts {
			out.Counts[k] += v
		}
		for raw, v := range b.unrecognized {
			out.Unrecognized[raw] += v
		}
	}

	return out, nil
}

// classifyAll is the sequential form used when no precomputed classification is supplied.
func classifyAll(records []domain.MovementRecord) Classification {
	out := Classification{
		Kinds:        make([]domain.MovementKind, len(records)),
		Counts:       make(map[domain.MovementKind]int, len(domain.AllMovementKinds())),
		Unrecognized: map[string]int{},
	}
	for _, k := range domain.AllMovementKinds() {
		out.Counts[k] = 0
	}
	for i, r := range records {
		k, ok := lookupKind(r.RawKind)
		if !ok {
			out.Unrecognized[strings.TrimSpace(r.RawKind)]++
		}
		out.Kinds[i] = k
		out.Counts[k]++
	}
	return out
}
