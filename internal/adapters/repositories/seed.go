package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	"yard-kpi-service/internal/domain"
	"yard-kpi-service/internal/platform/db"
)

type DistanceRowSeed struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Meters      int    `json:"meters"`
}

type DistanceSeed struct {
	BlockMatrix   []DistanceRowSeed `json:"block_matrix"`
	BlockGateSite []DistanceRowSeed `json:"block_gate_site"`
	Generic       []DistanceRowSeed `json:"generic"`
}

type MovementSeed struct {
	Timestamp   time.Time `json:"timestamp"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	Kind        string    `json:"kind"`
	Segregation string    `json:"segregation"`
	Category    string    `json:"category"`
	ContainerID string    `json:"container_id"`
	Day         int       `json:"day"`
	Shift       int       `json:"shift"`
}

// ModelSeed is one optimizer row. Index carries the legacy textual key
// ('segregation','block',period) and fills the structured fields it names.
type ModelSeed struct {
	Index         string `json:"index"`
	Segregation   string `json:"segregation"`
	Block         string `json:"block"`
	Period        int    `json:"period"`
	Receive       int    `json:"receive"`
	Load          int    `json:"load"`
	Discharge     int    `json:"discharge"`
	Deliver       int    `json:"deliver"`
	Volume        int    `json:"volume"`
	OccupiedUnits int    `json:"occupied_units"`
}

type ModelDistanceSeed struct {
	TotalMeters   int `json:"total_meters"`
	LoadMeters    int `json:"load_meters"`
	DeliverMeters int `json:"deliver_meters"`
	DeliverCount  int `json:"deliver_count"`
	LoadCount     int `json:"load_count"`
}

type OccupancySeed struct {
	Block    string  `json:"block"`
	Period   int     `json:"period"`
	Occupied float64 `json:"occupied"`
	Capacity float64 `json:"capacity"`
}

type WorkloadSeed struct {
	Block    string  `json:"block"`
	Period   int     `json:"period"`
	Workload float64 `json:"workload"`
}

// SeedDataset is the JSON ingestion format for one instance plus the shared distance tables.
type SeedDataset struct {
	Instance      string             `json:"instance"`
	WindowStart   *time.Time         `json:"window_start"`
	Distances     DistanceSeed       `json:"distances"`
	Movements     []MovementSeed     `json:"movements"`
	Model         []ModelSeed        `json:"model"`
	ModelDistance *ModelDistanceSeed `json:"model_distance"`
	Occupancy     []OccupancySeed    `json:"occupancy"`
	Workload      []WorkloadSeed     `json:"workload"`
}

var modelIndexPattern = regexp.MustCompile(`^\(\s*'([^']*)'\s*,\s*'([^']*)'\s*,\s*(-?[0-9]+)\s*\)$`)

// ParseModelIndex splits a legacy key such as ('s8','b1',4) into its fields.
func ParseModelIndex(s string) (segregation, block string, period int, err error) {
	m := modelIndexPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", "", 0, fmt.Errorf("parse model index %q: expected ('segregation','block',period)", s)
	}
	period, err = strconv.Atoi(m[3])
	if err != nil || period <= 0 {
		return "", "", 0, fmt.Errorf("parse model index %q: period must be a positive integer", s)
	}
	return m[1], m[2], period, nil
}

// Aggregate builds the model row, reconciling the legacy index with explicit fields.
func (m ModelSeed) Aggregate() (domain.ModelMovementAggregate, error) {
	a := domain.ModelMovementAggregate{
		Segregation:   strings.TrimSpace(m.Segregation),
		Block:         strings.TrimSpace(m.Block),
		Period:        m.Period,
		Receive:       m.Receive,
		Load:          m.Load,
		Discharge:     m.Discharge,
		Deliver:       m.Deliver,
		Volume:        m.Volume,
		OccupiedUnits: m.OccupiedUnits,
	}

	if m.Index != "" {
		seg, block, period, err := ParseModelIndex(m.Index)
		if err != nil {
			return a, err
		}
		if (a.Segregation != "" && a.Segregation != seg) || (a.Block != "" && a.Block != block) || (a.Period != 0 && a.Period != period) {
			return a, fmt.Errorf("model index %q disagrees with explicit fields (%s, %s, %d)", m.Index, a.Segregation, a.Block, a.Period)
		}
		a.Segregation, a.Block, a.Period = seg, block, period
	}

	if a.Block == "" || a.Period <= 0 {
		return a, errors.New("model row needs a block and a positive period")
	}
	if a.Receive < 0 || a.Load < 0 || a.Discharge < 0 || a.Deliver < 0 || a.Volume < 0 || a.OccupiedUnits < 0 {
		return a, errors.New("model row counts must not be negative")
	}
	return a, nil
}

// Record builds the movement, deriving the period from the timestamp when it was not given.
func (m MovementSeed) Record(windowStart time.Time) (domain.MovementRecord, error) {
	r := domain.MovementRecord{
		Timestamp:   m.Timestamp.UTC(),
		Origin:      strings.TrimSpace(m.Origin),
		Destination: strings.TrimSpace(m.Destination),
		RawKind:     strings.TrimSpace(m.Kind),
		Segregation: strings.TrimSpace(m.Segregation),
		Category:    strings.TrimSpace(m.Category),
		ContainerID: strings.TrimSpace(m.ContainerID),
		Period:      domain.Period{Day: m.Day, Shift: m.Shift},
	}

	if m.Timestamp.IsZero() {
		return r, errors.New("movement timestamp is required")
	}
	if r.Period.Day == 0 && r.Period.Shift == 0 {
		r.Period = domain.PeriodFor(windowStart, m.Timestamp)
	}
	if r.Period.Day <= 0 || r.Period.Shift < 1 || r.Period.Shift > domain.ShiftsPerDay {
		return r, fmt.Errorf("invalid period %s", r.Period)
	}
	return r, nil
}

func distanceRows(in []DistanceRowSeed) []domain.DistanceRow {
	out := make([]domain.DistanceRow, 0, len(in))
	for _, r := range in {
		out = append(out, domain.DistanceRow{Origin: r.Origin, Destination: r.Destination, Meters: r.Meters})
	}
	return out
}

// Populate the database with one instance's dataset from a JSON file.
func SeedFromJSON(ctx context.Context, sqlDB *sql.DB, driver, jsonPath string) (domain.InstanceKey, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return domain.InstanceKey{}, fmt.Errorf("seed dataset: read %q: %w", jsonPath, err)
	}

	var ds SeedDataset
	if err := json.Unmarshal(bytes, &ds); err != nil {
		return domain.InstanceKey{}, fmt.Errorf("seed dataset: parse json: %w", err)
	}

	return ds.Seed(ctx, sqlDB, driver)
}

// Seed validates the dataset, upserts the distance tables and replaces every
// input row of the instance in one transaction.
func (ds SeedDataset) Seed(ctx context.Context, sqlDB *sql.DB, driver string) (domain.InstanceKey, error) {
	key, err := domain.ParseInstanceKey(ds.Instance)
	if err != nil {
		return key, fmt.Errorf("seed dataset: %w", err)
	}

	windowStart := key.StartDate
	if ds.WindowStart != nil {
		windowStart = *ds.WindowStart
	}

	movements := make([]domain.MovementRecord, 0, len(ds.Movements))
	for i, m := range ds.Movements {
		r, err := m.Record(windowStart)
		if err != nil {
			return key, fmt.Errorf("seed dataset: movement at index %d: %w", i+1, err)
		}
		movements = append(movements, r)
	}

	model := make([]domain.ModelMovementAggregate, 0, len(ds.Model))
	for i, m := range ds.Model {
		a, err := m.Aggregate()
		if err != nil {
			return key, fmt.Errorf("seed dataset: model row at index %d: %w", i+1, err)
		}
		model = append(model, a)
	}

	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return key, fmt.Errorf("seed dataset: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	tables := map[domain.DistanceSource][]DistanceRowSeed{
		domain.SourceBlockMatrix:   ds.Distances.BlockMatrix,
		domain.SourceBlockGateSite: ds.Distances.BlockGateSite,
		domain.SourceGeneric:       ds.Distances.Generic,
	}
	for _, source := range []domain.DistanceSource{domain.SourceBlockMatrix, domain.SourceBlockGateSite, domain.SourceGeneric} {
		if rows := tables[source]; len(rows) > 0 {
			if err := putDistanceRows(ctx, tx, driver, source, distanceRows(rows)); err != nil {
				return key, fmt.Errorf("seed dataset: %w", err)
			}
		}
	}

	w := seedWriter{ctx: ctx, tx: tx, driver: driver, instance: key.Code()}
	for _, table := range []string{"movements", "model_aggregates", "model_distance_summaries", "occupancy_samples", "workload_samples"} {
		w.exec("delete "+table, `DELETE FROM `+table+` WHERE instance = ?;`, w.instance)
	}

	for i, m := range movements {
		w.exec("insert movement", `
		INSERT INTO movements (
			instance, seq, occurred_at, origin, destination, raw_kind,
			segregation, category, container_id, period_day, period_shift
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
		`, w.instance, i+1, m.Timestamp.Format(time.RFC3339Nano), m.Origin, m.Destination, m.RawKind,
			m.Segregation, m.Category, m.ContainerID, m.Period.Day, m.Period.Shift)
	}

	for _, a := range model {
		w.exec("insert model aggregate", `
		INSERT INTO model_aggregates (
			instance, segregation, block, period, receive_count, load_count,
			discharge_count, deliver_count, volume, occupied_units
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
		`, w.instance, a.Segregation, a.Block, a.Period, a.Receive, a.Load, a.Discharge, a.Deliver, a.Volume, a.OccupiedUnits)
	}

	if md := ds.ModelDistance; md != nil {
		w.exec("insert model distance summary", `
		INSERT INTO model_distance_summaries (
			instance, total_meters, load_meters, deliver_meters, deliver_count, load_count
		)
		VALUES (?, ?, ?, ?, ?, ?);
		`, w.instance, md.TotalMeters, md.LoadMeters, md.DeliverMeters, md.DeliverCount, md.LoadCount)
	}

	for _, o := range ds.Occupancy {
		w.exec("insert occupancy", `
		INSERT INTO occupancy_samples (instance, block, period, occupied, capacity)
		VALUES (?, ?, ?, ?, ?);
		`, w.instance, strings.TrimSpace(o.Block), o.Period, o.Occupied, o.Capacity)
	}

	for _, l := range ds.Workload {
		w.exec("insert workload", `
		INSERT INTO workload_samples (instance, block, period, workload)
		VALUES (?, ?, ?, ?);
		`, w.instance, strings.TrimSpace(l.Block), l.Period, l.Workload)
	}

	if w.err != nil {
		return key, fmt.Errorf("seed dataset: %w", w.err)
	}

	if err := tx.Commit(); err != nil {
		return key, fmt.Errorf("seed dataset: commit tx: %w", err)
	}

	return key, nil
}

// seedWriter stops at the first failed statement and keeps its error.
type seedWriter struct {
	ctx      context.Context
	tx       *sql.Tx
	driver   string
	instance string
	err      error
}

func (w *seedWriter) exec(step, query string, args ...any) {
	if w.err != nil {
		return
	}
	if _, err := w.tx.ExecContext(w.ctx, db.Rebind(w.driver, query), args...); err != nil {
		w.err = fmt.Errorf("%s: %w", step, err)
	}
}
