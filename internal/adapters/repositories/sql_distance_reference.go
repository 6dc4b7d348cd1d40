package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"yard-kpi-service/internal/domain"
	"yard-kpi-service/internal/platform/db"
	"yard-kpi-service/internal/platform/obs"
)

// SQLDistanceReference stores the three distance reference tables.
// Rows keep the raw location codes; normalization happens when a resolver is built.
type SQLDistanceReference struct {
	DB     *sql.DB
	Driver string
}

func NewSQLDistanceReference(sqlDB *sql.DB, driver string) *SQLDistanceReference {
	return &SQLDistanceReference{DB: sqlDB, Driver: driver}
}

// Store rows of one source table. A repeated (origin, destination) pair
// overwrites the stored distance.
func (s *SQLDistanceReference) PutRows(ctx context.Context, source domain.DistanceSource, rows []domain.DistanceRow) (err error) {
	defer obs.Time(ctx, "distance.reference.PutRows")(&err)

	if s.DB == nil {
		return errors.New("distance reference: db is nil")
	}
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put distance rows: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := putDistanceRows(ctx, tx, s.Driver, source, rows); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put distance rows: commit: %w", err)
	}
	return nil
}

func putDistanceRows(ctx context.Context, tx *sql.Tx, driver string, source domain.DistanceSource, rows []domain.DistanceRow) error {
	stmt, err := tx.PrepareContext(ctx, db.Rebind(driver, `
	INSERT INTO distance_reference (source, origin, destination, distance_meters)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (source, origin, destination) DO UPDATE
	SET distance_meters = EXCLUDED.distance_meters;
	`))
	if err != nil {
		return fmt.Errorf("put distance rows: db prepare: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		origin := strings.TrimSpace(r.Origin)
		dest := strings.TrimSpace(r.Destination)
		if origin == "" || dest == "" {
			return fmt.Errorf("put distance rows: %s row %d: empty endpoint", source, i+1)
		}
		if r.Meters < 0 {
			return fmt.Errorf("put distance rows: %s row %d (%s -> %s): negative distance %d", source, i+1, origin, dest, r.Meters)
		}

		if _, err := stmt.ExecContext(ctx, string(source), origin, dest, r.Meters); err != nil {
			return fmt.Errorf("put distance rows: %s %q -> %q: %w", source, origin, dest, err)
		}
	}
	return nil
}

// Return all reference rows grouped by source table.
func (s *SQLDistanceReference) LoadDistanceTables(ctx context.Context) (_ domain.DistanceTables, err error) {
	defer obs.Time(ctx, "distance.reference.LoadDistanceTables")(&err)

	var out domain.DistanceTables
	if s.DB == nil {
		return out, errors.New("distance reference: db is nil")
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT source, origin, destination, distance_meters
	FROM distance_reference
	ORDER BY source, origin, destination;
	`)
	if err != nil {
		return out, fmt.Errorf("load distance tables: query distance_reference table: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var source string
		var r domain.DistanceRow
		if err := rows.Scan(&source, &r.Origin, &r.Destination, &r.Meters); err != nil {
			return out, fmt.Errorf("load distance tables: scan row: %w", err)
		}

		switch domain.DistanceSource(source) {
		case domain.SourceBlockMatrix:
			out.BlockMatrix = append(out.BlockMatrix, r)
		case domain.SourceBlockGateSite:
			out.BlockGateSite = append(out.BlockGateSite, r)
		default:
			out.Generic = append(out.Generic, r)
		}
	}
	if err := rows.Err(); err != nil {
		return out, fmt.Errorf("load distance tables: row iteration: %w", err)
	}

	return out, nil
}
