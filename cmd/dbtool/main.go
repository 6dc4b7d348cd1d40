package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"yard-kpi-service/internal/adapters/cache"
	"yard-kpi-service/internal/adapters/distance"
	"yard-kpi-service/internal/adapters/repositories"
	"yard-kpi-service/internal/api/dto"
	"yard-kpi-service/internal/config"
	"yard-kpi-service/internal/domain"
	"yard-kpi-service/internal/location"
	"yard-kpi-service/internal/platform/db"
	"yard-kpi-service/internal/platform/obs"
	"yard-kpi-service/internal/ports"
	"yard-kpi-service/internal/services"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "dbtool",
		Usage: "Schema, dataset and reconciliation maintenance",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Apply pending schema migrations",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withDB(ctx, func(ctx context.Context, sqlDB *sql.DB, driver string, _ *config.Config, logger *logrus.Logger) error {
						logger.Info("schema ready")
						return nil
					})
				},
			},
			{
				Name:  "seed",
				Usage: "Load one instance dataset from a JSON file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Value: config.Get("SEED_PATH", "data/seeds/dataset.json"), Usage: "dataset JSON path"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withDB(ctx, func(ctx context.Context, sqlDB *sql.DB, driver string, _ *config.Config, logger *logrus.Logger) error {
						key, err := repositories.SeedFromJSON(ctx, sqlDB, driver, c.String("file"))
						if err != nil {
							return err
						}
						logger.WithFields(logrus.Fields{"instance": key.Code(), "file": c.String("file")}).Info("seeding complete")
						return nil
					})
				},
			},
			{
				Name:  "import-distances",
				Usage: "Upsert one distance reference table from a CSV of origin,destination,meters",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Required: true, Usage: "CSV path"},
					&cli.StringFlag{Name: "source", Value: string(domain.SourceGeneric), Usage: "block_matrix, block_gate_site or generic"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					source := domain.DistanceSource(c.String("source"))
					switch source {
					case domain.SourceBlockMatrix, domain.SourceBlockGateSite, domain.SourceGeneric:
					default:
						return fmt.Errorf("unknown distance source %q", source)
					}

					rows, err := readDistanceCSV(c.String("file"))
					if err != nil {
						return err
					}
					return withDB(ctx, func(ctx context.Context, sqlDB *sql.DB, driver string, _ *config.Config, logger *logrus.Logger) error {
						if err := repositories.NewSQLDistanceReference(sqlDB, driver).PutRows(ctx, source, rows); err != nil {
							return err
						}
						logger.WithFields(logrus.Fields{"source": source, "rows": len(rows)}).Info("distance table imported")
						return nil
					})
				},
			},
			{
				Name:  "distance",
				Usage: "Look up the reference distance between two locations",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Required: true, Usage: "origin location"},
					&cli.StringFlag{Name: "to", Required: true, Usage: "destination location"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withDB(ctx, func(ctx context.Context, sqlDB *sql.DB, driver string, _ *config.Config, _ *logrus.Logger) error {
						tables, err := repositories.NewSQLDistanceReference(sqlDB, driver).LoadDistanceTables(ctx)
						if err != nil {
							return err
						}

						var provider ports.DistanceProvider = distance.NewTableDistanceProvider(tables, location.NewNormalizer(location.DefaultOptions()))
						res, err := provider.GetDistance(ctx, c.String("from"), c.String("to"))
						if err != nil {
							return err
						}
						fmt.Printf("%s -> %s: %d m (%s, reversed=%t)\n", res.Origin, res.Destination, res.DistanceMeters, res.Source, res.Reversed)
						return nil
					})
				},
			},
			{
				Name:  "reconcile",
				Usage: "Run the reconciliation for one instance and print its summary",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "instance", Required: true, Usage: "instance code, e.g. 20220103_68_K"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					key, err := domain.ParseInstanceKey(c.String("instance"))
					if err != nil {
						return err
					}
					return withDB(ctx, func(ctx context.Context, sqlDB *sql.DB, driver string, cfg *config.Config, logger *logrus.Logger) error {
						rec := services.NewReconciler(
							repositories.NewSQLDatasetSource(sqlDB, driver),
							repositories.NewSQLResultRepository(sqlDB, driver),
							distance.NewResolverFactory(location.NewNormalizer(location.DefaultOptions()), logger),
						)
						rec.Logger = logger
						rec.BatchSize = cfg.Engine.ClassifyBatchSize

						// Drop the shared dashboard entry so running servers see the new run.
						if cfg.Cache.RedisAddr != "" {
							client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
							defer client.Close()
							rec.Cache = cache.NewRedisDashboardCache(client, "", cfg.Cache.Capacity)
						}

						sum, err := rec.Reconcile(ctx, key)
						if err != nil {
							return err
						}

						enc := json.NewEncoder(os.Stdout)
						enc.SetIndent("", "  ")
						return enc.Encode(dto.NewSummaryResponse(*sum))
					})
				},
			},
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		obs.Logger().Fatal(err)
	}
}

// withDB loads config, opens the database and applies migrations before fn.
func withDB(ctx context.Context, fn func(context.Context, *sql.DB, string, *config.Config, *logrus.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := obs.NewLogger(cfg.Log.Level)

	driver, err := db.NormalizeDriver(cfg.Database.Driver)
	if err != nil {
		return err
	}

	sqlDB, err := db.Open(driver, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	logger.WithField("driver", driver).Info("initializing database schema")
	if err := repositories.Migrate(ctx, sqlDB, driver); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}

	return fn(ctx, sqlDB, driver, cfg, logger)
}

// readDistanceCSV reads origin,destination,meters rows. A first row whose
// meters column is not a number is treated as a header.
func readDistanceCSV(path string) ([]domain.DistanceRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read distances: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 3
	r.TrimLeadingSpace = true

	var rows []domain.DistanceRow
	for line := 1; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read distances: %w", err)
		}

		meters, err := strconv.Atoi(strings.TrimSpace(rec[2]))
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("read distances: line %d: meters %q: %w", line, rec[2], err)
		}
		rows = append(rows, domain.DistanceRow{Origin: rec[0], Destination: rec[1], Meters: meters})
	}
	return rows, nil
}
