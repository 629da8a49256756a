// Command farm-check runs an end-to-end self check of the batch lifecycle and
// order fulfillment engine: it seeds a farm, accrues costs, fulfills an order
// against FIFO inventory, harvests, and verifies the invariants hold on the
// resulting state.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"aquacore/internal/core"
	"aquacore/internal/infra/persistence/memory"
	"aquacore/internal/infra/persistence/postgres"
	"aquacore/internal/infra/persistence/sqlite"
	"aquacore/internal/manifest"
	"aquacore/pkg/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var exitFunc = os.Exit

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("farm-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		driver  string
		sqlPath string
		dsn     string
		verbose bool
	)
	fs.StringVar(&driver, "driver", string(core.StorageMemory), "storage driver: memory|sqlite|postgres")
	fs.StringVar(&sqlPath, "sqlite-path", "", "sqlite file path when driver=sqlite")
	fs.StringVar(&dsn, "postgres-dsn", "", "postgres DSN when driver=postgres")
	fs.BoolVar(&verbose, "v", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger, err := buildLogger(verbose)
	if err != nil {
		fmt.Fprintf(stderr, "logger init failed: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	if err := run(core.StorageDriver(driver), sqlPath, dsn, logger); err != nil {
		fmt.Fprintf(stderr, "Self check failed: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "Self check passed.")
	return 0
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build()
}

func openStore(driver core.StorageDriver, sqlPath, dsn string) (core.PersistentStore, func() error, error) {
	engine := core.NewDefaultRulesEngine()
	switch driver {
	case core.StorageMemory:
		return memory.NewStore(engine), func() error { return nil }, nil
	case core.StorageSQLite:
		store, err := sqlite.NewStore(sqlPath, engine)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case core.StoragePostgres:
		store, err := postgres.NewStore(dsn, engine)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

func run(driver core.StorageDriver, sqlPath, dsn string, logger *zap.Logger) error {
	store, closeStore, err := openStore(driver, sqlPath, dsn)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = closeStore() }()

	ctx := context.Background()
	opts := []core.ServiceOption{core.WithLogger(core.NewZapLogger(logger))}
	if os.Getenv("AQUACORE_MANIFEST_DRIVER") != "" {
		archive, err := manifest.Open(ctx)
		if err != nil {
			return fmt.Errorf("open manifest archive: %w", err)
		}
		opts = append(opts, core.WithManifestArchive(archive))
	}
	svc := core.NewService(store, opts...)
	now := time.Now().UTC()

	species, _, err := svc.CreateSpecies(ctx, core.Species{
		Name:         "Tilapia",
		TargetMargin: decimal.RequireFromString("1.25"),
	})
	if err != nil {
		return fmt.Errorf("create species: %w", err)
	}
	pond, _, err := svc.CreatePond(ctx, core.Pond{
		Name:         "North",
		VolumeLitres: 50000,
		WaterType:    "freshwater",
	})
	if err != nil {
		return fmt.Errorf("create pond: %w", err)
	}

	older, _, err := svc.StockBatch(ctx, core.Batch{
		SpeciesID:       species.ID,
		PondID:          pond.ID,
		BirthDate:       now.AddDate(0, 0, -120),
		InitialQuantity: 100,
	})
	if err != nil {
		return fmt.Errorf("stock older batch: %w", err)
	}
	newer, _, err := svc.StockBatch(ctx, core.Batch{
		SpeciesID:       species.ID,
		PondID:          pond.ID,
		BirthDate:       now.AddDate(0, 0, -60),
		InitialQuantity: 200,
	})
	if err != nil {
		return fmt.Errorf("stock newer batch: %w", err)
	}

	for batchID, amount := range map[string]string{older.ID: "80", newer.ID: "220"} {
		if _, _, err := svc.AccrueCost(ctx, batchID, core.CostFeed, decimal.RequireFromString(amount)); err != nil {
			return fmt.Errorf("accrue cost: %w", err)
		}
	}

	_, res, err := svc.RecordWaterQuality(ctx, core.WaterQualityReading{
		PondID:          pond.ID,
		TemperatureC:    decimal.RequireFromString("27"),
		PH:              decimal.RequireFromString("7.2"),
		DissolvedOxygen: decimal.RequireFromString("5.5"),
	})
	if err != nil {
		return fmt.Errorf("record water quality: %w", err)
	}
	if len(res.Warnings()) != 0 {
		return fmt.Errorf("in-range water reading warned: %+v", res.Warnings())
	}

	order, _, err := svc.PlaceOrder(ctx, core.CustomerOrder{
		Customer: "Harbor Fish Co",
		Lines: []core.DemandLine{{
			SpeciesID: species.ID,
			Quantity:  120,
			UnitPrice: decimal.RequireFromString("3.50"),
		}},
	})
	if err != nil {
		return fmt.Errorf("place order: %w", err)
	}
	shipment, _, err := svc.FulfillOrder(ctx, order.ID, now, "ColdChain")
	if err != nil {
		return fmt.Errorf("fulfill order: %w", err)
	}
	if err := verifyFulfillment(svc, shipment, older.ID, newer.ID); err != nil {
		return err
	}

	result, _, err := svc.HarvestBatch(ctx, newer.ID, 170, "self check harvest")
	if err != nil {
		return fmt.Errorf("harvest: %w", err)
	}
	if result.MortalityDelta != 10 {
		return fmt.Errorf("harvest mortality = %d, want 10", result.MortalityDelta)
	}
	if result.Batch.Status != core.BatchCompleted {
		return fmt.Errorf("harvested batch status = %s", result.Batch.Status)
	}

	// Completed batches are frozen; a further mortality must be blocked.
	_, _, err = svc.RecordMortality(ctx, newer.ID, 1, "should be rejected")
	var ruleErr domain.RuleViolationError
	if !errors.As(err, &ruleErr) {
		return fmt.Errorf("mortality on completed batch not blocked: %v", err)
	}

	report, err := svc.BatchProfit(ctx, older.ID)
	if err != nil {
		return fmt.Errorf("profit report: %w", err)
	}
	logger.Info("self check complete",
		zap.String("driver", string(driver)),
		zap.String("batch_id", older.ID),
		zap.String("revenue", report.Revenue.String()),
		zap.String("margin", report.Margin.String()),
		zap.Bool("meets_target", report.MeetsTarget),
	)
	return nil
}

func verifyFulfillment(svc *core.Service, shipment core.Shipment, olderID, newerID string) error {
	if len(shipment.Allocations) != 2 {
		return fmt.Errorf("expected 2 allocations, got %d", len(shipment.Allocations))
	}
	if shipment.Allocations[0].BatchID != olderID || shipment.Allocations[0].Quantity != 100 {
		return fmt.Errorf("first allocation not FIFO: %+v", shipment.Allocations[0])
	}
	if shipment.Allocations[1].BatchID != newerID || shipment.Allocations[1].Quantity != 20 {
		return fmt.Errorf("second allocation wrong: %+v", shipment.Allocations[1])
	}
	drained, err := svc.GetBatch(olderID)
	if err != nil {
		return err
	}
	if drained.CurrentQuantity != 0 {
		return fmt.Errorf("older batch not drained: %d", drained.CurrentQuantity)
	}
	shipped, err := svc.GetOrder(shipment.OrderID)
	if err != nil {
		return err
	}
	if shipped.Status != core.OrderShipped {
		return fmt.Errorf("order status = %s", shipped.Status)
	}
	return nil
}
