// Command clamflow-admin is the operational entry point for the traceability
// store: it opens/migrates the configured backend, reports status, performs
// destructive resets after schema conflicts, seeds sample suppliers, and
// exports the traceability workbook.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"clamflow/internal/core"
	"clamflow/internal/export"
	"clamflow/pkg/domain"
)

var exitFunc = os.Exit

func main() {
	exitFunc(run(os.Args[1:]))
}

func run(args []string) int {
	// .env is optional; the environment always wins.
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	fs := flag.NewFlagSet("clamflow-admin", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: clamflow-admin <status|reset|seed-suppliers|report> [args]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	ctx := context.Background()
	cmd := fs.Arg(0)

	store, err := openStore(ctx, logger, cmd == "reset")
	if err != nil {
		logger.Error("open store", zap.Error(err))
		return 1
	}
	defer func() { _ = store.Close() }()

	svc := core.NewService(store,
		core.WithLogger(core.NewZapLogger(logger)),
		core.WithAuditRecorder(core.NewZapAuditRecorder(logger)),
	)

	switch cmd {
	case "status":
		return status(ctx, logger, svc)
	case "reset":
		if err := store.Reset(ctx); err != nil {
			logger.Error("reset", zap.Error(err))
			return 1
		}
		logger.Info("store reset", zap.Int("schema_version", store.SchemaVersion()))
		return 0
	case "seed-suppliers":
		return seedSuppliers(ctx, logger, svc)
	case "report":
		out := "traceability.xlsx"
		if fs.NArg() > 1 {
			out = fs.Arg(1)
		}
		return report(ctx, logger, store, out)
	default:
		logger.Error("unknown command", zap.String("command", cmd))
		fs.Usage()
		return 2
	}
}

// openStore opens the configured backend. On a schema version conflict the
// only recovery path is a destructive reset: the configured driver's
// persisted snapshot is destroyed before reopening.
func openStore(ctx context.Context, logger *zap.Logger, destructive bool) (domain.PersistentStore, error) {
	engine := core.NewDefaultRulesEngine()
	store, err := core.OpenPersistentStore(ctx, engine)
	if err == nil {
		return store, nil
	}
	if !domain.IsSchemaVersion(err) || !destructive {
		return nil, err
	}
	logger.Warn("schema version conflict, destroying persisted state", zap.Error(err))
	if destroyErr := core.DestroyPersistentState(ctx); destroyErr != nil {
		return nil, destroyErr
	}
	return core.OpenPersistentStore(ctx, engine)
}

func status(ctx context.Context, logger *zap.Logger, svc *core.Service) int {
	store := svc.Store()
	suppliers, err := svc.ListSuppliers(ctx)
	if err != nil {
		logger.Error("list suppliers", zap.Error(err))
		return 1
	}
	receipts, err := svc.ListReceipts(ctx)
	if err != nil {
		logger.Error("list receipts", zap.Error(err))
		return 1
	}
	lots, err := svc.ListLots(ctx)
	if err != nil {
		logger.Error("list lots", zap.Error(err))
		return 1
	}
	batches, err := svc.ListProcessingBatches(ctx)
	if err != nil {
		logger.Error("list batches", zap.Error(err))
		return 1
	}
	packages, err := svc.ListPackages(ctx)
	if err != nil {
		logger.Error("list packages", zap.Error(err))
		return 1
	}
	logger.Info("store status",
		zap.Int("schema_version", store.SchemaVersion()),
		zap.Int("suppliers", len(suppliers)),
		zap.Int("receipts", len(receipts)),
		zap.Int("lots", len(lots)),
		zap.Int("processing_batches", len(batches)),
		zap.Int("packages", len(packages)),
	)
	return 0
}

func seedSuppliers(ctx context.Context, logger *zap.Logger, svc *core.Service) int {
	samples := []struct {
		name, contact, license string
	}{
		{"John's Fishing", "555-0101", "LIC001"},
		{"Bay Clams", "555-0102", "LIC002"},
		{"Ocean Harvest", "555-0103", "LIC003"},
	}
	existing, err := svc.ListSuppliers(ctx)
	if err != nil {
		logger.Error("list suppliers", zap.Error(err))
		return 1
	}
	known := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		known[s.LicenseNumber] = struct{}{}
	}
	for _, sample := range samples {
		if _, ok := known[sample.license]; ok {
			continue
		}
		if _, _, err := svc.CreateSupplier(ctx, sample.name, sample.contact, sample.license); err != nil {
			logger.Error("seed supplier", zap.String("name", sample.name), zap.Error(err))
			return 1
		}
		logger.Info("seeded supplier", zap.String("name", sample.name), zap.String("license", sample.license))
	}
	return 0
}

func report(ctx context.Context, logger *zap.Logger, store domain.PersistentStore, out string) int {
	file, err := os.Create(out)
	if err != nil {
		logger.Error("create report file", zap.Error(err))
		return 1
	}
	defer func() { _ = file.Close() }()
	if err := export.WriteTraceabilityWorkbook(ctx, store, file); err != nil {
		logger.Error("write report", zap.Error(err))
		return 1
	}
	logger.Info("report written", zap.String("path", out))
	return 0
}
