// import_legacy loads equipment_storage.json and build_storage.json files
// written by the earlier single-process app into the SQLite store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/meur/gearforge/internal/config"
	"github.com/meur/gearforge/internal/logging"
	"github.com/meur/gearforge/internal/storage"
)

func main() {
	dbPath := flag.String("db", "./gearforge.db", "SQLite database path")
	equipmentPath := flag.String("equipment", "equipment_storage.json", "Legacy equipment file")
	buildsPath := flag.String("builds", "build_storage.json", "Legacy builds file")
	flag.Parse()

	logger, err := logging.New(config.LoggingConfig{Level: "info", Format: "console"}, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	store, err := storage.New(*dbPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := importEquipment(ctx, store, *equipmentPath, logger); err != nil {
		logger.Fatal("equipment import failed", zap.Error(err))
	}
	if err := importBuilds(ctx, store, *buildsPath, logger); err != nil {
		logger.Fatal("build import failed", zap.Error(err))
	}
	logger.Info("import complete")
}

// readJSON decodes path into v; a missing file reports false
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return true, nil
}

func importEquipment(ctx context.Context, store *storage.Store, path string, logger *zap.Logger) error {
	var file legacyEquipmentFile
	ok, err := readJSON(path, &file)
	if err != nil {
		return err
	}
	if !ok {
		logger.Info("no legacy equipment file", zap.String("path", path))
		return nil
	}

	items, skipped := convertEquipment(file)
	for _, s := range skipped {
		logger.Warn("skipped equipment", zap.String("reason", s))
	}
	if err := store.BulkCreateEquipment(ctx, items); err != nil {
		return err
	}
	logger.Info("imported equipment",
		zap.Int("count", len(items)),
		zap.String("version", file.Version))
	return nil
}

func importBuilds(ctx context.Context, store *storage.Store, path string, logger *zap.Logger) error {
	var file legacyBuildFile
	ok, err := readJSON(path, &file)
	if err != nil {
		return err
	}
	if !ok {
		logger.Info("no legacy build file", zap.String("path", path))
		return nil
	}

	builds, skipped := convertBuilds(file, time.Now().UTC())
	for _, s := range skipped {
		logger.Warn("skipped build", zap.String("reason", s))
	}
	if err := store.BulkCreateBuilds(ctx, builds); err != nil {
		return err
	}
	logger.Info("imported builds", zap.Int("count", len(builds)))
	return nil
}
