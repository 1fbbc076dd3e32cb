// seed fills an empty database with a starter inventory so the build
// search has something to work with.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/meur/gearforge/internal/config"
	"github.com/meur/gearforge/internal/gear"
	"github.com/meur/gearforge/internal/logging"
	"github.com/meur/gearforge/internal/models"
	"github.com/meur/gearforge/internal/optimizer"
	"github.com/meur/gearforge/internal/storage"
)

func main() {
	dbPath := flag.String("db", "./gearforge.db", "SQLite database path")
	seedsDir := flag.String("seeds", "./seeds", "Seeds directory")
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

	manager := gear.NewManager(store, optimizer.New(config.DefaultConfig().Optimizer), logger.Named("gear"))

	path := filepath.Join(*seedsDir, "equipment.json")
	added, err := seedEquipment(context.Background(), manager, path, logger)
	if err != nil {
		logger.Fatal("seeding failed", zap.String("file", path), zap.Error(err))
	}
	logger.Info("seeding complete", zap.Int("added", added))
}

// seedEquipment adds every entry of path; invalid entries are logged and skipped
func seedEquipment(ctx context.Context, manager *gear.Manager, path string, logger *zap.Logger) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var reqs []models.EquipmentAdd
	if err := json.Unmarshal(data, &reqs); err != nil {
		return 0, err
	}

	added := 0
	for _, req := range reqs {
		e, err := manager.AddEquipment(ctx, req)
		if err != nil {
			logger.Warn("skipped seed entry",
				zap.String("class", req.GuardianClass),
				zap.String("type", req.EquipmentType),
				zap.String("reason", gear.Message(err)))
			continue
		}
		logger.Debug("seeded", zap.String("id", e.ID))
		added++
	}
	return added, nil
}
