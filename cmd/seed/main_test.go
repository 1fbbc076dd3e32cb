package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meur/gearforge/internal/config"
	"github.com/meur/gearforge/internal/gear"
	"github.com/meur/gearforge/internal/optimizer"
	"github.com/meur/gearforge/internal/storage"
)

func newManager(t *testing.T) *gear.Manager {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return gear.NewManager(store, optimizer.New(config.OptimizerConfig{Workers: 1}), nil)
}

func TestSeedBundledFile(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	added, err := seedEquipment(ctx, m, filepath.Join("..", "..", "seeds", "equipment.json"), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 15, added)

	all, err := m.ListAllEquipment(ctx)
	require.NoError(t, err)
	for class, items := range all {
		assert.Len(t, items, 5, class)
	}
}

func TestSeedSkipsInvalidEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "equipment.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"guardian_class": "泰坦", "equipment_type": "頭盔", "tag": "堡壘", "random_stat": "武器"},
		{"guardian_class": "泰坦", "equipment_type": "頭盔", "tag": "堡壘", "random_stat": "健康"},
		{"guardian_class": "泰坦", "equipment_type": "頭盔", "tag": "堡壘", "random_stat": "武器"}
	]`), 0o644))

	added, err := seedEquipment(context.Background(), newManager(t), path, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, added)
}

func TestSeedMissingFile(t *testing.T) {
	_, err := seedEquipment(context.Background(), newManager(t), "nope.json", zap.NewNop())
	assert.Error(t, err)
}
