// Package gear manages class inventories and saved builds on top of the
// SQLite store, and runs build searches against them.
package gear

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meur/gearforge/internal/models"
	"github.com/meur/gearforge/internal/optimizer"
	"github.com/meur/gearforge/internal/storage"
)

var (
	// ErrInvalid marks a request rejected by validation
	ErrInvalid = errors.New("invalid request")
	// ErrNotFound marks a missing equipment or build
	ErrNotFound = errors.New("not found")
	// ErrDuplicate marks an equipment or build name that already exists
	ErrDuplicate = errors.New("duplicate")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Message strips the sentinel prefix for user-facing output.
func Message(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{ErrInvalid, ErrNotFound, ErrDuplicate} {
		msg = strings.TrimPrefix(msg, sentinel.Error()+": ")
	}
	return msg
}

// Manager wraps the store with the inventory and build rules.
type Manager struct {
	store     *storage.Store
	optimizer *optimizer.Optimizer
	logger    *zap.Logger

	// serializes id sequencing, duplicate checks and name checks
	mu sync.Mutex
	now func() time.Time
}

// NewManager creates a manager
func NewManager(store *storage.Store, opt *optimizer.Optimizer, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, optimizer: opt, logger: logger, now: time.Now}
}

func parseClass(s string) (models.GuardianClass, error) {
	c, ok := models.ParseClass(s)
	if !ok {
		return "", invalidf("無效的職業: %s", s)
	}
	return c, nil
}

func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// AddEquipment validates and stores a new piece built from its archetype.
func (m *Manager) AddEquipment(ctx context.Context, req models.EquipmentAdd) (*models.Equipment, error) {
	class, err := parseClass(req.GuardianClass)
	if err != nil {
		return nil, err
	}
	if !models.IsEquipmentType(req.EquipmentType) {
		return nil, invalidf("無效的裝備類型: %s", req.EquipmentType)
	}
	tag, ok := models.LookupTag(req.Tag)
	if !ok {
		return nil, invalidf("無效的裝備標籤: %s", req.Tag)
	}
	if !models.IsAttribute(req.RandomStat) {
		return nil, invalidf("無效的屬性: %s", req.RandomStat)
	}
	if req.RandomStat == tag.MainAttr || req.RandomStat == tag.SubAttr {
		return nil, invalidf("隨機詞條不能與主詞條(%s)或副詞條(%s)重複", tag.MainAttr, tag.SubAttr)
	}
	locked := optional(req.LockedAttr)
	if locked != nil && !models.IsAttribute(*locked) {
		return nil, invalidf("無效的鎖定屬性: %s", *locked)
	}
	setName := optional(req.SetName)

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.store.ListEquipment(ctx, class)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}
	for i := range existing {
		e := &existing[i]
		if e.Type == req.EquipmentType && e.Tag == req.Tag &&
			e.RandomStat() == req.RandomStat && sameOptional(e.LockedAttr, locked) {
			return nil, fmt.Errorf("%w: 倉庫中已存在相同裝備", ErrDuplicate)
		}
	}

	seq, err := m.store.MaxEquipmentSeq(ctx, class, req.EquipmentType)
	if err != nil {
		return nil, fmt.Errorf("failed to sequence equipment id: %w", err)
	}

	e := &models.Equipment{
		ID:            fmt.Sprintf("%s_%s_%03d", class, req.EquipmentType, seq+1),
		Name:          req.Tag + "_" + req.EquipmentType,
		Type:          req.EquipmentType,
		Rarity:        models.DefaultRarity,
		Tag:           req.Tag,
		GuardianClass: class,
		Attributes: map[string]float64{
			tag.MainAttr:   models.MainStatValue,
			tag.SubAttr:    models.SubStatValue,
			req.RandomStat: models.RandomStatValue,
		},
		StatTags: map[string]string{
			tag.MainAttr:   models.StatMain,
			tag.SubAttr:    models.StatSub,
			req.RandomStat: models.StatRandom,
		},
		SetName:    setName,
		Level:      0,
		LockedAttr: locked,
	}

	if err := m.store.CreateEquipment(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to save equipment: %w", err)
	}

	m.logger.Info("equipment added",
		zap.String("class", string(class)),
		zap.String("id", e.ID),
		zap.String("tag", e.Tag))
	return e, nil
}

func sameOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ListEquipment returns the inventory of one class
func (m *Manager) ListEquipment(ctx context.Context, class string) ([]models.EquipmentView, error) {
	gc, err := parseClass(class)
	if err != nil {
		return nil, err
	}
	items, err := m.store.ListEquipment(ctx, gc)
	if err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", err)
	}
	views := make([]models.EquipmentView, 0, len(items))
	for i := range items {
		views = append(views, items[i].View())
	}
	return views, nil
}

// ListAllEquipment returns every class inventory keyed by class name
func (m *Manager) ListAllEquipment(ctx context.Context) (map[string][]models.EquipmentView, error) {
	out := make(map[string][]models.EquipmentView)
	for _, c := range models.AllClasses() {
		views, err := m.ListEquipment(ctx, string(c))
		if err != nil {
			return nil, err
		}
		out[string(c)] = views
	}
	return out, nil
}

// RemoveEquipment deletes a piece from a class inventory
func (m *Manager) RemoveEquipment(ctx context.Context, class, id string) error {
	gc, err := parseClass(class)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ok, err := m.store.DeleteEquipment(ctx, gc, id)
	if err != nil {
		return fmt.Errorf("failed to delete equipment: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: 裝備不存在", ErrNotFound)
	}
	m.logger.Info("equipment deleted", zap.String("class", class), zap.String("id", id))
	return nil
}

// ConfigureBuild validates a search request and runs it against the class inventory.
func (m *Manager) ConfigureBuild(ctx context.Context, req models.BuildConfigure) (*optimizer.Result, error) {
	class, err := parseClass(req.GuardianClass)
	if err != nil {
		return nil, err
	}
	if len(req.TargetAttributes) == 0 {
		return nil, invalidf("至少需要一個目標屬性")
	}
	for attr, v := range req.TargetAttributes {
		if !models.IsAttribute(attr) {
			return nil, invalidf("無效的屬性: %s", attr)
		}
		if v < 0 {
			return nil, invalidf("屬性值必須是非負數: %s", attr)
		}
	}

	var exotic *models.ExoticEquipment
	if req.UseExotic {
		exotic, err = NormalizeExotic(req.ExoticEquipment)
		if err != nil {
			return nil, err
		}
	}

	preferred := ""
	if p := optional(req.PreferredAttr); p != nil {
		if !models.IsAttribute(*p) {
			return nil, invalidf("無效的偏好屬性: %s", *p)
		}
		preferred = *p
	}

	inventory, err := m.store.ListEquipment(ctx, class)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}

	start := m.now()
	res, err := m.optimizer.Search(ctx, inventory, optimizer.Request{
		GuardianClass: class,
		Targets:       req.TargetAttributes,
		PreferredAttr: preferred,
		Exotic:        exotic,
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("build configured",
		zap.String("class", string(class)),
		zap.Int("inventory", len(inventory)),
		zap.Int64("evaluated", res.Evaluated),
		zap.Bool("targets_met", res.TargetsMet),
		zap.Duration("elapsed", m.now().Sub(start)))
	return res, nil
}

// NormalizeExotic applies the exotic rules: a valid type, unset or
// non-positive stats default to ExoticDefaultValue, at least MinExoticStats
// positive stats, the level clamped to 0..MaxUpgradeLevel, and a default name.
func NormalizeExotic(x *models.ExoticEquipment) (*models.ExoticEquipment, error) {
	if x == nil || !models.IsEquipmentType(x.Type) {
		return nil, invalidf("異域裝備必須指定有效的裝備類型")
	}

	attrs := make(map[string]float64, len(models.Attributes()))
	positive := 0
	for _, attr := range models.Attributes() {
		v := x.Attributes[attr]
		if v <= 0 {
			v = models.ExoticDefaultValue
		}
		attrs[attr] = v
		if v > 0 {
			positive++
		}
	}
	if positive < models.MinExoticStats {
		return nil, invalidf("異域裝備必須至少有%d個非零屬性", models.MinExoticStats)
	}

	name := strings.TrimSpace(x.Name)
	if name == "" {
		name = models.DefaultExoticName
	}
	level := min(max(x.Level, 0), models.MaxUpgradeLevel)

	return &models.ExoticEquipment{
		Name:       name,
		Type:       x.Type,
		Attributes: attrs,
		Level:      level,
		Tag:        optional(x.Tag),
	}, nil
}

// SaveBuild stores a named build; names are unique per class.
func (m *Manager) SaveBuild(ctx context.Context, req models.BuildSave) (*models.Build, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidf("套裝名稱不能為空")
	}
	if _, err := parseClass(req.GuardianClass); err != nil {
		return nil, err
	}
	if len(req.Result) == 0 || string(req.Result) == "null" {
		return nil, invalidf("缺少必需字段: result")
	}
	if !json.Valid(req.Result) {
		return nil, invalidf("result 必須是有效的 JSON")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	exists, err := m.store.BuildNameExists(ctx, req.GuardianClass, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check build name: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: 該職業下已存在相同名稱的套裝", ErrDuplicate)
	}

	targets := req.TargetAttributes
	if targets == nil {
		targets = map[string]float64{}
	}
	now := m.now()
	b := &models.Build{
		ID:               uuid.New().String(),
		Name:             name,
		GuardianClass:    req.GuardianClass,
		TargetAttributes: targets,
		PreferredAttr:    optional(req.PreferredAttr),
		ExoticEquipment:  req.ExoticEquipment,
		Result:           req.Result,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := m.store.CreateBuild(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to save build: %w", err)
	}

	m.logger.Info("build saved", zap.String("class", b.GuardianClass), zap.String("id", b.ID), zap.String("name", b.Name))
	return b, nil
}

// ListBuilds returns saved builds, filtered by class when given
func (m *Manager) ListBuilds(ctx context.Context, class string) ([]models.Build, error) {
	if class != "" {
		if _, err := parseClass(class); err != nil {
			return nil, err
		}
	}
	builds, err := m.store.ListBuilds(ctx, class)
	if err != nil {
		return nil, fmt.Errorf("failed to list builds: %w", err)
	}
	return builds, nil
}

// DeleteBuild removes a saved build
func (m *Manager) DeleteBuild(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ok, err := m.store.DeleteBuild(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete build: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: 套裝不存在", ErrNotFound)
	}
	m.logger.Info("build deleted", zap.String("id", id))
	return nil
}
