package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"

	"github.com/meur/gearforge/internal/models"
)

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs database migrations
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS equipments (
			id TEXT NOT NULL,
			guardian_class TEXT NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			rarity TEXT,
			tag TEXT,
			attributes TEXT NOT NULL,
			stat_tags TEXT,
			set_name TEXT,
			level INTEGER DEFAULT 0,
			locked_attr TEXT,
			penalty_attr TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (guardian_class, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_equipments_type ON equipments(guardian_class, type)`,
		`CREATE TABLE IF NOT EXISTS builds (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			guardian_class TEXT NOT NULL,
			target_attributes TEXT NOT NULL,
			preferred_attr TEXT,
			exotic_equipment TEXT,
			result TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE(guardian_class, name)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_builds_class ON builds(guardian_class)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// --- Equipment ---

const equipmentColumns = `id, guardian_class, name, type, rarity, tag, attributes, stat_tags, set_name, level, locked_attr, penalty_attr`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEquipment(row rowScanner) (*models.Equipment, error) {
	var e models.Equipment
	var class string
	var rarity, tag, statTags, setName, locked, penalty sql.NullString
	var attrs string

	err := row.Scan(&e.ID, &class, &e.Name, &e.Type, &rarity, &tag, &attrs,
		&statTags, &setName, &e.Level, &locked, &penalty)
	if err != nil {
		return nil, err
	}

	e.GuardianClass = models.GuardianClass(class)
	e.Rarity = rarity.String
	e.Tag = tag.String
	if err := json.Unmarshal([]byte(attrs), &e.Attributes); err != nil {
		return nil, fmt.Errorf("equipment %s: bad attributes: %w", e.ID, err)
	}
	if statTags.Valid && statTags.String != "" {
		if err := json.Unmarshal([]byte(statTags.String), &e.StatTags); err != nil {
			return nil, fmt.Errorf("equipment %s: bad stat tags: %w", e.ID, err)
		}
	}
	e.SetName = nullableString(setName)
	e.LockedAttr = nullableString(locked)
	e.PenaltyAttr = nullableString(penalty)
	return &e, nil
}

// ListEquipment returns the inventory of a class ordered by id
func (s *Store) ListEquipment(ctx context.Context, class models.GuardianClass) ([]models.Equipment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+equipmentColumns+`
		FROM equipments WHERE guardian_class = ? ORDER BY type, id
	`, string(class))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	equipments := []models.Equipment{}
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		equipments = append(equipments, *e)
	}
	return equipments, rows.Err()
}

// GetEquipment returns a single item, or nil when it does not exist
func (s *Store) GetEquipment(ctx context.Context, class models.GuardianClass, id string) (*models.Equipment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+equipmentColumns+`
		FROM equipments WHERE guardian_class = ? AND id = ?
	`, string(class), id)

	e, err := scanEquipment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// CreateEquipment inserts a new item
func (s *Store) CreateEquipment(ctx context.Context, e *models.Equipment) error {
	return insertEquipment(ctx, s.db, e, false)
}

// BulkCreateEquipment inserts or replaces many items in one transaction
func (s *Store) BulkCreateEquipment(ctx context.Context, items []models.Equipment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := range items {
		if err := insertEquipment(ctx, tx, &items[i], true); err != nil {
			return err
		}
	}

	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertEquipment(ctx context.Context, db execer, e *models.Equipment, replace bool) error {
	attrs, err := json.Marshal(e.Attributes)
	if err != nil {
		return err
	}
	var statTags []byte
	if len(e.StatTags) > 0 {
		if statTags, err = json.Marshal(e.StatTags); err != nil {
			return err
		}
	}

	verb := "INSERT"
	if replace {
		verb = "INSERT OR REPLACE"
	}
	_, err = db.ExecContext(ctx, verb+` INTO equipments (`+equipmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, string(e.GuardianClass), e.Name, e.Type, e.Rarity, e.Tag, string(attrs),
		nullString(statTags), e.SetName, e.Level, e.LockedAttr, e.PenaltyAttr)
	return err
}

// DeleteEquipment removes an item and reports whether it existed
func (s *Store) DeleteEquipment(ctx context.Context, class models.GuardianClass, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM equipments WHERE guardian_class = ? AND id = ?`,
		string(class), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MaxEquipmentSeq returns the highest numeric suffix used by ids of the
// given class and type, so new ids never reuse a number.
func (s *Store) MaxEquipmentSeq(ctx context.Context, class models.GuardianClass, equipmentType string) (int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM equipments WHERE guardian_class = ? AND type = ?
	`, string(class), equipmentType)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	max := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		if n, ok := idSeq(id); ok && n > max {
			max = n
		}
	}
	return max, rows.Err()
}

// idSeq extracts NNN from ids shaped <class>_<type>_NNN
func idSeq(id string) (int, bool) {
	parts := strings.Split(id, "_")
	if len(parts) < 3 {
		return 0, false
	}
	n, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// --- Builds ---

const buildColumns = `id, name, guardian_class, target_attributes, preferred_attr, exotic_equipment, result, created_at, updated_at`

func scanBuild(row rowScanner) (*models.Build, error) {
	var b models.Build
	var targets string
	var preferred, exotic, result sql.NullString

	err := row.Scan(&b.ID, &b.Name, &b.GuardianClass, &targets, &preferred,
		&exotic, &result, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(targets), &b.TargetAttributes); err != nil {
		return nil, fmt.Errorf("build %s: bad target attributes: %w", b.ID, err)
	}
	b.PreferredAttr = nullableString(preferred)
	if exotic.Valid && exotic.String != "" && exotic.String != "null" {
		b.ExoticEquipment = &models.ExoticEquipment{}
		if err := json.Unmarshal([]byte(exotic.String), b.ExoticEquipment); err != nil {
			return nil, fmt.Errorf("build %s: bad exotic equipment: %w", b.ID, err)
		}
	}
	if result.Valid && result.String != "" {
		b.Result = []byte(result.String)
	}
	return &b, nil
}

// ListBuilds returns saved builds, optionally filtered by class, oldest first
func (s *Store) ListBuilds(ctx context.Context, class string) ([]models.Build, error) {
	var rows *sql.Rows
	var err error

	if class != "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+buildColumns+` FROM builds WHERE guardian_class = ? ORDER BY created_at, id
		`, class)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+buildColumns+` FROM builds ORDER BY created_at, id
		`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	builds := []models.Build{}
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		builds = append(builds, *b)
	}
	return builds, rows.Err()
}

// GetBuild returns a build by ID, or nil when it does not exist
func (s *Store) GetBuild(ctx context.Context, id string) (*models.Build, error) {
	b, err := scanBuild(s.db.QueryRowContext(ctx, `
		SELECT `+buildColumns+` FROM builds WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// BuildNameExists reports whether class already has a build called name
func (s *Store) BuildNameExists(ctx context.Context, class, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM builds WHERE guardian_class = ? AND name = ?
	`, class, name).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateBuild inserts a build; ID and timestamps must already be set
func (s *Store) CreateBuild(ctx context.Context, b *models.Build) error {
	return insertBuild(ctx, s.db, b, false)
}

// BulkCreateBuilds inserts or replaces many builds in one transaction
func (s *Store) BulkCreateBuilds(ctx context.Context, builds []models.Build) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := range builds {
		if err := insertBuild(ctx, tx, &builds[i], true); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertBuild(ctx context.Context, db execer, b *models.Build, replace bool) error {
	targets, err := json.Marshal(b.TargetAttributes)
	if err != nil {
		return err
	}
	var exotic []byte
	if b.ExoticEquipment != nil {
		if exotic, err = json.Marshal(b.ExoticEquipment); err != nil {
			return err
		}
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = b.CreatedAt
	}

	verb := "INSERT"
	if replace {
		verb = "INSERT OR REPLACE"
	}
	_, err = db.ExecContext(ctx, verb+` INTO builds (`+buildColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.Name, b.GuardianClass, string(targets), b.PreferredAttr,
		nullString(exotic), nullString(b.Result), b.CreatedAt, b.UpdatedAt)
	return err
}

// DeleteBuild removes a build and reports whether it existed
func (s *Store) DeleteBuild(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM builds WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	v := ns.String
	return &v
}

func nullString(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
