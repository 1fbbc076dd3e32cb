package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meur/gearforge/internal/models"
)

// legacyEquipmentFile is the equipment_storage.json layout
type legacyEquipmentFile struct {
	Equipments []legacyEquipment `json:"equipments"`
	Version    string            `json:"version"`
}

type legacyEquipment struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	Type             string             `json:"type"`
	Rarity           string             `json:"rarity"`
	Tag              string             `json:"tag"`
	Attributes       map[string]float64 `json:"attributes"`
	StatTags         map[string]string  `json:"stat_tags"`
	ClassRestriction []string           `json:"class_restriction"`
	SetName          *string            `json:"set_name"`
	Level            int                `json:"level"`
	LockedAttr       *string            `json:"locked_attr"`
	PenaltyAttr      *string            `json:"penalty_attr"`
}

// legacyBuildFile is the build_storage.json layout
type legacyBuildFile struct {
	Builds      []legacyBuild `json:"builds"`
	Version     string        `json:"version"`
	LastUpdated string        `json:"last_updated"`
}

type legacyBuild struct {
	ID               string                  `json:"id"`
	Name             string                  `json:"name"`
	GuardianClass    string                  `json:"guardian_class"`
	TargetAttributes map[string]float64      `json:"target_attributes"`
	PreferredAttr    *string                 `json:"preferred_attr"`
	ExoticEquipment  *models.ExoticEquipment `json:"exotic_equipment"`
	Result           json.RawMessage         `json:"result"`
	CreatedAt        string                  `json:"created_at"`
	UpdatedAt        string                  `json:"updated_at"`
}

// Timestamps were written by datetime.isoformat(), usually without a zone
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func parseTime(s string, fallback time.Time) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.UTC()
		}
	}
	return fallback
}

// legacyClass picks the owning class from the restriction list, then the id prefix
func legacyClass(e legacyEquipment) (models.GuardianClass, bool) {
	for _, c := range e.ClassRestriction {
		if class, ok := models.ParseClass(c); ok {
			return class, true
		}
	}
	prefix, _, _ := strings.Cut(e.ID, "_")
	return models.ParseClass(prefix)
}

func convertEquipment(file legacyEquipmentFile) ([]models.Equipment, []string) {
	var (
		items   []models.Equipment
		skipped []string
	)
	for _, e := range file.Equipments {
		class, ok := legacyClass(e)
		if !ok || e.ID == "" || !models.IsEquipmentType(e.Type) {
			skipped = append(skipped, fmt.Sprintf("%s: no class or unknown slot", e.ID))
			continue
		}

		rarity := e.Rarity
		if rarity == "" {
			rarity = "傳說"
		}
		name := e.Name
		if name == "" {
			name = e.ID
		}

		items = append(items, models.Equipment{
			ID:            e.ID,
			Name:          name,
			Type:          e.Type,
			Rarity:        rarity,
			Tag:           e.Tag,
			Attributes:    e.Attributes,
			StatTags:      e.StatTags,
			GuardianClass: class,
			SetName:       e.SetName,
			Level:         e.Level,
			LockedAttr:    e.LockedAttr,
			PenaltyAttr:   e.PenaltyAttr,
		})
	}
	return items, skipped
}

func convertBuilds(file legacyBuildFile, now time.Time) ([]models.Build, []string) {
	var (
		builds  []models.Build
		skipped []string
	)
	for _, b := range file.Builds {
		if _, ok := models.ParseClass(b.GuardianClass); !ok || b.Name == "" {
			skipped = append(skipped, fmt.Sprintf("%s: missing name or class", b.ID))
			continue
		}

		id := b.ID
		if id == "" {
			id = uuid.NewString()
		}
		created := parseTime(b.CreatedAt, now)

		builds = append(builds, models.Build{
			ID:               id,
			Name:             b.Name,
			GuardianClass:    b.GuardianClass,
			TargetAttributes: b.TargetAttributes,
			PreferredAttr:    b.PreferredAttr,
			ExoticEquipment:  b.ExoticEquipment,
			Result:           b.Result,
			CreatedAt:        created,
			UpdatedAt:        parseTime(b.UpdatedAt, created),
		})
	}
	return builds, skipped
}
