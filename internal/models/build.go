package models

import (
	"encoding/json"
	"time"

	gojson "github.com/goccy/go-json"
)

// Build is a saved target configuration and its computed recommendation
type Build struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	GuardianClass    string             `json:"guardian_class"`
	TargetAttributes map[string]float64 `json:"target_attributes"`
	PreferredAttr    *string            `json:"preferred_attr"`
	ExoticEquipment  *ExoticEquipment   `json:"exotic_equipment"`
	Result           json.RawMessage    `json:"result"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// Formatted extracts the preformatted text embedded in a saved result
func (b *Build) Formatted() string {
	var r struct {
		Formatted string `json:"formatted"`
	}
	if len(b.Result) == 0 {
		return ""
	}
	if err := gojson.Unmarshal(b.Result, &r); err != nil {
		return ""
	}
	return r.Formatted
}

// BuildConfigure is the request body for a build search
type BuildConfigure struct {
	GuardianClass    string             `json:"guardian_class"`
	TargetAttributes map[string]float64 `json:"target_attributes"`
	PreferredAttr    *string            `json:"preferred_attr"`
	UseExotic        bool               `json:"use_exotic"`
	ExoticEquipment  *ExoticEquipment   `json:"exotic_equipment,omitempty"`
}

// BuildSave is the request body for saving a build
type BuildSave struct {
	Name             string             `json:"name"`
	GuardianClass    string             `json:"guardian_class"`
	TargetAttributes map[string]float64 `json:"target_attributes"`
	PreferredAttr    *string            `json:"preferred_attr"`
	ExoticEquipment  *ExoticEquipment   `json:"exotic_equipment"`
	Result           json.RawMessage    `json:"result"`
}

// BuildDelete is the request body for deleting a build
type BuildDelete struct {
	BuildID string `json:"build_id"`
}
