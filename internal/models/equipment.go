package models

// Equipment is a single armor piece in a class inventory
type Equipment struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Type          string             `json:"type"`
	Rarity        string             `json:"rarity,omitempty"`
	Tag           string             `json:"tag,omitempty"`
	Attributes    map[string]float64 `json:"attributes"`
	StatTags      map[string]string  `json:"stat_tags,omitempty"`
	GuardianClass GuardianClass      `json:"guardian_class,omitempty"`
	SetName       *string            `json:"set_name"`
	Level         int                `json:"level"`
	LockedAttr    *string            `json:"locked_attr"`
	PenaltyAttr   *string            `json:"penalty_attr"`
}

// RandomStat returns the attribute rolled as the random stat, if any
func (e *Equipment) RandomStat() string {
	for attr, kind := range e.StatTags {
		if kind == StatRandom {
			return attr
		}
	}
	return ""
}

// PositiveAttributes drops zero-valued stats for display
func (e *Equipment) PositiveAttributes() map[string]float64 {
	out := make(map[string]float64, len(e.Attributes))
	for k, v := range e.Attributes {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}

// EquipmentView is the list/add response shape
type EquipmentView struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Type        string             `json:"type"`
	Tag         string             `json:"tag,omitempty"`
	Attributes  map[string]float64 `json:"attributes"`
	LockedAttr  *string            `json:"locked_attr"`
	PenaltyAttr *string            `json:"penalty_attr,omitempty"`
	Level       int                `json:"level"`
	SetName     *string            `json:"set_name,omitempty"`
}

// View converts an equipment record to its API shape
func (e *Equipment) View() EquipmentView {
	return EquipmentView{
		ID:          e.ID,
		Name:        e.Name,
		Type:        e.Type,
		Tag:         e.Tag,
		Attributes:  e.PositiveAttributes(),
		LockedAttr:  e.LockedAttr,
		PenaltyAttr: e.PenaltyAttr,
		Level:       e.Level,
		SetName:     e.SetName,
	}
}

// EquipmentAdd is the request body for adding equipment
type EquipmentAdd struct {
	GuardianClass string  `json:"guardian_class"`
	EquipmentType string  `json:"equipment_type"`
	Tag           string  `json:"tag"`
	RandomStat    string  `json:"random_stat"`
	LockedAttr    *string `json:"locked_attr"`
	SetName       *string `json:"set_name"`
}

// EquipmentDelete is the request body for deleting equipment
type EquipmentDelete struct {
	GuardianClass string `json:"guardian_class"`
	EquipmentID   string `json:"equipment_id"`
}

// ExoticEquipment is a user-described exotic piece used during build search
type ExoticEquipment struct {
	Name       string             `json:"name"`
	Type       string             `json:"type"`
	Attributes map[string]float64 `json:"attributes"`
	Level      int                `json:"level"`
	Tag        *string            `json:"tag"`
}
