package models

// GuardianClass is a player character category
type GuardianClass string

const (
	Titan   GuardianClass = "泰坦"
	Hunter  GuardianClass = "獵人"
	Warlock GuardianClass = "術士"
)

// AllClasses returns every guardian class in display order
func AllClasses() []GuardianClass {
	return []GuardianClass{Titan, Hunter, Warlock}
}

// ParseClass validates a class string
func ParseClass(s string) (GuardianClass, bool) {
	for _, c := range AllClasses() {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// ClassOption is the /api/classes entry
type ClassOption struct {
	Value string `json:"value"`
	Name  string `json:"name"`
}

// Equipment slot types, in the fixed display order
const (
	TypeHelmet    = "頭盔"
	TypeGauntlets = "臂鎧"
	TypeChest     = "胸鎧"
	TypeLegs      = "護腿"
	TypeClassItem = "職業物品"
)

// EquipmentTypes returns the five slot categories in order
func EquipmentTypes() []string {
	return []string{TypeHelmet, TypeGauntlets, TypeChest, TypeLegs, TypeClassItem}
}

// IsEquipmentType reports whether t is a known slot
func IsEquipmentType(t string) bool {
	for _, et := range EquipmentTypes() {
		if et == t {
			return true
		}
	}
	return false
}

// Attributes returns the six armor stats in display order
func Attributes() []string {
	return []string{"武器", "健康", "職業", "手榴彈", "超能", "近戰"}
}

// IsAttribute reports whether a is a known stat
func IsAttribute(a string) bool {
	for _, attr := range Attributes() {
		if attr == a {
			return true
		}
	}
	return false
}

// TagConfig defines the fixed main/sub stats of an armor archetype
type TagConfig struct {
	Tag      string `json:"tag"`
	MainAttr string `json:"main_attr"`
	SubAttr  string `json:"sub_attr"`
}

// EquipmentTags returns the archetype table
func EquipmentTags() []TagConfig {
	return []TagConfig{
		{Tag: "堡壘", MainAttr: "健康", SubAttr: "職業"},
		{Tag: "赤拳互鬥", MainAttr: "近戰", SubAttr: "健康"},
		{Tag: "榴彈兵", MainAttr: "手榴彈", SubAttr: "超能"},
		{Tag: "至高典範", MainAttr: "超能", SubAttr: "近戰"},
		{Tag: "戰術家", MainAttr: "職業", SubAttr: "武器"},
		{Tag: "槍手", MainAttr: "武器", SubAttr: "手榴彈"},
	}
}

// LookupTag returns the archetype for tag
func LookupTag(tag string) (TagConfig, bool) {
	for _, t := range EquipmentTags() {
		if t.Tag == tag {
			return t, true
		}
	}
	return TagConfig{}, false
}

// Stat roll values and upgrade limits
const (
	MainStatValue   = 30
	SubStatValue    = 25
	RandomStatValue = 20

	MaxUpgradeLevel = 5
	TuningValue     = 5

	// ExoticDefaultValue fills unset exotic stats (a fully upgraded supplemental roll)
	ExoticDefaultValue = 5
	MinExoticStats     = 3
	DefaultExoticName  = "異域裝備"

	DefaultRarity = "傳說"
)

// Stat roll kinds stored in StatTags
const (
	StatMain   = "main"
	StatSub    = "sub"
	StatRandom = "random"
)
