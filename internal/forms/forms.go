// Package forms harvests and validates the add-equipment and configure-build
// inputs before anything is sent to the backend.
package forms

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/meur/gearforge/internal/models"
)

// Form field names shared by the HTML templates and the CLI flags
const (
	FieldClass         = "guardian_class"
	FieldType          = "equipment_type"
	FieldTag           = "tag"
	FieldRandomStat    = "random_stat"
	FieldLockedAttr    = "locked_attr"
	FieldSetName       = "set_name"
	FieldPreferredAttr = "preferred_attr"
	FieldUseExotic     = "use_exotic"
	FieldExoticName    = "exotic_name"
	FieldExoticType    = "exotic_type"
	FieldExoticLevel   = "exotic_level"
	FieldExoticTag     = "exotic_tag"
	FieldBuildName     = "build_name"
)

// TargetField is the form field for an attribute's target value
func TargetField(attr string) string { return "target_" + attr }

// ExoticField is the form field for an exotic attribute value
func ExoticField(attr string) string { return "exotic_" + attr }

// ValidationError is a rejected form
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// AddEquipmentForm harvests an add-equipment submission
func AddEquipmentForm(v url.Values) (models.EquipmentAdd, error) {
	req := models.EquipmentAdd{
		GuardianClass: strings.TrimSpace(v.Get(FieldClass)),
		EquipmentType: strings.TrimSpace(v.Get(FieldType)),
		Tag:           strings.TrimSpace(v.Get(FieldTag)),
		RandomStat:    strings.TrimSpace(v.Get(FieldRandomStat)),
		LockedAttr:    optional(v.Get(FieldLockedAttr)),
		SetName:       optional(v.Get(FieldSetName)),
	}
	return req, ValidateEquipment(req)
}

// ValidateEquipment checks the required add-equipment fields
func ValidateEquipment(req models.EquipmentAdd) error {
	switch {
	case req.GuardianClass == "":
		return invalid(FieldClass, "請選擇職業")
	case req.EquipmentType == "":
		return invalid(FieldType, "請選擇裝備類型")
	case req.Tag == "":
		return invalid(FieldTag, "請選擇裝備標籤")
	case req.RandomStat == "":
		return invalid(FieldRandomStat, "請選擇隨機屬性")
	}
	return nil
}

// BuildForm harvests a configure-build submission. Target and exotic inputs are
// read for every attribute in attrs.
func BuildForm(v url.Values, attrs []string) (models.BuildConfigure, error) {
	req := models.BuildConfigure{
		GuardianClass:    strings.TrimSpace(v.Get(FieldClass)),
		TargetAttributes: make(map[string]float64),
		PreferredAttr:    optional(v.Get(FieldPreferredAttr)),
		UseExotic:        checked(v.Get(FieldUseExotic)),
	}

	for _, attr := range attrs {
		val, set, err := number(v.Get(TargetField(attr)))
		if err != nil {
			return req, invalid(TargetField(attr), "目標屬性值無效: "+attr)
		}
		if set && val > 0 {
			req.TargetAttributes[attr] = val
		}
	}

	if req.UseExotic {
		x := &models.ExoticEquipment{
			Name:       v.Get(FieldExoticName),
			Type:       strings.TrimSpace(v.Get(FieldExoticType)),
			Attributes: make(map[string]float64),
			Tag:        optional(v.Get(FieldExoticTag)),
		}
		if lvl, set, err := number(v.Get(FieldExoticLevel)); err == nil && set {
			x.Level = int(lvl)
		}
		for _, attr := range attrs {
			// unparsable exotic values count as unset
			if val, set, err := number(v.Get(ExoticField(attr))); err == nil && set {
				x.Attributes[attr] = val
			}
		}
		req.ExoticEquipment = x
	}

	if err := ValidateBuild(&req, attrs); err != nil {
		return req, err
	}
	return req, nil
}

// ValidateBuild checks a configure request and normalizes its exotic piece in place
func ValidateBuild(req *models.BuildConfigure, attrs []string) error {
	if req.GuardianClass == "" {
		return invalid(FieldClass, "請選擇職業")
	}

	for attr, val := range req.TargetAttributes {
		if val < 0 {
			return invalid(TargetField(attr), "目標屬性值無效: "+attr)
		}
		if val == 0 {
			delete(req.TargetAttributes, attr)
		}
	}
	if len(req.TargetAttributes) == 0 {
		return invalid("target_attributes", "請至少設置一個目標屬性")
	}

	if !req.UseExotic {
		req.ExoticEquipment = nil
		return nil
	}

	x, err := NormalizeExotic(req.ExoticEquipment, attrs)
	if err != nil {
		return err
	}
	req.ExoticEquipment = x
	return nil
}

// NormalizeExotic applies the exotic defaults: unset or non-positive attributes
// become ExoticDefaultValue, the level is clamped and the name defaulted.
func NormalizeExotic(x *models.ExoticEquipment, attrs []string) (*models.ExoticEquipment, error) {
	if x == nil || x.Type == "" {
		return nil, invalid(FieldExoticType, "請選擇異域裝備類型")
	}

	out := &models.ExoticEquipment{
		Name:       strings.TrimSpace(x.Name),
		Type:       x.Type,
		Attributes: make(map[string]float64, len(attrs)),
		Level:      min(max(x.Level, 0), models.MaxUpgradeLevel),
		Tag:        x.Tag,
	}
	if out.Name == "" {
		out.Name = models.DefaultExoticName
	}

	positive := 0
	for _, attr := range attrs {
		val := x.Attributes[attr]
		if val <= 0 {
			val = models.ExoticDefaultValue
		}
		out.Attributes[attr] = val
		if val > 0 {
			positive++
		}
	}
	if positive < models.MinExoticStats {
		return nil, invalid(FieldExoticType, "異域裝備至少需要3個正屬性")
	}
	return out, nil
}

// SaveForm harvests the build name for a save submission
func SaveForm(v url.Values) (string, error) {
	name := strings.TrimSpace(v.Get(FieldBuildName))
	if name == "" {
		return "", invalid(FieldBuildName, "請輸入套裝名稱")
	}
	return name, nil
}

// number parses a numeric input. Blank input reports set=false.
func number(s string) (val float64, set bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	val, err = strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	if val < 0 {
		return 0, false, strconv.ErrRange
	}
	return val, true, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func checked(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
