package optimizer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/meur/gearforge/internal/models"
)

const divider = "=============================="

// markup maps characters the result grammar treats as structure to inert
// look-alikes, so free-text names always stay a single plain token.
var markup = strings.NewReplacer(
	":", "·", "：", "·",
	"[", "(", "]", ")",
	"【", "(", "】", ")",
	"\r\n", " ", "\r", " ", "\n", " ",
)

// plain makes user-supplied text safe to embed in a result line
func plain(s string) string {
	return strings.TrimSpace(markup.Replace(s))
}

// FormatResult renders a result as the sectioned text block the front-end
// formatter understands. Equipment sections never contain blank lines, since
// a blank line closes the section.
func FormatResult(r *Result) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line(divider)
	line("【配置概要】")
	line("職業: %s", r.GuardianClass)
	if targets := joinStats(r.Targets, "", true); targets != "" {
		line("目標屬性: %s", targets)
	}
	if r.PreferredAttr != "" {
		line("偏好屬性: %s", r.PreferredAttr)
	}
	line("已評估組合: %d", r.Evaluated)
	line(divider)

	if r.TargetsMet {
		line("✓ 所有目標屬性均已達成")
	} else {
		line("✗ 未能達成所有目標屬性")
	}

	for _, p := range r.Equipment {
		if p.Exotic {
			line("【%s(異域)】", p.Slot)
		} else {
			line("【%s】", p.Slot)
		}
		line("1. %s", plain(p.Name))

		var tags []string
		if p.Tag != "" {
			tags = append(tags, "["+plain(p.Tag)+"]")
		}
		if p.Exotic {
			tags = append(tags, "[異域]")
		}
		if p.SetName != "" {
			tags = append(tags, "[套裝: "+plain(p.SetName)+"]")
		}
		if len(tags) > 0 {
			line("%s", strings.Join(tags, " "))
		}

		if p.EquipmentID != "" {
			line("裝備ID: %s", p.EquipmentID)
		}
		if p.PlannedLevel != p.Level {
			line("等級: %d → %d", p.Level, p.PlannedLevel)
		} else {
			line("等級: %d", p.Level)
		}
		line("基礎屬性: %s", joinStats(p.Base, "", false))
		if len(p.Masterwork) > 0 {
			line("補充詞條: %s", joinStats(p.Masterwork, "+", false))
		}
		if p.TunedAttr != "" {
			line("調整: %s +%d, %s -%d", p.TunedAttr, models.TuningValue, p.PenaltyAttr, models.TuningValue)
		}
		line("屬性貢獻: %s", joinStats(p.Contribution, "", true))
	}

	line(divider)
	line("【屬性總計】")
	for _, attr := range models.Attributes() {
		total := r.Totals[attr]
		if target, ok := r.Targets[attr]; ok && target > 0 {
			line("%s: %s (目標 %s)", attr, num(total), num(target))
		} else {
			line("%s: %s", attr, num(total))
		}
	}

	if len(r.SetBonuses) > 0 {
		line(divider)
		line("【套裝加成】")
		for _, sb := range r.SetBonuses {
			line("%s(%d件): %s", plain(sb.Set), sb.Pieces, joinStats(sb.Bonus, "+", false))
		}
	}

	if len(r.Shortfall) > 0 {
		line(divider)
		line("【未達成目標】")
		for _, attr := range models.Attributes() {
			if d, ok := r.Shortfall[attr]; ok {
				line("%s: 差 %s", attr, num(d))
			}
		}
	}

	if len(r.MissingSlots) > 0 {
		line("✗ 缺少裝備部位: %s", strings.Join(r.MissingSlots, "、"))
	}

	return b.String()
}

// joinStats prints stats in attribute order as "健康 30, 職業 25".
func joinStats(m map[string]float64, sign string, keepZero bool) string {
	var parts []string
	for _, attr := range models.Attributes() {
		v, ok := m[attr]
		if !ok || (v == 0 && !keepZero) {
			continue
		}
		parts = append(parts, attr+" "+sign+num(v))
	}
	return strings.Join(parts, ", ")
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
