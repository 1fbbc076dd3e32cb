package web

import (
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/meur/gearforge/internal/forms"
	"github.com/meur/gearforge/internal/models"
)

const fragmentsPage = "fragments"

var pageNames = []string{"dashboard", "inventory", "builds", "build"}

var funcs = template.FuncMap{
	"targetField": forms.TargetField,
	"exoticField": forms.ExoticField,
	"num":         formatInput,
	"stat":        formatStat,
	"stats":       summarizeStats,
	"statList":    statList,
	"datetime":    formatTime,
	"deref":       deref,
	"pathEscape":  url.PathEscape,
	"isSelected":  isSelected,
}

// parsePages builds one template set per page, each with the shared layout
func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames)+1)
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html", "templates/partials.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		pages[name] = t
	}

	t, err := template.New(fragmentsPage).Funcs(funcs).ParseFS(templateFS, "templates/partials.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse fragments: %w", err)
	}
	pages[fragmentsPage] = t
	return pages, nil
}

// formatInput prints a form prefill value; zero stays blank
func formatInput(v float64) string {
	if v == 0 {
		return ""
	}
	return formatStat(v)
}

func formatStat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// summarizeStats prints stats in attribute order, e.g. "超能 100, 近戰 60"
func summarizeStats(m map[string]float64) string {
	parts := make([]string, 0, len(m))
	for _, sp := range statList(m) {
		parts = append(parts, sp.Name+" "+formatStat(sp.Value))
	}
	return strings.Join(parts, ", ")
}

type statPair struct {
	Name  string
	Value float64
}

// statList orders positive stats by the fixed attribute order
func statList(m map[string]float64) []statPair {
	out := make([]statPair, 0, len(m))
	for _, attr := range models.Attributes() {
		if v, ok := m[attr]; ok && v > 0 {
			out = append(out, statPair{Name: attr, Value: v})
		}
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func isSelected(current *string, value string) bool {
	return current != nil && *current == value
}
