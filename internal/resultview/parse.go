// Package resultview turns the backend's preformatted build-result text into
// a document tree and renders it as HTML.
//
// The text is read line by line in a single pass. 【title】 lines open
// sections, divider and blank lines close them, and ✓/✗ lines become
// standalone status banners. Sections titled with a slot name hold equipment
// cards; every other section holds key/value rows.
package resultview

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/meur/gearforge/internal/models"
)

// ImplicitTitle names the section opened for content outside any 【】 header
const ImplicitTitle = "其他信息"

// Document is a parsed result
type Document struct {
	Blocks []Block
}

// Block is exactly one of a section or a status banner
type Block struct {
	Section *Section
	Status  *Status
}

// Status is a ✓ (OK) or ✗ banner
type Status struct {
	OK   bool
	Text string
}

// Section is a titled group of rows, or of cards for equipment sections
type Section struct {
	Title     string
	Equipment bool
	Exotic    bool
	Rows      []Row
	Cards     []Card
}

// Card is one equipment piece inside an equipment section
type Card struct {
	Name   string
	Tags   []string
	Rows   []Row
	Groups []Group
}

// Group is a labeled list of stats on a card, such as 基礎屬性
type Group struct {
	Label string
	Rows  []Row
}

// Row is a key/value pair
type Row struct {
	Key   string
	Value string
}

var (
	dividerRe  = regexp.MustCompile(`^={3,}$`)
	numberedRe = regexp.MustCompile(`^\d+\.\s*(.*)$`)
	tagRe      = regexp.MustCompile(`\[([^\]]*)\]`)
)

var groupKeys = map[string]bool{
	"補充詞條": true,
	"調整":   true,
	"套裝加成": true,
}

// parser holds the open section, card and group during the pass
type parser struct {
	doc     Document
	section *Section
	card    *Card
	group   *Group
}

// Parse reads result text into a document
func Parse(text string) Document {
	p := &parser{}
	for _, line := range strings.Split(text, "\n") {
		p.line(strings.TrimRight(line, "\r"))
	}
	p.closeSection()
	return p.doc
}

func (p *parser) line(raw string) {
	line := strings.TrimSpace(raw)

	switch {
	case line == "" || dividerRe.MatchString(line):
		p.closeSection()
		return

	case strings.HasPrefix(line, "【") && strings.HasSuffix(line, "】"):
		p.closeSection()
		title := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(line, "【"), "】"))
		slot, exotic := splitExotic(title)
		p.section = &Section{
			Title:     title,
			Equipment: models.IsEquipmentType(slot),
			Exotic:    exotic && models.IsEquipmentType(slot),
		}
		return

	case strings.HasPrefix(line, "✓"), strings.HasPrefix(line, "✗"):
		p.closeSection()
		ok := strings.HasPrefix(line, "✓")
		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(line, "✓"), "✗"))
		p.doc.Blocks = append(p.doc.Blocks, Block{Status: &Status{OK: ok, Text: text}})
		return
	}

	if p.section == nil {
		p.section = &Section{Title: ImplicitTitle}
	}

	if p.section.Equipment {
		p.equipmentLine(line, raw != strings.TrimLeft(raw, " \t"))
		return
	}

	if key, value, ok := splitColon(line); ok {
		p.section.Rows = append(p.section.Rows, Row{Key: key, Value: value})
	}
}

func (p *parser) equipmentLine(line string, indented bool) {
	if m := numberedRe.FindStringSubmatch(line); m != nil {
		p.flushCard()
		p.card = &Card{}
		line = m[1]
	} else if p.card == nil {
		p.card = &Card{}
	}

	for _, m := range tagRe.FindAllStringSubmatch(line, -1) {
		if tag := strings.TrimSpace(m[1]); tag != "" {
			p.card.Tags = append(p.card.Tags, tag)
		}
	}
	line = strings.TrimSpace(tagRe.ReplaceAllString(line, ""))
	if line == "" {
		return
	}

	key, value, ok := splitColon(line)
	if !ok {
		if p.card.Name == "" {
			p.card.Name = line
		}
		return
	}

	if p.group != nil && indented {
		p.group.Rows = append(p.group.Rows, Row{Key: key, Value: value})
		return
	}
	p.flushGroup()

	if isGroupKey(key) {
		p.group = &Group{Label: key}
		if value != "" {
			p.group.Rows = splitItems(value)
			p.flushGroup()
		}
		return
	}
	p.card.Rows = append(p.card.Rows, Row{Key: key, Value: value})
}

func (p *parser) flushGroup() {
	if p.group != nil && p.card != nil && len(p.group.Rows) > 0 {
		p.card.Groups = append(p.card.Groups, *p.group)
	}
	p.group = nil
}

func (p *parser) flushCard() {
	p.flushGroup()
	if p.card != nil && p.section != nil {
		p.section.Cards = append(p.section.Cards, *p.card)
	}
	p.card = nil
}

func (p *parser) closeSection() {
	p.flushCard()
	if p.section != nil && (len(p.section.Rows) > 0 || len(p.section.Cards) > 0) {
		p.doc.Blocks = append(p.doc.Blocks, Block{Section: p.section})
	}
	p.section = nil
}

// splitExotic strips an (異域) suffix in either width
func splitExotic(title string) (string, bool) {
	for _, suffix := range []string{"(異域)", "（異域）"} {
		if strings.HasSuffix(title, suffix) {
			return strings.TrimSpace(strings.TrimSuffix(title, suffix)), true
		}
	}
	return title, false
}

// splitColon splits at the first ASCII or full-width colon
func splitColon(line string) (key, value string, ok bool) {
	i := strings.IndexAny(line, ":：")
	if i < 0 {
		return "", "", false
	}
	_, width := utf8.DecodeRuneInString(line[i:])
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+width:]), true
}

func isGroupKey(key string) bool {
	return groupKeys[key] || strings.HasSuffix(key, "屬性") || strings.HasSuffix(key, "貢獻")
}

// splitItems splits "健康 30, 職業: 25" into rows
func splitItems(value string) []Row {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == '，' || r == '、'
	})

	rows := make([]Row, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if key, val, ok := splitColon(f); ok {
			rows = append(rows, Row{Key: key, Value: val})
			continue
		}
		if i := strings.LastIndexAny(f, " \t"); i > 0 {
			rows = append(rows, Row{Key: strings.TrimSpace(f[:i]), Value: strings.TrimSpace(f[i+1:])})
			continue
		}
		rows = append(rows, Row{Key: f})
	}
	return rows
}
