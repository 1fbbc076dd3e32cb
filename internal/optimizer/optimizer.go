// Package optimizer searches a class inventory for the armor combination that
// best meets a set of target stat totals.
//
// Every regular piece is planned at the maximum upgrade level, where each stat
// outside its main/sub/random rolls gains one point per level. A piece with a
// locked (tuned) stat gains TuningValue on it and loses the same amount on a
// penalty stat chosen per combination. An exotic piece, when given, takes its
// slot exclusively and contributes its attributes as supplied.
package optimizer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/meur/gearforge/internal/config"
	"github.com/meur/gearforge/internal/models"
)

// Request describes one build search
type Request struct {
	GuardianClass models.GuardianClass
	Targets       map[string]float64
	PreferredAttr string
	Exotic        *models.ExoticEquipment
}

// Pick is the piece chosen for one slot
type Pick struct {
	Slot         string             `json:"slot"`
	EquipmentID  string             `json:"equipment_id,omitempty"`
	Name         string             `json:"name"`
	Tag          string             `json:"tag,omitempty"`
	Exotic       bool               `json:"exotic"`
	SetName      string             `json:"set_name,omitempty"`
	Level        int                `json:"level"`
	PlannedLevel int                `json:"planned_level"`
	Base         map[string]float64 `json:"base_attributes"`
	Masterwork   map[string]float64 `json:"masterwork_bonus,omitempty"`
	TunedAttr    string             `json:"tuned_attr,omitempty"`
	PenaltyAttr  string             `json:"penalty_attr,omitempty"`
	Contribution map[string]float64 `json:"contribution"`
}

// AppliedSetBonus is a set tier active in the chosen combination
type AppliedSetBonus struct {
	Set    string             `json:"set"`
	Pieces int                `json:"pieces"`
	Bonus  map[string]float64 `json:"bonus"`
}

// Result is the structured outcome of a search
type Result struct {
	GuardianClass string             `json:"guardian_class"`
	TargetsMet    bool               `json:"targets_met"`
	Targets       map[string]float64 `json:"target_attributes"`
	PreferredAttr string             `json:"preferred_attr,omitempty"`
	Equipment     []Pick             `json:"equipment"`
	MissingSlots  []string           `json:"missing_slots"`
	SetBonuses    []AppliedSetBonus  `json:"set_bonuses,omitempty"`
	Totals        map[string]float64 `json:"total_attributes"`
	Shortfall     map[string]float64 `json:"shortfall,omitempty"`
	Evaluated     int64              `json:"combinations_evaluated"`
	Formatted     string             `json:"formatted,omitempty"`
}

// Optimizer runs build searches
type Optimizer struct {
	workers         int
	maxCombinations int
	setBonuses      map[string]map[int]map[string]float64
}

// New creates an optimizer from configuration
func New(cfg config.OptimizerConfig) *Optimizer {
	o := &Optimizer{
		workers:         cfg.Workers,
		maxCombinations: cfg.MaxCombinations,
		setBonuses:      cfg.SetBonuses,
	}
	if o.workers < 1 {
		o.workers = 1
	}
	if o.maxCombinations < 1 {
		o.maxCombinations = 500000
	}
	return o
}

const numAttrs = 6

type stats [numAttrs]float64

var attrIndex = func() map[string]int {
	m := make(map[string]int, numAttrs)
	for i, a := range models.Attributes() {
		m[a] = i
	}
	return m
}()

func toStats(m map[string]float64) stats {
	var s stats
	for k, v := range m {
		if i, ok := attrIndex[k]; ok {
			s[i] = v
		}
	}
	return s
}

func fromStats(s stats, keepZero bool) map[string]float64 {
	out := make(map[string]float64, numAttrs)
	for i, a := range models.Attributes() {
		if keepZero || s[i] != 0 {
			out[a] = s[i]
		}
	}
	return out
}

// candidate is a piece prepared for evaluation
type candidate struct {
	slot       string
	item       *models.Equipment
	exotic     *models.ExoticEquipment
	base       stats
	masterwork stats
	value      stats // base + masterwork + tuning bonus, before penalty
	tuned      int   // attribute index, -1 when untuned
	setName    string
}

func newCandidate(e *models.Equipment) candidate {
	c := candidate{slot: e.Type, item: e, tuned: -1, base: toStats(e.Attributes)}
	if e.SetName != nil {
		c.setName = *e.SetName
	}
	for i := range c.base {
		if c.base[i] == 0 {
			c.masterwork[i] = models.MaxUpgradeLevel
		}
	}
	for i := range c.value {
		c.value[i] = c.base[i] + c.masterwork[i]
	}
	if e.LockedAttr != nil {
		if i, ok := attrIndex[*e.LockedAttr]; ok {
			c.tuned = i
			c.value[i] += models.TuningValue
		}
	}
	return c
}

func exoticCandidate(x *models.ExoticEquipment) candidate {
	c := candidate{slot: x.Type, exotic: x, tuned: -1, base: toStats(x.Attributes)}
	c.value = c.base
	return c
}

func (c candidate) id() string {
	if c.item != nil {
		return c.item.ID
	}
	return "exotic"
}

// evaluation is a scored combination
type evaluation struct {
	picks     []candidate
	penalties []int
	totals    stats
	sets      []AppliedSetBonus
	shortfall float64
	preferred float64
	sum       float64
	key       string
}

func (e *evaluation) better(o *evaluation) bool {
	if o == nil {
		return true
	}
	if e.shortfall != o.shortfall {
		return e.shortfall < o.shortfall
	}
	if e.preferred != o.preferred {
		return e.preferred > o.preferred
	}
	if e.sum != o.sum {
		return e.sum > o.sum
	}
	return e.key < o.key
}

// Search finds the best combination for req within inventory.
func (o *Optimizer) Search(ctx context.Context, inventory []models.Equipment, req Request) (*Result, error) {
	targets := toStats(req.Targets)
	preferred := -1
	if req.PreferredAttr != "" {
		i, ok := attrIndex[req.PreferredAttr]
		if !ok {
			return nil, fmt.Errorf("unknown preferred attribute %q", req.PreferredAttr)
		}
		preferred = i
	}

	slots, missing := o.candidates(inventory, req)
	slots = o.prune(slots, targets, preferred)

	var evaluated atomic.Int64
	var best *evaluation

	if len(slots) > 0 {
		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.workers)

		for _, first := range slots[0] {
			first := first
			g.Go(func() error {
				local, n, err := o.searchFrom(gctx, first, slots[1:], targets, preferred)
				evaluated.Add(n)
				if err != nil {
					return err
				}
				mu.Lock()
				if local.better(best) {
					best = local
				}
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("build search aborted: %w", err)
		}
	} else {
		best = o.evaluate(nil, targets, preferred)
	}

	res := o.result(req, best, missing)
	res.Evaluated = evaluated.Load()
	return res, nil
}

// candidates groups usable pieces by slot in the fixed slot order and
// returns the slots that have none.
func (o *Optimizer) candidates(inventory []models.Equipment, req Request) ([][]candidate, []string) {
	bySlot := make(map[string][]candidate)
	for i := range inventory {
		e := &inventory[i]
		if req.Exotic != nil && e.Type == req.Exotic.Type {
			continue
		}
		bySlot[e.Type] = append(bySlot[e.Type], newCandidate(e))
	}
	if req.Exotic != nil {
		bySlot[req.Exotic.Type] = []candidate{exoticCandidate(req.Exotic)}
	}

	var slots [][]candidate
	missing := []string{}
	for _, t := range models.EquipmentTypes() {
		cs := bySlot[t]
		if len(cs) == 0 {
			missing = append(missing, t)
			continue
		}
		sort.Slice(cs, func(i, j int) bool { return cs[i].id() < cs[j].id() })
		slots = append(slots, cs)
	}
	return slots, missing
}

// prune trims the least relevant pieces until the combination count fits.
func (o *Optimizer) prune(slots [][]candidate, targets stats, preferred int) [][]candidate {
	total := func() int {
		n := 1
		for _, cs := range slots {
			n *= len(cs)
			if n > o.maxCombinations {
				return n
			}
		}
		return n
	}
	if total() <= o.maxCombinations {
		return slots
	}

	relevance := func(c candidate) float64 {
		r := 0.0
		for i := range targets {
			if targets[i] > 0 {
				r += min(c.value[i], targets[i])
			}
		}
		if preferred >= 0 {
			r += c.value[preferred] / 100
		}
		return r
	}
	for _, cs := range slots {
		sort.SliceStable(cs, func(i, j int) bool { return relevance(cs[i]) > relevance(cs[j]) })
	}

	for total() > o.maxCombinations {
		widest := 0
		for i := range slots {
			if len(slots[i]) > len(slots[widest]) {
				widest = i
			}
		}
		if len(slots[widest]) <= 1 {
			break
		}
		slots[widest] = slots[widest][:len(slots[widest])-1]
	}
	return slots
}

// searchFrom walks every combination that starts with first.
func (o *Optimizer) searchFrom(ctx context.Context, first candidate, rest [][]candidate, targets stats, preferred int) (*evaluation, int64, error) {
	var best *evaluation
	var n int64

	picks := make([]candidate, 0, len(rest)+1)
	picks = append(picks, first)
	idx := make([]int, len(rest))

	for {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, n, err
			}
		}

		picks = picks[:1]
		for i, cs := range rest {
			picks = append(picks, cs[idx[i]])
		}
		ev := o.evaluate(picks, targets, preferred)
		n++
		if ev.better(best) {
			ev.picks = append([]candidate(nil), picks...)
			best = ev
		}

		// advance the odometer
		i := len(rest) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(rest[i]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return best, n, nil
		}
	}
}

// evaluate totals a combination, applies set bonuses and chooses tuning penalties.
func (o *Optimizer) evaluate(picks []candidate, targets stats, preferred int) *evaluation {
	ev := &evaluation{picks: picks, penalties: make([]int, len(picks))}

	ids := make([]string, len(picks))
	setCounts := map[string]int{}
	for i, c := range picks {
		ev.penalties[i] = -1
		ids[i] = c.id()
		for a := range ev.totals {
			ev.totals[a] += c.value[a]
		}
		if c.setName != "" {
			setCounts[c.setName]++
		}
	}
	ev.key = strings.Join(ids, "|")

	ev.sets = o.applySets(setCounts, &ev.totals)

	for i, c := range picks {
		if c.tuned < 0 {
			continue
		}
		penalty := -1
		bestSurplus := 0.0
		for a := range ev.totals {
			if a == c.tuned || c.value[a] < models.TuningValue {
				continue
			}
			surplus := ev.totals[a] - targets[a]
			if penalty < 0 || surplus > bestSurplus {
				penalty, bestSurplus = a, surplus
			}
		}
		if penalty < 0 {
			// nothing can absorb the penalty, so the tuning is not applied
			ev.totals[c.tuned] -= models.TuningValue
			continue
		}
		ev.penalties[i] = penalty
		ev.totals[penalty] -= models.TuningValue
	}

	for a := range ev.totals {
		if d := targets[a] - ev.totals[a]; d > 0 {
			ev.shortfall += d
		}
		ev.sum += ev.totals[a]
	}
	if preferred >= 0 {
		ev.preferred = ev.totals[preferred]
	}
	return ev
}

// applySets adds the largest satisfied tier of each set to totals.
func (o *Optimizer) applySets(counts map[string]int, totals *stats) []AppliedSetBonus {
	if len(counts) == 0 || len(o.setBonuses) == 0 {
		return nil
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	var applied []AppliedSetBonus
	for _, name := range names {
		tiers, ok := o.setBonuses[name]
		if !ok {
			continue
		}
		bestPieces := 0
		for pieces := range tiers {
			if pieces <= counts[name] && pieces > bestPieces {
				bestPieces = pieces
			}
		}
		if bestPieces == 0 {
			continue
		}
		bonus := tiers[bestPieces]
		for attr, v := range bonus {
			if i, ok := attrIndex[attr]; ok {
				totals[i] += v
			}
		}
		applied = append(applied, AppliedSetBonus{Set: name, Pieces: bestPieces, Bonus: bonus})
	}
	return applied
}

func (o *Optimizer) result(req Request, ev *evaluation, missing []string) *Result {
	res := &Result{
		GuardianClass: string(req.GuardianClass),
		Targets:       req.Targets,
		PreferredAttr: req.PreferredAttr,
		Equipment:     []Pick{},
		MissingSlots:  missing,
		SetBonuses:    ev.sets,
		Totals:        fromStats(ev.totals, true),
	}

	targets := toStats(req.Targets)
	shortfall := stats{}
	for a := range targets {
		if d := targets[a] - ev.totals[a]; d > 0 {
			shortfall[a] = d
		}
	}
	res.Shortfall = fromStats(shortfall, false)
	res.TargetsMet = len(res.Shortfall) == 0 && len(missing) == 0

	for i, c := range ev.picks {
		contribution := c.value
		p := Pick{
			Slot:       c.slot,
			Base:       fromStats(c.base, false),
			Masterwork: fromStats(c.masterwork, false),
		}
		if c.tuned >= 0 {
			if pen := ev.penalties[i]; pen >= 0 {
				p.TunedAttr = models.Attributes()[c.tuned]
				p.PenaltyAttr = models.Attributes()[pen]
				contribution[pen] -= models.TuningValue
			} else {
				contribution[c.tuned] -= models.TuningValue
			}
		}
		p.Contribution = fromStats(contribution, true)

		if c.item != nil {
			p.EquipmentID = c.item.ID
			p.Name = c.item.Name
			p.Tag = c.item.Tag
			p.SetName = c.setName
			p.Level = c.item.Level
			p.PlannedLevel = models.MaxUpgradeLevel
		} else {
			p.Name = c.exotic.Name
			p.Exotic = true
			if c.exotic.Tag != nil {
				p.Tag = *c.exotic.Tag
			}
			p.Level = c.exotic.Level
			p.PlannedLevel = c.exotic.Level
			p.Masterwork = nil
		}
		res.Equipment = append(res.Equipment, p)
	}

	res.Formatted = FormatResult(res)
	return res
}
