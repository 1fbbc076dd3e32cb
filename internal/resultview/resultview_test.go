package resultview

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meur/gearforge/internal/optimizer"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Document
	}{
		{
			name: "single card",
			text: "【頭盔】\n1. Helmet X\n攻擊: 10",
			want: Document{Blocks: []Block{
				{Section: &Section{Title: "頭盔", Equipment: true, Cards: []Card{
					{Name: "Helmet X", Rows: []Row{{Key: "攻擊", Value: "10"}}},
				}}},
			}},
		},
		{
			name: "success status closes section",
			text: "【配置概要】\n職業: 泰坦\n✓ 完成\n目標: 1",
			want: Document{Blocks: []Block{
				{Section: &Section{Title: "配置概要", Rows: []Row{{Key: "職業", Value: "泰坦"}}}},
				{Status: &Status{OK: true, Text: "完成"}},
				{Section: &Section{Title: ImplicitTitle, Rows: []Row{{Key: "目標", Value: "1"}}}},
			}},
		},
		{
			name: "error status",
			text: "✗ 未能達成所有目標屬性",
			want: Document{Blocks: []Block{
				{Status: &Status{OK: false, Text: "未能達成所有目標屬性"}},
			}},
		},
		{
			name: "dividers blank lines and empty sections",
			text: "=====\n【空】\n\n【屬性總計】\n武器: 30 (目標 20)\n說明文字\n===\n",
			want: Document{Blocks: []Block{
				{Section: &Section{Title: "屬性總計", Rows: []Row{{Key: "武器", Value: "30 (目標 20)"}}}},
			}},
		},
		{
			name: "exotic section with tags and groups",
			text: strings.Join([]string{
				"【胸鎧（異域）】",
				"1. 星火",
				"[槍手] [異域] [套裝: 鐵旗]",
				"等級： 0 → 5",
				"基礎屬性: 武器 30，手榴彈 25、超能: 5",
				"調整:",
				"  健康: +5",
				"  武器: -5",
				"屬性貢獻: 武器 35",
				"2. 第二件",
			}, "\n"),
			want: Document{Blocks: []Block{
				{Section: &Section{Title: "胸鎧（異域）", Equipment: true, Exotic: true, Cards: []Card{
					{
						Name: "星火",
						Tags: []string{"槍手", "異域", "套裝: 鐵旗"},
						Rows: []Row{{Key: "等級", Value: "0 → 5"}},
						Groups: []Group{
							{Label: "基礎屬性", Rows: []Row{
								{Key: "武器", Value: "30"},
								{Key: "手榴彈", Value: "25"},
								{Key: "超能", Value: "5"},
							}},
							{Label: "調整", Rows: []Row{
								{Key: "健康", Value: "+5"},
								{Key: "武器", Value: "-5"},
							}},
							{Label: "屬性貢獻", Rows: []Row{{Key: "武器", Value: "35"}}},
						},
					},
					{Name: "第二件"},
				}}},
			}},
		},
		{
			name: "non-slot title is a plain section",
			text: "【頭盔套裝】\n1. 不是卡片\n鍵: 值",
			want: Document{Blocks: []Block{
				{Section: &Section{Title: "頭盔套裝", Rows: []Row{{Key: "鍵", Value: "值"}}}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.text)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStatusAlwaysStandalone(t *testing.T) {
	for _, marker := range []string{"✓", "✗"} {
		doc := Parse("【頭盔】\n1. A\n" + marker + " 狀態\n攻擊: 1")
		require.Len(t, doc.Blocks, 3)
		assert.NotNil(t, doc.Blocks[0].Section)
		require.NotNil(t, doc.Blocks[1].Status)
		assert.Equal(t, marker == "✓", doc.Blocks[1].Status.OK)
		assert.Equal(t, ImplicitTitle, doc.Blocks[2].Section.Title)
	}
}

func TestRenderEscapes(t *testing.T) {
	html, err := HTML("【頭盔】\n1. <script>x</script>\n✗ 失敗")
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, `class="result-section equipment-section"`)
	assert.Contains(t, out, "&lt;script&gt;")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, `class="result-status error"`)
}

func TestFormattedResultRoundTrip(t *testing.T) {
	res := &optimizer.Result{
		GuardianClass: "泰坦",
		TargetsMet:    false,
		Targets:       map[string]float64{"健康": 100},
		Equipment: []optimizer.Pick{
			{
				Slot: "頭盔", EquipmentID: "泰坦_頭盔_001", Name: "堡壘_頭盔", Tag: "堡壘",
				PlannedLevel: 5,
				Base:         map[string]float64{"健康": 30, "職業": 25, "武器": 20},
				Masterwork:   map[string]float64{"手榴彈": 5, "超能": 5, "近戰": 5},
				Contribution: map[string]float64{"健康": 30, "職業": 25, "武器": 20, "手榴彈": 5, "超能": 5, "近戰": 5},
			},
			{
				Slot: "臂鎧", Name: "異域臂鎧", Exotic: true, Level: 2, PlannedLevel: 2,
				Base:         map[string]float64{"健康": 5, "職業": 5, "武器": 5},
				Contribution: map[string]float64{"健康": 5, "職業": 5, "武器": 5},
			},
		},
		MissingSlots: []string{"胸鎧", "護腿", "職業物品"},
		Totals:       map[string]float64{"健康": 35},
		Shortfall:    map[string]float64{"健康": 65},
	}

	doc := Parse(optimizer.FormatResult(res))

	var slots []string
	var statuses int
	for _, b := range doc.Blocks {
		if b.Status != nil {
			statuses++
			assert.False(t, b.Status.OK)
			continue
		}
		if b.Section.Equipment {
			slots = append(slots, b.Section.Title)
			require.Len(t, b.Section.Cards, 1)
		}
	}
	assert.Equal(t, []string{"頭盔", "臂鎧(異域)"}, slots)
	assert.Equal(t, 2, statuses)

	helmet := doc.Blocks[2].Section.Cards[0]
	assert.Equal(t, "堡壘_頭盔", helmet.Name)
	assert.Equal(t, []string{"堡壘"}, helmet.Tags)
	labels := make([]string, 0, len(helmet.Groups))
	for _, g := range helmet.Groups {
		labels = append(labels, g.Label)
	}
	assert.Equal(t, []string{"基礎屬性", "補充詞條", "屬性貢獻"}, labels)
}

func TestFormattedResultKeepsFreeTextNames(t *testing.T) {
	res := &optimizer.Result{
		GuardianClass: "泰坦",
		TargetsMet:    true,
		Targets:       map[string]float64{"健康": 30},
		Equipment: []optimizer.Pick{
			{
				Slot: "頭盔", Name: "聖人-14: 極光", Exotic: true,
				Base:         map[string]float64{"健康": 30},
				Contribution: map[string]float64{"健康": 30},
			},
			{
				Slot: "臂鎧", EquipmentID: "泰坦_臂鎧_001", Name: "[傳說] 臂鎧", Tag: "堡壘", SetName: "鐵]旗：二",
				Base:         map[string]float64{"健康": 30},
				Contribution: map[string]float64{"健康": 30},
			},
			{
				Slot: "胸鎧", Name: "胸鎧\n✓ 偽造\n【護腿】\n1. 假卡",
				Base:         map[string]float64{"健康": 30},
				Contribution: map[string]float64{"健康": 30},
			},
		},
		Totals: map[string]float64{"健康": 90},
		SetBonuses: []optimizer.AppliedSetBonus{
			{Set: "鐵]旗：二", Pieces: 2, Bonus: map[string]float64{"健康": 5}},
		},
	}

	doc := Parse(optimizer.FormatResult(res))

	var cards []Card
	var statuses int
	for _, b := range doc.Blocks {
		if b.Status != nil {
			statuses++
			continue
		}
		if b.Section.Equipment {
			require.Len(t, b.Section.Cards, 1, b.Section.Title)
			cards = append(cards, b.Section.Cards[0])
		}
	}
	assert.Equal(t, 1, statuses)
	require.Len(t, cards, 3)

	assert.Equal(t, "聖人-14· 極光", cards[0].Name)
	assert.Equal(t, []string{"異域"}, cards[0].Tags)

	assert.Equal(t, "(傳說) 臂鎧", cards[1].Name)
	assert.Equal(t, []string{"堡壘", "套裝: 鐵)旗·二"}, cards[1].Tags)

	assert.Equal(t, "胸鎧 ✓ 偽造 (護腿) 1. 假卡", cards[2].Name)

	var bonus *Section
	for _, b := range doc.Blocks {
		if b.Section != nil && b.Section.Title == "套裝加成" {
			bonus = b.Section
		}
	}
	require.NotNil(t, bonus)
	require.Len(t, bonus.Rows, 1)
	assert.Equal(t, "鐵)旗·二(2件)", bonus.Rows[0].Key)
}
