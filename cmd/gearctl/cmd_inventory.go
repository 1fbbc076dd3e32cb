package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meur/gearforge/internal/forms"
	"github.com/meur/gearforge/internal/models"
)

var (
	addClass  string
	addType   string
	addTag    string
	addRandom string
	addLocked string
	addSet    string

	inventoryClass string
	assumeYes      bool
)

// referenceCmd prints the backend's reference data
var referenceCmd = &cobra.Command{
	Use:     "reference",
	Aliases: []string{"classes"},
	Short:   "Show classes, slots, tags and attributes",
	RunE:    runReference,
}

// addCmd adds a piece to a class inventory
var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a piece of equipment",
	Example: `  gearctl add --class 泰坦 --type 頭盔 --tag 堡壘 --random 武器
  gearctl add --class 術士 --type 護腿 --tag 至高典範 --random 健康 --locked 超能 --set 鐵旗`,
	RunE: runAdd,
}

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "List or delete inventory pieces",
}

var inventoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List inventory grouped by slot",
	RunE:  runInventoryList,
}

var inventoryDeleteCmd = &cobra.Command{
	Use:   "delete <class> <equipment-id>",
	Short: "Delete a piece after confirmation",
	Args:  cobra.ExactArgs(2),
	RunE:  runInventoryDelete,
}

func init() {
	addCmd.Flags().StringVar(&addClass, "class", "", "Guardian class")
	addCmd.Flags().StringVar(&addType, "type", "", "Equipment slot")
	addCmd.Flags().StringVar(&addTag, "tag", "", "Archetype tag")
	addCmd.Flags().StringVar(&addRandom, "random", "", "Random stat")
	addCmd.Flags().StringVar(&addLocked, "locked", "", "Tuned stat (optional)")
	addCmd.Flags().StringVar(&addSet, "set", "", "Set name (optional)")

	inventoryListCmd.Flags().StringVar(&inventoryClass, "class", "", "Only list one class")
	inventoryDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	buildsDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runReference(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	classes, err := c.Classes(ctx)
	if err != nil {
		return err
	}
	types, err := c.EquipmentTypes(ctx)
	if err != nil {
		return err
	}
	tags, err := c.EquipmentTags(ctx)
	if err != nil {
		return err
	}
	attrs, err := c.Attributes(ctx)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(classes))
	for _, cl := range classes {
		names = append(names, cl.Name)
	}
	fmt.Fprintln(out, titleStyle.Render("職業")+"  "+strings.Join(names, "、"))
	fmt.Fprintln(out, titleStyle.Render("部位")+"  "+strings.Join(types, "、"))
	fmt.Fprintln(out, titleStyle.Render("屬性")+"  "+strings.Join(attrs, "、"))
	fmt.Fprintln(out, titleStyle.Render("標籤"))
	for _, t := range tags {
		fmt.Fprintf(out, "  %s %s\n", keyStyle.Render(t.Tag), mutedStyle.Render(t.MainAttr+" / "+t.SubAttr))
	}
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	req, err := forms.AddEquipmentForm(url.Values{
		forms.FieldClass:      {addClass},
		forms.FieldType:       {addType},
		forms.FieldTag:        {addTag},
		forms.FieldRandomStat: {addRandom},
		forms.FieldLockedAttr: {addLocked},
		forms.FieldSetName:    {addSet},
	})
	if err != nil {
		return err
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	e, err := c.AddEquipment(cmd.Context(), req)
	if err != nil {
		return err
	}

	notifySuccess(cmd.OutOrStdout(), fmt.Sprintf("裝備已添加: %s (%s)", e.Name, e.ID))
	return nil
}

func runInventoryList(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	byClass, err := loadInventory(cmd.Context(), c.ListEquipment, c.ListAllEquipment)
	if err != nil {
		return err
	}

	for _, class := range models.AllClasses() {
		items, ok := byClass[string(class)]
		if !ok {
			continue
		}
		fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%s (%d 件)", class, len(items))))
		if len(items) == 0 {
			fmt.Fprintln(out, mutedStyle.Render("  倉庫中沒有裝備"))
			continue
		}
		for _, slot := range models.EquipmentTypes() {
			var rows []string
			for _, e := range items {
				if e.Type == slot {
					rows = append(rows, formatItem(e))
				}
			}
			if len(rows) == 0 {
				continue
			}
			fmt.Fprintln(out, "  "+keyStyle.Render(slot))
			for _, r := range rows {
				fmt.Fprintln(out, "    "+r)
			}
		}
	}
	return nil
}

// loadInventory lists one class when --class is set, otherwise all of them
func loadInventory(
	ctx context.Context,
	one func(context.Context, string) ([]models.EquipmentView, error),
	all func(context.Context) (map[string][]models.EquipmentView, error),
) (map[string][]models.EquipmentView, error) {
	if inventoryClass == "" {
		return all(ctx)
	}
	items, err := one(ctx, inventoryClass)
	if err != nil {
		return nil, err
	}
	return map[string][]models.EquipmentView{inventoryClass: items}, nil
}

func formatItem(e models.EquipmentView) string {
	var stats []string
	for _, attr := range models.Attributes() {
		if v := e.Attributes[attr]; v > 0 {
			stats = append(stats, fmt.Sprintf("%s %g", attr, v))
		}
	}
	line := fmt.Sprintf("%s %s  %s", e.ID, e.Name, strings.Join(stats, ", "))
	if e.LockedAttr != nil {
		line += mutedStyle.Render("  調整: " + *e.LockedAttr)
	}
	if e.SetName != nil {
		line += mutedStyle.Render("  套裝: " + *e.SetName)
	}
	return line
}

func runInventoryDelete(cmd *cobra.Command, args []string) error {
	class, id := args[0], args[1]
	out := cmd.OutOrStdout()

	if !assumeYes && !confirm(cmd.InOrStdin(), out, fmt.Sprintf("確定要刪除裝備 %s 嗎？", id)) {
		notifyInfo(out, "已取消")
		return nil
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	msg, err := c.DeleteEquipment(cmd.Context(), class, id)
	if err != nil {
		return err
	}
	notifySuccess(out, msg)
	return nil
}
