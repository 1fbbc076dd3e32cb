package main

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meur/gearforge/internal/forms"
	"github.com/meur/gearforge/internal/models"
	"github.com/meur/gearforge/internal/resultview"
)

var (
	cfgClass       string
	cfgTargets     []string
	cfgPreferred   string
	cfgExoticType  string
	cfgExoticName  string
	cfgExoticLevel string
	cfgExoticTag   string
	cfgExoticAttrs []string
	cfgSave        string

	buildsClass string
	htmlOut     string
)

// configureCmd runs a build search
var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Search the inventory for a build meeting target stats",
	Example: `  gearctl configure --class 術士 --target 超能=100 --target 近戰=60
  gearctl configure --class 獵人 --target 武器=120 --exotic-type 頭盔 --exotic-attr 武器=30 --save 槍手流`,
	RunE: runConfigure,
}

var buildsCmd = &cobra.Command{
	Use:   "builds",
	Short: "Manage saved builds",
}

var buildsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved builds",
	RunE:  runBuildsList,
}

var buildsViewCmd = &cobra.Command{
	Use:   "view <build-id>",
	Short: "Show a saved build's result",
	Args:  cobra.ExactArgs(1),
	RunE:  runBuildsView,
}

var buildsDeleteCmd = &cobra.Command{
	Use:   "delete <build-id>",
	Short: "Delete a saved build after confirmation",
	Args:  cobra.ExactArgs(1),
	RunE:  runBuildsDelete,
}

// renderCmd formats result text without contacting the API
var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render build result text from a file or stdin",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRender,
}

func init() {
	configureCmd.Flags().StringVar(&cfgClass, "class", "", "Guardian class")
	configureCmd.Flags().StringArrayVarP(&cfgTargets, "target", "t", nil, "Target stat as attr=value (repeatable)")
	configureCmd.Flags().StringVar(&cfgPreferred, "preferred", "", "Preferred stat for tie-breaking")
	configureCmd.Flags().StringVar(&cfgExoticType, "exotic-type", "", "Use an exotic piece in this slot")
	configureCmd.Flags().StringVar(&cfgExoticName, "exotic-name", "", "Exotic name")
	configureCmd.Flags().StringVar(&cfgExoticLevel, "exotic-level", "", "Exotic upgrade level (0-5)")
	configureCmd.Flags().StringVar(&cfgExoticTag, "exotic-tag", "", "Exotic archetype tag")
	configureCmd.Flags().StringArrayVar(&cfgExoticAttrs, "exotic-attr", nil, "Exotic stat as attr=value (repeatable)")
	configureCmd.Flags().StringVar(&cfgSave, "save", "", "Save the result under this name")
	configureCmd.Flags().StringVar(&htmlOut, "html", "", "Also write the result as HTML to this file")

	buildsListCmd.Flags().StringVar(&buildsClass, "class", "", "Only list one class")
	buildsViewCmd.Flags().StringVar(&htmlOut, "html", "", "Write the result as HTML to this file")
	renderCmd.Flags().StringVar(&htmlOut, "html", "", "Write HTML to this file instead of the terminal")
}

// parsePairs splits attr=value flags
func parsePairs(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid pair %q, expected attr=value", p)
		}
		if !models.IsAttribute(k) {
			return nil, fmt.Errorf("無效的屬性: %s", k)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

// buildRequest turns configure flags into a validated request
func buildRequest() (models.BuildConfigure, error) {
	values := url.Values{
		forms.FieldClass:         {cfgClass},
		forms.FieldPreferredAttr: {cfgPreferred},
	}

	targets, err := parsePairs(cfgTargets)
	if err != nil {
		return models.BuildConfigure{}, err
	}
	for attr, v := range targets {
		values.Set(forms.TargetField(attr), v)
	}

	if cfgExoticType != "" {
		values.Set(forms.FieldUseExotic, "on")
		values.Set(forms.FieldExoticType, cfgExoticType)
		values.Set(forms.FieldExoticName, cfgExoticName)
		values.Set(forms.FieldExoticLevel, cfgExoticLevel)
		values.Set(forms.FieldExoticTag, cfgExoticTag)

		exotic, err := parsePairs(cfgExoticAttrs)
		if err != nil {
			return models.BuildConfigure{}, err
		}
		for attr, v := range exotic {
			values.Set(forms.ExoticField(attr), v)
		}
	}

	return forms.BuildForm(values, models.Attributes())
}

func runConfigure(cmd *cobra.Command, args []string) error {
	req, err := buildRequest()
	if err != nil {
		return err
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	res, err := c.ConfigureBuild(cmd.Context(), req)
	if err != nil {
		return err
	}
	printDocument(out, resultview.Parse(res.Formatted))

	if htmlOut != "" {
		if err := writeHTML(htmlOut, res.Formatted); err != nil {
			return err
		}
		notifyInfo(out, "HTML 已寫入 "+htmlOut)
	}

	if cfgSave != "" {
		_, msg, err := c.SaveBuild(cmd.Context(), models.BuildSave{
			Name:             cfgSave,
			GuardianClass:    req.GuardianClass,
			TargetAttributes: req.TargetAttributes,
			PreferredAttr:    req.PreferredAttr,
			ExoticEquipment:  req.ExoticEquipment,
			Result:           []byte(res.Result),
		})
		if err != nil {
			return err
		}
		notifySuccess(out, msg)
	}
	return nil
}

func runBuildsList(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	builds, err := c.ListBuilds(cmd.Context(), buildsClass)
	if err != nil {
		return err
	}
	if len(builds) == 0 {
		notifyInfo(out, "尚無已保存的套裝")
		return nil
	}

	for _, b := range builds {
		fmt.Fprintf(out, "%s  %s  %s\n",
			titleStyle.Render(b.Name), b.GuardianClass, mutedStyle.Render(b.CreatedAt.Local().Format("2006-01-02 15:04")))
		fmt.Fprintf(out, "  %s %s\n", keyStyle.Render("目標"), summarize(b.TargetAttributes))
		fmt.Fprintf(out, "  %s %s\n", keyStyle.Render("ID"), b.ID)
	}
	return nil
}

func summarize(m map[string]float64) string {
	var parts []string
	for _, attr := range models.Attributes() {
		if v, ok := m[attr]; ok && v > 0 {
			parts = append(parts, fmt.Sprintf("%s %g", attr, v))
		}
	}
	return strings.Join(parts, ", ")
}

func runBuildsView(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	b, err := c.FindBuild(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if b == nil {
		return errors.New("套裝不存在")
	}

	fmt.Fprintln(out, titleStyle.Render(b.Name)+"  "+b.GuardianClass)
	printDocument(out, resultview.Parse(b.Formatted()))

	if htmlOut != "" {
		return writeHTML(htmlOut, b.Formatted())
	}
	return nil
}

func runBuildsDelete(cmd *cobra.Command, args []string) error {
	id := args[0]
	out := cmd.OutOrStdout()

	if !assumeYes && !confirm(cmd.InOrStdin(), out, fmt.Sprintf("確定要刪除套裝 %s 嗎？此操作無法撤銷。", id)) {
		notifyInfo(out, "已取消")
		return nil
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	msg, err := c.DeleteBuild(cmd.Context(), id)
	if err != nil {
		return err
	}
	notifySuccess(out, msg)
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()
		in = f
	}

	text, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read result text: %w", err)
	}

	if htmlOut != "" {
		return writeHTML(htmlOut, string(text))
	}
	printDocument(cmd.OutOrStdout(), resultview.Parse(string(text)))
	return nil
}

func writeHTML(path, text string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := resultview.Parse(text).Render(f); err != nil {
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	return nil
}
