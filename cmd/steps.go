package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mj1618/onboard-cli/internal/band"
	"github.com/mj1618/onboard-cli/internal/catalog"
	"github.com/mj1618/onboard-cli/internal/config"
	"github.com/mj1618/onboard-cli/internal/output"
)

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "List the step catalog",
	Long: `Print the steps of the catalog in execution order. No device is needed.

Examples:
  onboard-cli steps
  onboard-cli steps --from 10 --to 20
  onboard-cli steps --steps custom.yaml --format json`,
	RunE: runSteps,
}

var stepsCheckCmd = &cobra.Command{
	Use:   "validate",
	Short: "Report catalog gaps, band overlaps and missing templates",
	RunE:  runStepsCheck,
}

func init() {
	rootCmd.AddCommand(stepsCmd)
	stepsCmd.AddCommand(stepsCheckCmd)
	stepsCmd.Flags().Int("from", 1, "First step to list")
	stepsCmd.Flags().Int("to", 0, "Last step to list (0 for the end)")
}

// StepEntry is one row of the step listing.
type StepEntry struct {
	Number      int    `yaml:"number" json:"number"`
	Action      string `yaml:"action" json:"action"`
	Description string `yaml:"description" json:"description"`
	When        string `yaml:"when,omitempty" json:"when,omitempty"`
}

func runSteps(cmd *cobra.Command, args []string) error {
	from, _ := cmd.Flags().GetInt("from")
	to, _ := cmd.Flags().GetInt("to")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cat, err := loadCatalog(cfg, loggerFrom(cmd))
	if err != nil {
		return err
	}
	if to == 0 {
		to = cat.Max()
	}
	return output.Print(listSteps(cat, from, to))
}

func listSteps(cat *catalog.Catalog, from, to int) []StepEntry {
	entries := []StepEntry{}
	for _, st := range cat.Range(from, to) {
		e := StepEntry{Number: st.Number, Action: st.Action.Kind(), Description: st.Description}
		if st.When != nil {
			e.When = st.When.String()
		}
		entries = append(entries, e)
	}
	return entries
}

// CheckReport lists configuration problems that do not stop a run.
type CheckReport struct {
	Steps            int            `yaml:"steps" json:"steps"`
	MissingSteps     []int          `yaml:"missing_steps,omitempty" json:"missing_steps,omitempty"`
	BandOverlaps     []band.Overlap `yaml:"band_overlaps,omitempty" json:"band_overlaps,omitempty"`
	BandGaps         []band.Span    `yaml:"band_gaps,omitempty" json:"band_gaps,omitempty"`
	UnknownImages    []string       `yaml:"unknown_images,omitempty" json:"unknown_images,omitempty"`
	MissingTemplates []string       `yaml:"missing_templates,omitempty" json:"missing_templates,omitempty"`
}

func runStepsCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cat, err := loadCatalog(cfg, loggerFrom(cmd))
	if err != nil {
		return err
	}
	return output.Print(checkConfig(cfg, cat))
}

func checkConfig(cfg *config.Config, cat *catalog.Catalog) CheckReport {
	rep := CheckReport{
		Steps:            cat.Len(),
		MissingSteps:     cat.Gaps(),
		BandOverlaps:     cfg.Bands.Overlaps(),
		BandGaps:         cfg.Bands.Gaps(),
		MissingTemplates: cfg.MissingTemplates(),
	}
	for _, key := range cat.Images() {
		if _, ok := cfg.Templates.Path(key); !ok {
			rep.UnknownImages = append(rep.UnknownImages, key)
		}
	}
	return rep
}
