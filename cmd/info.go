package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mj1618/onboard-cli/internal/output"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Report device, recognition and template status",
	Long: `Capture one frame and report the screen size, whether text recognition is
available, the active band and the target ids currently visible. Missing
template files are listed too.

--annotate writes a copy of the frame with the visible targets and the
search regions outlined.

Examples:
  onboard-cli info
  onboard-cli info --annotate screen.png`,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().String("annotate", "", "Write an annotated screenshot to this path")
}

func runInfo(cmd *cobra.Command, args []string) error {
	annotate, _ := cmd.Flags().GetString("annotate")

	b, err := openBot(cmd)
	if err != nil {
		return err
	}
	defer closeBot(cmd, b)

	info, err := b.Info(cmd.Context(), annotate)
	if err != nil {
		return err
	}
	return output.Print(info)
}
