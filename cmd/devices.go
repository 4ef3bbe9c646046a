package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mj1618/onboard-cli/internal/output"
	"github.com/mj1618/onboard-cli/internal/platform/adb"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List devices attached to the adb server",
	RunE:  runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	serials, err := adb.ListDevices(cmd.Context(), cfg.ADB.Options())
	if err != nil {
		return err
	}
	return output.Print(serials)
}
