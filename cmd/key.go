package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mj1618/onboard-cli/internal/platform"
)

var keyCmd = &cobra.Command{
	Use:   "key <name>",
	Short: "Send a key event (back, home, enter or a numeric keycode)",
	Long: `Send a single Android key event to the device.

Examples:
  onboard-cli key back
  onboard-cli key 66`,
	Args: cobra.ExactArgs(1),
	RunE: runKey,
}

func init() {
	rootCmd.AddCommand(keyCmd)
}

func runKey(cmd *cobra.Command, args []string) error {
	code, err := platform.ParseKeyCode(args[0])
	if err != nil {
		return err
	}

	b, err := openBot(cmd)
	if err != nil {
		return err
	}
	defer closeBot(cmd, b)

	return b.Provider.Device.KeyEvent(cmd.Context(), code)
}
