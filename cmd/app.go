package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var appCmd = &cobra.Command{
	Use:       "app <start|stop>",
	Short:     "Launch or force-stop the game",
	ValidArgs: []string{"start", "stop"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE:      runApp,
}

func init() {
	rootCmd.AddCommand(appCmd)
}

func runApp(cmd *cobra.Command, args []string) error {
	b, err := openBot(cmd)
	if err != nil {
		return err
	}
	defer closeBot(cmd, b)

	switch args[0] {
	case "start":
		err = b.StartApp(cmd.Context())
	case "stop":
		err = b.StopApp(cmd.Context())
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", b.Config.Game.Package, args[0])
	return nil
}
