package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/ai-runner/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an airunner configuration with an interactive wizard",
	Long:  `Runs an interactive wizard that asks for documentary bases, models and authentication, and writes config.json (or the --config path).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.ResolvePath(cfgFile)
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		_, err := config.RunWizard(path)
		return err
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}
