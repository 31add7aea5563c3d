package cmd

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "airunner",
	Short: "Serve pre-trained language models over HTTP",
	Long: `airunner exposes summarization, translation, question answering and
retrieval-augmented generation over user supplied documents behind a small
REST API. Models run on Hugging Face, OpenAI compatible or Ollama backends.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
		}
		// A missing .env is normal; an explicit --env file must exist.
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("loading %s: %w", envFile, err)
			}
			return nil
		}
		_ = godotenv.Load()
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default $CONFIG_PATH or config.json)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "dotenv file to load before reading the config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
