package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "csml",
	Short: "csml runs conversational flows",
	Long:  `csml parses conversational flow scripts, executes them step by step and persists conversation state between turns.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("bot", "bot.yaml", "Path to the bot manifest")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
}
