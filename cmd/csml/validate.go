package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/SINHASantos/csml-engine/pkg/bot"
	"github.com/SINHASantos/csml-engine/pkg/domain"
	"github.com/SINHASantos/csml-engine/pkg/parser"
)

var validateCmd = &cobra.Command{
	Use:   "validate [flow files...]",
	Short: "Parse flows and report errors",
	Long:  `Parses the given flow files, or every flow of the bot manifest when no files are given, and reports the first error of each with its position.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd, args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("All flows are valid")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		manifest, _ := cmd.Flags().GetString("bot")
		if _, err := bot.Load(manifest); err != nil {
			return err
		}
		return nil
	}

	failed := false
	for _, path := range args {
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if _, err := parser.Parse(src); err != nil {
			failed = true
			var parseErr *domain.ParseError
			if errors.As(err, &parseErr) {
				fmt.Printf("%s: %v\n", path, parseErr)
			} else {
				fmt.Printf("%s: %v\n", path, err)
			}
		}
	}
	if failed {
		return fmt.Errorf("some flows did not parse")
	}
	return nil
}
