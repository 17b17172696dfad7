package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	csml "github.com/SINHASantos/csml-engine"
	"github.com/SINHASantos/csml-engine/internal/logging"
	"github.com/SINHASantos/csml-engine/pkg/adapters/memorystore"
	"github.com/SINHASantos/csml-engine/pkg/bot"
	"github.com/SINHASantos/csml-engine/pkg/domain"
	"github.com/SINHASantos/csml-engine/pkg/encrypt"
	"github.com/SINHASantos/csml-engine/pkg/persistence"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Chat with a bot on the terminal",
	Long:  `Runs the bot against an in-process store and reads events from stdin, one turn per line. State lives only for the duration of the session.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runInteractive(cmd); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("flow", "", "Flow to start with (default flow of the bot when empty)")
}

func runInteractive(cmd *cobra.Command) error {
	manifest, _ := cmd.Flags().GetString("bot")
	flowID, _ := cmd.Flags().GetString("flow")
	verbose, _ := cmd.Flags().GetBool("verbose")

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := logging.New(level)

	b, err := bot.Load(manifest)
	if err != nil {
		return err
	}
	store := persistence.NewStore("local", memorystore.New(), encrypt.Noop{})
	engine := csml.New(b, store, csml.WithLogger(logger))

	client := domain.Client{BotID: b.Name, ChannelID: "cli", UserID: "local"}
	conversationID := ""

	fmt.Printf("--- %s ---\n", b.Name)
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil
		}
		text := strings.TrimSpace(line)
		if text == "/quit" {
			return nil
		}

		result, err := engine.Process(context.Background(), csml.ProcessRequest{
			Client:         client,
			ConversationID: conversationID,
			FlowID:         flowID,
			Event:          *domain.NewEvent("text", text, nil),
		})
		if err != nil {
			return err
		}
		conversationID = result.ConversationID

		for _, msg := range result.Messages {
			printPayload(msg.Payload)
		}
		if !result.Held {
			// The conversation ran to completion; the next line starts over.
			conversationID = ""
		}
	}
}

func printPayload(p domain.Payload) {
	switch p.ContentType {
	case "text":
		fmt.Println(p.Content["text"])
	case "error":
		fmt.Printf("[error] %v\n", p.Content["error"])
	default:
		fmt.Printf("%v\n", p.Content)
	}
}
