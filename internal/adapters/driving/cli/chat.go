package cli

import (
	"bufio"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
)

var (
	chatNoSources bool
	chatPlain     bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation about the documents",
	Long: `Opens an interactive chat. Follow-up questions see the most recent
exchanges (memory.window turns).

Commands:
  /clear    - Forget the conversation
  /history  - Print the remembered turns
  /sources  - Toggle source display
  /exit     - Leave the chat

On a terminal the chat runs full screen; use --plain or pipe input for a
line-oriented session.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatNoSources, "no-sources", false, "hide the cited sources")
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "use a line-oriented prompt instead of the full-screen UI")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	if chatService == nil {
		return errChatUnavailable
	}

	if !chatPlain && stdinIsTerminal() && stderrIsTerminal() {
		return tui.Run(commandContext(cmd), tui.NewPorts(chatService), !chatNoSources)
	}
	return chatLoop(cmd)
}

// chatLoop reads one question per line until EOF or /exit.
func chatLoop(cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	showSources := !chatNoSources
	scanner := bufio.NewScanner(cmd.InOrStdin())

	cmd.Println("Ask a question about your documents. Type /exit to leave.")
	for {
		cmd.Print("\n> ")
		if !scanner.Scan() {
			cmd.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			switch messages.ParseCommand(strings.ToLower(line)) {
			case messages.CommandExit:
				return nil
			case messages.CommandClear:
				chatService.ClearMemory()
				cmd.Println("Conversation cleared.")
			case messages.CommandHistory:
				printHistory(cmd)
			case messages.CommandSources:
				showSources = !showSources
				if showSources {
					cmd.Println("Sources shown.")
				} else {
					cmd.Println("Sources hidden.")
				}
			case messages.CommandHelp:
				cmd.Println("Commands: /clear, /history, /sources, /exit")
			case messages.CommandUnknown:
				cmd.Printf("Unknown command %q. Type /help for the list.\n", line)
			}
			continue
		}

		answer, err := chatService.Answer(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			cmd.PrintErrf("Error: %v\n", err)
			continue
		}
		cmd.Println()
		printAnswer(cmd, answer, showSources)
	}
}

func printHistory(cmd *cobra.Command) {
	turns := chatService.History()
	if len(turns) == 0 {
		cmd.Println("No conversation history.")
		return
	}
	for i, turn := range turns {
		cmd.Printf("%d. Q: %s\n", i+1, turn.Question)
		cmd.Printf("   A: %s\n", turn.Answer)
	}
}
