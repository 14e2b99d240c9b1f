package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/budgetai-go/internal/app"
	"github.com/54b3r/budgetai-go/internal/assistant"
	"github.com/54b3r/budgetai-go/internal/session"
)

// chatAssistant is the part of *assistant.Assistant the chat loop needs.
type chatAssistant interface {
	Turn(ctx context.Context, log *session.Log, question string, mode session.Mode) session.Message
	AgentEnabled() bool
}

const chatHelp = `Commandes :
  1-5              poser la question suggérée correspondante
  /mode rag|agent  changer de mode de réponse
  /history         afficher la conversation
  /reset           effacer la conversation
  /quit            quitter`

// NewChatCmd constructs the `budgetai chat` command, an interactive
// conversation in the terminal.
func NewChatCmd() *cobra.Command {
	var agentMode bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long: `Start an interactive conversation. Questions are answered from the
indexed documents, or by the agent with --agent (or '/mode agent').
Type a number to ask one of the suggested questions.

Examples:
  budgetai chat
  budgetai chat --agent`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, app.Options{Agent: true, RequireAgent: agentMode})
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}
			defer a.Close()

			mode := session.ModeRAG
			if agentMode {
				mode = session.ModeAgent
			}
			return runChat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), a.Assistant, mode)
		},
	}

	cmd.Flags().BoolVar(&agentMode, "agent", false, "Answer with the tool-using agent")

	return cmd
}

// runChat reads questions from in until EOF or /quit. Each turn is
// recorded in one session log.
func runChat(ctx context.Context, in io.Reader, out io.Writer, a chatAssistant, mode session.Mode) error {
	presets := assistant.Presets()
	log := session.NewLog()

	fmt.Fprintf(out, "Assistant budgétaire (mode %s). Tapez /help pour l'aide.\n\nQuestions suggérées :\n", mode)
	for i, p := range presets {
		fmt.Fprintf(out, "  %d. %s\n", i+1, p)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if strings.HasPrefix(line, "/") {
			fields := strings.Fields(line)
			switch fields[0] {
			case "/quit", "/exit":
				return nil
			case "/help":
				fmt.Fprintln(out, chatHelp)
			case "/reset":
				log.Reset()
				fmt.Fprintln(out, "Conversation effacée.")
			case "/history":
				printHistory(out, log.Snapshot())
			case "/mode":
				mode = switchMode(out, a, mode, fields[1:])
			default:
				fmt.Fprintf(out, "Commande inconnue %q. Tapez /help.\n", fields[0])
			}
			continue
		}

		question := line
		if n, err := strconv.Atoi(line); err == nil {
			if n < 1 || n > len(presets) {
				fmt.Fprintf(out, "Choisissez une question entre 1 et %d.\n", len(presets))
				continue
			}
			question = presets[n-1]
			fmt.Fprintf(out, "%s\n", question)
		}

		stop := startSpinner("réflexion")
		msg := a.Turn(ctx, log, question, mode)
		stop()
		fmt.Fprintln(out)
		printMessage(out, msg)
	}
}

func switchMode(out io.Writer, a chatAssistant, current session.Mode, args []string) session.Mode {
	if len(args) != 1 {
		fmt.Fprintf(out, "Mode actuel : %s. Usage : /mode rag|agent\n", current)
		return current
	}
	switch session.Mode(args[0]) {
	case session.ModeRAG:
	case session.ModeAgent:
		if !a.AgentEnabled() {
			fmt.Fprintln(out, "Le mode agent n'est pas disponible : configurez MODEL_PROVIDER.")
			return current
		}
	default:
		fmt.Fprintf(out, "Mode inconnu %q.\n", args[0])
		return current
	}
	fmt.Fprintf(out, "Mode : %s\n", args[0])
	return session.Mode(args[0])
}

func printHistory(out io.Writer, msgs []session.Message) {
	if len(msgs) == 0 {
		fmt.Fprintln(out, "Aucun message.")
		return
	}
	for _, m := range msgs {
		who := "Vous"
		if m.Role == session.RoleAssistant {
			who = "Assistant"
		}
		fmt.Fprintf(out, "[%s] %s : %s\n", m.At.Format("15:04:05"), who, m.Content)
	}
}
