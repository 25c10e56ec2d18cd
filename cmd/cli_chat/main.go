package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"diary-companion/internal/app"
	"diary-companion/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()
	if err := buildRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func buildRootCommand() *cobra.Command {
	var debug bool

	root := &cobra.Command{
		Use:   "cli_chat",
		Short: "Terminal front-end for the diary companion",
		Long: strings.TrimSpace(`cli_chat talks to Jane, the diary companion, from the terminal.

It uses the same local store as the API, so a session opened here is
restored on the next run until you log out.`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Write debug logs to stderr")

	root.AddCommand(newChatCommand(&debug))
	root.AddCommand(newGoalsCommand(&debug))
	return root
}

func newChatCommand(debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Example: strings.Join([]string{
			"  cli_chat chat",
			"  cli_chat chat --debug",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, logger, err := setup(cmd.Context(), *debug)
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer a.Close()
			return runChat(cmd.Context(), a)
		},
	}
}

func newGoalsCommand(debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "goals",
		Short: "Print the goals of the logged-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, logger, err := setup(cmd.Context(), *debug)
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer a.Close()
			ctx := cmd.Context()
			res, err := a.Companion.Resume(ctx, "")
			if err != nil {
				return fmt.Errorf("no active session, run `cli_chat chat` to log in: %w", err)
			}
			lang := a.Locale.Fallback()
			if view, err := a.Companion.View(ctx, res.Token); err == nil {
				lang = view.State.Language
			}
			return printGoals(ctx, a, res.Token, lang, cmd.OutOrStdout())
		},
	}
}

func setup(ctx context.Context, debug bool) (*app.App, *zap.Logger, error) {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	logger := zap.NewNop()
	if debug {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return nil, nil, err
		}
	}
	a, err := app.Build(ctx, cfg, logger, nil)
	if err != nil {
		return nil, nil, err
	}
	return a, logger, nil
}
