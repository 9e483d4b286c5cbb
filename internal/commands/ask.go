package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/themobileprof/ayu-be/internal/config"
	"github.com/themobileprof/ayu-be/internal/memory"
)

func newAskCmd() *cobra.Command {
	var (
		lang       string
		history    []string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Resolve one message through the chat pipeline",
		Long: `ask runs a single message through the pipeline: emergency check,
symptom table, then the configured model. Without an API key the
model step answers from the fallback responses.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			message := strings.Join(args, " ")

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			a, err := buildApp(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			hist := memory.NewContext(cfg.ContextWindow, history...)
			result := a.engine.GenerateResponse(ctx, message, hist, lang)

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			fmt.Fprintln(out, result.Text)
			if !result.Success {
				fmt.Fprintf(cmd.ErrOrStderr(), "(fallback: %s)\n", result.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&lang, "lang", "l", "en", "Reply language (en, te, kn)")
	cmd.Flags().StringArrayVarP(&history, "context", "c", nil, "Earlier user message, oldest first (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full result as JSON")
	return cmd
}
