package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/themobileprof/ayu-be/internal/classifier"
	"github.com/themobileprof/ayu-be/internal/config"
	"github.com/themobileprof/ayu-be/internal/phrases"
	"github.com/themobileprof/ayu-be/internal/symptoms"
)

func newPhrasesCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "phrases",
		Short: "Inspect the multilingual phrasebook",
	}
	cmd.PersistentFlags().StringVarP(&file, "file", "f", "", "Phrasebook file (default: PHRASES_FILE or the built-in book)")

	load := func() (*phrases.Book, error) {
		path := file
		if path == "" {
			path = config.FromEnv().PhrasesFile
		}
		return phrases.Load(path)
	}

	cmd.AddCommand(newPhrasesCheckCmd(load))
	cmd.AddCommand(newPhrasesMatchCmd(load))
	return cmd
}

func newPhrasesCheckCmd(load func() (*phrases.Book, error)) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the phrasebook and list missing translations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := load()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			keys := make([]string, 0, len(book.Symptoms))
			for _, s := range symptoms.NewMatcher(book).Entries() {
				keys = append(keys, s.Key)
			}
			fmt.Fprintf(out, "Phrasebook OK: %d emergency keywords, %d symptoms, %d fallback pools\n",
				len(book.Emergency.Keywords), len(keys), len(book.Fallback.Pools))
			fmt.Fprintf(out, "Symptom order: %s\n", strings.Join(keys, ", "))

			gaps := book.Gaps([]string{"te", "kn"})
			if len(gaps) == 0 {
				fmt.Fprintln(out, "All entries translated.")
				return nil
			}

			fmt.Fprintf(out, "%d entries fall back to English:\n", len(gaps))
			for _, g := range gaps {
				fmt.Fprintf(out, "  - %s\n", g)
			}
			if strict {
				return fmt.Errorf("%d missing translations", len(gaps))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when any translation is missing")
	return cmd
}

func newPhrasesMatchCmd(load func() (*phrases.Book, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "match <message>",
		Short: "Show which pipeline stage answers a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := load()
			if err != nil {
				return err
			}
			message := strings.Join(args, " ")
			out := cmd.OutOrStdout()

			cls := classifier.NewClassifier(book)
			if cls.IsUrgent(message) {
				fmt.Fprintln(out, "emergency")
				return nil
			}
			if entry, ok := symptoms.NewMatcher(book).MatchEntry(message); ok {
				fmt.Fprintf(out, "symptom: %s\n", entry.Key)
				return nil
			}
			fmt.Fprintf(out, "remote (fallback category: %s)\n", cls.Category(message))
			return nil
		},
	}
}
