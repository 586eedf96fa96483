package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hurttlocker/nuggets/internal/config"
	"github.com/hurttlocker/nuggets/internal/highlight"
	"github.com/hurttlocker/nuggets/internal/nugget"
)

func newParseCmd(a *app) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a clippings file and show each highlight with its tags",
		Long: `Parses a Kindle "My Clippings.txt" export the same way an upload is
parsed and prints the tags each highlight would get. Only the local keyword
table is used unless --remote is given. Nothing is stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if remote && a.cfg.ClassifierKey.Value == "" {
				return fmt.Errorf("%w: HF_API_KEY (needed for --remote)", config.ErrMissingSecret)
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			raw, err := highlight.DecodeText(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			items := highlight.Parse(raw)
			if len(items) == 0 {
				fmt.Fprintf(out, "No highlights found in %s\n", args[0])
				return nil
			}

			t := a.newTagger(remote)
			fmt.Fprintf(out, "Found %d highlights in %s\n\n", len(items), args[0])
			for i, text := range items {
				tags := t.Tags(cmd.Context(), text)
				fmt.Fprintf(out, "%d. %s\n   %s\n", i+1, text, nugget.Hashtags(tags, " "))
			}
			s := t.Stats()
			fmt.Fprintf(out, "\nTagged %d locally, %d remotely, %d degraded\n", s.Local, s.Remote, s.Degraded)
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "consult the zero-shot classifier for unmatched highlights")
	return cmd
}
