package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"docent/internal/config"
	"docent/internal/registry"
	"docent/internal/resolution"
	"docent/internal/services"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <image-url>",
		Short: "Identify an artifact photo and print the resolved record",
		Long: "Sends the photo to the vision model together with the registry names and " +
			"prints the JSON record a kiosk would receive. Accepts http(s) URLs and data:image URLs.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *registry.Store) error {
				if err := cfg.RequireLLM(); err != nil {
					return err
				}
				svc := newService(cfg, store, ctx.cliLogger(cmd), nil)
				resp, err := svc.Analyze(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return describeAnalyzeError(err)
				}
				return writeJSON(cmd, resp)
			})
		},
	}
}

func describeAnalyzeError(err error) error {
	switch {
	case errors.Is(err, services.ErrRateLimited):
		return fmt.Errorf("vision model rate limited; try again shortly: %w", err)
	case errors.Is(err, services.ErrCreditsExhausted):
		return fmt.Errorf("vision model credits exhausted; add funds to the API account: %w", err)
	default:
		return err
	}
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var guess resolution.Guess
	var fromFile string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a vision guess against the registry without calling the model",
		Long: "Applies the claim gate and name matcher to a guess given by flags or as JSON " +
			"(--file, '-' for stdin) and prints the record a kiosk would receive.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path := strings.TrimSpace(fromFile); path != "" {
				parsed, err := readGuess(cmd, path)
				if err != nil {
					return err
				}
				guess = parsed
			}
			return ctx.withStore(func(cfg *config.Config, store *registry.Store) error {
				svc := newService(cfg, store, ctx.cliLogger(cmd), nil)
				return writeJSON(cmd, svc.ResolveGuess(cmd.Context(), guess))
			})
		},
	}

	cmd.Flags().StringVar(&guess.Name, "name", "", "Guessed artifact name")
	cmd.Flags().StringVar(&guess.Date, "date", "", "Guessed date")
	cmd.Flags().StringVar(&guess.Description, "description", "", "Guessed description")
	cmd.Flags().BoolVar(&guess.Matched, "matched", false, "The model claimed the artifact is in the registry")
	cmd.Flags().StringVarP(&fromFile, "file", "f", "", "Read the guess as JSON from a file ('-' for stdin)")
	cmd.MarkFlagsMutuallyExclusive("file", "name")
	return cmd
}

func readGuess(cmd *cobra.Command, path string) (resolution.Guess, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return resolution.Guess{}, fmt.Errorf("read guess: %w", err)
	}
	var guess resolution.Guess
	if err := guess.UnmarshalJSON(data); err != nil {
		return resolution.Guess{}, fmt.Errorf("parse guess: %w", err)
	}
	return guess, nil
}

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "match <name>",
		Short: "Score a name against every registry entry",
		Long: "Shows how the matcher ranks registry entries for a name, with the score, " +
			"match kind, and whether the top entry clears matching.threshold.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			return ctx.withStore(func(cfg *config.Config, store *registry.Store) error {
				svc := newService(cfg, store, ctx.cliLogger(cmd), nil)
				entries := svc.Snapshot(cmd.Context())
				candidates := newMatcher(cfg).Rank(name, entries)
				if limit > 0 && len(candidates) > limit {
					candidates = candidates[:limit]
				}
				if jsonOut {
					return writeJSON(cmd, matchRows(candidates))
				}
				if len(candidates) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Registry is empty")
					return nil
				}
				rows := make([][]string, 0, len(candidates))
				for _, c := range candidates {
					rows = append(rows, []string{
						c.Entry.ID,
						c.Entry.Name,
						fmt.Sprintf("%.3f", c.Score),
						string(c.Kind),
						yesNo(c.Accepted),
					})
				}
				return writeTable(cmd.OutOrStdout(),
					[]string{"ID", "Name", "Score", "Kind", "Accepted"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Show at most this many entries (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON instead of a table")
	return cmd
}

type matchRow struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Kind     string  `json:"kind"`
	Accepted bool    `json:"accepted"`
}

func matchRows(candidates []registry.Candidate) []matchRow {
	rows := make([]matchRow, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, matchRow{
			ID:       c.Entry.ID,
			Name:     c.Entry.Name,
			Score:    c.Score,
			Kind:     string(c.Kind),
			Accepted: c.Accepted,
		})
	}
	return rows
}
