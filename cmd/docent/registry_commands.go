package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"docent/internal/config"
	"docent/internal/registry"
)

func newRegistryCommand(ctx *commandContext) *cobra.Command {
	registryCmd := &cobra.Command{
		Use:   "registry",
		Short: "Maintain the curated artifact registry",
	}

	registryCmd.AddCommand(newRegistryImportCommand(ctx))
	registryCmd.AddCommand(newRegistrySyncCommand(ctx))
	registryCmd.AddCommand(newRegistryListCommand(ctx))
	registryCmd.AddCommand(newRegistryRemoveCommand(ctx))

	return registryCmd
}

func newRegistryImportCommand(ctx *commandContext) *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import registry entries from a CSV file",
		Long: "Reads a spreadsheet export with the columns name, date, description, photos " +
			"(or a header naming id/name/date/description/photos). Rows are merged by id " +
			"unless --replace is given.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer file.Close()
			entries, err := registry.ParseCSV(file)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *registry.Store) error {
				if replace {
					if err := store.ReplaceAll(cmd.Context(), entries); err != nil {
						return fmt.Errorf("replace registry: %w", err)
					}
				} else if err := upsertAll(cmd.Context(), store, entries); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d artifacts into %s\n", len(entries), store.Path())
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "Replace the whole registry instead of merging")
	return cmd
}

func upsertAll(ctx context.Context, store *registry.Store, entries []registry.Entry) error {
	for _, entry := range entries {
		if _, err := store.Upsert(ctx, entry); err != nil {
			return fmt.Errorf("import %q: %w", entry.Name, err)
		}
	}
	return nil
}

func newRegistrySyncCommand(ctx *commandContext) *cobra.Command {
	var urlFlag string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Replace the registry with the published spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *registry.Store) error {
				url := strings.TrimSpace(urlFlag)
				if url == "" {
					url = cfg.Registry.SheetURL
				}
				if url == "" {
					return errors.New("registry.sheet_url is not set (or pass --url)")
				}
				entries, err := registry.NewSheetSource(url, nil).Fetch(cmd.Context())
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					return errors.New("sheet returned no artifacts; registry left unchanged")
				}
				if err := store.ReplaceAll(cmd.Context(), entries); err != nil {
					return fmt.Errorf("replace registry: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Synced %d artifacts from %s\n", len(entries), url)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&urlFlag, "url", "", "CSV export URL (defaults to registry.sheet_url)")
	return cmd
}

func newRegistryListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored registry entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *registry.Store) error {
				entries, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					if entries == nil {
						entries = []registry.Entry{}
					}
					return writeJSON(cmd, entries)
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Registry is empty (import a CSV with 'docent registry import')")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, []string{
						entry.ID,
						entry.Name,
						entry.Date,
						fmt.Sprintf("%d", len(entry.Photos)),
					})
				}
				return writeTable(cmd.OutOrStdout(),
					[]string{"ID", "Name", "Date", "Photos"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
				)
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON instead of a table")
	return cmd
}

func newRegistryRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove registry entries by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *registry.Store) error {
				out := cmd.OutOrStdout()
				var missing []string
				for _, id := range args {
					err := store.Delete(cmd.Context(), id)
					switch {
					case errors.Is(err, registry.ErrNotFound):
						missing = append(missing, id)
					case err != nil:
						return err
					default:
						fmt.Fprintf(out, "Removed %s\n", id)
					}
				}
				if len(missing) > 0 {
					return fmt.Errorf("not found: %s", strings.Join(missing, ", "))
				}
				return nil
			})
		},
	}
}
