package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/vibetorch/internal/render"
	"github.com/nextlevelbuilder/vibetorch/internal/store"
	"github.com/nextlevelbuilder/vibetorch/internal/store/sqlite"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse and manage recorded exports",
	}
	cmd.AddCommand(historyListCmd(), historyShowCmd(), historyDeleteCmd(), historyPruneCmd())
	return cmd
}

// withHistory opens the configured store for the duration of fn.
func withHistory(fn func(store.HistoryStore) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	hist, err := sqlite.Open(cfg.StorePath(), cfg.Store.CacheSize)
	if err != nil {
		return err
	}
	defer hist.Close()
	return fn(hist)
}

func historyListCmd() *cobra.Command {
	var (
		limit  int
		filter string
		format string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent exports, newest first",
		Example: `  vibetorch history list --filter 'count > 1 && url.startsWith("http://localhost")'
  vibetorch history list --filter '"button" in tags' --format yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := store.CompileFilter(filter)
			if err != nil {
				return err
			}
			return withHistory(func(h store.HistoryStore) error {
				recs, err := h.List(cmd.Context(), limit, f)
				if err != nil {
					return err
				}
				if format != "" {
					return render.Write(cmd.OutOrStdout(), format, recs)
				}
				printRecords(cmd.OutOrStdout(), recs)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of exports")
	cmd.Flags().StringVar(&filter, "filter", "", "CEL expression over id, url, title, count, tags, source")
	cmd.Flags().StringVar(&format, "format", "", "json or yaml (default: table)")
	return cmd
}

func printRecords(w io.Writer, recs []store.Record) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No exports recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tCOUNT\tTAGS\tURL")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Count, strings.Join(r.Tags, ","), r.URL)
	}
	tw.Flush()
}

func historyShowCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print the full export payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(func(h store.HistoryStore) error {
				rec, err := h.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				sel, err := rec.Selection()
				if err != nil {
					return err
				}
				return render.Write(cmd.OutOrStdout(), format, sel)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", render.JSON, "json or yaml")
	return cmd
}

func historyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete exports by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(func(h store.HistoryStore) error {
				return deleteRecords(cmd.Context(), cmd.OutOrStdout(), h, args)
			})
		},
	}
}

func deleteRecords(ctx context.Context, w io.Writer, h store.HistoryStore, ids []string) error {
	for _, id := range ids {
		if err := h.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
		fmt.Fprintf(w, "Deleted %s\n", id)
	}
	return nil
}

func historyPruneCmd() *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest exports",
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 0 {
				return fmt.Errorf("--keep must not be negative")
			}
			return withHistory(func(h store.HistoryStore) error {
				n, err := h.Prune(cmd.Context(), keep)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d export(s), kept the newest %d.\n", n, keep)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 100, "number of newest exports to keep")
	return cmd
}
