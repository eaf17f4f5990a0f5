package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/vibetorch/internal/analyzer"
	"github.com/nextlevelbuilder/vibetorch/internal/export"
	"github.com/nextlevelbuilder/vibetorch/internal/render"
	"github.com/nextlevelbuilder/vibetorch/pkg/dom/memdom"
)

func analyzeCmd() *cobra.Command {
	var (
		format   string
		url      string
		asExport bool
	)
	cmd := &cobra.Command{
		Use:   "analyze <file.html> <css-selector>",
		Short: "Analyze the elements of a static HTML file that match a selector",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			var opts []memdom.Option
			if url != "" {
				opts = append(opts, memdom.WithURL(url))
			}
			doc, err := memdom.Parse(f, opts...)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			infos, err := analyzer.New().Select(doc, args[1])
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				return fmt.Errorf("no element matches %q", args[1])
			}
			if asExport {
				return render.Write(cmd.OutOrStdout(), format, export.Build(doc, infos, time.Now()))
			}
			return render.Write(cmd.OutOrStdout(), format, infos)
		},
	}
	cmd.Flags().StringVar(&format, "format", render.JSON, "output format: json or yaml")
	cmd.Flags().StringVar(&url, "url", "", "page URL to report in the export context")
	cmd.Flags().BoolVar(&asExport, "export", false, "wrap the result in a selection export")
	return cmd
}
