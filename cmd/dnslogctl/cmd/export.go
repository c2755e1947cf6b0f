package cmd

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/your-username/pihole-log-viewer/internal/client"
	"github.com/your-username/pihole-log-viewer/internal/export"
)

func newExportCommand(o *options) *cobra.Command {
	var (
		f      filterFlags
		format string
		file   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the filtered log as PDF, CSV, JSON or Excel",
		Example: `  dnslogctl export --format pdf --domain ads
  dnslogctl export --format csv --file - --lines 0 > all.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			fmtName, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			v := o.viewer()
			if _, err := v.Load(ctx, f.raw); err != nil {
				return err
			}
			p := o.printer(cmd)

			settings, err := o.client().FetchConfig(ctx)
			if err != nil {
				p.Warn("Could not load report settings, using defaults: %v", err)
			}
			meta := client.PDFMetadata(settings)

			var buf bytes.Buffer
			if err := v.Export(&buf, fmtName, meta); err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			if file == "-" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if file == "" {
				file = fmtName.Filename(time.Now())
			}
			if err := os.WriteFile(file, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", file, err)
			}
			p.Success("Exported %d entries to %s", v.Snapshot().Len(), file)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "pdf, csv, json or xlsx")
	cmd.Flags().StringVar(&file, "file", "", "output file, - for stdout (default dns-logs_<time>.<format>)")
	return cmd
}
