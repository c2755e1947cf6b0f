package cmd

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/your-username/pihole-log-viewer/internal/aggregate"
	"github.com/your-username/pihole-log-viewer/internal/detail"
	"github.com/your-username/pihole-log-viewer/internal/models"
	"github.com/your-username/pihole-log-viewer/internal/output"
	"github.com/your-username/pihole-log-viewer/internal/status"
	"github.com/your-username/pihole-log-viewer/internal/viewer"
)

func newLogsCommand(o *options) *cobra.Command {
	var (
		f       filterFlags
		details string
		top     string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List the query log",
		Long:  "Fetch the log entries matching the filter, grouped by domain, client and status.",
		Example: `  dnslogctl logs --domain ads --lines 50
  dnslogctl logs --ip 192.168.1.10 --start-date 2024-03-01 --end-date 2024-03-02
  dnslogctl logs --start-time 22:00 --end-time 06:00 --top client
  dnslogctl logs --details doubleclick.net`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := o.viewer()
			if _, err := v.Load(cmd.Context(), f.raw); err != nil {
				return err
			}
			p := o.printer(cmd)

			switch {
			case details != "":
				return o.printDetails(p, v.Details(details))
			case top != "":
				key, err := aggregate.ParseKeyField(top)
				if err != nil {
					return err
				}
				return o.printTop(p, key.String(), v.TopLocal(key, o.v.GetInt("limit")))
			}
			return o.printLogs(p, v.Snapshot())
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&details, "details", "", "show only the entries of one domain")
	cmd.Flags().StringVar(&top, "top", "", "rank the result by domain, client, base_domain or status")
	return cmd
}

func newDetailsCommand(o *options) *cobra.Command {
	var f filterFlags
	cmd := &cobra.Command{
		Use:   "details DOMAIN",
		Short: "Show every client and status seen for a domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := o.viewer()
			if _, err := v.Load(cmd.Context(), f.raw); err != nil {
				return err
			}
			return o.printDetails(o.printer(cmd), v.Details(args[0]))
		},
	}
	f.register(cmd)
	return cmd
}

func newTopCommand(o *options) *cobra.Command {
	var (
		f     filterFlags
		date  string
		local bool
	)

	cmd := &cobra.Command{
		Use:       "top domains|blocked|clients",
		Short:     "Rank domains or clients",
		Long:      "Rank a day on the server, or with --local the entries matching the filter flags.",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"domains", "blocked", "clients"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			limit := o.v.GetInt("limit")
			p := o.printer(cmd)

			if local {
				v := o.viewer()
				if _, err := v.Load(ctx, f.raw); err != nil {
					return err
				}
				switch args[0] {
				case "blocked":
					return o.printTop(p, "blocked domain", v.TopBlockedLocal(limit))
				case "clients":
					return o.printTop(p, "client", v.TopLocal(aggregate.KeyClient, limit))
				default:
					return o.printTop(p, "domain", v.TopLocal(aggregate.KeyDomain, limit))
				}
			}

			day, err := parseDate(date)
			if err != nil {
				return err
			}
			c := o.client()
			var items []models.AggregateItem
			switch args[0] {
			case "blocked":
				items, err = c.FetchTopBlockedDomains(ctx, day, limit)
			case "clients":
				items, err = c.FetchTopIPs(ctx, day, limit)
			default:
				items, err = c.FetchTopDomains(ctx, day, limit)
			}
			if err != nil {
				return err
			}
			return o.printTop(p, args[0], items)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&date, "date", "", "day to rank, YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&local, "local", false, "rank the filtered log entries instead of a server day")
	return cmd
}

func statusCell(col int) func(int, string) *color.Color {
	return func(i int, cell string) *color.Color {
		if i == col {
			return output.StatusColor(cell)
		}
		return nil
	}
}

func entryTable(entries []models.LogEntry) *output.Table {
	table := output.NewTable("LAST SEEN", "DOMAIN", "CLIENT", "STATUS", "COUNT", "ACTIVITY").Colorize(statusCell(3))
	for _, e := range entries {
		table.AddRow(
			models.FormatTimestamp(e.Timestamp),
			e.DisplayDomain(),
			e.DisplayIP(),
			status.Label(e.Status),
			strconv.Itoa(e.Occurrences()),
			e.DisplayActivity(),
		)
	}
	return table
}

func (o *options) printLogs(p *output.Printer, rs models.LogResultSet) error {
	if o.jsonOutput() {
		return p.JSON(rs)
	}
	if rs.Len() == 0 {
		p.Warn("No log entries match the filter")
		return nil
	}

	entryTable(rs.Entries).Render(p.Out())

	if rs.Truncated() {
		p.Warn("Showing %d of %d entries; raise --lines to see more", rs.Len(), rs.TotalFound)
	} else {
		p.Info("%d entries", rs.Len())
	}
	return nil
}

func (o *options) printDetails(p *output.Printer, d detail.Details) error {
	if o.jsonOutput() {
		return p.JSON(d)
	}
	if d.Empty() {
		p.Warn("No entries for %q in the current result", d.Domain)
		return nil
	}

	p.Title("Details for %s (%d queries)", d.Domain, d.Occurrences())
	entryTable(d.Entries).Render(p.Out())
	return nil
}

func (o *options) printTop(p *output.Printer, what string, items []models.AggregateItem) error {
	if o.jsonOutput() {
		return p.JSON(items)
	}
	if len(items) == 0 {
		p.Warn("Nothing to rank")
		return nil
	}
	renderTop(p, what, items)
	return nil
}

func renderTop(p *output.Printer, what string, items []models.AggregateItem) {
	max := 0
	for _, it := range items {
		if it.Count > max {
			max = it.Count
		}
	}
	table := output.NewTable("#", what, "COUNT", "")
	for i, it := range items {
		table.AddRow(strconv.Itoa(i+1), it.Key, strconv.Itoa(it.Count), output.Bar(it.Count, max, 30))
	}
	table.Render(p.Out())
}

// outcomeNote describes a load that did not replace the shown entries
func outcomeNote(outcome viewer.Outcome) string {
	if outcome == viewer.Superseded {
		return "a newer refresh replaced this result"
	}
	return fmt.Sprintf("refresh %s", outcome)
}
