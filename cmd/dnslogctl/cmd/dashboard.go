package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/your-username/pihole-log-viewer/internal/models"
	"github.com/your-username/pihole-log-viewer/internal/output"
	"github.com/your-username/pihole-log-viewer/internal/viewer"
)

func newDashboardCommand(o *options) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show the daily dashboard",
		Long:  "Fetch stats, hourly activity, top lists, alerts and recent activity for one day. A part that fails is reported on its own.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDate(date)
			if err != nil {
				return err
			}
			d := o.viewer().Dashboard(cmd.Context(), day)
			p := o.printer(cmd)
			if o.jsonOutput() {
				return p.JSON(dashboardJSON(d))
			}
			renderDashboard(p, d)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to show, YYYY-MM-DD (default today)")
	return cmd
}

type dashboardPart struct {
	Value interface{} `json:"value,omitempty"`
	Error string      `json:"error,omitempty"`
}

func partOf[T any](r viewer.Result[T]) dashboardPart {
	if !r.OK() {
		return dashboardPart{Error: r.Err.Error()}
	}
	return dashboardPart{Value: r.Value}
}

func dashboardJSON(d viewer.Dashboard) map[string]dashboardPart {
	return map[string]dashboardPart{
		"stats":               partOf(d.Stats),
		"activity":            partOf(d.Series),
		"top_domains":         partOf(d.TopDomains),
		"top_blocked_domains": partOf(d.TopBlocked),
		"top_clients":         partOf(d.TopClients),
		"recent_activity":     partOf(d.Recent),
		"alerts":              partOf(d.Alerts),
	}
}

func renderDashboard(p *output.Printer, d viewer.Dashboard) {
	p.Title("Statistics")
	if d.Stats.OK() {
		s := d.Stats.Value
		table := output.NewTable("TOTAL", "BLOCKED", "BLOCK RATE", "CLIENTS", "DOMAINS")
		table.AddRow(
			strconv.Itoa(s.TotalQueries),
			strconv.Itoa(s.BlockedQueries),
			fmt.Sprintf("%.1f%%", s.BlockRate),
			strconv.Itoa(s.UniqueClients),
			strconv.Itoa(s.UniqueDomains),
		)
		table.Render(p.Out())
	} else {
		p.Error("stats unavailable: %v", d.Stats.Err)
	}

	p.Title("Hourly activity")
	if d.Series.OK() {
		renderSeries(p, d.Series.Value)
	} else {
		p.Error("activity unavailable: %v", d.Series.Err)
	}

	topPart(p, "Top domains", "domain", d.TopDomains)
	topPart(p, "Top blocked domains", "domain", d.TopBlocked)
	topPart(p, "Top clients", "client", d.TopClients)

	p.Title("Alerts")
	switch {
	case !d.Alerts.OK():
		p.Error("alerts unavailable: %v", d.Alerts.Err)
	case len(d.Alerts.Value) == 0:
		p.Success("No alerts")
	default:
		renderAlerts(p, d.Alerts.Value)
	}

	p.Title("Recent activity")
	switch {
	case !d.Recent.OK():
		p.Error("recent activity unavailable: %v", d.Recent.Err)
	case len(d.Recent.Value) == 0:
		p.Info("No recent queries")
	default:
		table := output.NewTable("TIME", "DOMAIN", "CLIENT", "STATUS").Colorize(statusCell(3))
		for _, a := range d.Recent.Value {
			table.AddRow(models.FormatTimestamp(a.Timestamp), a.Domain, a.IP, a.Status)
		}
		table.Render(p.Out())
	}
}

func topPart(p *output.Printer, title, what string, r viewer.Result[[]models.AggregateItem]) {
	p.Title(title)
	switch {
	case !r.OK():
		p.Error("%s unavailable: %v", title, r.Err)
	case len(r.Value) == 0:
		p.Info("No data")
	default:
		renderTop(p, what, r.Value)
	}
}

func renderSeries(p *output.Printer, s models.ChartSeries) {
	max := 0
	for _, q := range s.Queries {
		if q > max {
			max = q
		}
	}
	table := output.NewTable("HOUR", "QUERIES", "BLOCKED", "")
	for i, label := range s.Labels {
		var q, b int
		if i < len(s.Queries) {
			q = s.Queries[i]
		}
		if i < len(s.Blocked) {
			b = s.Blocked[i]
		}
		table.AddRow(label, strconv.Itoa(q), strconv.Itoa(b), output.Bar(q, max, 40))
	}
	table.Render(p.Out())
	p.Info("%d queries", s.TotalQueries())
}

func renderAlerts(p *output.Printer, alerts []models.AlertItem) {
	for _, a := range alerts {
		line := fmt.Sprintf("[%s] %s: %s", a.Severity, a.Title, a.Message)
		if a.Severity == models.AlertCritical {
			p.Error("%s", line)
		} else {
			p.Warn("%s", line)
		}
	}
}
