package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/your-username/pihole-log-viewer/internal/client"
	"github.com/your-username/pihole-log-viewer/internal/filter"
	"github.com/your-username/pihole-log-viewer/internal/models"
	"github.com/your-username/pihole-log-viewer/internal/output"
	"github.com/your-username/pihole-log-viewer/internal/status"
	"github.com/your-username/pihole-log-viewer/internal/viewer"
)

const streamRetry = 5 * time.Second

func newWatchCommand(o *options) *cobra.Command {
	var (
		f        filterFlags
		interval time.Duration
		stream   bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the query log",
		Long: `Load the filtered log, then refresh it periodically and whenever the
server reports new data. With --stream matching queries are printed as
they arrive. A failed refresh keeps the previous result.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			spec, err := filter.Build(f.raw)
			if err != nil {
				return err
			}
			if interval <= 0 {
				return errors.New("interval must be positive")
			}

			c := o.client()
			v := o.viewerFor(c)
			w := &watcher{p: o.printer(cmd), c: c, v: v}
			if _, err := v.LoadSpec(ctx, spec); err != nil {
				return err
			}
			if err := o.printLogs(w.p, v.Snapshot()); err != nil {
				return err
			}

			var wg sync.WaitGroup
			if stream {
				wg.Add(1)
				go func() {
					defer wg.Done()
					w.follow(ctx, spec)
				}()
			}
			v.Run(ctx, interval, w.refreshed)
			wg.Wait()
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "refresh interval")
	cmd.Flags().BoolVar(&stream, "stream", true, "print queries pushed by the server")
	return cmd
}

type watcher struct {
	p  *output.Printer
	c  *client.Client
	v  *viewer.Viewer
	mu sync.Mutex
}

func (w *watcher) refreshed(outcome viewer.Outcome, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now().Format("15:04:05")
	switch {
	case err != nil:
		w.p.Warn("%s refresh failed, showing previous data: %v", now, err)
	case outcome != viewer.Applied:
		w.p.Info("%s %s", now, outcomeNote(outcome))
	default:
		rs := w.v.Snapshot()
		s := w.v.SummaryLocal()
		w.p.Info("%s %d entries, %d queries, %d blocked", now, rs.Len(), s.TotalQueries, s.BlockedQueries)
	}
}

// follow keeps a stream subscription open until ctx is done
func (w *watcher) follow(ctx context.Context, spec filter.Spec) {
	for {
		err := w.c.Subscribe(ctx, spec, func(ev models.RawEvent) { w.handle(ctx, ev) })
		if ctx.Err() != nil {
			return
		}
		w.mu.Lock()
		w.p.Warn("Event stream lost, retrying in %s: %v", streamRetry, err)
		w.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-time.After(streamRetry):
		}
	}
}

func (w *watcher) handle(ctx context.Context, ev models.RawEvent) {
	switch ev.Type {
	case models.EventDataUpdated:
		go func() {
			outcome, err := w.v.Reload(ctx)
			w.refreshed(outcome, err)
		}()
	case models.EventQueries:
		var entries []models.LogEntry
		if json.Unmarshal(ev.Data, &entries) != nil {
			return
		}
		w.mu.Lock()
		defer w.mu.Unlock()
		for _, e := range entries {
			label := status.Label(e.Status)
			output.StatusColor(e.Status).Fprintf(w.p.Out(), "%s  %-40s  %-15s  %s\n",
				models.FormatTimestamp(e.Timestamp), e.DisplayDomain(), e.DisplayIP(), label)
		}
	case models.EventAlerts:
		var alerts []models.AlertItem
		if json.Unmarshal(ev.Data, &alerts) != nil {
			return
		}
		w.mu.Lock()
		defer w.mu.Unlock()
		renderAlerts(w.p, alerts)
	}
}
