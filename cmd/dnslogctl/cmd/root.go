// Package cmd implements the dnslogctl commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/your-username/pihole-log-viewer/internal/client"
	"github.com/your-username/pihole-log-viewer/internal/filter"
	"github.com/your-username/pihole-log-viewer/internal/logstore"
	"github.com/your-username/pihole-log-viewer/internal/output"
	"github.com/your-username/pihole-log-viewer/internal/viewer"
)

const envPrefix = "DNSLOGCTL"

// options is shared by every command of one invocation
type options struct {
	v       *viper.Viper
	cfgFile string
}

func (o *options) client() *client.Client {
	opts := []client.Option{client.WithTimeout(o.v.GetDuration("timeout"))}
	if token := o.v.GetString("token"); token != "" {
		opts = append(opts, client.WithToken(token))
	}
	return client.New(o.v.GetString("server"), opts...)
}

func (o *options) viewer() *viewer.Viewer {
	return o.viewerFor(o.client())
}

func (o *options) viewerFor(c *client.Client) *viewer.Viewer {
	return viewer.New(c, logstore.New(), viewer.WithTopLimit(o.v.GetInt("limit")))
}

func (o *options) printer(cmd *cobra.Command) *output.Printer {
	return output.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func (o *options) jsonOutput() bool {
	return strings.EqualFold(o.v.GetString("output"), "json")
}

func (o *options) initConfig() error {
	o.v.SetEnvPrefix(envPrefix)
	o.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	o.v.AutomaticEnv()

	if o.cfgFile != "" {
		o.v.SetConfigFile(o.cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		o.v.SetConfigFile(filepath.Join(home, ".dnslogctl.yaml"))
	}
	if err := o.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if o.cfgFile != "" && !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return fmt.Errorf("failed to read config %s: %w", o.cfgFile, err)
		}
	}

	if o.v.GetBool("no-color") {
		color.NoColor = true
	}
	return nil
}

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	o := &options{v: viper.New()}

	root := &cobra.Command{
		Use:   "dnslogctl",
		Short: "DNS query log viewer",
		Long: `dnslogctl browses the DNS query log collected by dnslog-viewer.

Filter the log, drill into domains, watch the dashboard and export
reports from your terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.initConfig()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&o.cfgFile, "config", "", "config file (default: $HOME/.dnslogctl.yaml)")
	flags.String("server", "http://localhost:8082", "log server URL")
	flags.String("token", "", "API bearer token")
	flags.Duration("timeout", client.DefaultTimeout, "request timeout")
	flags.StringP("output", "o", "table", "output format: table, json")
	flags.Int("limit", viewer.DefaultTopLimit, "length of top lists")
	flags.Bool("no-color", false, "disable coloured output")
	for _, name := range []string{"server", "token", "timeout", "output", "limit", "no-color"} {
		_ = o.v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(
		newLogsCommand(o),
		newDetailsCommand(o),
		newTopCommand(o),
		newDashboardCommand(o),
		newExportCommand(o),
		newWatchCommand(o),
		newAlertsCommand(o),
		newConfigCommand(o),
		newUpdateCommand(o),
		newTokenCommand(o),
		newSeedCommand(o),
	)
	return root
}

// Execute runs the root command and reports a failure on stderr
func Execute(ctx context.Context) error {
	root := NewRootCommand()
	err := root.ExecuteContext(ctx)
	if err != nil {
		reportError(output.New(os.Stdout, os.Stderr), err)
	}
	return err
}

func reportError(p *output.Printer, err error) {
	var verr *filter.ValidationError
	var ferr *client.FetchError
	switch {
	case errors.As(err, &verr):
		p.Error("Invalid filter: %v", verr)
	case errors.As(err, &ferr):
		p.Error("Server request failed (transient, retry later): %v", ferr)
	default:
		p.Error("%v", err)
	}
}

// filterFlags collects the filter inputs exactly as typed
type filterFlags struct {
	raw filter.RawFields
}

func (f *filterFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.raw.IP, "ip", "", "client IP substring")
	fs.StringVar(&f.raw.Domain, "domain", "", "domain substring")
	fs.StringVar(&f.raw.StartDate, "start-date", "", "first day, YYYY-MM-DD")
	fs.StringVar(&f.raw.EndDate, "end-date", "", "last day, YYYY-MM-DD")
	fs.StringVar(&f.raw.StartTime, "start-time", "", "earliest time of day, HH:MM")
	fs.StringVar(&f.raw.EndTime, "end-time", "", "latest time of day, HH:MM")
	fs.StringVar(&f.raw.Lines, "lines", "", "maximum number of entries (0 = no limit)")
}

// parseDate accepts YYYY-MM-DD; blank means today on the server
func parseDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return d, nil
}
