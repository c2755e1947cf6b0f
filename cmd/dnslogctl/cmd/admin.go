package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/your-username/pihole-log-viewer/internal/auth"
	"github.com/your-username/pihole-log-viewer/internal/output"
	"github.com/your-username/pihole-log-viewer/internal/settings"
)

func newAlertsCommand(o *options) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List traffic alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := o.client()
			fetch := c.FetchAlerts
			if check {
				fetch = c.CheckAlerts
			}
			alerts, err := fetch(cmd.Context())
			if err != nil {
				return err
			}
			p := o.printer(cmd)
			if o.jsonOutput() {
				return p.JSON(alerts)
			}
			if len(alerts) == 0 {
				p.Success("No alerts")
				return nil
			}
			renderAlerts(p, alerts)
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "run the spike detection now instead of listing the last result")

	cmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Send a test notification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := o.client().TestNotification(cmd.Context())
			if err != nil {
				return err
			}
			o.printer(cmd).Success("%s", msg)
			return nil
		},
	})
	return cmd
}

func newConfigCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read or change the server settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [KEY]",
		Short: "Print all settings or one value",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := o.client().FetchConfig(cmd.Context())
			if err != nil {
				return err
			}
			p := o.printer(cmd)

			if len(args) == 1 {
				key, ok := settings.Canonical(args[0])
				if !ok {
					return fmt.Errorf("%w: %s", settings.ErrUnknownKey, args[0])
				}
				if o.jsonOutput() {
					return p.JSON(map[string]interface{}{key: values[key]})
				}
				p.Println(formatSetting(key, values[key]))
				return nil
			}

			if o.jsonOutput() {
				return p.JSON(values)
			}
			renderSettings(p, values)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "set KEY=VALUE...",
		Short:   "Change one or more settings",
		Example: "  dnslogctl config set alerts_enabled=true ip_spike_threshold=4.5",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := parseAssignments(args)
			if err != nil {
				return err
			}
			stored, err := o.client().SaveConfig(cmd.Context(), patch)
			if err != nil {
				return err
			}
			p := o.printer(cmd)
			p.Success("Settings saved")
			if o.jsonOutput() {
				return p.JSON(stored)
			}
			renderSettings(p, stored)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "keys",
		Short: "List the setting keys",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			p := o.printer(cmd)
			for _, k := range settings.Keys() {
				p.Println(k)
			}
		},
	})
	return cmd
}

// parseAssignments turns KEY=VALUE arguments into a settings patch. Values
// parse as bool, then number, else stay strings.
func parseAssignments(args []string) (map[string]interface{}, error) {
	patch := make(map[string]interface{}, len(args))
	for _, arg := range args {
		k, raw, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("expected KEY=VALUE, got %q", arg)
		}
		key, known := settings.Canonical(k)
		if !known {
			return nil, fmt.Errorf("%w: %s", settings.ErrUnknownKey, k)
		}
		patch[key] = parseValue(raw)
	}
	return patch, nil
}

func parseValue(raw string) interface{} {
	s := strings.TrimSpace(raw)
	if b, err := strconv.ParseBool(s); err == nil && s != "1" && s != "0" {
		return b
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return raw
}

func formatSetting(key string, v interface{}) string {
	if key == settings.KeyTelegramBotToken {
		if s, ok := v.(string); ok && s != "" {
			return "********"
		}
	}
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func renderSettings(p *output.Printer, values map[string]interface{}) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := output.NewTable("KEY", "VALUE")
	for _, k := range keys {
		table.AddRow(k, formatSetting(k, values[k]))
	}
	table.Render(p.Out())
}

func newUpdateCommand(o *options) *cobra.Command {
	var last bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Import new queries on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := o.client()
			p := o.printer(cmd)

			if last {
				u, err := c.LastUpdate(cmd.Context())
				if err != nil {
					return err
				}
				if o.jsonOutput() {
					return p.JSON(u)
				}
				p.Info("Last update: %s", u)
				if u.Err != "" {
					p.Warn("Last import failed: %s", u.Err)
				}
				return nil
			}

			res, err := c.UpdateData(cmd.Context())
			if err != nil {
				return err
			}
			if o.jsonOutput() {
				return p.JSON(res)
			}
			p.Success("%s", res.Message)
			table := output.NewTable("INSERTED", "FUTURE", "LOCAL", "INVALID", "REMOVED", "TOTAL")
			table.AddRow(
				strconv.Itoa(res.InsertedCount),
				strconv.Itoa(res.SkippedFuture),
				strconv.Itoa(res.SkippedLocal),
				strconv.Itoa(res.SkippedBad),
				strconv.FormatInt(res.Removed, 10),
				strconv.Itoa(res.TotalRecords),
			)
			table.Render(p.Out())
			return nil
		},
	}
	cmd.Flags().BoolVar(&last, "last", false, "show the time of the last import instead")
	return cmd
}

func newTokenCommand(o *options) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token",
		Long:  "Sign a token with the server secret (--secret or JWT_SECRET).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := o.v.GetString("secret")
			if secret == "" {
				secret = o.v.GetString("jwt_secret")
			}
			token, err := auth.Issue(secret, subject, ttl)
			if err != nil {
				return err
			}
			o.printer(cmd).Println(token)
			return nil
		},
	}
	cmd.Flags().String("secret", "", "signing secret")
	_ = o.v.BindPFlag("secret", cmd.Flags().Lookup("secret"))
	_ = o.v.BindEnv("jwt_secret", "JWT_SECRET")
	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "lifetime, 0 for no expiry")
	return cmd
}
