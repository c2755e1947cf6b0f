package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/your-username/pihole-log-viewer/internal/database"
	"github.com/your-username/pihole-log-viewer/internal/models"
	"github.com/your-username/pihole-log-viewer/internal/settings"
)

// Spike kinds
const (
	KindIP      = "ip"
	KindDomain  = "domain"
	KindNetwork = "network"
)

// baselineWindow is the period the hourly average is taken over
const baselineWindow = 24 * time.Hour

// topCandidates limits how many clients or domains are tested per check
const topCandidates = 10

// SpikeSource provides the recent counts and hourly baselines
type SpikeSource interface {
	RecentCounts(ctx context.Context, group string, since time.Time, limit int) ([]models.AggregateItem, error)
	HourlyAverages(ctx context.Context, group string, since time.Time) (map[string]float64, error)
}

// SettingsLoader supplies the alert settings
type SettingsLoader interface {
	Load() (settings.Settings, error)
}

// AlertBroadcaster pushes alerts to connected clients
type AlertBroadcaster interface {
	BroadcastAlerts(alerts []models.AlertItem)
}

// AlertNotifier delivers an alert message outside the dashboard
type AlertNotifier interface {
	Send(ctx context.Context, cfg settings.Settings, text string) error
}

// AlertRule is one spike check
type AlertRule struct {
	Kind      string
	Group     string
	Threshold func(settings.Settings) float64
	Title     func(key string) string
	Subject   func(key string) string
}

// AlertManager compares the recent query rate of every client, domain and
// the whole network with its hourly average over the last day
type AlertManager struct {
	source   SpikeSource
	settings SettingsLoader
	notifier AlertNotifier
	hub      AlertBroadcaster
	metrics  *Metrics
	now      func() time.Time
	rules    []AlertRule

	mu        sync.Mutex
	current   []models.AlertItem
	checked   bool
	lastFired map[string]time.Time
}

func NewAlertManager(source SpikeSource, cfg SettingsLoader, notifier AlertNotifier, hub AlertBroadcaster, metrics *Metrics) *AlertManager {
	am := &AlertManager{
		source:    source,
		settings:  cfg,
		notifier:  notifier,
		hub:       hub,
		metrics:   metrics,
		now:       time.Now,
		lastFired: make(map[string]time.Time),
	}
	am.registerDefaultRules()
	return am
}

func (am *AlertManager) registerDefaultRules() {
	am.rules = []AlertRule{
		{
			Kind:      KindIP,
			Group:     database.GroupClient,
			Threshold: func(s settings.Settings) float64 { return s.IPSpikeThreshold },
			Title:     func(key string) string { return "Traffic spike from " + key },
			Subject:   func(key string) string { return "Client " + key },
		},
		{
			Kind:      KindDomain,
			Group:     database.GroupDomain,
			Threshold: func(s settings.Settings) float64 { return s.DomainSpikeThreshold },
			Title:     func(key string) string { return "Traffic spike for " + key },
			Subject:   func(key string) string { return "Domain " + key },
		},
		{
			Kind:      KindNetwork,
			Group:     database.GroupNetwork,
			Threshold: func(s settings.Settings) float64 { return s.NetworkSpikeThreshold },
			Title:     func(string) string { return "Network traffic spike" },
			Subject:   func(string) string { return "The network" },
		},
	}
}

// Current returns the alerts of the latest check, checking first if no
// check has run yet
func (am *AlertManager) Current(ctx context.Context) ([]models.AlertItem, error) {
	am.mu.Lock()
	checked, current := am.checked, am.current
	am.mu.Unlock()
	if checked {
		return current, nil
	}
	return am.Check(ctx)
}

// Check evaluates every rule. Alerts whose subject fired within the cooldown
// are still returned but are not broadcast or notified again.
func (am *AlertManager) Check(ctx context.Context) ([]models.AlertItem, error) {
	cfg, err := am.settings.Load()
	if err != nil {
		return nil, fmt.Errorf("load alert settings: %w", err)
	}

	alerts := []models.AlertItem{}
	if cfg.AlertsEnabled {
		now := am.now()
		for _, rule := range am.rules {
			found, err := am.evaluate(ctx, rule, cfg, now)
			if err != nil {
				return nil, fmt.Errorf("%s spike check: %w", rule.Kind, err)
			}
			alerts = append(alerts, found...)
		}
	}

	fresh := am.record(alerts, cfg)
	if len(fresh) > 0 {
		am.dispatch(ctx, fresh, cfg)
	}
	return alerts, nil
}

func (am *AlertManager) evaluate(ctx context.Context, rule AlertRule, cfg settings.Settings, now time.Time) ([]models.AlertItem, error) {
	hours := cfg.AnalysisPeriodHours
	if hours <= 0 {
		hours = settings.Defaults().AnalysisPeriodHours
	}
	threshold := rule.Threshold(cfg)

	recent, err := am.source.RecentCounts(ctx, rule.Group, now.Add(-time.Duration(hours)*time.Hour), topCandidates)
	if err != nil {
		return nil, err
	}
	if len(recent) == 0 {
		return nil, nil
	}
	baseline, err := am.source.HourlyAverages(ctx, rule.Group, now.Add(-baselineWindow))
	if err != nil {
		return nil, err
	}

	var out []models.AlertItem
	for _, item := range recent {
		avg := baseline[item.Key]
		if avg <= 0 {
			continue
		}
		rate := float64(item.Count) / float64(hours)
		ratio := rate / avg
		if ratio <= threshold {
			continue
		}

		alertType := models.AlertWarning
		severity := "medium"
		if ratio > 2*threshold {
			alertType = models.AlertCritical
			severity = "high"
		}
		out = append(out, models.AlertItem{
			ID:       uuid.NewString(),
			Title:    rule.Title(item.Key),
			Severity: severity,
			Type:     alertType,
			Message: fmt.Sprintf("%s made %d queries in the last %dh (%.1f/h, %.1fx the hourly average of %.1f)",
				rule.Subject(item.Key), item.Count, hours, rate, ratio, avg),
			Timestamp: now.Format(time.RFC3339),
		})
		if am.metrics != nil {
			am.metrics.AlertsRaised.WithLabelValues(rule.Kind).Inc()
		}
	}
	return out, nil
}

// record stores the result and returns the alerts outside their cooldown
func (am *AlertManager) record(alerts []models.AlertItem, cfg settings.Settings) []models.AlertItem {
	am.mu.Lock()
	defer am.mu.Unlock()

	am.current = alerts
	am.checked = true

	now := am.now()
	cooldown := time.Duration(cfg.AlertCooldownMinutes) * time.Minute
	var fresh []models.AlertItem
	for _, a := range alerts {
		if last, ok := am.lastFired[a.Title]; ok && now.Sub(last) < cooldown {
			continue
		}
		am.lastFired[a.Title] = now
		fresh = append(fresh, a)
	}
	return fresh
}

func (am *AlertManager) dispatch(ctx context.Context, alerts []models.AlertItem, cfg settings.Settings) {
	if am.hub != nil {
		am.hub.BroadcastAlerts(alerts)
	}
	if am.notifier == nil || !cfg.TelegramReady() {
		return
	}
	for _, a := range alerts {
		err := am.notifier.Send(ctx, cfg, fmt.Sprintf("*%s*\n\n%s", a.Title, a.Message))
		am.countNotification(err)
		if err != nil {
			log.Warn().Err(err).Str("alert", a.Title).Msg("Failed to send alert notification")
		}
	}
}

// TestNotification sends a fixed message through the notifier
func (am *AlertManager) TestNotification(ctx context.Context) error {
	cfg, err := am.settings.Load()
	if err != nil {
		return fmt.Errorf("load alert settings: %w", err)
	}
	if !cfg.TelegramReady() {
		return ErrTelegramDisabled
	}
	err = am.notifier.Send(ctx, cfg, "*Test notification*\n\nThis is a test message from the DNS log viewer.")
	am.countNotification(err)
	return err
}

func (am *AlertManager) countNotification(err error) {
	if am.metrics == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "failed"
	}
	am.metrics.Notifications.WithLabelValues(status).Inc()
}

// Start runs Check on an interval until ctx is done
func (am *AlertManager) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := am.Check(ctx); err != nil {
					log.Error().Err(err).Msg("Alert check failed")
				}
			}
		}
	}()
}
