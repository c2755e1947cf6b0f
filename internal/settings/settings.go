// Package settings persists the operator editable server settings (alert
// thresholds, notifications, retention and report metadata) in a JSON file.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/your-username/pihole-log-viewer/internal/models"
)

// Settings keys
const (
	KeyAlertsEnabled         = "alerts_enabled"
	KeyIPSpikeThreshold      = "ip_spike_threshold"
	KeyDomainSpikeThreshold  = "domain_spike_threshold"
	KeyNetworkSpikeThreshold = "network_spike_threshold"
	KeyAnalysisPeriodHours   = "analysis_period_hours"
	KeyAlertCooldownMinutes  = "alert_cooldown_minutes"
	KeyTelegramEnabled       = "telegram_enabled"
	KeyTelegramChatID        = "telegram_chat_id"
	KeyTelegramBotToken      = "telegram_bot_token"
	KeyDataRetentionDays     = "data_retention_days"
	KeyPDFTitle              = "pdf_title"
	KeyPDFAuthor             = "pdf_author"
	KeyPDFSubject            = "pdf_subject"
)

type Settings struct {
	AlertsEnabled         bool    `json:"alerts_enabled" mapstructure:"alerts_enabled"`
	IPSpikeThreshold      float64 `json:"ip_spike_threshold" mapstructure:"ip_spike_threshold"`
	DomainSpikeThreshold  float64 `json:"domain_spike_threshold" mapstructure:"domain_spike_threshold"`
	NetworkSpikeThreshold float64 `json:"network_spike_threshold" mapstructure:"network_spike_threshold"`
	AnalysisPeriodHours   int     `json:"analysis_period_hours" mapstructure:"analysis_period_hours"`
	AlertCooldownMinutes  int     `json:"alert_cooldown_minutes" mapstructure:"alert_cooldown_minutes"`
	TelegramEnabled       bool    `json:"telegram_enabled" mapstructure:"telegram_enabled"`
	TelegramChatID        string  `json:"telegram_chat_id" mapstructure:"telegram_chat_id"`
	TelegramBotToken      string  `json:"telegram_bot_token" mapstructure:"telegram_bot_token"`
	DataRetentionDays     int     `json:"data_retention_days" mapstructure:"data_retention_days"`
	PDFTitle              string  `json:"pdf_title" mapstructure:"pdf_title"`
	PDFAuthor             string  `json:"pdf_author" mapstructure:"pdf_author"`
	PDFSubject            string  `json:"pdf_subject" mapstructure:"pdf_subject"`
}

// Defaults returns the settings used before anything is saved
func Defaults() Settings {
	return Settings{
		AlertsEnabled:         true,
		IPSpikeThreshold:      3.0,
		DomainSpikeThreshold:  5.0,
		NetworkSpikeThreshold: 2.5,
		AnalysisPeriodHours:   2,
		AlertCooldownMinutes:  60,
		DataRetentionDays:     90,
		PDFTitle:              models.DefaultReportTitle,
		PDFAuthor:             models.DefaultReportAuthor,
		PDFSubject:            models.DefaultReportSubject,
	}
}

// legacy camelCase keys written by older front ends, lower cased the way
// viper stores them
var aliases = map[string]string{
	"alertsenabled":         KeyAlertsEnabled,
	"ipspikethreshold":      KeyIPSpikeThreshold,
	"domainspikethreshold":  KeyDomainSpikeThreshold,
	"networkspikethreshold": KeyNetworkSpikeThreshold,
	"analysisperiodhours":   KeyAnalysisPeriodHours,
	"alertcooldownminutes":  KeyAlertCooldownMinutes,
	"telegramenabled":       KeyTelegramEnabled,
	"telegramchatid":        KeyTelegramChatID,
	"telegrambottoken":      KeyTelegramBotToken,
	"dataretentiondays":     KeyDataRetentionDays,
	"pdftitle":              KeyPDFTitle,
	"pdfauthor":             KeyPDFAuthor,
	"pdfsubject":            KeyPDFSubject,
}

// ErrUnknownKey is returned by Merge for keys that name no setting
var ErrUnknownKey = errors.New("unknown setting")

// InvalidError reports a setting outside its allowed range
type InvalidError struct {
	Key    string
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Key, e.Reason)
}

// Canonical maps a snake_case or camelCase key to its snake_case form
func Canonical(key string) (string, bool) {
	k := strings.ToLower(strings.TrimSpace(key))
	if _, ok := Defaults().asMap()[k]; ok {
		return k, true
	}
	if c, ok := aliases[k]; ok {
		return c, true
	}
	return "", false
}

// Keys lists every setting key in order
func Keys() []string {
	m := Defaults().asMap()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks ranges
func (s Settings) Validate() error {
	switch {
	case s.IPSpikeThreshold <= 0:
		return &InvalidError{Key: KeyIPSpikeThreshold, Reason: "must be positive"}
	case s.DomainSpikeThreshold <= 0:
		return &InvalidError{Key: KeyDomainSpikeThreshold, Reason: "must be positive"}
	case s.NetworkSpikeThreshold <= 0:
		return &InvalidError{Key: KeyNetworkSpikeThreshold, Reason: "must be positive"}
	case s.AnalysisPeriodHours < 1 || s.AnalysisPeriodHours > 24:
		return &InvalidError{Key: KeyAnalysisPeriodHours, Reason: "must be between 1 and 24"}
	case s.AlertCooldownMinutes < 0:
		return &InvalidError{Key: KeyAlertCooldownMinutes, Reason: "must not be negative"}
	case s.DataRetentionDays < 0:
		return &InvalidError{Key: KeyDataRetentionDays, Reason: "must not be negative"}
	}
	return nil
}

// ReportMeta returns the export header, defaults filling blank fields
func (s Settings) ReportMeta() models.ReportMeta {
	pick := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	}
	return models.ReportMeta{
		Title:   pick(s.PDFTitle, models.DefaultReportTitle),
		Author:  pick(s.PDFAuthor, models.DefaultReportAuthor),
		Subject: pick(s.PDFSubject, models.DefaultReportSubject),
	}
}

// TelegramReady reports whether notifications can be sent
func (s Settings) TelegramReady() bool {
	return s.TelegramEnabled && s.TelegramChatID != "" && s.TelegramBotToken != ""
}

func (s Settings) asMap() map[string]interface{} {
	data, _ := json.Marshal(s)
	var m map[string]interface{}
	_ = json.Unmarshal(data, &m)
	return m
}

// Store reads and writes the settings file
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Load returns the stored settings over the defaults. A missing file yields
// the defaults.
func (s *Store) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.read()
	if err != nil {
		return Settings{}, err
	}
	return decode(v)
}

// Save replaces the stored settings
func (s *Store) Save(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(settings)
}

// Merge applies the given keys over the stored settings and saves the
// result. Keys may use snake_case or camelCase.
func (s *Store) Merge(patch map[string]interface{}) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.read()
	if err != nil {
		return Settings{}, err
	}
	for key, value := range patch {
		canonical, ok := Canonical(key)
		if !ok {
			return Settings{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
		}
		v.Set(canonical, value)
	}

	merged, err := decode(v)
	if err != nil {
		return Settings{}, err
	}
	if err := merged.Validate(); err != nil {
		return Settings{}, err
	}
	if err := s.write(merged); err != nil {
		return Settings{}, err
	}
	return merged, nil
}

func (s *Store) read() (*viper.Viper, error) {
	v := viper.New()
	for key, value := range Defaults().asMap() {
		v.SetDefault(key, value)
	}
	v.SetConfigFile(s.path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		return nil, fmt.Errorf("failed to read settings %s: %w", s.path, err)
	}

	for alias, canonical := range aliases {
		if v.InConfig(alias) && !v.InConfig(canonical) {
			v.Set(canonical, v.Get(alias))
		}
	}
	return v, nil
}

func (s *Store) write(settings Settings) error {
	v := viper.New()
	v.SetConfigType("json")
	for key, value := range settings.asMap() {
		v.Set(key, value)
	}
	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write settings %s: %w", s.path, err)
	}
	return nil
}

func decode(v *viper.Viper) (Settings, error) {
	var out Settings
	if err := v.Unmarshal(&out); err != nil {
		return Settings{}, &InvalidError{Key: "settings", Reason: err.Error()}
	}
	return out, nil
}
