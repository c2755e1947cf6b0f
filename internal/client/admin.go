package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/your-username/pihole-log-viewer/internal/models"
)

// PDF metadata defaults used when the settings leave a field blank
const (
	DefaultPDFTitle   = models.DefaultReportTitle
	DefaultPDFAuthor  = models.DefaultReportAuthor
	DefaultPDFSubject = models.DefaultReportSubject
)

// PDFMetadata reads pdf_title, pdf_author and pdf_subject from a settings
// blob. Missing, blank or non-string values fall back to the defaults.
func PDFMetadata(settings map[string]interface{}) models.ReportMeta {
	pick := func(key, def string) string {
		if v, ok := settings[key].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
		return def
	}
	return models.ReportMeta{
		Title:   pick("pdf_title", DefaultPDFTitle),
		Author:  pick("pdf_author", DefaultPDFAuthor),
		Subject: pick("pdf_subject", DefaultPDFSubject),
	}
}

type alertsResponse struct {
	Alerts []models.AlertItem `json:"alerts"`
}

// FetchAlerts returns the alerts last computed by the server
func (c *Client) FetchAlerts(ctx context.Context) ([]models.AlertItem, error) {
	return c.alerts(ctx, "fetch alerts", "/api/alerts")
}

// CheckAlerts asks the server to evaluate its alert rules now
func (c *Client) CheckAlerts(ctx context.Context) ([]models.AlertItem, error) {
	return c.alerts(ctx, "check alerts", "/api/check-alerts")
}

func (c *Client) alerts(ctx context.Context, op, path string) ([]models.AlertItem, error) {
	var resp alertsResponse
	if err := c.call(ctx, op, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Alerts == nil {
		resp.Alerts = []models.AlertItem{}
	}
	return resp.Alerts, nil
}

type settingsResponse struct {
	Settings map[string]interface{} `json:"settings"`
}

// FetchConfig returns the server settings blob
func (c *Client) FetchConfig(ctx context.Context) (map[string]interface{}, error) {
	var resp settingsResponse
	if err := c.call(ctx, "fetch config", http.MethodGet, "/api/config", nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Settings == nil {
		resp.Settings = map[string]interface{}{}
	}
	return resp.Settings, nil
}

// SaveConfig merges the given keys into the server settings and returns the
// stored result
func (c *Client) SaveConfig(ctx context.Context, settings map[string]interface{}) (map[string]interface{}, error) {
	var resp settingsResponse
	if err := c.call(ctx, "save config", http.MethodPost, "/api/config", nil, settings, &resp); err != nil {
		return nil, err
	}
	return resp.Settings, nil
}

// TestNotification asks the server to send a test message to the
// configured notifier
func (c *Client) TestNotification(ctx context.Context) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	if err := c.call(ctx, "test notification", http.MethodPost, "/api/test-notification", nil, struct{}{}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// UpdateData triggers an import on the server
func (c *Client) UpdateData(ctx context.Context) (models.ImportResult, error) {
	var resp models.ImportResult
	if err := c.call(ctx, "update data", http.MethodGet, "/api/update-data", nil, nil, &resp); err != nil {
		return models.ImportResult{}, err
	}
	return resp, nil
}

// LastUpdate returns the time of the last import
func (c *Client) LastUpdate(ctx context.Context) (models.LastUpdate, error) {
	var resp struct {
		LastUpdate models.LastUpdate `json:"last_update"`
	}
	if err := c.call(ctx, "last update", http.MethodGet, "/api/last-update", nil, nil, &resp); err != nil {
		return models.LastUpdate{}, err
	}
	return resp.LastUpdate, nil
}

// Health pings the server
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/health", nil, nil)
	if err != nil {
		return &FetchError{Op: "health", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &FetchError{Op: "health", Status: resp.StatusCode, Message: "server unhealthy"}
	}
	return nil
}
