package monitoring

import (
	"context"
	"os"
	"time"

	"github.com/your-username/pihole-log-viewer/internal/models"
)

// PingChecker reports a dependency down when its ping fails
type PingChecker struct {
	name string
	ping func(ctx context.Context) error
}

func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

func (p *PingChecker) Name() string { return p.name }

func (p *PingChecker) Check(ctx context.Context) (*ComponentHealth, error) {
	health := &ComponentHealth{Name: p.name, Status: HealthStatusOK}
	if err := p.ping(ctx); err != nil {
		return health, err
	}
	return health, nil
}

// DatabaseChecker pings the query database and reports its file size
type DatabaseChecker struct {
	path  string
	ping  func(ctx context.Context) error
	count func(ctx context.Context) (int, error)
}

func NewDatabaseChecker(path string, ping func(ctx context.Context) error, count func(ctx context.Context) (int, error)) *DatabaseChecker {
	return &DatabaseChecker{path: path, ping: ping, count: count}
}

func (d *DatabaseChecker) Name() string { return "database" }

func (d *DatabaseChecker) Check(ctx context.Context) (*ComponentHealth, error) {
	health := &ComponentHealth{
		Name:    d.Name(),
		Status:  HealthStatusOK,
		Details: map[string]interface{}{"path": d.path},
	}
	if err := d.ping(ctx); err != nil {
		return health, err
	}

	if info, err := os.Stat(d.path); err == nil {
		health.Details["size_mb"] = float64(info.Size()) / 1024 / 1024
	}
	n, err := d.count(ctx)
	if err != nil {
		health.Status = HealthStatusDegraded
		health.Message = err.Error()
		return health, nil
	}
	health.Details["rows"] = n
	return health, nil
}

// ImportChecker degrades when the latest import failed or is older than
// maxAge. A zero maxAge only checks for failures.
type ImportChecker struct {
	last   func() models.LastUpdate
	maxAge time.Duration
	now    func() time.Time
}

func NewImportChecker(last func() models.LastUpdate, maxAge time.Duration) *ImportChecker {
	return &ImportChecker{last: last, maxAge: maxAge, now: time.Now}
}

func (i *ImportChecker) Name() string { return "import" }

func (i *ImportChecker) Check(context.Context) (*ComponentHealth, error) {
	last := i.last()
	health := &ComponentHealth{
		Name:   i.Name(),
		Status: HealthStatusOK,
		Details: map[string]interface{}{
			"last_update": last.String(),
			"in_progress": last.InProgress,
		},
	}

	switch {
	case last.Err != "":
		health.Status = HealthStatusDegraded
		health.Message = last.Err
	case i.maxAge > 0 && last.Time.IsZero():
		health.Status = HealthStatusDegraded
		health.Message = "No import has completed"
	case i.maxAge > 0 && i.now().Sub(last.Time) > i.maxAge:
		health.Status = HealthStatusDegraded
		health.Message = "Last import is stale"
	}
	return health, nil
}
