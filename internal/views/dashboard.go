package views

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"go-feed-sync/internal/cache"
	"go-feed-sync/internal/coordinator"
	"go-feed-sync/internal/lifecycle"
	"go-feed-sync/internal/models"
)

// ErrNotMounted is returned by user actions on a view that is not mounted
var ErrNotMounted = errors.New("view is not mounted")

// DashboardClient fetches the analytics dashboard
type DashboardClient interface {
	Dashboard(ctx context.Context) (models.DashboardAnalytics, error)
}

// DashboardSnapshot is the render state of the dashboard
type DashboardSnapshot struct {
	Status
	HasData   bool                       `json:"has_data"`
	Analytics *models.DashboardAnalytics `json:"analytics,omitempty"`
}

// Dashboard shows trending tickers, top insights and top users, polled on a
// fixed interval while mounted
type Dashboard struct {
	base
	client   DashboardClient
	ttl      time.Duration
	interval time.Duration

	data    models.DashboardAnalytics
	hasData bool

	// onUpdate receives the dashboard after every applied load
	onUpdate func(models.DashboardAnalytics)
}

var _ View = (*Dashboard)(nil)

// NewDashboard creates the dashboard view
func NewDashboard(coord *coordinator.Coordinator, client DashboardClient, ttl, interval time.Duration, logger *zap.Logger) *Dashboard {
	return &Dashboard{
		base:     newBase("dashboard", coord, logger),
		client:   client,
		ttl:      ttl,
		interval: interval,
	}
}

// OnUpdate registers fn to run after every applied load. Set before Mount.
func (d *Dashboard) OnUpdate(fn func(models.DashboardAnalytics)) {
	d.onUpdate = fn
}

// Mount loads the dashboard and starts polling
func (d *Dashboard) Mount(ctx context.Context) {
	life := d.mount(ctx)
	go d.load(life, initial(d.ttl))
	life.Every(d.interval, d.interval, func(ctx context.Context) {
		d.load(life, background(d.ttl))
	})
}

// Retry reloads the dashboard with a visible loading transition
func (d *Dashboard) Retry(ctx context.Context) error {
	life, err := d.current()
	if err != nil {
		return err
	}
	return d.loadCtx(ctx, life, retry(d.ttl))
}

func (d *Dashboard) load(life *lifecycle.Lifetime, opts coordinator.Options) {
	_ = d.loadCtx(life.Context(), life, opts)
}

func (d *Dashboard) loadCtx(ctx context.Context, life *lifecycle.Lifetime, opts coordinator.Options) error {
	var updated *models.DashboardAnalytics
	err := load(ctx, &d.base, life, cache.DashboardKey(), d.client.Dashboard, opts, func(value models.DashboardAnalytics) {
		d.data = value
		d.hasData = true
		updated = &value
	})
	if err == nil && updated != nil && d.onUpdate != nil {
		d.onUpdate(*updated)
	}
	return err
}

// Data returns the last applied dashboard
func (d *Dashboard) Data() (models.DashboardAnalytics, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.data, d.hasData
}

// Snapshot implements View
func (d *Dashboard) Snapshot() any {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := DashboardSnapshot{Status: d.statusLocked(), HasData: d.hasData}
	if d.hasData {
		data := d.data
		snap.Analytics = &data
	}
	return snap
}
