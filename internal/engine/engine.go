package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dinesync/dinesync/internal/clock"
	"github.com/dinesync/dinesync/internal/device"
	"github.com/dinesync/dinesync/internal/geo"
	"github.com/dinesync/dinesync/internal/model"
	"github.com/dinesync/dinesync/internal/remote"
	"github.com/dinesync/dinesync/internal/session"
)

// DefaultCooldown is the minimum interval between successful signals from
// one session.
const DefaultCooldown = 10 * time.Second

// DefaultPendingExpiry is how long a Pending order may sit untouched before
// the janitor treats it as abandoned.
const DefaultPendingExpiry = 10 * time.Minute

// IDSource synthesizes placeholder ids for the optimistic write pipeline.
// Production uses time-sortable UUIDv7; tests inject a fixed sequence.
type IDSource interface {
	NewID() string
}

type uuidSource struct{}

func (uuidSource) NewID() string { return uuid.Must(uuid.NewV7()).String() }

// Engine is the explicitly constructed service object holding per-device
// session and mirror state. It is injected into whatever consumes it (the
// CLI, a UI layer, tests) rather than living as a process-wide global.
type Engine struct {
	remote   remote.Store
	device   *device.Store
	sessions *session.Manager
	clk      clock.Clock
	log      *slog.Logger
	ids      IDSource
	role     model.Role
	sensor   geo.Sensor

	cooldown      time.Duration
	pendingExpiry time.Duration
	sensorTimeout time.Duration

	mu            sync.Mutex
	orders        []model.Order
	notifications []model.Notification
	placeholders  []model.Notification
	tables        []model.Table
	menu          []model.MenuItem
	reviews       []model.Review
	settings      model.Settings
	haveSettings  bool
	lastSignalAt  time.Time

	ordersBus        *Bus[[]model.Order]
	notificationsBus *Bus[[]model.Notification]
	tablesBus        *Bus[[]model.Table]
	menuBus          *Bus[[]model.MenuItem]
	settingsBus      *Bus[model.Settings]
	reviewsBus       *Bus[[]model.Review]

	unsubs      []remote.Unsubscribe
	janitorBusy atomic.Bool
	started     bool
}

// Option configures the engine at construction.
type Option func(*Engine)

// WithClock injects a time source. Tests use testutil.Clock.
func WithClock(c clock.Clock) Option { return func(e *Engine) { e.clk = c } }

// WithLogger injects the structured logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.log = l } }

// WithRole sets the local actor's privilege level. Default RoleCustomer.
func WithRole(r model.Role) Option { return func(e *Engine) { e.role = r } }

// WithSensor injects the geolocation source. Without one, every gate check
// behaves as a sensor failure and resolves by the action's policy.
func WithSensor(s geo.Sensor) Option { return func(e *Engine) { e.sensor = s } }

// WithIDSource injects the placeholder id generator. Tests use
// testutil.IDs for stable golden traces.
func WithIDSource(s IDSource) Option { return func(e *Engine) { e.ids = s } }

// WithCooldown overrides the signal cooldown interval.
func WithCooldown(d time.Duration) Option { return func(e *Engine) { e.cooldown = d } }

// WithPendingExpiry overrides the abandoned-order threshold.
func WithPendingExpiry(d time.Duration) Option { return func(e *Engine) { e.pendingExpiry = d } }

// WithSensorTimeout overrides the geolocation read timeout.
func WithSensorTimeout(d time.Duration) Option { return func(e *Engine) { e.sensorTimeout = d } }

// noSensor is the default Sensor: every read fails, so gates resolve purely
// by their failure policy.
type noSensor struct{}

func (noSensor) Current(context.Context) (geo.Position, error) {
	return geo.Position{}, errors.New("no geolocation sensor configured")
}

// New builds an engine over a remote store and the device-local store.
func New(rs remote.Store, ds *device.Store, opts ...Option) *Engine {
	e := &Engine{
		remote:           rs,
		device:           ds,
		sessions:         session.NewManager(ds),
		clk:              clock.System{},
		log:              slog.Default(),
		ids:              uuidSource{},
		role:             model.RoleCustomer,
		sensor:           noSensor{},
		cooldown:         DefaultCooldown,
		pendingExpiry:    DefaultPendingExpiry,
		sensorTimeout:    geo.DefaultSensorTimeout,
		ordersBus:        NewBus[[]model.Order](),
		notificationsBus: NewBus[[]model.Notification](),
		tablesBus:        NewBus[[]model.Table](),
		menuBus:          NewBus[[]model.MenuItem](),
		settingsBus:      NewBus[model.Settings](),
		reviewsBus:       NewBus[[]model.Review](),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start opens one subscription per collection. A collection whose
// subscription is rejected (for example notifications unreadable for this
// role) is logged and its mirror slice stays empty; the other subscriptions
// are unaffected.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return errors.New("engine already started")
	}
	e.started = true
	e.mu.Unlock()

	if un, err := e.remote.SubscribeOrders(ctx, e.onOrders); err != nil {
		e.log.Error("orders subscription failed", "error", err)
	} else {
		e.unsubs = append(e.unsubs, un)
	}

	if un, err := e.remote.SubscribeNotifications(ctx, e.onNotifications); err != nil {
		e.log.Error("notifications subscription failed", "error", err)
	} else {
		e.unsubs = append(e.unsubs, un)
	}

	if un, err := e.remote.SubscribeTables(ctx, e.onTables); err != nil {
		e.log.Error("tables subscription failed", "error", err)
	} else {
		e.unsubs = append(e.unsubs, un)
	}

	if un, err := e.remote.SubscribeMenu(ctx, e.onMenu); err != nil {
		e.log.Error("menu subscription failed", "error", err)
	} else {
		e.unsubs = append(e.unsubs, un)
	}

	if un, err := e.remote.SubscribeSettings(ctx, e.onSettings); err != nil {
		e.log.Error("settings subscription failed, using cached", "error", err)
		if cached, cerr := e.device.CachedSettings(ctx); cerr == nil {
			e.mu.Lock()
			e.settings = cached
			e.haveSettings = true
			e.mu.Unlock()
		}
	} else {
		e.unsubs = append(e.unsubs, un)
	}

	if un, err := e.remote.SubscribeReviews(ctx, e.onReviews); err != nil {
		e.log.Error("reviews subscription failed", "error", err)
	} else {
		e.unsubs = append(e.unsubs, un)
	}

	return nil
}

// Close detaches all subscriptions. The device store is owned by the caller
// and stays open.
func (e *Engine) Close() {
	for _, un := range e.unsubs {
		un()
	}
	e.unsubs = nil
}

// SessionID returns this device's session token.
func (e *Engine) SessionID(ctx context.Context) (string, error) {
	return e.sessions.ID(ctx)
}

// Role returns the local actor's privilege level.
func (e *Engine) Role() model.Role { return e.role }

// onOrders replaces the orders mirror wholesale, republishes, and on
// privileged devices runs the janitor. Keeping the janitor off unprivileged
// devices avoids uncontrolled fan-out of delete operations from every
// customer phone observing the same snapshot.
func (e *Engine) onOrders(snap []model.Order) {
	e.mu.Lock()
	e.orders = snap
	e.mu.Unlock()
	e.ordersBus.Publish(snap)

	if e.role.Elevated() {
		e.runJanitor(context.Background(), snap)
	}
}

// onNotifications replaces the notifications mirror and drops any
// placeholder the snapshot now covers: once the real record is observed the
// optimistic copy has served its purpose.
func (e *Engine) onNotifications(snap []model.Notification) {
	e.mu.Lock()
	e.notifications = snap
	kept := e.placeholders[:0]
	for _, p := range e.placeholders {
		if p.ID.Local() || !snapshotHas(snap, p.ID.Value) {
			kept = append(kept, p)
		}
	}
	e.placeholders = kept
	view := e.composeNotificationsLocked()
	e.mu.Unlock()
	e.notificationsBus.Publish(view)
}

func snapshotHas(snap []model.Notification, id string) bool {
	for _, n := range snap {
		if !n.ID.Local() && n.ID.Value == id {
			return true
		}
	}
	return false
}

// composeNotificationsLocked merges the remote snapshot with live
// placeholders. Callers hold e.mu.
//
// A placeholder the snapshot already covers is suppressed. That closes the
// window where the real record lands via snapshot push before the write
// acknowledgment promotes the placeholder: the view must never show the
// same signal twice, or a rapid second tap would slip past the dedup key.
func (e *Engine) composeNotificationsLocked() []model.Notification {
	view := make([]model.Notification, 0, len(e.notifications)+len(e.placeholders))
	view = append(view, e.notifications...)
	for _, p := range e.placeholders {
		if !covered(e.notifications, p) {
			view = append(view, p)
		}
	}
	return view
}

// covered reports whether the snapshot already carries the placeholder's
// signal: same remote identity after promotion, or a pending record with
// the same (session, type) key before it.
func covered(snap []model.Notification, p model.Notification) bool {
	for _, n := range snap {
		if n.ID.Local() {
			continue
		}
		if !p.ID.Local() && n.ID.Value == p.ID.Value {
			return true
		}
		if p.Status == model.NotifyPending && n.Status == model.NotifyPending &&
			n.SessionID == p.SessionID && n.Type == p.Type {
			return true
		}
	}
	return false
}

func (e *Engine) onTables(snap []model.Table) {
	e.mu.Lock()
	e.tables = snap
	e.mu.Unlock()
	e.tablesBus.Publish(snap)
}

func (e *Engine) onMenu(snap []model.MenuItem) {
	e.mu.Lock()
	e.menu = snap
	e.mu.Unlock()
	e.menuBus.Publish(snap)
}

// onSettings mirrors settings and refreshes the on-device cache used when
// the subscription is unavailable.
func (e *Engine) onSettings(st model.Settings) {
	e.mu.Lock()
	e.settings = st
	e.haveSettings = true
	e.mu.Unlock()
	e.settingsBus.Publish(st)

	if err := e.device.CacheSettings(context.Background(), st); err != nil {
		e.log.Error("settings cache write failed", "error", err)
	}
}

func (e *Engine) onReviews(snap []model.Review) {
	e.mu.Lock()
	e.reviews = snap
	e.mu.Unlock()
	e.reviewsBus.Publish(snap)
}

// Orders returns a copy of the current orders mirror.
func (e *Engine) Orders() []model.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.Order, len(e.orders))
	copy(out, e.orders)
	return out
}

// Notifications returns the merged view: remote snapshot plus live
// optimistic placeholders.
func (e *Engine) Notifications() []model.Notification {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.composeNotificationsLocked()
}

// Tables returns a copy of the tables mirror.
func (e *Engine) Tables() []model.Table {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.Table, len(e.tables))
	copy(out, e.tables)
	return out
}

// Menu returns a copy of the menu mirror.
func (e *Engine) Menu() []model.MenuItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.MenuItem, len(e.menu))
	copy(out, e.menu)
	return out
}

// Settings returns the mirrored venue settings, falling back to the
// on-device cache when no snapshot has arrived.
func (e *Engine) Settings(ctx context.Context) model.Settings {
	e.mu.Lock()
	st, have := e.settings, e.haveSettings
	e.mu.Unlock()
	if have {
		return st
	}
	if cached, err := e.device.CachedSettings(ctx); err == nil {
		return cached
	}
	return model.Settings{}
}

// OrdersBus exposes the orders snapshot stream.
func (e *Engine) OrdersBus() *Bus[[]model.Order] { return e.ordersBus }

// NotificationsBus exposes the merged notifications snapshot stream.
func (e *Engine) NotificationsBus() *Bus[[]model.Notification] { return e.notificationsBus }

// TablesBus exposes the tables snapshot stream.
func (e *Engine) TablesBus() *Bus[[]model.Table] { return e.tablesBus }

// MenuBus exposes the menu snapshot stream.
func (e *Engine) MenuBus() *Bus[[]model.MenuItem] { return e.menuBus }

// SettingsBus exposes the settings snapshot stream.
func (e *Engine) SettingsBus() *Bus[model.Settings] { return e.settingsBus }

// gate builds the geofence gate from current settings.
func (e *Engine) gate(ctx context.Context) *geo.Gate {
	st := e.Settings(ctx)
	return geo.NewGate(st.VenueLat, st.VenueLng, st.GeofenceRadiusM, e.sensor, e.log).
		WithTimeout(e.sensorTimeout)
}
