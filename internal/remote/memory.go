package remote

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dinesync/dinesync/internal/model"
)

// MemoryStore is an in-process Store with the same snapshot-push semantics
// as the real backend. It exists for tests and the demo CLI.
//
// Delivery is synchronous: handlers run on the goroutine that performed the
// mutation, in subscription order. That mirrors the single-threaded
// event-driven model the engine assumes.
type MemoryStore struct {
	mu sync.Mutex

	orders        []model.Order
	notifications []model.Notification
	tables        []model.Table
	menu          []model.MenuItem
	settings      model.Settings
	reviews       []model.Review
	archive       []model.Order

	orderSubs        map[int]func([]model.Order)
	notifSubs        map[int]func([]model.Notification)
	tableSubs        map[int]func([]model.Table)
	menuSubs         map[int]func([]model.MenuItem)
	settingsSubs     map[int]func(model.Settings)
	reviewSubs       map[int]func([]model.Review)
	nextSub          int

	// FailWrites makes every write return this error. Tests use it to
	// exercise optimistic rollback.
	FailWrites error

	// DenyNotifications makes notification subscriptions fail with a
	// permission error, simulating an unreadable collection for a role.
	DenyNotifications bool
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orderSubs:    map[int]func([]model.Order){},
		notifSubs:    map[int]func([]model.Notification){},
		tableSubs:    map[int]func([]model.Table){},
		menuSubs:     map[int]func([]model.MenuItem){},
		settingsSubs: map[int]func(model.Settings){},
		reviewSubs:   map[int]func([]model.Review){},
	}
}

// Seed replaces reference data (tables, menu, settings) and pushes
// snapshots. Used by tests and the demo to establish initial state.
func (s *MemoryStore) Seed(tables []model.Table, menu []model.MenuItem, settings model.Settings) {
	s.mu.Lock()
	s.tables = append([]model.Table(nil), tables...)
	s.menu = append([]model.MenuItem(nil), menu...)
	s.settings = settings
	tableHs, menuHs, settingsHs := collect(s.tableSubs), collect(s.menuSubs), collect(s.settingsSubs)
	tablesCopy, menuCopy, st := s.snapshotTables(), s.snapshotMenu(), s.settings
	s.mu.Unlock()

	for _, h := range tableHs {
		h(tablesCopy)
	}
	for _, h := range menuHs {
		h(menuCopy)
	}
	for _, h := range settingsHs {
		h(st)
	}
}

func collect[T any](m map[int]T) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func (s *MemoryStore) snapshotOrders() []model.Order {
	out := make([]model.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

func (s *MemoryStore) snapshotNotifications() []model.Notification {
	out := make([]model.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

func (s *MemoryStore) snapshotTables() []model.Table {
	out := make([]model.Table, len(s.tables))
	copy(out, s.tables)
	return out
}

func (s *MemoryStore) snapshotMenu() []model.MenuItem {
	out := make([]model.MenuItem, len(s.menu))
	copy(out, s.menu)
	return out
}

func (s *MemoryStore) snapshotReviews() []model.Review {
	out := make([]model.Review, len(s.reviews))
	copy(out, s.reviews)
	return out
}

// Archived returns the archived orders. Test hook.
func (s *MemoryStore) Archived() []model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Order, len(s.archive))
	copy(out, s.archive)
	return out
}

// Orders returns the live orders. Test hook.
func (s *MemoryStore) Orders() []model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotOrders()
}

// Notifications returns the live notifications. Test hook.
func (s *MemoryStore) Notifications() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotNotifications()
}

func (s *MemoryStore) pushOrders() {
	hs, snap := collect(s.orderSubs), s.snapshotOrders()
	s.mu.Unlock()
	for _, h := range hs {
		h(snap)
	}
	s.mu.Lock()
}

func (s *MemoryStore) pushNotifications() {
	hs, snap := collect(s.notifSubs), s.snapshotNotifications()
	s.mu.Unlock()
	for _, h := range hs {
		h(snap)
	}
	s.mu.Lock()
}

func (s *MemoryStore) pushReviews() {
	hs, snap := collect(s.reviewSubs), s.snapshotReviews()
	s.mu.Unlock()
	for _, h := range hs {
		h(snap)
	}
	s.mu.Lock()
}

// SubscribeOrders implements Store.
func (s *MemoryStore) SubscribeOrders(ctx context.Context, h func([]model.Order)) (Unsubscribe, error) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.orderSubs[id] = h
	snap := s.snapshotOrders()
	s.mu.Unlock()

	h(snap)
	return s.unsub(func() { delete(s.orderSubs, id) }), nil
}

// SubscribeNotifications implements Store.
func (s *MemoryStore) SubscribeNotifications(ctx context.Context, h func([]model.Notification)) (Unsubscribe, error) {
	s.mu.Lock()
	if s.DenyNotifications {
		s.mu.Unlock()
		return nil, fmt.Errorf("subscribe notifications: %w", ErrPermissionDenied)
	}
	id := s.nextSub
	s.nextSub++
	s.notifSubs[id] = h
	snap := s.snapshotNotifications()
	s.mu.Unlock()

	h(snap)
	return s.unsub(func() { delete(s.notifSubs, id) }), nil
}

// SubscribeTables implements Store.
func (s *MemoryStore) SubscribeTables(ctx context.Context, h func([]model.Table)) (Unsubscribe, error) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.tableSubs[id] = h
	snap := s.snapshotTables()
	s.mu.Unlock()

	h(snap)
	return s.unsub(func() { delete(s.tableSubs, id) }), nil
}

// SubscribeMenu implements Store.
func (s *MemoryStore) SubscribeMenu(ctx context.Context, h func([]model.MenuItem)) (Unsubscribe, error) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.menuSubs[id] = h
	snap := s.snapshotMenu()
	s.mu.Unlock()

	h(snap)
	return s.unsub(func() { delete(s.menuSubs, id) }), nil
}

// SubscribeSettings implements Store.
func (s *MemoryStore) SubscribeSettings(ctx context.Context, h func(model.Settings)) (Unsubscribe, error) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.settingsSubs[id] = h
	st := s.settings
	s.mu.Unlock()

	h(st)
	return s.unsub(func() { delete(s.settingsSubs, id) }), nil
}

// SubscribeReviews implements Store.
func (s *MemoryStore) SubscribeReviews(ctx context.Context, h func([]model.Review)) (Unsubscribe, error) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.reviewSubs[id] = h
	snap := s.snapshotReviews()
	s.mu.Unlock()

	h(snap)
	return s.unsub(func() { delete(s.reviewSubs, id) }), nil
}

func (s *MemoryStore) unsub(remove func()) Unsubscribe {
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			remove()
			s.mu.Unlock()
		})
	}
}

// AddOrder implements Store.
func (s *MemoryStore) AddOrder(ctx context.Context, o model.Order) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return "", s.FailWrites
	}
	o.ID = uuid.Must(uuid.NewV7()).String()
	s.orders = append(s.orders, o)
	s.pushOrders()
	return o.ID, nil
}

// UpdateOrder implements Store. Unconditional patch: concurrent writers
// overwrite each other field-wise, last write wins.
func (s *MemoryStore) UpdateOrder(ctx context.Context, id string, p OrderPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	for i := range s.orders {
		if s.orders[i].ID != id {
			continue
		}
		if p.Status != nil {
			s.orders[i].Status = *p.Status
		}
		if p.TableID != nil {
			s.orders[i].TableID = *p.TableID
		}
		if p.AcceptedAt != nil {
			at := *p.AcceptedAt
			s.orders[i].AcceptedAt = &at
		}
		if p.PaymentStatus != nil {
			s.orders[i].PaymentStatus = *p.PaymentStatus
		}
		s.pushOrders()
		return nil
	}
	return fmt.Errorf("update order %s: %w", id, ErrNotFound)
}

// DeleteOrder implements Store.
func (s *MemoryStore) DeleteOrder(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	for i := range s.orders {
		if s.orders[i].ID == id {
			s.orders = append(s.orders[:i], s.orders[i+1:]...)
			s.pushOrders()
			return nil
		}
	}
	return fmt.Errorf("delete order %s: %w", id, ErrNotFound)
}

// ArchiveOrder implements Store.
func (s *MemoryStore) ArchiveOrder(ctx context.Context, o model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	s.archive = append(s.archive, o)
	return nil
}

// AddNotification implements Store.
func (s *MemoryStore) AddNotification(ctx context.Context, n model.Notification) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return "", s.FailWrites
	}
	id := uuid.Must(uuid.NewV7()).String()
	n.ID = model.RemoteID(id)
	s.notifications = append(s.notifications, n)
	s.pushNotifications()
	return id, nil
}

// UpdateNotification implements Store.
func (s *MemoryStore) UpdateNotification(ctx context.Context, id string, p NotificationPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	for i := range s.notifications {
		if s.notifications[i].ID.Value != id || s.notifications[i].ID.Local() {
			continue
		}
		if p.Status != nil {
			s.notifications[i].Status = *p.Status
		}
		s.pushNotifications()
		return nil
	}
	return fmt.Errorf("update notification %s: %w", id, ErrNotFound)
}

// AddReview implements Store.
func (s *MemoryStore) AddReview(ctx context.Context, r model.Review) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return "", s.FailWrites
	}
	r.ID = uuid.Must(uuid.NewV7()).String()
	s.reviews = append(s.reviews, r)
	s.pushReviews()
	return r.ID, nil
}
