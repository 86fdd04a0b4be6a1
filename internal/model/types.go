// Package model defines the domain records mirrored from the remote store
// and the device-local cart types.
//
// Records are plain values: the engine replaces whole slices of them on every
// remote snapshot, so nothing in this package carries internal state beyond
// its fields. Monetary amounts are snapshotted at order time and never
// recomputed from the live menu.
package model

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusServed    OrderStatus = "served"
	StatusPaid      OrderStatus = "paid"
	StatusRejected  OrderStatus = "rejected"
	StatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPreparing, StatusReady, StatusServed,
		StatusPaid, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are permitted from s.
func (s OrderStatus) Terminal() bool {
	return s == StatusPaid || s == StatusRejected || s == StatusCancelled
}

// Active reports whether the order should appear in active-order views.
// Rejected and Cancelled orders are excluded immediately.
func (s OrderStatus) Active() bool {
	return s != StatusRejected && s != StatusCancelled
}

// PaymentStatus tracks remote-order payments. Dine-in orders stay at
// PaymentNone for their whole life.
type PaymentStatus string

const (
	PaymentNone      PaymentStatus = "none"
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
)

// Valid reports whether p is a known payment status.
func (p PaymentStatus) Valid() bool {
	return p == PaymentNone || p == PaymentPending || p == PaymentConfirmed
}

// Sentinel table ids. Orders created before a table is committed carry one
// of these instead of a real table id.
const (
	// TableUnassigned marks a walk-in order with no table committed yet.
	TableUnassigned = "unassigned"
	// TableRemote marks a remote/delivery order that never gets a table.
	TableRemote = "remote"
)

// RealTable reports whether id names a physical table rather than a sentinel.
func RealTable(id string) bool {
	return id != "" && id != TableUnassigned && id != TableRemote
}

// Role is the local actor's privilege level. The remote store enforces its
// own rules; Role only gates which code paths run on this device.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

// Elevated reports whether the role may drive order transitions and the
// janitor. Customer sessions never run destructive cleanup.
func (r Role) Elevated() bool {
	return r == RoleStaff || r == RoleAdmin
}

// OrderItem is one line of an order. Name and UnitPrice are snapshotted from
// the menu when the order is created and are immune to later menu edits.
type OrderItem struct {
	ItemRef   string  `json:"item_ref"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Order is the kitchen-owned record of a placed order. Mutated only through
// the lifecycle state machine; deleted or archived only by the janitor.
type Order struct {
	ID            string        `json:"id"`
	TableID       string        `json:"table_id"`
	SessionID     string        `json:"session_id"`
	Items         []OrderItem   `json:"items"`
	Status        OrderStatus   `json:"status"`
	TotalAmount   float64       `json:"total_amount"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	CreatedAt     time.Time     `json:"created_at"`
	// AcceptedAt is set exactly once, when the order is first handled by
	// staff and only once it has a real table. Nil until then.
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
}

// ItemTotal returns the sum of quantity times unit price over all items.
// Order.TotalAmount must equal this at creation and is never recomputed.
func (o Order) ItemTotal() float64 {
	var sum float64
	for _, it := range o.Items {
		sum += float64(it.Quantity) * it.UnitPrice
	}
	return sum
}

// NotificationType distinguishes customer signals.
type NotificationType string

const (
	NotifyCallStaff   NotificationType = "call_staff"
	NotifyBillRequest NotificationType = "bill_request"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	return t == NotifyCallStaff || t == NotifyBillRequest
}

// NotificationStatus is pending or resolved. Notifications are never
// physically deleted; resolution flips the status.
type NotificationStatus string

const (
	NotifyPending  NotificationStatus = "pending"
	NotifyResolved NotificationStatus = "resolved"
)

// Notification is a customer-raised signal. At most one pending notification
// per (SessionID, Type) pair may exist at any time; that pair is the
// idempotency key the dedup gate enforces.
type Notification struct {
	ID        RecordID           `json:"id"`
	TableID   string             `json:"table_id"`
	SessionID string             `json:"session_id"`
	Type      NotificationType   `json:"type"`
	Status    NotificationStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
}

// Table is passive reference data.
type Table struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MenuItem is read-only menu data consumed for cart pricing snapshots.
type MenuItem struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Price     float64 `json:"price"`
	Available bool    `json:"available"`
}

// Settings is venue configuration mirrored from the remote store, cached
// on-device for offline resilience.
type Settings struct {
	VenueLat        float64 `json:"venue_lat"`
	VenueLng        float64 `json:"venue_lng"`
	GeofenceRadiusM float64 `json:"geofence_radius_m"`
	ContactPhone    string  `json:"contact_phone"`
}

// Review is customer feedback, tagged with the session like every other
// write from the device.
type Review struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// CartLine is a device-local cart entry. Name and Price are snapshotted from
// the menu when the line is added. The cart never leaves the device; placing
// an order converts it into OrderItems and clears it.
type CartLine struct {
	ItemRef  string  `json:"item_ref"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}
