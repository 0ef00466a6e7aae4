package domain

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusFulfilled Status = "fulfilled"
	StatusCancelled Status = "cancelled"
)

// Terminal statuses a vendor may set on a pending order.
func (s Status) VendorSettable() bool {
	return s == StatusFulfilled || s == StatusCancelled
}

// OrderItem snapshots a cart line at order time: quantity and the unit price
// resolved from the catalog at the moment of placement.
type OrderItem struct {
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
}

// Order is an immutable purchase record. Only Status changes after creation,
// and only pending -> fulfilled|cancelled.
type Order struct {
	ID              string
	UserEmail       string
	Items           []OrderItem
	TotalCents      int64
	Status          Status
	ShippingAddress string
	CreatedAt       time.Time
}
