package domain

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type OrderPlaced struct {
	OrderID    string      `json:"order_id"`
	UserEmail  string      `json:"user_email"`
	TotalCents int64       `json:"total_cents"`
	Items      []OrderItem `json:"items"`
}

type OrderStatusChanged struct {
	OrderID   string `json:"order_id"`
	Status    Status `json:"status"`
	ChangedBy string `json:"changed_by"`
}
