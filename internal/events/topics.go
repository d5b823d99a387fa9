package events

import "time"

const (
	RKOrderPlaced = "order.placed"

	RKBookCreated = "catalog.book.created"
	RKBookUpdated = "catalog.book.updated"
	RKBookDeleted = "catalog.book.deleted"

	RKUserCreated = "user.created"
	RKUserUpdated = "user.updated"
	RKUserDeleted = "user.deleted"

	RKReviewCreated = "review.created"

	RKLowStock  = "inventory.low_stock"
	RKRestocked = "inventory.restocked"
)

type OrderPlaced struct {
	OrderID       int64             `json:"order_id"`
	CustomerID    int64             `json:"customer_id"`
	TotalAmount   float64           `json:"total_amount"`
	PaymentMethod string            `json:"payment_method"`
	PlacedAt      time.Time         `json:"placed_at"`
	Items         []OrderPlacedItem `json:"items"`
}

type OrderPlacedItem struct {
	BookID   int64   `json:"book_id"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type BookChanged struct {
	BookID int64   `json:"book_id"`
	Title  string  `json:"title,omitempty"`
	Price  float64 `json:"price,omitempty"`
	Stock  int     `json:"stock,omitempty"`
}

type UserChanged struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
}

type ReviewCreated struct {
	ReviewID int64 `json:"review_id"`
	BookID   int64 `json:"book_id"`
	Rating   int   `json:"rating"`
}

type StockLevel struct {
	BookID    int64  `json:"book_id"`
	Title     string `json:"title,omitempty"`
	Stock     int    `json:"stock"`
	Threshold int    `json:"threshold,omitempty"`
	OrderID   int64  `json:"order_id,omitempty"`
}
