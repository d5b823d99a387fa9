package main

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

const (
	PaymentCard           = "card"
	PaymentCashOnDelivery = "cash_on_delivery"
	PaymentPayPal         = "paypal"
)

// NormalizePaymentMethod maps anything outside the accepted set, the empty
// string included, to cash on delivery.
func NormalizePaymentMethod(m string) string {
	switch v := strings.ToLower(strings.TrimSpace(m)); v {
	case PaymentCard, PaymentCashOnDelivery, PaymentPayPal:
		return v
	default:
		return PaymentCashOnDelivery
	}
}

type Order struct {
	ID              int64       `json:"order_id"`
	CustomerID      int64       `json:"customer_id"`
	OrderDate       time.Time   `json:"order_date"`
	Status          string      `json:"status"`
	TotalAmount     float64     `json:"total_amount"`
	ShippingAddress string      `json:"shipping_address"`
	PaymentMethod   string      `json:"payment_method"`
	FirstName       string      `json:"first_name,omitempty"`
	LastName        string      `json:"last_name,omitempty"`
	Phone           string      `json:"phone,omitempty"`
	CustomerAddress string      `json:"customer_address,omitempty"`
	City            string      `json:"city,omitempty"`
	Username        string      `json:"username,omitempty"`
	Items           []OrderItem `json:"items"`
}

type OrderItem struct {
	ID         int64   `json:"order_item_id"`
	OrderID    int64   `json:"order_id"`
	BookID     int64   `json:"book_id"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	Title      string  `json:"title"`
	CoverImage string  `json:"cover_image"`
	AuthorName string  `json:"author_name"`
}

type PlaceOrderRequest struct {
	CustomerID      int64      `json:"customer_id"`
	ShippingAddress string     `json:"shipping_address"`
	PaymentMethod   string     `json:"payment_method"`
	Items           []LineItem `json:"items"`
}

// LineItem is one requested (book, quantity, price). The price is taken
// as sent by the client.
type LineItem struct {
	BookID   int64   `json:"book_id"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

func (it LineItem) check(index int) error {
	switch {
	case it.BookID <= 0:
		return ErrInvalidItem{Index: index, BookID: it.BookID, Reason: "book_id must be positive"}
	case it.Quantity <= 0:
		return ErrInvalidItem{Index: index, BookID: it.BookID, Reason: "quantity must be positive"}
	case math.IsNaN(it.Price) || math.IsInf(it.Price, 0):
		return ErrInvalidItem{Index: index, BookID: it.BookID, Reason: "price must be a finite number"}
	case it.Price < 0:
		return ErrInvalidItem{Index: index, BookID: it.BookID, Reason: "price must not be negative"}
	}
	return nil
}

// unitPrice is the price as stored: rounded to cents once, so the order
// total is exactly the sum of its stored lines.
func (it LineItem) unitPrice() decimal.Decimal {
	return decimal.NewFromFloat(it.Price).Round(2)
}

// orderTotal sums quantity*unitPrice over the items. ok is false when the
// sum does not fit a float64.
func orderTotal(items []LineItem) (total float64, ok bool) {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.unitPrice().Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	total = sum.InexactFloat64()
	return total, !math.IsInf(total, 0)
}
