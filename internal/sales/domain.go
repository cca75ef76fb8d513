package sales

import (
	"errors"
	"fmt"
	"time"
)

// ============================================================================
// PAYMENT STATUS
// ============================================================================

// PaymentStatus tracks how much of a sale has been settled.
type PaymentStatus string

const (
	StatusPaid        PaymentStatus = "Paid"
	StatusPartPayment PaymentStatus = "Part Payment"
	StatusUnpaid      PaymentStatus = "Unpaid"
)

// Valid reports whether s is a known status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusPaid, StatusPartPayment, StatusUnpaid:
		return true
	}
	return false
}

// ============================================================================
// RECORDS
// ============================================================================

// SaleRecord is one sold product line. Prices are per unit.
// Invariants: Paid => Outstanding == 0; Unpaid => Outstanding == SalesPrice*Quantity.
type SaleRecord struct {
	ID           string        `json:"id"`
	OwnerID      string        `json:"-"`
	InvoiceID    string        `json:"invoice_id,omitempty"`
	Date         time.Time     `json:"date"`
	CustomerID   string        `json:"customer_id,omitempty"`
	CustomerName string        `json:"customer"`
	ProductID    string        `json:"product_id,omitempty"`
	ProductName  string        `json:"product"`
	SerialNumber string        `json:"serial_number,omitempty"`
	Quantity     int           `json:"quantity"`
	CostPrice    float64       `json:"cost_price"`
	SalesPrice   float64       `json:"sales_price"`
	Status       PaymentStatus `json:"status"`
	Outstanding  float64       `json:"outstanding"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Invoice aggregates the line items sold in one checkout.
type Invoice struct {
	ID            string        `json:"id"`
	OwnerID       string        `json:"-"`
	InvoiceNumber string        `json:"invoice_number"`
	CustomerID    string        `json:"customer_id,omitempty"`
	CustomerName  string        `json:"customer_name"`
	Items         []LineItem    `json:"items"`
	TotalAmount   float64       `json:"total_amount"`
	TotalProfit   float64       `json:"total_profit"`
	Status        PaymentStatus `json:"status"`
	Outstanding   float64       `json:"outstanding"`
	Date          time.Time     `json:"date"`
	CreatedAt     time.Time     `json:"created_at"`
}

// LineItem captures prices at the time of sale.
type LineItem struct {
	ID           string  `json:"id"`
	InvoiceID    string  `json:"invoice_id"`
	Position     int     `json:"position"`
	ProductID    string  `json:"product_id"`
	ProductName  string  `json:"product_name"`
	Quantity     int     `json:"quantity"`
	CostPrice    float64 `json:"cost_price"`
	SalesPrice   float64 `json:"sales_price"`
	SerialNumber string  `json:"serial_number,omitempty"`
}

// ============================================================================
// CART AND EFFECTS
// ============================================================================

// Cart is the checkout input handed to the Processor.
type Cart struct {
	CustomerID   string
	CustomerName string
	Date         time.Time
	Status       PaymentStatus
	// Outstanding is only read for StatusPartPayment.
	Outstanding float64
	Lines       []CartLine
}

// CartLine requests Quantity units of ProductID.
type CartLine struct {
	ProductID          string
	Quantity           int
	SalesPriceOverride *float64
	SerialNumber       string
}

// StockDecrement removes Quantity units of ProductID. One per product.
type StockDecrement struct {
	ProductID string
	Quantity  int
}

// Effects is the ordered set of writes a checkout needs. Every effect is
// keyed by invoice, product or customer id so re-applying is harmless.
type Effects struct {
	Invoice         Invoice
	LineItems       []LineItem
	StockDecrements []StockDecrement
	// PromoteCustomer is the customer to move to status Customer, or "".
	PromoteCustomer string
	// Sales are the per-line sale rows feeding reports and the dashboard.
	Sales []SaleRecord
}

// ============================================================================
// ERRORS
// ============================================================================

var (
	ErrValidation          = errors.New("sales: validation failed")
	ErrConcurrencyConflict = errors.New("sales: concurrency conflict")
	ErrNotFound            = errors.New("sales: not found")
)

// Validation reasons.
const (
	ReasonEmptyCart          = "empty cart"
	ReasonInvalidStatus      = "invalid status"
	ReasonUnknownProduct     = "unknown product"
	ReasonUnknownCustomer    = "unknown customer"
	ReasonInvalidQuantity    = "invalid quantity"
	ReasonInvalidPrice       = "invalid price"
	ReasonInsufficientStock  = "insufficient stock"
	ReasonInvalidOutstanding = "invalid outstanding"
	ReasonInvalidInput       = "invalid input"
)

// ValidationError is returned before any effect is produced. It matches ErrValidation.
type ValidationError struct {
	Reason     string
	ProductRef string
}

func (e *ValidationError) Error() string {
	if e.ProductRef != "" {
		return fmt.Sprintf("sales: %s (product %s)", e.Reason, e.ProductRef)
	}
	return "sales: " + e.Reason
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConcurrencyConflictError means stock changed between snapshot and apply.
// Callers should re-snapshot and retry. It matches ErrConcurrencyConflict.
type ConcurrencyConflictError struct {
	ProductRef string
}

func (e *ConcurrencyConflictError) Error() string {
	if e.ProductRef == "" {
		return "sales: stock changed concurrently"
	}
	return fmt.Sprintf("sales: stock for product %s changed concurrently", e.ProductRef)
}

func (e *ConcurrencyConflictError) Is(target error) bool { return target == ErrConcurrencyConflict }

// ============================================================================
// REQUESTS
// ============================================================================

// CheckoutRequest is the multi-line checkout payload.
type CheckoutRequest struct {
	CustomerID  string         `json:"customer_id" validate:"omitempty,uuid"`
	Date        *time.Time     `json:"date,omitempty"`
	Status      PaymentStatus  `json:"status" validate:"required"`
	Outstanding float64        `json:"outstanding"`
	Lines       []CheckoutLine `json:"lines" validate:"dive"`
}

type CheckoutLine struct {
	ProductID    string   `json:"product_id" validate:"required"`
	Quantity     int      `json:"quantity"`
	SalesPrice   *float64 `json:"sales_price,omitempty"`
	SerialNumber string   `json:"serial_number,omitempty" validate:"omitempty,max=100"`
}

// CreateSaleRequest records a single sale without touching stock.
type CreateSaleRequest struct {
	CustomerID   string        `json:"customer_id" validate:"omitempty,uuid"`
	CustomerName string        `json:"customer" validate:"omitempty,max=200"`
	ProductName  string        `json:"product" validate:"required,max=200"`
	SerialNumber string        `json:"serial_number,omitempty" validate:"omitempty,max=100"`
	Quantity     int           `json:"quantity" validate:"gte=0"`
	CostPrice    float64       `json:"cost_price" validate:"gte=0"`
	SalesPrice   float64       `json:"sales_price" validate:"gte=0"`
	Status       PaymentStatus `json:"status" validate:"required"`
	Outstanding  float64       `json:"outstanding"`
	Date         *time.Time    `json:"date,omitempty"`
}

// UpdateSaleRequest changes status and, for part payments, the outstanding balance.
type UpdateSaleRequest struct {
	Status      *PaymentStatus `json:"status,omitempty"`
	Outstanding *float64       `json:"outstanding,omitempty"`
}

// Summary backs the dashboard.
type Summary struct {
	BusinessName string       `json:"business_name"`
	TotalSales   float64      `json:"total_sales"`
	TotalProfit  float64      `json:"total_profit"`
	Outstanding  float64      `json:"outstanding"`
	UnpaidCount  int          `json:"unpaid_count"`
	Recent       []SaleRecord `json:"recent_sales"`
}
