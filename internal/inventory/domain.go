package inventory

import (
	"errors"
	"time"
)

// Item is a stocked product owned by one principal.
type Item struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"-"`
	ProductName string    `json:"product_name"`
	SKU         string    `json:"sku,omitempty"`
	IMEI        string    `json:"imei,omitempty"`
	Quantity    int       `json:"quantity"`
	CostPrice   float64   `json:"cost_price"`
	SalesPrice  float64   `json:"sales_price"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AdjustMode is the direction of a manual stock adjustment.
type AdjustMode string

const (
	// AdjustAdd increases stock.
	AdjustAdd AdjustMode = "add"
	// AdjustRemove decreases stock.
	AdjustRemove AdjustMode = "remove"
)

// CreateItemInput describes a new inventory item.
type CreateItemInput struct {
	ProductName string  `json:"product_name" validate:"required,max=200"`
	SKU         string  `json:"sku" validate:"omitempty,max=100"`
	IMEI        string  `json:"imei" validate:"omitempty,max=50"`
	Quantity    int     `json:"quantity" validate:"gte=0"`
	CostPrice   float64 `json:"cost_price" validate:"gte=0"`
	SalesPrice  float64 `json:"sales_price" validate:"gte=0"`
}

// UpdateItemInput carries a partial update; nil fields are left unchanged.
type UpdateItemInput struct {
	ProductName *string  `json:"product_name,omitempty" validate:"omitempty,max=200"`
	SKU         *string  `json:"sku,omitempty" validate:"omitempty,max=100"`
	IMEI        *string  `json:"imei,omitempty" validate:"omitempty,max=50"`
	Quantity    *int     `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	CostPrice   *float64 `json:"cost_price,omitempty" validate:"omitempty,gte=0"`
	SalesPrice  *float64 `json:"sales_price,omitempty" validate:"omitempty,gte=0"`
}

// AdjustmentInput describes request to adjust stock.
type AdjustmentInput struct {
	Mode     AdjustMode `json:"mode" validate:"required,oneof=add remove"`
	Quantity int        `json:"quantity" validate:"required,gt=0"`
	Note     string     `json:"note" validate:"omitempty,max=500"`
}

// ErrNegativeStock triggered when movement would result negative qty.
var ErrNegativeStock = errors.New("inventory: negative stock not allowed")

// ErrInvalidQuantity indicates invalid qty.
var ErrInvalidQuantity = errors.New("inventory: quantity must be positive")

// ErrInvalidPrice indicates invalid cost or sales price.
var ErrInvalidPrice = errors.New("inventory: prices must be >= 0")

// ErrInvalidInput wraps request validation failures.
var ErrInvalidInput = errors.New("inventory: invalid input")

// ErrItemNotFound indicates the item does not exist for this owner.
var ErrItemNotFound = errors.New("inventory: item not found")
