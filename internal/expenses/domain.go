package expenses

import (
	"errors"
	"time"
)

// Expense is an operating cost. Expenses are immutable once recorded.
type Expense struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"-"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Category    string    `json:"category,omitempty"`
	Amount      float64   `json:"amount"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateExpenseInput describes a new expense. A nil Date means now.
type CreateExpenseInput struct {
	Date        *time.Time `json:"date,omitempty"`
	Description string     `json:"description" validate:"required,max=500"`
	Category    string     `json:"category" validate:"omitempty,max=100"`
	Amount      float64    `json:"amount" validate:"gte=0"`
}

var (
	ErrInvalidAmount = errors.New("expenses: amount must be a finite value >= 0")
	ErrInvalidInput  = errors.New("expenses: invalid input")
)
