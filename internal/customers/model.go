package customers

import "time"

// Status is the lifecycle stage of a customer.
type Status string

const (
	StatusProspect Status = "Prospect"
	StatusLead     Status = "Lead"
	StatusCustomer Status = "Customer"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusProspect, StatusLead, StatusCustomer:
		return true
	}
	return false
}

type Customer struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"-"`
	FullName  string    `json:"full_name"`
	Phone     *string   `json:"phone,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Purchase is one sale row attributed to a customer.
type Purchase struct {
	ID           string    `json:"id"`
	InvoiceID    string    `json:"invoice_id,omitempty"`
	Date         time.Time `json:"date"`
	ProductName  string    `json:"product_name"`
	SerialNumber string    `json:"serial_number,omitempty"`
	Quantity     int       `json:"quantity"`
	SalesPrice   float64   `json:"sales_price"`
	Status       string    `json:"status"`
	Outstanding  float64   `json:"outstanding"`
	CreatedAt    time.Time `json:"created_at"`
}

// Stats aggregates every sale of one customer. History holds the latest
// rows only; the totals cover all of them.
type Stats struct {
	SalesCount    int        `json:"sales_count"`
	LifetimeValue float64    `json:"lifetime_value"`
	Outstanding   float64    `json:"outstanding"`
	History       []Purchase `json:"history"`
}

// Detail is the customer page: the record plus its purchase stats.
type Detail struct {
	Customer
	Stats Stats `json:"stats"`
}
