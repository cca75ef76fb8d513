package profile

import "time"

// Profile describes the business behind an account. There is at most one
// per user.
type Profile struct {
	UserID          string    `json:"-"`
	FullName        string    `json:"full_name"`
	PhoneNumber     string    `json:"phone_number"`
	BusinessName    string    `json:"business_name"`
	BusinessAddress string    `json:"business_address"`
	Complete        bool      `json:"complete"`
	UpdatedAt       time.Time `json:"updated_at,omitzero"`
}

// complete reports whether the fields needed on receipts are filled in.
func (p Profile) complete() bool {
	return p.FullName != "" && p.PhoneNumber != "" && p.BusinessName != ""
}
