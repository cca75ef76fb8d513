package customers

type CreateCustomerRequest struct {
	FullName string  `json:"full_name" validate:"required,max=200"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Status   Status  `json:"status,omitempty" validate:"omitempty,oneof=Prospect Lead Customer"`
}

type UpdateCustomerRequest struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,max=200"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Status   *Status `json:"status,omitempty" validate:"omitempty,oneof=Prospect Lead Customer"`
}

type ListCustomersRequest struct {
	OwnerID string
	Status  *Status
	Search  *string
	Limit   int
	Offset  int
}
