package profile

type UpsertProfileRequest struct {
	FullName        string `json:"full_name" validate:"max=200"`
	PhoneNumber     string `json:"phone_number" validate:"max=50"`
	BusinessName    string `json:"business_name" validate:"max=200"`
	BusinessAddress string `json:"business_address" validate:"max=500"`
}
