package models

// Type discriminators carried in every request's Type field.
const (
	TypeIdentityNoDetails = "IdentityNo_Details"
	TypeIdentityNoStatus  = "IdentityNo_Status"
	TypeRegNoDetails      = "Reg_No_Details"
	TypeRegNoStatus       = "Reg_No_Status"
)

// AadhaarTokenRequest exchanges an Aadhaar number for an opaque token.
// The token endpoint accepts a single Type regardless of what the token is
// later used for.
type AadhaarTokenRequest struct {
	Type       string `json:"Type"`
	TokenNo    string `json:"TokenNo"`
	IdentityNo string `json:"IdentityNo"`
}

func NewAadhaarTokenRequest(tokenNo, aadhaar string) AadhaarTokenRequest {
	return AadhaarTokenRequest{
		Type:       TypeIdentityNoDetails,
		TokenNo:    tokenNo,
		IdentityNo: aadhaar,
	}
}

// CreateGrievanceRequest lodges a new grievance.
type CreateGrievanceRequest struct {
	Type                 string `json:"Type"`
	TokenNo              string `json:"TokenNo"`
	IdentityNo           string `json:"IdentityNo"`
	GrievanceType        string `json:"GrievanceType"`
	GrievanceDescription string `json:"GrievanceDescription"`
}

func NewCreateGrievanceRequest(typeField, tokenNo, identityValue, grievanceCode, description string) CreateGrievanceRequest {
	return CreateGrievanceRequest{
		Type:                 typeField,
		TokenNo:              tokenNo,
		IdentityNo:           identityValue,
		GrievanceType:        grievanceCode,
		GrievanceDescription: description,
	}
}

// StatusRequest asks for the grievances lodged against an identity.
type StatusRequest struct {
	Type       string `json:"Type"`
	TokenNo    string `json:"TokenNo"`
	IdentityNo string `json:"IdentityNo"`
}

func NewStatusRequest(typeField, tokenNo, identityValue string) StatusRequest {
	return StatusRequest{
		Type:       typeField,
		TokenNo:    tokenNo,
		IdentityNo: identityValue,
	}
}
