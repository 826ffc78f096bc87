package client

import (
	"context"
	"encoding/json"

	"pmkisan/internal/grievance/models"
)

// Upstream is the grievance service as seen by the rest of the process. It
// is satisfied by *Client and by Disabled.
type Upstream interface {
	Token() string
	AadhaarToken(ctx context.Context, aadhaar string) (*models.AadhaarTokenResponse, error)
	LodgeGrievance(ctx context.Context, req models.CreateGrievanceRequest) (json.RawMessage, error)
	StatusCheck(ctx context.Context, req models.StatusRequest) (json.RawMessage, error)
}

var (
	_ Upstream = (*Client)(nil)
	_ Upstream = Disabled{}
)

// Disabled stands in for a Client that could not be configured. Every call
// fails with the configuration error so operations surface it per request.
type Disabled struct {
	Err error
}

func (d Disabled) Token() string { return "" }

func (d Disabled) AadhaarToken(context.Context, string) (*models.AadhaarTokenResponse, error) {
	return nil, d.Err
}

func (d Disabled) LodgeGrievance(context.Context, models.CreateGrievanceRequest) (json.RawMessage, error) {
	return nil, d.Err
}

func (d Disabled) StatusCheck(context.Context, models.StatusRequest) (json.RawMessage, error) {
	return nil, d.Err
}
