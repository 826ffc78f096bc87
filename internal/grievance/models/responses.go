package models

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrMissingResponce is returned when a payload that requires the upstream
// success flag does not carry it.
var ErrMissingResponce = errors.New("missing required field Responce")

// Flag is the upstream success indicator. The service sends the strings
// "True"/"False" (field misspelled "Responce" on the wire); comparison is
// case-insensitive and nothing else counts as true.
type Flag string

func (f Flag) True() bool {
	return strings.ToLower(string(f)) == "true"
}

// AadhaarTokenResponse is the decrypted answer of the token exchange.
type AadhaarTokenResponse struct {
	Responce     Flag   `json:"Responce"`
	AadhaarToken string `json:"AadhaarToken,omitempty"`
	Message      string `json:"message,omitempty"`
}

func (r *AadhaarTokenResponse) UnmarshalJSON(b []byte) error {
	type plain AadhaarTokenResponse
	var probe struct {
		plain
		Responce *Flag `json:"Responce"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return err
	}
	if probe.Responce == nil {
		return ErrMissingResponce
	}
	*r = AadhaarTokenResponse(probe.plain)
	r.Responce = *probe.Responce
	return nil
}

func (r AadhaarTokenResponse) OK() bool {
	return r.Responce.True()
}

// GenericMessageResponse is the decrypted answer of a grievance submission.
// An absent Responce counts as success.
type GenericMessageResponse struct {
	Responce *Flag  `json:"Responce,omitempty"`
	Message  string `json:"message,omitempty"`
}

func (r GenericMessageResponse) OK() bool {
	return r.Responce == nil || r.Responce.True()
}

func (r GenericMessageResponse) String() string {
	if r.Message != "" {
		return r.Message
	}
	if r.OK() {
		return "Success"
	}
	return "Failed"
}

// GrievanceStatusDetail is one grievance record.
type GrievanceStatusDetail struct {
	RegNo                string `json:"Reg_No,omitempty"`
	GrievanceDate        string `json:"GrievanceDate,omitempty"`
	GrievanceDescription string `json:"GrievanceDescription,omitempty"`
	OfficerReply         string `json:"OfficerReply,omitempty"`
	OfficeReplyDate      string `json:"OfficeReplyDate,omitempty"`
}

func (d GrievanceStatusDetail) String() string {
	var lines []string
	if d.RegNo != "" {
		lines = append(lines, "Registration Number: "+d.RegNo)
	}
	lines = append(lines, "Grievance Details:")
	if d.GrievanceDate != "" {
		lines = append(lines, "  Date: "+d.GrievanceDate)
	}
	if d.GrievanceDescription != "" {
		lines = append(lines, "  Description: "+d.GrievanceDescription)
	}
	lines = append(lines, "Officer Response:")
	if d.OfficerReply != "" {
		lines = append(lines, "  Reply: "+d.OfficerReply)
		if d.OfficeReplyDate != "" {
			lines = append(lines, "  Reply Date: "+d.OfficeReplyDate)
		}
	} else {
		lines = append(lines, "  Reply: Not yet responded")
	}
	return strings.Join(lines, "\n")
}

// GrievanceStatusPayload is the decrypted answer of a status check.
type GrievanceStatusPayload struct {
	Responce Flag                    `json:"Responce"`
	Message  string                  `json:"message,omitempty"`
	Details  []GrievanceStatusDetail `json:"details,omitempty"`
}

func (p *GrievanceStatusPayload) UnmarshalJSON(b []byte) error {
	type plain GrievanceStatusPayload
	var probe struct {
		plain
		Responce *Flag `json:"Responce"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return err
	}
	if probe.Responce == nil {
		return ErrMissingResponce
	}
	*p = GrievanceStatusPayload(probe.plain)
	p.Responce = *probe.Responce
	return nil
}

func (p GrievanceStatusPayload) OK() bool {
	return p.Responce.True()
}

// String renders the payload for the user. Only the first detail record is
// shown, in the order the service returned them.
func (p GrievanceStatusPayload) String() string {
	if !p.OK() {
		if p.Message != "" {
			return p.Message
		}
		return "No grievances found for this registration number."
	}
	if len(p.Details) == 0 {
		return "No grievance details available."
	}
	return p.Details[0].String()
}
