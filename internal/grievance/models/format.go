package models

import "encoding/json"

// FormatSubmission renders the decrypted answer of a grievance submission.
// Payloads that do not match GenericMessageResponse fall back to any string
// "message" they carry, then to a generic confirmation.
func FormatSubmission(raw json.RawMessage) string {
	var resp GenericMessageResponse
	if err := json.Unmarshal(raw, &resp); err == nil {
		return resp.String()
	}
	if msg := looseMessage(raw); msg != "" {
		return msg
	}
	return "Grievance submitted successfully."
}

// FormatStatus renders the decrypted answer of a status check. Payloads that
// do not match GrievanceStatusPayload fall back to any string "message" they
// carry, then to a not-found notice.
func FormatStatus(raw json.RawMessage) string {
	var status GrievanceStatusPayload
	if err := json.Unmarshal(raw, &status); err == nil {
		return status.String()
	}
	if msg := looseMessage(raw); msg != "" {
		return msg
	}
	return "No grievance records found."
}

func looseMessage(raw json.RawMessage) string {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	msg, _ := obj["message"].(string)
	return msg
}
