package tools

const identityNoDescription = "PM-KISAN registration number (11-character alphanumeric string) " +
	"or 12-digit Aadhaar number registered with PM-KISAN."

func submitGrievanceSchema(grievanceTypes []string) map[string]any {
	grievanceType := map[string]any{
		"type":        "string",
		"description": "Human-friendly grievance label.",
	}
	if len(grievanceTypes) > 0 {
		grievanceType["enum"] = grievanceTypes
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"identity_no": map[string]any{
				"type":        "string",
				"description": identityNoDescription,
			},
			"grievance_description": map[string]any{
				"type":        "string",
				"description": "Description of the grievance in plain text, at least 10 characters.",
			},
			"grievance_type": grievanceType,
		},
		"required": []string{"identity_no", "grievance_description", "grievance_type"},
	}
}

func grievanceStatusSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"identity_no": map[string]any{
				"type":        "string",
				"description": identityNoDescription,
			},
		},
		"required": []string{"identity_no"},
	}
}
