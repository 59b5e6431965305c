package rejectcardrequests

import "card-approval-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"filePath"},
		Properties: map[string]validation.Property{
			"filePath": {
				Type:        "string",
				Description: "Path of the card request file, relative to the data directory or absolute",
				MinLength:   intPtr(1),
				MaxLength:   intPtr(4096),
			},
		},
		AdditionalProperties: true,
	}
}

func GetOutputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"runId", "rejectedRequests", "rejectedCount"},
		Properties: map[string]validation.Property{
			"runId": {
				Type:      "string",
				MinLength: intPtr(1),
			},
			"rejectedRequests": {
				Type:        "array",
				Description: "Requests that matched no card tier, in file order",
				Items: &validation.Property{
					Type:     "object",
					Required: []string{"name", "salary", "hasEmpCert"},
				},
			},
			"rejectedCount": {
				Type:    "integer",
				Minimum: floatPtr(0),
			},
		},
		AdditionalProperties: false,
	}
}

func intPtr(i int) *int {
	return &i
}

func floatPtr(f float64) *float64 {
	return &f
}
