package approvecardrequests

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
		Required: []string{"runId", "approvedRequests", "approvedCount"},
		Properties: map[string]validation.Property{
			"runId": {
				Type:        "string",
				Description: "Identifier of the pipeline run",
				MinLength:   intPtr(1),
			},
			"approvedRequests": {
				Type:        "array",
				Description: "Approved requests in file order, each with its cardType",
				Items: &validation.Property{
					Type:     "object",
					Required: []string{"name", "salary", "hasEmpCert", "cardType"},
				},
			},
			"approvedCount": {
				Type:        "integer",
				Description: "Number of approved requests",
				Minimum:     floatPtr(1),
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
