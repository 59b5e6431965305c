package approvecardrequests

import "card-approval-workers/internal/cardapproval"

type Input struct {
	FilePath string `json:"filePath"`
}

type Output struct {
	RunID            string                        `json:"runId"`
	ApprovedRequests []cardapproval.ApprovalResult `json:"approvedRequests"`
	ApprovedCount    int                           `json:"approvedCount"`
}

// ToVariables returns the process variables set when the job completes.
func (o *Output) ToVariables() map[string]interface{} {
	return map[string]interface{}{
		"runId":            o.RunID,
		"approvedRequests": o.ApprovedRequests,
		"approvedCount":    o.ApprovedCount,
	}
}
