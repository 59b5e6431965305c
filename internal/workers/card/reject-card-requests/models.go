package rejectcardrequests

import "card-approval-workers/internal/cardapproval"

type Input struct {
	FilePath string `json:"filePath"`
}

type Output struct {
	RunID            string                     `json:"runId"`
	RejectedRequests []cardapproval.CardRequest `json:"rejectedRequests"`
	RejectedCount    int                        `json:"rejectedCount"`
}

// ToVariables returns the process variables set when the job completes.
func (o *Output) ToVariables() map[string]interface{} {
	return map[string]interface{}{
		"runId":            o.RunID,
		"rejectedRequests": o.RejectedRequests,
		"rejectedCount":    o.RejectedCount,
	}
}
