package cardapproval

import (
	"encoding/json"
	"math"
)

// CardRequest is one parsed line of a card request file.
type CardRequest struct {
	Name       string  `json:"name"`
	Salary     float64 `json:"salary"`
	HasEmpCert bool    `json:"hasEmpCert"`
}

// ApprovalResult is a classified request. An empty CardType means no tier
// matched and the request is rejected.
type ApprovalResult struct {
	CardRequest
	CardType string `json:"cardType,omitempty"`
}

// Approved reports whether a tier matched.
func (r ApprovalResult) Approved() bool {
	return r.CardType != ""
}

// wireRequest is the JSON form shared by both types. A NaN salary (possible
// in lenient parsing) is written as null since JSON has no NaN.
type wireRequest struct {
	Name       string   `json:"name"`
	Salary     *float64 `json:"salary"`
	HasEmpCert bool     `json:"hasEmpCert"`
	CardType   string   `json:"cardType,omitempty"`
}

func (r CardRequest) toWire() wireRequest {
	w := wireRequest{Name: r.Name, HasEmpCert: r.HasEmpCert}
	if !math.IsNaN(r.Salary) && !math.IsInf(r.Salary, 0) {
		salary := r.Salary
		w.Salary = &salary
	}
	return w
}

func (r CardRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.toWire())
}

func (r ApprovalResult) MarshalJSON() ([]byte, error) {
	w := r.CardRequest.toWire()
	w.CardType = r.CardType
	return json.Marshal(w)
}
