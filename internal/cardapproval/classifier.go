package cardapproval

// Classifier matches requests against a criteria table.
type Classifier struct {
	criteria *Criteria
}

func NewClassifier(criteria *Criteria) *Classifier {
	return &Classifier{criteria: criteria}
}

// Classify picks the last tier in declaration order that both
// candidate-matches the salary and has its certification requirement met.
// A tier candidate-matches when the salary is inside [min, max] or at least
// min. NaN salaries match nothing.
func (c *Classifier) Classify(req CardRequest) ApprovalResult {
	result := ApprovalResult{CardRequest: req}
	s := req.Salary

	for _, tier := range c.criteria.tiers {
		candidate := (tier.MinSalary <= s && tier.MaxSalary >= s) || s >= tier.MinSalary
		if !candidate {
			continue
		}
		if tier.RequiredEmpCert && !req.HasEmpCert {
			continue
		}
		result.CardType = tier.CardType
	}
	return result
}

// ClassifyAll classifies every request, preserving order.
func (c *Classifier) ClassifyAll(requests []CardRequest) []ApprovalResult {
	results := make([]ApprovalResult, len(requests))
	for i, req := range requests {
		results[i] = c.Classify(req)
	}
	return results
}
