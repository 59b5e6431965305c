package cardapproval

import (
	"fmt"
	"math"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"

	"card-approval-workers/internal/common/config"
	"card-approval-workers/internal/common/errors"
)

// CriterionTier is one row of the criteria table.
type CriterionTier struct {
	CardType        string  `json:"cardType"`
	MinSalary       float64 `json:"minSalary"`
	MaxSalary       float64 `json:"maxSalary"`
	RequiredEmpCert bool    `json:"requiredEmpCert"`
}

func (t CriterionTier) Validate() error {
	if math.IsNaN(t.MinSalary) || math.IsNaN(t.MaxSalary) {
		return fmt.Errorf("salary bounds must be numbers")
	}
	return ozzo.ValidateStruct(&t,
		ozzo.Field(&t.CardType, ozzo.Required),
		ozzo.Field(&t.MaxSalary, ozzo.By(func(interface{}) error {
			if t.MaxSalary < t.MinSalary {
				return fmt.Errorf("must be no less than %v", t.MinSalary)
			}
			return nil
		})),
	)
}

// Criteria is an ordered, read-only tier table. Declaration order decides
// ties during classification.
type Criteria struct {
	tiers []CriterionTier
}

// NewCriteria copies tiers into a new table after validating every row.
func NewCriteria(tiers []CriterionTier) (*Criteria, error) {
	if len(tiers) == 0 {
		return nil, errors.NewCriteriaInvalidError("criteria table has no tiers")
	}
	for i, tier := range tiers {
		if err := tier.Validate(); err != nil {
			return nil, errors.NewCriteriaInvalidError(fmt.Sprintf("tier %d (%q): %v", i, tier.CardType, err))
		}
	}

	copied := make([]CriterionTier, len(tiers))
	copy(copied, tiers)
	return &Criteria{tiers: copied}, nil
}

// DefaultCriteria returns the built-in silver/gold/platinum/diamond table.
func DefaultCriteria() *Criteria {
	return &Criteria{tiers: []CriterionTier{
		{CardType: "silver", MinSalary: 15000, MaxSalary: 29999, RequiredEmpCert: false},
		{CardType: "gold", MinSalary: 30000, MaxSalary: 39999, RequiredEmpCert: true},
		{CardType: "platinum", MinSalary: 40000, MaxSalary: 59999, RequiredEmpCert: true},
		{CardType: "diamond", MinSalary: 60000, MaxSalary: 1e9, RequiredEmpCert: true},
	}}
}

// CriteriaFromConfig builds the table from the approval.tiers section. An
// empty section yields the default table.
func CriteriaFromConfig(tiers []config.TierConfig) (*Criteria, error) {
	if len(tiers) == 0 {
		return DefaultCriteria(), nil
	}
	converted := make([]CriterionTier, len(tiers))
	for i, t := range tiers {
		converted[i] = CriterionTier{
			CardType:        t.CardType,
			MinSalary:       t.MinSalary,
			MaxSalary:       t.MaxSalary,
			RequiredEmpCert: t.RequiredEmpCert,
		}
	}
	return NewCriteria(converted)
}

// Tiers returns a copy of the table in declaration order.
func (c *Criteria) Tiers() []CriterionTier {
	out := make([]CriterionTier, len(c.tiers))
	copy(out, c.tiers)
	return out
}

func (c *Criteria) Len() int {
	return len(c.tiers)
}
