package inventory

import (
	"github.com/shopspring/decimal"
)

// Line is one recipe ingredient joined with the stock it draws from.
type Line struct {
	ItemID     string
	Name       string
	Unit       string
	PerServing decimal.Decimal
	Available  decimal.Decimal
	UnitCost   decimal.Decimal
}

// Shortage describes one ingredient that cannot cover a request.
type Shortage struct {
	ItemID    string          `json:"itemid"`
	Name      string          `json:"name"`
	Required  decimal.Decimal `json:"required"`
	Available decimal.Decimal `json:"available"`
	Unit      string          `json:"unit"`
}

// Availability is the outcome of checking a recipe against current stock.
type Availability struct {
	CanMake       bool       `json:"can_make"`
	MaxMultiplier int64      `json:"max_multiplier"`
	Shortages     []Shortage `json:"shortages"`
}

// CheckAvailability computes, for multiplier N, which ingredients are short
// and how many batches current stock could cover. A recipe with no lines can
// always be made and reports a max multiplier of zero.
func CheckAvailability(lines []Line, multiplier int32) Availability {
	res := Availability{Shortages: []Shortage{}}
	m := decimal.NewFromInt32(multiplier)

	first := true
	for _, l := range lines {
		required := l.PerServing.Mul(m)
		if l.Available.LessThan(required) {
			res.Shortages = append(res.Shortages, Shortage{
				ItemID:    l.ItemID,
				Name:      l.Name,
				Required:  required,
				Available: l.Available,
				Unit:      l.Unit,
			})
		}

		if !l.PerServing.IsPositive() {
			continue
		}
		possible := l.Available.Div(l.PerServing).Floor().IntPart()
		if first || possible < res.MaxMultiplier {
			res.MaxMultiplier = possible
			first = false
		}
	}

	res.CanMake = len(res.Shortages) == 0
	return res
}

// RecipeCost returns costPerServing = Σ quantity × unitCost and
// estimatedCost = costPerServing × servingSize.
func RecipeCost(lines []Line, servingSize int32) (perServing, estimated decimal.Decimal) {
	perServing = decimal.Zero
	for _, l := range lines {
		perServing = perServing.Add(l.PerServing.Mul(l.UnitCost))
	}
	perServing = perServing.Round(Scale)
	estimated = perServing.Mul(decimal.NewFromInt32(servingSize)).Round(Scale)
	return perServing, estimated
}
