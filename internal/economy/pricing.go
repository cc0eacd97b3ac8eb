package economy

import "github.com/talgya/crownworks/internal/world"

// PriceTuning bounds and paces the repricing pass.
type PriceTuning struct {
	ClampMin       float64 // × base, lower bound for ratio and price
	ClampMax       float64 // × base, upper bound
	Step           float64 // fraction of the gap to target closed per pass
	ReferenceStock float64 // scarcity baseline when the book is empty
}

// reprice moves each resource's current price one bounded step toward
// base × clamp(demand/supply). Demand and supply come from remaining
// order-book depth; with an empty book the ratio falls back to relative
// scarcity of the market's own stock against the reference quantity.
// Prices are sticky, not spiky: one pass closes only Step of the gap.
func (m *Market) reprice(t PriceTuning) {
	demand := make(map[world.ResourceKind]float64)
	supply := make(map[world.ResourceKind]float64)
	for _, o := range m.Buys {
		demand[o.Kind] += float64(o.Quantity)
	}
	for _, o := range m.Sells {
		supply[o.Kind] += float64(o.Quantity)
	}

	for kind, base := range m.BasePrices {
		d, s := demand[kind], supply[kind]

		var ratio float64
		switch {
		case d == 0 && s == 0:
			stock := float64(m.Stock[kind])
			if stock < 1 {
				stock = 1
			}
			ratio = t.ReferenceStock / stock
		case s == 0:
			ratio = t.ClampMax
		default:
			ratio = d / s
		}
		if ratio < t.ClampMin {
			ratio = t.ClampMin
		}
		if ratio > t.ClampMax {
			ratio = t.ClampMax
		}

		target := base * ratio
		price := m.Price(kind)
		price += (target - price) * t.Step

		if floor := base * t.ClampMin; price < floor {
			price = floor
		}
		if ceil := base * t.ClampMax; price > ceil {
			price = ceil
		}
		m.Prices[kind] = price
	}
}
