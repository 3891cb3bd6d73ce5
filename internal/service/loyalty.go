package service

import "github.com/shopspring/decimal"

// Tramos de puntos por orden según el total (Playbox).
var loyaltyTiers = []struct {
	below  decimal.Decimal
	points decimal.Decimal
}{
	{decimal.NewFromInt(1000), decimal.RequireFromString("0.1")},
	{decimal.NewFromInt(10000), decimal.RequireFromString("0.5")},
	{decimal.NewFromInt(50000), decimal.NewFromInt(1)},
	{decimal.NewFromInt(100000), decimal.RequireFromString("1.5")},
	{decimal.NewFromInt(200000), decimal.NewFromInt(2)},
	{decimal.NewFromInt(300000), decimal.RequireFromString("2.5")},
}

// LoyaltyPoints puntos que otorga una orden. Desde 300000 no suma.
func LoyaltyPoints(total decimal.Decimal) float64 {
	for _, t := range loyaltyTiers {
		if total.LessThan(t.below) {
			return t.points.InexactFloat64()
		}
	}
	return 0
}
