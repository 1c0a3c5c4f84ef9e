package catalog

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/flicky/premium-store/internal/model"
)

// Pricing is the display breakdown for one unit of a product at a duration.
type Pricing struct {
	BasePrice       decimal.Decimal `json:"basePrice"`
	DiscountPercent int             `json:"discountPercent"`
	DiscountedPrice decimal.Decimal `json:"discountedPrice"`
	Savings         decimal.Decimal `json:"savings"`
}

var hundred = decimal.NewFromInt(100)

// DurationDiscount returns the percentage off for a subscription length.
func DurationDiscount(months int) int {
	switch months {
	case 3:
		return 5
	case 6:
		return 10
	case 12:
		return 15
	default:
		return 0
	}
}

// GetPricing computes price × months with the duration discount applied.
// Lifetime products always cost their flat unit price.
func GetPricing(p *model.Product, months int) Pricing {
	if IsLifetime(p) {
		return Pricing{BasePrice: p.Price, DiscountedPrice: p.Price, Savings: decimal.Zero}
	}

	base := p.Price.Mul(decimal.NewFromInt(int64(months)))
	pct := DurationDiscount(months)
	discounted := base.Mul(hundred.Sub(decimal.NewFromInt(int64(pct)))).Div(hundred)
	return Pricing{
		BasePrice:       base,
		DiscountPercent: pct,
		DiscountedPrice: discounted,
		Savings:         base.Sub(discounted),
	}
}

func IsLifetime(p *model.Product) bool {
	return p.Category == model.CategoryLifetime
}

// LifetimeMonths is the only duration a lifetime product is sold with.
const LifetimeMonths = 1

var ErrLifetimeDuration = errors.New("lifetime products are offered for 1 month only")

// CheckDurations rejects duration lists a product cannot be priced with.
func CheckDurations(p *model.Product) error {
	if IsLifetime(p) && (len(p.AvailableMonths) != 1 || p.AvailableMonths[0] != LifetimeMonths) {
		return ErrLifetimeDuration
	}
	return nil
}

func AllowsMonths(p *model.Product, months int) bool {
	if IsLifetime(p) && months != LifetimeMonths {
		return false
	}
	for _, m := range p.AvailableMonths {
		if m == months {
			return true
		}
	}
	return false
}

// Orderable reports whether checkout may include the product at all.
func Orderable(p *model.Product) bool {
	return p.IsActive && p.Stock > 0 && len(p.AvailableMonths) > 0
}

// PricingTable lists pricing for every duration the product offers.
func PricingTable(p *model.Product) map[int]Pricing {
	out := make(map[int]Pricing, len(p.AvailableMonths))
	for _, m := range p.AvailableMonths {
		out[m] = GetPricing(p, m)
	}
	return out
}
