package billing

const (
	// MinCredits is the smallest purchasable quantity.
	MinCredits = 50
	// MaxCredits is the upper bound offered by the pricing preview.
	MaxCredits = 2000

	volume1MaxCredits = 200
	volume2MaxCredits = 1000

	volume1PriceCents = 6
	volume2PriceCents = 5
	volume3PriceCents = 4
)

// CreditTier is a contiguous range of credit quantities sold at one unit
// price. MaxCredits of 0 means the tier is unbounded.
type CreditTier struct {
	Name           string `json:"name"`
	MinCredits     int    `json:"min_credits"`
	MaxCredits     int    `json:"max_credits"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// UnitPrice returns the price of one credit in dollars.
func (t CreditTier) UnitPrice() float64 {
	return float64(t.UnitPriceCents) / 100
}

// Tiers is the fixed volume price table.
var Tiers = []CreditTier{
	{Name: "Volume 1", MinCredits: 1, MaxCredits: volume1MaxCredits, UnitPriceCents: volume1PriceCents},
	{Name: "Volume 2", MinCredits: volume1MaxCredits + 1, MaxCredits: volume2MaxCredits, UnitPriceCents: volume2PriceCents},
	{Name: "Volume 3", MinCredits: volume2MaxCredits + 1, MaxCredits: 0, UnitPriceCents: volume3PriceCents},
}

// TierAllocation is the share of a purchase that falls into one tier.
type TierAllocation struct {
	Credits   int   `json:"credits"`
	CostCents int64 `json:"cost_cents"`
}

// Cost returns the allocation cost in dollars.
func (a TierAllocation) Cost() float64 {
	return float64(a.CostCents) / 100
}

// PricingBreakdown is the per-tier cost of a credit purchase.
type PricingBreakdown struct {
	Credits    int            `json:"credits"`
	Tier1      TierAllocation `json:"tier1"`
	Tier2      TierAllocation `json:"tier2"`
	Tier3      TierAllocation `json:"tier3"`
	TotalCents int64          `json:"total_cents"`
}

// Total returns the purchase total in dollars.
func (b PricingBreakdown) Total() float64 {
	return float64(b.TotalCents) / 100
}

// ComputeBreakdown splits credits across the volume tiers. It is used both
// for the pricing preview and for the checkout price, so both always agree.
func ComputeBreakdown(credits int) PricingBreakdown {
	tier1 := max(0, min(credits, volume1MaxCredits))
	tier2 := max(0, min(credits-volume1MaxCredits, volume2MaxCredits-volume1MaxCredits))
	tier3 := max(0, credits-volume2MaxCredits)

	b := PricingBreakdown{
		Credits: credits,
		Tier1:   TierAllocation{Credits: tier1, CostCents: int64(tier1) * volume1PriceCents},
		Tier2:   TierAllocation{Credits: tier2, CostCents: int64(tier2) * volume2PriceCents},
		Tier3:   TierAllocation{Credits: tier3, CostCents: int64(tier3) * volume3PriceCents},
	}
	b.TotalCents = b.Tier1.CostCents + b.Tier2.CostCents + b.Tier3.CostCents
	return b
}

// PriceInCents is the custom price sent to the payment provider.
func PriceInCents(credits int) int64 {
	return ComputeBreakdown(credits).TotalCents
}

// ClampCredits bounds a preview quantity to [MinCredits, MaxCredits].
func ClampCredits(credits int) int {
	return max(MinCredits, min(credits, MaxCredits))
}
