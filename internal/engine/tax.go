package engine

const (
	// TaxPercent is the Grand Exchange tax on the sell side.
	TaxPercent = 2
	// TaxCap is the most tax a single item sale can incur.
	TaxCap = 5_000_000
)

// GETax returns the exchange tax per unit sold at sellPrice.
func GETax(sellPrice int64, disabled bool) int64 {
	if disabled || sellPrice <= 0 {
		return 0
	}
	tax := sellPrice * TaxPercent / 100
	if tax > TaxCap {
		return TaxCap
	}
	return tax
}
