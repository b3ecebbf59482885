// internal/risk/format.go
package risk

import (
	"math"

	"github.com/dustin/go-humanize"
)

// FormatAmount renders an amount with en-US thousands separators and at most
// three fraction digits, dropping trailing zeros (80000 -> "80,000",
// 1234.5 -> "1,234.5").
func FormatAmount(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "0"
	}
	rounded := math.Round(amount*1000) / 1000
	if rounded == 0 {
		rounded = 0 // drop negative zero
	}
	return humanize.Commaf(rounded)
}
