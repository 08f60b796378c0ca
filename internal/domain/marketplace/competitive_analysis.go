package marketplace

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CompetitiveAnalysis summarizes the live bids on a load
type CompetitiveAnalysis struct {
	TotalBids int             `json:"total_bids"`
	AvgBid    decimal.Decimal `json:"avg_bid"`
	MinBid    decimal.Decimal `json:"min_bid"`
	MaxBid    decimal.Decimal `json:"max_bid"`
	MedianBid decimal.Decimal `json:"median_bid"`
	Currency  string          `json:"currency"`
}

// AnalyzeBids computes the summary over the non-terminal bids in bids.
// Average and median are rounded to 2 decimal places.
func AnalyzeBids(bids []Bid, currency string) CompetitiveAnalysis {
	result := CompetitiveAnalysis{
		AvgBid:    decimal.Zero,
		MinBid:    decimal.Zero,
		MaxBid:    decimal.Zero,
		MedianBid: decimal.Zero,
		Currency:  currency,
	}

	amounts := make([]decimal.Decimal, 0, len(bids))
	for i := range bids {
		if bids[i].Status.IsTerminal() {
			continue
		}
		amounts = append(amounts, bids[i].Amount)
	}
	if len(amounts) == 0 {
		return result
	}

	sort.Slice(amounts, func(i, j int) bool { return amounts[i].LessThan(amounts[j]) })

	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(a)
	}
	n := len(amounts)
	result.TotalBids = n
	result.MinBid = amounts[0]
	result.MaxBid = amounts[n-1]
	result.AvgBid = sum.Div(decimal.NewFromInt(int64(n))).Round(2)
	if n%2 == 1 {
		result.MedianBid = amounts[n/2].Round(2)
	} else {
		result.MedianBid = amounts[n/2-1].Add(amounts[n/2]).Div(decimal.NewFromInt(2)).Round(2)
	}
	return result
}
