package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetPerformance is the per-asset ROI breakdown of a report
type AssetPerformance struct {
	TotalInvested decimal.Decimal `json:"total_invested"`
	CurrentValue  decimal.Decimal `json:"current_value"`
	Quantity      decimal.Decimal `json:"quantity"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	ROIPercent    decimal.Decimal `json:"roi_percent"`
}

// Report is the investment report read by the dashboard
type Report struct {
	Date              time.Time                   `json:"date"`
	TotalInvested     decimal.Decimal             `json:"total_invested"`
	CurrentValue      decimal.Decimal             `json:"current_value"`
	TotalROIPercent   decimal.Decimal             `json:"total_roi_percent"`
	Assets            map[Symbol]AssetPerformance `json:"assets"`
	MonthlyInvestment decimal.Decimal             `json:"monthly_investment"`
	NextAllocation    *AllocationPlan             `json:"next_allocation"`
}

var hundred = decimal.NewFromInt(100)

// ROIPercent returns (current - invested) / invested × 100.
// It returns ErrZeroInvestmentBase, with a zero ROI, when nothing was invested.
func ROIPercent(invested, current decimal.Decimal) (decimal.Decimal, error) {
	if invested.IsZero() {
		return decimal.Zero, ErrZeroInvestmentBase
	}
	return current.Sub(invested).Div(invested).Mul(hundred), nil
}
