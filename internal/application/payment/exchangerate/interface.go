// Package exchangerate defines the fiat conversion port used for display
// figures.
package exchangerate

import "context"

// RateService provides the native-currency to USD rate.
type RateService interface {
	GetUSDRate(ctx context.Context) (float64, error)
}
