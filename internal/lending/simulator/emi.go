// internal/lending/simulator/emi.go
package simulator

import "math"

// EMI returns the equal monthly installment for principal at annualRate
// percent over months, rounded to the nearest currency unit.
func EMI(principal, annualRate float64, months int) float64 {
	if months <= 0 {
		return math.Round(principal)
	}
	r := annualRate / 12 / 100
	if r == 0 {
		return math.Round(principal / float64(months))
	}
	growth := math.Pow(1+r, float64(months))
	return math.Round(principal * r * growth / (growth - 1))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
