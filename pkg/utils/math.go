package utils

import "math"

// RoundDecimal rounds a float64 to the given number of decimal places.
func RoundDecimal(value float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(value*pow) / pow
}
