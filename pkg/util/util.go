package util

import (
	"math"
	"strconv"
	"strings"
)

func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

func CountDecimalPlacesF64(value float64) int {
	strNumber := strconv.FormatFloat(value, 'f', -1, 64)
	parts := strings.Split(strNumber, ".")
	if len(parts) < 2 {
		return 0
	}
	return len(parts[1])
}

func AssertPanic(cond bool, msg string) {
	if !cond {
		panic(msg)
	}
}

func ReverseG[T any](arr []T) []T {
	out := make([]T, len(arr))
	for i, v := range arr {
		out[len(arr)-1-i] = v
	}
	return out
}
