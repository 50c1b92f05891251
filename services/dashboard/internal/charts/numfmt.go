package charts

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

// FormatNumber renders n with the given precision, decimal point and
// thousands separator, e.g. FormatNumber(1234.5, 2, ",", " ") == "1 234,50".
// An empty thousandsSep disables grouping. Other separators must be single
// characters; anything else falls back to "." and ",". Non-finite input
// renders as zero and precision is capped at 9 digits.
func FormatNumber(n float64, decimals int, decPoint, thousandsSep string) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		n = 0
	}
	if decimals < 0 {
		decimals = -decimals
	}
	if decimals > 9 {
		decimals = 9
	}
	if !validSeparator(decPoint) {
		decPoint = "."
	}
	if thousandsSep != "" && (!validSeparator(thousandsSep) || thousandsSep == decPoint) {
		thousandsSep = ","
		if decPoint == "," {
			thousandsSep = "."
		}
	}

	format := "#" + thousandsSep + "###" + decPoint + strings.Repeat("#", decimals)
	return humanize.FormatFloat(format, n)
}

func validSeparator(s string) bool {
	if utf8.RuneCountInString(s) != 1 {
		return false
	}
	switch s {
	case "#", "0", "+", "-":
		return false
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r < '1' || r > '9'
}
