package utils

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	currencyRegex      = regexp.MustCompile(`[₹$€£¥]|(?i)^(?:rs\.?|inr)\s*`)
	parenNegativeRegex = regexp.MustCompile(`^\((.+)\)$`)
)

// placeholder cells that mean "no amount"
var zeroPlaceholders = map[string]bool{
	"":     true,
	"-":    true,
	"—":    true,
	"–":    true,
	"n/a":  true,
	"na":   true,
	"none": true,
	"nil":  true,
}

// ParseAmount converts numeric-looking text into an exact decimal.
//
// Currency glyphs, thousands separators and percent signs are stripped,
// "(50.00)" becomes -50.00 and blank/dash/N/A placeholders become zero.
// Anything still non-numeric is logged and treated as zero.
func ParseAmount(text string) decimal.Decimal {
	return parseNumber(text, "amount")
}

// ParsePercentage follows ParseAmount's rules without rescaling:
// "2.5%" and "2.5" both mean 2.5 percent.
func ParsePercentage(text string) decimal.Decimal {
	return parseNumber(text, "percentage")
}

func parseNumber(text, kind string) decimal.Decimal {
	cleaned := strings.TrimSpace(strings.ReplaceAll(text, "\u00a0", " "))
	if zeroPlaceholders[strings.ToLower(cleaned)] {
		return decimal.Zero
	}

	cleaned = strings.TrimSpace(currencyRegex.ReplaceAllString(cleaned, ""))
	if m := parenNegativeRegex.FindStringSubmatch(cleaned); len(m) > 1 {
		cleaned = "-" + strings.TrimSpace(m[1])
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, "%", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")

	if zeroPlaceholders[strings.ToLower(cleaned)] {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		zap.L().Warn("could not parse number, defaulting to 0.00",
			zap.String("kind", kind),
			zap.String("text", text),
		)
		return decimal.Zero
	}
	return d
}

// RoundMoney rounds half away from zero to two places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
