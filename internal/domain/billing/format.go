package billing

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"saas-starter/internal/domain/plans"
)

var currencySymbols = map[string]string{
	"usd": "$",
	"eur": "€",
	"gbp": "£",
	"jpy": "¥",
	"inr": "₹",
}

var zeroDecimalCurrencies = map[string]bool{
	"jpy": true,
	"krw": true,
	"vnd": true,
	"clp": true,
}

// FormatAmount renders a minor-unit amount for humans, e.g. 2900 usd -> "$29.00".
func FormatAmount(minor int64, currency string) string {
	currency = strings.ToLower(strings.TrimSpace(currency))

	var amount string
	if zeroDecimalCurrencies[currency] {
		amount = decimal.NewFromInt(minor).StringFixed(0)
	} else {
		amount = decimal.New(minor, -2).StringFixed(2)
	}

	if sym, ok := currencySymbols[currency]; ok {
		if strings.HasPrefix(amount, "-") {
			return "-" + sym + strings.TrimPrefix(amount, "-")
		}
		return sym + amount
	}
	return strings.ToUpper(currency) + " " + amount
}

// PlanDisplayName title-cases a plan key ("enterprise" -> "Enterprise").
func PlanDisplayName(k plans.Key) string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(k), "_", " "))
}
