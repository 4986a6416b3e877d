package report

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatMetric renders a named statistic for display: ratios with two
// decimals, percentages signed, anything else with thousands separators.
func FormatMetric(name string, value float64) string {
	switch {
	case strings.Contains(name, "Ratio"):
		return fmt.Sprintf("%.2f", value)
	case strings.Contains(name, "%"):
		return fmt.Sprintf("%+.2f%%", value)
	default:
		return printer.Sprintf("%.2f", value)
	}
}

// FormatMoney renders an amount with thousands separators and two decimals.
func FormatMoney(value float64) string {
	return printer.Sprintf("%.2f", value)
}

func formatVolume(v int64) string {
	return printer.Sprintf("%d", v)
}
