package intake

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var usPrinter = message.NewPrinter(language.English)

// FormatCurrencyValue renders a dollar amount with thousands separators. Whole
// amounts drop the fraction; anything else keeps two decimals.
func FormatCurrencyValue(n float64) string {
	if n == math.Trunc(n) {
		return usPrinter.Sprintf("$%d", int64(n))
	}
	return usPrinter.Sprintf("$%.2f", n)
}

// FormatPercentValue renders a percentage with a trailing sign and no
// superfluous fraction digits.
func FormatPercentValue(n float64) string {
	return formatFloat(n) + "%"
}

func formatFloat(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// FormatAnswer renders a collected value for display according to the
// question's format tag.
func FormatAnswer(q Question, v Value) string {
	if v.Kind == ValueNumber {
		switch q.Format {
		case FormatCurrency:
			return FormatCurrencyValue(v.Number)
		case FormatPercent:
			return FormatPercentValue(v.Number)
		}
	}
	return v.String()
}

// FormatAnswersForPrompt serializes the answer set as prompt bullet lines in
// traversal order, so only questions actually reached under these answers
// appear, each with its prompt text and formatted value.
func FormatAnswersForPrompt(cat *Catalog, answers Answers) string {
	var lines []string
	for _, id := range Flow(cat, answers) {
		q, ok := cat.Get(id)
		if !ok {
			continue
		}
		v, ok := answers[id]
		if !ok {
			continue
		}
		lines = append(lines, "- "+q.Prompt+" "+FormatAnswer(q, v))
	}
	return strings.Join(lines, "\n")
}
