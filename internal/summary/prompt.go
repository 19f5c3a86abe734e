package summary

import (
	"fmt"
	"strings"

	"github.com/k2cf/dealdesk/internal/intake"
)

// BuildAnalysisPrompt serializes the deal for the text-generation
// collaborator: the answers in traversal order, the computed metrics when at
// least one is available, and the fixed instruction block requesting exactly
// the two named output sections.
func BuildAnalysisPrompt(cat *intake.Catalog, answers intake.Answers) string {
	formatted := intake.FormatAnswersForPrompt(cat, answers)

	var metrics []string
	if ltv, ok := intake.LTV(answers); ok {
		metrics = append(metrics, "LTV: "+intake.FormatPercentValue(ltv))
	}
	if dscr, ok := intake.DSCR(answers); ok {
		metrics = append(metrics, "DSCR: "+formatMultiple(dscr))
	}
	if pct, ok := intake.LiquidityPercent(answers); ok {
		metrics = append(metrics, "Liquidity as % of loan: "+intake.FormatPercentValue(pct))
	}

	lines := []string{
		"You are reviewing a commercial real estate loan intake. Based on the data below,",
		"produce EXACTLY two sections — nothing else:",
		"",
		"SECTION 1 — PROGRAM FIT (Preliminary)",
		"List 3-5 bullet points of loan programs that may be suitable for this transaction.",
		"For each program, briefly explain why it fits. Examples: CMBS, Agency, Bank/Credit Union,",
		"SBA 504, Bridge, DSCR-Lite, Hard Money, etc.",
		"",
		"SECTION 2 — NOTES FROM K2",
		"Write 2-4 sentences with your overall analyst assessment of this deal:",
		"strengths, concerns, and recommended next steps.",
		"End with: \"A K2 analyst will review the full package and follow up with next steps,",
		"including estimated terms, documentation requirements, and timeline expectations.\"",
		"",
		"--- DEAL DATA ---",
		formatted,
		"",
	}
	if len(metrics) > 0 {
		lines = append(lines, "Calculated Metrics: "+strings.Join(metrics, ", "))
	} else {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func formatMultiple(v float64) string {
	return fmt.Sprintf("%.2fx", v)
}
