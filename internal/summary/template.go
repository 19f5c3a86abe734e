// Package summary assembles the executive-summary document and the prompt
// sent to the deal-analysis text generator.
package summary

import (
	"strings"

	"github.com/k2cf/dealdesk/internal/intake"
)

const (
	headerBrand       = "⭐ K2 COMMERCIAL FINANCE"
	closingLine       = "Thank you for submitting your deal to K2 Commercial Finance."
	programFitTitle   = "PROGRAM FIT (Preliminary)"
	analystNotesTitle = "NOTES FROM K2"
)

// BuildExecutiveSummary renders the full summary document from the answers
// and the two externally generated prose blocks. Section order and the
// N/A-versus-omit policy are fixed: required fields render "N/A" when absent,
// conditionally shown fields disappear entirely.
func BuildExecutiveSummary(answers intake.Answers, programFit, analystNotes string) string {
	var lines []string
	push := func(ls ...string) { lines = append(lines, ls...) }

	propertyType := str(answers, "property_type")
	ltv, ltvOK := intake.LTV(answers)
	dscr, dscrOK := intake.DSCR(answers)
	liqPct, liqOK := intake.LiquidityPercent(answers)

	push(headerBrand)
	push("Transaction Executive Summary — " + propertyType)

	push("", divider("DEAL OVERVIEW"))
	push(line("Deal Type", str(answers, "deal_type")))
	push(line("Property Type", propertyType))
	push(line("Address", str(answers, "property_address")))
	push(line("County", str(answers, "property_county")))
	push(line("Owner-Occupied or Held for Lease", str(answers, "owner_occupied")))
	if answers.Is("owner_occupied", "Owner-Occupied") {
		push(line("Owner Occupancy", str(answers, "owner_occupy_percent")+" of the space"))
	}
	if answers.Is("borrower_type", "Entity") {
		members := str(answers, "entity_members")
		plural := "s"
		if n, ok := answers.Number("entity_members"); ok && n == 1 {
			plural = ""
		}
		push(line("Borrower Type", "Entity ("+str(answers, "entity_type")+" with "+members+" member"+plural+")"))
		push(line("Personal Guarantees", str(answers, "personal_guarantees")))
		if answers.Is("personal_guarantees", "Yes") {
			push(line("Guarantor(s)", str(answers, "guarantors")))
		}
	} else {
		push(line("Borrower Type", "Individual"))
	}
	push(line("Requested Loan Amount", money(answers, "requested_loan_amount")))
	push(line("Loan-to-Value (Calculated)", metricPercent(ltv, ltvOK, " LTV")))

	push("")
	switch {
	case answers.Is("deal_type", "Purchase"):
		push(divider("PURCHASE DETAILS"))
		push(line("Purchase Price", money(answers, "purchase_price")))
		push(line("Under Contract", str(answers, "under_contract")))
		push(line("Down Payment", money(answers, "down_payment")))
		if v, ok := answers.Text("time_constraints"); ok && v != "" {
			push(line("Time Constraints", v))
		}
	case answers.Is("deal_type", "Refinance"):
		push(divider("REFINANCE DETAILS"))
		push(line("Current Loan Balance", money(answers, "refi_current_balance")))
		push(line("Current Monthly Payment", money(answers, "refi_monthly_payment")))
		push(line("Prepayment Penalty", str(answers, "refi_prepay_penalty")))
		push(line("Estimated Current Value", money(answers, "refi_estimated_value")))
		push(line("Cash-Out Request", money(answers, "refi_cash_out")))
		push(line("Balloon Payment Coming Due?", str(answers, "refi_balloon")))
		if answers.Is("refi_balloon", "Yes") {
			push(line("Balloon Payment Due Date", str(answers, "refi_balloon_due")))
		}
	}

	push("", divider("PROPERTY FINANCIALS"))
	push(line("Current NOI", money(answers, "current_noi")))
	if answers.Has("stabilized_noi") {
		push(line("Stabilized NOI", money(answers, "stabilized_noi")))
	}
	if n, ok := answers.Number("cap_rate"); ok {
		push(line("Cap Rate (Provided)", intake.FormatPercentValue(n)))
	}
	push(line("Occupancy", str(answers, "occupancy")+"%"))
	push(line("DSCR (Calculated)", metricMultiple(dscr, dscrOK)))
	if answers.Is("property_type", "Mobile Home Park (MHP)") && answers.Has("mhp_poh_percent") {
		push(line("POH %", str(answers, "mhp_poh_percent")+"%"))
	}

	if assetLines := assetSpecificLines(answers); len(assetLines) > 0 {
		push("", divider("ASSET-SPECIFIC DETAILS — "+strings.ToUpper(propertyType)))
		push(assetLines...)
	}

	push("", divider("SPONSOR PROFILE"))
	push(line("Net Worth", money(answers, "net_worth")))
	push(line("Liquidity", money(answers, "liquidity")))
	push(line("Liquidity as % of Loan Amount", metricPercent(liqPct, liqOK, "")))
	push(line("Credit Score Range", str(answers, "credit_score")))
	push(line("CRE Experience", str(answers, "cre_experience")))

	push("", divider("BORROWER INTENT & STRATEGY"))
	push(line("Overall Strategy", str(answers, "overall_strategy")))
	push(line("Capital Improvements Planned?", str(answers, "capital_improvements")))
	if answers.Is("capital_improvements", "Yes") {
		push(line("Estimated Budget", money(answers, "capex_budget")))
	}
	push(line("Reason for Financing Now", str(answers, "financing_reason")))
	push(line("Planned Hold Period", str(answers, "hold_period")))
	if v, ok := answers.Text("operational_changes"); ok && v != "" {
		push(line("Anticipated Operational Changes", v))
	}

	push("", divider("GOALS & CHALLENGES"))
	push(line("Primary Goal", str(answers, "primary_goal")))
	if v, ok := answers.Text("secondary_goals"); ok && v != "" {
		push(line("Secondary Goals", v))
	}
	if v, ok := answers.Text("deal_challenges"); ok && v != "" {
		push(line("Challenges", v))
	}
	push(line("Timeline", str(answers, "timeline")))

	push("", divider(programFitTitle))
	push(programFit)

	push("", divider(analystNotesTitle))
	push(analystNotes)

	push("", closingLine)

	return strings.Join(lines, "\n")
}

func assetSpecificLines(answers intake.Answers) []string {
	var out []string
	switch {
	case answers.Is("property_type", "Mobile Home Park (MHP)"):
		out = append(out,
			line("Number of Pads", str(answers, "mhp_num_pads")),
			line("Infrastructure Notes", str(answers, "mhp_infrastructure")),
		)
	case answers.Is("property_type", "RV Park"):
		out = append(out,
			line("Number of Pads", str(answers, "rv_num_pads")),
			line("Seasonal Revenue (>30-day visits)", str(answers, "rv_seasonal_revenue")+" of revenues"),
		)
	case answers.Is("property_type", "Multifamily"):
		out = append(out, line("Number of Doors", str(answers, "mf_num_doors")))
	case answers.Is("property_type", "Automotive"):
		out = append(out, line("Underground Tanks", str(answers, "auto_underground_tanks")))
		if answers.Is("auto_underground_tanks", "Yes") {
			out = append(out, line("Environmental Issues", str(answers, "auto_environmental")))
		}
	}
	return out
}

func line(label, value string) string {
	return "- " + label + ": " + value
}

func divider(title string) string {
	bar := strings.Repeat("-", 52)
	return bar + "\n" + title + "\n" + bar
}

// str renders an answer's raw value, or "N/A" when it is absent or empty.
func str(answers intake.Answers, id string) string {
	v, ok := answers[id]
	if !ok {
		return "N/A"
	}
	s := v.String()
	if s == "" {
		return "N/A"
	}
	return s
}

// money renders a numeric answer as currency, or "N/A" when absent.
func money(answers intake.Answers, id string) string {
	n, ok := answers.Number(id)
	if !ok {
		return "N/A"
	}
	return intake.FormatCurrencyValue(n)
}

func metricPercent(v float64, ok bool, suffix string) string {
	if !ok {
		return "N/A"
	}
	return intake.FormatPercentValue(v) + suffix
}

func metricMultiple(v float64, ok bool) string {
	if !ok {
		return "N/A"
	}
	return formatMultiple(v)
}
