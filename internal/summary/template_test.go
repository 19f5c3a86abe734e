package summary

import (
	"strings"
	"testing"

	"github.com/k2cf/dealdesk/internal/intake"
)

func purchaseAnswers() intake.Answers {
	return intake.Answers{
		"property_type":         intake.TextValue("Multifamily"),
		"mf_num_doors":          intake.NumberValue(24),
		"property_address":      intake.TextValue("1842 Pine Hollow Road, Lebanon, TN 37087"),
		"property_county":       intake.TextValue("Wilson County"),
		"owner_occupied":        intake.TextValue("Held for Lease"),
		"deal_type":             intake.TextValue("Purchase"),
		"purchase_price":        intake.NumberValue(1_250_000),
		"under_contract":        intake.TextValue("Yes"),
		"down_payment":          intake.NumberValue(250_000),
		"borrower_type":         intake.TextValue("Individual"),
		"requested_loan_amount": intake.NumberValue(1_000_000),
		"current_noi":           intake.NumberValue(100_000),
		"occupancy":             intake.NumberValue(94),
		"net_worth":             intake.NumberValue(4_200_000),
		"liquidity":             intake.NumberValue(610_000),
		"credit_score":          intake.TextValue("740–779"),
		"cre_experience":        intake.TextValue("8 years multifamily"),
		"overall_strategy":      intake.TextValue("Long-term hold"),
		"capital_improvements":  intake.TextValue("No"),
		"financing_reason":      intake.TextValue("Acquisition opportunity"),
		"hold_period":           intake.TextValue("7+ years"),
		"primary_goal":          intake.TextValue("Acquire and stabilize"),
		"timeline":              intake.TextValue("60 days"),
	}
}

func TestBuildExecutiveSummaryPurchase(t *testing.T) {
	doc := BuildExecutiveSummary(purchaseAnswers(), "Agency fits well.", "Strong sponsor.")

	for _, want := range []string{
		"K2 COMMERCIAL FINANCE",
		"Transaction Executive Summary — Multifamily",
		"DEAL OVERVIEW",
		"PURCHASE DETAILS",
		"- Purchase Price: $1,250,000",
		"PROPERTY FINANCIALS",
		"- Loan-to-Value (Calculated): 80% LTV",
		"- DSCR (Calculated): 1.18x",
		"ASSET-SPECIFIC DETAILS — MULTIFAMILY",
		"- Number of Doors: 24",
		"SPONSOR PROFILE",
		"- Liquidity as % of Loan Amount: 61%",
		"BORROWER INTENT & STRATEGY",
		"GOALS & CHALLENGES",
		"PROGRAM FIT (Preliminary)",
		"Agency fits well.",
		"NOTES FROM K2",
		"Strong sponsor.",
		"Thank you for submitting your deal to K2 Commercial Finance.",
	} {
		if !strings.Contains(doc, want) {
			t.Fatalf("summary missing %q:\n%s", want, doc)
		}
	}

	if strings.Contains(doc, "REFINANCE DETAILS") {
		t.Fatalf("purchase summary must not carry the refinance section")
	}
	if strings.Contains(doc, "Time Constraints") {
		t.Fatalf("absent optional field must be omitted, not rendered")
	}
	if strings.Contains(doc, "Stabilized NOI") {
		t.Fatalf("skipped stabilized NOI must be omitted entirely")
	}
}

func TestBuildExecutiveSummaryRefinanceBalloon(t *testing.T) {
	answers := intake.Answers{
		"deal_type":        intake.TextValue("Refinance"),
		"refi_balloon":     intake.TextValue("Yes"),
		"refi_balloon_due": intake.TextValue("December 2026"),
	}
	doc := BuildExecutiveSummary(answers, "fit", "notes")
	if !strings.Contains(doc, "REFINANCE DETAILS") {
		t.Fatalf("missing refinance section")
	}
	if !strings.Contains(doc, "- Balloon Payment Due Date: December 2026") {
		t.Fatalf("missing balloon sub-line:\n%s", doc)
	}
	if !strings.Contains(doc, "- Current Loan Balance: N/A") {
		t.Fatalf("absent required field must render N/A")
	}

	answers["refi_balloon"] = intake.TextValue("No")
	doc = BuildExecutiveSummary(answers, "fit", "notes")
	if strings.Contains(doc, "Balloon Payment Due Date") {
		t.Fatalf("balloon sub-line must be conditional")
	}
}

func TestBuildExecutiveSummaryEntityBorrower(t *testing.T) {
	answers := intake.Answers{
		"borrower_type":       intake.TextValue("Entity"),
		"entity_type":         intake.TextValue("LLC"),
		"entity_members":      intake.NumberValue(1),
		"personal_guarantees": intake.TextValue("Yes"),
		"guarantors":          intake.TextValue("John Smith"),
	}
	doc := BuildExecutiveSummary(answers, "fit", "notes")
	if !strings.Contains(doc, "- Borrower Type: Entity (LLC with 1 member)") {
		t.Fatalf("entity line wrong:\n%s", doc)
	}
	if !strings.Contains(doc, "- Guarantor(s): John Smith") {
		t.Fatalf("guarantor sub-line missing")
	}
}

func TestBuildExecutiveSummarySparseAnswers(t *testing.T) {
	answers := intake.Answers{"property_type": intake.TextValue("Raw Land")}
	doc := BuildExecutiveSummary(answers, "fit text", "note text")
	if !strings.Contains(doc, "fit text") || !strings.Contains(doc, "note text") {
		t.Fatalf("prose blocks must always appear verbatim")
	}
	if !strings.Contains(doc, "- Deal Type: N/A") {
		t.Fatalf("sparse answers must fall back to N/A")
	}
	if strings.Contains(doc, "ASSET-SPECIFIC DETAILS") {
		t.Fatalf("raw land has no asset-specific section")
	}
	if strings.Contains(doc, "PURCHASE DETAILS") || strings.Contains(doc, "REFINANCE DETAILS") {
		t.Fatalf("unknown deal type must omit both transaction sections")
	}
}

func TestBuildExecutiveSummaryMHPFinancialLine(t *testing.T) {
	answers := intake.Answers{
		"property_type":   intake.TextValue("Mobile Home Park (MHP)"),
		"mhp_poh_percent": intake.NumberValue(22),
	}
	doc := BuildExecutiveSummary(answers, "fit", "notes")
	if !strings.Contains(doc, "- POH %: 22%") {
		t.Fatalf("missing POH line:\n%s", doc)
	}
	if !strings.Contains(doc, "ASSET-SPECIFIC DETAILS — MOBILE HOME PARK (MHP)") {
		t.Fatalf("missing MHP asset section")
	}
}
