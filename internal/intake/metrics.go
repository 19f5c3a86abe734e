package intake

import "math"

// DSCR is screened against a fixed assumed note, not the borrower's quoted
// terms: 7% annual, 25-year amortization. Deliberate simplification for
// preliminary sizing.
const (
	dscrAssumedAnnualRate = 0.07
	dscrAmortizationYears = 25
)

// LTV derives loan-to-value as a percentage rounded to one decimal. Property
// value is the purchase price on purchase deals, otherwise the stated current
// estimated value. Unavailable when either operand is missing or non-positive.
func LTV(answers Answers) (float64, bool) {
	loan, ok := answers.Number("requested_loan_amount")
	if !ok || loan <= 0 {
		return 0, false
	}
	valueID := "refi_estimated_value"
	if answers.Is("deal_type", "Purchase") {
		valueID = "purchase_price"
	}
	value, ok := answers.Number(valueID)
	if !ok || value <= 0 {
		return 0, false
	}
	return round1(loan / value * 100), true
}

// DSCR derives debt-service coverage as NOI over the annualized payment on a
// fully-amortizing fixed-rate note at the assumed terms, rounded to two
// decimals. Unavailable when NOI is missing or the loan amount is missing or
// non-positive.
func DSCR(answers Answers) (float64, bool) {
	noi, ok := answers.Number("current_noi")
	if !ok {
		return 0, false
	}
	loan, ok := answers.Number("requested_loan_amount")
	if !ok || loan <= 0 {
		return 0, false
	}
	monthlyRate := dscrAssumedAnnualRate / 12
	periods := float64(dscrAmortizationYears * 12)
	growth := math.Pow(1+monthlyRate, periods)
	monthlyPayment := loan * monthlyRate * growth / (growth - 1)
	annualDebtService := monthlyPayment * 12
	if annualDebtService <= 0 {
		return 0, false
	}
	return round2(noi / annualDebtService), true
}

// LiquidityPercent derives available liquidity as a percentage of the
// requested loan amount, rounded to one decimal. Zero liquidity is a valid
// input; a missing or non-positive loan amount is not.
func LiquidityPercent(answers Answers) (float64, bool) {
	liquidity, ok := answers.Number("liquidity")
	if !ok {
		return 0, false
	}
	loan, ok := answers.Number("requested_loan_amount")
	if !ok || loan <= 0 {
		return 0, false
	}
	return round1(liquidity / loan * 100), true
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
