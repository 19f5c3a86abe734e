package intake

// BuildChecklist maps the collected answers to the required-documents list.
// The five baseline entries always lead; borrower-structure, asset-type,
// transaction-type, and capital-improvement additions follow in that order.
// The result is deterministic for a given answer set and entries are never
// removed once appended.
func BuildChecklist(answers Answers) []string {
	checklist := []string{
		"Completed personal financial statement",
		"Last 2 years of tax returns (personal)",
		"Most recent 3 months of bank statements",
		"Property operating statements (trailing 12 months)",
		"Current rent roll",
	}

	if answers.Is("borrower_type", "Entity") {
		checklist = append(checklist,
			"Entity formation documents (Articles of Organization / Operating Agreement)",
			"Last 2 years of business tax returns",
			"Business debt schedule",
		)
	} else {
		checklist = append(checklist, "Government-issued photo ID")
	}

	propertyType, _ := answers.Text("property_type")
	switch propertyType {
	case "Multifamily":
		checklist = append(checklist,
			"Unit-by-unit rent roll",
			"Lease abstracts for major tenants",
		)
	case "Mobile Home Park (MHP)":
		checklist = append(checklist,
			"Pad-level rent roll",
			"Infrastructure inspection reports (if available)",
			"POH inventory list",
		)
	case "RV Park":
		checklist = append(checklist,
			"Revenue breakdown: transient vs. seasonal vs. long-term",
		)
	case "Office", "Retail", "Industrial", "Warehouse":
		checklist = append(checklist,
			"Major tenant lease summaries",
			"Tenant estoppel certificates (if available)",
		)
	}

	switch {
	case answers.Is("deal_type", "Purchase"):
		checklist = append(checklist,
			"Executed purchase agreement",
			"Earnest money verification",
		)
	case answers.Is("deal_type", "Refinance"):
		checklist = append(checklist, "Current loan payoff statement")
	}

	if answers.Is("capital_improvements", "Yes") {
		checklist = append(checklist, "Capital improvement budget / scope of work")
	}

	return checklist
}
