package core

type (
	// FinancialSummary holds the totals of a closed date range.
	FinancialSummary struct {
		Start         Date  `json:"startDate"`
		End           Date  `json:"endDate"`
		TotalIncome   Money `json:"totalIncome"`
		TotalExpenses Money `json:"totalExpenses"`
		Balance       Money `json:"balance"`
	}

	// CategoryRollup aggregates the transactions of one category. CategoryID is
	// empty for the uncategorized bucket.
	CategoryRollup struct {
		CategoryID string `json:"categoryId"`
		Name       string `json:"name"`
		Icon       string `json:"icon"`
		Income     Money  `json:"income"`
		Expense    Money  `json:"expense"`
		Total      Money  `json:"total"`
	}

	// MonthPoint is one month of a monthly series.
	MonthPoint struct {
		Year       int    `json:"year"`
		Month      int    `json:"month"` // 1-12
		Label      string `json:"label"`
		Income     Money  `json:"income"`
		Expenses   Money  `json:"expenses"`
		Balance    Money  `json:"balance"`
		Cumulative Money  `json:"cumulative"`
	}
)

// Uncategorized reports whether r is the catch-all bucket.
func (r CategoryRollup) Uncategorized() bool {
	return r.CategoryID == ""
}
