package profit

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/R3E-Network/classledger/internal/app/domain/deduction"
)

var hundred = decimal.NewFromInt(100)

// Item is one rule's contribution to a report.
type Item struct {
	ID            int64               `json:"id"`
	Name          string              `json:"name"`
	Type          deduction.Type      `json:"type"`
	Value         decimal.Decimal     `json:"value"`
	Frequency     deduction.Frequency `json:"frequency"`
	Calculation   string              `json:"calculation"`
	Amount        decimal.Decimal     `json:"amount"`
	AppliedCount  *int                `json:"applied_count,omitempty"`
	LastAppliedAt *time.Time          `json:"last_applied_at,omitempty"`
}

// ManualItem is the manual deduction total of one detail type.
type ManualItem struct {
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
	Count  int64           `json:"count"`
}

// Totals is the shared summary of a profit report.
type Totals struct {
	TotalIncome             decimal.Decimal `json:"total_income"`
	TotalHours              int64           `json:"total_hours"`
	TotalDeductions         decimal.Decimal `json:"total_deductions"`
	TotalOnceDeductions     decimal.Decimal `json:"total_once_deductions"`
	TotalMultipleDeductions decimal.Decimal `json:"total_multiple_deductions"`
	TotalManualDeductions   decimal.Decimal `json:"total_manual_deductions"`
	Profit                  decimal.Decimal `json:"profit"`
	ProfitRate              decimal.Decimal `json:"profit_rate"`
}

// StudentFigures are the inputs of a single student's report.
type StudentFigures struct {
	TotalIncome decimal.Decimal
	FirstIncome decimal.Decimal
	HoursUsed   int64
}

// PeriodFigures are the inputs of a period report.
type PeriodFigures struct {
	Income      decimal.Decimal
	IncomeCount int64
	NewStudents int64
	HoursUsed   int64
}

// StudentItem prices a rule attached to one student.
func StudentItem(a deduction.Applied, f StudentFigures) Item {
	item := Item{
		ID:            a.ConfigID,
		Name:          a.Name,
		Type:          a.Type,
		Value:         a.Value,
		Frequency:     a.Frequency,
		LastAppliedAt: a.LastAppliedAt,
	}
	count := a.AppliedCount
	item.AppliedCount = &count
	v := a.Value
	once := a.Frequency == deduction.FrequencyOnce

	switch a.Type {
	case deduction.TypePercentage:
		if once {
			item.Amount = f.FirstIncome.Mul(v).Div(hundred)
			item.Calculation = fmt.Sprintf("once: first recharge %s × %s%% = %s", f.FirstIncome, v, item.Amount.StringFixed(2))
		} else {
			item.Amount = f.TotalIncome.Mul(v).Div(hundred)
			item.Calculation = fmt.Sprintf("%s × %s%% = %s", f.TotalIncome, v, item.Amount.StringFixed(2))
		}
	case deduction.TypeFixed:
		if once {
			item.Amount = v
			item.Calculation = fmt.Sprintf("once: %s", v)
		} else {
			item.Amount = v.Mul(decimal.NewFromInt(int64(count)))
			item.Calculation = fmt.Sprintf("%s × %d recharges = %s", v, count, item.Amount.StringFixed(2))
		}
	case deduction.TypePerHour:
		if once {
			item.Amount = v
			item.Calculation = fmt.Sprintf("once: %s", v)
		} else {
			item.Amount = v.Mul(decimal.NewFromInt(f.HoursUsed))
			item.Calculation = fmt.Sprintf("%d hours × %s = %s", f.HoursUsed, v, item.Amount.StringFixed(2))
		}
	}
	return item
}

// PeriodItem prices a rule across every student for a period.
func PeriodItem(cfg deduction.Config, f PeriodFigures) Item {
	item := Item{
		ID:        cfg.ID,
		Name:      cfg.Name,
		Type:      cfg.Type,
		Value:     cfg.Value,
		Frequency: cfg.Frequency,
	}
	v := cfg.Value
	once := cfg.Frequency == deduction.FrequencyOnce

	switch cfg.Type {
	case deduction.TypePercentage:
		item.Amount = f.Income.Mul(v).Div(hundred)
		item.Calculation = fmt.Sprintf("%s × %s%% = %s", f.Income, v, item.Amount.StringFixed(2))
	case deduction.TypeFixed:
		if once {
			item.Amount = v.Mul(decimal.NewFromInt(f.NewStudents))
			item.Calculation = fmt.Sprintf("%d students × %s = %s", f.NewStudents, v, item.Amount.StringFixed(2))
		} else {
			item.Amount = v.Mul(decimal.NewFromInt(f.IncomeCount))
			item.Calculation = fmt.Sprintf("%d recharges × %s = %s", f.IncomeCount, v, item.Amount.StringFixed(2))
		}
	case deduction.TypePerHour:
		if once {
			item.Amount = v.Mul(decimal.NewFromInt(f.NewStudents))
			item.Calculation = fmt.Sprintf("%d students × %s = %s", f.NewStudents, v, item.Amount.StringFixed(2))
		} else {
			item.Amount = v.Mul(decimal.NewFromInt(f.HoursUsed))
			item.Calculation = fmt.Sprintf("%d hours × %s = %s", f.HoursUsed, v, item.Amount.StringFixed(2))
		}
	}
	return item
}

// Summarize totals the items and manual deductions against income. Money
// fields are rounded to cents.
func Summarize(income decimal.Decimal, hours int64, items []Item, manual decimal.Decimal) Totals {
	once, multiple := decimal.Zero, decimal.Zero
	for _, it := range items {
		if it.Frequency == deduction.FrequencyOnce {
			once = once.Add(it.Amount)
		} else {
			multiple = multiple.Add(it.Amount)
		}
	}
	total := once.Add(multiple).Add(manual)
	profit := income.Sub(total)
	rate := decimal.Zero
	if income.IsPositive() {
		rate = profit.Div(income).Mul(hundred)
	}
	return Totals{
		TotalIncome:             income.Round(2),
		TotalHours:              hours,
		TotalDeductions:         total.Round(2),
		TotalOnceDeductions:     once.Round(2),
		TotalMultipleDeductions: multiple.Round(2),
		TotalManualDeductions:   manual.Round(2),
		Profit:                  profit.Round(2),
		ProfitRate:              rate.Round(2),
	}
}

func roundItems(items []Item) {
	for i := range items {
		items[i].Amount = items[i].Amount.Round(2)
	}
}
