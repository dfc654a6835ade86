package profit

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/R3E-Network/classledger/internal/app/domain/deduction"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestStudentItem(t *testing.T) {
	figures := StudentFigures{TotalIncome: d("3000"), FirstIncome: d("1000"), HoursUsed: 12}
	cases := []struct {
		typ   deduction.Type
		freq  deduction.Frequency
		value string
		count int
		want  string
	}{
		{deduction.TypePercentage, deduction.FrequencyOnce, "10", 1, "100"},
		{deduction.TypePercentage, deduction.FrequencyMultiple, "15", 3, "450"},
		{deduction.TypeFixed, deduction.FrequencyOnce, "200", 1, "200"},
		{deduction.TypeFixed, deduction.FrequencyMultiple, "50", 3, "150"},
		{deduction.TypePerHour, deduction.FrequencyOnce, "30", 1, "30"},
		{deduction.TypePerHour, deduction.FrequencyMultiple, "25", 3, "300"},
	}
	for _, tc := range cases {
		t.Run(string(tc.typ)+"/"+string(tc.freq), func(t *testing.T) {
			item := StudentItem(deduction.Applied{Type: tc.typ, Frequency: tc.freq, Value: d(tc.value), AppliedCount: tc.count}, figures)
			if !item.Amount.Equal(d(tc.want)) {
				t.Fatalf("amount = %s, want %s", item.Amount, tc.want)
			}
			assert.NotEmpty(t, item.Calculation)
			assert.Equal(t, tc.count, *item.AppliedCount)
		})
	}
}

func TestPeriodItem(t *testing.T) {
	figures := PeriodFigures{Income: d("5000"), IncomeCount: 4, NewStudents: 3, HoursUsed: 20}
	cases := []struct {
		typ   deduction.Type
		freq  deduction.Frequency
		value string
		want  string
	}{
		{deduction.TypePercentage, deduction.FrequencyOnce, "10", "500"},
		{deduction.TypePercentage, deduction.FrequencyMultiple, "5", "250"},
		{deduction.TypeFixed, deduction.FrequencyOnce, "100", "300"},
		{deduction.TypeFixed, deduction.FrequencyMultiple, "20", "80"},
		{deduction.TypePerHour, deduction.FrequencyOnce, "10", "30"},
		{deduction.TypePerHour, deduction.FrequencyMultiple, "15", "300"},
	}
	for _, tc := range cases {
		t.Run(string(tc.typ)+"/"+string(tc.freq), func(t *testing.T) {
			item := PeriodItem(deduction.Config{Type: tc.typ, Frequency: tc.freq, Value: d(tc.value)}, figures)
			if !item.Amount.Equal(d(tc.want)) {
				t.Fatalf("amount = %s, want %s", item.Amount, tc.want)
			}
			assert.Nil(t, item.AppliedCount)
		})
	}
}

func TestSummarize(t *testing.T) {
	items := []Item{
		{Frequency: deduction.FrequencyOnce, Amount: d("100")},
		{Frequency: deduction.FrequencyMultiple, Amount: d("333.333")},
	}
	totals := Summarize(d("1000"), 8, items, d("66.667"))

	assert.True(t, totals.TotalOnceDeductions.Equal(d("100")))
	assert.True(t, totals.TotalMultipleDeductions.Equal(d("333.33")))
	assert.True(t, totals.TotalManualDeductions.Equal(d("66.67")))
	assert.True(t, totals.TotalDeductions.Equal(d("500")))
	assert.True(t, totals.Profit.Equal(d("500")))
	assert.True(t, totals.ProfitRate.Equal(d("50")))
	assert.Equal(t, int64(8), totals.TotalHours)
}

func TestSummarizeWithoutIncome(t *testing.T) {
	totals := Summarize(decimal.Zero, 0, []Item{{Frequency: deduction.FrequencyOnce, Amount: d("50")}}, decimal.Zero)
	assert.True(t, totals.Profit.Equal(d("-50")))
	assert.True(t, totals.ProfitRate.IsZero())
}
