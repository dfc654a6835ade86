package profit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/classledger/internal/app/domain/deduction"
	"github.com/R3E-Network/classledger/internal/app/domain/ledger"
	"github.com/R3E-Network/classledger/internal/app/domain/report"
	"github.com/R3E-Network/classledger/internal/app/domain/student"
	svcerrors "github.com/R3E-Network/classledger/internal/errors"
	"github.com/R3E-Network/classledger/internal/logging"
	"github.com/R3E-Network/classledger/pkg/testutil"
)

func TestStudentReport(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	svc := New(store, logging.NewDiscard("profit"))

	st, err := store.CreateStudent(ctx, student.Student{Name: "Ann", Phone: "1"})
	require.NoError(t, err)
	for _, inc := range []ledger.Income{
		{StudentID: st.ID, Amount: d("1000"), Hours: 10, Date: "2024-05-01"},
		{StudentID: st.ID, Amount: d("2000"), Hours: 20, Date: "2024-05-10"},
	} {
		_, err := store.CreateIncome(ctx, inc)
		require.NoError(t, err)
	}
	_, err = store.CreateClass(ctx, ledger.Class{StudentID: st.ID, HoursUsed: 4, Date: "2024-05-11"})
	require.NoError(t, err)

	configs := []deduction.Config{
		{Name: "Signup", Type: deduction.TypePercentage, Value: d("10"), Frequency: deduction.FrequencyOnce, IsActive: true},
		{Name: "Per hour", Type: deduction.TypePerHour, Value: d("25"), Frequency: deduction.FrequencyMultiple, IsActive: true},
		{Name: "Paused", Type: deduction.TypeFixed, Value: d("999"), Frequency: deduction.FrequencyOnce, IsActive: false},
	}
	for _, cfg := range configs {
		created, err := store.CreateDeductionConfig(ctx, cfg)
		require.NoError(t, err)
		require.NoError(t, store.AttachStudentDeduction(ctx, deduction.Assignment{StudentID: st.ID, ConfigID: created.ID, AppliedCount: 1}))
	}
	_, err = store.CreateDeductionDetail(ctx, deduction.Detail{StudentID: st.ID, DeductionType: deduction.DetailMaterialFee,
		Amount: d("50"), Date: "2024-05-11", Operator: "admin"})
	require.NoError(t, err)

	rep, err := svc.StudentReport(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", rep.Student.Name)
	assert.Len(t, rep.Deductions, 2)
	assert.True(t, rep.TotalIncome.Equal(d("3000")))
	assert.Equal(t, int64(4), rep.TotalHours)
	assert.True(t, rep.TotalOnceDeductions.Equal(d("100")), rep.TotalOnceDeductions.String())
	assert.True(t, rep.TotalMultipleDeductions.Equal(d("100")), rep.TotalMultipleDeductions.String())
	assert.True(t, rep.TotalManualDeductions.Equal(d("50")))
	assert.True(t, rep.Profit.Equal(d("2750")))
	assert.True(t, rep.ProfitRate.Equal(d("91.67")), rep.ProfitRate.String())

	_, err = svc.StudentReport(ctx, 999)
	assert.True(t, svcerrors.HasCode(err, svcerrors.CodeNotFound))
}

func TestPeriodReport(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	// Wednesday.
	clock := testutil.NewMockClock(time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC))
	svc := New(store, logging.NewDiscard("profit"), WithClock(clock.Now))

	old, err := store.CreateStudent(ctx, student.Student{Name: "Old", Phone: "1", CreatedAt: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	fresh, err := store.CreateStudent(ctx, student.Student{Name: "New", Phone: "2", CreatedAt: time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	for _, inc := range []ledger.Income{
		{StudentID: old.ID, Amount: d("500"), Hours: 5, Date: "2024-04-02"},
		{StudentID: old.ID, Amount: d("1000"), Hours: 10, Date: "2024-05-13"},
		{StudentID: fresh.ID, Amount: d("1000"), Hours: 10, Date: "2024-05-14"},
	} {
		_, err := store.CreateIncome(ctx, inc)
		require.NoError(t, err)
	}
	_, err = store.CreateClass(ctx, ledger.Class{StudentID: old.ID, HoursUsed: 2, Date: "2024-05-14"})
	require.NoError(t, err)

	for _, cfg := range []deduction.Config{
		{Name: "Card", Type: deduction.TypeFixed, Value: d("100"), Frequency: deduction.FrequencyOnce, IsActive: true},
		{Name: "Platform", Type: deduction.TypeFixed, Value: d("10"), Frequency: deduction.FrequencyMultiple, IsActive: true},
		{Name: "Rent", Type: deduction.TypePercentage, Value: d("10"), Frequency: deduction.FrequencyMultiple, IsActive: true},
	} {
		_, err := store.CreateDeductionConfig(ctx, cfg)
		require.NoError(t, err)
	}
	for _, dt := range []deduction.Detail{
		{StudentID: old.ID, DeductionType: deduction.DetailTeacherFee, Amount: d("30"), Date: "2024-05-14", Operator: "a"},
		{StudentID: old.ID, DeductionType: deduction.DetailTeacherFee, Amount: d("20"), Date: "2024-05-15", Operator: "a"},
		{StudentID: old.ID, DeductionType: deduction.DetailOtherFee, Amount: d("5"), Date: "2024-04-15", Operator: "a"},
	} {
		_, err := store.CreateDeductionDetail(ctx, dt)
		require.NoError(t, err)
	}

	week, err := svc.PeriodReport(ctx, report.PeriodWeek)
	require.NoError(t, err)
	assert.Equal(t, report.PeriodWeek, week.Period)
	assert.True(t, week.TotalIncome.Equal(d("2000")))
	assert.Equal(t, int64(2), week.TotalHours)
	// once: 1 new student × 100; multiple: 2 recharges × 10 + 10% of 2000.
	assert.True(t, week.TotalOnceDeductions.Equal(d("100")))
	assert.True(t, week.TotalMultipleDeductions.Equal(d("220")))
	assert.True(t, week.TotalManualDeductions.Equal(d("50")))
	assert.True(t, week.Profit.Equal(d("1630")))
	require.Len(t, week.Manual, 1)
	assert.Equal(t, int64(2), week.Manual[0].Count)

	all, err := svc.PeriodReport(ctx, report.PeriodAll)
	require.NoError(t, err)
	assert.True(t, all.TotalIncome.Equal(d("2500")))
	assert.True(t, all.TotalOnceDeductions.Equal(d("200")))
	assert.True(t, all.TotalManualDeductions.Equal(d("55")))
	assert.Len(t, all.Deductions, 3)
}

func TestPeriodReportExcludesFutureDates(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	clock := testutil.NewMockClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	svc := New(store, logging.NewDiscard("profit"), WithClock(clock.Now))

	st, err := store.CreateStudent(ctx, student.Student{Name: "Ann", Phone: "1", CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	_, err = store.CreateIncome(ctx, ledger.Income{StudentID: st.ID, Amount: d("800"), Hours: 8, Date: "2024-03-15"})
	require.NoError(t, err)
	_, err = store.CreateIncome(ctx, ledger.Income{StudentID: st.ID, Amount: d("300"), Hours: 3, Date: "2024-03-20"})
	require.NoError(t, err)
	for _, dt := range []deduction.Detail{
		{StudentID: st.ID, DeductionType: deduction.DetailMaterialFee, Amount: d("40"), Date: "2024-03-15", Operator: "a"},
		{StudentID: st.ID, DeductionType: deduction.DetailEquipmentFee, Amount: d("500"), Date: "2025-12-31", Operator: "a"},
	} {
		_, err := store.CreateDeductionDetail(ctx, dt)
		require.NoError(t, err)
	}

	for _, p := range []report.Period{report.PeriodToday, report.PeriodWeek, report.PeriodMonth} {
		rep, err := svc.PeriodReport(ctx, p)
		require.NoError(t, err)
		assert.True(t, rep.TotalManualDeductions.Equal(d("40")), "%s: %s", p, rep.TotalManualDeductions)
		assert.True(t, rep.TotalIncome.Equal(d("800")), "%s: %s", p, rep.TotalIncome)
	}

	all, err := svc.PeriodReport(ctx, report.PeriodAll)
	require.NoError(t, err)
	assert.True(t, all.TotalManualDeductions.Equal(d("540")))
}
