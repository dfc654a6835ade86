package deductions

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/classledger/internal/app/domain/deduction"
	"github.com/R3E-Network/classledger/internal/app/domain/ledger"
	"github.com/R3E-Network/classledger/internal/app/domain/student"
	svcerrors "github.com/R3E-Network/classledger/internal/errors"
	"github.com/R3E-Network/classledger/internal/logging"
	"github.com/R3E-Network/classledger/pkg/testutil"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestConfigValidation(t *testing.T) {
	ctx := context.Background()
	svc := New(testutil.NewStore(t), logging.NewDiscard("deductions"))

	cases := []struct {
		name string
		in   ConfigInput
	}{
		{"missing name", ConfigInput{Type: deduction.TypeFixed, Value: dec("1")}},
		{"bad type", ConfigInput{Name: "x", Type: "flat", Value: dec("1")}},
		{"missing value", ConfigInput{Name: "x", Type: deduction.TypeFixed}},
		{"negative value", ConfigInput{Name: "x", Type: deduction.TypeFixed, Value: dec("-1")}},
		{"percentage over 100", ConfigInput{Name: "x", Type: deduction.TypePercentage, Value: dec("100.01")}},
		{"bad frequency", ConfigInput{Name: "x", Type: deduction.TypeFixed, Value: dec("1"), Frequency: "daily"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateConfig(ctx, tc.in)
			if !svcerrors.HasCode(err, svcerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestConfigCreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	svc := New(testutil.NewStore(t), logging.NewDiscard("deductions"))

	created, err := svc.CreateConfig(ctx, ConfigInput{Name: " Rent ", Type: deduction.TypePercentage, Value: dec("15")})
	require.NoError(t, err)
	assert.Equal(t, "Rent", created.Name)
	assert.Equal(t, deduction.FrequencyOnce, created.Frequency)
	assert.True(t, created.IsActive)

	inactive := false
	updated, err := svc.UpdateConfig(ctx, created.ID, ConfigInput{Name: "Rent", Type: deduction.TypePercentage,
		Value: dec("12.5"), Frequency: deduction.FrequencyMultiple, IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, deduction.FrequencyMultiple, updated.Frequency)
	assert.True(t, updated.Value.Equal(decimal.RequireFromString("12.5")))

	_, err = svc.UpdateConfig(ctx, 999, ConfigInput{Name: "x", Type: deduction.TypeFixed, Value: dec("1")})
	assert.True(t, svcerrors.HasCode(err, svcerrors.CodeNotFound))

	all, err := svc.ListConfigs(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSetStudentDeductions(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	svc := New(store, logging.NewDiscard("deductions"))

	st, err := store.CreateStudent(ctx, student.Student{Name: "Ann", Phone: "1"})
	require.NoError(t, err)
	a, err := svc.CreateConfig(ctx, ConfigInput{Name: "A", Type: deduction.TypeFixed, Value: dec("10")})
	require.NoError(t, err)
	b, err := svc.CreateConfig(ctx, ConfigInput{Name: "B", Type: deduction.TypePerHour, Value: dec("5"),
		Frequency: deduction.FrequencyMultiple})
	require.NoError(t, err)

	applied, err := svc.SetStudentDeductions(ctx, st.ID, []int64{a.ID, b.ID, a.ID})
	require.NoError(t, err)
	assert.Len(t, applied, 2)

	options, err := svc.StudentDeductions(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, options, 2)
	for _, o := range options {
		assert.True(t, o.Selected)
	}

	applied, err = svc.SetStudentDeductions(ctx, st.ID, []int64{b.ID})
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, b.ID, applied[0].ConfigID)
	assert.Zero(t, applied[0].AppliedCount)

	_, err = svc.SetStudentDeductions(ctx, st.ID, []int64{b.ID, 999})
	assert.True(t, svcerrors.HasCode(err, svcerrors.CodeBadRequest))
	applied, err = store.ListStudentDeductions(ctx, st.ID)
	require.NoError(t, err)
	assert.Len(t, applied, 1, "failed replacement must leave the previous set")

	_, err = svc.SetStudentDeductions(ctx, 999, nil)
	assert.True(t, svcerrors.HasCode(err, svcerrors.CodeNotFound))
	_, err = svc.StudentDeductions(ctx, 999)
	assert.True(t, svcerrors.HasCode(err, svcerrors.CodeNotFound))
}

func TestSetStudentDeductionsKeepsAppliedCounts(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	svc := New(store, logging.NewDiscard("deductions"))

	st, err := store.CreateStudent(ctx, student.Student{Name: "Ann", Phone: "1"})
	require.NoError(t, err)
	monthly, err := svc.CreateConfig(ctx, ConfigInput{Name: "Monthly", Type: deduction.TypeFixed, Value: dec("10"),
		Frequency: deduction.FrequencyMultiple})
	require.NoError(t, err)
	other, err := svc.CreateConfig(ctx, ConfigInput{Name: "Other", Type: deduction.TypePerHour, Value: dec("2"),
		Frequency: deduction.FrequencyMultiple})
	require.NoError(t, err)

	applied, err := svc.SetStudentDeductions(ctx, st.ID, []int64{monthly.ID})
	require.NoError(t, err)
	require.Len(t, applied, 1)
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.IncrementStudentDeduction(ctx, applied[0].AssignmentID, at))
	}

	applied, err = svc.SetStudentDeductions(ctx, st.ID, []int64{monthly.ID, other.ID})
	require.NoError(t, err)
	byConfig := map[int64]deduction.Applied{}
	for _, a := range applied {
		byConfig[a.ConfigID] = a
	}
	require.Len(t, byConfig, 2)
	assert.Equal(t, 3, byConfig[monthly.ID].AppliedCount)
	require.NotNil(t, byConfig[monthly.ID].LastAppliedAt)
	assert.True(t, at.Equal(*byConfig[monthly.ID].LastAppliedAt))
	assert.Zero(t, byConfig[other.ID].AppliedCount)

	applied, err = svc.SetStudentDeductions(ctx, st.ID, []int64{other.ID})
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, other.ID, applied[0].ConfigID)

	applied, err = svc.SetStudentDeductions(ctx, st.ID, []int64{other.ID, monthly.ID})
	require.NoError(t, err)
	for _, a := range applied {
		assert.Zero(t, a.AppliedCount, "re-attached rules start over")
	}
}

func TestDetails(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	svc := New(store, logging.NewDiscard("deductions"))

	ann, err := store.CreateStudent(ctx, student.Student{Name: "Ann", Phone: "1"})
	require.NoError(t, err)
	bob, err := store.CreateStudent(ctx, student.Student{Name: "Bob", Phone: "2"})
	require.NoError(t, err)
	bobClass, err := store.CreateClass(ctx, ledger.Class{StudentID: bob.ID, HoursUsed: 2, Date: "2024-05-01"})
	require.NoError(t, err)
	annClass, err := store.CreateClass(ctx, ledger.Class{StudentID: ann.ID, HoursUsed: 1, Date: "2024-05-02"})
	require.NoError(t, err)

	in := DetailInput{DeductionType: deduction.DetailTeacherFee, Amount: decimal.NewFromInt(80),
		Date: "2024-05-02", Operator: "admin", RelatedClassID: &bobClass.ID}
	_, err = svc.CreateDetail(ctx, ann.ID, in)
	assert.True(t, svcerrors.HasCode(err, svcerrors.CodeBadRequest))

	missing := int64(999)
	in.RelatedClassID = &missing
	_, err = svc.CreateDetail(ctx, ann.ID, in)
	assert.True(t, svcerrors.HasCode(err, svcerrors.CodeBadRequest))

	in.RelatedClassID = &annClass.ID
	created, err := svc.CreateDetail(ctx, ann.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Ann", created.StudentName)
	require.NotNil(t, created.RelatedClassHours)
	assert.Equal(t, 1, *created.RelatedClassHours)

	for i := 0; i < 4; i++ {
		_, err := svc.CreateDetail(ctx, bob.ID, DetailInput{DeductionType: deduction.DetailMaterialFee,
			Amount: decimal.NewFromInt(10), Date: "2024-05-0" + string(rune('3'+i)), Operator: "admin"})
		require.NoError(t, err)
	}

	page, err := svc.ListDetails(ctx, DetailQuery{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.List, 2)
	assert.Equal(t, Pagination{Page: 2, Limit: 2, Total: 5, Pages: 3}, page.Pagination)

	page, err = svc.ListDetails(ctx, DetailQuery{Limit: 1000, Type: deduction.DetailTeacherFee})
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, page.Pagination.Limit)
	assert.Equal(t, int64(1), page.Pagination.Total)

	list, err := svc.ListStudentDetails(ctx, bob.ID, DetailQuery{StartDate: "2024-05-05"})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = svc.ListDetails(ctx, DetailQuery{Page: math.MaxInt, Limit: MaxPageSize})
	assert.True(t, svcerrors.HasCode(err, svcerrors.CodeValidation), "got %v", err)
	page, err = svc.ListDetails(ctx, DetailQuery{Page: MaxPage, Limit: MaxPageSize})
	require.NoError(t, err)
	assert.Empty(t, page.List)

	_, err = svc.ListDetails(ctx, DetailQuery{StartDate: "05/01/2024"})
	assert.True(t, svcerrors.HasCode(err, svcerrors.CodeInvalidFormat))

	in.Amount = decimal.NewFromInt(95)
	in.RelatedClassID = nil
	updated, err := svc.UpdateDetail(ctx, created.ID, in)
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(decimal.NewFromInt(95)))
	assert.Nil(t, updated.RelatedClassID)
	assert.Equal(t, ann.ID, updated.StudentID)

	deleted, err := svc.DeleteDetail(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)
	_, err = svc.DeleteDetail(ctx, created.ID)
	assert.True(t, svcerrors.HasCode(err, svcerrors.CodeNotFound))
}

func TestDetailValidation(t *testing.T) {
	ctx := context.Background()
	svc := New(testutil.NewStore(t), logging.NewDiscard("deductions"))

	base := DetailInput{DeductionType: deduction.DetailOtherFee, Amount: decimal.NewFromInt(1), Date: "2024-01-01", Operator: "op"}
	bad := []DetailInput{
		{DeductionType: "rent", Amount: base.Amount, Date: base.Date, Operator: base.Operator},
		{DeductionType: base.DeductionType, Amount: decimal.Zero, Date: base.Date, Operator: base.Operator},
		{DeductionType: base.DeductionType, Amount: base.Amount, Date: "2024-13-01", Operator: base.Operator},
		{DeductionType: base.DeductionType, Amount: base.Amount, Date: base.Date, Operator: " "},
	}
	for i, in := range bad {
		if _, err := svc.CreateDetail(ctx, 1, in); err == nil || svcerrors.GetServiceError(err) == nil {
			t.Fatalf("case %d: expected service error, got %v", i, err)
		}
	}
	_, err := svc.CreateDetail(ctx, 1, base)
	assert.True(t, svcerrors.HasCode(err, svcerrors.CodeNotFound))
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	svc := New(testutil.NewStore(t), logging.NewDiscard("deductions"))

	presets := []ConfigInput{
		{Name: "Registration fee", Type: deduction.TypeFixed, Value: dec("50")},
		{Name: "Platform share", Type: deduction.TypePercentage, Value: dec("10"), Frequency: deduction.FrequencyMultiple},
	}
	n, err := svc.Seed(ctx, presets)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = svc.Seed(ctx, presets)
	require.NoError(t, err)
	assert.Zero(t, n, "seeding twice is a no-op")

	_, err = svc.Seed(ctx, []ConfigInput{{Name: "broken", Type: deduction.TypeFixed}})
	assert.True(t, svcerrors.HasCode(err, svcerrors.CodeValidation))
}
