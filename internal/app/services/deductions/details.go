package deductions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/R3E-Network/classledger/internal/app/domain/deduction"
	"github.com/R3E-Network/classledger/internal/app/domain/ledger"
	"github.com/R3E-Network/classledger/internal/app/storage"
	svcerrors "github.com/R3E-Network/classledger/internal/errors"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage keeps the row offset well inside int range.
	MaxPage = 1_000_000
)

// DetailInput is a manual deduction as submitted by a client.
type DetailInput struct {
	DeductionType  deduction.DetailType `json:"deduction_type"`
	Amount         decimal.Decimal      `json:"amount"`
	Description    string               `json:"description"`
	Date           string               `json:"date"`
	Operator       string               `json:"operator"`
	RelatedClassID *int64               `json:"related_class_id"`
}

func (in DetailInput) validate() error {
	if !in.DeductionType.Valid() {
		return svcerrors.Validation("deduction_type must be one of teacher_fee, material_fee, equipment_fee, other_fee")
	}
	if !in.Amount.IsPositive() {
		return svcerrors.Validation("amount must be greater than 0")
	}
	if !ledger.ValidDate(in.Date) {
		return svcerrors.InvalidFormat("date", "YYYY-MM-DD")
	}
	if strings.TrimSpace(in.Operator) == "" {
		return svcerrors.Validation("operator is required")
	}
	return nil
}

// DetailQuery filters detail listings. Page is 1-based.
type DetailQuery struct {
	StudentID int64
	Type      deduction.DetailType
	StartDate string
	EndDate   string
	Page      int
	Limit     int
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// DetailPage is one page of details.
type DetailPage struct {
	List       []deduction.Detail `json:"list"`
	Pagination Pagination         `json:"pagination"`
}

func (q DetailQuery) validate() error {
	if q.Type != "" && !q.Type.Valid() {
		return svcerrors.Validation("unknown deduction_type")
	}
	if q.StartDate != "" && !ledger.ValidDate(q.StartDate) {
		return svcerrors.InvalidFormat("start_date", "YYYY-MM-DD")
	}
	if q.EndDate != "" && !ledger.ValidDate(q.EndDate) {
		return svcerrors.InvalidFormat("end_date", "YYYY-MM-DD")
	}
	return nil
}

// CreateDetail records a manual deduction for a student.
func (s *Service) CreateDetail(ctx context.Context, studentID int64, in DetailInput) (deduction.Detail, error) {
	if err := in.validate(); err != nil {
		return deduction.Detail{}, err
	}
	var created deduction.Detail
	err := s.store.WithTx(ctx, func(repo storage.Repository) error {
		if _, err := repo.GetStudent(ctx, studentID); err != nil {
			return notFound(err, "student")
		}
		if err := checkRelatedClass(ctx, repo, studentID, in.RelatedClassID); err != nil {
			return err
		}
		var err error
		created, err = repo.CreateDeductionDetail(ctx, detailFrom(studentID, in))
		return err
	})
	if err != nil {
		return deduction.Detail{}, err
	}
	s.log.WithContext(ctx).
		WithField("detail_id", created.ID).
		WithField("student_id", studentID).
		WithField("deduction_type", created.DeductionType).
		Info("deduction detail recorded")
	return created, nil
}

// ListStudentDetails returns every detail of one student matching q.
func (s *Service) ListStudentDetails(ctx context.Context, studentID int64, q DetailQuery) ([]deduction.Detail, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetStudent(ctx, studentID); err != nil {
		return nil, notFound(err, "student")
	}
	details, _, err := s.store.ListDeductionDetails(ctx, deduction.DetailFilter{
		StudentID: studentID,
		Type:      q.Type,
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
	})
	return details, err
}

// ListDetails returns one page of details across students.
func (s *Service) ListDetails(ctx context.Context, q DetailQuery) (DetailPage, error) {
	if err := q.validate(); err != nil {
		return DetailPage{}, err
	}
	if q.Page > MaxPage {
		return DetailPage{}, svcerrors.Validation(fmt.Sprintf("page must not exceed %d", MaxPage))
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	details, total, err := s.store.ListDeductionDetails(ctx, deduction.DetailFilter{
		StudentID: q.StudentID,
		Type:      q.Type,
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Limit:     q.Limit,
		Offset:    (q.Page - 1) * q.Limit,
	})
	if err != nil {
		return DetailPage{}, err
	}
	limit := int64(q.Limit)
	return DetailPage{
		List: details,
		Pagination: Pagination{
			Page:  q.Page,
			Limit: q.Limit,
			Total: total,
			Pages: (total + limit - 1) / limit,
		},
	}, nil
}

// UpdateDetail replaces a detail. The student cannot change.
func (s *Service) UpdateDetail(ctx context.Context, id int64, in DetailInput) (deduction.Detail, error) {
	if err := in.validate(); err != nil {
		return deduction.Detail{}, err
	}
	var updated deduction.Detail
	err := s.store.WithTx(ctx, func(repo storage.Repository) error {
		existing, err := repo.GetDeductionDetail(ctx, id)
		if err != nil {
			return notFound(err, "deduction detail")
		}
		if err := checkRelatedClass(ctx, repo, existing.StudentID, in.RelatedClassID); err != nil {
			return err
		}
		d := detailFrom(existing.StudentID, in)
		d.ID = id
		updated, err = repo.UpdateDeductionDetail(ctx, d)
		return err
	})
	if err != nil {
		return deduction.Detail{}, err
	}
	s.log.WithContext(ctx).WithField("detail_id", id).Info("deduction detail updated")
	return updated, nil
}

// DeleteDetail removes a detail and returns it.
func (s *Service) DeleteDetail(ctx context.Context, id int64) (deduction.Detail, error) {
	var deleted deduction.Detail
	err := s.store.WithTx(ctx, func(repo storage.Repository) error {
		d, err := repo.GetDeductionDetail(ctx, id)
		if err != nil {
			return notFound(err, "deduction detail")
		}
		if err := repo.DeleteDeductionDetail(ctx, id); err != nil {
			return err
		}
		deleted = d
		return nil
	})
	if err != nil {
		return deduction.Detail{}, err
	}
	s.log.WithContext(ctx).WithField("detail_id", id).Info("deduction detail deleted")
	return deleted, nil
}

func checkRelatedClass(ctx context.Context, repo storage.Repository, studentID int64, classID *int64) error {
	if classID == nil {
		return nil
	}
	class, err := repo.GetClass(ctx, *classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return svcerrors.BadRequest("related class does not exist")
		}
		return err
	}
	if class.StudentID != studentID {
		return svcerrors.BadRequest("related class belongs to another student")
	}
	return nil
}

func detailFrom(studentID int64, in DetailInput) deduction.Detail {
	return deduction.Detail{
		StudentID:      studentID,
		DeductionType:  in.DeductionType,
		Amount:         in.Amount,
		Description:    strings.TrimSpace(in.Description),
		Date:           in.Date,
		Operator:       strings.TrimSpace(in.Operator),
		RelatedClassID: in.RelatedClassID,
	}
}
