package sqlstore

import (
	"context"

	"github.com/R3E-Network/classledger/internal/app/domain/deduction"
)

const detailSelect = `
	SELECT dd.id, dd.student_id, dd.deduction_type, dd.amount, dd.description, dd.date, dd.operator,
	       dd.related_class_id, dd.created_at, dd.updated_at,
	       s.name AS student_name, s.phone AS student_phone,
	       c.hours_used AS related_class_hours, c.date AS related_class_date
	FROM deduction_details dd
	JOIN students s ON s.id = dd.student_id
	LEFT JOIN classes c ON c.id = dd.related_class_id`

func (s *Store) CreateDeductionDetail(ctx context.Context, d deduction.Detail) (deduction.Detail, error) {
	ts := now()
	id, err := s.insert(ctx, `
		INSERT INTO deduction_details
			(student_id, deduction_type, amount, description, date, operator, related_class_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, d.StudentID, d.DeductionType, d.Amount, d.Description, d.Date, d.Operator, d.RelatedClassID, ts, ts)
	if err != nil {
		return deduction.Detail{}, err
	}
	return s.GetDeductionDetail(ctx, id)
}

func (s *Store) UpdateDeductionDetail(ctx context.Context, d deduction.Detail) (deduction.Detail, error) {
	err := s.execOne(ctx, `
		UPDATE deduction_details
		SET deduction_type = ?, amount = ?, description = ?, date = ?, operator = ?, related_class_id = ?, updated_at = ?
		WHERE id = ?
	`, d.DeductionType, d.Amount, d.Description, d.Date, d.Operator, d.RelatedClassID, now(), d.ID)
	if err != nil {
		return deduction.Detail{}, err
	}
	return s.GetDeductionDetail(ctx, d.ID)
}

func (s *Store) GetDeductionDetail(ctx context.Context, id int64) (deduction.Detail, error) {
	var d deduction.Detail
	err := s.get(ctx, &d, detailSelect+` WHERE dd.id = ?`, id)
	return d, err
}

func (s *Store) DeleteDeductionDetail(ctx context.Context, id int64) error {
	return s.execOne(ctx, `DELETE FROM deduction_details WHERE id = ?`, id)
}

func (s *Store) DeleteDeductionDetailsByStudent(ctx context.Context, studentID int64) error {
	_, err := s.exec(ctx, `DELETE FROM deduction_details WHERE student_id = ?`, studentID)
	return err
}

func (s *Store) ListDeductionDetails(ctx context.Context, filter deduction.DetailFilter) ([]deduction.Detail, int64, error) {
	var conds conditions
	if filter.StudentID > 0 {
		conds.add("dd.student_id = ?", filter.StudentID)
	}
	if filter.Type != "" {
		conds.add("dd.deduction_type = ?", filter.Type)
	}
	if filter.StartDate != "" {
		conds.add("dd.date >= ?", filter.StartDate)
	}
	if filter.EndDate != "" {
		conds.add("dd.date <= ?", filter.EndDate)
	}

	total, err := s.count(ctx, `SELECT COUNT(*) FROM deduction_details dd`+conds.where(), conds.args...)
	if err != nil {
		return nil, 0, err
	}

	query := detailSelect + conds.where() + ` ORDER BY dd.date DESC, dd.id DESC`
	args := append([]interface{}{}, conds.args...)
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	details := []deduction.Detail{}
	if err := s.selectAll(ctx, &details, query, args...); err != nil {
		return nil, 0, err
	}
	return details, total, nil
}
