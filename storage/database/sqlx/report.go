package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/ecole/core"
	"github.com/trezcool/ecole/core/report"
)

type reportRepository struct {
	baseRepository
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(exec core.DBExecutor) *reportRepository {
	return &reportRepository{baseRepository{exec: exec}}
}

func (repo reportRepository) GetBulletinHeader(ctx context.Context, enrollmentID int, exec ...core.DBExecutor) (report.Header, error) {
	exe := repo.getExec(exec)
	q := exe.Rebind(`SELECT e.id AS enrollment_id, s.id AS student_id, s.name AS student_name, s.matricule,
			c.id AS class_id, c.name AS class_name, e.academic_year
		FROM enrollments e
			JOIN students s ON s.id = e.student_id
			JOIN classes c ON c.id = e.class_id
		WHERE e.id = ?`)

	var h report.Header
	if err := exe.GetContext(ctx, &h, q, enrollmentID); err != nil {
		return report.Header{}, trapNoRowsErr(err, report.ErrNotFound, "finding enrollment")
	}
	return h, nil
}

func (repo reportRepository) QueryBulletinLines(ctx context.Context, enrollmentID int, exec ...core.DBExecutor) ([]report.Line, error) {
	exe := repo.getExec(exec)
	q := exe.Rebind(`SELECT r.subject_id, sj.name AS subject_name, sj.coefficient, r.score, r.semester
		FROM results r
			JOIN subjects sj ON sj.id = r.subject_id
		WHERE r.enrollment_id = ?
		ORDER BY r.semester, sj.name, r.subject_id`)

	lines := make([]report.Line, 0)
	if err := exe.SelectContext(ctx, &lines, q, enrollmentID); err != nil {
		return nil, errors.Wrap(err, "querying bulletin lines")
	}
	return lines, nil
}

type gradeRecordRow struct {
	EnrollmentID int `db:"enrollment_id"`
	report.GradeRecord
}

func (repo reportRepository) QueryGradeRecords(ctx context.Context, academicYear string, exec ...core.DBExecutor) (map[int][]report.GradeRecord, error) {
	exe := repo.getExec(exec)
	q := exe.Rebind(`SELECT r.enrollment_id, sj.coefficient, r.score, r.semester
		FROM results r
			JOIN subjects sj ON sj.id = r.subject_id
			JOIN enrollments e ON e.id = r.enrollment_id
		WHERE e.academic_year = ?`)

	var rows []gradeRecordRow
	if err := exe.SelectContext(ctx, &rows, q, academicYear); err != nil {
		return nil, errors.Wrap(err, "querying grade records")
	}
	grades := make(map[int][]report.GradeRecord)
	for _, r := range rows {
		grades[r.EnrollmentID] = append(grades[r.EnrollmentID], r.GradeRecord)
	}
	return grades, nil
}
