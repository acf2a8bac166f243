package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/ecole/core"
	"github.com/trezcool/ecole/core/school"
)

const (
	feeColumns       = "id, student_id, class_id, total_fee, payment_method, amount_paid, remaining_amount, status"
	timetableColumns = "id, day, start_time, end_time, subject_id, class_id, room_id, teacher_id"
)

// Fees

func (repo schoolRepository) CreateFee(ctx context.Context, f school.SchoolFee, exec ...core.DBExecutor) (school.SchoolFee, error) {
	q := `INSERT INTO school_fees (student_id, class_id, total_fee, payment_method, amount_paid, remaining_amount, status)
		VALUES (:student_id, :class_id, :total_fee, :payment_method, :amount_paid, :remaining_amount, :status) RETURNING id`
	id, err := insertReturningID(ctx, repo.getExec(exec), q, f)
	if err != nil {
		return school.SchoolFee{}, errors.Wrap(err, "inserting school fee")
	}
	f.ID = id
	return f, nil
}

func (repo schoolRepository) GetFee(ctx context.Context, id int, exec ...core.DBExecutor) (school.SchoolFee, error) {
	var f school.SchoolFee
	err := repo.getByID(ctx, repo.getExec(exec), &f, "school_fees", feeColumns, id)
	return f, err
}

func (repo schoolRepository) QueryFees(ctx context.Context, filter *school.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]school.SchoolFee, error) {
	where := &whereClause{}
	if filter != nil {
		if filter.StudentID != 0 {
			where.add("student_id = ?", filter.StudentID)
		}
		if filter.ClassID != 0 {
			where.add("class_id = ?", filter.ClassID)
		}
		if filter.Status != "" {
			where.add("status = ?", filter.Status)
		}
	}

	fees := make([]school.SchoolFee, 0)
	orderBy := core.OrderByClause(ordering, "id ASC", "student_id", "total_fee", "amount_paid", "remaining_amount", "status")
	if err := repo.selectWhere(ctx, repo.getExec(exec), &fees, "school_fees", feeColumns, where, orderBy); err != nil {
		return nil, err
	}
	return fees, nil
}

func (repo schoolRepository) UpdateFee(ctx context.Context, f school.SchoolFee, exec ...core.DBExecutor) (school.SchoolFee, error) {
	q := `UPDATE school_fees SET student_id = :student_id, class_id = :class_id, total_fee = :total_fee,
		payment_method = :payment_method, amount_paid = :amount_paid, remaining_amount = :remaining_amount, status = :status
		WHERE id = :id`
	if err := repo.update(ctx, repo.getExec(exec), q, f, "school_fees"); err != nil {
		return school.SchoolFee{}, err
	}
	return f, nil
}

func (repo schoolRepository) DeleteFee(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return repo.deleteByID(ctx, repo.getExec(exec), "school_fees", id)
}

// Timetable

func (repo schoolRepository) CreateTimetableEntry(ctx context.Context, e school.TimetableEntry, exec ...core.DBExecutor) (school.TimetableEntry, error) {
	q := `INSERT INTO timetable (day, start_time, end_time, subject_id, class_id, room_id, teacher_id)
		VALUES (:day, :start_time, :end_time, :subject_id, :class_id, :room_id, :teacher_id) RETURNING id`
	id, err := insertReturningID(ctx, repo.getExec(exec), q, e)
	if err != nil {
		return school.TimetableEntry{}, errors.Wrap(err, "inserting timetable entry")
	}
	e.ID = id
	return e, nil
}

func (repo schoolRepository) GetTimetableEntry(ctx context.Context, id int, exec ...core.DBExecutor) (school.TimetableEntry, error) {
	var e school.TimetableEntry
	err := repo.getByID(ctx, repo.getExec(exec), &e, "timetable", timetableColumns, id)
	return e, err
}

func (repo schoolRepository) QueryTimetable(ctx context.Context, filter *school.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]school.TimetableEntry, error) {
	where := &whereClause{}
	if filter != nil {
		if filter.ClassID != 0 {
			where.add("class_id = ?", filter.ClassID)
		}
		if filter.TeacherID != 0 {
			where.add("teacher_id = ?", filter.TeacherID)
		}
		if filter.SubjectID != 0 {
			where.add("subject_id = ?", filter.SubjectID)
		}
		if filter.Day != "" {
			where.add("day = ?", filter.Day)
		}
	}

	entries := make([]school.TimetableEntry, 0)
	orderBy := core.OrderByClause(ordering, "day ASC, start_time ASC", "day", "start_time", "end_time")
	if err := repo.selectWhere(ctx, repo.getExec(exec), &entries, "timetable", timetableColumns, where, orderBy); err != nil {
		return nil, err
	}
	return entries, nil
}

func (repo schoolRepository) UpdateTimetableEntry(ctx context.Context, e school.TimetableEntry, exec ...core.DBExecutor) (school.TimetableEntry, error) {
	q := `UPDATE timetable SET day = :day, start_time = :start_time, end_time = :end_time, subject_id = :subject_id,
		class_id = :class_id, room_id = :room_id, teacher_id = :teacher_id
		WHERE id = :id`
	if err := repo.update(ctx, repo.getExec(exec), q, e, "timetable"); err != nil {
		return school.TimetableEntry{}, err
	}
	return e, nil
}

func (repo schoolRepository) DeleteTimetableEntry(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return repo.deleteByID(ctx, repo.getExec(exec), "timetable", id)
}

func (repo schoolRepository) FindTimetableConflict(ctx context.Context, e school.TimetableEntry, exec ...core.DBExecutor) (school.TimetableEntry, error) {
	exe := repo.getExec(exec)
	q := exe.Rebind("SELECT " + timetableColumns + ` FROM timetable
		WHERE day = ? AND start_time < ? AND end_time > ? AND id <> ?
			AND (class_id = ? OR room_id = ? OR teacher_id = ?)
		ORDER BY start_time LIMIT 1`)

	var other school.TimetableEntry
	err := exe.GetContext(ctx, &other, q, e.Day, e.EndTime, e.StartTime, e.ID, e.ClassID, e.RoomID, e.TeacherID)
	if err != nil {
		return school.TimetableEntry{}, trapNoRowsErr(err, school.ErrNotFound, "finding timetable conflict")
	}
	return other, nil
}
