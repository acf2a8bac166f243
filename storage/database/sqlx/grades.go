package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/ecole/core"
	"github.com/trezcool/ecole/core/school"
)

const (
	subjectColumns    = "id, name, coefficient, class_id, teacher_id"
	enrollmentColumns = "id, student_id, class_id, academic_year"
	resultColumns     = "id, enrollment_id, subject_id, score, semester"
)

// Subjects

func (repo schoolRepository) CreateSubject(ctx context.Context, s school.Subject, exec ...core.DBExecutor) (school.Subject, error) {
	q := `INSERT INTO subjects (name, coefficient, class_id, teacher_id)
		VALUES (:name, :coefficient, :class_id, :teacher_id) RETURNING id`
	id, err := insertReturningID(ctx, repo.getExec(exec), q, s)
	if err != nil {
		return school.Subject{}, errors.Wrap(err, "inserting subject")
	}
	s.ID = id
	return s, nil
}

func (repo schoolRepository) GetSubject(ctx context.Context, id int, exec ...core.DBExecutor) (school.Subject, error) {
	var s school.Subject
	err := repo.getByID(ctx, repo.getExec(exec), &s, "subjects", subjectColumns, id)
	return s, err
}

func (repo schoolRepository) QuerySubjects(ctx context.Context, filter *school.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]school.Subject, error) {
	where := &whereClause{}
	if filter != nil {
		if filter.Search != "" {
			where.add("LOWER(name) LIKE ?", likeValue(filter.Search))
		}
		if filter.ClassID != 0 {
			where.add("class_id = ?", filter.ClassID)
		}
		if filter.TeacherID != 0 {
			where.add("teacher_id = ?", filter.TeacherID)
		}
	}

	subjects := make([]school.Subject, 0)
	orderBy := core.OrderByClause(ordering, "name ASC", "name", "coefficient")
	if err := repo.selectWhere(ctx, repo.getExec(exec), &subjects, "subjects", subjectColumns, where, orderBy); err != nil {
		return nil, err
	}
	return subjects, nil
}

func (repo schoolRepository) UpdateSubject(ctx context.Context, s school.Subject, exec ...core.DBExecutor) (school.Subject, error) {
	q := `UPDATE subjects SET name = :name, coefficient = :coefficient, class_id = :class_id, teacher_id = :teacher_id
		WHERE id = :id`
	if err := repo.update(ctx, repo.getExec(exec), q, s, "subjects"); err != nil {
		return school.Subject{}, err
	}
	return s, nil
}

func (repo schoolRepository) DeleteSubject(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return repo.deleteByID(ctx, repo.getExec(exec), "subjects", id)
}

// Enrollments

func (repo schoolRepository) CreateEnrollment(ctx context.Context, e school.Enrollment, exec ...core.DBExecutor) (school.Enrollment, error) {
	q := `INSERT INTO enrollments (student_id, class_id, academic_year)
		VALUES (:student_id, :class_id, :academic_year) RETURNING id`
	id, err := insertReturningID(ctx, repo.getExec(exec), q, e)
	if err != nil {
		return school.Enrollment{}, trapUniqueErr(err, school.ErrDuplicate, "inserting enrollment")
	}
	e.ID = id
	return e, nil
}

func (repo schoolRepository) GetEnrollment(ctx context.Context, id int, exec ...core.DBExecutor) (school.Enrollment, error) {
	var e school.Enrollment
	err := repo.getByID(ctx, repo.getExec(exec), &e, "enrollments", enrollmentColumns, id)
	return e, err
}

func (repo schoolRepository) GetStudentEnrollment(ctx context.Context, studentID int, academicYear string, exec ...core.DBExecutor) (school.Enrollment, error) {
	exe := repo.getExec(exec)
	var e school.Enrollment
	q := exe.Rebind("SELECT " + enrollmentColumns + " FROM enrollments WHERE student_id = ? AND academic_year = ?")
	if err := exe.GetContext(ctx, &e, q, studentID, academicYear); err != nil {
		return school.Enrollment{}, trapNoRowsErr(err, school.ErrNotFound, "finding student enrollment")
	}
	return e, nil
}

func (repo schoolRepository) QueryEnrollments(ctx context.Context, filter *school.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]school.Enrollment, error) {
	where := &whereClause{}
	if filter != nil {
		if filter.StudentID != 0 {
			where.add("student_id = ?", filter.StudentID)
		}
		if filter.ClassID != 0 {
			where.add("class_id = ?", filter.ClassID)
		}
		if filter.AcademicYear != "" {
			where.add("academic_year = ?", filter.AcademicYear)
		}
	}

	enrollments := make([]school.Enrollment, 0)
	orderBy := core.OrderByClause(ordering, "academic_year DESC, id ASC", "academic_year", "student_id", "class_id")
	if err := repo.selectWhere(ctx, repo.getExec(exec), &enrollments, "enrollments", enrollmentColumns, where, orderBy); err != nil {
		return nil, err
	}
	return enrollments, nil
}

func (repo schoolRepository) UpdateEnrollment(ctx context.Context, e school.Enrollment, exec ...core.DBExecutor) (school.Enrollment, error) {
	q := `UPDATE enrollments SET student_id = :student_id, class_id = :class_id, academic_year = :academic_year
		WHERE id = :id`
	if err := repo.update(ctx, repo.getExec(exec), q, e, "enrollments"); err != nil {
		return school.Enrollment{}, err
	}
	return e, nil
}

func (repo schoolRepository) DeleteEnrollment(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return repo.deleteByID(ctx, repo.getExec(exec), "enrollments", id)
}

// Results

func (repo schoolRepository) CreateResult(ctx context.Context, r school.Result, exec ...core.DBExecutor) (school.Result, error) {
	q := `INSERT INTO results (enrollment_id, subject_id, score, semester)
		VALUES (:enrollment_id, :subject_id, :score, :semester) RETURNING id`
	id, err := insertReturningID(ctx, repo.getExec(exec), q, r)
	if err != nil {
		return school.Result{}, trapUniqueErr(err, school.ErrDuplicate, "inserting result")
	}
	r.ID = id
	return r, nil
}

func (repo schoolRepository) GetResult(ctx context.Context, id int, exec ...core.DBExecutor) (school.Result, error) {
	var r school.Result
	err := repo.getByID(ctx, repo.getExec(exec), &r, "results", resultColumns, id)
	return r, err
}

func (repo schoolRepository) QueryResults(ctx context.Context, filter *school.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]school.Result, error) {
	where := &whereClause{}
	if filter != nil {
		if filter.EnrollmentID != 0 {
			where.add("enrollment_id = ?", filter.EnrollmentID)
		}
		if filter.SubjectID != 0 {
			where.add("subject_id = ?", filter.SubjectID)
		}
		if filter.Semester != 0 {
			where.add("semester = ?", filter.Semester)
		}
		if filter.StudentID != 0 || filter.ClassID != 0 || filter.AcademicYear != "" {
			sub := &whereClause{}
			if filter.StudentID != 0 {
				sub.add("student_id = ?", filter.StudentID)
			}
			if filter.ClassID != 0 {
				sub.add("class_id = ?", filter.ClassID)
			}
			if filter.AcademicYear != "" {
				sub.add("academic_year = ?", filter.AcademicYear)
			}
			where.add("enrollment_id IN (SELECT id FROM enrollments"+sub.String()+")", sub.args...)
		}
	}

	results := make([]school.Result, 0)
	orderBy := core.OrderByClause(ordering, "enrollment_id ASC, semester ASC, subject_id ASC", "enrollment_id", "subject_id", "semester", "score")
	if err := repo.selectWhere(ctx, repo.getExec(exec), &results, "results", resultColumns, where, orderBy); err != nil {
		return nil, err
	}
	return results, nil
}

func (repo schoolRepository) UpdateResult(ctx context.Context, r school.Result, exec ...core.DBExecutor) (school.Result, error) {
	q := `UPDATE results SET enrollment_id = :enrollment_id, subject_id = :subject_id, score = :score, semester = :semester
		WHERE id = :id`
	if err := repo.update(ctx, repo.getExec(exec), q, r, "results"); err != nil {
		return school.Result{}, err
	}
	return r, nil
}

func (repo schoolRepository) UpsertResult(ctx context.Context, r school.Result, exec ...core.DBExecutor) (school.Result, error) {
	q := `INSERT INTO results (enrollment_id, subject_id, score, semester)
		VALUES (:enrollment_id, :subject_id, :score, :semester)
		ON CONFLICT (enrollment_id, subject_id, semester) DO UPDATE SET score = excluded.score
		RETURNING id`
	id, err := insertReturningID(ctx, repo.getExec(exec), q, r)
	if err != nil {
		return school.Result{}, errors.Wrap(err, "upserting result")
	}
	r.ID = id
	return r, nil
}

func (repo schoolRepository) DeleteResult(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return repo.deleteByID(ctx, repo.getExec(exec), "results", id)
}
