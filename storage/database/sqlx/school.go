package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/ecole/core"
	"github.com/trezcool/ecole/core/school"
)

const (
	studentColumns = "id, name, matricule, date_of_birth, gender"
	classColumns   = "id, name, level"
	teacherColumns = "id, first_name, last_name, phone, profession, diploma, country, photo"
	roomColumns    = "id, name, capacity, location"
)

type schoolRepository struct {
	baseRepository
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(exec core.DBExecutor) *schoolRepository {
	return &schoolRepository{baseRepository{exec: exec}}
}

func (repo schoolRepository) getByID(ctx context.Context, exe core.DBExecutor, dest interface{}, table, columns string, id int) error {
	q := exe.Rebind("SELECT " + columns + " FROM " + table + " WHERE id = ?")
	if err := exe.GetContext(ctx, dest, q, id); err != nil {
		return trapNoRowsErr(err, school.ErrNotFound, "finding "+table)
	}
	return nil
}

func (repo schoolRepository) selectWhere(ctx context.Context, exe core.DBExecutor, dest interface{}, table, columns string, where *whereClause, orderBy string) error {
	q := "SELECT " + columns + " FROM " + table + where.String() + " ORDER BY " + orderBy
	return errors.Wrap(exe.SelectContext(ctx, dest, exe.Rebind(q), where.args...), "querying "+table)
}

func (repo schoolRepository) update(ctx context.Context, exe core.DBExecutor, query string, arg interface{}, table string) error {
	if err := execNamedOne(ctx, exe, query, arg, school.ErrNotFound); err != nil {
		if isUniqueViolation(err) {
			return school.ErrDuplicate
		}
		return trapNoRowsErr(err, school.ErrNotFound, "updating "+table)
	}
	return nil
}

func (repo schoolRepository) deleteByID(ctx context.Context, exe core.DBExecutor, table string, id int) error {
	if err := execOne(ctx, exe, exe.Rebind("DELETE FROM "+table+" WHERE id = ?"), school.ErrNotFound, id); err != nil {
		return trapNoRowsErr(err, school.ErrNotFound, "deleting "+table)
	}
	return nil
}

// Students

func (repo schoolRepository) CreateStudent(ctx context.Context, s school.Student, exec ...core.DBExecutor) (school.Student, error) {
	q := `INSERT INTO students (name, matricule, date_of_birth, gender)
		VALUES (:name, :matricule, :date_of_birth, :gender) RETURNING id`
	id, err := insertReturningID(ctx, repo.getExec(exec), q, s)
	if err != nil {
		return school.Student{}, trapUniqueErr(err, school.ErrDuplicate, "inserting student")
	}
	s.ID = id
	return s, nil
}

func (repo schoolRepository) GetStudent(ctx context.Context, id int, exec ...core.DBExecutor) (school.Student, error) {
	var s school.Student
	err := repo.getByID(ctx, repo.getExec(exec), &s, "students", studentColumns, id)
	return s, err
}

func (repo schoolRepository) GetStudentByMatricule(ctx context.Context, matricule string, exec ...core.DBExecutor) (school.Student, error) {
	exe := repo.getExec(exec)
	var s school.Student
	q := exe.Rebind("SELECT " + studentColumns + " FROM students WHERE matricule = ?")
	if err := exe.GetContext(ctx, &s, q, matricule); err != nil {
		return school.Student{}, trapNoRowsErr(err, school.ErrNotFound, "finding student by matricule")
	}
	return s, nil
}

func (repo schoolRepository) QueryStudents(ctx context.Context, filter *school.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]school.Student, error) {
	where := &whereClause{}
	if filter != nil {
		if filter.Search != "" {
			val := likeValue(filter.Search)
			where.add("(LOWER(name) LIKE ? OR LOWER(matricule) LIKE ?)", val, val)
		}
		// students enrolled in the class and/or the academic year
		if filter.ClassID != 0 || filter.AcademicYear != "" {
			sub := &whereClause{}
			sub.add("e.student_id = students.id")
			if filter.ClassID != 0 {
				sub.add("e.class_id = ?", filter.ClassID)
			}
			if filter.AcademicYear != "" {
				sub.add("e.academic_year = ?", filter.AcademicYear)
			}
			where.add("EXISTS (SELECT 1 FROM enrollments e"+sub.String()+")", sub.args...)
		}
	}

	students := make([]school.Student, 0)
	orderBy := core.OrderByClause(ordering, "name ASC", "name", "matricule", "date_of_birth", "gender")
	if err := repo.selectWhere(ctx, repo.getExec(exec), &students, "students", studentColumns, where, orderBy); err != nil {
		return nil, err
	}
	return students, nil
}

func (repo schoolRepository) UpdateStudent(ctx context.Context, s school.Student, exec ...core.DBExecutor) (school.Student, error) {
	q := `UPDATE students SET name = :name, matricule = :matricule, date_of_birth = :date_of_birth, gender = :gender
		WHERE id = :id`
	if err := repo.update(ctx, repo.getExec(exec), q, s, "students"); err != nil {
		return school.Student{}, err
	}
	return s, nil
}

func (repo schoolRepository) DeleteStudent(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return repo.deleteByID(ctx, repo.getExec(exec), "students", id)
}

// Classes

func (repo schoolRepository) CreateClass(ctx context.Context, c school.Class, exec ...core.DBExecutor) (school.Class, error) {
	id, err := insertReturningID(ctx, repo.getExec(exec), "INSERT INTO classes (name, level) VALUES (:name, :level) RETURNING id", c)
	if err != nil {
		return school.Class{}, errors.Wrap(err, "inserting class")
	}
	c.ID = id
	return c, nil
}

func (repo schoolRepository) GetClass(ctx context.Context, id int, exec ...core.DBExecutor) (school.Class, error) {
	var c school.Class
	err := repo.getByID(ctx, repo.getExec(exec), &c, "classes", classColumns, id)
	return c, err
}

func (repo schoolRepository) QueryClasses(ctx context.Context, filter *school.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]school.Class, error) {
	where := &whereClause{}
	if filter != nil && filter.Search != "" {
		val := likeValue(filter.Search)
		where.add("(LOWER(name) LIKE ? OR LOWER(level) LIKE ?)", val, val)
	}

	classes := make([]school.Class, 0)
	orderBy := core.OrderByClause(ordering, "name ASC", "name", "level")
	if err := repo.selectWhere(ctx, repo.getExec(exec), &classes, "classes", classColumns, where, orderBy); err != nil {
		return nil, err
	}
	return classes, nil
}

func (repo schoolRepository) UpdateClass(ctx context.Context, c school.Class, exec ...core.DBExecutor) (school.Class, error) {
	if err := repo.update(ctx, repo.getExec(exec), "UPDATE classes SET name = :name, level = :level WHERE id = :id", c, "classes"); err != nil {
		return school.Class{}, err
	}
	return c, nil
}

func (repo schoolRepository) DeleteClass(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return repo.deleteByID(ctx, repo.getExec(exec), "classes", id)
}

// Teachers

func (repo schoolRepository) CreateTeacher(ctx context.Context, t school.Teacher, exec ...core.DBExecutor) (school.Teacher, error) {
	q := `INSERT INTO teachers (first_name, last_name, phone, profession, diploma, country, photo)
		VALUES (:first_name, :last_name, :phone, :profession, :diploma, :country, :photo) RETURNING id`
	id, err := insertReturningID(ctx, repo.getExec(exec), q, t)
	if err != nil {
		return school.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	t.ID = id
	return t, nil
}

func (repo schoolRepository) GetTeacher(ctx context.Context, id int, exec ...core.DBExecutor) (school.Teacher, error) {
	var t school.Teacher
	err := repo.getByID(ctx, repo.getExec(exec), &t, "teachers", teacherColumns, id)
	return t, err
}

func (repo schoolRepository) QueryTeachers(ctx context.Context, filter *school.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]school.Teacher, error) {
	where := &whereClause{}
	if filter != nil && filter.Search != "" {
		val := likeValue(filter.Search)
		where.add("(LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(profession) LIKE ?)", val, val, val)
	}

	teachers := make([]school.Teacher, 0)
	orderBy := core.OrderByClause(ordering, "last_name ASC, first_name ASC", "first_name", "last_name", "profession", "country")
	if err := repo.selectWhere(ctx, repo.getExec(exec), &teachers, "teachers", teacherColumns, where, orderBy); err != nil {
		return nil, err
	}
	return teachers, nil
}

func (repo schoolRepository) UpdateTeacher(ctx context.Context, t school.Teacher, exec ...core.DBExecutor) (school.Teacher, error) {
	q := `UPDATE teachers SET first_name = :first_name, last_name = :last_name, phone = :phone, profession = :profession,
		diploma = :diploma, country = :country, photo = :photo
		WHERE id = :id`
	if err := repo.update(ctx, repo.getExec(exec), q, t, "teachers"); err != nil {
		return school.Teacher{}, err
	}
	return t, nil
}

func (repo schoolRepository) DeleteTeacher(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return repo.deleteByID(ctx, repo.getExec(exec), "teachers", id)
}

// Rooms

func (repo schoolRepository) CreateRoom(ctx context.Context, r school.Room, exec ...core.DBExecutor) (school.Room, error) {
	q := "INSERT INTO rooms (name, capacity, location) VALUES (:name, :capacity, :location) RETURNING id"
	id, err := insertReturningID(ctx, repo.getExec(exec), q, r)
	if err != nil {
		return school.Room{}, errors.Wrap(err, "inserting room")
	}
	r.ID = id
	return r, nil
}

func (repo schoolRepository) GetRoom(ctx context.Context, id int, exec ...core.DBExecutor) (school.Room, error) {
	var r school.Room
	err := repo.getByID(ctx, repo.getExec(exec), &r, "rooms", roomColumns, id)
	return r, err
}

func (repo schoolRepository) QueryRooms(ctx context.Context, filter *school.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]school.Room, error) {
	where := &whereClause{}
	if filter != nil && filter.Search != "" {
		val := likeValue(filter.Search)
		where.add("(LOWER(name) LIKE ? OR LOWER(location) LIKE ?)", val, val)
	}

	rooms := make([]school.Room, 0)
	orderBy := core.OrderByClause(ordering, "name ASC", "name", "capacity", "location")
	if err := repo.selectWhere(ctx, repo.getExec(exec), &rooms, "rooms", roomColumns, where, orderBy); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (repo schoolRepository) UpdateRoom(ctx context.Context, r school.Room, exec ...core.DBExecutor) (school.Room, error) {
	q := "UPDATE rooms SET name = :name, capacity = :capacity, location = :location WHERE id = :id"
	if err := repo.update(ctx, repo.getExec(exec), q, r, "rooms"); err != nil {
		return school.Room{}, err
	}
	return r, nil
}

func (repo schoolRepository) DeleteRoom(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return repo.deleteByID(ctx, repo.getExec(exec), "rooms", id)
}

// Dashboard

func (repo schoolRepository) GetDashboard(ctx context.Context, exec ...core.DBExecutor) (school.Dashboard, error) {
	q := `SELECT
		(SELECT COUNT(*) FROM students) AS students,
		(SELECT COUNT(*) FROM teachers) AS teachers,
		(SELECT COUNT(*) FROM classes) AS classes,
		(SELECT COUNT(*) FROM subjects) AS subjects,
		(SELECT COUNT(*) FROM rooms) AS rooms,
		(SELECT COUNT(*) FROM enrollments) AS enrollments,
		(SELECT COALESCE(SUM(amount_paid), 0) FROM school_fees) AS fees_collected,
		(SELECT COALESCE(SUM(remaining_amount), 0) FROM school_fees) AS fees_outstanding`
	var d school.Dashboard
	if err := repo.getExec(exec).GetContext(ctx, &d, q); err != nil {
		return school.Dashboard{}, errors.Wrap(err, "computing dashboard")
	}
	return d, nil
}
