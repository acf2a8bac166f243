package school

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/ecole/core"
)

var (
	// errors
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("schedule conflict")
	// ErrDuplicate is returned by repositories when a write breaks a unique constraint.
	ErrDuplicate = errors.New("already exists")

	errMatriculeExists  = "a student with this matricule already exists"
	errAlreadyEnrolled  = "the student is already enrolled for this academic year"
	errResultExists     = "a result already exists for this subject and semester"
	errAmountTooHigh    = "amount exceeds the remaining balance"
	errEndBeforeStart   = "end_time must be after start_time"
	errReferenceMissing = "%s does not exist"
)

type Service struct {
	db       core.DB
	repo     Repository
	validate *validator.Validate
}

func NewService(db core.DB, repo Repository, validate *validator.Validate) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		validate: validate,
	}
}

// checkRef turns the ErrNotFound of a referenced entity lookup into a field error.
func checkRef(field, entity string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Cause(err) == ErrNotFound {
		return core.NewFieldError(field, fmt.Sprintf(errReferenceMissing, entity))
	}
	return errors.Wrapf(err, "finding %s", entity)
}

// trapDuplicate turns an ErrDuplicate, raised when a concurrent write got past the uniqueness check, into a field error.
func trapDuplicate(err error, field, msg string) error {
	if errors.Cause(err) == ErrDuplicate {
		return core.NewFieldError(field, msg)
	}
	return err
}

// Students

func (svc *Service) checkMatriculeUniqueness(ctx context.Context, s Student, exec core.DBExecutor) error {
	existing, err := svc.repo.GetStudentByMatricule(ctx, s.Matricule, exec)
	switch {
	case err == nil:
		if existing.ID != s.ID {
			return core.NewFieldError("matricule", errMatriculeExists)
		}
		return nil
	case errors.Cause(err) == ErrNotFound:
		return nil
	default:
		return errors.Wrap(err, "finding student by matricule")
	}
}

func (svc *Service) CreateStudent(ctx context.Context, s Student) (Student, error) {
	s.clean()
	s.ID = 0
	if err := svc.validate.Struct(s); err != nil {
		return Student{}, err
	}
	if err := svc.checkMatriculeUniqueness(ctx, s, svc.db); err != nil {
		return Student{}, err
	}
	s, err := svc.repo.CreateStudent(ctx, s)
	return s, trapDuplicate(err, "matricule", errMatriculeExists)
}

func (svc *Service) GetStudent(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *Service) QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

func (svc *Service) UpdateStudent(ctx context.Context, id int, s Student) (Student, error) {
	s.clean()
	s.ID = id
	if err := svc.validate.Struct(s); err != nil {
		return Student{}, err
	}
	if _, err := svc.repo.GetStudent(ctx, id); err != nil {
		return Student{}, err
	}
	if err := svc.checkMatriculeUniqueness(ctx, s, svc.db); err != nil {
		return Student{}, err
	}
	s, err := svc.repo.UpdateStudent(ctx, s)
	return s, trapDuplicate(err, "matricule", errMatriculeExists)
}

func (svc *Service) DeleteStudent(ctx context.Context, id int) error {
	return svc.repo.DeleteStudent(ctx, id)
}

// Classes

func (svc *Service) CreateClass(ctx context.Context, c Class) (Class, error) {
	c.clean()
	c.ID = 0
	if err := svc.validate.Struct(c); err != nil {
		return Class{}, err
	}
	return svc.repo.CreateClass(ctx, c)
}

func (svc *Service) GetClass(ctx context.Context, id int) (Class, error) {
	return svc.repo.GetClass(ctx, id)
}

func (svc *Service) QueryClasses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, filter, ordering)
}

func (svc *Service) UpdateClass(ctx context.Context, id int, c Class) (Class, error) {
	c.clean()
	c.ID = id
	if err := svc.validate.Struct(c); err != nil {
		return Class{}, err
	}
	return svc.repo.UpdateClass(ctx, c)
}

func (svc *Service) DeleteClass(ctx context.Context, id int) error {
	return svc.repo.DeleteClass(ctx, id)
}

// Teachers

func (svc *Service) CreateTeacher(ctx context.Context, t Teacher) (Teacher, error) {
	t.clean()
	t.ID = 0
	if err := svc.validate.Struct(t); err != nil {
		return Teacher{}, err
	}
	return svc.repo.CreateTeacher(ctx, t)
}

func (svc *Service) GetTeacher(ctx context.Context, id int) (Teacher, error) {
	return svc.repo.GetTeacher(ctx, id)
}

func (svc *Service) QueryTeachers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Teacher, error) {
	return svc.repo.QueryTeachers(ctx, filter, ordering)
}

func (svc *Service) UpdateTeacher(ctx context.Context, id int, t Teacher) (Teacher, error) {
	t.clean()
	t.ID = id
	if err := svc.validate.Struct(t); err != nil {
		return Teacher{}, err
	}
	return svc.repo.UpdateTeacher(ctx, t)
}

func (svc *Service) DeleteTeacher(ctx context.Context, id int) error {
	return svc.repo.DeleteTeacher(ctx, id)
}

// Subjects

func (svc *Service) checkSubjectRefs(ctx context.Context, s Subject) error {
	if s.ClassID.Valid {
		_, err := svc.repo.GetClass(ctx, s.ClassID.Int)
		if err = checkRef("class_id", "class", err); err != nil {
			return err
		}
	}
	if s.TeacherID.Valid {
		_, err := svc.repo.GetTeacher(ctx, s.TeacherID.Int)
		if err = checkRef("teacher_id", "teacher", err); err != nil {
			return err
		}
	}
	return nil
}

func (svc *Service) CreateSubject(ctx context.Context, s Subject) (Subject, error) {
	s.clean()
	s.ID = 0
	if err := svc.validate.Struct(s); err != nil {
		return Subject{}, err
	}
	if err := svc.checkSubjectRefs(ctx, s); err != nil {
		return Subject{}, err
	}
	return svc.repo.CreateSubject(ctx, s)
}

func (svc *Service) GetSubject(ctx context.Context, id int) (Subject, error) {
	return svc.repo.GetSubject(ctx, id)
}

func (svc *Service) QuerySubjects(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx, filter, ordering)
}

func (svc *Service) UpdateSubject(ctx context.Context, id int, s Subject) (Subject, error) {
	s.clean()
	s.ID = id
	if err := svc.validate.Struct(s); err != nil {
		return Subject{}, err
	}
	if err := svc.checkSubjectRefs(ctx, s); err != nil {
		return Subject{}, err
	}
	return svc.repo.UpdateSubject(ctx, s)
}

func (svc *Service) DeleteSubject(ctx context.Context, id int) error {
	return svc.repo.DeleteSubject(ctx, id)
}

// Enrollments

func (svc *Service) checkEnrollment(ctx context.Context, e Enrollment) error {
	_, err := svc.repo.GetStudent(ctx, e.StudentID)
	if err = checkRef("student_id", "student", err); err != nil {
		return err
	}
	_, err = svc.repo.GetClass(ctx, e.ClassID)
	if err = checkRef("class_id", "class", err); err != nil {
		return err
	}

	existing, err := svc.repo.GetStudentEnrollment(ctx, e.StudentID, e.AcademicYear)
	switch {
	case err == nil:
		if existing.ID != e.ID {
			return core.NewFieldError("academic_year", errAlreadyEnrolled)
		}
	case errors.Cause(err) != ErrNotFound:
		return errors.Wrap(err, "finding student enrollment")
	}
	return nil
}

func (svc *Service) CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error) {
	e.AcademicYear = core.CleanString(e.AcademicYear)
	e.ID = 0
	if err := svc.validate.Struct(e); err != nil {
		return Enrollment{}, err
	}
	if err := svc.checkEnrollment(ctx, e); err != nil {
		return Enrollment{}, err
	}
	e, err := svc.repo.CreateEnrollment(ctx, e)
	return e, trapDuplicate(err, "academic_year", errAlreadyEnrolled)
}

func (svc *Service) GetEnrollment(ctx context.Context, id int) (Enrollment, error) {
	return svc.repo.GetEnrollment(ctx, id)
}

func (svc *Service) QueryEnrollments(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, filter, ordering)
}

func (svc *Service) UpdateEnrollment(ctx context.Context, id int, e Enrollment) (Enrollment, error) {
	e.AcademicYear = core.CleanString(e.AcademicYear)
	e.ID = id
	if err := svc.validate.Struct(e); err != nil {
		return Enrollment{}, err
	}
	if _, err := svc.repo.GetEnrollment(ctx, id); err != nil {
		return Enrollment{}, err
	}
	if err := svc.checkEnrollment(ctx, e); err != nil {
		return Enrollment{}, err
	}
	e, err := svc.repo.UpdateEnrollment(ctx, e)
	return e, trapDuplicate(err, "academic_year", errAlreadyEnrolled)
}

func (svc *Service) DeleteEnrollment(ctx context.Context, id int) error {
	return svc.repo.DeleteEnrollment(ctx, id)
}

// Rooms

func (svc *Service) CreateRoom(ctx context.Context, r Room) (Room, error) {
	r.clean()
	r.ID = 0
	if err := svc.validate.Struct(r); err != nil {
		return Room{}, err
	}
	return svc.repo.CreateRoom(ctx, r)
}

func (svc *Service) GetRoom(ctx context.Context, id int) (Room, error) {
	return svc.repo.GetRoom(ctx, id)
}

func (svc *Service) QueryRooms(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Room, error) {
	return svc.repo.QueryRooms(ctx, filter, ordering)
}

func (svc *Service) UpdateRoom(ctx context.Context, id int, r Room) (Room, error) {
	r.clean()
	r.ID = id
	if err := svc.validate.Struct(r); err != nil {
		return Room{}, err
	}
	return svc.repo.UpdateRoom(ctx, r)
}

func (svc *Service) DeleteRoom(ctx context.Context, id int) error {
	return svc.repo.DeleteRoom(ctx, id)
}

// Dashboard returns the school-wide counts and fee totals.
func (svc *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	return svc.repo.GetDashboard(ctx)
}
