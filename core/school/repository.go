package school

import (
	"context"

	"github.com/trezcool/ecole/core"
)

type (
	StudentRepository interface {
		CreateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		GetStudent(ctx context.Context, id int, exec ...core.DBExecutor) (Student, error)
		GetStudentByMatricule(ctx context.Context, matricule string, exec ...core.DBExecutor) (Student, error)
		// QueryStudents applies QueryFilter.Search on name and matricule, and QueryFilter.ClassID and
		// QueryFilter.AcademicYear on the student's enrollments.
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Student, error)
		UpdateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		DeleteStudent(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	ClassRepository interface {
		CreateClass(ctx context.Context, c Class, exec ...core.DBExecutor) (Class, error)
		GetClass(ctx context.Context, id int, exec ...core.DBExecutor) (Class, error)
		QueryClasses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Class, error)
		UpdateClass(ctx context.Context, c Class, exec ...core.DBExecutor) (Class, error)
		DeleteClass(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	TeacherRepository interface {
		CreateTeacher(ctx context.Context, t Teacher, exec ...core.DBExecutor) (Teacher, error)
		GetTeacher(ctx context.Context, id int, exec ...core.DBExecutor) (Teacher, error)
		QueryTeachers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Teacher, error)
		UpdateTeacher(ctx context.Context, t Teacher, exec ...core.DBExecutor) (Teacher, error)
		DeleteTeacher(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	SubjectRepository interface {
		CreateSubject(ctx context.Context, s Subject, exec ...core.DBExecutor) (Subject, error)
		GetSubject(ctx context.Context, id int, exec ...core.DBExecutor) (Subject, error)
		QuerySubjects(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Subject, error)
		UpdateSubject(ctx context.Context, s Subject, exec ...core.DBExecutor) (Subject, error)
		DeleteSubject(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	EnrollmentRepository interface {
		CreateEnrollment(ctx context.Context, e Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		GetEnrollment(ctx context.Context, id int, exec ...core.DBExecutor) (Enrollment, error)
		GetStudentEnrollment(ctx context.Context, studentID int, academicYear string, exec ...core.DBExecutor) (Enrollment, error)
		QueryEnrollments(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Enrollment, error)
		UpdateEnrollment(ctx context.Context, e Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		DeleteEnrollment(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	ResultRepository interface {
		CreateResult(ctx context.Context, r Result, exec ...core.DBExecutor) (Result, error)
		GetResult(ctx context.Context, id int, exec ...core.DBExecutor) (Result, error)
		QueryResults(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Result, error)
		UpdateResult(ctx context.Context, r Result, exec ...core.DBExecutor) (Result, error)
		// UpsertResult creates the result or replaces the score of the existing (enrollment, subject, semester) one.
		UpsertResult(ctx context.Context, r Result, exec ...core.DBExecutor) (Result, error)
		DeleteResult(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	FeeRepository interface {
		CreateFee(ctx context.Context, f SchoolFee, exec ...core.DBExecutor) (SchoolFee, error)
		GetFee(ctx context.Context, id int, exec ...core.DBExecutor) (SchoolFee, error)
		QueryFees(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]SchoolFee, error)
		UpdateFee(ctx context.Context, f SchoolFee, exec ...core.DBExecutor) (SchoolFee, error)
		DeleteFee(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	RoomRepository interface {
		CreateRoom(ctx context.Context, r Room, exec ...core.DBExecutor) (Room, error)
		GetRoom(ctx context.Context, id int, exec ...core.DBExecutor) (Room, error)
		QueryRooms(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Room, error)
		UpdateRoom(ctx context.Context, r Room, exec ...core.DBExecutor) (Room, error)
		DeleteRoom(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	TimetableRepository interface {
		CreateTimetableEntry(ctx context.Context, e TimetableEntry, exec ...core.DBExecutor) (TimetableEntry, error)
		GetTimetableEntry(ctx context.Context, id int, exec ...core.DBExecutor) (TimetableEntry, error)
		QueryTimetable(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]TimetableEntry, error)
		UpdateTimetableEntry(ctx context.Context, e TimetableEntry, exec ...core.DBExecutor) (TimetableEntry, error)
		DeleteTimetableEntry(ctx context.Context, id int, exec ...core.DBExecutor) error
		// FindTimetableConflict returns an entry, other than e, booking e's class, room or teacher
		// on e's day at an overlapping time. ErrNotFound if there is none.
		FindTimetableConflict(ctx context.Context, e TimetableEntry, exec ...core.DBExecutor) (TimetableEntry, error)
	}

	DashboardRepository interface {
		GetDashboard(ctx context.Context, exec ...core.DBExecutor) (Dashboard, error)
	}

	Repository interface {
		StudentRepository
		ClassRepository
		TeacherRepository
		SubjectRepository
		EnrollmentRepository
		ResultRepository
		FeeRepository
		RoomRepository
		TimetableRepository
		DashboardRepository
	}
)
