package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ecole/core"
	"github.com/trezcool/ecole/core/school"
	"github.com/trezcool/ecole/core/user"
	"github.com/trezcool/ecole/storage/database"
)

// PrepareDB opens a fresh in-memory sqlite database with every migration applied.
// It is closed when the test ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conf := core.NewTestConfig()

	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	goose.SetLogger(goose.NopLogger())
	if err = database.Migrate(context.Background(), db, conf); err != nil {
		t.Fatalf("PrepareDB() failed to migrate database: %v", err)
	}
	return db
}

// DefaultPassword is set on fixture users created without a password.
const DefaultPassword = "Testpass1!"

// CreateUser persists a user. An empty pwd falls back to DefaultPassword since password_hash is NOT NULL.
func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC().Truncate(time.Second)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd == "" {
		pwd = DefaultPassword
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateStudent(t *testing.T, repo school.StudentRepository, name, matricule string) school.Student {
	t.Helper()
	s, err := repo.CreateStudent(context.Background(), school.Student{
		Name:        name,
		Matricule:   matricule,
		DateOfBirth: "2010-09-01",
		Gender:      school.GenderFemale,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}

func CreateClass(t *testing.T, repo school.ClassRepository, name, level string) school.Class {
	t.Helper()
	c, err := repo.CreateClass(context.Background(), school.Class{Name: name, Level: level})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return c
}

func CreateTeacher(t *testing.T, repo school.TeacherRepository, firstName, lastName string) school.Teacher {
	t.Helper()
	tch, err := repo.CreateTeacher(context.Background(), school.Teacher{
		FirstName: firstName,
		LastName:  lastName,
		Phone:     null.StringFrom("+243810000000"),
	})
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	return tch
}

func CreateSubject(t *testing.T, repo school.SubjectRepository, name string, coefficient, classID int) school.Subject {
	t.Helper()
	s, err := repo.CreateSubject(context.Background(), school.Subject{
		Name:        name,
		Coefficient: coefficient,
		ClassID:     null.NewInt(classID, classID != 0),
	})
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return s
}

func CreateRoom(t *testing.T, repo school.RoomRepository, name string, capacity int) school.Room {
	t.Helper()
	r, err := repo.CreateRoom(context.Background(), school.Room{Name: name, Capacity: capacity, Location: "Bloc A"})
	if err != nil {
		t.Fatalf("CreateRoom() failed: %v", err)
	}
	return r
}

func CreateEnrollment(t *testing.T, repo school.EnrollmentRepository, studentID, classID int, academicYear string) school.Enrollment {
	t.Helper()
	e, err := repo.CreateEnrollment(context.Background(), school.Enrollment{
		StudentID:    studentID,
		ClassID:      classID,
		AcademicYear: academicYear,
	})
	if err != nil {
		t.Fatalf("CreateEnrollment() failed: %v", err)
	}
	return e
}

func CreateResult(t *testing.T, repo school.ResultRepository, enrollmentID, subjectID int, score float64, semester int) school.Result {
	t.Helper()
	r, err := repo.CreateResult(context.Background(), school.Result{
		EnrollmentID: enrollmentID,
		SubjectID:    subjectID,
		Score:        score,
		Semester:     semester,
	})
	if err != nil {
		t.Fatalf("CreateResult() failed: %v", err)
	}
	return r
}
