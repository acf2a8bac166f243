package school_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ecole/core"
	"github.com/trezcool/ecole/core/school"
	"github.com/trezcool/ecole/storage/database/sqlx"
	"github.com/trezcool/ecole/tests"
)

// staleRepo misses every row the uniqueness lookups would find,
// like a duplicate committed by another request in between.
type staleRepo struct {
	school.Repository
}

func (staleRepo) GetStudentByMatricule(context.Context, string, ...core.DBExecutor) (school.Student, error) {
	return school.Student{}, school.ErrNotFound
}

func (staleRepo) GetStudentEnrollment(context.Context, int, string, ...core.DBExecutor) (school.Enrollment, error) {
	return school.Enrollment{}, school.ErrNotFound
}

func (staleRepo) QueryResults(context.Context, *school.QueryFilter, []core.DBOrdering, ...core.DBExecutor) ([]school.Result, error) {
	return []school.Result{}, nil
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "got %v", err)
	flds := make(map[string]string, len(vErr.Fields))
	for _, f := range vErr.Fields {
		flds[f.Field] = f.Error
	}
	return flds
}

func TestService_uniqueConstraints(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewSchoolRepository(db)
	svc := school.NewService(db, staleRepo{repo}, core.NewValidator(core.NewTranslator()))

	amani := testutil.CreateStudent(t, repo, "Amani Kabeya", "ECO-001")
	bora := testutil.CreateStudent(t, repo, "Bora Mutombo", "ECO-002")
	sixth := testutil.CreateClass(t, repo, "6e A", "Primaire")
	maths := testutil.CreateSubject(t, repo, "Maths", 2, sixth.ID)
	enr := testutil.CreateEnrollment(t, repo, amani.ID, sixth.ID, "2024-2025")
	res := testutil.CreateResult(t, repo, enr.ID, maths.ID, 12, 1)

	t.Run("student matricule", func(t *testing.T) {
		want := map[string]string{"matricule": "a student with this matricule already exists"}

		_, err := svc.CreateStudent(ctx, school.Student{
			Name: "Copie", Matricule: "ECO-001", DateOfBirth: "2011-01-01", Gender: school.GenderMale,
		})
		assert.Equal(t, want, fieldErrors(t, err))

		bora.Matricule = amani.Matricule
		_, err = svc.UpdateStudent(ctx, bora.ID, bora)
		assert.Equal(t, want, fieldErrors(t, err))
	})

	t.Run("enrollment", func(t *testing.T) {
		_, err := svc.CreateEnrollment(ctx, school.Enrollment{StudentID: amani.ID, ClassID: sixth.ID, AcademicYear: "2024-2025"})
		assert.Equal(t, map[string]string{"academic_year": "the student is already enrolled for this academic year"}, fieldErrors(t, err))
	})

	t.Run("result", func(t *testing.T) {
		want := map[string]string{"subject_id": "a result already exists for this subject and semester"}

		_, err := svc.CreateResult(ctx, school.Result{EnrollmentID: enr.ID, SubjectID: maths.ID, Score: 15, Semester: 1})
		assert.Equal(t, want, fieldErrors(t, err))

		other := testutil.CreateResult(t, repo, enr.ID, maths.ID, 9, 2)
		other.Semester = res.Semester
		_, err = svc.UpdateResult(ctx, other.ID, other)
		assert.Equal(t, want, fieldErrors(t, err))
	})
}
