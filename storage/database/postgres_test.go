//go:build database

package database_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/trezcool/ecole/core"
	"github.com/trezcool/ecole/core/report"
	"github.com/trezcool/ecole/core/school"
	"github.com/trezcool/ecole/storage/database"
	"github.com/trezcool/ecole/storage/database/sqlx"
	"github.com/trezcool/ecole/tests"
)

func startPostgres(t *testing.T) *core.Config {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "secret",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	conf := core.NewTestConfig()
	conf.Database = core.DatabaseConfig{
		Engine:        "postgres",
		Host:          host,
		Port:          portNum,
		Name:          "ecole",
		User:          "ecole",
		Password:      "ecole",
		AdminUser:     "postgres",
		AdminPassword: "secret",
		DisableTLS:    true,
	}
	return conf
}

func TestPostgres(t *testing.T) {
	ctx := context.Background()
	conf := startPostgres(t)

	require.NoError(t, database.CreateIfNotExist(ctx, conf))
	// idempotent
	require.NoError(t, database.CreateIfNotExist(ctx, conf))

	for _, engine := range []string{"postgres", "pgx"} {
		t.Run(engine, func(t *testing.T) {
			conf.Database.Engine = engine
			db, err := database.Open(conf)
			require.NoError(t, err)
			defer db.Close()
			require.NoError(t, database.Ping(ctx, db))
			require.NoError(t, database.Migrate(ctx, db, conf))

			schoolRepo := sqlxrepos.NewSchoolRepository(db)
			st := testutil.CreateStudent(t, schoolRepo, "Amani "+engine, "PG-"+engine)
			class := testutil.CreateClass(t, schoolRepo, "6e "+engine, "Primaire")
			enr := testutil.CreateEnrollment(t, schoolRepo, st.ID, class.ID, "2023-2024")
			subj := testutil.CreateSubject(t, schoolRepo, "Math", 2, class.ID)

			_, err = schoolRepo.UpsertResult(ctx, school.Result{EnrollmentID: enr.ID, SubjectID: subj.ID, Score: 9, Semester: 1})
			require.NoError(t, err)
			_, err = schoolRepo.UpsertResult(ctx, school.Result{EnrollmentID: enr.ID, SubjectID: subj.ID, Score: 10, Semester: 1})
			require.NoError(t, err)
			testutil.CreateResult(t, schoolRepo, enr.ID, subj.ID, 16, 2)

			blt, err := report.NewService(sqlxrepos.NewReportRepository(db)).Bulletin(ctx, enr.ID)
			require.NoError(t, err)
			assert.Equal(t, 13.0, blt.Card.FinalAverage)

			students, err := schoolRepo.QueryStudents(ctx, &school.QueryFilter{Search: "AMANI " + engine}, nil)
			require.NoError(t, err)
			assert.Len(t, students, 1)
		})
	}
}
