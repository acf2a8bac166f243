package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/fatih/color"
	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ecole/core"
	"github.com/trezcool/ecole/core/report"
	"github.com/trezcool/ecole/core/school"
	"github.com/trezcool/ecole/core/user"
	"github.com/trezcool/ecole/storage/export"
	sqlxrepos "github.com/trezcool/ecole/storage/database/sqlx"
	testutil "github.com/trezcool/ecole/tests"
)

var (
	usrRepo    user.Repository
	schoolRepo school.Repository
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	color.NoColor = true

	// set up DB & repos
	db := testutil.PrepareDB(t)
	usrRepo = sqlxrepos.NewUserRepository(db)
	schoolRepo = sqlxrepos.NewSchoolRepository(db)

	out := new(bytes.Buffer)
	return &commandLine{
		conf:       core.NewTestConfig(),
		db:         db,
		usrRepo:    usrRepo,
		schoolRepo: schoolRepo,
		reportSvc:  report.NewService(sqlxrepos.NewReportRepository(db)),
		out:        out,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func checkErr(t *testing.T, tt cliTest, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, errors.Cause(err))
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), tt.wantErrStr)
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_run(t *testing.T) {
	cli, out := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol" for "admin"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
	assert.Contains(t, out.String(), "resetpassword")
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	var gotCommand, gotDir string
	gooseRunFunc = func(_ context.Context, command string, db *sql.DB, dir string, args ...string) error {
		gotCommand, gotDir = command, dir
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
	assert.Equal(t, "fix", gotCommand)
	assert.Equal(t, "migrations/sqlite", gotDir)
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, _ := setup(t)
	ctx := context.Background()

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no username nor email", args: []string{"adduser", "--admin"}, extra: extra{pwd: "lol"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "--username", "awe"}, wantErr: errHelp},
		{name: "created", args: []string{"adduser", "--username", " AWE ", "--email", "awe@test.cd", "--teacher"}, extra: extra{pwd: "lol"}},
		{name: "updated", args: []string{"adduser", "--email", "awe@test.cd", "--name", "Awe Admin", "--admin"}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		pwd := ""
		if ex, ok := tt.extra.(extra); ok {
			pwd = ex.pwd
		}
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	users, err := usrRepo.QueryUsers(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, users, 1)
	usr := users[0]
	assert.Equal(t, "awe", usr.Username)
	assert.Equal(t, "Awe Admin", usr.Name)
	assert.True(t, usr.IsActive)
	assert.True(t, usr.IsAdmin())
	assert.NoError(t, usr.CheckPassword("lmao"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "awe", "awe@test.cd", "mdr", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "--username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "--username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "--username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "--username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		pwd := ""
		if ex, ok := tt.extra.(extra); ok {
			pwd = ex.pwd
		}
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(append([]string{"admin"}, tt.args...))
			checkErr(t, tt, err)
			if err != nil {
				return
			}
			refreshedUsr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
			require.NoError(t, err)
			assert.NoError(t, refreshedUsr.CheckPassword(pwd))
		})
	}
}

// gradedEnrollment records Amani's results: 92/7 as final average.
func gradedEnrollment(t *testing.T) school.Enrollment {
	class := testutil.CreateClass(t, schoolRepo, "6e A", "6e")
	maths := testutil.CreateSubject(t, schoolRepo, "Maths", 2, class.ID)
	french := testutil.CreateSubject(t, schoolRepo, "French", 3, class.ID)
	st := testutil.CreateStudent(t, schoolRepo, "Amani Kabila", "M-001")
	enr := testutil.CreateEnrollment(t, schoolRepo, st.ID, class.ID, "2025-2026")
	testutil.CreateResult(t, schoolRepo, enr.ID, maths.ID, 10, 1)
	testutil.CreateResult(t, schoolRepo, enr.ID, french.ID, 16, 2)
	testutil.CreateResult(t, schoolRepo, enr.ID, maths.ID, 12, 2)
	return enr
}

func Test_commandLine_bulletin(t *testing.T) {
	cli, out := setup(t)
	enr := gradedEnrollment(t)

	tests := []cliTest{
		{name: "no args", args: []string{"bulletin"}, wantErrStr: "accepts 1 arg(s), received 0"},
		{name: "invalid id", args: []string{"bulletin", "lol"}, wantErrStr: `invalid enrollment ID "lol"`},
		{name: "unknown enrollment", args: []string{"bulletin", "999"}, wantErr: report.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "bulletin", strconv.Itoa(enr.ID)}))
	printed := out.String()
	assert.Contains(t, printed, "Amani Kabila (M-001) - 6e A - 2025-2026")
	assert.Contains(t, printed, "French")
	assert.Contains(t, printed, "48.00")
	assert.Contains(t, printed, "Semester 1 average: 10.00")
	assert.Contains(t, printed, "Semester 2 average: 14.40")
	assert.Contains(t, printed, "Final average: 13.14")
}

func Test_commandLine_export(t *testing.T) {
	cli, out := setup(t)
	gradedEnrollment(t)
	path := filepath.Join(t.TempDir(), "results.parquet")

	err := cli.run([]string{"admin", "export"})
	assert.Equal(t, errHelp, err)

	require.NoError(t, cli.run([]string{"admin", "export", "--academic-year", "2025-2026", "-o", path}))
	assert.Contains(t, out.String(), "3 results exported to "+path)

	records, err := parquet.ReadFile[export.ResultRecord](path)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Maths", records[0].SubjectName)
	assert.Equal(t, int32(1), records[0].Semester)
	assert.InDelta(t, 92.0/7.0, records[2].FinalAverage, 1e-9)
}
