package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ecole/core"
)

func Test_sqliteDSN(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: ":memory:", want: ":memory:?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"},
		{path: "ecole.db", want: "ecole.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"},
		{path: "ecole.db?_txlock=immediate", want: "ecole.db?_txlock=immediate&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, sqliteDSN(tt.path))
		})
	}
}

func TestOpen_sqliteForeignKeysOnEveryConnection(t *testing.T) {
	ctx := context.Background()
	conf := core.NewTestConfig()
	conf.Database.Path = filepath.Join(t.TempDir(), "ecole.db")

	db, err := Open(conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// hold the first connection so the pool has to open a second one
	conn1, err := db.Conn(ctx)
	require.NoError(t, err)
	defer conn1.Close()
	conn2, err := db.Conn(ctx)
	require.NoError(t, err)
	defer conn2.Close()

	for _, conn := range []*sql.Conn{conn1, conn2} {
		var enabled int
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled))
		assert.Equal(t, 1, enabled)
	}
}
