package inmemdb

import (
	"sync"

	"github.com/trezcool/ecole/core/user"
)

type (
	// DB keeps records in memory. It backs unit tests that do not need SQL.
	DB struct {
		user *userTable
	}

	userTable struct {
		sync.RWMutex
		table  map[int]*user.User
		lastPK int
	}
)

func Open() *DB {
	return &DB{
		user: &userTable{table: make(map[int]*user.User)},
	}
}
