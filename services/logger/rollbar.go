package logsvc

import (
	"fmt"
	"io"
	"strconv"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/ecole/core"
	"github.com/trezcool/ecole/core/user"
)

// RollbarLogger reports events to rollbar and mirrors them as logfmt lines on a local writer.
type RollbarLogger struct {
	local kitlog.Logger
	exit  func(code int)
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(w io.Writer, conf *core.Config, exit func(code int)) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)

	local := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(w))
	local = kitlog.With(local, "ts", kitlog.DefaultTimestampUTC, "app", conf.AppName, "env", conf.Env)
	return &RollbarLogger{local: local, exit: exit}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expected fmt: msg | error, map[string]interface{}, user.User
func (l RollbarLogger) prepare(msg string, args []interface{}) ([]interface{}, []interface{}) {
	var usrSet bool
	rbArgs := make([]interface{}, 0, len(args)+1)
	rbArgs = append(rbArgs, msg)
	kv := []interface{}{"msg", msg}
	for _, arg := range args {
		switch a := arg.(type) {
		case user.User:
			// only set one User
			if !usrSet {
				rollbar.SetPerson(strconv.Itoa(a.ID), a.Username, a.Email)
				kv = append(kv, "user_id", a.ID)
				usrSet = true
			}
		case error:
			rbArgs = append(rbArgs, a)
			kv = append(kv, "err", a.Error())
		case map[string]interface{}:
			rbArgs = append(rbArgs, a)
			for k, v := range a {
				kv = append(kv, k, v)
			}
		default:
			rbArgs = append(rbArgs, a)
			kv = append(kv, "extra", fmt.Sprintf("%+v", a))
		}
	}
	if !usrSet {
		rollbar.ClearPerson()
	}
	return rbArgs, kv
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rbArgs, kv := l.prepare(msg, args)
	rollbar.Debug(rbArgs...)
	_ = level.Debug(l.local).Log(kv...)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rbArgs, kv := l.prepare(msg, args)
	rollbar.Info(rbArgs...)
	_ = level.Info(l.local).Log(kv...)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rbArgs, kv := l.prepare(msg, args)
	rollbar.Warning(rbArgs...)
	_ = level.Warn(l.local).Log(kv...)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rbArgs, kv := l.prepare(msg, args)
	rollbar.Error(rbArgs...)
	_ = level.Error(l.local).Log(kv...)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rbArgs, kv := l.prepare(msg, args)
	rollbar.Critical(rbArgs...)
	_ = level.Error(l.local).Log(append(kv, "fatal", true)...)
	rollbar.Wait()
	if l.exit != nil {
		l.exit(1)
	}
}

// Close flushes pending rollbar items.
func (l RollbarLogger) Close() {
	rollbar.Close()
}
