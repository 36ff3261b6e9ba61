package logger

import (
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

const logrusPkg = "github.com/sirupsen/logrus."

// ownPkg is this package's import path plus ".", derived at startup so the
// hook keeps working if the module is renamed.
var ownPkg = func() string {
	pc, _, _, _ := runtime.Caller(0)
	name := runtime.FuncForPC(pc).Name()
	slash := strings.LastIndex(name, "/")
	dot := strings.Index(name[slash+1:], ".")
	return name[:slash+1+dot+1]
}()

// callerHook reports the first frame outside logrus and the Log/Entry
// wrappers. logrus alone would attribute Warn and Error to logger.go.
type callerHook struct{}

func (callerHook) Levels() []logrus.Level { return logrus.AllLevels }

func (callerHook) Fire(entry *logrus.Entry) error {
	var pcs [24]uintptr
	frames := runtime.CallersFrames(pcs[:runtime.Callers(3, pcs[:])])
	for {
		f, more := frames.Next()
		if !strings.HasPrefix(f.Function, logrusPkg) && !strings.HasPrefix(f.Function, ownPkg) {
			entry.Caller = &f
			return nil
		}
		if !more {
			return nil
		}
	}
}
