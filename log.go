package godm

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var pkgLogger atomic.Pointer[zap.Logger]

func init() {
	pkgLogger.Store(zap.NewNop())
}

// SetLogger replaces the package-level logger. Schemas built without
// WithLogger pick it up at build time; passing nil restores the no-op
// logger. Safe for concurrent use.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	pkgLogger.Store(l)
}

// Logger returns the current package-level logger.
func Logger() *zap.Logger {
	return pkgLogger.Load()
}
