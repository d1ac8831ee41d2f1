package logger

import (
	"fmt"

	"go.uber.org/zap"
)

var base *zap.Logger

var serviceName = "default"

func SetServiceName(newName string) string {
	oldName := serviceName
	serviceName = newName

	return oldName
}

// Init строит продакшн-логгер. Вызывать один раз из main до первого лога.
func Init() error {
	l, err := zap.NewProduction(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	base = l
	return nil
}

func with() *zap.Logger {
	if base == nil {
		// до Init (библиотечный код, тесты) — no-op вместо паники
		return zap.NewNop()
	}
	return base.With(zap.String("service", serviceName))
}

func Debug(format string, args ...interface{}) {
	with().Debug(fmt.Sprintf(format, args...))
}

func Info(format string, args ...interface{}) {
	with().Info(fmt.Sprintf(format, args...))
}

func Error(format string, args ...interface{}) {
	with().Error(fmt.Sprintf(format, args...))
}

func Fatal(format string, args ...interface{}) {
	with().Fatal(fmt.Sprintf(format, args...))
}
