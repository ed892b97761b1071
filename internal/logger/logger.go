package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger — общий логгер сервиса.
var Logger = logrus.New()

// Init настраивает формат и уровень логирования.
// Неизвестный уровень откатывается на info.
func Init(level string) {
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	Logger.SetOutput(os.Stdout)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		Logger.WithField("level", level).Warn("неизвестный уровень логирования, используется info")
		lvl = logrus.InfoLevel
	}
	Logger.SetLevel(lvl)
}

// Discard возвращает логгер, который ничего не пишет. Для тестов.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
