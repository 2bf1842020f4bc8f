package telemetry

import (
	"github.com/inconshreveable/log15/v3"
)

type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Observer receives the notable events of a request or job run. It is the
// only telemetry surface the dispatchers and the broadcast job depend on.
type Observer interface {
	RecordEvent(category, message string, level Level)
}

type nopObserver struct{}

func (nopObserver) RecordEvent(string, string, Level) {}

// Nop returns an Observer that ignores every event.
func Nop() Observer { return nopObserver{} }

// LogObserver writes events to a log15 logger.
type LogObserver struct {
	logger log15.Logger
}

func NewLogObserver(logger log15.Logger) *LogObserver {
	return &LogObserver{logger: logger.New("module", "observer")}
}

func (o *LogObserver) RecordEvent(category, message string, level Level) {
	switch level {
	case LevelDebug:
		o.logger.Debug(message, "category", category)
	case LevelWarning:
		o.logger.Warn(message, "category", category)
	case LevelError:
		o.logger.Error(message, "category", category)
	default:
		o.logger.Info(message, "category", category)
	}
}

type multiObserver []Observer

func (m multiObserver) RecordEvent(category, message string, level Level) {
	for _, o := range m {
		o.RecordEvent(category, message, level)
	}
}

// Multi fans every event out to all non-nil observers.
func Multi(observers ...Observer) Observer {
	var out multiObserver
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return Nop()
	}
	return out
}
