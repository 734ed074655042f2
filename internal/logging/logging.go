// Package logging configures logrus and records connection diagnostics.
package logging

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"quizboard-service/internal/app"
)

// Setup sets the standard logger's level and formatter. Unknown levels fall
// back to info; format "json" selects the JSON formatter.
func Setup(level, format string) logrus.FieldLogger {
	logger := logrus.StandardLogger()
	configure(logger, level, format)
	return logger
}

func configure(logger *logrus.Logger, level, format string) {
	switch strings.ToLower(format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	default:
		formatter := new(logrus.TextFormatter)
		formatter.TimestampFormat = time.RFC3339
		formatter.FullTimestamp = true
		logger.SetFormatter(formatter)
	}
	switch strings.ToLower(level) {
	case "trace":
		logger.SetLevel(logrus.TraceLevel)
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}
}

// DisconnectSink logs every disconnect outcome with its fields.
type DisconnectSink struct {
	log logrus.FieldLogger
}

func NewDisconnectSink(log logrus.FieldLogger) *DisconnectSink {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &DisconnectSink{log: log.WithField("component", "presence")}
}

func (s *DisconnectSink) RecordDisconnect(rec app.DisconnectRecord) {
	fields := logrus.Fields{
		"conn":      rec.ConnectionID,
		"reason":    rec.Reason,
		"action":    rec.Action,
		"remaining": rec.Remaining,
	}
	if rec.StudentID != "" {
		fields["student"] = rec.StudentID
		fields["name"] = rec.Name
	}
	if rec.Grace > 0 {
		fields["grace"] = rec.Grace.String()
	}
	entry := s.log.WithFields(fields)
	if rec.Action == app.DisconnectUnbound {
		entry.Debug("connection closed")
		return
	}
	entry.Info("student disconnected")
}
