package logging

import (
	"fmt"

	"github.com/pion/logging"
	"go.uber.org/zap"
)

// PionFactory routes pion's internal logs (ICE, DTLS, SCTP) through zap.
// Pion is chatty at info, so everything below warn is demoted to debug.
type PionFactory struct {
	log *zap.SugaredLogger
}

// NewPionFactory wraps log as a pion logging.LoggerFactory.
func NewPionFactory(log *zap.SugaredLogger) *PionFactory {
	return &PionFactory{log: log.Named("pion")}
}

// NewLogger implements logging.LoggerFactory.
func (f *PionFactory) NewLogger(scope string) logging.LeveledLogger {
	return &pionLogger{log: f.log.Named(scope)}
}

type pionLogger struct {
	log *zap.SugaredLogger
}

func (l *pionLogger) Trace(msg string)                          { l.log.Debug(msg) }
func (l *pionLogger) Tracef(format string, args ...interface{}) { l.log.Debug(fmt.Sprintf(format, args...)) }
func (l *pionLogger) Debug(msg string)                          { l.log.Debug(msg) }
func (l *pionLogger) Debugf(format string, args ...interface{}) { l.log.Debugf(format, args...) }
func (l *pionLogger) Info(msg string)                           { l.log.Debug(msg) }
func (l *pionLogger) Infof(format string, args ...interface{})  { l.log.Debugf(format, args...) }
func (l *pionLogger) Warn(msg string)                           { l.log.Warn(msg) }
func (l *pionLogger) Warnf(format string, args ...interface{})  { l.log.Warnf(format, args...) }
func (l *pionLogger) Error(msg string)                          { l.log.Error(msg) }
func (l *pionLogger) Errorf(format string, args ...interface{}) { l.log.Errorf(format, args...) }
