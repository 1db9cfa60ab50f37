package cmd

import (
	"io"

	"github.com/sirupsen/logrus"
)

// newLogger returns a logger writing plain text to w. Progress messages
// are only shown when verbose is set; warnings and errors always are.
func newLogger(w io.Writer, verbose bool) *logrus.Logger {
	log := logrus.New()
	log.Out = w
	log.Formatter = &logrus.TextFormatter{DisableColors: true}
	log.Level = logrus.WarnLevel
	if verbose {
		log.Level = logrus.DebugLevel
	}
	return log
}
