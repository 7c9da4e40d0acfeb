package logconfig

import (
	"io"
	"strings"

	myLogger "github.com/sirupsen/logrus"
)

// This output format is used in the test (has terminal).
func ConfigDebugLogger() {
	myLogger.SetReportCaller(true)
	myLogger.SetLevel(myLogger.DebugLevel)
	myLogger.SetFormatter(&myLogger.TextFormatter{
		ForceColors:            true,
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
		PadLevelText:           true,
	})
}

func ConfigInfoLogger() {
	myLogger.SetReportCaller(false)
	myLogger.SetLevel(myLogger.InfoLevel)
	myLogger.SetFormatter(&myLogger.TextFormatter{
		ForceColors:            true,
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
		PadLevelText:           true,
	})
}

// This output format is used in production.
func ConfigProductionLogger() {
	myLogger.SetReportCaller(false)
	myLogger.SetLevel(myLogger.InfoLevel)
	myLogger.SetFormatter(&myLogger.JSONFormatter{})
}

// ConfigLogger sets up the standard logger from the server config.
// format is "text" or "json"; an empty level means info.
func ConfigLogger(level, format string, out io.Writer) error {
	if level == "" {
		level = "info"
	}
	lvl, err := myLogger.ParseLevel(level)
	if err != nil {
		return err
	}

	switch strings.ToLower(format) {
	case "", "text":
		ConfigInfoLogger()
	case "json":
		ConfigProductionLogger()
	default:
		return ErrUnknownFormat
	}

	myLogger.SetLevel(lvl)
	myLogger.SetReportCaller(lvl >= myLogger.DebugLevel)
	if out != nil {
		myLogger.SetOutput(out)
	}
	return nil
}
