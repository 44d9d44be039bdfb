// IP camera vision tools: stream, video and still image processing on OpenCV

package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

const (
	AppName    = "IP Camera Vision"
	AppID      = "com.ipcam-vision.app"
	AppVersion = "1.0.0"
)

func main() {
	Execute()
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}
