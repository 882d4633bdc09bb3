package memoryplay

import "github.com/sirupsen/logrus"

// Settings are the library-wide toggles. They are applied once by Init
// before any session or upload is created and never mutated afterwards.
type Settings struct {
	EnableLogging bool
	Verbose       bool
}

var settings = Settings{EnableLogging: true}

// Init applies the library settings. Calling it is optional; the
// defaults enable normal logging.
func Init(s Settings) {
	settings = s
	switch {
	case !s.EnableLogging:
		logrus.SetLevel(logrus.ErrorLevel)
	case s.Verbose:
		logrus.SetLevel(logrus.DebugLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}
