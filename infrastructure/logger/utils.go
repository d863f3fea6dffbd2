package logger

import (
	"time"
)

// LogAndMeasureExecutionTime logs that functionName started at debug level,
// and returns a function that logs the time elapsed when called.
func LogAndMeasureExecutionTime(log *Logger, functionName string) (onEnd func()) {
	start := time.Now()
	log.Debugf("%s start", functionName)
	return func() {
		log.Debugf("%s end. Took: %s", functionName, time.Since(start))
	}
}
