package logger

import (
	"time"
)

// OperationLogger provides structured logging for one pipeline run with per-step timing
type OperationLogger struct {
	logger    Logger
	operation string
	fields    Fields
	startTime time.Time
	stepStart time.Time
	steps     []StepTiming
}

// StepTiming records how long a named step took
type StepTiming struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
}

// NewOperationLogger creates a new operation logger
func NewOperationLogger(operation string, logger Logger) *OperationLogger {
	if logger == nil {
		logger = GetGlobalLogger()
	}

	now := time.Now()
	ol := &OperationLogger{
		logger:    logger.WithComponent("operation"),
		operation: operation,
		fields:    make(Fields),
		startTime: now,
		stepStart: now,
	}

	ol.logger.WithField("operation", operation).Debug("Starting operation")
	return ol
}

// WithField adds a field to the operation context
func (ol *OperationLogger) WithField(key string, value interface{}) *OperationLogger {
	ol.fields[key] = value
	return ol
}

// Step closes the previous step and logs the start of a new one
func (ol *OperationLogger) Step(step string) {
	now := time.Now()
	if n := len(ol.steps); n > 0 {
		ol.steps[n-1].Duration = now.Sub(ol.stepStart)
	}
	ol.steps = append(ol.steps, StepTiming{Name: step})
	ol.stepStart = now

	ol.logger.WithFields(ol.merge(Fields{"step": step})).Debug("Operation step")
}

// Steps returns the recorded step timings. The last step is closed at the time of the call.
func (ol *OperationLogger) Steps() []StepTiming {
	out := make([]StepTiming, len(ol.steps))
	copy(out, ol.steps)
	if n := len(out); n > 0 && out[n-1].Duration == 0 {
		out[n-1].Duration = time.Since(ol.stepStart)
	}
	return out
}

// Elapsed returns the time since the operation started
func (ol *OperationLogger) Elapsed() time.Duration {
	return time.Since(ol.startTime)
}

// Success completes the operation successfully
func (ol *OperationLogger) Success(message string) {
	ol.logger.WithFields(ol.merge(Fields{
		"duration": ol.Elapsed().String(),
		"status":   "success",
	})).Info(message)
}

// Error completes the operation with an error
func (ol *OperationLogger) Error(err error, message string) {
	ol.logger.WithError(err).WithFields(ol.merge(Fields{
		"duration": ol.Elapsed().String(),
		"status":   "error",
	})).Error(message)
}

// Warning logs a warning during the operation
func (ol *OperationLogger) Warning(message string) {
	ol.logger.WithFields(ol.merge(nil)).Warn(message)
}

func (ol *OperationLogger) merge(extra Fields) Fields {
	fields := Fields{"operation": ol.operation}
	for k, v := range ol.fields {
		fields[k] = v
	}
	for k, v := range extra {
		fields[k] = v
	}
	return fields
}

// TimedOperation executes a function and logs timing information
func TimedOperation(operation string, logger Logger, fn func() error) error {
	ol := NewOperationLogger(operation, logger)

	err := fn()

	if err != nil {
		ol.Error(err, "Operation failed")
	} else {
		ol.Success("Operation completed successfully")
	}

	return err
}
