package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldBackend is the structured log field key for the scoring backend kind.
	FieldBackend = "backend"
	// FieldModel is the structured log field key for the model or workspace in use.
	FieldModel = "model"
	// FieldRunID ties every entry of one invocation together.
	FieldRunID = "run_id"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger.
// A nil logger becomes a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// CommonFields describes a scoring backend. Empty values are skipped.
func CommonFields(backend, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldBackend, Value: backend},
		StringField{Key: FieldModel, Value: model},
	)
}

// WithCommonFields attaches the backend fields to the provided logger.
func WithCommonFields(logger *zap.Logger, backend, model string) *zap.Logger {
	return WithFields(logger, CommonFields(backend, model)...)
}

// WithRun tags the logger with the invocation id.
func WithRun(logger *zap.Logger, runID string) *zap.Logger {
	return WithFields(logger, StringFields(StringField{Key: FieldRunID, Value: runID})...)
}
