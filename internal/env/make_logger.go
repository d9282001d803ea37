package env

import (
	zap "go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MakeLogger builds a JSON production logger at the given level ("debug",
// "info", "warn", "error"). An empty level means info.
func MakeLogger(level string) (*zap.Logger, error) {
	lvl := zap.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, err
		}
	}

	logConfig := zap.NewProductionConfig()
	logConfig.Level = zap.NewAtomicLevelAt(lvl)
	logConfig.Encoding = "json"
	logConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	// stdout belongs to command output
	logConfig.OutputPaths = []string{"stderr"}

	return logConfig.Build()
}
