package logging

import "go.uber.org/zap"

// New builds the root logger for the process. "local" gets the verbose
// development encoder; anything else gets the production JSON encoder.
func New(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
