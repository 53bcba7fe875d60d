// README: zap logger construction per environment.
package infra

import "go.uber.org/zap"

func NewLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
