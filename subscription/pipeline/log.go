package pipeline

import (
	"github.com/rs/zerolog"
	"subfilter/internal/shared/logger"
)

func logFor(runID string) zerolog.Logger {
	return logger.WithComponent("Subscription/Pipeline").With().Str("run_id", runID).Logger()
}
