package ai

import (
	"context"

	"go.uber.org/zap"
)

// Availability is the outcome of probing both backends at the start of a run.
type Availability struct {
	Local  bool
	Hosted bool
}

// ProbeAll probes the local backend first and picks it when available. The hosted
// backend is probed as well so that it can serve as fallback, but it is only
// selected when the local one is not available. Nil backends are unconfigured.
func ProbeAll(ctx context.Context, local, hosted Backend, logger *zap.Logger) (Kind, Availability) {
	var avail Availability

	if local != nil {
		if err := local.Probe(ctx); err != nil {
			logger.Warn("local inference backend is not available", zap.Error(err))
		} else {
			avail.Local = true
			logger.Info("local inference backend is available", zap.String("model", local.Model()))
		}
	}

	if hosted != nil {
		if err := hosted.Probe(ctx); err != nil {
			logger.Warn("hosted gateway backend is not available", zap.Error(err))
		} else {
			avail.Hosted = true
			logger.Info("hosted gateway backend is available")
		}
	}

	switch {
	case avail.Local:
		return KindLocal, avail
	case avail.Hosted:
		return KindHosted, avail
	default:
		return KindNone, avail
	}
}
