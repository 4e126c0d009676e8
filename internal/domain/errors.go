package domain

import "errors"

// Error taxonomy for the analysis engine.
//
// ErrDataUnavailable is fatal for a single symbol's analysis, never for a
// batch. ErrRecommendationUnavailable is recoverable - callers substitute
// DefaultRecommendation. ErrInvalidConfiguration aborts the whole call.
// ErrCacheMiss is normal control flow, not a failure.
var (
	ErrDataUnavailable           = errors.New("no price history available")
	ErrRecommendationUnavailable = errors.New("recommendation unavailable")
	ErrInvalidConfiguration      = errors.New("invalid configuration")
	ErrCacheMiss                 = errors.New("cache miss")
)
