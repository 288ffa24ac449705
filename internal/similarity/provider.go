// Package similarity scores free-text queries and user taste profiles against
// movies. Scores are always clamped to [0,1].
package similarity

import (
	"context"
	"math"

	"github.com/iwhizerd/Movie-recomendator/internal/models"
)

// Provider is the text-similarity backend the scoring engine consults.
type Provider interface {
	// ScoreQuery returns how well movie matches a free-text query.
	ScoreQuery(ctx context.Context, query string, movie models.Movie) (float64, error)
	// ScoreUserProfile returns how well movie matches the user's taste.
	ScoreUserProfile(ctx context.Context, userID int, movie models.Movie) (float64, error)
}

// Clamp bounds a raw backend score to [0,1]; NaN becomes 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
