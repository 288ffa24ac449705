package models

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FeedbackColumns is the column order of the persisted feedback file.
// Downstream readers depend on it.
var FeedbackColumns = []string{
	"userId", "movieId", "title", "sim_query", "sim_user", "rating_scaled", "final_score", "feedback",
}

// FeedbackRecord is one star rating given to a past recommendation.
// At most one record exists per (UserID, MovieID).
type FeedbackRecord struct {
	UserID       int     `json:"userId" validate:"gt=0"`
	MovieID      int     `json:"movieId" validate:"gt=0"`
	Title        string  `json:"title" validate:"required"`
	SimQuery     float64 `json:"sim_query" validate:"gte=0,lte=1"`
	SimUser      float64 `json:"sim_user" validate:"gte=0,lte=1"`
	RatingScaled float64 `json:"rating_scaled" validate:"gte=0,lte=1"`
	FinalScore   float64 `json:"final_score" validate:"gte=0,lte=1"`
	Feedback     int     `json:"feedback" validate:"min=1,max=5"`
}

// FeedbackKey identifies the single record a user may hold for a movie.
type FeedbackKey struct {
	UserID  int
	MovieID int
}

// Key returns the uniqueness key of r.
func (r FeedbackRecord) Key() FeedbackKey {
	return FeedbackKey{UserID: r.UserID, MovieID: r.MovieID}
}

// Signal returns the recorded value behind the named weight and whether
// the record carries one. Genre and year affinities are not persisted.
func (r FeedbackRecord) Signal(signal string) (float64, bool) {
	switch signal {
	case SignalPrompt:
		return r.SimQuery, true
	case SignalUserProfile:
		return r.SimUser, true
	case SignalRating:
		return r.RatingScaled, true
	default:
		return 0, false
	}
}

var validate = validator.New()

// Validate rejects records that must never reach storage.
func (r FeedbackRecord) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}
