package models

import (
	"fmt"
	"math"
)

// Movie is an immutable catalog entry.
type Movie struct {
	ID             int      `json:"movieId"`
	Title          string   `json:"title"`
	Genres         []string `json:"genres"`
	Year           int      `json:"year"`
	AvgRating      float64  `json:"avg_rating"`
	RatingCount    int      `json:"rating_count"`
	WikipediaIntro string   `json:"wikipedia_intro,omitempty"`
	WikipediaLink  string   `json:"wikipedia_link,omitempty"`
}

// HasGenre reports whether the movie is tagged with genre g.
func (m Movie) HasGenre(g string) bool {
	for _, genre := range m.Genres {
		if genre == g {
			return true
		}
	}
	return false
}

// Rating is one row of the ratings dataset.
type Rating struct {
	UserID    int     `json:"userId"`
	MovieID   int     `json:"movieId"`
	Stars     float64 `json:"rating"`
	Timestamp int64   `json:"timestamp"`
}

// Signal names, also used as weight keys.
const (
	SignalPrompt      = "prompt"
	SignalUserProfile = "user_profile"
	SignalRating      = "rating"
	SignalGenre       = "genre"
	SignalYear        = "year"
)

// Signals lists every signal in a fixed order.
var Signals = []string{SignalPrompt, SignalUserProfile, SignalRating, SignalGenre, SignalYear}

// SignalScores holds the per-movie inputs of the final score. All values are in [0,1].
type SignalScores struct {
	SimQuery     float64 `json:"sim_query"`
	SimUser      float64 `json:"sim_user"`
	RatingScaled float64 `json:"rating_scaled"`
	GenreScore   float64 `json:"genre_score"`
	YearScore    float64 `json:"year_score"`
}

// Get returns the score feeding the named weight.
func (s SignalScores) Get(signal string) float64 {
	switch signal {
	case SignalPrompt:
		return s.SimQuery
	case SignalUserProfile:
		return s.SimUser
	case SignalRating:
		return s.RatingScaled
	case SignalGenre:
		return s.GenreScore
	case SignalYear:
		return s.YearScore
	default:
		return 0
	}
}

// WeightVector holds one non-negative coefficient per signal.
// It does not have to sum to 1.
type WeightVector struct {
	Prompt      float64 `json:"prompt" mapstructure:"prompt"`
	UserProfile float64 `json:"user_profile" mapstructure:"user_profile"`
	Rating      float64 `json:"rating" mapstructure:"rating"`
	Genre       float64 `json:"genre" mapstructure:"genre"`
	Year        float64 `json:"year" mapstructure:"year"`
}

// DefaultWeights mirrors the blend the recommender ships with.
func DefaultWeights() WeightVector {
	return WeightVector{
		Prompt:      0.6,
		UserProfile: 0.3,
		Rating:      0.1,
		Genre:       0.1,
		Year:        0.1,
	}
}

// Get returns the weight for the named signal.
func (w WeightVector) Get(signal string) float64 {
	switch signal {
	case SignalPrompt:
		return w.Prompt
	case SignalUserProfile:
		return w.UserProfile
	case SignalRating:
		return w.Rating
	case SignalGenre:
		return w.Genre
	case SignalYear:
		return w.Year
	default:
		return 0
	}
}

// With returns a copy of w with the named weight replaced.
func (w WeightVector) With(signal string, v float64) WeightVector {
	switch signal {
	case SignalPrompt:
		w.Prompt = v
	case SignalUserProfile:
		w.UserProfile = v
	case SignalRating:
		w.Rating = v
	case SignalGenre:
		w.Genre = v
	case SignalYear:
		w.Year = v
	}
	return w
}

// Sum adds up all five weights.
func (w WeightVector) Sum() float64 {
	return w.Prompt + w.UserProfile + w.Rating + w.Genre + w.Year
}

// Scale multiplies every weight by k.
func (w WeightVector) Scale(k float64) WeightVector {
	return WeightVector{
		Prompt:      w.Prompt * k,
		UserProfile: w.UserProfile * k,
		Rating:      w.Rating * k,
		Genre:       w.Genre * k,
		Year:        w.Year * k,
	}
}

// Validate checks that every weight is finite and non-negative and that
// at least one is positive.
func (w WeightVector) Validate() error {
	for _, signal := range Signals {
		v := w.Get(signal)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: weight %s is not finite", ErrInvalidInput, signal)
		}
		if v < 0 {
			return fmt.Errorf("%w: weight %s is negative (%.4f)", ErrInvalidInput, signal, v)
		}
	}
	if w.Sum() <= 0 {
		return fmt.Errorf("%w: weights sum to zero", ErrInvalidInput)
	}
	return nil
}

// Recommendation is a movie joined with the scores that ranked it.
type Recommendation struct {
	MovieID        int      `json:"movieId"`
	Title          string   `json:"title"`
	Genres         []string `json:"genres"`
	Year           int      `json:"year"`
	AvgRating      float64  `json:"avg_rating"`
	WikipediaIntro string   `json:"wikipedia_intro,omitempty"`
	WikipediaLink  string   `json:"wikipedia_link,omitempty"`
	SignalScores
	Weights    WeightVector `json:"weights"`
	FinalScore float64      `json:"final_score"`
	Degraded   bool         `json:"degraded,omitempty"`
}
