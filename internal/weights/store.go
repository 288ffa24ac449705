// Package weights personalizes the signal blend from a user's feedback.
package weights

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/iwhizerd/Movie-recomendator/internal/models"
	"github.com/sirupsen/logrus"
)

// neutralFeedback is the star value that leaves weights untouched.
const neutralFeedback = 3.0

// HistorySource supplies a user's persisted feedback.
type HistorySource interface {
	HistoryFor(ctx context.Context, userID int) ([]models.FeedbackRecord, error)
}

// Options bound how far feedback can move a weight away from its default.
type Options struct {
	LearningRate float64
	MinFactor    float64
	MaxFactor    float64
}

func DefaultOptions() Options {
	return Options{
		LearningRate: 1.0,
		MinFactor:    0.25,
		MaxFactor:    2.0,
	}
}

// Validate checks that the factor range contains 1, so a neutral history
// always maps back to the defaults.
func (o Options) Validate() error {
	if math.IsNaN(o.LearningRate) || o.LearningRate < 0 {
		return fmt.Errorf("%w: learning rate must be non-negative", models.ErrInvalidInput)
	}
	if o.MinFactor <= 0 || o.MinFactor > 1 {
		return fmt.Errorf("%w: min factor must be in (0,1], got %.4f", models.ErrInvalidInput, o.MinFactor)
	}
	if o.MaxFactor < 1 || math.IsInf(o.MaxFactor, 0) {
		return fmt.Errorf("%w: max factor must be finite and >= 1, got %.4f", models.ErrInvalidInput, o.MaxFactor)
	}
	return nil
}

type Store struct {
	history HistorySource
	opts    Options
	logger  *logrus.Logger
}

func NewStore(history HistorySource, opts Options, logger *logrus.Logger) (*Store, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		history: history,
		opts:    opts,
		logger:  logger,
	}, nil
}

// PersonalizedWeights adjusts defaults from the user's feedback history.
// Without history the defaults come back unchanged.
func (s *Store) PersonalizedWeights(ctx context.Context, userID int, defaults models.WeightVector) (models.WeightVector, error) {
	if userID <= 0 {
		return models.WeightVector{}, fmt.Errorf("%w: user id must be positive, got %d", models.ErrInvalidInput, userID)
	}
	if err := defaults.Validate(); err != nil {
		return models.WeightVector{}, err
	}

	records, err := s.history.HistoryFor(ctx, userID)
	if err != nil {
		return models.WeightVector{}, fmt.Errorf("failed to load feedback history: %w", err)
	}
	if len(records) == 0 {
		return defaults, nil
	}

	w := Adjust(records, defaults, s.opts)

	s.logger.WithFields(logrus.Fields{
		"user_id":      userID,
		"records":      len(records),
		"prompt":       w.Prompt,
		"user_profile": w.UserProfile,
		"rating":       w.Rating,
	}).Debug("Personalized weights computed")

	return w, nil
}

// Adjust applies the feedback rule to defaults. Each record contributes
// c = (feedback-3)/2 times its recorded signal value; the mean contribution
// per signal scales that signal's weight by 1+rate*mean, clamped to
// [MinFactor, MaxFactor]. Signals without a recorded value keep their
// default. Records are summed in movie id order so the result does not
// depend on the order history was returned in.
func Adjust(records []models.FeedbackRecord, defaults models.WeightVector, opts Options) models.WeightVector {
	if len(records) == 0 {
		return defaults
	}

	sorted := make([]models.FeedbackRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].MovieID != sorted[j].MovieID {
			return sorted[i].MovieID < sorted[j].MovieID
		}
		return sorted[i].UserID < sorted[j].UserID
	})

	w := defaults
	for _, signal := range models.Signals {
		var sum float64
		var n int
		for _, r := range sorted {
			x, ok := r.Signal(signal)
			if !ok {
				continue
			}
			sum += centered(r.Feedback) * x
			n++
		}
		if n == 0 {
			continue
		}
		factor := clamp(1+opts.LearningRate*sum/float64(n), opts.MinFactor, opts.MaxFactor)
		w = w.With(signal, defaults.Get(signal)*factor)
	}
	return w
}

// centered maps 1..5 stars onto [-1,1].
func centered(feedback int) float64 {
	return (float64(feedback) - neutralFeedback) / 2
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
