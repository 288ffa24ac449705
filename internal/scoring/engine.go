// Package scoring blends query similarity, user-profile similarity, rating,
// genre affinity and release-year affinity into one ranked list.
//
// Signal collection may call the similarity backend concurrently; ranking is
// a separate pure step over the collected scores, so the parallel phase can
// finish in any order without changing the result.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/iwhizerd/Movie-recomendator/internal/models"
	"github.com/iwhizerd/Movie-recomendator/internal/profile"
	"github.com/iwhizerd/Movie-recomendator/internal/similarity"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Options tunes signal computation.
type Options struct {
	MaxRating   float64
	Concurrency int
}

func DefaultOptions() Options {
	return Options{
		MaxRating:   5,
		Concurrency: 8,
	}
}

// Request is everything one scoring call needs. Profile is the user's
// derived preference for this request only.
type Request struct {
	Query      string
	UserID     int
	Candidates []models.Movie
	Weights    models.WeightVector
	TopN       int
	Profile    profile.Profile
}

// Result is a ranked list plus how it was produced.
type Result struct {
	Recommendations []models.Recommendation
	Candidates      int
	Failed          int
	Degraded        bool
	Duration        time.Duration
}

type Engine struct {
	provider similarity.Provider
	opts     Options
	logger   *logrus.Logger
}

func NewEngine(provider similarity.Provider, opts Options, logger *logrus.Logger) *Engine {
	if opts.MaxRating <= 0 {
		opts.MaxRating = DefaultOptions().MaxRating
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultOptions().Concurrency
	}
	return &Engine{
		provider: provider,
		opts:     opts,
		logger:   logger,
	}
}

// Score computes signals for every distinct candidate and ranks them.
// A backend failure on one candidate degrades that candidate to its
// non-text signals; only a failure on every candidate fails the call.
func (e *Engine) Score(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	if req.TopN <= 0 {
		return nil, fmt.Errorf("%w: topN must be positive, got %d", models.ErrInvalidInput, req.TopN)
	}
	if err := req.Weights.Validate(); err != nil {
		return nil, err
	}

	candidates := dedupe(req.Candidates)
	if len(candidates) == 0 {
		return &Result{Recommendations: []models.Recommendation{}, Duration: time.Since(start)}, nil
	}

	scored, failed, err := e.collect(ctx, req, candidates)
	if err != nil {
		return nil, err
	}
	if failed == len(candidates) {
		return nil, fmt.Errorf("%w: similarity backend failed for all %d candidates", models.ErrDependencyFailure, failed)
	}

	recs, err := Rank(scored, req.Weights, req.TopN)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Recommendations: recs,
		Candidates:      len(candidates),
		Failed:          failed,
		Degraded:        failed > 0,
		Duration:        time.Since(start),
	}

	fields := logrus.Fields{
		"user_id":     req.UserID,
		"candidates":  result.Candidates,
		"failed":      result.Failed,
		"results":     len(recs),
		"duration_ms": result.Duration.Milliseconds(),
	}
	if result.Degraded {
		e.logger.WithFields(fields).Warn("Scoring degraded: similarity backend failed for some candidates")
	} else {
		e.logger.WithFields(fields).Debug("Scoring completed")
	}

	return result, nil
}

func (e *Engine) collect(ctx context.Context, req Request, candidates []models.Movie) ([]Scored, int, error) {
	provider := e.provider
	if binder, ok := provider.(similarity.ProfileBinder); ok && req.Profile.HasHistory() {
		provider = binder.BindProfile(req.UserID, req.Profile.LikedText())
	}
	query := strings.TrimSpace(req.Query)

	scored := make([]Scored, len(candidates))
	var failed int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)

	for i := range candidates {
		i := i
		g.Go(func() error {
			movie := candidates[i]
			s := Scored{
				Movie: movie,
				Signals: models.SignalScores{
					RatingScaled: RatingScaled(movie.AvgRating, e.opts.MaxRating),
					GenreScore:   req.Profile.GenreScore(movie),
					YearScore:    req.Profile.YearScore(movie),
				},
			}

			simQuery, simUser, err := e.textSignals(gctx, provider, query, req.UserID, movie)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				atomic.AddInt64(&failed, 1)
				s.Degraded = true
				e.logger.WithError(err).WithField("movie_id", movie.ID).Debug("Similarity failed, using non-text signals")
			} else {
				s.Signals.SimQuery = simQuery
				s.Signals.SimUser = simUser
			}

			scored[i] = s
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("scoring aborted: %w", err)
	}

	return scored, int(failed), nil
}

func (e *Engine) textSignals(ctx context.Context, provider similarity.Provider, query string, userID int, movie models.Movie) (float64, float64, error) {
	var simQuery float64
	if query != "" {
		v, err := provider.ScoreQuery(ctx, query, movie)
		if err != nil {
			return 0, 0, err
		}
		simQuery = similarity.Clamp(v)
	}

	v, err := provider.ScoreUserProfile(ctx, userID, movie)
	if err != nil {
		return 0, 0, err
	}
	return simQuery, similarity.Clamp(v), nil
}

func dedupe(movies []models.Movie) []models.Movie {
	seen := make(map[int]struct{}, len(movies))
	out := make([]models.Movie, 0, len(movies))
	for _, m := range movies {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}
