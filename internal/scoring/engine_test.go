package scoring

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/iwhizerd/Movie-recomendator/internal/models"
	"github.com/iwhizerd/Movie-recomendator/internal/profile"
	"github.com/iwhizerd/Movie-recomendator/internal/similarity"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu        sync.Mutex
	query     map[int]float64
	user      map[int]float64
	fail      map[int]bool
	failAll   bool
	queryHits int
}

func (f *fakeProvider) ScoreQuery(ctx context.Context, query string, movie models.Movie) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	f.queryHits++
	f.mu.Unlock()
	if f.failAll || f.fail[movie.ID] {
		return 0, errors.New("backend unavailable")
	}
	return f.query[movie.ID], nil
}

func (f *fakeProvider) ScoreUserProfile(ctx context.Context, userID int, movie models.Movie) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if f.failAll || f.fail[movie.ID] {
		return 0, errors.New("backend unavailable")
	}
	return f.user[movie.ID], nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testMovies() []models.Movie {
	return []models.Movie{
		{ID: 1, Title: "Toy Story (1995)", Genres: []string{"Animation", "Children"}, Year: 1995, AvgRating: 4.0},
		{ID: 2, Title: "Jumanji (1995)", Genres: []string{"Adventure", "Children"}, Year: 1995, AvgRating: 3.0},
		{ID: 3, Title: "Heat (1995)", Genres: []string{"Action", "Crime"}, Year: 1995, AvgRating: 4.5},
	}
}

func TestEngine_ScenarioScore(t *testing.T) {
	p := &fakeProvider{
		query: map[int]float64{1: 0.9},
		user:  map[int]float64{1: 0.2},
	}
	e := NewEngine(p, DefaultOptions(), quietLogger())

	res, err := e.Score(context.Background(), Request{
		Query:      "animated toys",
		UserID:     7,
		Candidates: testMovies()[:1],
		Weights:    models.DefaultWeights(),
		TopN:       1,
	})
	require.NoError(t, err)
	require.Len(t, res.Recommendations, 1)

	rec := res.Recommendations[0]
	assert.InDelta(t, 0.9, rec.SimQuery, 1e-12)
	assert.InDelta(t, 0.2, rec.SimUser, 1e-12)
	assert.InDelta(t, 0.8, rec.RatingScaled, 1e-12)
	assert.InDelta(t, 0.68/1.2, rec.FinalScore, 1e-12)
	assert.False(t, res.Degraded)
}

func TestEngine_OrdersAndTruncates(t *testing.T) {
	p := &fakeProvider{
		query: map[int]float64{1: 0.1, 2: 0.9, 3: 0.5},
		user:  map[int]float64{},
	}
	e := NewEngine(p, Options{Concurrency: 2}, quietLogger())

	res, err := e.Score(context.Background(), Request{
		Query:      "jungle board game",
		Candidates: testMovies(),
		Weights:    models.DefaultWeights(),
		TopN:       2,
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, movieIDs(res.Recommendations))
	assert.Equal(t, 3, res.Candidates)
}

func TestEngine_TopNLargerThanCandidates(t *testing.T) {
	e := NewEngine(&fakeProvider{}, DefaultOptions(), quietLogger())

	res, err := e.Score(context.Background(), Request{
		Query:      "anything",
		Candidates: append(testMovies(), testMovies()[0]),
		Weights:    models.DefaultWeights(),
		TopN:       50,
	})
	require.NoError(t, err)
	assert.Len(t, res.Recommendations, 3)
}

func TestEngine_NoCandidates(t *testing.T) {
	e := NewEngine(&fakeProvider{}, DefaultOptions(), quietLogger())

	res, err := e.Score(context.Background(), Request{
		Query:   "anything",
		Weights: models.DefaultWeights(),
		TopN:    5,
	})
	require.NoError(t, err)
	assert.NotNil(t, res.Recommendations)
	assert.Empty(t, res.Recommendations)
}

func TestEngine_EmptyQueryContributesZero(t *testing.T) {
	p := &fakeProvider{query: map[int]float64{1: 1, 2: 1, 3: 1}}
	e := NewEngine(p, DefaultOptions(), quietLogger())

	res, err := e.Score(context.Background(), Request{
		Query:      "   ",
		Candidates: testMovies(),
		Weights:    models.DefaultWeights(),
		TopN:       3,
	})
	require.NoError(t, err)
	for _, rec := range res.Recommendations {
		assert.Zero(t, rec.SimQuery)
	}
	assert.Zero(t, p.queryHits)
	// Only rating carries information, so the best-rated film leads.
	assert.Equal(t, 3, res.Recommendations[0].MovieID)
}

func TestEngine_PartialFailureDegrades(t *testing.T) {
	p := &fakeProvider{
		query: map[int]float64{1: 0.9, 3: 0.9},
		fail:  map[int]bool{3: true},
	}
	e := NewEngine(p, DefaultOptions(), quietLogger())

	res, err := e.Score(context.Background(), Request{
		Query:      "toys",
		Candidates: testMovies(),
		Weights:    models.DefaultWeights(),
		TopN:       3,
	})
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, 1, res.Failed)

	var heat models.Recommendation
	for _, rec := range res.Recommendations {
		if rec.MovieID == 3 {
			heat = rec
		}
	}
	assert.True(t, heat.Degraded)
	assert.Zero(t, heat.SimQuery)
	assert.InDelta(t, 0.9, heat.RatingScaled, 1e-12)
}

func TestEngine_AllFailedIsDependencyFailure(t *testing.T) {
	e := NewEngine(&fakeProvider{failAll: true}, DefaultOptions(), quietLogger())

	_, err := e.Score(context.Background(), Request{
		Query:      "toys",
		Candidates: testMovies(),
		Weights:    models.DefaultWeights(),
		TopN:       3,
	})
	assert.ErrorIs(t, err, models.ErrDependencyFailure)
}

func TestEngine_CancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := NewEngine(&fakeProvider{}, DefaultOptions(), quietLogger())

	_, err := e.Score(ctx, Request{
		Query:      "toys",
		Candidates: testMovies(),
		Weights:    models.DefaultWeights(),
		TopN:       3,
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_RejectsInvalidRequest(t *testing.T) {
	e := NewEngine(&fakeProvider{}, DefaultOptions(), quietLogger())

	_, err := e.Score(context.Background(), Request{Candidates: testMovies(), Weights: models.DefaultWeights()})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = e.Score(context.Background(), Request{Candidates: testMovies(), TopN: 3})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestEngine_BindsProfileForLocalProvider(t *testing.T) {
	movies := testMovies()
	lookup := movieLookup(movies)
	ratings := []models.Rating{{UserID: 4, MovieID: 3, Stars: 5}}
	prof := profile.Build(4, ratings, nil, lookup, profile.DefaultOptions())

	e := NewEngine(similarity.NewLocalProvider(), DefaultOptions(), quietLogger())
	res, err := e.Score(context.Background(), Request{
		UserID:     4,
		Candidates: movies,
		Weights:    models.DefaultWeights(),
		TopN:       3,
		Profile:    prof,
	})
	require.NoError(t, err)

	require.Equal(t, 3, res.Recommendations[0].MovieID)
	assert.InDelta(t, 1.0, res.Recommendations[0].SimUser, 1e-9)
	assert.InDelta(t, 1.0, res.Recommendations[0].GenreScore, 1e-9)
	for _, rec := range res.Recommendations[1:] {
		assert.Less(t, rec.SimUser, 1.0)
	}
}

func TestEngine_Deterministic(t *testing.T) {
	p := &fakeProvider{
		query: map[int]float64{1: 0.3, 2: 0.3, 3: 0.3},
		user:  map[int]float64{1: 0.5, 2: 0.5, 3: 0.5},
	}
	e := NewEngine(p, Options{Concurrency: 3}, quietLogger())
	req := Request{
		Query:      "x",
		Candidates: testMovies(),
		Weights:    models.DefaultWeights(),
		TopN:       3,
	}

	first, err := e.Score(context.Background(), req)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := e.Score(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, first.Recommendations, again.Recommendations)
	}
}

type movieLookup []models.Movie

func (l movieLookup) Movie(id int) (models.Movie, bool) {
	for _, m := range l {
		if m.ID == id {
			return m, true
		}
	}
	return models.Movie{}, false
}
