package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/iwhizerd/Movie-recomendator/internal/models"
)

// Scored is a candidate with its collected signals, ready for ranking.
type Scored struct {
	Movie    models.Movie
	Signals  models.SignalScores
	Degraded bool
}

// scoreResolution is the grid final scores are rounded to. Scores that are
// equal in exact arithmetic can differ in the last bits depending on the
// magnitude of the weights; rounding makes them compare equal.
const scoreResolution = 1e12

// FinalScore is the weighted mean of the five signals. Dividing by the sum of
// the weights keeps the result in [0,1] whatever the weights add up to.
func FinalScore(s models.SignalScores, w models.WeightVector) float64 {
	total := w.Sum()
	if total <= 0 {
		return math.NaN()
	}
	var sum float64
	for _, signal := range models.Signals {
		sum += w.Get(signal) * s.Get(signal)
	}
	return math.Round(sum/total*scoreResolution) / scoreResolution
}

// RatingScaled maps an average rating onto [0,1].
func RatingScaled(avg, maxRating float64) float64 {
	if maxRating <= 0 || math.IsNaN(avg) || avg <= 0 {
		return 0
	}
	if avg >= maxRating {
		return 1
	}
	return avg / maxRating
}

// Rank orders scored candidates by final score descending, then average
// rating descending, then movie id ascending, keeping each movie id once and
// at most topN entries. It is a pure function of its inputs: the order of
// scored does not affect the result.
func Rank(scored []Scored, weights models.WeightVector, topN int) ([]models.Recommendation, error) {
	if topN <= 0 {
		return nil, fmt.Errorf("%w: topN must be positive, got %d", models.ErrInvalidInput, topN)
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	best := make(map[int]models.Recommendation, len(scored))
	for _, s := range scored {
		final := FinalScore(s.Signals, weights)
		if math.IsNaN(final) || math.IsInf(final, 0) {
			continue
		}
		rec := models.Recommendation{
			MovieID:        s.Movie.ID,
			Title:          s.Movie.Title,
			Genres:         s.Movie.Genres,
			Year:           s.Movie.Year,
			AvgRating:      s.Movie.AvgRating,
			WikipediaIntro: s.Movie.WikipediaIntro,
			WikipediaLink:  s.Movie.WikipediaLink,
			SignalScores:   s.Signals,
			Weights:        weights,
			FinalScore:     final,
			Degraded:       s.Degraded,
		}
		if prev, dup := best[rec.MovieID]; dup && !ranksBefore(rec, prev) {
			continue
		}
		best[rec.MovieID] = rec
	}

	recs := make([]models.Recommendation, 0, len(best))
	for _, rec := range best {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return ranksBefore(recs[i], recs[j]) })

	if len(recs) > topN {
		recs = recs[:topN]
	}
	return recs, nil
}

// ranksBefore is the total order of the ranked list. Duplicate ids resolve
// to the entry that would rank first, and signal values break the remaining
// ties so the choice does not depend on input order.
func ranksBefore(a, b models.Recommendation) bool {
	if a.FinalScore != b.FinalScore {
		return a.FinalScore > b.FinalScore
	}
	if a.AvgRating != b.AvgRating {
		return a.AvgRating > b.AvgRating
	}
	if a.MovieID != b.MovieID {
		return a.MovieID < b.MovieID
	}
	for _, signal := range models.Signals {
		if av, bv := a.SignalScores.Get(signal), b.SignalScores.Get(signal); av != bv {
			return av > bv
		}
	}
	return !a.Degraded && b.Degraded
}
