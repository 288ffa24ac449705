// Package profile derives a user's taste from their rating and feedback
// history. A Profile is a pure view: it is rebuilt for every request from the
// persisted history and never cached on its own.
package profile

import (
	"math"
	"sort"
	"strings"

	"github.com/iwhizerd/Movie-recomendator/internal/models"
)

// minYearHalfWidth keeps a single liked movie from collapsing the range to one year.
const minYearHalfWidth = 2.0

// Options tunes how history turns into preferences.
type Options struct {
	MaxRating      float64
	LikedThreshold float64
	YearDecay      float64
}

// DefaultOptions matches the 0-5 star dataset.
func DefaultOptions() Options {
	return Options{
		MaxRating:      5,
		LikedThreshold: 3.5,
		YearDecay:      20,
	}
}

// MovieLookup resolves movie ids to catalog entries.
type MovieLookup interface {
	Movie(id int) (models.Movie, bool)
}

// Profile is the derived preference of one user.
type Profile struct {
	UserID        int
	GenreAffinity map[string]float64
	YearLow       float64
	YearHigh      float64
	Liked         []models.Movie
	Rated         map[int]float64

	yearKnown bool
	opts      Options
}

// Build merges dataset ratings with feedback stars (feedback wins for the
// same movie) and derives genre affinity and a preferred release-year range.
func Build(userID int, ratings []models.Rating, feedback []models.FeedbackRecord, movies MovieLookup, opts Options) Profile {
	if opts.MaxRating <= 0 {
		opts.MaxRating = DefaultOptions().MaxRating
	}
	if opts.YearDecay <= 0 {
		opts.YearDecay = DefaultOptions().YearDecay
	}

	stars := make(map[int]float64, len(ratings)+len(feedback))
	for _, r := range ratings {
		if r.UserID == userID {
			stars[r.MovieID] = r.Stars
		}
	}
	for _, f := range feedback {
		if f.UserID == userID {
			stars[f.MovieID] = float64(f.Feedback)
		}
	}

	p := Profile{
		UserID:        userID,
		GenreAffinity: make(map[string]float64),
		Rated:         stars,
		opts:          opts,
	}
	if len(stars) == 0 {
		return p
	}

	ids := make([]int, 0, len(stars))
	for id := range stars {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	genreSum := make(map[string]float64)
	genreCount := make(map[string]int)
	var rated, liked []models.Movie
	for _, id := range ids {
		m, ok := movies.Movie(id)
		if !ok {
			continue
		}
		rated = append(rated, m)
		if stars[id] >= opts.LikedThreshold {
			liked = append(liked, m)
		}
		for _, g := range m.Genres {
			genreSum[g] += stars[id]
			genreCount[g]++
		}
	}

	for g, sum := range genreSum {
		p.GenreAffinity[g] = clamp01(sum / float64(genreCount[g]) / opts.MaxRating)
	}

	p.Liked = liked
	basis := liked
	if len(basis) == 0 {
		basis = rated
	}
	p.yearKnown, p.YearLow, p.YearHigh = yearRange(basis)

	return p
}

// HasHistory reports whether any rated movie resolved against the catalog.
func (p Profile) HasHistory() bool {
	return len(p.GenreAffinity) > 0 || p.yearKnown
}

// GenreScore is the mean affinity over the movie's genres; genres the user
// never rated count as zero.
func (p Profile) GenreScore(m models.Movie) float64 {
	if len(p.GenreAffinity) == 0 || len(m.Genres) == 0 {
		return 0
	}
	var sum float64
	for _, g := range m.Genres {
		sum += p.GenreAffinity[g]
	}
	return clamp01(sum / float64(len(m.Genres)))
}

// YearScore is 1 inside the preferred range and decays linearly to 0 over
// YearDecay years outside it.
func (p Profile) YearScore(m models.Movie) float64 {
	if !p.yearKnown || m.Year == 0 {
		return 0
	}
	y := float64(m.Year)
	var dist float64
	switch {
	case y < p.YearLow:
		dist = p.YearLow - y
	case y > p.YearHigh:
		dist = y - p.YearHigh
	default:
		return 1
	}
	return clamp01(1 - dist/p.opts.YearDecay)
}

// LikedText joins the descriptive text of liked movies.
func (p Profile) LikedText() string {
	var b strings.Builder
	for _, m := range p.Liked {
		b.WriteString(Document(m))
		b.WriteByte(' ')
	}
	return strings.TrimSpace(b.String())
}

// Document is the text a movie is matched on.
func Document(m models.Movie) string {
	parts := []string{m.Title, strings.Join(m.Genres, " ")}
	if m.WikipediaIntro != "" {
		parts = append(parts, m.WikipediaIntro)
	}
	return strings.Join(parts, " ")
}

func yearRange(movies []models.Movie) (bool, float64, float64) {
	var years []float64
	for _, m := range movies {
		if m.Year > 0 {
			years = append(years, float64(m.Year))
		}
	}
	if len(years) == 0 {
		return false, 0, 0
	}

	var sum float64
	for _, y := range years {
		sum += y
	}
	mean := sum / float64(len(years))

	var sq float64
	for _, y := range years {
		sq += (y - mean) * (y - mean)
	}
	half := math.Max(math.Sqrt(sq/float64(len(years))), minYearHalfWidth)

	return true, mean - half, mean + half
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
