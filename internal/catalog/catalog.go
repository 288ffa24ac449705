// Package catalog loads the movie and rating tables the recommender scores
// against. A Catalog is read once at startup and never mutated afterwards.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/iwhizerd/Movie-recomendator/internal/models"
	"github.com/sirupsen/logrus"
)

const noGenres = "(no genres listed)"

var yearPattern = regexp.MustCompile(`\((\d{4})\)\s*$`)

// Paths locates the dataset files. EnrichmentPath is optional.
type Paths struct {
	MoviesPath     string
	RatingsPath    string
	EnrichmentPath string
}

// Catalog is the in-memory movie table plus per-user rating history.
type Catalog struct {
	movies  []models.Movie
	byID    map[int]int
	ratings map[int][]models.Rating
}

// Load reads the dataset described by paths.
func Load(paths Paths, logger *logrus.Logger) (*Catalog, error) {
	mf, err := os.Open(paths.MoviesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open movies file: %w", err)
	}
	defer mf.Close()

	var rf io.Reader
	if paths.RatingsPath != "" {
		f, err := os.Open(paths.RatingsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open ratings file: %w", err)
		}
		defer f.Close()
		rf = f
	}

	var ef io.Reader
	if paths.EnrichmentPath != "" {
		f, err := os.Open(paths.EnrichmentPath)
		switch {
		case err == nil:
			defer f.Close()
			ef = f
		case errors.Is(err, os.ErrNotExist):
			logger.WithField("path", paths.EnrichmentPath).Warn("Enrichment file not found, continuing without descriptions")
		default:
			return nil, fmt.Errorf("failed to open enrichment file: %w", err)
		}
	}

	c, err := Read(mf, rf, ef)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"movies": len(c.movies),
		"users":  len(c.ratings),
	}).Info("Catalog loaded")

	return c, nil
}

// Read builds a Catalog from already opened tables. ratings and enrichment may be nil.
func Read(movies, ratings, enrichment io.Reader) (*Catalog, error) {
	c := &Catalog{
		byID:    make(map[int]int),
		ratings: make(map[int][]models.Rating),
	}

	if err := c.readMovies(movies); err != nil {
		return nil, err
	}
	if ratings != nil {
		if err := c.readRatings(ratings); err != nil {
			return nil, err
		}
	}
	if enrichment != nil {
		if err := c.readEnrichment(enrichment); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// New builds a Catalog directly from values. Average ratings are recomputed
// from ratings when any are given for a movie.
func New(movies []models.Movie, ratings []models.Rating) *Catalog {
	c := &Catalog{
		byID:    make(map[int]int),
		ratings: make(map[int][]models.Rating),
	}
	for _, m := range movies {
		if _, dup := c.byID[m.ID]; dup {
			continue
		}
		c.byID[m.ID] = len(c.movies)
		c.movies = append(c.movies, m)
	}
	sort.Slice(c.movies, func(i, j int) bool { return c.movies[i].ID < c.movies[j].ID })
	c.reindex()
	for _, r := range ratings {
		c.ratings[r.UserID] = append(c.ratings[r.UserID], r)
	}
	if len(ratings) > 0 {
		c.computeAverages()
	}
	return c
}

// Movies returns every movie ordered by id. The slice must not be modified.
func (c *Catalog) Movies() []models.Movie {
	return c.movies
}

// Len returns the number of movies.
func (c *Catalog) Len() int {
	return len(c.movies)
}

// Movie looks a movie up by id.
func (c *Catalog) Movie(id int) (models.Movie, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.Movie{}, false
	}
	return c.movies[i], true
}

// RatingsFor returns the dataset ratings of one user.
func (c *Catalog) RatingsFor(userID int) []models.Rating {
	return c.ratings[userID]
}

// HasUser reports whether the dataset holds ratings for userID.
func (c *Catalog) HasUser(userID int) bool {
	return len(c.ratings[userID]) > 0
}

func (c *Catalog) readMovies(r io.Reader) error {
	rows, header, err := readTable(r, "movies")
	if err != nil {
		return err
	}
	idCol, err := column(header, "movieId")
	if err != nil {
		return err
	}
	titleCol, err := column(header, "title")
	if err != nil {
		return err
	}
	genresCol, err := column(header, "genres")
	if err != nil {
		return err
	}

	for i, row := range rows {
		id, err := strconv.Atoi(strings.TrimSpace(row[idCol]))
		if err != nil {
			return fmt.Errorf("movies row %d: invalid movieId %q: %w", i+2, row[idCol], err)
		}
		if _, dup := c.byID[id]; dup {
			continue
		}
		title := strings.TrimSpace(row[titleCol])
		c.byID[id] = len(c.movies)
		c.movies = append(c.movies, models.Movie{
			ID:     id,
			Title:  title,
			Genres: ParseGenres(row[genresCol]),
			Year:   ParseYear(title),
		})
	}

	sort.Slice(c.movies, func(i, j int) bool { return c.movies[i].ID < c.movies[j].ID })
	c.reindex()
	return nil
}

func (c *Catalog) readRatings(r io.Reader) error {
	rows, header, err := readTable(r, "ratings")
	if err != nil {
		return err
	}
	userCol, err := column(header, "userId")
	if err != nil {
		return err
	}
	movieCol, err := column(header, "movieId")
	if err != nil {
		return err
	}
	ratingCol, err := column(header, "rating")
	if err != nil {
		return err
	}
	tsCol, _ := column(header, "timestamp")

	for i, row := range rows {
		userID, err := strconv.Atoi(strings.TrimSpace(row[userCol]))
		if err != nil {
			return fmt.Errorf("ratings row %d: invalid userId %q: %w", i+2, row[userCol], err)
		}
		movieID, err := strconv.Atoi(strings.TrimSpace(row[movieCol]))
		if err != nil {
			return fmt.Errorf("ratings row %d: invalid movieId %q: %w", i+2, row[movieCol], err)
		}
		stars, err := strconv.ParseFloat(strings.TrimSpace(row[ratingCol]), 64)
		if err != nil {
			return fmt.Errorf("ratings row %d: invalid rating %q: %w", i+2, row[ratingCol], err)
		}
		var ts int64
		if tsCol >= 0 {
			ts, _ = strconv.ParseInt(strings.TrimSpace(row[tsCol]), 10, 64)
		}
		c.ratings[userID] = append(c.ratings[userID], models.Rating{
			UserID:    userID,
			MovieID:   movieID,
			Stars:     stars,
			Timestamp: ts,
		})
	}

	c.computeAverages()
	return nil
}

func (c *Catalog) readEnrichment(r io.Reader) error {
	rows, header, err := readTable(r, "enrichment")
	if err != nil {
		return err
	}
	idCol, err := column(header, "movieId")
	if err != nil {
		return err
	}
	introCol, _ := column(header, "wikipedia_intro")
	linkCol, _ := column(header, "wikipedia_link")

	for _, row := range rows {
		id, err := strconv.Atoi(strings.TrimSpace(row[idCol]))
		if err != nil {
			continue
		}
		i, ok := c.byID[id]
		if !ok {
			continue
		}
		if introCol >= 0 {
			c.movies[i].WikipediaIntro = placeholder(row[introCol])
		}
		if linkCol >= 0 {
			c.movies[i].WikipediaLink = placeholder(row[linkCol])
		}
	}
	return nil
}

func (c *Catalog) computeAverages() {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	users := make([]int, 0, len(c.ratings))
	for userID := range c.ratings {
		users = append(users, userID)
	}
	sort.Ints(users)
	for _, userID := range users {
		for _, r := range c.ratings[userID] {
			sums[r.MovieID] += r.Stars
			counts[r.MovieID]++
		}
	}
	for i := range c.movies {
		id := c.movies[i].ID
		if n := counts[id]; n > 0 {
			c.movies[i].AvgRating = sums[id] / float64(n)
			c.movies[i].RatingCount = n
		}
	}
}

func (c *Catalog) reindex() {
	for i, m := range c.movies {
		c.byID[m.ID] = i
	}
}

// ParseGenres splits a pipe separated genre field.
func ParseGenres(field string) []string {
	field = strings.TrimSpace(field)
	if field == "" || field == noGenres {
		return nil
	}
	parts := strings.Split(field, "|")
	genres := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			genres = append(genres, p)
		}
	}
	return genres
}

// ParseYear extracts a trailing "(YYYY)" from a title, returning 0 when absent.
func ParseYear(title string) int {
	m := yearPattern.FindStringSubmatch(strings.TrimSpace(title))
	if m == nil {
		return 0
	}
	year, _ := strconv.Atoi(m[1])
	return year
}

func placeholder(v string) string {
	v = strings.TrimSpace(v)
	if v == "-" {
		return ""
	}
	return v
}

func readTable(r io.Reader, name string) ([][]string, []string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s file: %w", name, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%s file is empty", name)
	}
	header := records[0]
	rows := records[1:]
	for i, row := range rows {
		if len(row) < len(header) {
			return nil, nil, fmt.Errorf("%s row %d: expected %d columns, got %d", name, i+2, len(header), len(row))
		}
	}
	return rows, header, nil
}

func column(header []string, name string) (int, error) {
	for i, h := range header {
		if strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("missing column %q", name)
}
