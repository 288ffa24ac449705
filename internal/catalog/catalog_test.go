package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iwhizerd/Movie-recomendator/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const moviesCSV = `movieId,title,genres
2,Jumanji (1995),Adventure|Children|Fantasy
1,Toy Story (1995),Adventure|Animation|Children|Comedy|Fantasy
3,"Shawshank Redemption, The (1994)",Crime|Drama
4,Untitled,(no genres listed)
1,Toy Story duplicate (1995),Comedy
`

const ratingsCSV = `userId,movieId,rating,timestamp
1,1,4.0,964982703
1,3,5.0,964981247
2,1,3.0,964982224
2,2,2.5,964983815
`

const wikiCSV = `movieId,wikipedia_intro,wikipedia_link
1,A cowboy doll is threatened by a new spaceman figure.,https://en.wikipedia.org/wiki/Toy_Story
2,-,-
99,Orphan row,https://example.org
`

func TestRead_ParsesMoviesRatingsAndEnrichment(t *testing.T) {
	c, err := Read(strings.NewReader(moviesCSV), strings.NewReader(ratingsCSV), strings.NewReader(wikiCSV))
	require.NoError(t, err)

	require.Equal(t, 4, c.Len())
	ids := make([]int, 0, c.Len())
	for _, m := range c.Movies() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []int{1, 2, 3, 4}, ids)

	toy, ok := c.Movie(1)
	require.True(t, ok)
	assert.Equal(t, "Toy Story (1995)", toy.Title)
	assert.Equal(t, 1995, toy.Year)
	assert.Equal(t, []string{"Adventure", "Animation", "Children", "Comedy", "Fantasy"}, toy.Genres)
	assert.InDelta(t, 3.5, toy.AvgRating, 1e-9)
	assert.Equal(t, 2, toy.RatingCount)
	assert.Contains(t, toy.WikipediaIntro, "cowboy doll")
	assert.Equal(t, "https://en.wikipedia.org/wiki/Toy_Story", toy.WikipediaLink)

	jumanji, _ := c.Movie(2)
	assert.Empty(t, jumanji.WikipediaIntro)
	assert.Empty(t, jumanji.WikipediaLink)

	shawshank, _ := c.Movie(3)
	assert.Equal(t, 1994, shawshank.Year)
	assert.InDelta(t, 5.0, shawshank.AvgRating, 1e-9)

	untitled, _ := c.Movie(4)
	assert.Empty(t, untitled.Genres)
	assert.Zero(t, untitled.Year)
	assert.Zero(t, untitled.AvgRating)

	assert.Len(t, c.RatingsFor(1), 2)
	assert.True(t, c.HasUser(2))
	assert.False(t, c.HasUser(42))
}

func TestRead_RejectsMalformedTables(t *testing.T) {
	_, err := Read(strings.NewReader("movieId,title\n1,Foo\n"), nil, nil)
	assert.ErrorContains(t, err, "genres")

	_, err = Read(strings.NewReader("movieId,title,genres\nabc,Foo,Drama\n"), nil, nil)
	assert.ErrorContains(t, err, "invalid movieId")

	_, err = Read(strings.NewReader(moviesCSV), strings.NewReader("userId,movieId,rating\n1,1,great\n"), nil)
	assert.ErrorContains(t, err, "invalid rating")

	_, err = Read(strings.NewReader(""), nil, nil)
	assert.ErrorContains(t, err, "empty")
}

func TestLoad_MissingEnrichmentIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	moviesPath := filepath.Join(dir, "movies.csv")
	ratingsPath := filepath.Join(dir, "ratings.csv")
	require.NoError(t, os.WriteFile(moviesPath, []byte(moviesCSV), 0o644))
	require.NoError(t, os.WriteFile(ratingsPath, []byte(ratingsCSV), 0o644))

	c, err := Load(Paths{
		MoviesPath:     moviesPath,
		RatingsPath:    ratingsPath,
		EnrichmentPath: filepath.Join(dir, "missing.csv"),
	}, logrus.New())
	require.NoError(t, err)
	assert.Equal(t, 4, c.Len())

	_, err = Load(Paths{MoviesPath: filepath.Join(dir, "nope.csv")}, logrus.New())
	assert.Error(t, err)
}

func TestNew_ComputesAverages(t *testing.T) {
	c := New(
		[]models.Movie{{ID: 7, Title: "B"}, {ID: 3, Title: "A", AvgRating: 1}},
		[]models.Rating{{UserID: 1, MovieID: 7, Stars: 4}, {UserID: 2, MovieID: 7, Stars: 2}},
	)
	assert.Equal(t, 3, c.Movies()[0].ID)
	m, ok := c.Movie(7)
	require.True(t, ok)
	assert.InDelta(t, 3.0, m.AvgRating, 1e-9)

	a, _ := c.Movie(3)
	assert.InDelta(t, 1.0, a.AvgRating, 1e-9, "movies without ratings keep their given average")
}

func TestParseYear(t *testing.T) {
	assert.Equal(t, 1999, ParseYear("Matrix, The (1999)"))
	assert.Equal(t, 2010, ParseYear("Inception (2010) "))
	assert.Equal(t, 0, ParseYear("Cosmos"))
	assert.Equal(t, 0, ParseYear("1984 (film"))
}
