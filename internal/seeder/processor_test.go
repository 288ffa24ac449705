package seeder

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/iwhizerd/Movie-recomendator/internal/catalog"
	"github.com/iwhizerd/Movie-recomendator/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanContent(t *testing.T) {
	cp := NewContentProcessor(0)

	in := "<b>Heat</b> is a 1995 American [[crime film|crime]] film[1] directed by\n\n  Michael Mann ( ) .[citation needed]"
	assert.Equal(t, "Heat is a 1995 American crime film directed by Michael Mann.", cp.CleanContent(in))
}

func TestTruncate(t *testing.T) {
	cp := NewContentProcessor(40)

	assert.Equal(t, "short", cp.Truncate("short"))
	assert.Equal(t, "First sentence is here. Second one.",
		cp.Truncate("First sentence is here. Second one. Third sentence is long."))

	out := cp.Truncate(strings.Repeat("word ", 20))
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.LessOrEqual(t, len([]rune(out)), 43)
}

func TestIntro_SkipsEmptyParagraphs(t *testing.T) {
	html := `<div id="mw-content-text"><div class="mw-parser-output">
		<p class="mw-empty-elt"></p>
		<p>Short.</p>
		<p><b>Toy Story</b> is a 1995 American animated comedy film<sup class="reference">[2]</sup> produced by Pixar.</p>
		<p>Second paragraph.</p>
	</div></div>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	intro := NewContentProcessor(0).Intro(doc.Find("#mw-content-text"))
	assert.Equal(t, "Toy Story is a 1995 American animated comedy film produced by Pixar.", intro)
}

func TestArticleTitle(t *testing.T) {
	assert.Equal(t, "The Matrix", ArticleTitle("Matrix, The (1999)"))
	assert.Equal(t, "Heat", ArticleTitle("Heat (1995)"))
	assert.Equal(t, "An American Tail", ArticleTitle("American Tail, An (1986)"))
	assert.Equal(t, "No Year", ArticleTitle("No Year"))
}

func TestCandidateURLs(t *testing.T) {
	urls := CandidateURLs("Matrix, The (1999)", 1999)
	require.Len(t, urls, 3)
	assert.Equal(t, "https://en.wikipedia.org/wiki/The_Matrix_%281999_film%29", urls[0])
	assert.Equal(t, "https://en.wikipedia.org/wiki/The_Matrix_%28film%29", urls[1])
	assert.Equal(t, "https://en.wikipedia.org/wiki/The_Matrix", urls[2])

	assert.Len(t, CandidateURLs("Heat", 0), 2)
	assert.Empty(t, CandidateURLs("  ", 0))
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, CountWords(""))
	assert.Equal(t, 3, CountWords("a big, red dog!"))
}

func TestEnrichment_RoundTripThroughCatalog(t *testing.T) {
	movies := []models.Movie{
		{ID: 2, Title: "Jumanji (1995)", WikipediaIntro: "Old intro.", WikipediaLink: "https://old"},
		{ID: 1, Title: "Toy Story (1995)"},
		{ID: 3, Title: "Heat (1995)"},
	}
	rows := Merge(movies, map[int]Enrichment{
		1: {MovieID: 1, Intro: "A cowboy doll, \"Woody\", feels threatened.", Link: "https://en.wikipedia.org/wiki/Toy_Story"},
		3: {MovieID: 3, Intro: ""},
	})
	require.Len(t, rows, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{rows[0].MovieID, rows[1].MovieID, rows[2].MovieID})
	assert.Equal(t, "Old intro.", rows[1].Intro)

	var buf bytes.Buffer
	require.NoError(t, WriteEnrichment(&buf, rows))
	assert.True(t, strings.HasPrefix(buf.String(), "movieId,wikipedia_intro,wikipedia_link\n"))
	assert.Contains(t, buf.String(), "3,-,-\n")

	path := filepath.Join(t.TempDir(), "wiki", "movies_wiki.csv")
	require.NoError(t, WriteEnrichmentFile(path, rows))

	moviesCSV := "movieId,title,genres\n1,Toy Story (1995),Animation|Comedy\n2,Jumanji (1995),Adventure\n3,Heat (1995),Crime\n"
	ratingsCSV := "userId,movieId,rating,timestamp\n1,1,4.0,0\n"
	enrichment := bytes.NewReader(buf.Bytes())
	cat, err := catalog.Read(strings.NewReader(moviesCSV), strings.NewReader(ratingsCSV), enrichment)
	require.NoError(t, err)

	toy, ok := cat.Movie(1)
	require.True(t, ok)
	assert.Equal(t, "A cowboy doll, \"Woody\", feels threatened.", toy.WikipediaIntro)
	heat, _ := cat.Movie(3)
	assert.Empty(t, heat.WikipediaIntro)
}
