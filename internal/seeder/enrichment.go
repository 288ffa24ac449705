package seeder

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/iwhizerd/Movie-recomendator/internal/models"
)

// EnrichmentHeader is the column layout read back by the catalog loader.
var EnrichmentHeader = []string{"movieId", "wikipedia_intro", "wikipedia_link"}

const absent = "-"

// Enrichment is one scraped intro.
type Enrichment struct {
	MovieID int
	Intro   string
	Link    string
}

// Merge returns one row per movie, ordered by id. Scraped values win over
// what the catalog already carries.
func Merge(movies []models.Movie, scraped map[int]Enrichment) []Enrichment {
	rows := make([]Enrichment, 0, len(movies))
	for _, m := range movies {
		row := Enrichment{MovieID: m.ID, Intro: m.WikipediaIntro, Link: m.WikipediaLink}
		if s, ok := scraped[m.ID]; ok && s.Intro != "" {
			row.Intro, row.Link = s.Intro, s.Link
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].MovieID < rows[j].MovieID })
	return rows
}

// WriteEnrichment writes rows as CSV. Missing values are written as "-".
func WriteEnrichment(w io.Writer, rows []Enrichment) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(EnrichmentHeader); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{strconv.Itoa(r.MovieID), orAbsent(r.Intro), orAbsent(r.Link)}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteEnrichmentFile replaces path with rows. Readers never see a partial file.
func WriteEnrichmentFile(path string, rows []Enrichment) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".enrichment-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteEnrichment(tmp, rows); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write enrichment: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func orAbsent(v string) string {
	if v == "" {
		return absent
	}
	return v
}
