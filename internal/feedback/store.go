// Package feedback persists star ratings given to recommendations in a flat
// CSV file, one row per (user, movie).
package feedback

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/iwhizerd/Movie-recomendator/internal/models"
	"github.com/iwhizerd/Movie-recomendator/pkg/utils"
	"github.com/sirupsen/logrus"
)

// CSVStore keeps the whole feedback file in memory and rewrites it on every
// upsert. Writes are serialized; readers see either the state before or
// after a write, never a partial one.
type CSVStore struct {
	path   string
	logger *logrus.Logger

	mu    sync.RWMutex
	rows  []models.FeedbackRecord
	index map[models.FeedbackKey]int
}

// NewCSVStore opens the store at path. A missing file is an empty store;
// it is created on the first upsert.
func NewCSVStore(path string, logger *logrus.Logger) (*CSVStore, error) {
	s := &CSVStore{
		path:   path,
		logger: logger,
		index:  make(map[models.FeedbackKey]int),
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.WithField("path", path).Info("Feedback file not found, starting empty")
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open feedback file: %v", models.ErrStorageFailure, err)
	}
	defer f.Close()

	rows, err := readRows(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrStorageFailure, path, err)
	}
	s.rows, s.index = compact(rows)

	logger.WithFields(logrus.Fields{
		"path":    path,
		"records": len(s.rows),
	}).Info("Feedback loaded")

	return s, nil
}

// Upsert stores r, replacing any earlier record for the same user and movie.
// The replaced row moves to the end of the file. On any failure neither the
// file nor the in-memory state changes.
func (s *CSVStore) Upsert(ctx context.Context, r models.FeedbackRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.FeedbackRecord, 0, len(s.rows)+1)
	if i, ok := s.index[r.Key()]; ok {
		next = append(next, s.rows[:i]...)
		next = append(next, s.rows[i+1:]...)
	} else {
		next = append(next, s.rows...)
	}
	next = append(next, r)

	if err := s.write(next); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":  r.UserID,
			"movie_id": r.MovieID,
		}).Error("Failed to persist feedback")
		return err
	}

	s.rows, s.index = compact(next)

	s.logger.WithFields(logrus.Fields{
		"user_id":  r.UserID,
		"movie_id": r.MovieID,
		"feedback": r.Feedback,
	}).Info("Feedback saved")

	return nil
}

// HistoryFor returns the user's records in file order.
func (s *CSVStore) HistoryFor(ctx context.Context, userID int) ([]models.FeedbackRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.FeedbackRecord
	for _, row := range s.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	return out, nil
}

// Get returns the record for one user and movie.
func (s *CSVStore) Get(userID, movieID int) (models.FeedbackRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[models.FeedbackKey{UserID: userID, MovieID: movieID}]
	if !ok {
		return models.FeedbackRecord{}, false
	}
	return s.rows[i], true
}

// All returns every record in file order.
func (s *CSVStore) All(ctx context.Context) ([]models.FeedbackRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.FeedbackRecord, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

// Digest fingerprints a user's feedback. It changes whenever the user's
// history changes and is stable otherwise, so it can key cached results.
func (s *CSVStore) Digest(ctx context.Context, userID int) (string, error) {
	history, err := s.HistoryFor(ctx, userID)
	if err != nil {
		return "", err
	}
	sort.Slice(history, func(i, j int) bool { return history[i].MovieID < history[j].MovieID })

	var b strings.Builder
	for _, r := range history {
		b.WriteString(strings.Join(encode(r), ","))
		b.WriteByte('\n')
	}
	return utils.MD5Hash(b.String()), nil
}

// Path is where the store persists.
func (s *CSVStore) Path() string {
	return s.path
}

// Ping checks that the store's directory is usable.
func (s *CSVStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(filepath.Dir(s.path))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorageFailure, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", models.ErrStorageFailure, filepath.Dir(s.path))
	}
	return nil
}

// write replaces the file with rows via a temp file in the same directory.
func (s *CSVStore) write(rows []models.FeedbackRecord) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: failed to create %s: %v", models.ErrStorageFailure, dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %v", models.ErrStorageFailure, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if err := writeRows(tmp, rows); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to write feedback: %v", models.ErrStorageFailure, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to sync feedback: %v", models.ErrStorageFailure, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to close feedback: %v", models.ErrStorageFailure, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: failed to replace feedback file: %v", models.ErrStorageFailure, err)
	}
	committed = true
	return nil
}

func writeRows(w io.Writer, rows []models.FeedbackRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.FeedbackColumns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(encode(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readRows(r io.Reader) ([]models.FeedbackRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(models.FeedbackColumns)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %v", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	for i, col := range models.FeedbackColumns {
		if strings.TrimSpace(header[i]) != col {
			return nil, fmt.Errorf("unexpected column %d: got %q, want %q", i+1, header[i], col)
		}
	}

	var rows []models.FeedbackRecord
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", line, err)
		}
		r, err := decode(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", line, err)
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func encode(r models.FeedbackRecord) []string {
	return []string{
		strconv.Itoa(r.UserID),
		strconv.Itoa(r.MovieID),
		r.Title,
		formatFloat(r.SimQuery),
		formatFloat(r.SimUser),
		formatFloat(r.RatingScaled),
		formatFloat(r.FinalScore),
		strconv.Itoa(r.Feedback),
	}
}

func decode(fields []string) (models.FeedbackRecord, error) {
	var r models.FeedbackRecord
	var err error

	if r.UserID, err = strconv.Atoi(strings.TrimSpace(fields[0])); err != nil {
		return r, fmt.Errorf("invalid userId %q", fields[0])
	}
	if r.MovieID, err = strconv.Atoi(strings.TrimSpace(fields[1])); err != nil {
		return r, fmt.Errorf("invalid movieId %q", fields[1])
	}
	r.Title = fields[2]

	floats := []*float64{&r.SimQuery, &r.SimUser, &r.RatingScaled, &r.FinalScore}
	for i, dst := range floats {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[3+i]), 64)
		if err != nil {
			return r, fmt.Errorf("invalid %s %q", models.FeedbackColumns[3+i], fields[3+i])
		}
		*dst = v
	}

	// Older writers stored stars as a float.
	stars, err := strconv.ParseFloat(strings.TrimSpace(fields[7]), 64)
	if err != nil {
		return r, fmt.Errorf("invalid feedback %q", fields[7])
	}
	if stars != math.Trunc(stars) {
		return r, fmt.Errorf("invalid feedback %q: stars must be a whole number", fields[7])
	}
	r.Feedback = int(stars)

	if err := r.Validate(); err != nil {
		return r, err
	}
	return r, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// compact drops all but the last row for each key and rebuilds the index.
func compact(rows []models.FeedbackRecord) ([]models.FeedbackRecord, map[models.FeedbackKey]int) {
	last := make(map[models.FeedbackKey]int, len(rows))
	for i, r := range rows {
		last[r.Key()] = i
	}

	out := make([]models.FeedbackRecord, 0, len(last))
	index := make(map[models.FeedbackKey]int, len(last))
	for i, r := range rows {
		if last[r.Key()] != i {
			continue
		}
		index[r.Key()] = len(out)
		out = append(out, r)
	}
	return out, index
}
