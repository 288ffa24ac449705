package similarity

import (
	"context"
	"strings"
	"sync"

	"github.com/iwhizerd/Movie-recomendator/internal/models"
	"github.com/iwhizerd/Movie-recomendator/internal/profile"
)

// ProfileBinder is implemented by providers that need the user's taste
// passed in explicitly for the duration of one request.
type ProfileBinder interface {
	BindProfile(userID int, profileText string) Provider
}

// LocalProvider scores by cosine similarity of term-frequency vectors.
// Movie vectors are memoized; movies are immutable so they never go stale.
type LocalProvider struct {
	docs sync.Map // movie id -> TermVector
}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

func (p *LocalProvider) ScoreQuery(ctx context.Context, query string, movie models.Movie) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if strings.TrimSpace(query) == "" {
		return 0, nil
	}
	return Cosine(NewTermVector(query), p.document(movie)), nil
}

// ScoreUserProfile returns 0: without a bound profile there is no taste to match.
func (p *LocalProvider) ScoreUserProfile(ctx context.Context, userID int, movie models.Movie) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return 0, nil
}

// BindProfile returns a provider that matches movies against profileText.
func (p *LocalProvider) BindProfile(userID int, profileText string) Provider {
	return &boundProvider{
		LocalProvider: p,
		userID:        userID,
		profile:       NewTermVector(profileText),
	}
}

func (p *LocalProvider) document(movie models.Movie) TermVector {
	if v, ok := p.docs.Load(movie.ID); ok {
		return v.(TermVector)
	}
	v := NewTermVector(profile.Document(movie))
	p.docs.Store(movie.ID, v)
	return v
}

type boundProvider struct {
	*LocalProvider
	userID  int
	profile TermVector
}

func (b *boundProvider) ScoreUserProfile(ctx context.Context, userID int, movie models.Movie) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if userID != b.userID {
		return 0, nil
	}
	return Cosine(b.profile, b.document(movie)), nil
}
