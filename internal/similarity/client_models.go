package similarity

// Request models
type MovieDocument struct {
	ID     int      `json:"id"`
	Title  string   `json:"title"`
	Genres []string `json:"genres,omitempty"`
	Year   int      `json:"year,omitempty"`
	Text   string   `json:"text,omitempty"`
}

type QueryScoreRequest struct {
	Query string        `json:"query"`
	Movie MovieDocument `json:"movie"`
}

type UserScoreRequest struct {
	UserID int           `json:"user_id"`
	Movie  MovieDocument `json:"movie"`
}

// Response models
type ScoreResponse struct {
	Score float64 `json:"score"`
	Model string  `json:"model,omitempty"`
}
