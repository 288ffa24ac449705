package models

// RecommendRequest is the body of POST /api/v1/recommendations.
type RecommendRequest struct {
	UserID       int           `json:"user_id" binding:"required,gt=0"`
	Query        string        `json:"query" binding:"max=2000"`
	TopN         int           `json:"top_n" binding:"gte=0,lte=100"`
	Page         int           `json:"page" binding:"gte=0"`
	PageSize     int           `json:"page_size" binding:"gte=0,lte=50"`
	ExcludeRated bool          `json:"exclude_rated"`
	Weights      *WeightVector `json:"weights,omitempty"`
}

// RecommendResponse carries one page of a ranked list.
type RecommendResponse struct {
	UserID          int              `json:"user_id"`
	Query           string           `json:"query"`
	Recommendations []Recommendation `json:"recommendations"`
	Weights         WeightVector     `json:"weights"`
	Personalized    bool             `json:"personalized"`
	Degraded        bool             `json:"degraded"`
	ColdStart       bool             `json:"cold_start"`
	Total           int              `json:"total"`
	Page            int              `json:"page"`
	PageSize        int              `json:"page_size"`
	TotalPages      int              `json:"total_pages"`
	ResponseTime    int              `json:"response_time_ms"`
	Cached          bool             `json:"cached"`
}

// FeedbackRequest is the body of POST /api/v1/feedback. The signal values are
// the ones shown with the recommendation being rated.
type FeedbackRequest struct {
	UserID       int     `json:"user_id" binding:"required,gt=0"`
	MovieID      int     `json:"movie_id" binding:"required,gt=0"`
	SimQuery     float64 `json:"sim_query" binding:"gte=0,lte=1"`
	SimUser      float64 `json:"sim_user" binding:"gte=0,lte=1"`
	RatingScaled float64 `json:"rating_scaled" binding:"gte=0,lte=1"`
	FinalScore   float64 `json:"final_score" binding:"gte=0,lte=1"`
	Feedback     int     `json:"feedback" binding:"required,min=1,max=5"`
}

// WeightsResponse reports the blend a user would be ranked with.
type WeightsResponse struct {
	UserID        int          `json:"user_id"`
	Defaults      WeightVector `json:"defaults"`
	Personalized  WeightVector `json:"personalized"`
	FeedbackCount int          `json:"feedback_count"`
}

// HistoryResponse lists a user's stored feedback.
type HistoryResponse struct {
	UserID   int              `json:"user_id"`
	Feedback []FeedbackRecord `json:"feedback"`
	Total    int              `json:"total"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}
