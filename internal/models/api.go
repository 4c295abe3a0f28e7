package models

// InsightType classifies a post
type InsightType string

const (
	InsightFundamentalAnalysis InsightType = "fundamental_analysis"
	InsightTechnicalAnalysis   InsightType = "technical_analysis"
	InsightMacroCommentary     InsightType = "macro_commentary"
	InsightEarningsForecast    InsightType = "earnings_forecast"
	InsightRiskWarning         InsightType = "risk_warning"
)

// ReactionType is a community reaction on a post
type ReactionType string

const (
	ReactionLike    ReactionType = "like"
	ReactionDislike ReactionType = "dislike"
	ReactionBullish ReactionType = "bullish"
	ReactionBearish ReactionType = "bearish"
	ReactionHelpful ReactionType = "helpful"
)

// User is a platform member
type User struct {
	ID              int64      `json:"id" validate:"required"`
	Username        string     `json:"username" validate:"required"`
	Email           string     `json:"email,omitempty"`
	FullName        string     `json:"full_name,omitempty"`
	Bio             string     `json:"bio,omitempty"`
	ReputationScore float64    `json:"reputation_score"`
	IsVerified      bool       `json:"is_verified"`
	CreatedAt       *Timestamp `json:"created_at,omitempty"`
}

// Post is a ranked insight as returned by the feed and dashboard endpoints
type Post struct {
	ID             int64       `json:"id" validate:"required"`
	Title          string      `json:"title" validate:"required"`
	Content        string      `json:"content"`
	Ticker         string      `json:"ticker,omitempty"`
	InsightType    InsightType `json:"insight_type,omitempty"`
	AuthorID       int64       `json:"author_id,omitempty"`
	Author         *User       `json:"author,omitempty"`
	Summary        string      `json:"summary,omitempty"`
	QualityScore   float64     `json:"quality_score"`
	SemanticTags   []string    `json:"semantic_tags,omitempty"`
	Sector         string      `json:"sector,omitempty"`
	CatalystType   string      `json:"catalyst_type,omitempty"`
	RiskProfile    string      `json:"risk_profile,omitempty"`
	LLMExplanation string      `json:"llm_explanation,omitempty"`
	LikeCount      int         `json:"like_count"`
	DislikeCount   int         `json:"dislike_count"`
	BullishCount   int         `json:"bullish_count"`
	BearishCount   int         `json:"bearish_count"`
	HelpfulCount   int         `json:"helpful_count"`
	ViewCount      int         `json:"view_count"`
	MarketPrice    *float64    `json:"market_price_at_post,omitempty"`
	CreatedAt      *Timestamp  `json:"created_at,omitempty"`
}

// TrendingTicker is one entry of the trending list
type TrendingTicker struct {
	Ticker          string   `json:"ticker" validate:"required"`
	PostCount       int      `json:"post_count"`
	SentimentScore  *float64 `json:"sentiment_score"`
	PriceChange24h  *float64 `json:"price_change_24h"`
	VolumeChange24h *float64 `json:"volume_change_24h"`
}

// DashboardAnalytics is the payload of GET /api/analytics/dashboard
type DashboardAnalytics struct {
	TrendingTickers     []TrendingTicker   `json:"trending_tickers" validate:"required,dive"`
	TopInsights         []Post             `json:"top_insights" validate:"required,dive"`
	TopUsers            []User             `json:"top_users" validate:"required,dive"`
	AggregatedSentiment map[string]float64 `json:"aggregated_sentiment" validate:"required"`
}

// FeedPage is one page of GET /api/feeds/personalized
type FeedPage struct {
	Posts    []Post `json:"posts" validate:"required,dive"`
	Total    int    `json:"total"`
	Page     int    `json:"page" validate:"gte=1"`
	PageSize int    `json:"page_size" validate:"gte=1"`
	HasNext  bool   `json:"has_next"`
}

// MarketSnapshot is the live data of GET /api/market/ticker/{ticker}
type MarketSnapshot struct {
	Ticker          string     `json:"ticker" validate:"required"`
	CurrentPrice    float64    `json:"current_price" validate:"gte=0"`
	PriceChange24h  float64    `json:"price_change_24h"`
	Volume24h       float64    `json:"volume_24h" validate:"gte=0"`
	VolumeChange24h float64    `json:"volume_change_24h"`
	MarketCap       *float64   `json:"market_cap,omitempty"`
	LastUpdated     *Timestamp `json:"last_updated,omitempty"`
	IsDemoData      bool       `json:"is_demo_data"`
}

// Explanation is the server-side ranking explanation of a post
type Explanation struct {
	Explanation     string         `json:"explanation"`
	Factors         map[string]any `json:"factors"`
	ConfidenceScore float64        `json:"confidence_score"`
}

// NewPost is the body of POST /api/posts/
type NewPost struct {
	Title       string      `json:"title" validate:"required"`
	Content     string      `json:"content" validate:"required"`
	Ticker      string      `json:"ticker,omitempty"`
	InsightType InsightType `json:"insight_type" validate:"required,oneof=fundamental_analysis technical_analysis macro_commentary earnings_forecast risk_warning"`
}

// Reaction is a stored reaction
type Reaction struct {
	ID           int64        `json:"id" validate:"required"`
	PostID       int64        `json:"post_id"`
	UserID       int64        `json:"user_id"`
	ReactionType ReactionType `json:"reaction_type"`
	CreatedAt    *Timestamp   `json:"created_at,omitempty"`
}

// Comment is a comment on a post
type Comment struct {
	ID              int64      `json:"id" validate:"required"`
	PostID          int64      `json:"post_id"`
	ParentCommentID *int64     `json:"parent_comment_id,omitempty"`
	Content         string     `json:"content"`
	LikeCount       int        `json:"like_count"`
	Author          *User      `json:"author,omitempty"`
	CreatedAt       *Timestamp `json:"created_at,omitempty"`
}

// NewComment is the body of POST /api/comments/
type NewComment struct {
	PostID          int64  `json:"post_id" validate:"required"`
	Content         string `json:"content" validate:"required"`
	ParentCommentID *int64 `json:"parent_comment_id,omitempty"`
}

// Message is a direct message
type Message struct {
	ID        int64      `json:"id" validate:"required"`
	Sender    User       `json:"sender"`
	Recipient User       `json:"recipient"`
	Content   string     `json:"content"`
	IsRead    bool       `json:"is_read"`
	CreatedAt *Timestamp `json:"created_at,omitempty"`
}

// NewMessage is the body of POST /api/messages/
type NewMessage struct {
	RecipientID int64  `json:"recipient_id" validate:"required"`
	Content     string `json:"content" validate:"required"`
}

// Conversation summarizes a message thread with one user
type Conversation struct {
	User        User    `json:"user"`
	LastMessage Message `json:"last_message"`
	UnreadCount int     `json:"unread_count"`
}

// Signup is the body of POST /api/auth/signup
type Signup struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	FullName string `json:"full_name,omitempty"`
	Bio      string `json:"bio,omitempty"`
}

// Session is returned by the login endpoint
type Session struct {
	AccessToken string `json:"access_token" validate:"required"`
	TokenType   string `json:"token_type"`
	User        *User  `json:"user,omitempty"`
}
