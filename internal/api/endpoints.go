package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go-feed-sync/internal/cache"
	"go-feed-sync/internal/models"
)

// Dashboard fetches the analytics dashboard
func (c *Client) Dashboard(ctx context.Context) (models.DashboardAnalytics, error) {
	var out models.DashboardAnalytics
	err := c.getJSON(ctx, "/api/analytics/dashboard", nil, cache.ResourceDashboard, &out)
	return out, err
}

// PersonalizedFeed fetches one page of the personalized feed. Pages start at 1.
func (c *Client) PersonalizedFeed(ctx context.Context, page, pageSize int) (models.FeedPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))

	var out models.FeedPage
	err := c.getJSON(ctx, "/api/feeds/personalized", query, cache.ResourceFeed, &out)
	return out, err
}

// Trending fetches up to limit trending tickers
func (c *Client) Trending(ctx context.Context, limit int) ([]models.TrendingTicker, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))

	var out []models.TrendingTicker
	err := c.getJSON(ctx, "/api/feeds/trending", query, cache.ResourceTrending, &out)
	return out, err
}

// Ticker fetches the live snapshot of one symbol
func (c *Client) Ticker(ctx context.Context, symbol string) (models.MarketSnapshot, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return models.MarketSnapshot{}, fmt.Errorf("ticker symbol is required")
	}

	var out models.MarketSnapshot
	err := c.getJSON(ctx, "/api/market/ticker/"+url.PathEscape(symbol), nil, cache.ResourceTicker, &out)
	return out, err
}

// Explanation fetches the server-side ranking explanation of a post.
// userID personalizes the explanation when non-zero.
func (c *Client) Explanation(ctx context.Context, postID, userID int64) (models.Explanation, error) {
	var query url.Values
	if userID != 0 {
		query = url.Values{}
		query.Set("user_id", strconv.FormatInt(userID, 10))
	}

	var out models.Explanation
	err := c.getJSON(ctx, "/api/analytics/explanation/"+strconv.FormatInt(postID, 10), query, "explanation", &out)
	return out, err
}

// CreatePost publishes a new insight
func (c *Client) CreatePost(ctx context.Context, post models.NewPost) (models.Post, error) {
	var out models.Post
	err := c.postJSON(ctx, "/api/posts/", post, "post", &out)
	return out, err
}

// React records a reaction on a post
func (c *Client) React(ctx context.Context, postID int64, reaction models.ReactionType) (models.Reaction, error) {
	body := map[string]models.ReactionType{"reaction_type": reaction}

	var out models.Reaction
	err := c.postJSON(ctx, fmt.Sprintf("/api/posts/%d/reactions", postID), body, "reaction", &out)
	return out, err
}

// CreateComment adds a comment to a post
func (c *Client) CreateComment(ctx context.Context, comment models.NewComment) (models.Comment, error) {
	var out models.Comment
	err := c.postJSON(ctx, "/api/comments/", comment, "comment", &out)
	return out, err
}

// PostComments lists the comments of a post
func (c *Client) PostComments(ctx context.Context, postID int64) ([]models.Comment, error) {
	var out []models.Comment
	err := c.getJSON(ctx, fmt.Sprintf("/api/comments/post/%d", postID), nil, "comments", &out)
	return out, err
}

// LikeComment likes a comment
func (c *Client) LikeComment(ctx context.Context, commentID int64) error {
	return c.postJSON(ctx, fmt.Sprintf("/api/comments/%d/like", commentID), nil, "comment", nil)
}

// SendMessage sends a direct message
func (c *Client) SendMessage(ctx context.Context, msg models.NewMessage) (models.Message, error) {
	var out models.Message
	err := c.postJSON(ctx, "/api/messages/", msg, "message", &out)
	return out, err
}

// Conversations lists the message threads of the current user
func (c *Client) Conversations(ctx context.Context) ([]models.Conversation, error) {
	var out []models.Conversation
	err := c.getJSON(ctx, "/api/messages/conversations", nil, cache.ResourceConversations, &out)
	return out, err
}

// Conversation fetches the thread with one user
func (c *Client) Conversation(ctx context.Context, userID int64) ([]models.Message, error) {
	var out []models.Message
	err := c.getJSON(ctx, fmt.Sprintf("/api/messages/conversation/%d", userID), nil, cache.ResourceConversation, &out)
	return out, err
}

// Follow follows a user
func (c *Client) Follow(ctx context.Context, userID int64) error {
	return c.postJSON(ctx, fmt.Sprintf("/api/messages/follow/%d", userID), nil, "follow", nil)
}

// Login exchanges credentials for a session. The credentials are sent
// form-encoded.
func (c *Client) Login(ctx context.Context, username, password string) (models.Session, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var out models.Session
	err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/api/auth/login",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
		resource:    "session",
	}, &out)
	return out, err
}

// Signup registers a new account
func (c *Client) Signup(ctx context.Context, signup models.Signup) (models.Session, error) {
	var out models.Session
	err := c.postJSON(ctx, "/api/auth/signup", signup, "session", &out)
	return out, err
}

// Me fetches the current user
func (c *Client) Me(ctx context.Context) (models.User, error) {
	var out models.User
	err := c.getJSON(ctx, "/api/auth/me", nil, "user", &out)
	return out, err
}

// Users lists every platform member
func (c *Client) Users(ctx context.Context) ([]models.User, error) {
	var out []models.User
	err := c.getJSON(ctx, "/api/users/all", nil, cache.ResourceUsers, &out)
	return out, err
}
