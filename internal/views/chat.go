package views

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"go-feed-sync/internal/cache"
	"go-feed-sync/internal/coordinator"
	"go-feed-sync/internal/lifecycle"
	"go-feed-sync/internal/models"
)

// ChatClient is the messaging part of the backend
type ChatClient interface {
	Conversations(ctx context.Context) ([]models.Conversation, error)
	Conversation(ctx context.Context, userID int64) ([]models.Message, error)
	SendMessage(ctx context.Context, msg models.NewMessage) (models.Message, error)
}

// ChatState is the render state of the messaging screen
type ChatState struct {
	Status
	Conversations []models.Conversation `json:"conversations"`
	OpenUserID    int64                 `json:"open_user_id,omitempty"`
	Messages      []models.Message      `json:"messages,omitempty"`
	// Opening is true while a thread load started by Open runs
	Opening bool `json:"opening,omitempty"`
}

// Chat lists conversations and shows the open thread. Opening a thread
// cancels the load of the previously opened one.
type Chat struct {
	base
	client           ChatClient
	conversationsTTL time.Duration
	conversationTTL  time.Duration
	interval         time.Duration

	openMu     sync.Mutex
	openSeq    uint64
	openCancel context.CancelFunc

	conversations []models.Conversation
	openUserID    int64
	messages      []models.Message
}

var _ View = (*Chat)(nil)

// NewChat creates the chat view
func NewChat(coord *coordinator.Coordinator, client ChatClient, conversationsTTL, conversationTTL, interval time.Duration, logger *zap.Logger) *Chat {
	return &Chat{
		base:             newBase("chat", coord, logger),
		client:           client,
		conversationsTTL: conversationsTTL,
		conversationTTL:  conversationTTL,
		interval:         interval,
	}
}

// Mount loads the conversation list and polls it
func (c *Chat) Mount(ctx context.Context) {
	life := c.mount(ctx)
	go func() { _ = c.loadConversations(life.Context(), life, initial(c.conversationsTTL)) }()
	life.Every(c.interval, c.interval, func(ctx context.Context) {
		_ = c.loadConversations(ctx, life, background(c.conversationsTTL))
	})
}

// Retry reloads the list, and the open thread if any
func (c *Chat) Retry(ctx context.Context) error {
	life, err := c.current()
	if err != nil {
		return err
	}
	if err := c.loadConversations(ctx, life, retry(c.conversationsTTL)); err != nil {
		return err
	}

	c.mu.Lock()
	open := c.openUserID
	c.mu.Unlock()
	if open == 0 {
		return nil
	}
	return c.loadThread(ctx, life, open, retry(c.conversationTTL))
}

func (c *Chat) loadConversations(ctx context.Context, life *lifecycle.Lifetime, opts coordinator.Options) error {
	return load(ctx, &c.base, life, cache.ConversationsKey(), c.client.Conversations, opts, func(value []models.Conversation) {
		c.conversations = value
	})
}

// Open shows the thread with userID, cancelling the load of any thread
// opened before
func (c *Chat) Open(ctx context.Context, userID int64) error {
	life, err := c.current()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.openMu.Lock()
	if c.openCancel != nil {
		c.openCancel()
	}
	c.openSeq++
	seq := c.openSeq
	c.openCancel = cancel
	c.openMu.Unlock()

	defer func() {
		c.openMu.Lock()
		if c.openSeq == seq {
			c.openCancel = nil
		}
		c.openMu.Unlock()
	}()

	life.Guard(func() {
		c.mu.Lock()
		if c.openUserID != userID {
			c.openUserID = userID
			c.messages = nil
		}
		c.mu.Unlock()
	})

	return c.loadThread(ctx, life, userID, initial(c.conversationTTL))
}

// opening reports whether a thread load started by Open is still running
func (c *Chat) opening() bool {
	c.openMu.Lock()
	defer c.openMu.Unlock()
	return c.openCancel != nil
}

func (c *Chat) loadThread(ctx context.Context, life *lifecycle.Lifetime, userID int64, opts coordinator.Options) error {
	fetch := func(ctx context.Context) ([]models.Message, error) {
		return c.client.Conversation(ctx, userID)
	}
	return load(ctx, &c.base, life, cache.ConversationKey(userID), fetch, opts, func(value []models.Message) {
		if c.openUserID != userID {
			return
		}
		c.messages = value
	})
}

// Send posts a message to the open thread, then reloads the thread and the
// conversation list
func (c *Chat) Send(ctx context.Context, content string) (models.Message, error) {
	life, err := c.current()
	if err != nil {
		return models.Message{}, err
	}

	c.mu.Lock()
	open := c.openUserID
	c.mu.Unlock()
	if open == 0 {
		return models.Message{}, fmt.Errorf("no conversation is open")
	}

	msg, err := c.client.SendMessage(ctx, models.NewMessage{RecipientID: open, Content: content})
	if err != nil {
		return models.Message{}, fmt.Errorf("failed to send message: %w", err)
	}

	if err := c.loadThread(ctx, life, open, refresh(c.conversationTTL)); err != nil {
		return msg, err
	}
	if err := c.loadConversations(ctx, life, refresh(c.conversationsTTL)); err != nil {
		return msg, err
	}
	return msg, nil
}

// Snapshot implements View
func (c *Chat) Snapshot() any {
	opening := c.opening()

	c.mu.Lock()
	defer c.mu.Unlock()
	return ChatState{
		Opening:       opening,
		Status:        c.statusLocked(),
		Conversations: append([]models.Conversation(nil), c.conversations...),
		OpenUserID:    c.openUserID,
		Messages:      append([]models.Message(nil), c.messages...),
	}
}
