// Package telegram delivers snapshots and text messages to one chat
// through the Bot API, retrying failed sends with exponential backoff.
package telegram

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"divar-notifier/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrNoImage means a Photo had neither a readable file nor in-memory data
var ErrNoImage = errors.New("image not found on disk and not present in memory")

// Photo is an image to upload. Path wins when the file exists; otherwise
// Data is uploaded under Name.
type Photo struct {
	Name string
	Path string
	Data []byte
}

func (p Photo) file() (tgbotapi.RequestFileData, error) {
	if p.Path != "" {
		if _, err := os.Stat(p.Path); err == nil {
			return tgbotapi.FilePath(p.Path), nil
		}
	}
	if len(p.Data) > 0 {
		name := p.Name
		if name == "" {
			name = "snapshot.png"
		}
		return tgbotapi.FileBytes{Name: name, Bytes: p.Data}, nil
	}

	ref := p.Name
	if ref == "" {
		ref = p.Path
	}
	return nil, fmt.Errorf("%w: %s", ErrNoImage, ref)
}

// Client sends photos and texts to a single destination chat
type Client struct {
	bot         *tgbotapi.BotAPI // nil when credentials are missing
	chatID      int64
	channel     string
	maxAttempts int
	backoff     time.Duration
	sleep       func(time.Duration)
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithSleep replaces time.Sleep between attempts.
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(hc tgbotapi.HTTPClient) Option {
	return func(c *Client) {
		if c.bot != nil {
			c.bot.Client = hc
		}
	}
}

// NewClient creates a Client. It performs no network I/O: a missing token
// or chat ID yields a client whose sends are no-ops reporting failure.
func NewClient(cfg config.TelegramConfig, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.InitialBackoff,
		sleep:       time.Sleep,
		logger:      logger,
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = 1
	}

	if cfg.Token != "" && cfg.ChatID != "" {
		bot := &tgbotapi.BotAPI{
			Token:  cfg.Token,
			Client: &http.Client{Timeout: cfg.Timeout},
			Buffer: 100,
		}
		if cfg.APIEndpoint != "" {
			bot.SetAPIEndpoint(cfg.APIEndpoint)
		} else {
			bot.SetAPIEndpoint(tgbotapi.APIEndpoint)
		}
		c.bot = bot

		chat := strings.TrimSpace(cfg.ChatID)
		if id, err := strconv.ParseInt(chat, 10, 64); err == nil {
			c.chatID = id
		} else {
			if !strings.HasPrefix(chat, "@") {
				chat = "@" + chat
			}
			c.channel = chat
		}
	}

	for _, o := range opts {
		o(c)
	}
	return c
}

// Configured reports whether both credentials are present
func (c *Client) Configured() bool {
	return c.bot != nil
}

// SendImage uploads photo with an optional caption
func (c *Client) SendImage(photo Photo, caption string) bool {
	if !c.Configured() {
		c.logger.Info("Telegram credentials not set; skipping photo send")
		return false
	}

	file, err := photo.file()
	if err != nil {
		c.logger.Error("Cannot send photo", "error", err)
		return false
	}

	msg := tgbotapi.NewPhoto(c.chatID, file)
	msg.ChannelUsername = c.channel
	msg.Caption = caption

	return c.deliver("photo", msg)
}

// SendText sends a plain text message with link previews disabled
func (c *Client) SendText(text string) bool {
	if !c.Configured() {
		c.logger.Info("Telegram credentials not set; skipping text send")
		return false
	}

	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ChannelUsername = c.channel
	msg.DisableWebPagePreview = true

	return c.deliver("text", msg)
}

// deliver attempts msg up to maxAttempts times, doubling the pause after
// every failure
func (c *Client) deliver(kind string, msg tgbotapi.Chattable) bool {
	delay := c.backoff

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		sent, err := c.bot.Send(msg)
		if err == nil {
			c.logger.Info("Sent to Telegram", "kind", kind, "attempt", attempt, "message_id", sent.MessageID)
			return true
		}

		c.logger.Error("Telegram send failed",
			"kind", kind,
			"attempt", attempt,
			"max_attempts", c.maxAttempts,
			"error", describe(err))

		if attempt < c.maxAttempts {
			c.logger.Info("Retrying Telegram send", "kind", kind, "delay", delay)
			c.sleep(delay)
			delay *= 2
		}
	}

	c.logger.Error("All attempts to send to Telegram failed", "kind", kind, "attempts", c.maxAttempts)
	return false
}

// describe adds the API error code when the Bot API rejected the call
func describe(err error) string {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("%d - %s", apiErr.Code, apiErr.Message)
	}
	return err.Error()
}
