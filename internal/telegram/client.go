// Package telegram is a small Bot API client: long polling, messages
// with inline keyboards, callback answers and file downloads.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the public Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// DefaultMaxDownload caps document downloads (the Bot API limit is 20MB).
const DefaultMaxDownload = 20 << 20

// ParseModeHTML selects HTML formatting.
const ParseModeHTML = "HTML"

// ErrUnauthorized is returned when the API rejects the token.
var ErrUnauthorized = errors.New("telegram: unauthorized (check BOT_TOKEN)")

// APIError is a non-OK Bot API reply.
type APIError struct {
	Method      string
	Code        int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

// Unwrap maps 401 to ErrUnauthorized.
func (e *APIError) Unwrap() error {
	if e.Code == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// Client calls the Bot API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another server (tests, local Bot API).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// NewClient validates the token shape and builds a client.
func NewClient(token string, opts ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if err := ValidateToken(token); err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		// Long polls hold the connection for the poll timeout; requests
		// carry their own contexts.
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// ValidateToken checks the '<digits>:<secret>' shape.
func ValidateToken(token string) error {
	parts := strings.Split(token, ":")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return fmt.Errorf("bot token must look like '<digits>:<secret>'")
	}
	for _, ch := range parts[0] {
		if ch < '0' || ch > '9' {
			return fmt.Errorf("bot token prefix must be numeric")
		}
	}
	if len(parts[1]) < 8 {
		return fmt.Errorf("bot token secret looks too short")
	}
	return nil
}

// redact removes the token from err's text.
func (c *Client) redact(err error) error {
	if err == nil || c.token == "" {
		return err
	}
	msg := err.Error()
	if !strings.Contains(msg, c.token) {
		return err
	}
	return errors.New(strings.ReplaceAll(msg, c.token, "<redacted>"))
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", method, err)
	}
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", c.redact(err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s failed: %w", method, c.redact(err))
	}
	defer resp.Body.Close()

	var env apiResponse[json.RawMessage]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &APIError{Method: method, Code: resp.StatusCode, Description: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	if !env.OK {
		apiErr := &APIError{Method: method, Code: env.ErrorCode, Description: env.Description}
		if apiErr.Code == 0 {
			apiErr.Code = resp.StatusCode
		}
		if apiErr.Description == "" {
			apiErr.Description = "unknown error"
		}
		if env.Parameters != nil && env.Parameters.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(env.Parameters.RetryAfter) * time.Second
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("decoding %s result: %w", method, err)
	}
	return nil
}

// GetMe returns the bot account; used to verify the token at startup.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var u User
	if err := c.call(ctx, "getMe", struct{}{}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUpdates long-polls for updates after offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	params := map[string]any{
		"timeout":         int(timeout / time.Second),
		"allowed_updates": []string{"message", "callback_query"},
	}
	if offset > 0 {
		params["offset"] = offset
	}
	var out []Update
	if err := c.call(ctx, "getUpdates", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type sendParams struct {
	ChatID              int64                 `json:"chat_id"`
	MessageID           int                   `json:"message_id,omitempty"`
	Text                string                `json:"text"`
	ParseMode           string                `json:"parse_mode,omitempty"`
	DisableNotification bool                  `json:"disable_notification,omitempty"`
	ReplyMarkup         *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// SendMessage sends text to a chat and returns the new message.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, opts SendOptions) (*Message, error) {
	var m Message
	err := c.call(ctx, "sendMessage", sendParams{
		ChatID:              chatID,
		Text:                text,
		ParseMode:           opts.ParseMode,
		DisableNotification: opts.DisableNotification,
		ReplyMarkup:         opts.ReplyMarkup,
	}, &m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// EditMessageText replaces a message's text and keyboard.
func (c *Client) EditMessageText(ctx context.Context, chatID int64, messageID int, text string, opts SendOptions) error {
	return c.call(ctx, "editMessageText", sendParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ParseMode:   opts.ParseMode,
		ReplyMarkup: opts.ReplyMarkup,
	}, nil)
}

// AnswerCallbackQuery acknowledges a button press.
func (c *Client) AnswerCallbackQuery(ctx context.Context, id, text string) error {
	params := map[string]any{"callback_query_id": id}
	if text != "" {
		params["text"] = text
	}
	return c.call(ctx, "answerCallbackQuery", params, nil)
}

// GetFile resolves a file id to a download path.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	var f File
	if err := c.call(ctx, "getFile", map[string]any{"file_id": fileID}, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// DownloadFile fetches a file path returned by GetFile, reading at most
// maxBytes (0 means DefaultMaxDownload).
func (c *Client) DownloadFile(ctx context.Context, filePath string, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDownload
	}
	endpoint := fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, strings.TrimLeft(filePath, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", c.redact(err))
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading file: %w", c.redact(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("downloading file: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("file exceeds %s bytes", strconv.FormatInt(maxBytes, 10))
	}
	return data, nil
}

// Fetch downloads a document by file id.
func (c *Client) Fetch(ctx context.Context, fileID string) ([]byte, error) {
	f, err := c.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f.FilePath == "" {
		return nil, fmt.Errorf("getFile returned no path for %s", fileID)
	}
	return c.DownloadFile(ctx, f.FilePath, 0)
}
