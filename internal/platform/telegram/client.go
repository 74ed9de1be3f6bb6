package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultAPIBaseURL = "https://api.telegram.org"

type Client struct {
	httpClient *http.Client
	token      string
	baseURL    string
	logger     zerolog.Logger
}

// RPSError представляет ошибку превышения лимита запросов
type RPSError struct {
	Msg string
}

func (e *RPSError) Error() string {
	return e.Msg
}

// ChatMember представляет информацию о пользователе в чате
type ChatMember struct {
	Status string `json:"status"`
}

type apiResponse struct {
	Ok          bool            `json:"ok"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

type Option func(*Client)

// WithBaseURL points the client at a different Bot API host.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(token string, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		token:   token,
		baseURL: defaultAPIBaseURL,
		logger:  logger.With().Str("component", "telegram").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsSubscribed проверяет, состоит ли пользователь в канале.
// При превышении лимита запросов проверка считается пройденной.
func (c *Client) IsSubscribed(ctx context.Context, channelID, userID int64) (bool, error) {
	member, err := c.GetChatMember(ctx, channelID, userID)
	if err != nil {
		var rpsErr *RPSError
		if errors.As(err, &rpsErr) {
			c.logger.Warn().
				Int64("channel_id", channelID).
				Int64("user_id", userID).
				Msg("Rate limited while checking subscription, skipping check")
			return true, nil
		}
		return false, err
	}

	switch member.Status {
	case "creator", "administrator", "member", "restricted":
		return true, nil
	}
	return false, nil
}

func (c *Client) GetChatMember(ctx context.Context, chatID, userID int64) (*ChatMember, error) {
	params := url.Values{
		"chat_id": {strconv.FormatInt(chatID, 10)},
		"user_id": {strconv.FormatInt(userID, 10)},
	}

	var member ChatMember
	if err := c.makeRequest(ctx, http.MethodGet, "getChatMember", params, &member); err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	return &member, nil
}

// Notify отправляет пользователю личное сообщение от бота
func (c *Client) Notify(ctx context.Context, userID int64, message string) error {
	params := url.Values{
		"chat_id":    {strconv.FormatInt(userID, 10)},
		"text":       {message},
		"parse_mode": {"HTML"},
	}

	if err := c.makeRequest(ctx, http.MethodPost, "sendMessage", params, nil); err != nil {
		c.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to send message")
		return err
	}
	return nil
}

func (c *Client) makeRequest(ctx context.Context, method, apiMethod string, data url.Values, result interface{}) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, apiMethod)

	var (
		req *http.Request
		err error
	)
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(data.Encode()))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		if len(data) > 0 {
			endpoint = endpoint + "?" + data.Encode()
		}
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var response apiResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if !response.Ok {
		if response.ErrorCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusTooManyRequests {
			return &RPSError{Msg: "Rate limit exceeded"}
		}
		return fmt.Errorf("telegram API error: %s", response.Description)
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(response.Result, result); err != nil {
		return fmt.Errorf("failed to parse result: %w", err)
	}
	return nil
}
