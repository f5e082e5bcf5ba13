// Package bot implements the Telegram chat adapter: a minimal Bot API
// client, the long-poll update loop, and the command handlers that drive
// the search pipeline from chat.
//
// The client is plain net/http + encoding/json against the Bot API; the
// handful of methods the bot needs does not justify a framework.
package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Update is one element of a getUpdates response. Exactly one of the
// optional payloads is set.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// Message is an incoming or referenced chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

// User is the Telegram account behind a message or callback.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID int64 `json:"id"`
}

// CallbackQuery is an inline-keyboard button press.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    *User    `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

// InlineKeyboardMarkup is the reply markup for messages with buttons.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// InlineKeyboardButton is one button of an inline keyboard.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
}

// apiResponse is the uniform Bot API envelope.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// API is a minimal Telegram Bot API client covering the methods this bot
// uses. Safe for concurrent use.
type API struct {
	baseURL    string // https://api.telegram.org/bot<token>
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewAPI constructs an API client. apiURL is the server root (defaults to
// the public Bot API host when empty); httpClient may be nil.
func NewAPI(apiURL, token string, httpClient *http.Client, logger zerolog.Logger) *API {
	if apiURL == "" {
		apiURL = "https://api.telegram.org"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 65 * time.Second}
	}
	return &API{
		baseURL:    strings.TrimRight(apiURL, "/") + "/bot" + token,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "telegram").Logger(),
	}
}

// GetUpdates long-polls for updates starting at offset. timeout is the
// server-side hold duration; the HTTP client must allow for more.
func (a *API) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	payload := struct {
		Offset  int64 `json:"offset"`
		Timeout int   `json:"timeout"`
	}{Offset: offset, Timeout: int(timeout.Seconds())}

	var updates []Update
	if err := a.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage sends an HTML-formatted text message, optionally with an
// inline keyboard.
func (a *API) SendMessage(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup) error {
	payload := struct {
		ChatID      int64                 `json:"chat_id"`
		Text        string                `json:"text"`
		ParseMode   string                `json:"parse_mode"`
		ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
	}{ChatID: chatID, Text: text, ParseMode: "HTML", ReplyMarkup: markup}
	return a.call(ctx, "sendMessage", payload, nil)
}

// SendPhoto sends a photo by URL with an HTML caption.
func (a *API) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string) error {
	payload := struct {
		ChatID    int64  `json:"chat_id"`
		Photo     string `json:"photo"`
		Caption   string `json:"caption"`
		ParseMode string `json:"parse_mode"`
	}{ChatID: chatID, Photo: photoURL, Caption: caption, ParseMode: "HTML"}
	return a.call(ctx, "sendPhoto", payload, nil)
}

// EditMessageText replaces the text of a previously sent message.
func (a *API) EditMessageText(ctx context.Context, chatID, messageID int64, text string) error {
	payload := struct {
		ChatID    int64  `json:"chat_id"`
		MessageID int64  `json:"message_id"`
		Text      string `json:"text"`
		ParseMode string `json:"parse_mode"`
	}{ChatID: chatID, MessageID: messageID, Text: text, ParseMode: "HTML"}
	return a.call(ctx, "editMessageText", payload, nil)
}

// AnswerCallbackQuery acknowledges a button press so the client stops the
// loading spinner.
func (a *API) AnswerCallbackQuery(ctx context.Context, callbackID string) error {
	payload := struct {
		CallbackQueryID string `json:"callback_query_id"`
	}{CallbackQueryID: callbackID}
	return a.call(ctx, "answerCallbackQuery", payload, nil)
}

// call posts one Bot API method and decodes the envelope. A transport
// failure, a non-2xx status, or ok=false all surface as errors; when out is
// non-nil the result payload is unmarshalled into it.
func (a *API) call(ctx context.Context, method string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	var env apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s: decode response (status %d): %w", method, resp.StatusCode, err)
	}
	if !env.OK {
		return fmt.Errorf("%s: telegram: %s (status %d)", method, env.Description, resp.StatusCode)
	}
	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("%s: unmarshal result: %w", method, err)
		}
	}
	return nil
}
