package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// TelegramClient sends photos through the Telegram Bot API.
type TelegramClient struct {
	Token   string
	BaseURL string
	HTTP    *http.Client
}

func NewTelegramClient(token, baseURL string) *TelegramClient {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &TelegramClient{
		Token:   token,
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendPhoto uploads png as a photo to chatID.
func (c *TelegramClient) SendPhoto(ctx context.Context, chatID int64, png []byte, caption string) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return err
	}
	if caption != "" {
		if err := mw.WriteField("caption", caption); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("photo", "collectible.png")
	if err != nil {
		return err
	}
	if _, err := part.Write(png); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendPhoto", c.BaseURL, c.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return fmt.Errorf("create sendPhoto request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		// The URL carries the token; keep it out of logs.
		return fmt.Errorf("sendPhoto request failed: %w", redact(err, c.Token))
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("sendPhoto: decode response (status %s): %w", resp.Status, err)
	}
	if !out.OK {
		return fmt.Errorf("sendPhoto failed with status %s: %s", resp.Status, out.Description)
	}
	return nil
}

func redact(err error, token string) error {
	if token == "" {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "<token>"))
}

// Update is the subset of a Telegram webhook update the bot reads.
type Update struct {
	UpdateID int64            `json:"update_id"`
	Message  *telegramMessage `json:"message"`
}

type telegramMessage struct {
	MessageID int64         `json:"message_id"`
	Date      int64         `json:"date"`
	Text      string        `json:"text"`
	Chat      telegramChat  `json:"chat"`
	From      *telegramUser `json:"from"`
}

type telegramChat struct {
	ID int64 `json:"id"`
}

type telegramUser struct {
	FirstName string `json:"first_name"`
}

// ChatMessage converts the update; ok is false for updates without a text message.
func (u *Update) ChatMessage() (Message, bool) {
	m := u.Message
	if m == nil || m.Text == "" {
		return Message{}, false
	}
	msg := Message{
		ID:     m.MessageID,
		ChatID: m.Chat.ID,
		Date:   time.Unix(m.Date, 0).UTC(),
		Text:   m.Text,
	}
	if m.From != nil {
		msg.From = m.From.FirstName
	}
	return msg, true
}
