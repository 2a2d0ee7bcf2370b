package chat

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendPhoto(t *testing.T) {
	var got struct {
		path, chatID, caption string
		photo                 []byte
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		got.chatID = r.FormValue("chat_id")
		got.caption = r.FormValue("caption")
		f, _, err := r.FormFile("photo")
		if err == nil {
			got.photo, _ = io.ReadAll(f)
			f.Close()
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	c := NewTelegramClient("123:abc", srv.URL+"/")
	err := c.SendPhoto(context.Background(), -42, []byte("png-bytes"), "Hat: Cap")
	require.NoError(t, err)

	assert.Equal(t, "/bot123:abc/sendPhoto", got.path)
	assert.Equal(t, "-42", got.chatID)
	assert.Equal(t, "Hat: Cap", got.caption)
	assert.Equal(t, []byte("png-bytes"), got.photo)
}

func TestSendPhotoAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": "chat not found"})
	}))
	defer srv.Close()

	err := NewTelegramClient("t", srv.URL).SendPhoto(context.Background(), 1, []byte("x"), "")
	assert.ErrorContains(t, err, "chat not found")
}

func TestSendPhotoRedactsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewTelegramClient("secret-token", url).SendPhoto(context.Background(), 1, []byte("x"), "")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
	assert.Contains(t, err.Error(), "<token>")
}

func TestChatMessage(t *testing.T) {
	var upd Update
	require.NoError(t, json.Unmarshal([]byte(`{
		"update_id": 5,
		"message": {"message_id": 3, "date": 1655139411, "text": "orbi", "chat": {"id": -100}, "from": {"first_name": "Ada"}}
	}`), &upd))

	msg, ok := upd.ChatMessage()
	require.True(t, ok)
	assert.Equal(t, Message{
		ID:     3,
		ChatID: -100,
		Date:   time.Date(2022, 6, 13, 16, 56, 51, 0, time.UTC),
		From:   "Ada",
		Text:   "orbi",
	}, msg)

	for _, raw := range []string{`{"update_id": 1}`, `{"update_id": 1, "message": {"chat": {"id": 1}}}`} {
		var u Update
		require.NoError(t, json.Unmarshal([]byte(raw), &u))
		_, ok := u.ChatMessage()
		assert.False(t, ok, raw)
	}
}
