package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitMessage_Short(t *testing.T) {
	chunks := SplitMessage("hello\nworld", 100)
	assert.Equal(t, []string{"hello\nworld"}, chunks)
}

func TestSplitMessage_NewlineBoundaries(t *testing.T) {
	text := strings.Repeat("aaaa\n", 5) + "bbbb" // lines of 4
	chunks := SplitMessage(text, 9)              // fits two lines per chunk

	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 9)
		assert.False(t, strings.HasPrefix(chunk, "\n"))
		assert.False(t, strings.HasSuffix(chunk, "\n"))
	}
	assert.Equal(t, strings.ReplaceAll(text, "\n", ""), strings.ReplaceAll(strings.Join(chunks, ""), "\n", ""))
}

func TestSplitMessage_HardSplitsOverlongLine(t *testing.T) {
	long := strings.Repeat("x", 25)
	chunks := SplitMessage("head\n"+long+"\ntail", 10)

	require.Contains(t, chunks, "head")
	joined := strings.Join(chunks, "")
	assert.Contains(t, joined, strings.Repeat("x", 10))
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 10)
	}
}

func TestSendMessage_ChunksAndAbortsOnFailure(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/bottoken/sendMessage", r.URL.Path)
		if calls == 2 {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"ok": false, "description": "message is too long"}`)
			return
		}
		fmt.Fprint(w, `{"ok": true}`)
	}))
	defer server.Close()

	c := NewClient("token", "chat42", WithBaseURL(server.URL))
	text := strings.Repeat("line one\n", 300) + strings.Repeat("line two\n", 300)
	require.Greater(t, len(text), MaxMessageLength)

	err := c.SendMessage(context.Background(), text)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message is too long")
	// First chunk delivered, second failed, nothing after
	assert.Equal(t, 2, calls)
}

func TestSendMessage_Disabled(t *testing.T) {
	c := NewClient("", "")
	assert.False(t, c.Enabled())
	assert.NoError(t, c.SendMessage(context.Background(), "ignored"))
}

func TestSendPhoto(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottoken/sendPhoto", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "chat42", r.FormValue("chat_id"))
		assert.Equal(t, "weekly digest", r.FormValue("caption"))

		file, _, err := r.FormFile("photo")
		require.NoError(t, err)
		defer file.Close()
		fmt.Fprint(w, `{"ok": true}`)
	}))
	defer server.Close()

	c := NewClient("token", "chat42", WithBaseURL(server.URL))
	err := c.SendPhoto(context.Background(), "weekly digest", []byte{0x89, 0x50, 0x4e, 0x47})
	require.NoError(t, err)
}
