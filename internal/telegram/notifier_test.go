package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitbuilder587/stock-agent/internal/domain"
)

type fakeTelegram struct {
	mu       sync.Mutex
	messages []map[string]string
	failSend bool
}

func (f *fakeTelegram) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")

		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Stock","username":"stock_agent_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if f.failSend {
				w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
				return
			}
			f.mu.Lock()
			f.messages = append(f.messages, map[string]string{
				"chat_id":    r.PostForm.Get("chat_id"),
				"text":       r.PostForm.Get("text"),
				"parse_mode": r.PostForm.Get("parse_mode"),
			})
			f.mu.Unlock()
			w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestNotifier(t *testing.T, fake *fakeTelegram) *Notifier {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	n, err := NewNotifier(Config{
		Token:       "123:abc",
		ChatID:      42,
		APIEndpoint: srv.URL + "/bot%s/%s",
	}, nil)
	require.NoError(t, err)
	return n
}

func TestNotifier_Send(t *testing.T) {
	fake := &fakeTelegram{}
	n := newTestNotifier(t, fake)

	require.NoError(t, n.Send(context.Background(), "<b>hi</b>"))

	require.Len(t, fake.messages, 1)
	assert.Equal(t, "42", fake.messages[0]["chat_id"])
	assert.Equal(t, "<b>hi</b>", fake.messages[0]["text"])
	assert.Equal(t, "HTML", fake.messages[0]["parse_mode"])
}

func TestNotifier_SendSplitsLongText(t *testing.T) {
	fake := &fakeTelegram{}
	n := newTestNotifier(t, fake)

	text := strings.Repeat("word ", 2000) // 10000 bytes
	require.NoError(t, n.Send(context.Background(), text))

	require.Len(t, fake.messages, 3)
	var joined strings.Builder
	for _, m := range fake.messages {
		assert.LessOrEqual(t, len(m["text"]), MaxMessageLength)
		joined.WriteString(m["text"])
	}
	assert.Equal(t, text, joined.String())
}

func TestNotifier_NotifyRun(t *testing.T) {
	fake := &fakeTelegram{}
	n := newTestNotifier(t, fake)

	err := n.NotifyRun(context.Background(), domain.Run{
		Provider: "groq",
		Mode:     domain.ModeSingle,
		Stocks:   "TSLA",
		Response: "done",
	})
	require.NoError(t, err)
	require.Len(t, fake.messages, 1)
	assert.Contains(t, fake.messages[0]["text"], "<b>Groq analysis</b> (single)")
}

func TestNotifier_SendError(t *testing.T) {
	n := newTestNotifier(t, &fakeTelegram{failSend: true})

	err := n.Send(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send message part 1/1")
}

func TestNotifier_SendCanceled(t *testing.T) {
	fake := &fakeTelegram{}
	n := newTestNotifier(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, n.Send(ctx, "hi"), context.Canceled)
	assert.Empty(t, fake.messages)
}
