package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTelegram_Send(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottoken/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram("token", "chat42", zap.NewNop())
	require.NotNil(t, tg)
	tg.baseURL = srv.URL

	require.NoError(t, tg.Send(context.Background(), "hello"))
	assert.Equal(t, "chat42", got["chat_id"])
	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestTelegram_SendWithRetryRecovers(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "flood", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram("token", "chat", zap.NewNop())
	tg.baseURL = srv.URL

	require.NoError(t, tg.SendWithRetry(context.Background(), "alert", 2))
	assert.Equal(t, int32(2), calls.Load())
}

func TestTelegram_SendWithRetryExhausts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	tg := NewTelegram("token", "chat", zap.NewNop())
	tg.baseURL = srv.URL

	err := tg.SendWithRetry(context.Background(), "alert", 1)
	assert.ErrorContains(t, err, "retries exhausted")
}

func TestTelegram_NilIsNoOp(t *testing.T) {
	var tg *Telegram
	assert.Nil(t, NewTelegram("", "", zap.NewNop()))
	assert.NoError(t, tg.Send(context.Background(), "dropped"))
	assert.NoError(t, tg.SendWithRetry(context.Background(), "dropped", 3))
}
