package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient("TOKEN", zerolog.Nop(), WithBaseURL(server.URL))
}

func TestClient_IsSubscribed(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"creator", true},
		{"administrator", true},
		{"member", true},
		{"restricted", true},
		{"left", false},
		{"kicked", false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/botTOKEN/getChatMember", r.URL.Path)
				assert.Equal(t, "-100", r.URL.Query().Get("chat_id"))
				assert.Equal(t, "7", r.URL.Query().Get("user_id"))
				fmt.Fprintf(w, `{"ok":true,"result":{"status":%q}}`, tt.status)
			})

			ok, err := client.IsSubscribed(context.Background(), -100, 7)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestClient_IsSubscribedRateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 3"}`)
	})

	ok, err := client.IsSubscribed(context.Background(), -100, 7)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_IsSubscribedAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)
	})

	_, err := client.IsSubscribed(context.Background(), -100, 7)
	assert.ErrorContains(t, err, "chat not found")
}

func TestClient_Notify(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "7", r.PostForm.Get("chat_id"))
		assert.Equal(t, "hello", r.PostForm.Get("text"))
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":1}}`)
	})

	require.NoError(t, client.Notify(context.Background(), 7, "hello"))
}
