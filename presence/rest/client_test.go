package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPIServer(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			var req LoginRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(ErrorResponse{Error: "invalid credentials"})
				return
			}
			json.NewEncoder(w).Encode(TokenResponse{Token: "jwt-" + req.Username})
		case "/guest":
			json.NewEncoder(w).Encode(TokenResponse{Token: "jwt-guest"})
		case "/conversations/conv-1":
			if r.Header.Get("Authorization") != "Bearer jwt-guest" {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(ErrorResponse{Error: "unauthorized"})
				return
			}
			json.NewEncoder(w).Encode(ConversationResponse{
				Conversation: ConversationInfo{ID: "conv-1", Title: "Why is the sky blue?", IsPublic: true, CreatedAt: time.Now()},
				Messages: []MessageInfo{
					{ID: "m0", Index: 0, Role: "user", Content: "Why is the sky blue?"},
					{ID: "m1", Index: 1, Role: "assistant", Content: "Rayleigh scattering."},
				},
				PresenceURL: "ws://example/ws",
			})
		case "/search":
			json.NewEncoder(w).Encode(SearchResponse{
				Results: []SearchResult{
					{Conversation: ConversationInfo{ID: "conv-1", Title: "Why is the sky blue?"}, Score: 0.92},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "not found"})
		}
	}))
	t.Cleanup(srv.Close)
	return srv, NewClient(srv.URL)
}

func TestClientLogin(t *testing.T) {
	_, c := newAPIServer(t)

	resp, err := c.Login(context.Background(), LoginRequest{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "jwt-alice", resp.Token)
}

func TestClientGuestLogin(t *testing.T) {
	_, c := newAPIServer(t)

	resp, err := c.GuestLogin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "jwt-guest", resp.Token)
}

func TestClientGetConversation(t *testing.T) {
	_, c := newAPIServer(t)

	t.Run("authorized", func(t *testing.T) {
		c.SetToken("jwt-guest")
		resp, err := c.GetConversation(context.Background(), "conv-1")
		require.NoError(t, err)
		assert.Equal(t, "conv-1", resp.Conversation.ID)
		require.Len(t, resp.Messages, 2)
		assert.Equal(t, "m1", resp.Messages[1].ID)
		assert.Equal(t, "ws://example/ws", resp.PresenceURL)
	})

	t.Run("missing token", func(t *testing.T) {
		c.SetToken("")
		_, err := c.GetConversation(context.Background(), "conv-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unauthorized")
	})
}

func TestClientSearch(t *testing.T) {
	_, c := newAPIServer(t)
	c.SetToken("jwt-guest")

	resp, err := c.Search(context.Background(), "sky blue", 10)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "conv-1", resp.Results[0].Conversation.ID)
	assert.InDelta(t, 0.92, resp.Results[0].Score, 0.0001)
}

func TestClientErrorResponse(t *testing.T) {
	_, c := newAPIServer(t)
	c.SetToken("jwt-guest")

	_, err := c.GetConversation(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api error (status 404)")
}
