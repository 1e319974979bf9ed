package main

import (
	"alumconnect/internal/auth"
	"alumconnect/internal/models"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func readEvent(t *testing.T, conn *websocket.Conn, want func(models.ServerEvent) bool) models.ServerEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var event models.ServerEvent
		require.NoError(t, conn.ReadJSON(&event))
		if want(event) {
			return event
		}
	}
}

func TestIntegration(t *testing.T) {
	adminAddr := "127.0.0.1:8888"
	apiAddr := "127.0.0.1:8887"
	apiURL := "http://" + apiAddr

	t.Setenv("ALUMCONNECT_DB", filepath.Join(t.TempDir(), "integration.db"))
	t.Setenv("ADMIN_ADDR", adminAddr)
	t.Setenv("API_ADDR", apiAddr)
	t.Setenv("AUTH_SECRET", "very-secure-test-secret")
	t.Setenv("ALLOWED_ORIGINS", "*")
	t.Setenv("OUTBOX_RETRY_BASE", "10ms")
	t.Setenv("OUTBOX_RETRY_MAX", "100ms")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, nil)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	waitForServer(t, apiURL+"/", 20)
	waitForServer(t, "http://"+adminAddr+"/admin/presence", 20)

	// Step 1: Sign up two users
	var ada, bo auth.Session
	require.Equal(t, http.StatusCreated, postJSON(t, apiURL+"/api/auth/signup", map[string]any{
		"name": "Ada", "email": "ada@example.com", "password": "password1", "role": "alumni",
	}, &ada))
	require.Equal(t, http.StatusCreated, postJSON(t, apiURL+"/api/auth/signup", map[string]any{
		"name": "Bo", "email": "bo@example.com", "password": "password2",
	}, &bo))

	// Step 2: Seed a third profile through the admin API
	var cy models.Profile
	require.Equal(t, http.StatusCreated, postJSON(t, "http://"+adminAddr+"/admin/profiles", map[string]any{"name": "Cy"}, &cy))

	// Step 3: Connection request flow
	var edge models.Connection
	require.Equal(t, http.StatusOK, postJSON(t, apiURL+"/api/connections/request", map[string]any{
		"requesterId": ada.User.ID, "receiverId": bo.User.ID,
	}, &edge))

	var candidates []models.Candidate
	require.Equal(t, http.StatusOK, getJSON(t, apiURL+"/api/connections/users/"+bo.User.ID, &candidates))
	require.Len(t, candidates, 2)
	for _, c := range candidates {
		switch c.ID {
		case ada.User.ID:
			require.Equal(t, models.RelationIncoming, c.Relation)
		case cy.ID:
			require.Equal(t, models.RelationNone, c.Relation)
		}
	}

	data, err := json.Marshal(map[string]string{"status": "accepted"})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPut, apiURL+"/api/connections/respond/"+edge.ID, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var accepted []models.Connection
	require.Equal(t, http.StatusOK, getJSON(t, apiURL+"/api/connections/accepted/"+ada.User.ID, &accepted))
	require.Len(t, accepted, 1)

	// Step 4: Chat
	wsURL := fmt.Sprintf("ws://%s/api/chat", apiAddr)
	u1, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer func() { _ = u1.Close() }()
	u2, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer func() { _ = u2.Close() }()

	require.NoError(t, u1.WriteJSON(models.ClientEvent{Type: models.ClientEventJoin, DisplayName: "Ada", UserID: ada.User.ID, Channel: "general"}))
	readEvent(t, u1, func(e models.ServerEvent) bool { return e.Type == models.ServerEventRoster })

	require.NoError(t, u2.WriteJSON(models.ClientEvent{Type: models.ClientEventJoin, DisplayName: "Bo", UserID: bo.User.ID, Channel: "general"}))
	roster := readEvent(t, u2, func(e models.ServerEvent) bool { return e.Type == models.ServerEventRoster })
	require.Equal(t, []string{"Ada", "Bo"}, roster.Members)

	require.NoError(t, u1.WriteJSON(models.ClientEvent{Type: models.ClientEventMessage, Text: "hello", Channel: "general"}))
	for _, conn := range []*websocket.Conn{u1, u2} {
		msg := readEvent(t, conn, func(e models.ServerEvent) bool {
			return e.Type == models.ServerEventMessage && e.User != models.SystemUser
		})
		require.Equal(t, "Ada", msg.User)
		require.Equal(t, "hello", msg.Text)
		require.Equal(t, "general", msg.Channel)
	}

	// Step 5: The message is eventually stored
	require.Eventually(t, func() bool {
		var msgs []models.ChatMessage
		if getJSON(t, apiURL+"/api/messages?channel=general", &msgs) != http.StatusOK || len(msgs) != 1 {
			return false
		}
		return msgs[0].SenderID == ada.User.ID && msgs[0].Text == "hello"
	}, 2*time.Second, 50*time.Millisecond)

	// Step 6: Disconnect notifies the channel
	require.NoError(t, u1.Close())
	left := readEvent(t, u2, func(e models.ServerEvent) bool {
		return e.User == models.SystemUser && e.Text == "Ada left #general"
	})
	require.Equal(t, "general", left.Channel)

	var presence map[string][]models.PresenceEntry
	require.Equal(t, http.StatusOK, getJSON(t, "http://"+adminAddr+"/admin/presence", &presence))
	require.Len(t, presence["general"], 1)
	require.Equal(t, "Bo", presence["general"][0].DisplayName)
}

func waitForServer(t *testing.T, urlStr string, retries int) {
	t.Helper()
	client := &http.Client{Timeout: 500 * time.Millisecond}

	for i := 0; i < retries; i++ {
		resp, err := client.Get(urlStr)
		if err == nil {
			_ = resp.Body.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("Server failed to start at %s after %d retries", urlStr, retries)
}
