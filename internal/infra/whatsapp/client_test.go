package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"medication_reminder_bot/internal/domain/messaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatID(t *testing.T) {
	assert.Equal(t, "996700112233@c.us", ChatID("+996700112233"))
	assert.Equal(t, "996700112233@c.us", ChatID("+996 (700) 11-22-33"))
}

func TestClient_SendText(t *testing.T) {
	var gotPath string
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"idMessage":"BAE5F4886F6F2D05"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIURL: srv.URL + "/", InstanceID: "1101000001", Token: "tok"}, srv.Client())
	res, err := c.SendText(context.Background(), "+996700112233", "hello")
	require.NoError(t, err)

	assert.Equal(t, "BAE5F4886F6F2D05", res.MessageID)
	assert.Equal(t, "/waInstance1101000001/sendMessage/tok", gotPath)
	assert.Equal(t, map[string]string{"chatId": "996700112233@c.us", "message": "hello"}, got)
	assert.Equal(t, "whatsapp", c.Name())
}

func TestClient_SendImage(t *testing.T) {
	var gotPath string
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"idMessage":"img-1"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIURL: srv.URL, InstanceID: "7", Token: "tok"}, srv.Client())
	res, err := c.SendImage(context.Background(), "+10000000001", "https://cdn.example.com/a.jpg", "caption")
	require.NoError(t, err)

	assert.Equal(t, "img-1", res.MessageID)
	assert.Equal(t, "/waInstance7/sendFileByUrl/tok", gotPath)
	assert.Equal(t, map[string]string{
		"chatId":   "10000000001@c.us",
		"urlFile":  "https://cdn.example.com/a.jpg",
		"fileName": "medication.jpg",
		"caption":  "caption",
	}, got)
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"chatId is invalid"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIURL: srv.URL, InstanceID: "7", Token: "tok"}, srv.Client())
	_, err := c.SendText(context.Background(), "+1", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "chatId is invalid")
	assert.NotErrorIs(t, err, messaging.ErrNotConfigured)
}

func TestClient_NotConfigured(t *testing.T) {
	for _, cfg := range []Config{
		{},
		{APIURL: "https://api.green-api.com", InstanceID: "7"},
		{InstanceID: "7", Token: "tok"},
	} {
		c := NewClient(cfg, nil)
		_, err := c.SendText(context.Background(), "+1", "hello")
		assert.ErrorIs(t, err, messaging.ErrNotConfigured)
		_, err = c.SendImage(context.Background(), "+1", "https://x/y.jpg", "c")
		assert.ErrorIs(t, err, messaging.ErrNotConfigured)
	}
}

func TestClient_RespectsContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(Config{APIURL: srv.URL, InstanceID: "7", Token: "tok"}, srv.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.SendText(ctx, "+1", "hello")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
