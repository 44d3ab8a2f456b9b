// internal/infra/whatsapp/client.go
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"medication_reminder_bot/internal/domain/messaging"
)

const (
	ChannelName    = "whatsapp"
	imageFileName  = "medication.jpg"
	maxErrorBody   = 512
	defaultTimeout = 30 * time.Second
)

// Config holds Green-API credentials. Any empty field leaves the client unconfigured.
type Config struct {
	APIURL     string
	InstanceID string
	Token      string
}

func (c Config) configured() bool {
	return c.APIURL != "" && c.InstanceID != "" && c.Token != ""
}

// Client implements messaging.Gateway on top of the Green-API HTTP API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	return &Client{cfg: cfg, httpClient: httpClient}
}

func (c *Client) Name() string {
	return ChannelName
}

type sendMessageRequest struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

type sendFileByURLRequest struct {
	ChatID   string `json:"chatId"`
	URLFile  string `json:"urlFile"`
	FileName string `json:"fileName"`
	Caption  string `json:"caption,omitempty"`
}

type sendResponse struct {
	IDMessage string `json:"idMessage"`
}

// SendText sends a plain text message to an E.164 number.
func (c *Client) SendText(ctx context.Context, address, text string) (messaging.SendResult, error) {
	return c.post(ctx, "sendMessage", sendMessageRequest{ChatID: ChatID(address), Message: text})
}

// SendImage sends an image by URL with caption as its description.
func (c *Client) SendImage(ctx context.Context, address, imageURL, caption string) (messaging.SendResult, error) {
	return c.post(ctx, "sendFileByUrl", sendFileByURLRequest{
		ChatID:   ChatID(address),
		URLFile:  imageURL,
		FileName: imageFileName,
		Caption:  caption,
	})
}

func (c *Client) post(ctx context.Context, method string, payload any) (messaging.SendResult, error) {
	if !c.cfg.configured() {
		return messaging.SendResult{}, messaging.ErrNotConfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return messaging.SendResult{}, fmt.Errorf("green-api %s: encode request: %w", method, err)
	}
	url := fmt.Sprintf("%s/waInstance%s/%s/%s", c.cfg.APIURL, c.cfg.InstanceID, method, c.cfg.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return messaging.SendResult{}, fmt.Errorf("green-api %s: build request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return messaging.SendResult{}, fmt.Errorf("green-api %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return messaging.SendResult{}, fmt.Errorf("green-api %s: status %d: %s", method, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
		return messaging.SendResult{}, fmt.Errorf("green-api %s: decode response: %w", method, err)
	}
	return messaging.SendResult{MessageID: out.IDMessage}, nil
}

// ChatID converts an E.164 number into a Green-API chat id: "+996 700-112233" -> "996700112233@c.us".
func ChatID(phoneNumber string) string {
	var digits strings.Builder
	for _, r := range phoneNumber {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return digits.String() + "@c.us"
}
