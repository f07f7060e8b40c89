package meta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"msgbridge/clients"
)

// MetaClient implements the clients.MetaClient interface against the Graph API
type MetaClient struct {
	httpClient *http.Client
	baseURL    string
	appID      string
	appSecret  string
}

// SendMessageRequest represents the Send API request body
type SendMessageRequest struct {
	Recipient Recipient   `json:"recipient"`
	Message   TextMessage `json:"message"`
}

type Recipient struct {
	ID string `json:"id"`
}

type TextMessage struct {
	Text string `json:"text"`
}

// SendMessageResponse represents the Send API response
type SendMessageResponse struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}

// UserProfileResponse represents the profile fields we request
type UserProfileResponse struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Name      string `json:"name"`
}

// TokenExchangeResponse represents the long-lived token exchange response
type TokenExchangeResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// NewMetaClient creates a new Graph API client
func NewMetaClient(baseURL, appID, appSecret string) clients.MetaClient {
	return &MetaClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		appID:      appID,
		appSecret:  appSecret,
	}
}

// SendMessage delivers a text message to a recipient through the Send API
func (c *MetaClient) SendMessage(ctx context.Context, accessToken, recipientID, text string) error {
	reqBody := SendMessageRequest{
		Recipient: Recipient{ID: recipientID},
		Message:   TextMessage{Text: text},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/me/messages?access_token=%s", c.baseURL, url.QueryEscape(accessToken))
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("send message failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var sendResp SendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&sendResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if sendResp.MessageID == "" {
		return fmt.Errorf("missing message_id in send response")
	}
	return nil
}

// GetUserProfile fetches the display name fields for a platform-scoped user id
func (c *MetaClient) GetUserProfile(ctx context.Context, accessToken, userID string) (*clients.UserProfile, error) {
	endpoint := fmt.Sprintf("%s/%s?fields=first_name,last_name,name&access_token=%s",
		c.baseURL, url.PathEscape(userID), url.QueryEscape(accessToken))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("user profile fetch failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var profileResp UserProfileResponse
	if err := json.NewDecoder(resp.Body).Decode(&profileResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	profile := &clients.UserProfile{
		FirstName: profileResp.FirstName,
		LastName:  profileResp.LastName,
	}
	// Instagram profiles expose a single name field instead of first/last
	if profile.FirstName == "" && profileResp.Name != "" {
		profile.FirstName = profileResp.Name
	}
	return profile, nil
}

// RefreshToken exchanges the current token for a fresh long-lived one
func (c *MetaClient) RefreshToken(ctx context.Context, currentToken string) (*clients.RefreshedToken, error) {
	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", c.appID)
	params.Set("client_secret", c.appSecret)
	params.Set("fb_exchange_token", currentToken)

	endpoint := fmt.Sprintf("%s/oauth/access_token?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token exchange failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var tokenResp TokenExchangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("missing access token in exchange response")
	}

	// Long-lived tokens without an explicit expiry default to 60 days
	expiresIn := tokenResp.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 60 * 24 * 60 * 60
	}

	return &clients.RefreshedToken{
		AccessToken: tokenResp.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}

// CheckHealth performs a minimal authenticated call using the app token
func (c *MetaClient) CheckHealth(ctx context.Context) error {
	appToken := fmt.Sprintf("%s|%s", c.appID, c.appSecret)
	endpoint := fmt.Sprintf("%s/app?access_token=%s", c.baseURL, url.QueryEscape(appToken))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach platform API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("platform API health check failed: status %d, body: %s", resp.StatusCode, string(body))
	}
	return nil
}
