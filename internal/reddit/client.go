package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	tokenURL  = "https://www.reddit.com/api/v1/access_token"
	submitURL = "https://oauth.reddit.com/api/submit"
)

// Client posts to Reddit using a script-type app (password grant).
type Client struct {
	clientID     string
	clientSecret string
	username     string
	password     string
	userAgent    string
	client       *resty.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates a Reddit posting client. timeout bounds every API
// call.
func NewClient(clientID, clientSecret, username, password, userAgent string, timeout time.Duration) *Client {
	if userAgent == "" {
		userAgent = "reddit-autopost/1.0"
	}
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		username:     username,
		password:     password,
		userAgent:    userAgent,
		client:       resty.New().SetTimeout(timeout),
	}
}

// IsEnabled reports whether posting credentials are present.
func (c *Client) IsEnabled() bool {
	return c.clientID != "" && c.clientSecret != "" && c.username != "" && c.password != ""
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return nil
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", c.userAgent).
		SetBasicAuth(c.clientID, c.clientSecret).
		SetFormData(map[string]string{
			"grant_type": "password",
			"username":   c.username,
			"password":   c.password,
		}).
		Post(tokenURL)

	if err != nil {
		return &TransientError{Reason: "token request failed", Err: err}
	}
	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return &PermanentError{Reason: fmt.Sprintf("authentication rejected with status %d", resp.StatusCode())}
	}
	if resp.StatusCode() != 200 {
		return &TransientError{Reason: fmt.Sprintf("token endpoint returned status %d", resp.StatusCode())}
	}

	var auth authResponse
	if err := json.Unmarshal(resp.Body(), &auth); err != nil {
		return &TransientError{Reason: "malformed token response", Err: err}
	}
	if auth.AccessToken == "" {
		return &PermanentError{Reason: "empty access token, check app credentials"}
	}

	c.accessToken = auth.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(auth.ExpiresIn) * time.Second).Add(-time.Minute)
	return nil
}

type submitResponse struct {
	JSON struct {
		Errors [][]string `json:"errors"`
		Data   struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"data"`
	} `json:"json"`
}

// Submit posts a self post to the given community and returns the remote
// post ID. Failures are classified as TransientError or PermanentError.
func (c *Client) Submit(ctx context.Context, community, title, body, flair string) (string, error) {
	if !c.IsEnabled() {
		return "", &PermanentError{Reason: "reddit credentials not configured"}
	}

	if err := c.authenticate(ctx); err != nil {
		return "", err
	}

	form := map[string]string{
		"api_type": "json",
		"kind":     "self",
		"sr":       community,
		"title":    title,
		"text":     body,
	}
	if flair != "" {
		form["flair_text"] = flair
	}

	c.mu.Lock()
	token := c.accessToken
	c.mu.Unlock()

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token).
		SetHeader("User-Agent", c.userAgent).
		SetFormData(form).
		Post(submitURL)

	if err != nil {
		return "", &TransientError{Reason: "submit request failed", Err: err}
	}

	if err := classifyStatus(resp.StatusCode()); err != nil {
		return "", err
	}

	var parsed submitResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", &TransientError{Reason: "malformed submit response", Err: err}
	}

	if len(parsed.JSON.Errors) > 0 {
		return "", classifyAPIError(parsed.JSON.Errors[0])
	}

	postID := parsed.JSON.Data.Name
	if postID == "" {
		postID = parsed.JSON.Data.ID
	}
	if postID == "" {
		return "", &TransientError{Reason: "submit response carried no post id"}
	}

	logrus.Infof("Posted to r/%s: %s", community, postID)
	return postID, nil
}

func classifyStatus(status int) error {
	switch {
	case status == 429:
		return &TransientError{Reason: "rate limited"}
	case status >= 500:
		return &TransientError{Reason: fmt.Sprintf("reddit returned status %d", status)}
	case status == 401 || status == 403:
		return &PermanentError{Reason: fmt.Sprintf("access denied with status %d", status)}
	case status >= 400:
		return &PermanentError{Reason: fmt.Sprintf("reddit rejected request with status %d", status)}
	}
	return nil
}

// classifyAPIError maps Reddit's in-band error tuples
// ([code, message, field]) onto the transient/permanent taxonomy.
func classifyAPIError(tuple []string) error {
	code := ""
	if len(tuple) > 0 {
		code = strings.ToUpper(tuple[0])
	}
	message := strings.Join(tuple, ": ")

	switch code {
	case "RATELIMIT":
		return &TransientError{Reason: message}
	case "SUBREDDIT_NOTALLOWED", "USER_BANNED", "BANNED_FROM_SUBREDDIT",
		"INVALID_USER", "USER_REQUIRED", "ALREADY_SUB", "DOMAIN_BANNED",
		"NO_SELFS", "NO_LINKS":
		return &PermanentError{Reason: message}
	default:
		return &PermanentError{Reason: message}
	}
}
