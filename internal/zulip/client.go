// Package zulip is the chat-system boundary: a narrow capability
// interface over the workspace API. Nothing else in the repository
// performs externally visible writes.
package zulip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"deptbot/internal/model"
)

// Client is the capability surface the bots need from the chat system.
type Client interface {
	ListAccounts(ctx context.Context) ([]model.ChatAccount, error)
	ListStreams(ctx context.Context) ([]string, error)
	PostMessage(ctx context.Context, stream model.StreamTag, topic, body string) error
	PostDirect(ctx context.Context, accountID int64, body string) error
	Subscribe(ctx context.Context, accountID int64, streams []model.StreamTag) error
}

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// REST talks to a Zulip server over its v1 REST API.
type REST struct {
	client  HTTPClient
	baseURL string
	email   string
	apiKey  string
	timeout time.Duration
	backoff time.Duration
	retries uint64
}

// NewREST creates a REST client for the given site using bot credentials.
func NewREST(client HTTPClient, site, email, apiKey string) *REST {
	return &REST{
		client:  client,
		baseURL: strings.TrimRight(site, "/") + "/api/v1",
		email:   email,
		apiKey:  apiKey,
		timeout: 30 * time.Second,
		backoff: 500 * time.Millisecond,
		retries: 2,
	}
}

// envelope is the common response wrapper.
type envelope struct {
	Result string `json:"result"`
	Msg    string `json:"msg"`
}

type memberList struct {
	envelope
	Members []struct {
		UserID        int64  `json:"user_id"`
		FullName      string `json:"full_name"`
		DeliveryEmail string `json:"delivery_email"`
		Email         string `json:"email"`
		IsBot         bool   `json:"is_bot"`
		IsActive      bool   `json:"is_active"`
	} `json:"members"`
}

type streamList struct {
	envelope
	Streams []struct {
		Name string `json:"name"`
	} `json:"streams"`
}

// ListAccounts returns every account in the workspace, bots included;
// callers filter.
func (r *REST) ListAccounts(ctx context.Context) ([]model.ChatAccount, error) {
	var list memberList
	if err := r.call(ctx, http.MethodGet, "/users", nil, &list); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	accounts := make([]model.ChatAccount, 0, len(list.Members))
	for _, m := range list.Members {
		email := m.DeliveryEmail
		if email == "" {
			email = m.Email
		}
		accounts = append(accounts, model.ChatAccount{
			ID:       m.UserID,
			FullName: m.FullName,
			Email:    email,
			IsBot:    m.IsBot,
			IsActive: m.IsActive,
		})
	}
	return accounts, nil
}

// ListStreams returns the names of all streams visible to the bot.
func (r *REST) ListStreams(ctx context.Context) ([]string, error) {
	var list streamList
	if err := r.call(ctx, http.MethodGet, "/streams", nil, &list); err != nil {
		return nil, fmt.Errorf("list streams: %w", err)
	}

	names := make([]string, 0, len(list.Streams))
	for _, s := range list.Streams {
		names = append(names, s.Name)
	}
	return names, nil
}

// PostMessage posts to a stream under the given topic.
func (r *REST) PostMessage(ctx context.Context, stream model.StreamTag, topic, body string) error {
	form := url.Values{
		"type":    {"stream"},
		"to":      {string(stream)},
		"topic":   {topic},
		"content": {body},
	}
	var resp envelope
	if err := r.call(ctx, http.MethodPost, "/messages", form, &resp); err != nil {
		return fmt.Errorf("post to %s/%s: %w", stream, topic, err)
	}
	return nil
}

// PostDirect sends a direct message to one account.
func (r *REST) PostDirect(ctx context.Context, accountID int64, body string) error {
	form := url.Values{
		"type":    {"direct"},
		"to":      {"[" + strconv.FormatInt(accountID, 10) + "]"},
		"content": {body},
	}
	var resp envelope
	if err := r.call(ctx, http.MethodPost, "/messages", form, &resp); err != nil {
		return fmt.Errorf("post direct to %d: %w", accountID, err)
	}
	return nil
}

// Subscribe adds the account to the given streams.
func (r *REST) Subscribe(ctx context.Context, accountID int64, streams []model.StreamTag) error {
	if len(streams) == 0 {
		return nil
	}

	subs := make([]map[string]string, 0, len(streams))
	for _, s := range streams {
		subs = append(subs, map[string]string{"name": string(s)})
	}
	subsJSON, err := json.Marshal(subs)
	if err != nil {
		return fmt.Errorf("encode subscriptions: %w", err)
	}

	form := url.Values{
		"subscriptions": {string(subsJSON)},
		"principals":    {"[" + strconv.FormatInt(accountID, 10) + "]"},
	}
	var resp envelope
	if err := r.call(ctx, http.MethodPost, "/users/me/subscriptions", form, &resp); err != nil {
		return fmt.Errorf("subscribe %d: %w", accountID, err)
	}
	return nil
}

// call performs one API request with bounded timeout and capped
// exponential backoff. Transport failures and 5xx responses retry;
// API-level errors (4xx, result=error) do not.
func (r *REST) call(ctx context.Context, method, path string, form url.Values, out interface{ env() *envelope }) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	backoff := retry.WithMaxRetries(r.retries, retry.NewExponential(r.backoff))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		var bodyReader io.Reader
		if form != nil {
			bodyReader = strings.NewReader(form.Encode())
		}

		req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.SetBasicAuth(r.email, r.apiKey)
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}

		resp, err := r.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("http %s %s: %w", method, path, err))
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
		if err != nil {
			return retry.RetryableError(fmt.Errorf("read response: %w", err))
		}

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("server status %d", resp.StatusCode))
		}

		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
		}
		if e := out.env(); e.Result != "success" {
			return fmt.Errorf("api error (status %d): %s", resp.StatusCode, e.Msg)
		}
		return nil
	})
}

func (e *envelope) env() *envelope { return e }
