package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// GoTrueClient talks to a GoTrue-compatible admin API with a service key.
type GoTrueClient struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

// NewGoTrueClient constructs the client. httpClient may be nil.
func NewGoTrueClient(baseURL, serviceKey string, httpClient *http.Client) *GoTrueClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GoTrueClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		client:     httpClient,
	}
}

type gotrueUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type gotrueError struct {
	Message string `json:"msg"`
	Error   string `json:"error"`
}

func (e gotrueError) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// CreateAccount registers a login account with a confirmed email.
func (c *GoTrueClient) CreateAccount(ctx context.Context, email, password string, metadata map[string]string) (Account, error) {
	body := map[string]any{
		"email":         email,
		"password":      password,
		"email_confirm": true,
	}
	if len(metadata) > 0 {
		body["user_metadata"] = metadata
	}
	var user gotrueUser
	if err := c.do(ctx, http.MethodPost, "/admin/users", body, &user); err != nil {
		return Account{}, err
	}
	return Account{ID: user.ID, Email: user.Email}, nil
}

// UpdateAccount changes provider-side fields for an existing account.
func (c *GoTrueClient) UpdateAccount(ctx context.Context, id string, fields UpdateFields) error {
	body := map[string]any{}
	if fields.Email != nil {
		body["email"] = *fields.Email
	}
	if fields.Password != nil {
		body["password"] = *fields.Password
	}
	if len(body) == 0 {
		return nil
	}
	return c.do(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(id), body, nil)
}

// DeleteAccount removes an account. Absent accounts map to ErrNotFound so
// callers can treat the delete as idempotent.
func (c *GoTrueClient) DeleteAccount(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(id), nil, nil)
}

func (c *GoTrueClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	var apiErr gotrueError
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusConflict,
		resp.StatusCode == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(apiErr.text()), "already"),
		strings.Contains(apiErr.text(), "already registered"):
		return ErrAlreadyExists
	default:
		return fmt.Errorf("provider: %s %s returned %d: %s", method, path, resp.StatusCode, apiErr.text())
	}
}

var _ IdentityProvider = (*GoTrueClient)(nil)
