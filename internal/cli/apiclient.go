package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// APIError is a non-2xx reply from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error (%d)", e.Status)
	}
	return fmt.Sprintf("API error (%d) %s: %s", e.Status, e.Code, e.Message)
}

// APIClient talks to the HTTP API of the service.
type APIClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewAPIClient returns a client for baseURL authenticating with token.
func NewAPIClient(baseURL, token string, timeout time.Duration) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

type sessionReply struct {
	Email     string `json:"email"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

type messageReply struct {
	Message string `json:"message"`
}

// Register creates an account and returns its session token.
func (c *APIClient) Register(ctx context.Context, email, password string) (string, error) {
	return c.credentials(ctx, "/api/v1/register", email, password, http.StatusCreated)
}

// Login returns a new session token.
func (c *APIClient) Login(ctx context.Context, email, password string) (string, error) {
	return c.credentials(ctx, "/api/v1/login", email, password, http.StatusOK)
}

func (c *APIClient) credentials(ctx context.Context, path, email, password string, want int) (string, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var reply sessionReply
	if err := c.do(req, want, &reply); err != nil {
		return "", err
	}
	return reply.Token, nil
}

// Upload streams the file at path to the server and returns its message.
func (c *APIClient) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/files", pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	var reply messageReply
	if err := c.do(req, http.StatusCreated, &reply); err != nil {
		_ = pr.CloseWithError(err)
		return "", err
	}
	return reply.Message, nil
}

// Fetch downloads and decrypts object id into dst and returns the original
// file name.
func (c *APIClient) Fetch(ctx context.Context, keyHex, id string, dst io.Writer) (string, error) {
	body, err := json.Marshal(map[string]string{"encryptionKey": keyHex, "fileId": id})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/files/decrypt", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", readAPIError(resp)
	}

	name := ""
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		name = params["filename"]
	}
	if _, err := io.Copy(dst, resp.Body); err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	return name, nil
}

func (c *APIClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *APIClient) do(req *http.Request, want int, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return readAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	e := &APIError{Status: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return e
	}
	var reply struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &reply) == nil {
		e.Code, e.Message = reply.Code, reply.Message
	}
	return e
}

// IsAPIError reports whether err is an APIError with the given code.
func IsAPIError(err error, code string) bool {
	var e *APIError
	return errors.As(err, &e) && e.Code == code
}
