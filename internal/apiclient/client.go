// Package apiclient is the device's typed client for the backend API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/logging"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu             sync.RWMutex
	token          string
	onTokenExpired func()
}

func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// SetToken sets the bearer token sent with every request. Empty clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// OnTokenExpired registers the session layer's callback for a 401 received
// while a token was set.
func (c *Client) OnTokenExpired(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTokenExpired = fn
}

func (c *Client) Register(ctx context.Context, email, password string) (*dto.AuthResponse, error) {
	var resp dto.AuthResponse
	err := c.do(ctx, http.MethodPost, "/auth/register", dto.RegisterRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*dto.AuthResponse, error) {
	var resp dto.AuthResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", dto.LoginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetSubscriptionStatus(ctx context.Context) (*dto.SubscriptionStatusResponse, error) {
	var resp dto.SubscriptionStatusResponse
	_, offset := time.Now().Zone()
	path := "/subscriptions/status?tzOffset=" + strconv.Itoa(offset/60)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetPlans(ctx context.Context) ([]dto.Plan, error) {
	var resp dto.PlansResponse
	if err := c.do(ctx, http.MethodGet, "/subscriptions/plans", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Plans, nil
}

func (c *Client) PurchaseSubscription(ctx context.Context, req dto.PurchaseRequest) (*dto.PurchaseResponse, error) {
	var resp dto.PurchaseResponse
	if err := c.do(ctx, http.MethodPost, "/subscriptions/purchase", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SyncSavedItems(ctx context.Context, items []dto.SavedItemRef) error {
	var resp dto.SyncSavedItemsResponse
	if err := c.do(ctx, http.MethodPost, "/users/saved-items", dto.SyncSavedItemsRequest{Items: items}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &Error{Code: httpCode(http.StatusOK), ServerCode: "SYNC_REJECTED", Message: resp.Error}
	}
	return nil
}

// ScanBarcode looks a barcode up. An unknown barcode returns ErrProductNotFound.
func (c *Client) ScanBarcode(ctx context.Context, barcode string) (*dto.ScanResponse, error) {
	var resp dto.ScanResponse
	err := c.do(ctx, http.MethodGet, "/products/barcode/"+url.PathEscape(barcode), nil, &resp)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, barcode)
		}
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token := c.Token()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("api request failed", "method", method, "path", path, "error", err)
		return &Error{Code: CodeNetwork, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Code: CodeNetwork, Message: err.Error(), Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		c.mu.RLock()
		cb := c.onTokenExpired
		c.mu.RUnlock()
		if cb != nil {
			cb()
		}
		return &Error{Code: CodeTokenExpired, Status: resp.StatusCode, Err: ErrTokenExpired}
	}

	var env dto.Envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{Code: httpCode(resp.StatusCode), Status: resp.StatusCode}
		if decodeErr == nil && env.Error != nil {
			apiErr.ServerCode, apiErr.Message = env.Error.Code, env.Error.Message
		}
		return apiErr
	}

	if decodeErr != nil {
		return &Error{Code: CodeDecode, Message: decodeErr.Error(), Status: resp.StatusCode, Err: decodeErr}
	}
	if !env.Success {
		apiErr := &Error{Code: httpCode(resp.StatusCode), Status: resp.StatusCode}
		if env.Error != nil {
			apiErr.ServerCode, apiErr.Message = env.Error.Code, env.Error.Message
		}
		return apiErr
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &Error{Code: CodeDecode, Message: err.Error(), Status: resp.StatusCode, Err: err}
		}
	}
	return nil
}
