// Package paymentprovider клиент шлюза криптоплатежей: создание счёта
// и проверка его статуса.
package paymentprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const apiVersion = "2018-03-22"

// ErrUnexpectedStatus шлюз ответил статусом, отличным от 2xx.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Client HTTP-клиент шлюза.
type Client struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient создаёт клиент шлюза по адресу apiURL.
func NewClient(apiURL, apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(4), 4),
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-CC-Api-Key", c.apiKey)
	req.Header.Set("X-CC-Version", apiVersion)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*Charge, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s: %s", ErrUnexpectedStatus, resp.Status, strings.TrimSpace(string(data)))
	}

	var env chargeEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// CreateCharge создаёт счёт и возвращает его с адресом страницы оплаты.
func (c *Client) CreateCharge(ctx context.Context, reqParams CreateChargeRequest) (*Charge, error) {
	const op = "paymentprovider.CreateCharge"
	if reqParams.PricingType == "" {
		reqParams.PricingType = "fixed_price"
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/charges", reqParams)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	charge, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return charge, nil
}

// GetCharge возвращает счёт по идентификатору.
func (c *Client) GetCharge(ctx context.Context, id string) (*Charge, error) {
	const op = "paymentprovider.GetCharge"
	req, err := c.newRequest(ctx, http.MethodGet, "/charges/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	charge, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return charge, nil
}
