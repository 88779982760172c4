package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"moff.io/walletauth/pkg/errors"
	"moff.io/walletauth/pkg/log"
)

const (
	defaultTimeout = time.Second * 10
	tokenPath      = "/auth/v1/token?grant_type=web3"
)

type ClientConfig struct {
	BaseURL string
	APIKey  string
	// Domain and URI are embedded in the signed message.
	Domain     string
	URI        string
	MessageTTL time.Duration
	Timeout    time.Duration
}

// Client exchanges wallet proofs with the identity service's web3 token grant.
type Client struct {
	baseURL    string
	apiKey     string
	signer     *Signer
	httpClient *http.Client
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		signer:  NewSigner(cfg.Domain, cfg.URI, cfg.MessageTTL),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Exchange(ctx context.Context, req Request) (*Response, error) {
	proof, err := c.signer.Prove(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.Submit(ctx, proof)
}

// Submit posts an already signed proof.
func (c *Client) Submit(ctx context.Context, proof *Proof) (*Response, error) {
	body, err := json.Marshal(proof)
	if err != nil {
		return nil, errors.Wrap(err, "encode token request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, bytes.NewReader(body))
	if err != nil {
		return nil, errors.WrapAndReport(err, "create new token request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "send token request to identity service")
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read token response")
	}
	if resp.StatusCode != http.StatusOK {
		serviceErr := parseServiceError(resp.StatusCode, b)
		log.Warnf("exchange - identity service rejected %v proof:%v", proof.Chain, serviceErr)
		return &Response{Error: serviceErr}, nil
	}
	var session Session
	if err := json.Unmarshal(b, &session); err != nil || session.AccessToken == "" {
		return nil, errors.ErrorfAndReport("token response without session:%v", string(b))
	}
	return &Response{Session: &session}, nil
}

// parseServiceError reads the error shapes the identity service is known to return.
func parseServiceError(status int, body []byte) *Error {
	result := gjson.ParseBytes(body)
	msg := firstString(result, "msg", "message", "error_description", "error")
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &Error{
		Message: msg,
		Status:  status,
		Code:    firstString(result, "error_code", "code"),
	}
}

func firstString(result gjson.Result, paths ...string) string {
	for _, path := range paths {
		if v := result.Get(path); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
