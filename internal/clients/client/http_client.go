package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tedkimdev/nft-staking/internal/observability/metrics"
	"github.com/tedkimdev/nft-staking/internal/types"
)

type HttpClientOptions struct {
	// Timeout overrides the client default when positive
	Timeout time.Duration
	Path    string
	// TemplatePath is the route pattern used as the metrics label, e.g. /v1/users/{owner}
	TemplatePath string
	Headers      map[string]string
}

type BaseClient interface {
	GetBaseURL() string
	GetDefaultRequestTimeout() time.Duration
	GetHttpClient() *http.Client
}

// errorResponse is the error body written by the api server
type errorResponse struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

func isAllowedMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// SendRequest sends input as json and decodes the json response into R.
// A non 2xx response becomes a *types.Error carrying the server's code and status.
func SendRequest[I any, R any](
	ctx context.Context, client BaseClient, method string, opts *HttpClientOptions, input *I,
) (*R, error) {
	if !isAllowedMethod(method) {
		return nil, types.Wrap(types.ErrBadRequest, "method %s is not allowed", method)
	}

	timeout := client.GetDefaultRequestTimeout()
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if input != nil {
		payload, err := json.Marshal(input)
		if err != nil {
			return nil, types.NewInternalServiceError(fmt.Errorf("failed to marshal request body: %w", err))
		}
		body = bytes.NewReader(payload)
	}

	completeURL := client.GetBaseURL() + opts.Path
	req, err := http.NewRequestWithContext(ctx, method, completeURL, body)
	if err != nil {
		return nil, types.NewInternalServiceError(fmt.Errorf("failed to create request: %w", err))
	}
	if input != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	recordDuration := metrics.StartClientRequestDurationTimer(client.GetBaseURL(), method, opts.TemplatePath)
	resp, err := client.GetHttpClient().Do(req)
	if err != nil {
		recordDuration(0)
		if ctx.Err() == context.DeadlineExceeded {
			return nil, types.NewError(
				http.StatusRequestTimeout, types.InternalServiceError,
				fmt.Errorf("request to %s timed out: %w", completeURL, err),
			)
		}
		return nil, types.NewInternalServiceError(fmt.Errorf("failed to send request to %s: %w", completeURL, err))
	}
	defer resp.Body.Close()
	recordDuration(resp.StatusCode)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewInternalServiceError(fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeErrorResponse(ctx, resp.StatusCode, respBody)
	}

	var output R
	if err := json.Unmarshal(respBody, &output); err != nil {
		return nil, types.NewInternalServiceError(fmt.Errorf("failed to decode response body: %w", err))
	}
	return &output, nil
}

func decodeErrorResponse(ctx context.Context, statusCode int, body []byte) *types.Error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.ErrorCode == "" {
		log.Ctx(ctx).Debug().
			Int("status_code", statusCode).
			Bytes("body", body).
			Msg("unexpected error response")
		return types.NewError(
			statusCode, types.InternalServiceError,
			fmt.Errorf("unexpected response status %d", statusCode),
		)
	}
	return types.NewErrorWithMsg(statusCode, types.ErrorCode(errResp.ErrorCode), errResp.Message)
}
