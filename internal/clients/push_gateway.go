package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/kitchenlane/catering-ops/pkg/circuitbreaker"
	"github.com/kitchenlane/catering-ops/pkg/errors"
	"github.com/kitchenlane/catering-ops/pkg/logger"
	"github.com/kitchenlane/catering-ops/pkg/retry"
)

// PushGatewayClient forwards change notifications to the push gateway that
// fans them out to the role devices. Delivery is best effort: a notification
// that cannot be delivered is dropped, and the device catches up on its next
// poll.
type PushGatewayClient struct {
	baseURL     string
	httpClient  *http.Client
	breaker     *circuitbreaker.CircuitBreaker
	retryConfig *retry.RetryConfig
	logger      logger.Logger
}

// Notification is the payload forwarded to the gateway.
type Notification struct {
	EventType string      `json:"event_type"`
	OrderID   string      `json:"order_id"`
	Data      interface{} `json:"data,omitempty"`
}

type pushResponse struct {
	Delivered int    `json:"delivered,omitempty"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
}

// NewPushGatewayClient creates a new PushGatewayClient.
func NewPushGatewayClient(baseURL string, logger logger.Logger) *PushGatewayClient {
	httpClient := &http.Client{
		Timeout: 5 * time.Second,
	}

	retryConfig := &retry.RetryConfig{
		MaxAttempts: 3,
		BackoffStrategy: &retry.ExponentialBackoff{
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      1.5,
			JitterFactor:    0.2,
		},
		Logger: logger,
		RetryableErrors: []error{
			errors.ErrTimeout,
			errors.ErrTemporaryFailure,
			errors.ErrServiceUnavailable,
		},
	}

	breaker := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		HalfOpenMaxCalls: 2,
	})

	return &PushGatewayClient{
		baseURL:     baseURL,
		httpClient:  httpClient,
		breaker:     breaker,
		retryConfig: retryConfig,
		logger:      logger,
	}
}

// SendNotification posts a notification to the gateway, retrying transient
// failures. The breaker keeps a dead gateway from stalling event consumption.
func (c *PushGatewayClient) SendNotification(ctx context.Context, notification *Notification) error {
	if !c.breaker.Allow() {
		return errors.NewTemporaryError("push gateway circuit is open")
	}

	url := fmt.Sprintf("%s/api/v1/notifications", c.baseURL)

	retryFunc := func() error {
		reqBody, err := json.Marshal(notification)

		if err != nil {
			return errors.NewInternalError(fmt.Sprintf("failed to marshal notification: %v", err))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))

		if err != nil {
			return errors.NewInternalError(fmt.Sprintf("failed to create request: %v", err))
		}

		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)

		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return errors.NewTimeoutError("notification request timed out")
			}
			return errors.NewTemporaryError(fmt.Sprintf("failed to send request: %v", err))
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)

		if err != nil {
			return errors.NewInternalError(fmt.Sprintf("failed to read response body: %v", err))
		}

		if resp.StatusCode >= 400 {
			if resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout {
				return errors.NewTimeoutError("notification request timed out")
			}

			if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusInternalServerError {
				return errors.NewTemporaryError(fmt.Sprintf("push gateway error: %d", resp.StatusCode))
			}

			return errors.NewAppError(
				errors.ErrInternal,
				fmt.Sprintf("push gateway returned error: %d", resp.StatusCode),
				resp.StatusCode,
				false,
			)
		}

		response := &pushResponse{}

		if err := json.Unmarshal(body, response); err != nil {
			return errors.NewInternalError(fmt.Sprintf("failed to parse response: %v", err))
		}

		if response.Error != "" {
			if response.Code == "TIMEOUT" {
				return errors.NewTimeoutError(response.Error)
			}
			return errors.NewTemporaryError(response.Error)
		}

		return nil
	}

	err := retry.Retry(ctx, retryFunc, c.retryConfig)

	if err != nil {
		c.breaker.Failure()
		c.logger.Error("Failed to deliver notification after retries",
			"error", err,
			"eventType", notification.EventType,
			"orderID", notification.OrderID)
		return err
	}

	c.breaker.Success()
	return nil
}
