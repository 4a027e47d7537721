package camunda

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "marketing-workers/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Client owns the gateway connection shared by every worker.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RequestTimeout         time.Duration
	Retry                  RetryPolicy
}

// RetryPolicy bounds the backoff applied to gateway calls made through Do.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var defaultRetryPolicy = RetryPolicy{
	MaxRetries: 3,
	BaseDelay:  time.Second,
	MaxDelay:   10 * time.Second,
}

// NewClientWithConfig dials the gateway and checks it answers a topology
// request within ConnectionTimeout.
func NewClientWithConfig(config *ClientConfig) (*Client, error) {
	if config.Retry.MaxRetries <= 0 && config.Retry.BaseDelay == 0 {
		config.Retry = defaultRetryPolicy
	}
	if config.ConnectionTimeout <= 0 {
		config.ConnectionTimeout = 10 * time.Second
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         config.GatewayAddress,
		UsePlaintextConnection: config.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("create zeebe client: %w", err)
	}

	c := &Client{client: zeebeClient, config: config}
	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectionTimeout)
	defer cancel()
	if _, err := c.topology(ctx); err != nil {
		zeebeClient.Close()
		return nil, fmt.Errorf("connect to zeebe gateway %s: %w", config.GatewayAddress, err)
	}
	return c, nil
}

func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Do runs fn with exponential backoff while the gateway reports a transient
// failure. The final error is a StandardError.
func (c *Client) Do(ctx context.Context, operation string, fn func(context.Context) error) error {
	policy := c.config.Retry
	for attempt := 0; ; attempt++ {
		callCtx := ctx
		cancel := func() {}
		if c.config.RequestTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, c.config.RequestTimeout)
		}
		err := fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		if !transient(err) || attempt >= policy.MaxRetries {
			return classify(err, operation, attempt+1)
		}

		delay := policy.BaseDelay << attempt
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return classify(ctx.Err(), operation, attempt+1)
		}
	}
}

// HealthCheck asks for the topology and fails when no broker is reported.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	var brokers int
	err := c.Do(ctx, "topology", func(ctx context.Context) error {
		resp, err := c.topology(ctx)
		if err == nil {
			brokers = len(resp.GetBrokers())
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("zeebe health check: %w", err)
	}
	if brokers == 0 {
		return fmt.Errorf("zeebe health check: gateway reports no brokers")
	}
	return nil
}

func (c *Client) topology(ctx context.Context) (*pb.TopologyResponse, error) {
	return c.client.NewTopologyCommand().Send(ctx)
}

// transient reports gateway errors worth another attempt. Errors without a
// gRPC status (dial failures) are matched on their text.
func transient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if s, ok := status.FromError(err); ok && s.Code() != codes.Unknown {
		switch s.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
			return true
		}
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range []string{"connection refused", "connection reset", "broken pipe", "unavailable", "deadline exceeded", "timeout"} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

func classify(err error, operation string, attempts int) error {
	wrapped := fmt.Errorf("zeebe %s failed after %d attempt(s): %w", operation, attempts, err)

	code := codes.Unknown
	if s, ok := status.FromError(err); ok {
		code = s.Code()
	}
	// message text is only consulted when the gateway gave no status code
	msg := ""
	if code == codes.Unknown {
		msg = strings.ToLower(err.Error())
	}

	switch {
	case code == codes.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "timeout"):
		return apperrors.NewTimeoutError("zeebe", wrapped)
	case code == codes.PermissionDenied || code == codes.Unauthenticated || code == codes.NotFound ||
		code == codes.InvalidArgument || strings.Contains(msg, "permission denied"):
		stdErr := apperrors.NewExternalServiceError("zeebe", wrapped)
		stdErr.Retryable = false
		return stdErr
	default:
		return apperrors.NewExternalServiceError("zeebe", wrapped)
	}
}
