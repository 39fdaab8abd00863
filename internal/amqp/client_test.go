package amqp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{12, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.want {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"closed", amqp091.ErrClosed, true},
		{"wrapped closed", fmt.Errorf("consume: %w", amqp091.ErrClosed), true},
		{"refused", errors.New("dial tcp 127.0.0.1:5672: connect: connection refused"), true},
		{"eof", errors.New("unexpected EOF"), true},
		{"other", errors.New("access refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.want {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestCircuitBreaker(t *testing.T) {
	c := &Client{}

	for i := 0; i < maxFailures-1; i++ {
		c.recordFailure()
	}
	if c.isCircuitOpen() {
		t.Fatal("circuit opened before reaching max failures")
	}

	c.recordFailure()
	if !c.isCircuitOpen() {
		t.Fatal("circuit should be open after max failures")
	}

	c.lastFailure = time.Now().Add(-openTimeout - time.Second)
	if c.isCircuitOpen() {
		t.Fatal("circuit should allow a probe after the open timeout")
	}
	if c.state != StateHalfOpen {
		t.Fatalf("state = %d, want half-open", c.state)
	}

	// A failed probe reopens immediately.
	c.recordFailure()
	if c.state != StateOpen {
		t.Fatalf("state = %d, want open after failed probe", c.state)
	}

	c.recordSuccess()
	if c.state != StateClosed || c.failureCount != 0 {
		t.Fatalf("after success state = %d failures = %d", c.state, c.failureCount)
	}
}

func TestPublishRecordsChanged_Guards(t *testing.T) {
	msg := NewRecordsChangedMessage("test", "v1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (&Client{}).PublishRecordsChanged(ctx, msg); !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled ctx: err = %v, want context.Canceled", err)
	}

	open := &Client{state: StateOpen, lastFailure: time.Now()}
	if err := open.PublishRecordsChanged(context.Background(), msg); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("open circuit: err = %v, want ErrCircuitOpen", err)
	}
}

func TestCloseWithoutConnection(t *testing.T) {
	if err := (&Client{}).Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}
