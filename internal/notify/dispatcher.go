package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/samber/lo"
)

// TokenLookup resolves a user to their registered device token ("" when none)
type TokenLookup interface {
	GetFCMToken(userID int64) (string, error)
}

// Summary counts the outcome of one fan-out
type Summary struct {
	Tokens    int
	Succeeded int
	Failed    int
}

// Dispatcher fans notifications out to users in the background.
// Delivery problems are logged and never reach the caller.
type Dispatcher struct {
	sender  Sender
	tokens  TokenLookup
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher that gives each fan-out up to timeout to finish
func NewDispatcher(sender Sender, tokens TokenLookup, timeout time.Duration) *Dispatcher {
	return &Dispatcher{sender: sender, tokens: tokens, timeout: timeout}
}

// Dispatch delivers n to the recipients asynchronously, at most once
func (d *Dispatcher) Dispatch(recipients []int64, n Notification) {
	if len(recipients) == 0 {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		d.Deliver(ctx, recipients, n)
	}()
}

// Deliver resolves each recipient's device token and sends n in one multicast call
func (d *Dispatcher) Deliver(ctx context.Context, recipients []int64, n Notification) Summary {
	var tokens []string
	for _, userID := range recipients {
		token, err := d.tokens.GetFCMToken(userID)
		if err != nil {
			log.Printf("Failed to look up device token for user %d: %v", userID, err)
			continue
		}
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	tokens = lo.Uniq(tokens)

	summary := Summary{Tokens: len(tokens)}
	if len(tokens) == 0 {
		return summary
	}

	results, err := d.sender.SendMulticast(ctx, tokens, n)
	if err != nil {
		log.Printf("Failed to send notification %q: %v", n.Title, err)
		summary.Failed = len(tokens)
		return summary
	}

	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
			log.Printf("Failure sending to %s: %v", r.Token, r.Err)
			continue
		}
		summary.Succeeded++
	}
	log.Printf("Notification %q: %d sent, %d failed", n.Title, summary.Succeeded, summary.Failed)
	return summary
}

// Wait blocks until every dispatched fan-out has finished
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown waits for in-flight fan-outs or gives up when ctx is done
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
