package notify

import (
	"context"
	"sync"
)

// Call is one multicast recorded by RecordingSender
type Call struct {
	Tokens       []string
	Notification Notification
}

// RecordingSender keeps every multicast in memory. Tokens listed in Fail get an error result.
type RecordingSender struct {
	mu    sync.Mutex
	calls []Call
	Fail  map[string]error
}

// SendMulticast records the call
func (s *RecordingSender) SendMulticast(_ context.Context, tokens []string, n Notification) ([]Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Tokens: append([]string(nil), tokens...), Notification: n})

	results := make([]Result, len(tokens))
	for i, tok := range tokens {
		results[i] = Result{Token: tok, Err: s.Fail[tok]}
	}
	return results, nil
}

// Calls returns a copy of the recorded multicasts
func (s *RecordingSender) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}
