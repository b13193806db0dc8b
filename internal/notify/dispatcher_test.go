package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type tokenMap map[int64]string

func (m tokenMap) GetFCMToken(userID int64) (string, error) {
	if userID < 0 {
		return "", errors.New("lookup failed")
	}
	return m[userID], nil
}

type failingSender struct{}

func (failingSender) SendMulticast(context.Context, []string, Notification) ([]Result, error) {
	return nil, errors.New("provider unavailable")
}

func TestDeliverResolvesTokens(t *testing.T) {
	sender := &RecordingSender{Fail: map[string]error{"tok3": errors.New("unregistered")}}
	d := NewDispatcher(sender, tokenMap{1: "tok1", 2: "", 3: "tok3", 4: "tok1"}, time.Second)

	summary := d.Deliver(context.Background(), []int64{1, 2, -1, 3, 4}, Notification{Title: "hi"})

	require.Equal(t, Summary{Tokens: 2, Succeeded: 1, Failed: 1}, summary)
	calls := sender.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, []string{"tok1", "tok3"}, calls[0].Tokens)
}

func TestDeliverWithoutTokensSendsNothing(t *testing.T) {
	sender := &RecordingSender{}
	d := NewDispatcher(sender, tokenMap{1: ""}, time.Second)

	summary := d.Deliver(context.Background(), []int64{1}, Notification{Title: "hi"})
	require.Zero(t, summary.Tokens)
	require.Empty(t, sender.Calls())
}

func TestDeliverAbsorbsSenderFailure(t *testing.T) {
	d := NewDispatcher(failingSender{}, tokenMap{1: "tok1"}, time.Second)
	summary := d.Deliver(context.Background(), []int64{1}, Notification{Title: "hi"})
	require.Equal(t, 1, summary.Failed)
}

func TestDispatchIsAsyncAndDrainable(t *testing.T) {
	sender := &RecordingSender{}
	d := NewDispatcher(sender, tokenMap{1: "tok1", 2: "tok2"}, time.Second)

	d.Dispatch([]int64{1}, Notification{Title: "a"})
	d.Dispatch([]int64{2}, Notification{Title: "b"})
	d.Dispatch(nil, Notification{Title: "nobody"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Shutdown(ctx))
	require.Len(t, sender.Calls(), 2)
}
