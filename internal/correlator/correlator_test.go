package correlator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/centrivo/agentcc/internal/event"
)

type fakeRequester struct {
	mu   sync.Mutex
	reqs []Request
	err  error

	// sent signals after each Do call so tests know the request is pending.
	sent chan struct{}
}

func newFakeRequester() *fakeRequester {
	return &fakeRequester{sent: make(chan struct{}, 8)}
}

func (f *fakeRequester) Do(ctx context.Context, req Request) error {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	err := f.err
	f.mu.Unlock()
	f.sent <- struct{}{}
	return err
}

func (f *fakeRequester) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

func notification(kind event.Kind, interactionID string) *event.Message {
	raw, _ := json.Marshal(map[string]any{
		"type":          string(kind),
		"interactionId": interactionID,
	})
	return &event.Message{Kind: kind, InteractionID: interactionID, Raw: raw}
}

func failureNotification(kind event.Kind, interactionID, reason string) *event.Message {
	raw, _ := json.Marshal(map[string]any{
		"type":          string(kind),
		"interactionId": interactionID,
		"reason":        reason,
	})
	return &event.Message{Kind: kind, InteractionID: interactionID, Raw: raw}
}

func acceptDef(interactionID string) Def {
	return Def{
		Op:            "task.accept",
		InteractionID: interactionID,
		Method:        "POST",
		Path:          "/v1/tasks/" + interactionID + "/accept",
		Success:       []event.Kind{event.KindAgentContactAssigned},
		Failure:       []event.Kind{event.KindAgentContactAssignFailed},
	}
}

func TestSendResolvedBySuccessNotification(t *testing.T) {
	req := newFakeRequester()
	c := New(req, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), acceptDef("int-1"))
		done <- err
	}()

	<-req.sent
	c.HandleMessage(notification(event.KindAgentContactAssigned, "int-1"))

	if err := <-done; err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestSendRejectedByFailureNotification(t *testing.T) {
	req := newFakeRequester()
	c := New(req, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), acceptDef("int-1"))
		done <- err
	}()

	<-req.sent
	c.HandleMessage(failureNotification(event.KindAgentContactAssignFailed, "int-1", "agent busy"))

	err := <-done
	var opErr *OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OpError, got %v", err)
	}
	if opErr.Kind != KindServerRejected {
		t.Fatalf("expected server_rejected, got %s", opErr.Kind)
	}
	if opErr.Reason != "agent busy" {
		t.Fatalf("expected reason from payload, got %q", opErr.Reason)
	}
}

func TestSendTransportError(t *testing.T) {
	req := newFakeRequester()
	req.err = errors.New("connection refused")
	c := New(req, zerolog.Nop())

	_, err := c.Send(context.Background(), acceptDef("int-1"))

	var opErr *OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OpError, got %v", err)
	}
	if opErr.Kind != KindTransport {
		t.Fatalf("expected transport, got %s", opErr.Kind)
	}
}

func TestSendTimeout(t *testing.T) {
	req := newFakeRequester()
	c := New(req, zerolog.Nop())

	def := acceptDef("int-1")
	def.Timeout = 20 * time.Millisecond

	_, err := c.Send(context.Background(), def)

	var opErr *OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OpError, got %v", err)
	}
	if opErr.Kind != KindTimeout {
		t.Fatalf("expected timeout, got %s", opErr.Kind)
	}
}

func TestSendNoTimeoutStaysPending(t *testing.T) {
	req := newFakeRequester()
	c := New(req, zerolog.Nop())

	def := Def{
		Op:            "task.consult",
		InteractionID: "int-1",
		Method:        "POST",
		Path:          "/v1/tasks/int-1/consult",
		Success:       []event.Kind{event.KindAgentConsultCreated},
		Failure:       []event.Kind{event.KindAgentCtqFailed},
		Cancel:        event.KindAgentCtqCancelled,
		Timeout:       NoTimeout,
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), def)
		done <- err
	}()

	<-req.sent

	// Well past the default window nothing should have settled.
	select {
	case err := <-done:
		t.Fatalf("expected request to stay pending, settled with %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	// The cancel event settles the consult successfully.
	c.HandleMessage(notification(event.KindAgentCtqCancelled, "int-1"))
	if err := <-done; err != nil {
		t.Fatalf("expected cancel to resolve the request, got %v", err)
	}
}

func TestSendDuplicateRejectedEagerly(t *testing.T) {
	req := newFakeRequester()
	c := New(req, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), acceptDef("int-1"))
		done <- err
	}()
	<-req.sent

	_, err := c.Send(context.Background(), acceptDef("int-1"))
	if !errors.Is(err, ErrRequestPending) {
		t.Fatalf("expected ErrRequestPending, got %v", err)
	}
	if req.count() != 1 {
		t.Fatalf("expected duplicate to be rejected before hitting transport, got %d requests", req.count())
	}

	// A different interaction id is not a duplicate.
	go func() {
		_, err := c.Send(context.Background(), acceptDef("int-2"))
		done <- err
	}()
	<-req.sent

	c.HandleMessage(notification(event.KindAgentContactAssigned, "int-1"))
	c.HandleMessage(notification(event.KindAgentContactAssigned, "int-2"))
	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Fatalf("expected both requests to settle, got %v", err)
		}
	}
}

func TestSendSettlesExactlyOnce(t *testing.T) {
	req := newFakeRequester()
	c := New(req, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), acceptDef("int-1"))
		done <- err
	}()
	<-req.sent

	// Success then a late failure for the same interaction; the first one wins
	// and the second is ignored.
	c.HandleMessage(notification(event.KindAgentContactAssigned, "int-1"))
	c.HandleMessage(failureNotification(event.KindAgentContactAssignFailed, "int-1", "late"))

	if err := <-done; err != nil {
		t.Fatalf("expected first notification to win, got %v", err)
	}
}

func TestSendContextCancelled(t *testing.T) {
	req := newFakeRequester()
	c := New(req, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Send(ctx, acceptDef("int-1"))
		done <- err
	}()
	<-req.sent
	cancel()

	err := <-done
	var opErr *OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OpError, got %v", err)
	}
	if opErr.Kind != KindTransport {
		t.Fatalf("expected transport, got %s", opErr.Kind)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected wrapped context.Canceled, got %v", err)
	}
}

func TestFailureWithoutInteractionIDMatches(t *testing.T) {
	req := newFakeRequester()
	c := New(req, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), acceptDef("int-1"))
		done <- err
	}()
	<-req.sent

	// Failure notifications often omit the interaction id.
	c.HandleMessage(failureNotification(event.KindAgentContactAssignFailed, "", "rejected"))

	err := <-done
	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Kind != KindServerRejected {
		t.Fatalf("expected server_rejected, got %v", err)
	}
}

func TestSuccessForOtherInteractionIgnored(t *testing.T) {
	req := newFakeRequester()
	c := New(req, zerolog.Nop())

	def := acceptDef("int-1")
	def.Timeout = 50 * time.Millisecond

	done := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), def)
		done <- err
	}()
	<-req.sent

	// Success scoped to a different interaction must not settle this request.
	c.HandleMessage(notification(event.KindAgentContactAssigned, "int-other"))

	err := <-done
	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Kind != KindTimeout {
		t.Fatalf("expected timeout after ignoring unrelated success, got %v", err)
	}
}
