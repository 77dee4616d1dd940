package calling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeLine struct {
	events       chan LineEvent
	registerErr  error
	silent       bool
	deregistered bool
}

func newFakeLine() *fakeLine {
	return &fakeLine{events: make(chan LineEvent, 8)}
}

func (l *fakeLine) Register() error {
	if l.registerErr != nil {
		return l.registerErr
	}
	if !l.silent {
		l.events <- LineEvent{Type: LineRegistered, DeviceID: "dev-1"}
	}
	return nil
}

func (l *fakeLine) Deregister() error {
	l.deregistered = true
	return nil
}

func (l *fakeLine) Events() <-chan LineEvent {
	return l.events
}

type fakeCall struct {
	answered bool
	ended    bool
	muted    bool
	failWith error
}

func (c *fakeCall) Answer(stream MediaStream) error {
	if c.failWith != nil {
		return c.failWith
	}
	c.answered = true
	return nil
}

func (c *fakeCall) Mute(stream MediaStream) error {
	c.muted = !c.muted
	return nil
}

func (c *fakeCall) IsMuted() bool { return c.muted }

func (c *fakeCall) End() error {
	if c.failWith != nil {
		return c.failWith
	}
	c.ended = true
	return nil
}

type fakeStream struct{ stopped bool }

func (s *fakeStream) Stop() { s.stopped = true }

func TestRegisterBrowserMode(t *testing.T) {
	line := newFakeLine()
	svc := NewService(line, zerolog.Nop())

	if err := svc.Register(context.Background(), LoginOptionBrowser); err != nil {
		t.Fatalf("expected registration to succeed, got %v", err)
	}
	if svc.LoginOption() != LoginOptionBrowser {
		t.Fatalf("expected BROWSER, got %s", svc.LoginOption())
	}
}

func TestRegisterNonBrowserModeSkipsLine(t *testing.T) {
	line := newFakeLine()
	line.registerErr = errors.New("device unavailable")
	svc := NewService(line, zerolog.Nop())

	// Extension mode has no local media leg, so the line is never touched.
	if err := svc.Register(context.Background(), LoginOptionExtension); err != nil {
		t.Fatalf("expected extension registration to succeed, got %v", err)
	}
}

func TestRegisterLineError(t *testing.T) {
	line := newFakeLine()
	line.registerErr = errors.New("device unavailable")
	svc := NewService(line, zerolog.Nop())

	if err := svc.Register(context.Background(), LoginOptionBrowser); err == nil {
		t.Fatal("expected registration error")
	}
}

func TestRegisterBrowserModeWithoutLine(t *testing.T) {
	svc := NewService(nil, zerolog.Nop())

	if err := svc.Register(context.Background(), LoginOptionBrowser); !errors.Is(err, ErrNoLine) {
		t.Fatalf("expected ErrNoLine, got %v", err)
	}
	// Deregister must not touch a missing line either.
	svc.Deregister()
}

func TestLoginOptionConcurrentWithRegister(t *testing.T) {
	svc := NewService(newFakeLine(), zerolog.Nop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			svc.LoginOption()
		}
	}()
	for i := 0; i < 1000; i++ {
		if err := svc.Register(context.Background(), LoginOptionExtension); err != nil {
			t.Fatalf("register failed: %v", err)
		}
	}
	<-done

	if svc.LoginOption() != LoginOptionExtension {
		t.Fatalf("expected EXTENSION, got %s", svc.LoginOption())
	}
}

func TestRegisterContextCancelled(t *testing.T) {
	line := newFakeLine()
	line.silent = true
	svc := NewService(line, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := svc.Register(ctx, LoginOptionBrowser); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestIncomingCallFlow(t *testing.T) {
	line := newFakeLine()
	svc := NewService(line, zerolog.Nop())

	if err := svc.Register(context.Background(), LoginOptionBrowser); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	call := &fakeCall{}
	line.events <- LineEvent{Type: LineIncomingCall, Call: call}

	select {
	case got := <-svc.Incoming():
		if got != Call(call) {
			t.Fatal("expected the injected call on the incoming channel")
		}
	case <-time.After(time.Second):
		t.Fatal("expected incoming call")
	}

	stream := &fakeStream{}
	if err := svc.AnswerCall(stream, "int-1"); err != nil {
		t.Fatalf("expected answer to succeed, got %v", err)
	}
	if !call.answered {
		t.Fatal("expected call to be answered")
	}

	if err := svc.MuteCall(stream); err != nil {
		t.Fatalf("expected mute to succeed, got %v", err)
	}
	if !svc.IsCallMuted() {
		t.Fatal("expected call to be muted")
	}

	if err := svc.DeclineCall("int-1"); err != nil {
		t.Fatalf("expected decline to succeed, got %v", err)
	}
	if !call.ended {
		t.Fatal("expected call to be ended")
	}
	if err := svc.DeclineCall("int-1"); !errors.Is(err, ErrNoActiveCall) {
		t.Fatalf("expected ErrNoActiveCall after decline, got %v", err)
	}
}

func TestCallOpsWithoutActiveCall(t *testing.T) {
	svc := NewService(newFakeLine(), zerolog.Nop())

	if err := svc.AnswerCall(&fakeStream{}, "int-1"); !errors.Is(err, ErrNoActiveCall) {
		t.Fatalf("expected ErrNoActiveCall, got %v", err)
	}
	if err := svc.MuteCall(&fakeStream{}); !errors.Is(err, ErrNoActiveCall) {
		t.Fatalf("expected ErrNoActiveCall, got %v", err)
	}
	if svc.IsCallMuted() {
		t.Fatal("expected not muted with no call")
	}
}

func TestDeregister(t *testing.T) {
	line := newFakeLine()
	svc := NewService(line, zerolog.Nop())

	if err := svc.Register(context.Background(), LoginOptionBrowser); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	svc.Deregister()
	if !line.deregistered {
		t.Fatal("expected line to be deregistered")
	}

	// Safe to call again.
	svc.Deregister()
}

func TestDeregisterNonBrowserIsNoop(t *testing.T) {
	line := newFakeLine()
	svc := NewService(line, zerolog.Nop())

	if err := svc.Register(context.Background(), LoginOptionAgentDN); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	svc.Deregister()
	if line.deregistered {
		t.Fatal("expected no line deregistration for AGENT_DN mode")
	}
}
