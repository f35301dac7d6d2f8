package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/mojify/internal/fsm"
	"github.com/rbright/mojify/internal/ipc"
	"github.com/rbright/mojify/internal/keyboard"
	"github.com/rbright/mojify/internal/mapping"
	"github.com/rbright/mojify/internal/trigger"
	"github.com/stretchr/testify/require"
)

type sliceSource struct {
	events []keyboard.Event
	err    error
	// block makes Next wait for ctx once events are exhausted.
	block bool
}

func (s *sliceSource) Next(ctx context.Context) (keyboard.Event, error) {
	if len(s.events) > 0 {
		ev := s.events[0]
		s.events = s.events[1:]
		return ev, nil
	}
	if s.err != nil {
		return keyboard.Event{}, s.err
	}
	if s.block {
		<-ctx.Done()
		return keyboard.Event{}, ctx.Err()
	}
	return keyboard.Event{}, keyboard.ErrClosed
}

func (s *sliceSource) Close() error { return nil }

func typed(text string) []keyboard.Event {
	events := make([]keyboard.Event, 0, len(text)*2)
	for _, r := range text {
		events = append(events,
			keyboard.Event{Kind: keyboard.KindCharacter, Rune: r, Pressed: true},
			keyboard.Event{Kind: keyboard.KindCharacter, Rune: r, Pressed: false},
		)
	}
	return events
}

func escape() []keyboard.Event {
	return []keyboard.Event{
		{Kind: keyboard.KindEscape, Pressed: true},
		{Kind: keyboard.KindEscape, Pressed: false},
	}
}

func backspace() keyboard.Event {
	return keyboard.Event{Kind: keyboard.KindBackspace, Pressed: true}
}

type fakeIndicator struct {
	startCues atomic.Int32
	firedCues atomic.Int32
	stopCues  atomic.Int32
	errors    atomic.Int32

	mu      sync.Mutex
	pasted  []string
	details []string
}

func (f *fakeIndicator) CueStart(context.Context) { f.startCues.Add(1) }
func (f *fakeIndicator) CueStop(context.Context)  { f.stopCues.Add(1) }

func (f *fakeIndicator) CueFired(_ context.Context, key, path string) {
	f.firedCues.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pasted = append(f.pasted, key+"="+path)
}

func (f *fakeIndicator) ShowError(_ context.Context, _, detail string) {
	f.errors.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.details = append(f.details, detail)
}

type recordingReplacer struct {
	mu     sync.Mutex
	fired  []trigger.Fired
	states []fsm.State
	ctrl   *Controller
	err    error
}

func (r *recordingReplacer) Replace(_ context.Context, fired trigger.Fired) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, fired)
	if r.ctrl != nil {
		r.states = append(r.states, r.ctrl.State())
	}
	return r.err
}

func newEngine(pairs ...string) *trigger.Engine {
	table := mapping.NewTable()
	for i := 0; i+1 < len(pairs); i += 2 {
		table.Set(pairs[i], pairs[i+1])
	}
	return trigger.NewEngine(table, nil)
}

func TestRunFiresAndStopsOnEscapeRelease(t *testing.T) {
	ind := &fakeIndicator{}
	replacer := &recordingReplacer{}
	ctrl := NewController(nil, newEngine(":LOL:", "/e/lol.gif"), replacer, ind, Options{})
	replacer.ctrl = ctrl

	events := typed("lol is funny :lol:")
	events = append(events, escape()...)
	events = append(events, typed(":lol:")...)

	result := ctrl.Run(context.Background(), &sliceSource{events: events})

	require.NoError(t, result.Err)
	require.Equal(t, StopEscape, result.Reason)
	require.Equal(t, fsm.StateStopped, result.State)
	require.Equal(t, 1, result.Fired)
	require.Equal(t, []trigger.Fired{{Trigger: ":LOL:", Path: "/e/lol.gif"}}, replacer.fired)
	require.Equal(t, []fsm.State{fsm.StateReplacing}, replacer.states)
	require.Equal(t, int32(1), ind.startCues.Load())
	require.Equal(t, int32(1), ind.firedCues.Load())
	require.Equal(t, []string{":LOL:=/e/lol.gif"}, ind.pasted)
	require.Equal(t, int32(1), ind.stopCues.Load())
	require.False(t, result.FinishedAt.Before(result.StartedAt))
}

func TestRunEscapePressAloneDoesNotStop(t *testing.T) {
	ctrl := NewController(nil, newEngine(":a:", "a.gif"), nil, nil, Options{})

	events := []keyboard.Event{{Kind: keyboard.KindEscape, Pressed: true}}
	events = append(events, typed(":a:")...)

	result := ctrl.Run(context.Background(), &sliceSource{events: events})
	require.Equal(t, StopInputClosed, result.Reason)
	require.Equal(t, 1, result.Fired)
}

func TestRunBackspaceCorrection(t *testing.T) {
	replacer := &recordingReplacer{}
	ctrl := NewController(nil, newEngine(":lol:", "lol.gif"), replacer, nil, Options{})

	events := typed(":lok")
	events = append(events, backspace())
	events = append(events, typed("l:")...)
	events = append(events, typed(":loll:")...)
	events = append(events, backspace())

	result := ctrl.Run(context.Background(), &sliceSource{events: events})
	require.Equal(t, 1, result.Fired)
	require.Len(t, replacer.fired, 1)
}

func TestRunIgnoresOtherKeys(t *testing.T) {
	replacer := &recordingReplacer{}
	ctrl := NewController(nil, newEngine(":a:", "a.gif"), replacer, nil, Options{})

	events := []keyboard.Event{
		{Kind: keyboard.KindCharacter, Rune: ':', Pressed: true},
		{Kind: keyboard.KindOther, Pressed: true},
		{Kind: keyboard.KindCharacter, Rune: 'a', Pressed: true},
		{Kind: keyboard.KindOther, Pressed: false},
		{Kind: keyboard.KindCharacter, Rune: ':', Pressed: true},
	}
	result := ctrl.Run(context.Background(), &sliceSource{events: events})
	require.Equal(t, 1, result.Fired)
}

func TestRunReplacementErrorKeepsListening(t *testing.T) {
	ind := &fakeIndicator{}
	replacer := &recordingReplacer{err: errors.New("clipboard helper failed")}
	ctrl := NewController(nil, newEngine(":a:", "a.gif"), replacer, ind, Options{})

	events := typed(":a: :a:")
	events = append(events, escape()...)

	result := ctrl.Run(context.Background(), &sliceSource{events: events})
	require.NoError(t, result.Err)
	require.Equal(t, StopEscape, result.Reason)
	require.Equal(t, 2, result.Fired)
	require.Equal(t, int32(2), ind.errors.Load())
	require.Equal(t, []string{"clipboard helper failed", "clipboard helper failed"}, ind.details)
	require.Equal(t, int32(0), ind.firedCues.Load())
}

func TestRunContextCancelled(t *testing.T) {
	ind := &fakeIndicator{}
	ctrl := NewController(nil, newEngine(":a:", "a.gif"), nil, ind, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(ctx, &sliceSource{block: true})
	}()

	waitForState(t, ctrl, fsm.StateListening)
	cancel()

	result := <-resultCh
	require.NoError(t, result.Err)
	require.Equal(t, StopCancelled, result.Reason)
	require.Equal(t, fsm.StateStopped, result.State)
	require.Equal(t, int32(1), ind.stopCues.Load())
}

func TestRunSourceFailure(t *testing.T) {
	ind := &fakeIndicator{}
	ctrl := NewController(nil, newEngine(":a:", "a.gif"), nil, ind, Options{})

	result := ctrl.Run(context.Background(), &sliceSource{err: errors.New("device unplugged")})
	require.Error(t, result.Err)
	require.Contains(t, result.Err.Error(), "device unplugged")
	require.Equal(t, StopFailed, result.Reason)
	require.Equal(t, fsm.StateError, result.State)
	require.Equal(t, int32(1), ind.errors.Load())
}

func TestRunTwiceIsRejected(t *testing.T) {
	ctrl := NewController(nil, nil, nil, nil, Options{})
	first := ctrl.Run(context.Background(), &sliceSource{})
	require.Equal(t, StopInputClosed, first.Reason)

	second := ctrl.Run(context.Background(), &sliceSource{})
	require.Error(t, second.Err)
	require.Contains(t, second.Err.Error(), "invalid transition")
}

func TestHandleStatusAndUnknownCommand(t *testing.T) {
	ctrl := NewController(nil, newEngine(":a:", "a.gif", ":bb:", "b.gif"), nil, nil, Options{
		MappingFile: "/tmp/emote_mapping.json",
		SourceName:  "terminal",
	})

	status := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandStatus})
	require.True(t, status.OK)
	require.Equal(t, string(fsm.StateIdle), status.State)
	require.Equal(t, 2, status.Triggers)
	require.Equal(t, 14, status.Capacity)
	require.Equal(t, "/tmp/emote_mapping.json", status.MappingFile)
	require.Equal(t, "terminal", status.Source)
	require.Empty(t, status.Uptime)
	require.Empty(t, status.LastTrigger)

	unknown := ctrl.Handle(context.Background(), ipc.Request{Command: "stop"})
	require.False(t, unknown.OK)
	require.Contains(t, unknown.Error, "unknown command")
}

func TestHandleStatusWhileListening(t *testing.T) {
	ctrl := NewController(nil, newEngine(":a:", "a.gif"), nil, nil, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(ctx, &sliceSource{events: typed(":a:"), block: true})
	}()

	require.Eventually(t, func() bool {
		return ctrl.Fired() == 1 && ctrl.State() == fsm.StateListening
	}, time.Second, 5*time.Millisecond)
	status := ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandStatus})
	require.Equal(t, string(fsm.StateListening), status.State)
	require.Equal(t, 1, status.Fired)
	require.Equal(t, ":a:", status.LastTrigger)
	require.NotEmpty(t, status.Uptime)

	cancel()
	<-resultCh
}

func waitForState(t *testing.T, ctrl *Controller, want fsm.State) {
	t.Helper()
	require.Eventually(t, func() bool { return ctrl.State() == want }, time.Second, 5*time.Millisecond)
}
