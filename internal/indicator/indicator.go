// Package indicator handles listener notifications and audio cue playback.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/mojify/internal/config"
	"github.com/rbright/mojify/internal/hypr"
)

const (
	startTimeoutMS = 1500
	firedTimeoutMS = 900
	stopTimeoutMS  = 1200
)

type level int

const (
	levelInfo level = iota
	levelOK
	levelError
)

// hyprIcon maps to hyprctl notify icon ids.
func (l level) hyprIcon() int {
	switch l {
	case levelOK:
		return 5
	case levelError:
		return 3
	default:
		return 1
	}
}

func (l level) desktopIcon() string {
	switch l {
	case levelOK:
		return "face-smile"
	case levelError:
		return "dialog-error"
	default:
		return "input-keyboard"
	}
}

// urgency follows the freedesktop byte hint: 1 normal, 2 critical.
func (l level) urgency() int {
	if l == levelError {
		return 2
	}
	return 1
}

// note is one notification as both backends render it.
type note struct {
	level     level
	color     string
	timeoutMS int
	summary   string
	body      string
	image     string
}

// hyprText flattens the note to hyprctl's single line.
func (n note) hyprText() string {
	if n.body == "" {
		return n.summary
	}
	return n.summary + ": " + n.body
}

// Notifier routes notifications via Hyprland or desktop DBus and plays synth cues.
type Notifier struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages
	play     func(context.Context, cue) error

	mu                    sync.Mutex
	desktopNotificationID uint32
	soundMu               sync.Mutex
	cues                  sync.WaitGroup
}

// New creates an indicator from config.
func New(cfg config.IndicatorConfig, logger *slog.Logger) *Notifier {
	return &Notifier{
		cfg:      cfg,
		logger:   logger,
		messages: defaultMessages,
		play:     emitCue,
	}
}

// CueStart signals that the listener is active.
func (n *Notifier) CueStart(ctx context.Context) {
	n.queueCue(ctx, startCue)
	n.show(ctx, note{level: levelInfo, color: "rgb(89b4fa)", timeoutMS: startTimeoutMS, summary: n.messages.listening})
}

// CueFired acknowledges one completed replacement of key by the file at path.
func (n *Notifier) CueFired(ctx context.Context, key, path string) {
	n.queueCue(ctx, firedCue(key))
	n.show(ctx, note{
		level:     levelOK,
		color:     "rgb(a6e3a1)",
		timeoutMS: firedTimeoutMS,
		summary:   n.messages.pastedFor(key),
		image:     path,
	})
}

// CueStop signals listener shutdown and waits briefly for queued cues.
func (n *Notifier) CueStop(ctx context.Context) {
	n.queueCue(ctx, stopCue)
	n.show(ctx, note{level: levelInfo, color: "rgb(a6adc8)", timeoutMS: stopTimeoutMS, summary: n.messages.stopped})
	n.waitCues(time.Second)
}

// ShowError displays a failure; detail carries the underlying diagnostic.
func (n *Notifier) ShowError(ctx context.Context, summary, detail string) {
	if summary == "" {
		summary = n.messages.failed
	}
	timeout := n.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = 1200
	}
	n.show(ctx, note{
		level:     levelError,
		color:     "rgb(f38ba8)",
		timeoutMS: timeout,
		summary:   summary,
		body:      strings.TrimSpace(detail),
	})
}

// Hide dismisses the active notification.
func (n *Notifier) Hide(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, n.dismiss)
}

func (n *Notifier) show(ctx context.Context, msg note) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		if n.desktopBackend() {
			return n.notifyDesktop(ctx, msg)
		}
		return hypr.Notify(ctx, msg.level.hyprIcon(), msg.timeoutMS, msg.color, msg.hyprText())
	})
}

// dismiss removes indicator output from the configured backend.
func (n *Notifier) dismiss(ctx context.Context) error {
	if n.desktopBackend() {
		return n.dismissDesktop(ctx)
	}
	return hypr.DismissNotify(ctx)
}

func (n *Notifier) desktopBackend() bool {
	return strings.EqualFold(strings.TrimSpace(n.cfg.Backend), config.IndicatorBackendDesktop)
}

// notifyDesktop sends a replaceable desktop notification and stores its ID.
func (n *Notifier) notifyDesktop(ctx context.Context, msg note) error {
	n.mu.Lock()
	replaceID := n.desktopNotificationID
	n.mu.Unlock()

	appName := strings.TrimSpace(n.cfg.DesktopAppName)
	if appName == "" {
		appName = "mojify"
	}

	id, err := desktopNotify(ctx, appName, replaceID, msg)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.desktopNotificationID = id
	n.mu.Unlock()
	return nil
}

// dismissDesktop closes the current desktop notification ID when present.
func (n *Notifier) dismissDesktop(ctx context.Context) error {
	n.mu.Lock()
	id := n.desktopNotificationID
	n.desktopNotificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes an indicator operation with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

// queueCue serializes cue playback and emits audio asynchronously.
func (n *Notifier) queueCue(ctx context.Context, c cue) {
	if !n.cfg.SoundEnable {
		return
	}
	cueCtx := context.WithoutCancel(ctx)
	n.cues.Add(1)
	go func() {
		defer n.cues.Done()
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		if err := n.play(cueCtx, c); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

// waitCues blocks until queued cues finish or limit elapses.
func (n *Notifier) waitCues(limit time.Duration) {
	done := make(chan struct{})
	go func() {
		n.cues.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(limit):
	}
}

// log emits debug-only indicator failures to the runtime logger.
func (n *Notifier) log(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
