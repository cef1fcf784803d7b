// Package calls runs the phone conversation loop: every webhook from the
// call-control service becomes one step on a call's conversation, answered
// with the next NCCO.
package calls

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-go/vai-companion/pkg/core"
	"github.com/vango-go/vai-companion/pkg/core/conversation"
	"github.com/vango-go/vai-companion/pkg/core/providers/vonage"
	"github.com/vango-go/vai-companion/pkg/core/reply"
	"github.com/vango-go/vai-companion/pkg/core/types"
	"github.com/vango-go/vai-companion/pkg/gateway/monitor"
)

// Spoken prompts. TalkLanguage is the locale of every talk action.
const (
	TalkLanguage = "fa-IR"

	Greeting         = "سلام! به دستیار هوش مصنوعی خوش آمدید. لطفا صحبت کنید."
	OutboundGreeting = "سلام! این یک تماس از دستیار هوش مصنوعی است."
	NotHeardApology  = "متاسفم، صدای شما را نشنیدم. لطفا دوباره تلاش کنید."
	ErrorApology     = "متاسفم، خطایی رخ داد. لطفا دوباره تماس بگیرید."
	FallbackApology  = "متاسفم، خطایی رخ داد. لطفا بعدا تماس بگیرید."
)

// Webhook paths that NCCO actions point back to.
const (
	RecordingPath = "/webhooks/recording"
	InputPath     = "/webhooks/input"
)

// Transcriber turns a recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, format string) (string, error)
}

// Replier produces the assistant's next message.
type Replier interface {
	Generate(ctx context.Context, history []types.Message, userText, systemPrompt string) (string, error)
}

// CallControl is the subset of the call-control client the controller uses.
type CallControl interface {
	CreateCall(ctx context.Context, to, from string, ncco vonage.NCCO) (string, error)
	DownloadRecording(ctx context.Context, recordingURL, dir string) (string, error)
}

// Archive persists finished calls.
type Archive interface {
	Save(callID string, meta conversation.Metadata, conv types.Conversation) (string, error)
}

// Config wires a Controller.
type Config struct {
	Store       *conversation.Store
	Transcriber Transcriber
	Replier     Replier
	CallControl CallControl
	Archive     Archive

	// BaseURL is the public URL the call-control service reaches this server on.
	BaseURL string
	// FromNumber is the caller id for outbound calls.
	FromNumber string
	// Language is recorded in each call's metadata.
	Language string
	// RecordingDir holds downloaded recordings until they are transcribed.
	RecordingDir string

	Monitor monitor.Publisher
	Tracer  trace.Tracer
	Logger  *slog.Logger
	Now     func() time.Time
}

// Controller handles the call lifecycle. It is safe for concurrent use; turns
// on one call are serialized through the store.
type Controller struct {
	cfg    Config
	store  *conversation.Store
	tracer trace.Tracer
	logger *slog.Logger
	now    func() time.Time
}

var errNoSpeech = errors.New("no speech detected")

// New validates cfg and returns a controller.
func New(cfg Config) (*Controller, error) {
	if cfg.Store == nil {
		return nil, core.NewConfigurationError("calls: conversation store is required")
	}
	if cfg.Transcriber == nil || cfg.Replier == nil {
		return nil, core.NewConfigurationError("calls: transcriber and reply generator are required")
	}
	if cfg.Archive == nil {
		return nil, core.NewConfigurationError("calls: call archive is required")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Language == "" {
		cfg.Language = "fa"
	}
	c := &Controller{
		cfg:    cfg,
		store:  cfg.Store,
		tracer: cfg.Tracer,
		logger: cfg.Logger,
		now:    cfg.Now,
	}
	if c.tracer == nil {
		c.tracer = noop.NewTracerProvider().Tracer("vai-companion/calls")
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// ListenNCCO speaks text and then records the caller's next utterance.
func (c *Controller) ListenNCCO(text string) vonage.NCCO {
	return vonage.NCCO{
		vonage.NewTalk(text, TalkLanguage),
		vonage.NewRecord(c.cfg.BaseURL + RecordingPath),
	}
}

// FallbackNCCO is returned when the call-control service reports a failure.
func (c *Controller) FallbackNCCO() vonage.NCCO {
	return vonage.NCCO{vonage.NewTalk(FallbackApology, TalkLanguage)}
}

// Answer starts a conversation for an incoming call.
func (c *Controller) Answer(ctx context.Context, ev vonage.AnswerEvent) vonage.NCCO {
	id := ev.CallID()
	c.begin(id, ev.From)
	c.logger.InfoContext(ctx, "call answered", "call_uuid", id, "from", ev.From)
	c.logState(ctx, id, "listening")
	return c.ListenNCCO(Greeting)
}

// Input handles the keypress that an outbound call collects after its
// greeting and moves the call into the recording loop.
func (c *Controller) Input(ctx context.Context, ev vonage.InputEvent) vonage.NCCO {
	id := ev.CallID()
	if id == "" {
		c.logger.WarnContext(ctx, "input without call uuid")
		return c.FallbackNCCO()
	}
	if _, ok := c.store.Metadata(id); !ok {
		c.begin(id, ev.To)
	}
	c.logger.InfoContext(ctx, "call input", "call_uuid", id, "digits", ev.DTMF.Digits, "timed_out", ev.DTMF.TimedOut)
	c.logState(ctx, id, "listening")
	return c.ListenNCCO(Greeting)
}

func (c *Controller) begin(id, from string) {
	c.store.Begin(conversation.Metadata{
		SessionID: id,
		From:      from,
		CreatedAt: c.now(),
		Language:  c.cfg.Language,
	})
	c.publish(monitor.Event{Type: monitor.EventCallStarted, CallUUID: id, From: from})
}

// Recording runs one turn for a finished record action. It returns a script
// that keeps the call going, except for events with no call id.
func (c *Controller) Recording(ctx context.Context, ev vonage.RecordingEvent) vonage.NCCO {
	id := ev.CallID()
	if id == "" {
		c.logger.WarnContext(ctx, "recording without call uuid")
		return c.FallbackNCCO()
	}
	if strings.TrimSpace(ev.RecordingURL) == "" {
		c.logger.WarnContext(ctx, "recording without url", "call_uuid", id)
		return c.ListenNCCO(NotHeardApology)
	}

	ctx, span := c.tracer.Start(ctx, "calls.turn", trace.WithAttributes(attribute.String("call_uuid", id)))
	defer span.End()

	var answer string
	err := c.store.WithSession(ctx, id, func() error {
		var err error
		answer, err = c.turn(ctx, id, ev.RecordingURL)
		return err
	})
	switch {
	case errors.Is(err, errNoSpeech):
		c.logger.InfoContext(ctx, "no speech in recording", "call_uuid", id)
		c.logState(ctx, id, "listening")
		return c.ListenNCCO(NotHeardApology)
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.ErrorContext(ctx, "turn failed", "call_uuid", id, "error", err)
		c.publish(monitor.Event{Type: monitor.EventTurnFailed, CallUUID: id, Error: err.Error()})
		c.logState(ctx, id, "listening")
		return c.ListenNCCO(ErrorApology)
	}
	c.logState(ctx, id, "responding")
	return c.ListenNCCO(answer)
}

// turn must run while holding the call's session.
func (c *Controller) turn(ctx context.Context, id, recordingURL string) (string, error) {
	c.logState(ctx, id, "processing")

	userText, err := c.transcribeRecording(ctx, id, recordingURL)
	if err != nil {
		return "", err
	}
	c.logger.InfoContext(ctx, "caller said", "call_uuid", id, "text", userText)

	genCtx, span := c.tracer.Start(ctx, "calls.generate")
	history := c.store.GetOrCreate(id)
	answer, err := c.cfg.Replier.Generate(genCtx, history, userText, reply.PhonePersona)
	if err != nil {
		span.RecordError(err)
		span.End()
		return "", err
	}
	span.End()

	c.store.Append(id, types.User(userText), types.Assistant(answer))
	c.logger.InfoContext(ctx, "assistant replied", "call_uuid", id, "text", answer)
	c.publish(monitor.Event{Type: monitor.EventTurn, CallUUID: id, UserText: userText, AssistantText: answer})
	return answer, nil
}

func (c *Controller) transcribeRecording(ctx context.Context, id, recordingURL string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "calls.transcribe")
	defer span.End()

	if c.cfg.CallControl == nil {
		return "", core.NewConfigurationError("calls: no call-control client for recording download")
	}
	path, err := c.cfg.CallControl.DownloadRecording(ctx, recordingURL, c.cfg.RecordingDir)
	if err != nil {
		return "", core.NewCallControlError(fmt.Errorf("download recording: %w", err))
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.logger.WarnContext(ctx, "remove recording", "call_uuid", id, "path", path, "error", err)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return "", core.NewTranscriptionError("", fmt.Errorf("open recording: %w", err))
	}
	defer f.Close()

	text, err := c.cfg.Transcriber.Transcribe(ctx, f, "mp3")
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errNoSpeech
	}
	return text, nil
}

// Event handles a call status update. A terminal status archives the call
// and forgets it; the returned path is empty when nothing was saved.
func (c *Controller) Event(ctx context.Context, ev vonage.StatusEvent) (string, error) {
	id := ev.CallID()
	c.logger.InfoContext(ctx, "call event", "call_uuid", id, "status", ev.Status)
	if !vonage.IsTerminal(ev.Status) {
		return "", nil
	}
	var saved string
	found, err := c.store.WithExistingSession(ctx, id, func() error {
		conv, meta, _ := c.store.Snapshot(id)
		path, err := c.cfg.Archive.Save(id, meta, conv)
		if err != nil {
			return err
		}
		c.store.Remove(id)
		saved = path
		return nil
	})
	if !found && err == nil {
		// Unknown call, or another terminal event archived it first.
		c.logger.InfoContext(ctx, "terminal status for unknown call", "call_uuid", id, "status", ev.Status)
		return "", nil
	}
	if err != nil {
		c.logger.ErrorContext(ctx, "save call conversation", "call_uuid", id, "error", err)
		return "", err
	}
	if saved != "" {
		c.logger.InfoContext(ctx, "call conversation saved", "call_uuid", id, "path", saved)
		c.publish(monitor.Event{Type: monitor.EventCallEnded, CallUUID: id, Status: ev.Status, SavedTo: saved})
		c.logState(ctx, id, "terminated")
	}
	return saved, nil
}

// MakeCall dials to and returns the new call's uuid.
func (c *Controller) MakeCall(ctx context.Context, to string) (string, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return "", core.NewInvalidRequestErrorWithParam("to_number is required", "to_number")
	}
	if c.cfg.CallControl == nil {
		return "", core.NewConfigurationError("calls: call-control client is not configured")
	}
	ncco := vonage.NCCO{
		vonage.NewTalk(OutboundGreeting, TalkLanguage),
		vonage.NewDigitInput(c.cfg.BaseURL + InputPath),
	}
	uuid, err := c.cfg.CallControl.CreateCall(ctx, to, c.cfg.FromNumber, ncco)
	if err != nil {
		return "", core.NewCallControlError(err)
	}
	c.logger.InfoContext(ctx, "outbound call placed", "call_uuid", uuid, "to", to)
	return uuid, nil
}

func (c *Controller) logState(ctx context.Context, id, state string) {
	c.logger.DebugContext(ctx, "call state", "call_uuid", id, "state", state)
}

func (c *Controller) publish(e monitor.Event) {
	if c.cfg.Monitor == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = c.now().UTC()
	}
	c.cfg.Monitor.Publish(e)
}
