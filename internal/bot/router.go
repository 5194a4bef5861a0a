package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"todobot/internal/commands"
	"todobot/internal/intent"
	"todobot/internal/logging"
	"todobot/internal/store"
	"todobot/internal/userlock"
)

const (
	// DefaultLockTimeout bounds how long a completion waits for an earlier
	// completion by the same user.
	DefaultLockTimeout = 10 * time.Second

	// DefaultLocation is the time zone used to decide what "today" is.
	DefaultLocation = "Asia/Tokyo"
)

// Recorder receives per-event metrics. *instrumentation.Metrics satisfies it.
type Recorder interface {
	RecordEvent(ctx context.Context, eventType, intent, status string, duration time.Duration)
	RecordReply(ctx context.Context, status string)
}

// Router classifies message text, runs the matching command against the
// task store and replies. It keeps no state between events.
type Router struct {
	store       store.TaskStore
	replier     Replier
	registry    *commands.Registry
	locker      userlock.Locker
	lockTimeout time.Duration
	logger      *slog.Logger
	recorder    Recorder
	now         func() time.Time
	location    *time.Location
}

// Option configures a Router.
type Option func(*Router)

// WithRegistry replaces commands.DefaultRegistry.
func WithRegistry(r *commands.Registry) Option {
	return func(rt *Router) { rt.registry = r }
}

// WithLocker sets the per-user lock used around completions.
func WithLocker(l userlock.Locker) Option {
	return func(rt *Router) { rt.locker = l }
}

// WithLockTimeout sets how long a completion waits for the user lock.
func WithLockTimeout(d time.Duration) Option {
	return func(rt *Router) { rt.lockTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Router) { rt.logger = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec Recorder) Option {
	return func(rt *Router) { rt.recorder = rec }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(rt *Router) { rt.now = now }
}

// WithLocation sets the time zone that decides the current date.
func WithLocation(loc *time.Location) Option {
	return func(rt *Router) { rt.location = loc }
}

// NewRouter creates a router over st that answers through replier.
func NewRouter(st store.TaskStore, replier Replier, opts ...Option) *Router {
	r := &Router{
		store:       st,
		replier:     replier,
		registry:    commands.DefaultRegistry,
		locker:      userlock.NewMemory(),
		lockTimeout: DefaultLockTimeout,
		logger:      slog.Default(),
		now:         time.Now,
		location:    time.UTC,
	}
	if loc, err := time.LoadLocation(DefaultLocation); err == nil {
		r.location = loc
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleDelivery processes the events of one delivery in order. Each event
// is finished, including its reply, before the next one starts. A failing
// event never stops the rest.
func (r *Router) HandleDelivery(ctx context.Context, events []Event) {
	for _, ev := range events {
		if err := r.HandleEvent(ctx, ev); err != nil {
			r.logger.Error("event failed",
				slog.String(logging.KeyEventType, string(ev.Type)),
				logging.UserHash(ev.UserID),
				logging.Err(err),
			)
		}
	}
}

// HandleEvent handles one event. Text messages are classified and answered,
// follow events get the welcome text, everything else is ignored.
// The returned error is a reply delivery failure; command failures have
// already been turned into an apology reply and logged.
func (r *Router) HandleEvent(ctx context.Context, ev Event) error {
	start := time.Now()

	var (
		kind  string
		reply string
	)
	status := logging.StatusSuccess

	switch {
	case ev.Type == EventFollow:
		kind = "follow"
		reply = commands.WelcomeText

	case ev.Type == EventMessage && ev.MessageType == MessageTypeText:
		if ev.UserID == "" {
			r.logger.Warn("message without user id ignored")
			return nil
		}
		var in intent.Intent
		var err error
		in, reply, err = r.respond(ctx, ev.UserID, ev.Text)
		kind = in.Kind().String()
		if err != nil {
			status = logging.StatusError
		}

	default:
		r.logger.Debug("event ignored",
			slog.String(logging.KeyEventType, string(ev.Type)),
			slog.String("message_type", ev.MessageType),
		)
		return nil
	}

	err := r.replier.Reply(ctx, ev.ReplyToken, reply)
	replyStatus := logging.StatusSuccess
	if err != nil {
		replyStatus = logging.StatusError
		status = logging.StatusError
	}

	if r.recorder != nil {
		r.recorder.RecordReply(ctx, replyStatus)
		r.recorder.RecordEvent(ctx, string(ev.Type), kind, status, time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("reply: %w", err)
	}
	return nil
}

// Respond classifies text from userID, runs the command and returns the
// reply. Command failures are logged and replaced by an apology, so the
// reply is never empty.
func (r *Router) Respond(ctx context.Context, userID, text string) string {
	_, reply, _ := r.respond(ctx, userID, text)
	return reply
}

func (r *Router) respond(ctx context.Context, userID, text string) (intent.Intent, string, error) {
	in := intent.Classify(text)
	logger := r.logger.With(logging.Intent(in.Kind().String()), logging.UserHash(userID))

	cmd, ok := r.registry.Find(in.Kind())
	if !ok {
		err := fmt.Errorf("no command registered for %s", in.Kind())
		logger.Error("command lookup failed", logging.Err(err))
		return in, ApologyGeneric, err
	}

	reply, err := r.run(ctx, cmd, userID, in)
	if err != nil {
		logger.Error("command failed",
			slog.String(logging.KeyOperation, cmd.Name()),
			slog.String("store_error_kind", string(store.KindOf(err))),
			logging.Err(err),
		)
		return in, apologyFor(err), err
	}

	logger.Debug("command done", slog.String(logging.KeyOperation, cmd.Name()))
	return in, reply, nil
}

func (r *Router) run(ctx context.Context, cmd commands.Command, userID string, in intent.Intent) (string, error) {
	env := &commands.Env{
		Store:  r.store,
		UserID: userID,
		Today:  r.today(),
	}

	// Deletes are index based; two completions by the same user must not
	// read and delete interleaved.
	if in.Kind() == intent.KindCompleteTask {
		lockCtx, cancel := context.WithTimeout(ctx, r.lockTimeout)
		unlock, err := r.locker.Lock(lockCtx, userID)
		cancel()
		if err != nil {
			return "", fmt.Errorf("lock user: %w", err)
		}
		defer unlock()
	}

	return cmd.Run(ctx, env, in)
}

// today returns midnight of the current date in the router's location.
func (r *Router) today() time.Time {
	now := r.now().In(r.location)
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, r.location)
}
