package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/url"
	"time"

	"github.com/inconshreveable/log15/v3"
	"github.com/slack-go/slack"

	"MoodLab/db"
	"MoodLab/internal/messages"
	"MoodLab/internal/telemetry"
)

// Dispatcher routes slash commands and interaction callbacks. It keeps no
// state between calls; the repository is its only memory.
type Dispatcher struct {
	verificationToken string
	repo              *db.Repository
	responder         Responder
	observer          telemetry.Observer
	logger            log15.Logger
	now               func() time.Time
}

type DispatcherOption func(*Dispatcher)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(verificationToken string, repo *db.Repository, responder Responder,
	observer telemetry.Observer, logger log15.Logger, opts ...DispatcherOption) *Dispatcher {
	if observer == nil {
		observer = telemetry.Nop()
	}
	d := &Dispatcher{
		verificationToken: verificationToken,
		repo:              repo,
		responder:         responder,
		observer:          observer,
		logger:            logger.New("module", "dispatcher"),
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch handles one form-encoded request body. A "payload" field marks an
// interaction callback; anything else is a slash command.
func (d *Dispatcher) Dispatch(ctx context.Context, form url.Values) Result {
	d.observer.RecordEvent(categoryRequest, "Received slack request", telemetry.LevelInfo)

	if payload := form.Get("payload"); payload != "" {
		return d.dispatchInteraction(ctx, payload)
	}

	cmd := commandFromForm(form)
	if !d.verify(cmd.Token) {
		d.rejectToken(categoryRequest)
		return unauthorized()
	}
	return d.dispatchCommand(ctx, cmd)
}

func (d *Dispatcher) verify(token string) bool {
	if token == "" || d.verificationToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(d.verificationToken)) == 1
}

func (d *Dispatcher) rejectToken(category string) {
	d.logger.Error("Unexpected missing or invalid token in slack request", "category", category)
	d.observer.RecordEvent(category, "Invalid verification token", telemetry.LevelError)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd slack.SlashCommand) Result {
	d.observer.RecordEvent(categoryRequest, "Handle slack command: "+cmd.Text, telemetry.LevelInfo)

	switch cmd.Text {
	case "", commandHelp:
		d.observer.RecordEvent(categoryRequest, "Handled 'help' command", telemetry.LevelInfo)
		return ok(messages.Help())
	case commandSetup:
		return d.handleSetup(ctx, cmd)
	case commandStatus, commandAnalytics:
		// Reserved; intentionally produces nothing.
		return none()
	}

	d.logger.Warn("Unknown command", "text", cmd.Text, "team", cmd.TeamID)
	d.observer.RecordEvent(categoryRequest, "Unknown command "+cmd.Text, telemetry.LevelWarning)
	return ok(messages.UnknownCommand())
}

func (d *Dispatcher) handleSetup(ctx context.Context, cmd slack.SlashCommand) Result {
	if cmd.TeamID == "" {
		d.logger.Error("Unexpected missing team_id in setup request", "user", cmd.UserID)
		d.observer.RecordEvent(categoryRequest, "[setup] Unexpected missing team_id in slack request", telemetry.LevelError)
		return none()
	}

	var members, administrators []string
	cfg, err := d.repo.GetOrganizationConfig(ctx, cmd.TeamID)
	switch {
	case err == nil:
		d.logger.Debug("Found config for org", "team", cmd.TeamID)
		members, administrators = cfg.Config.Members, cfg.Config.Administrators
	case errors.Is(err, db.ErrNotFound):
	default:
		d.logger.Error("Failed to load organization config", "team", cmd.TeamID, "err", err)
		d.observer.RecordEvent(categoryRequest, "Failed to load config for "+cmd.TeamID, telemetry.LevelError)
	}

	d.observer.RecordEvent(categoryRequest, "Handled 'setup' command for "+cmd.TeamID, telemetry.LevelInfo)
	return ok(messages.Setup(members, administrators))
}
