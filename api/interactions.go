package api

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/slack-go/slack"

	"MoodLab/db"
	"MoodLab/internal/messages"
	"MoodLab/internal/telemetry"
)

func (d *Dispatcher) dispatchInteraction(ctx context.Context, raw string) Result {
	var probe struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil || !d.verify(probe.Token) {
		d.rejectToken(categoryWebhook)
		return unauthorized()
	}

	var payload interactionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		d.logger.Error("Failed to decode interaction payload", "err", err)
		d.observer.RecordEvent(categoryWebhook, "Malformed interaction payload", telemetry.LevelError)
		return none()
	}

	d.observer.RecordEvent(categoryWebhook, "Processing webhook call", telemetry.LevelInfo)
	if len(payload.Actions) == 0 {
		return none()
	}

	// Only the first action of a callback is meaningful.
	action := payload.Actions[0]
	d.observer.RecordEvent(categoryWebhook, "Processing webhook call action "+action.ActionID, telemetry.LevelInfo)

	switch {
	case action.ActionID == messages.ActionCancel:
		return d.replyText(ctx, payload, messages.CancelText)
	case strings.HasPrefix(action.ActionID, messages.FeedbackActionPrefix):
		return d.handleFeedback(ctx, payload, action)
	case action.ActionID == messages.ActionSubmit:
		return d.handleSubmit(ctx, payload)
	}
	return none()
}

func (d *Dispatcher) handleFeedback(ctx context.Context, payload interactionPayload, action slack.BlockAction) Result {
	log := d.logger.New("team", payload.Team.ID, "user", payload.User.ID)

	value, err := strconv.Atoi(strings.TrimSpace(action.Value))
	if err != nil {
		log.Warn("Ignoring feedback with non-numeric value", "action", action.ActionID, "value", action.Value)
		d.observer.RecordEvent(categoryWebhook, "Feedback value is not a number: "+action.Value, telemetry.LevelWarning)
		return none()
	}

	entry := db.FeedbackEntry{
		OrganizationID:     payload.Team.ID,
		OrganizationDomain: payload.Team.Domain,
		UserID:             payload.User.ID,
		Value:              value,
		ValueString:        action.Text.Text,
		Timestamp:          d.now().UTC(),
	}

	key, err := d.repo.SaveFeedback(ctx, entry)
	if err != nil {
		log.Error("Failed to save feedback", "err", err)
		d.observer.RecordEvent(categoryWebhook, "Failed to save feedback for "+payload.User.ID, telemetry.LevelError)
		return d.replyText(ctx, payload, messages.FeedbackFailedText)
	}
	log.Info("Feedback saved", "key", key, "value", value)
	d.observer.RecordEvent(categoryWebhook, "Processing user feedback", telemetry.LevelInfo)

	blocks := messages.FeedbackReceived(action.Text.Text)
	// The entry stays saved even if the acknowledgment cannot be delivered.
	d.respond(ctx, payload, &slack.WebhookMessage{Blocks: &slack.Blocks{BlockSet: blocks}})
	return ok(slack.Msg{Blocks: slack.Blocks{BlockSet: blocks}})
}

func (d *Dispatcher) handleSubmit(ctx context.Context, payload interactionPayload) Result {
	members := payload.State.selectedUsers(messages.MembersBlock, messages.UsersSelectAction)
	administrators := payload.State.selectedUsers(messages.AdministratorsBlock, messages.UsersSelectAction)

	if len(members) == 0 || len(administrators) == 0 {
		return d.replyText(ctx, payload, messages.SetupInvalidText)
	}

	log := d.logger.New("team", payload.Team.ID, "user", payload.User.ID)
	log.Info("Registering team", "name", payload.User.Name, "members", members, "administrators", administrators)

	cfg := db.OrganizationConfig{
		Config: db.Settings{
			Members:        members,
			Administrators: administrators,
		},
		Organization: db.Organization{ID: payload.Team.ID, Domain: payload.Team.Domain},
		AppID:        payload.APIAppID,
		UpdatedBy:    db.UserRef{ID: payload.User.ID, Name: payload.User.Name},
		UpdatedAt:    d.now().UTC(),
	}
	if err := d.repo.SaveOrganizationConfig(ctx, cfg); err != nil {
		log.Error("Failed to save organization config", "err", err)
		d.observer.RecordEvent(categoryWebhook, "Failed to save config for "+payload.Team.ID, telemetry.LevelError)
		return d.replyText(ctx, payload, messages.SetupFailedText)
	}

	d.observer.RecordEvent(categoryWebhook,
		"Config for "+payload.Team.ID+" is saved by "+payload.User.ID+" ("+payload.User.Name+")", telemetry.LevelInfo)
	return d.replyText(ctx, payload, messages.SetupSavedText)
}

// replyText posts text to the response url and returns the same text as the
// direct response.
func (d *Dispatcher) replyText(ctx context.Context, payload interactionPayload, text string) Result {
	d.respond(ctx, payload, &slack.WebhookMessage{Text: text})
	return ok(messages.Text(text))
}

func (d *Dispatcher) respond(ctx context.Context, payload interactionPayload, msg *slack.WebhookMessage) {
	if payload.ResponseURL == "" || d.responder == nil {
		d.logger.Debug("No response url on interaction; skipping follow-up", "team", payload.Team.ID)
		return
	}
	if err := d.responder.Respond(ctx, payload.ResponseURL, msg); err != nil {
		d.logger.Error("Failed to post to response url", "team", payload.Team.ID, "user", payload.User.ID, "err", err)
		d.observer.RecordEvent(categoryWebhook, "Failed to post follow-up: "+err.Error(), telemetry.LevelError)
	}
}
