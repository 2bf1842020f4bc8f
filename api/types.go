package api

import (
	"net/url"

	"github.com/slack-go/slack"
)

type Outcome int

const (
	// OutcomeNone means the request was accepted but produces no body.
	OutcomeNone Outcome = iota
	OutcomeOK
	OutcomeUnauthorized
)

// Result is the tagged outcome of dispatching one inbound Slack request.
type Result struct {
	Outcome Outcome
	Body    any
}

func ok(body any) Result { return Result{Outcome: OutcomeOK, Body: body} }

func none() Result { return Result{Outcome: OutcomeNone} }

func unauthorized() Result { return Result{Outcome: OutcomeUnauthorized} }

// interactionPayload is the JSON document Slack sends in the "payload" form
// field when a user clicks a button of one of our messages.
type interactionPayload struct {
	Type        string              `json:"type"`
	Token       string              `json:"token"`
	ResponseURL string              `json:"response_url"`
	APIAppID    string              `json:"api_app_id"`
	User        slack.User          `json:"user"`
	Team        slack.Team          `json:"team"`
	State       *interactionState   `json:"state,omitempty"`
	Actions     []slack.BlockAction `json:"actions"`
}

type interactionState struct {
	Values map[string]map[string]slack.BlockAction `json:"values"`
}

// selectedUsers returns the users picked in the given input block, or nil.
func (s *interactionState) selectedUsers(blockID, actionID string) []string {
	if s == nil {
		return nil
	}
	block, found := s.Values[blockID]
	if !found {
		return nil
	}
	action, found := block[actionID]
	if !found {
		return nil
	}
	return action.SelectedUsers
}

// commandFromForm reads a slash command from its form-encoded body.
func commandFromForm(form url.Values) slack.SlashCommand {
	return slack.SlashCommand{
		Token:       form.Get("token"),
		TeamID:      form.Get("team_id"),
		TeamDomain:  form.Get("team_domain"),
		ChannelID:   form.Get("channel_id"),
		UserID:      form.Get("user_id"),
		UserName:    form.Get("user_name"),
		Command:     form.Get("command"),
		Text:        form.Get("text"),
		APIAppID:    form.Get("api_app_id"),
		ResponseURL: form.Get("response_url"),
		TriggerID:   form.Get("trigger_id"),
	}
}
