package messages

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, v any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func decodeBlocks(t *testing.T, blocks []slack.Block) []map[string]any {
	t.Helper()
	raw, err := json.Marshal(slack.Blocks{BlockSet: blocks})
	require.NoError(t, err)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestTextMessage(t *testing.T) {
	msg := decode(t, Text("hello *world*"))

	assert.Equal(t, "in_channel", msg["response_type"])
	blocks := msg["blocks"].([]any)
	require.Len(t, blocks, 1)

	section := blocks[0].(map[string]any)
	assert.Equal(t, "section", section["type"])
	text := section["text"].(map[string]any)
	assert.Equal(t, "mrkdwn", text["type"])
	assert.Equal(t, "hello *world*", text["text"])
}

func TestHelpAndUnknown(t *testing.T) {
	assert.Equal(t, decode(t, Text(HelpText)), decode(t, Help()))
	assert.Equal(t, decode(t, Text(UnknownCommandText)), decode(t, UnknownCommand()))
}

// setupSelections extracts the pre-selected users of the setup form by block id.
func setupSelections(t *testing.T, msg slack.Msg) map[string][]string {
	t.Helper()
	out := map[string][]string{}
	for _, b := range decode(t, msg)["blocks"].([]any) {
		block := b.(map[string]any)
		if block["type"] != "input" {
			continue
		}
		element := block["element"].(map[string]any)
		assert.Equal(t, "multi_users_select", element["type"])
		assert.Equal(t, UsersSelectAction, element["action_id"])
		assert.EqualValues(t, maxSelectedUsers, element["max_selected_items"])

		var users []string
		if raw, ok := element["initial_users"].([]any); ok {
			for _, u := range raw {
				users = append(users, u.(string))
			}
		}
		out[block["block_id"].(string)] = users
	}
	return out
}

func TestSetupPrefill(t *testing.T) {
	got := setupSelections(t, Setup([]string{"U1", "U2"}, []string{"U9"}))
	assert.Equal(t, []string{"U1", "U2"}, got[MembersBlock])
	assert.Equal(t, []string{"U9"}, got[AdministratorsBlock])
}

func TestSetupEmpty(t *testing.T) {
	got := setupSelections(t, Setup(nil, nil))
	require.Contains(t, got, MembersBlock)
	require.Contains(t, got, AdministratorsBlock)
	assert.Empty(t, got[MembersBlock])
	assert.Empty(t, got[AdministratorsBlock])
}

func TestSetupButtons(t *testing.T) {
	blocks := decode(t, Setup(nil, nil))["blocks"].([]any)
	actions := blocks[len(blocks)-1].(map[string]any)
	require.Equal(t, "actions", actions["type"])

	elements := actions["elements"].([]any)
	require.Len(t, elements, 2)
	submit := elements[0].(map[string]any)
	cancel := elements[1].(map[string]any)
	assert.Equal(t, ActionSubmit, submit["action_id"])
	assert.Equal(t, "primary", submit["style"])
	assert.Equal(t, ActionCancel, cancel["action_id"])
}

func TestWeeklyQuestion(t *testing.T) {
	blocks := decodeBlocks(t, WeeklyQuestion())
	require.Len(t, blocks, 2)
	assert.Equal(t, "section", blocks[0]["type"])

	elements := blocks[1]["elements"].([]any)
	require.Len(t, elements, 5)

	wantValues := []string{"-2", "-1", "0", "1", "2"}
	seen := map[string]bool{}
	for i, e := range elements {
		button := e.(map[string]any)
		id := button["action_id"].(string)
		assert.Equal(t, FeedbackActionPrefix+strconv.Itoa(i), id)
		assert.Equal(t, wantValues[i], button["value"])
		assert.Equal(t, Moods[i].Label, button["text"].(map[string]any)["text"])
		assert.False(t, seen[id], "duplicate action id %s", id)
		seen[id] = true
	}
	assert.True(t, seen["feedback-0"])
	assert.True(t, seen["feedback-4"])
}

func TestFeedbackReceived(t *testing.T) {
	blocks := decodeBlocks(t, FeedbackReceived("🙂 Good"))
	require.Len(t, blocks, 2)
	assert.Equal(t, FeedbackThanksText, blocks[0]["text"].(map[string]any)["text"])

	button := blocks[1]["elements"].([]any)[0].(map[string]any)
	assert.Equal(t, "🙂 Good", button["text"].(map[string]any)["text"])
}
