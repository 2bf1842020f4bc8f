package db

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MoodLab/utils"
)

func sampleConfig(orgID string) OrganizationConfig {
	return OrganizationConfig{
		Config: Settings{
			Members:        UserList{"U1", "U2"},
			Administrators: UserList{"U9"},
		},
		Organization: Organization{ID: orgID, Domain: "acme"},
		AppID:        "A1",
		UpdatedBy:    UserRef{ID: "U9", Name: "boss"},
		UpdatedAt:    time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestOrganizationConfigRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repo := NewRepository(store, nil)

	require.NoError(t, repo.SaveOrganizationConfig(ctx, sampleConfig("T1")))

	got, err := repo.GetOrganizationConfig(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, sampleConfig("T1"), *got)
	assert.Equal(t, map[string]string{"org_domain": "acme", "org_id": "T1"}, store.Metadata("config_T1"))
}

func TestOrganizationConfigStoredLayout(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repo := NewRepository(store, nil)
	require.NoError(t, repo.SaveOrganizationConfig(ctx, sampleConfig("T1")))

	raw, err := store.Get(ctx, "config_T1")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"config": {"members": ["U1", "U2"], "administrators": ["U9"]},
		"organization": {"id": "T1", "domain": "acme"},
		"app_id": "A1",
		"updated_by": {"id": "U9", "name": "boss"},
		"updated_at": "2024-03-01T10:00:00Z"
	}`, string(raw))
}

func TestOrganizationConfigSaveReplaces(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(NewMemoryStore(), nil)
	require.NoError(t, repo.SaveOrganizationConfig(ctx, sampleConfig("T1")))

	next := sampleConfig("T1")
	next.Config.Members = UserList{"U3"}
	next.AppID = ""
	require.NoError(t, repo.SaveOrganizationConfig(ctx, next))

	got, err := repo.GetOrganizationConfig(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, UserList{"U3"}, got.Config.Members)
	assert.Empty(t, got.AppID)

	keys, err := repo.ListOrganizationConfigKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"config_T1"}, keys)
}

func TestOrganizationConfigAbsent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repo := NewRepository(store, nil)

	_, err := repo.GetOrganizationConfig(ctx, "T404")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "config_BAD", []byte("{not json"), nil))
	_, err = repo.GetOrganizationConfig(ctx, "BAD")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveOrganizationConfigRequiresID(t *testing.T) {
	repo := NewRepository(NewMemoryStore(), nil)
	assert.Error(t, repo.SaveOrganizationConfig(context.Background(), OrganizationConfig{}))
}

func TestUserListSingleValue(t *testing.T) {
	var s Settings
	require.NoError(t, json.Unmarshal([]byte(`{"members": "U1", "administrators": ["U2"]}`), &s))
	assert.Equal(t, UserList{"U1"}, s.Members)
	assert.Equal(t, UserList{"U2"}, s.Administrators)

	require.NoError(t, json.Unmarshal([]byte(`{"members": null}`), &s))
	assert.Empty(t, s.Members)

	require.NoError(t, json.Unmarshal([]byte(`{"members": 42}`), &s))
	assert.Equal(t, UserList{"42"}, s.Members)

	require.NoError(t, json.Unmarshal([]byte(`{"members": ["U1", 7, null]}`), &s))
	assert.Equal(t, UserList{"U1", "7"}, s.Members)

	assert.Error(t, json.Unmarshal([]byte(`{"members": {"id": "U1"}}`), &s))
}

func TestNumericMemberIsNotCorrupt(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, ConfigKey("T1"),
		[]byte(`{"config":{"members":12345,"administrators":"U9"},"organization":{"id":"T1"}}`), nil))

	cfg, err := NewRepository(store, nil).GetOrganizationConfig(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, UserList{"12345"}, cfg.Config.Members)
	assert.Equal(t, UserList{"U9"}, cfg.Config.Administrators)
}

func TestBotTokenPlain(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repo := NewRepository(store, nil)

	_, err := repo.GetBotToken(ctx, "T1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.SaveBotToken(ctx, "T1", "U1", "xoxb-plain"))
	got, err := repo.GetBotToken(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "xoxb-plain", got)
	assert.Equal(t, map[string]string{"team_id": "T1", "user_id": "U1"}, store.Metadata("token_T1"))
}

func TestBotTokenEncrypted(t *testing.T) {
	ctx := context.Background()
	cipher, err := utils.NewCipher("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	store := NewMemoryStore()
	repo := NewRepository(store, cipher)
	require.NoError(t, repo.SaveBotToken(ctx, "T1", "U1", "xoxb-secret"))

	raw, err := store.Get(ctx, "token_T1")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "xoxb")

	got, err := repo.GetBotToken(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "xoxb-secret", got)

	// Legacy plaintext tokens stay readable after enabling encryption.
	require.NoError(t, store.Put(ctx, "token_T2", []byte("xoxb-legacy"), nil))
	got, err = repo.GetBotToken(ctx, "T2")
	require.NoError(t, err)
	assert.Equal(t, "xoxb-legacy", got)
}

func TestSaveFeedbackNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repo := NewRepository(store, nil)

	entry := FeedbackEntry{
		OrganizationID:     "T1",
		OrganizationDomain: "acme",
		UserID:             "U1",
		Value:              1,
		ValueString:        "🙂 Good",
		Timestamp:          time.UnixMilli(1700000000000).UTC(),
	}

	first, err := repo.SaveFeedback(ctx, entry)
	require.NoError(t, err)
	second, err := repo.SaveFeedback(ctx, entry)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(first, "feedback_T1_U1_1700000000000_"))

	keys, err := store.List(ctx, "feedback_T1_U1_")
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	raw, err := store.Get(ctx, first)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":1,"value_string":"🙂 Good","feedback":"","timestamp":"2023-11-14T22:13:20Z"}`, string(raw))
	assert.Equal(t, map[string]string{
		"org_domain": "acme", "org_id": "T1", "user_id": "U1", "type": "feedback",
	}, store.Metadata(first))
}
