package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"MoodLab/utils"
)

const (
	configPrefix   = "config_"
	tokenPrefix    = "token_"
	feedbackPrefix = "feedback_"
)

func ConfigKey(orgID string) string { return configPrefix + orgID }

func TokenKey(orgID string) string { return tokenPrefix + orgID }

// FeedbackKey keeps entries distinct even when a user answers twice within
// the same millisecond.
func FeedbackKey(orgID, userID string, unixMillis int64, nonce string) string {
	return fmt.Sprintf("%s%s_%s_%d_%s", feedbackPrefix, orgID, userID, unixMillis, nonce)
}

// Repository maps the bot's records onto a Store.
type Repository struct {
	store  Store
	cipher *utils.Cipher
	nonce  func() string
}

// NewRepository wraps store. When cipher is non-nil bot tokens are sealed at
// rest.
func NewRepository(store Store, cipher *utils.Cipher) *Repository {
	return &Repository{
		store:  store,
		cipher: cipher,
		nonce:  uuid.NewString,
	}
}

func (r *Repository) GetOrganizationConfig(ctx context.Context, orgID string) (*OrganizationConfig, error) {
	return r.LoadOrganizationConfig(ctx, ConfigKey(orgID))
}

// LoadOrganizationConfig reads the config stored under key. Missing and
// undecodable values both yield ErrNotFound.
func (r *Repository) LoadOrganizationConfig(ctx context.Context, key string) (*OrganizationConfig, error) {
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var cfg OrganizationConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrNotFound, key, err)
	}
	return &cfg, nil
}

func (r *Repository) SaveOrganizationConfig(ctx context.Context, cfg OrganizationConfig) error {
	if cfg.Organization.ID == "" {
		return fmt.Errorf("SaveOrganizationConfig: missing organization id")
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("SaveOrganizationConfig: failed to marshal config for %s: %w", cfg.Organization.ID, err)
	}

	return r.store.Put(ctx, ConfigKey(cfg.Organization.ID), data, map[string]string{
		"org_domain": cfg.Organization.Domain,
		"org_id":     cfg.Organization.ID,
	})
}

func (r *Repository) ListOrganizationConfigKeys(ctx context.Context) ([]string, error) {
	return r.store.List(ctx, configPrefix)
}

func (r *Repository) GetBotToken(ctx context.Context, orgID string) (string, error) {
	raw, err := r.store.Get(ctx, TokenKey(orgID))
	if err != nil {
		return "", err
	}

	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", ErrNotFound
	}
	// Tokens written before encryption was enabled are stored as-is.
	if r.cipher == nil || strings.HasPrefix(token, "xox") {
		return token, nil
	}

	plain, err := r.cipher.Decrypt(token)
	if err != nil {
		return "", fmt.Errorf("GetBotToken: failed to decrypt token for %s: %w", orgID, err)
	}
	return plain, nil
}

func (r *Repository) SaveBotToken(ctx context.Context, orgID, userID, token string) error {
	stored := token
	if r.cipher != nil {
		sealed, err := r.cipher.Encrypt(token)
		if err != nil {
			return fmt.Errorf("SaveBotToken: failed to encrypt token for %s: %w", orgID, err)
		}
		stored = sealed
	}

	return r.store.Put(ctx, TokenKey(orgID), []byte(stored), map[string]string{
		"team_id": orgID,
		"user_id": userID,
	})
}

// SaveFeedback writes a new entry and returns its key. Entries are never
// overwritten.
func (r *Repository) SaveFeedback(ctx context.Context, entry FeedbackEntry) (string, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("SaveFeedback: failed to marshal feedback: %w", err)
	}

	key := FeedbackKey(entry.OrganizationID, entry.UserID, entry.Timestamp.UnixMilli(), r.nonce())
	err = r.store.Put(ctx, key, data, map[string]string{
		"org_domain": entry.OrganizationDomain,
		"org_id":     entry.OrganizationID,
		"user_id":    entry.UserID,
		"type":       "feedback",
	})
	if err != nil {
		return "", err
	}
	return key, nil
}
