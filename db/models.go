package db

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// KVEntry is a row of the SQL-backed key-value table.
type KVEntry struct {
	Name      string            `gorm:"primaryKey;size:512"`
	Value     string            `gorm:"type:text;not null"`
	Metadata  map[string]string `gorm:"serializer:json"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (KVEntry) TableName() string {
	return "kv_entries"
}

// UserList is a list of Slack user ids. A single JSON value decodes into a
// one-item list, and numeric ids are kept as their literal text.
type UserList []string

func (u *UserList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}

	items, isList := v.([]any)
	if !isList {
		items = []any{v}
	}

	list := make(UserList, 0, len(items))
	for _, item := range items {
		id, err := userID(item)
		if err != nil {
			return err
		}
		if id != "" {
			list = append(list, id)
		}
	}
	if len(list) == 0 && !isList {
		*u = nil
		return nil
	}
	*u = list
	return nil
}

func userID(v any) (string, error) {
	switch id := v.(type) {
	case nil:
		return "", nil
	case string:
		return id, nil
	case json.Number:
		return id.String(), nil
	case bool:
		return strconv.FormatBool(id), nil
	}
	return "", fmt.Errorf("user id must be a scalar, got %T", v)
}

type Settings struct {
	Members        UserList `json:"members"`
	Administrators UserList `json:"administrators"`
}

type Organization struct {
	ID     string `json:"id"`
	Domain string `json:"domain"`
}

type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OrganizationConfig is the per-workspace configuration saved by the setup
// form. A save replaces the previous value entirely.
type OrganizationConfig struct {
	Config       Settings     `json:"config"`
	Organization Organization `json:"organization"`
	AppID        string       `json:"app_id"`
	UpdatedBy    UserRef      `json:"updated_by"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// FeedbackEntry is one answer to the weekly question.
type FeedbackEntry struct {
	OrganizationID     string    `json:"-"`
	OrganizationDomain string    `json:"-"`
	UserID             string    `json:"-"`
	Value              int       `json:"value"`
	ValueString        string    `json:"value_string"`
	Feedback           string    `json:"feedback"`
	Timestamp          time.Time `json:"timestamp"`
}
