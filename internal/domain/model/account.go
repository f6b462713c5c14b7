package model

import (
	"strconv"
	"time"
)

// Account is the normalized view of a remote panel account. The panel returns
// the same entity under several shapes (top-level vs nested under "user",
// camelCase vs snake_case keys); ParseAccount flattens all of that variance in
// one place so the rest of the code sees a single strongly-typed value.
type Account struct {
	UUID       string
	ShortUUID  string // opaque handle used to build the subscription link
	Username   string
	TelegramID int64
	ExpiresAt  time.Time // zero when the panel sent nothing parseable
	Raw        map[string]any
}

func (a *Account) IsZero() bool { return a == nil || (a.UUID == "" && a.ShortUUID == "") }

// ParseAccount normalizes a raw panel response into an Account.
// Returns nil for payloads that carry no account at all.
func ParseAccount(raw map[string]any) *Account {
	if len(raw) == 0 {
		return nil
	}
	obj := raw
	if nested, ok := raw["user"].(map[string]any); ok {
		obj = nested
	} else if nested, ok := raw["response"].(map[string]any); ok {
		obj = nested
	}

	acc := &Account{
		UUID:       pickString(obj, "uuid", "id"),
		ShortUUID:  pickString(obj, "shortUuid", "short_uuid"),
		Username:   pickString(obj, "username"),
		TelegramID: pickInt64(obj, "telegramId", "telegram_id"),
		Raw:        raw,
	}
	// Some responses keep shortUuid on the envelope while the rest is nested.
	if acc.ShortUUID == "" {
		acc.ShortUUID = pickString(raw, "shortUuid", "short_uuid")
	}
	if exp := pickString(obj, "expirationTime", "expiration_time"); exp != "" {
		if t, err := parseExpiration(exp); err == nil {
			acc.ExpiresAt = t
		}
	}
	if acc.IsZero() && acc.Username == "" {
		return nil
	}
	return acc
}

// ParseAccountList normalizes list-shaped responses: {"users": [...]},
// {"data": [...]}, a bare array, or a single object.
func ParseAccountList(raw any) []*Account {
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		out := make([]*Account, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				if acc := ParseAccount(m); acc != nil {
					out = append(out, acc)
				}
			}
		}
		return out
	case map[string]any:
		for _, key := range []string{"users", "data"} {
			if inner, ok := v[key]; ok {
				return ParseAccountList(inner)
			}
		}
		if acc := ParseAccount(v); acc != nil {
			return []*Account{acc}
		}
		return nil
	default:
		return nil
	}
}

func parseExpiration(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, strconv.ErrSyntax
}

func pickString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func pickInt64(m map[string]any, keys ...string) int64 {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return n
			}
		case float64:
			return int64(v)
		case int64:
			return v
		}
	}
	return 0
}
