package model

import (
	"testing"
	"time"
)

func TestParseAccount_ShapeVariants(t *testing.T) {
	cases := []struct {
		name string
		raw  map[string]any
		want Account
	}{
		{
			name: "flat camelCase",
			raw: map[string]any{
				"uuid": "u-1", "shortUuid": "s-1", "username": "alice",
				"telegramId": "42", "expirationTime": "2026-09-01T00:00:00Z",
			},
			want: Account{UUID: "u-1", ShortUUID: "s-1", Username: "alice", TelegramID: 42},
		},
		{
			name: "flat snake_case",
			raw: map[string]any{
				"uuid": "u-2", "short_uuid": "s-2", "telegram_id": float64(7),
			},
			want: Account{UUID: "u-2", ShortUUID: "s-2", TelegramID: 7},
		},
		{
			name: "nested under user",
			raw: map[string]any{
				"user": map[string]any{"uuid": "u-3", "shortUuid": "s-3"},
			},
			want: Account{UUID: "u-3", ShortUUID: "s-3"},
		},
		{
			name: "nested under response",
			raw: map[string]any{
				"response": map[string]any{"uuid": "u-4", "short_uuid": "s-4"},
			},
			want: Account{UUID: "u-4", ShortUUID: "s-4"},
		},
		{
			name: "shortUuid on the envelope only",
			raw: map[string]any{
				"shortUuid": "s-5",
				"user":      map[string]any{"uuid": "u-5"},
			},
			want: Account{UUID: "u-5", ShortUUID: "s-5"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			acc := ParseAccount(tc.raw)
			if acc == nil {
				t.Fatal("nil account")
			}
			if acc.UUID != tc.want.UUID || acc.ShortUUID != tc.want.ShortUUID {
				t.Errorf("got uuid=%q short=%q, want uuid=%q short=%q",
					acc.UUID, acc.ShortUUID, tc.want.UUID, tc.want.ShortUUID)
			}
			if acc.TelegramID != tc.want.TelegramID {
				t.Errorf("telegram id = %d, want %d", acc.TelegramID, tc.want.TelegramID)
			}
		})
	}

	t.Run("empty payload is nil", func(t *testing.T) {
		if acc := ParseAccount(nil); acc != nil {
			t.Errorf("got %+v", acc)
		}
		if acc := ParseAccount(map[string]any{}); acc != nil {
			t.Errorf("got %+v", acc)
		}
	})

	t.Run("unparseable expiration stays zero", func(t *testing.T) {
		acc := ParseAccount(map[string]any{"uuid": "u", "expirationTime": "soonish"})
		if acc == nil || !acc.ExpiresAt.IsZero() {
			t.Errorf("got %+v", acc)
		}
	})
}

func TestParseAccountList_Shapes(t *testing.T) {
	entry := map[string]any{"uuid": "u-1", "shortUuid": "s-1"}

	cases := []struct {
		name string
		raw  any
		want int
	}{
		{"bare array", []any{entry, entry}, 2},
		{"under users key", map[string]any{"users": []any{entry}}, 1},
		{"under data key", map[string]any{"data": []any{entry}}, 1},
		{"single object", entry, 1},
		{"nil", nil, 0},
		{"array with junk entries", []any{entry, "garbage", map[string]any{}}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := len(ParseAccountList(tc.raw)); got != tc.want {
				t.Errorf("len = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestParseExpiration_Layouts(t *testing.T) {
	for _, s := range []string{
		"2026-09-01T12:30:00.123Z",
		"2026-09-01T12:30:00Z",
		"2026-09-01T12:30:00",
	} {
		ts, err := parseExpiration(s)
		if err != nil {
			t.Errorf("parseExpiration(%q): %v", s, err)
			continue
		}
		if ts.Year() != 2026 || ts.Month() != time.September {
			t.Errorf("parseExpiration(%q) = %v", s, ts)
		}
	}
	if _, err := parseExpiration("next tuesday"); err == nil {
		t.Error("expected error for junk input")
	}
}
