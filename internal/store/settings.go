package store

import (
	"context"
	"encoding/json"

	"coursehub/api-gateway/models"
)

type settingRow struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// GetSetting reads a single organization setting. Returns models.ErrNotFound
// when the key is absent.
func (c *Client) GetSetting(ctx context.Context, key string) (string, error) {
	var rows []settingRow
	err := c.withRetry(ctx, "select "+settingsTable, func() error {
		body, _, err := c.db.From(settingsTable).
			Select("*", "", false).
			Eq("key", key).
			Execute()
		if err != nil {
			return err
		}
		rows = nil
		return json.Unmarshal(body, &rows)
	})
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", models.ErrNotFound
	}
	return rows[0].Value, nil
}

// UpsertSetting writes a single organization setting, inserting or replacing
// on the key. Last write wins.
func (c *Client) UpsertSetting(ctx context.Context, key, value string) error {
	row := map[string]interface{}{
		"key":        key,
		"value":      value,
		"updated_at": c.now(),
	}
	return c.withRetry(ctx, "upsert "+settingsTable, func() error {
		_, _, err := c.db.From(settingsTable).
			Insert(row, true, "key", "representation", "").
			Execute()
		return err
	})
}
