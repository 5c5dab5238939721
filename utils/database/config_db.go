// Package database holds the guild config store, a small SQLite
// database for per-guild role setup.
package database

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"sentinel-bot/model"
)

// Init opens the guild config database and ensures the schema exists.
func Init(dbPath string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to guild config database: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS guild_configs (
		"guild_id" TEXT NOT NULL PRIMARY KEY,
		"name" TEXT,
		"admin_role_ids" TEXT,
		"mod_role_ids" TEXT,
		"enabled" INTEGER DEFAULT 1
	);`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create guild_configs table: %w", err)
	}
	return db, nil
}

type guildRow struct {
	GuildID      string `db:"guild_id"`
	Name         string `db:"name"`
	AdminRoleIDs string `db:"admin_role_ids"`
	ModRoleIDs   string `db:"mod_role_ids"`
	Enabled      bool   `db:"enabled"`
}

// LoadGuildConfigs fills cfg.GuildConfigs from the database.
func LoadGuildConfigs(db *sqlx.DB, cfg *model.Config) error {
	var rows []guildRow
	if err := db.Select(&rows, "SELECT guild_id, name, admin_role_ids, mod_role_ids, enabled FROM guild_configs"); err != nil {
		return fmt.Errorf("failed to load guild configs: %w", err)
	}

	cfg.GuildConfigs = make(map[string]model.GuildConfig, len(rows))
	for _, row := range rows {
		cfg.GuildConfigs[row.GuildID] = model.GuildConfig{
			GuildID:      row.GuildID,
			Name:         row.Name,
			AdminRoleIDs: splitIDs(row.AdminRoleIDs),
			ModRoleIDs:   splitIDs(row.ModRoleIDs),
			Enabled:      row.Enabled,
		}
	}
	return nil
}

// UpsertGuildConfig writes one guild's role setup.
func UpsertGuildConfig(db *sqlx.DB, gc model.GuildConfig) error {
	query := `INSERT INTO guild_configs (guild_id, name, admin_role_ids, mod_role_ids, enabled)
	          VALUES (?, ?, ?, ?, ?)
	          ON CONFLICT(guild_id) DO UPDATE SET
	              name = excluded.name,
	              admin_role_ids = excluded.admin_role_ids,
	              mod_role_ids = excluded.mod_role_ids,
	              enabled = excluded.enabled`
	_, err := db.Exec(query, gc.GuildID, gc.Name,
		strings.Join(gc.AdminRoleIDs, ","), strings.Join(gc.ModRoleIDs, ","), gc.Enabled)
	if err != nil {
		return fmt.Errorf("failed to upsert guild config for %s: %w", gc.GuildID, err)
	}
	return nil
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
