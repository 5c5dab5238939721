package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel-bot/model"
)

func TestUpsertAndLoadGuildConfigs(t *testing.T) {
	db, err := Init(":memory:")
	require.NoError(t, err)
	defer db.Close()

	gc := model.GuildConfig{
		GuildID:      "guild-1",
		Name:         "Test Guild",
		AdminRoleIDs: []string{"admin-a", "admin-b"},
		ModRoleIDs:   []string{"mod-a"},
		Enabled:      true,
	}
	require.NoError(t, UpsertGuildConfig(db, gc))

	cfg := &model.Config{}
	require.NoError(t, LoadGuildConfigs(db, cfg))
	assert.Equal(t, gc, cfg.GuildConfigs["guild-1"])
}

func TestUpsertGuildConfigOverwrites(t *testing.T) {
	db, err := Init(":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, UpsertGuildConfig(db, model.GuildConfig{
		GuildID: "guild-1", Name: "Old", Enabled: true,
	}))
	require.NoError(t, UpsertGuildConfig(db, model.GuildConfig{
		GuildID: "guild-1", Name: "New", ModRoleIDs: []string{"mod-a"}, Enabled: false,
	}))

	cfg := &model.Config{}
	require.NoError(t, LoadGuildConfigs(db, cfg))
	require.Len(t, cfg.GuildConfigs, 1)

	got := cfg.GuildConfigs["guild-1"]
	assert.Equal(t, "New", got.Name)
	assert.Equal(t, []string{"mod-a"}, got.ModRoleIDs)
	assert.False(t, got.Enabled)
}

func TestLoadGuildConfigsEmpty(t *testing.T) {
	db, err := Init(":memory:")
	require.NoError(t, err)
	defer db.Close()

	cfg := &model.Config{}
	require.NoError(t, LoadGuildConfigs(db, cfg))
	assert.Empty(t, cfg.GuildConfigs)
}
