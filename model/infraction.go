package model

import "time"

// InfractionType identifies the kind of moderation action a record represents.
type InfractionType string

const (
	TypeBan       InfractionType = "ban"
	TypeKick      InfractionType = "kick"
	TypeTimeout   InfractionType = "timeout"
	TypeVoiceMute InfractionType = "voice_mute"
	TypeNote      InfractionType = "note"
	TypeWarning   InfractionType = "warning"
	TypeSuperstar InfractionType = "superstar"
	TypeWatch     InfractionType = "watch"
)

// SupportedTypes lists every infraction type this bot manages.
var SupportedTypes = []InfractionType{
	TypeBan, TypeKick, TypeTimeout, TypeVoiceMute,
	TypeNote, TypeWarning, TypeSuperstar, TypeWatch,
}

// Exclusive reports whether at most one active infraction of this type
// may exist per user at a time.
func (t InfractionType) Exclusive() bool {
	switch t {
	case TypeBan, TypeTimeout, TypeVoiceMute, TypeSuperstar, TypeWatch:
		return true
	}
	return false
}

// Expires reports whether this type accepts a duration at all.
// Notes, warnings and kicks are always permanent one-shot records.
func (t InfractionType) Expires() bool {
	switch t {
	case TypeNote, TypeWarning, TypeKick:
		return false
	}
	return true
}

// Reapplicable reports whether the platform side effect should be
// reapplied when the target rejoins the guild before expiry.
func (t InfractionType) Reapplicable() bool {
	return t == TypeTimeout || t == TypeSuperstar
}

// Valid reports whether t is one of the known infraction types.
func (t InfractionType) Valid() bool {
	for _, known := range SupportedTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Infraction is the central moderation record, owned by the site API.
// The ID is assigned by the site at creation time.
type Infraction struct {
	ID          int64          `json:"id"`
	Type        InfractionType `json:"type"`
	UserID      string         `json:"user"`
	ActorID     string         `json:"actor"`
	GuildID     string         `json:"guild"`
	Reason      string         `json:"reason"`
	Hidden      bool           `json:"hidden"`
	Active      bool           `json:"active"`
	InsertedAt  time.Time      `json:"inserted_at"`
	ExpiresAt   *time.Time     `json:"expires_at"`
	DMSent      *bool          `json:"dm_sent"`
	LastApplied time.Time      `json:"last_applied"`
	// PurgeDays is only meaningful for bans and only used for display.
	PurgeDays int `json:"purge_days,omitempty"`
}

// Permanent reports whether the infraction never expires.
func (inf *Infraction) Permanent() bool {
	return inf.ExpiresAt == nil
}

// WatchEntry maps a monitored user to relay metadata. Watches carry no
// expiry of their own; they are ended explicitly or through the watch
// infraction lifecycle.
type WatchEntry struct {
	UserID     string    `json:"user"`
	ActorID    string    `json:"actor"`
	Reason     string    `json:"reason"`
	InsertedAt time.Time `json:"inserted_at"`
}

// SiteUser is the minimal user record the site needs before it will
// accept infractions that reference the user.
type SiteUser struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Discriminator string `json:"discriminator,omitempty"`
	InGuild       bool   `json:"in_guild"`
}
