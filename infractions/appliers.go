package infractions

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"sentinel-bot/model"
	"sentinel-bot/site"
)

// maxTimeout is Discord's ceiling on a member timeout. Permanent
// timeouts are applied in maxTimeout slices and corrected on rejoin.
const maxTimeout = 28 * 24 * time.Hour

// applier binds one infraction type to its platform-side apply and
// pardon behavior. A nil func means the type has no platform side
// effect for that direction.
type applier struct {
	apply       func(ctx context.Context, e *Engine, inf *model.Infraction) error
	pardon      func(ctx context.Context, e *Engine, inf *model.Infraction) error
	mandatoryDM bool
}

var appliers = map[model.InfractionType]applier{
	model.TypeBan: {
		apply: func(ctx context.Context, e *Engine, inf *model.Infraction) error {
			if err := e.platform.BanMember(inf.GuildID, inf.UserID, inf.Reason, inf.PurgeDays); err != nil {
				return err
			}
			// A banned user cannot meaningfully be watched.
			if err := e.watchlist.Unwatch(ctx, inf.UserID); err != nil && !errors.Is(err, site.ErrNotFound) {
				log.Printf("Failed to remove watch entry for banned user %s: %v", inf.UserID, err)
			}
			return nil
		},
		pardon: func(ctx context.Context, e *Engine, inf *model.Infraction) error {
			return e.platform.UnbanMember(inf.GuildID, inf.UserID)
		},
	},
	model.TypeKick: {
		apply: func(ctx context.Context, e *Engine, inf *model.Infraction) error {
			return e.platform.KickMember(inf.GuildID, inf.UserID, inf.Reason)
		},
	},
	model.TypeTimeout: {
		apply: func(ctx context.Context, e *Engine, inf *model.Infraction) error {
			until := time.Now().Add(maxTimeout)
			if inf.ExpiresAt != nil && inf.ExpiresAt.Before(until) {
				until = *inf.ExpiresAt
			}
			return e.platform.TimeoutMember(inf.GuildID, inf.UserID, &until)
		},
		pardon: func(ctx context.Context, e *Engine, inf *model.Infraction) error {
			return e.platform.TimeoutMember(inf.GuildID, inf.UserID, nil)
		},
	},
	model.TypeVoiceMute: {
		apply: func(ctx context.Context, e *Engine, inf *model.Infraction) error {
			if err := e.platform.RemoveRole(inf.GuildID, inf.UserID, e.cfg.VoiceVerifiedRoleID); err != nil {
				return err
			}
			// Not being in voice is fine; the role removal is what counts.
			if err := e.platform.DisconnectVoice(inf.GuildID, inf.UserID); err != nil {
				log.Printf("Could not disconnect %s from voice: %v", inf.UserID, err)
			}
			return nil
		},
		pardon: func(ctx context.Context, e *Engine, inf *model.Infraction) error {
			return e.platform.AddRole(inf.GuildID, inf.UserID, e.cfg.VoiceVerifiedRoleID)
		},
	},
	model.TypeNote:    {},
	model.TypeWarning: {},
	model.TypeSuperstar: {
		mandatoryDM: true,
		apply: func(ctx context.Context, e *Engine, inf *model.Infraction) error {
			return e.platform.SetNickname(inf.GuildID, inf.UserID, StarNickname(inf.ID, inf.UserID))
		},
		pardon: func(ctx context.Context, e *Engine, inf *model.Infraction) error {
			return e.platform.SetNickname(inf.GuildID, inf.UserID, "")
		},
	},
	model.TypeWatch: {
		apply: func(ctx context.Context, e *Engine, inf *model.Infraction) error {
			err := e.watchlist.Watch(ctx, model.WatchEntry{
				UserID:     inf.UserID,
				ActorID:    inf.ActorID,
				Reason:     inf.Reason,
				InsertedAt: inf.InsertedAt,
			})
			if errors.Is(err, site.ErrConflict) {
				// Already watched; the conflict pre-check raced.
				return nil
			}
			return err
		},
		pardon: func(ctx context.Context, e *Engine, inf *model.Infraction) error {
			err := e.watchlist.Unwatch(ctx, inf.UserID)
			if errors.Is(err, site.ErrNotFound) {
				return nil
			}
			return err
		},
	},
}

func applierFor(t model.InfractionType) (applier, error) {
	a, ok := appliers[t]
	if !ok {
		return applier{}, fmt.Errorf("no applier registered for infraction type %q", t)
	}
	return a, nil
}
