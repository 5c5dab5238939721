package infractions

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel-bot/model"
	"sentinel-bot/site"
	"sentinel-bot/watch"
)

func newTestEngine(store *MockStore, platform *MockPlatform, sink *MockSink) *Engine {
	return newTestEngineWatch(store, platform, &MockWatchlist{}, sink)
}

func newTestEngineWatch(store *MockStore, platform *MockPlatform, wl Watchlist, sink *MockSink) *Engine {
	return New(platform, store, wl, sink, Config{
		VoiceVerifiedRoleID: "voice-role",
		PageSize:            3,
		RejoinThreshold:     time.Minute,
	})
}

func forbiddenErr() error {
	return &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}
}

func TestApplyTimeoutCreatesAndExpires(t *testing.T) {
	store := &MockStore{}
	platform := &MockPlatform{}
	sink := &MockSink{}
	e := newTestEngine(store, platform, sink)
	defer e.Close()

	expiry := time.Now().Add(50 * time.Millisecond)
	result, err := e.Apply(context.Background(), ApplyRequest{
		GuildID:   "guild",
		UserID:    "42",
		ActorID:   "7",
		Type:      model.TypeTimeout,
		Reason:    "spamming",
		ExpiresAt: &expiry,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Infraction)

	// Immediately after creation: active record, one scheduled task.
	assert.True(t, result.Infraction.Active)
	assert.True(t, e.Scheduled(result.Infraction.ID))
	assert.Equal(t, 1, platform.CallCount("timeout"))

	// After expiry: deactivated, task gone, timeout removed exactly once.
	assert.Eventually(t, func() bool {
		return len(store.DeactivatePatches()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.False(t, e.Scheduled(result.Infraction.ID))
	assert.Equal(t, 1, platform.CallCount("removeTimeout"))
}

func TestApplyPermanentNeverScheduled(t *testing.T) {
	store := &MockStore{}
	platform := &MockPlatform{}
	e := newTestEngine(store, platform, &MockSink{})
	defer e.Close()

	result, err := e.Apply(context.Background(), ApplyRequest{
		GuildID: "guild",
		UserID:  "42",
		ActorID: "7",
		Type:    model.TypeBan,
		Reason:  "permanent",
	})
	require.NoError(t, err)
	assert.False(t, e.Scheduled(result.Infraction.ID))
}

func TestApplyConflictRejected(t *testing.T) {
	store := &MockStore{
		ListInfractionsFunc: func(ctx context.Context, filter site.InfractionFilter) ([]model.Infraction, error) {
			return []model.Infraction{{ID: 99, Type: model.TypeBan, UserID: "7", Active: true}}, nil
		},
		CreateInfractionFunc: func(ctx context.Context, params site.InfractionParams) (*model.Infraction, error) {
			t.Fatal("no record may be created on conflict")
			return nil, nil
		},
	}
	e := newTestEngine(store, &MockPlatform{}, &MockSink{})
	defer e.Close()

	_, err := e.Apply(context.Background(), ApplyRequest{
		GuildID: "guild",
		UserID:  "7",
		Type:    model.TypeBan,
	})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(99), conflict.ExistingID)
}

func TestApplyFailureRollsBackRecord(t *testing.T) {
	store := &MockStore{}
	platform := &MockPlatform{
		BanMemberFunc: func(guildID, userID, reason string, purgeDays int) error {
			return forbiddenErr()
		},
	}
	sink := &MockSink{}
	e := newTestEngine(store, platform, sink)
	defer e.Close()

	_, err := e.Apply(context.Background(), ApplyRequest{
		GuildID: "guild",
		UserID:  "42",
		Type:    model.TypeBan,
		Hidden:  true,
	})
	var applyErr *ApplyFailedError
	require.ErrorAs(t, err, &applyErr)

	// The just-created record no longer exists and mods were pinged.
	assert.Equal(t, []int64{1}, store.Deleted)
	require.NotNil(t, sink.Last())
	assert.True(t, sink.Last().PingMods)
}

func TestApplyHierarchyRejectedBeforePersistence(t *testing.T) {
	store := &MockStore{
		CreateInfractionFunc: func(ctx context.Context, params site.InfractionParams) (*model.Infraction, error) {
			t.Fatal("no record may be created on a hierarchy rejection")
			return nil, nil
		},
	}
	platform := &MockPlatform{
		BotOutranksFunc: func(guildID, userID string) (bool, error) { return false, nil },
	}
	e := newTestEngine(store, platform, &MockSink{})
	defer e.Close()

	_, err := e.Apply(context.Background(), ApplyRequest{
		GuildID: "guild",
		UserID:  "42",
		Type:    model.TypeKick,
	})
	var hierErr *HierarchyError
	assert.ErrorAs(t, err, &hierErr)
}

func TestApplyUnknownUserRetriesOnce(t *testing.T) {
	attempts := 0
	var createdUser *model.SiteUser
	store := &MockStore{
		CreateInfractionFunc: func(ctx context.Context, params site.InfractionParams) (*model.Infraction, error) {
			attempts++
			if attempts == 1 {
				return nil, site.ErrUnknownUser
			}
			return &model.Infraction{ID: 5, Type: params.Type, UserID: params.UserID, Active: true}, nil
		},
		CreateUserFunc: func(ctx context.Context, user model.SiteUser) error {
			createdUser = &user
			return nil
		},
	}
	e := newTestEngine(store, &MockPlatform{}, &MockSink{})
	defer e.Close()

	result, err := e.Apply(context.Background(), ApplyRequest{
		GuildID:  "guild",
		UserID:   "42",
		UserName: "newcomer",
		Type:     model.TypeWarning,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.Infraction.ID)
	assert.Equal(t, 2, attempts)
	require.NotNil(t, createdUser)
	assert.Equal(t, "42", createdUser.ID)
}

func TestApplyDMFailureIsSoftForTimeout(t *testing.T) {
	platform := &MockPlatform{
		SendDMFunc: func(userID, content string) error { return forbiddenErr() },
	}
	e := newTestEngine(&MockStore{}, platform, &MockSink{})
	defer e.Close()

	result, err := e.Apply(context.Background(), ApplyRequest{
		GuildID: "guild",
		UserID:  "42",
		Type:    model.TypeTimeout,
		Reason:  "x",
	})
	require.NoError(t, err)
	assert.False(t, result.DMSent)
	assert.Contains(t, result.Notes, "DM Failed")
	assert.Equal(t, 1, platform.CallCount("timeout"))
}

func TestApplyDMFailureAbortsSuperstar(t *testing.T) {
	store := &MockStore{}
	platform := &MockPlatform{
		SendDMFunc: func(userID, content string) error { return forbiddenErr() },
	}
	e := newTestEngine(store, platform, &MockSink{})
	defer e.Close()

	_, err := e.Apply(context.Background(), ApplyRequest{
		GuildID: "guild",
		UserID:  "42",
		Type:    model.TypeSuperstar,
		Reason:  "bad nick",
	})
	require.ErrorIs(t, err, ErrNotifyRequired)
	assert.Equal(t, []int64{1}, store.Deleted)
	assert.Equal(t, 0, platform.CallCount("setNickname"))
}

func TestApplyDurationOnPermanentTypeRejected(t *testing.T) {
	e := newTestEngine(&MockStore{}, &MockPlatform{}, &MockSink{})
	defer e.Close()

	expiry := time.Now().Add(time.Hour)
	_, err := e.Apply(context.Background(), ApplyRequest{
		GuildID:   "guild",
		UserID:    "42",
		Type:      model.TypeWarning,
		ExpiresAt: &expiry,
	})
	assert.ErrorIs(t, err, ErrDurationNotAllowed)
}

func TestBanRemovesWatchEntry(t *testing.T) {
	wl := &MockWatchlist{
		UnwatchFunc: func(ctx context.Context, userID string) error { return nil },
	}
	e := newTestEngineWatch(&MockStore{}, &MockPlatform{}, wl, &MockSink{})
	defer e.Close()

	_, err := e.Apply(context.Background(), ApplyRequest{
		GuildID: "guild",
		UserID:  "42",
		Type:    model.TypeBan,
		Hidden:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"42"}, wl.Unwatches)
}

func TestBanKeepsRelayCacheInSync(t *testing.T) {
	relay := watch.New(&fakeWatchSite{entries: map[string]model.WatchEntry{
		"42": {UserID: "42"},
	}}, nil, "staff")
	require.NoError(t, relay.Init(context.Background()))
	require.True(t, relay.Watched("42"))

	e := newTestEngineWatch(&MockStore{}, &MockPlatform{}, relay, &MockSink{})
	defer e.Close()

	_, err := e.Apply(context.Background(), ApplyRequest{
		GuildID: "guild",
		UserID:  "42",
		Type:    model.TypeBan,
		Hidden:  true,
	})
	require.NoError(t, err)
	assert.False(t, relay.Watched("42"), "relay must stop relaying a banned user immediately")
}

func TestDeactivateIdempotent(t *testing.T) {
	calls := 0
	store := &MockStore{
		GetInfractionFunc: func(ctx context.Context, id int64) (*model.Infraction, error) {
			calls++
			// Second lookup sees the already-deactivated record.
			return &model.Infraction{ID: id, Type: model.TypeTimeout, UserID: "42", Active: calls == 1}, nil
		},
	}
	platform := &MockPlatform{}
	e := newTestEngine(store, platform, &MockSink{})
	defer e.Close()

	inf := &model.Infraction{ID: 3, Type: model.TypeTimeout, UserID: "42", Active: true}
	require.NoError(t, e.Deactivate(context.Background(), inf, "pardoned"))
	require.NoError(t, e.Deactivate(context.Background(), inf, "pardoned"))

	assert.Len(t, store.DeactivatePatches(), 1)
	assert.Equal(t, 1, platform.CallCount("removeTimeout"))
}

func TestDeactivatePardonFailureStillPatchesAndPings(t *testing.T) {
	store := &MockStore{
		GetInfractionFunc: func(ctx context.Context, id int64) (*model.Infraction, error) {
			return &model.Infraction{ID: id, Type: model.TypeBan, UserID: "42", Active: true}, nil
		},
	}
	platform := &MockPlatform{
		UnbanMemberFunc: func(guildID, userID string) error { return forbiddenErr() },
	}
	sink := &MockSink{}
	e := newTestEngine(store, platform, sink)
	defer e.Close()

	inf := &model.Infraction{ID: 4, Type: model.TypeBan, UserID: "42", Active: true}
	require.NoError(t, e.Deactivate(context.Background(), inf, "pardoned"))

	assert.Len(t, store.DeactivatePatches(), 1)
	require.NotNil(t, sink.Last())
	assert.True(t, sink.Last().PingMods)
	assert.Contains(t, sink.Last().Body, "Failures")
}

func TestDeactivateNotesWatchedUser(t *testing.T) {
	wl := &MockWatchlist{WatchedFunc: func(userID string) bool { return true }}
	sink := &MockSink{}
	e := newTestEngineWatch(&MockStore{}, &MockPlatform{}, wl, sink)
	defer e.Close()

	inf := &model.Infraction{ID: 9, Type: model.TypeTimeout, UserID: "42", Active: true}
	require.NoError(t, e.Deactivate(context.Background(), inf, "pardoned"))

	require.NotNil(t, sink.Last())
	assert.Contains(t, sink.Last().Body, "currently being watched")
}

func TestPardonReasonExpiredIsNotTreatedAsExpiry(t *testing.T) {
	store := &MockStore{
		GetInfractionFunc: func(ctx context.Context, id int64) (*model.Infraction, error) {
			return &model.Infraction{ID: id, Type: model.TypeTimeout, UserID: "42", Active: true}, nil
		},
	}
	e := newTestEngine(store, &MockPlatform{}, &MockSink{})
	defer e.Close()

	// A moderator who literally types "expired" still gets it recorded.
	inf := &model.Infraction{ID: 5, Type: model.TypeTimeout, UserID: "42", Active: true}
	require.NoError(t, e.Deactivate(context.Background(), inf, "expired"))

	patches := store.DeactivatePatches()
	require.Len(t, patches, 1)
	require.NotNil(t, patches[0].Reason)
	assert.Equal(t, "Pardoned: expired", *patches[0].Reason)
}

func TestNaturalExpiryLeavesReasonUntouched(t *testing.T) {
	store := &MockStore{
		GetInfractionFunc: func(ctx context.Context, id int64) (*model.Infraction, error) {
			return &model.Infraction{ID: id, Type: model.TypeTimeout, UserID: "42", Reason: "spamming", Active: true}, nil
		},
	}
	e := newTestEngine(store, &MockPlatform{}, &MockSink{})
	defer e.Close()

	inf := &model.Infraction{ID: 6, Type: model.TypeTimeout, UserID: "42", Reason: "spamming", Active: true}
	require.NoError(t, e.expire(context.Background(), inf))

	patches := store.DeactivatePatches()
	require.Len(t, patches, 1)
	assert.Nil(t, patches[0].Reason)
}

func TestPardonNoActiveInfraction(t *testing.T) {
	e := newTestEngine(&MockStore{}, &MockPlatform{}, &MockSink{})
	defer e.Close()

	_, err := e.Pardon(context.Background(), model.TypeTimeout, "42", "sorry")
	assert.ErrorIs(t, err, ErrNoActiveInfraction)
}

func TestEditExpiryReschedules(t *testing.T) {
	oldExpiry := time.Now().Add(time.Hour)
	store := &MockStore{
		GetInfractionFunc: func(ctx context.Context, id int64) (*model.Infraction, error) {
			return &model.Infraction{ID: id, Type: model.TypeTimeout, UserID: "42", Active: true, ExpiresAt: &oldExpiry}, nil
		},
		PatchInfractionFunc: func(ctx context.Context, id int64, patch site.InfractionPatch) (*model.Infraction, error) {
			return &model.Infraction{ID: id, Type: model.TypeTimeout, UserID: "42", Active: true, ExpiresAt: patch.ExpiresAt}, nil
		},
	}
	platform := &MockPlatform{}
	e := newTestEngine(store, platform, &MockSink{})
	defer e.Close()

	// Seed the original task far in the future so it could never fire
	// on its own during the test.
	e.scheduleExpiry(&model.Infraction{ID: 8, Type: model.TypeTimeout, UserID: "42", ExpiresAt: &oldExpiry})
	require.True(t, e.Scheduled(8))

	newExpiry := time.Now().Add(30 * time.Millisecond)
	_, err := e.EditExpiry(context.Background(), 8, nil, &newExpiry)
	require.NoError(t, err)
	assert.True(t, e.Scheduled(8))

	// The task now fires at the new, earlier expiry; the old one is gone.
	assert.Eventually(t, func() bool {
		return len(store.DeactivatePatches()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.False(t, e.Scheduled(8))
}

func TestEditExpiryRejectsInactiveAndPermanentTypes(t *testing.T) {
	store := &MockStore{
		GetInfractionFunc: func(ctx context.Context, id int64) (*model.Infraction, error) {
			if id == 1 {
				return &model.Infraction{ID: id, Type: model.TypeTimeout, Active: false}, nil
			}
			return &model.Infraction{ID: id, Type: model.TypeNote, Active: true}, nil
		},
	}
	e := newTestEngine(store, &MockPlatform{}, &MockSink{})
	defer e.Close()

	expiry := time.Now().Add(time.Hour)
	_, err := e.EditExpiry(context.Background(), 1, nil, &expiry)
	assert.ErrorIs(t, err, ErrAlreadyInactive)

	_, err = e.EditExpiry(context.Background(), 2, nil, &expiry)
	assert.ErrorIs(t, err, ErrDurationNotAllowed)
}

func TestRescheduleAllChainsPastPageLimit(t *testing.T) {
	far := time.Now().Add(time.Hour)
	later := time.Now().Add(2 * time.Hour)
	pages := 0
	store := &MockStore{
		ListInfractionsFunc: func(ctx context.Context, filter site.InfractionFilter) ([]model.Infraction, error) {
			pages++
			// A full page: the engine must chain a follow-up call.
			return []model.Infraction{
				{ID: 1, Type: model.TypeTimeout, UserID: "a", Active: true, ExpiresAt: &far},
				{ID: 2, Type: model.TypeBan, UserID: "b", Active: true, ExpiresAt: &far},
				{ID: 3, Type: model.TypeSuperstar, UserID: "c", Active: true, ExpiresAt: &later},
			}, nil
		},
	}
	e := newTestEngine(store, &MockPlatform{}, &MockSink{})
	defer e.Close()

	require.NoError(t, e.RescheduleAll(context.Background()))
	assert.True(t, e.Scheduled(1))
	assert.True(t, e.Scheduled(2))
	assert.True(t, e.Scheduled(3))
	assert.True(t, e.sched.Contains(rescheduleKey))
	assert.Equal(t, 1, pages)

	// Running it again must not disturb existing tasks.
	require.NoError(t, e.RescheduleAll(context.Background()))
	assert.Equal(t, 2, pages)
	assert.Equal(t, 4, e.sched.Len(), "3 infractions + 1 chained reschedule, nothing duplicated")
}

func TestReapplyOnRejoin(t *testing.T) {
	soon := time.Now().Add(10 * time.Second) // inside the 1m threshold
	later := time.Now().Add(time.Hour)
	store := &MockStore{
		ListInfractionsFunc: func(ctx context.Context, filter site.InfractionFilter) ([]model.Infraction, error) {
			return []model.Infraction{
				{ID: 1, Type: model.TypeTimeout, UserID: "42", GuildID: "guild", Active: true, ExpiresAt: &soon},
				{ID: 2, Type: model.TypeSuperstar, UserID: "42", GuildID: "guild", Active: true, ExpiresAt: &later},
			}, nil
		},
		GetInfractionFunc: func(ctx context.Context, id int64) (*model.Infraction, error) {
			return &model.Infraction{ID: id, Type: model.TypeTimeout, UserID: "42", Active: true}, nil
		},
	}
	platform := &MockPlatform{}
	e := newTestEngine(store, platform, &MockSink{})
	defer e.Close()

	require.NoError(t, e.ReapplyOnRejoin(context.Background(), "42"))

	// Near-expiry timeout was deactivated, not reapplied; the
	// long-lived superstar lock was silently reapplied.
	assert.Equal(t, 0, platform.CallCount("timeout"))
	assert.Len(t, store.DeactivatePatches(), 1)
	assert.Equal(t, 1, platform.CallCount("setNickname"))
	assert.Equal(t, 0, platform.CallCount("sendDM"))
}

func TestWatchInfractionCreatesAndRemovesEntry(t *testing.T) {
	store := &MockStore{
		GetInfractionFunc: func(ctx context.Context, id int64) (*model.Infraction, error) {
			return &model.Infraction{ID: id, Type: model.TypeWatch, UserID: "42", Active: true}, nil
		},
	}
	siteWatches := &fakeWatchSite{}
	relay := watch.New(siteWatches, nil, "staff")
	e := newTestEngineWatch(store, &MockPlatform{}, relay, &MockSink{})
	defer e.Close()

	result, err := e.Apply(context.Background(), ApplyRequest{
		GuildID: "guild",
		UserID:  "42",
		ActorID: "7",
		Type:    model.TypeWatch,
		Hidden:  true,
	})
	require.NoError(t, err)
	assert.True(t, relay.Watched("42"), "watch infraction must start relaying immediately")

	require.NoError(t, e.Deactivate(context.Background(), result.Infraction, "nomination over"))
	assert.False(t, relay.Watched("42"))
}

func TestUnsupportedTypeRejected(t *testing.T) {
	e := newTestEngine(&MockStore{}, &MockPlatform{}, &MockSink{})
	defer e.Close()

	_, err := e.Apply(context.Background(), ApplyRequest{Type: model.InfractionType("exile")})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrDurationNotAllowed))
}
