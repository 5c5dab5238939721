package infractions

import (
	"context"
	"sync"
	"time"

	"sentinel-bot/model"
	"sentinel-bot/modlog"
	"sentinel-bot/site"
)

type MockStore struct {
	CreateInfractionFunc func(ctx context.Context, params site.InfractionParams) (*model.Infraction, error)
	GetInfractionFunc    func(ctx context.Context, id int64) (*model.Infraction, error)
	ListInfractionsFunc  func(ctx context.Context, filter site.InfractionFilter) ([]model.Infraction, error)
	PatchInfractionFunc  func(ctx context.Context, id int64, patch site.InfractionPatch) (*model.Infraction, error)
	DeleteInfractionFunc func(ctx context.Context, id int64) error
	CreateUserFunc       func(ctx context.Context, user model.SiteUser) error

	mu      sync.Mutex
	Patches []site.InfractionPatch
	Deleted []int64
}

func (m *MockStore) CreateInfraction(ctx context.Context, params site.InfractionParams) (*model.Infraction, error) {
	if m.CreateInfractionFunc != nil {
		return m.CreateInfractionFunc(ctx, params)
	}
	return &model.Infraction{
		ID:      1,
		Type:    params.Type,
		UserID:  params.UserID,
		ActorID: params.ActorID,
		GuildID: params.GuildID,
		Reason:  params.Reason,
		Hidden:  params.Hidden,
		Active:  true,
		// The site assigns timestamps; mirror the expiry back.
		ExpiresAt:  params.ExpiresAt,
		InsertedAt: time.Now(),
	}, nil
}

func (m *MockStore) GetInfraction(ctx context.Context, id int64) (*model.Infraction, error) {
	if m.GetInfractionFunc != nil {
		return m.GetInfractionFunc(ctx, id)
	}
	return &model.Infraction{ID: id, Active: true, Type: model.TypeTimeout}, nil
}

func (m *MockStore) ListInfractions(ctx context.Context, filter site.InfractionFilter) ([]model.Infraction, error) {
	if m.ListInfractionsFunc != nil {
		return m.ListInfractionsFunc(ctx, filter)
	}
	return nil, nil
}

func (m *MockStore) PatchInfraction(ctx context.Context, id int64, patch site.InfractionPatch) (*model.Infraction, error) {
	m.mu.Lock()
	m.Patches = append(m.Patches, patch)
	m.mu.Unlock()
	if m.PatchInfractionFunc != nil {
		return m.PatchInfractionFunc(ctx, id, patch)
	}
	return &model.Infraction{ID: id}, nil
}

func (m *MockStore) DeleteInfraction(ctx context.Context, id int64) error {
	m.mu.Lock()
	m.Deleted = append(m.Deleted, id)
	m.mu.Unlock()
	if m.DeleteInfractionFunc != nil {
		return m.DeleteInfractionFunc(ctx, id)
	}
	return nil
}

func (m *MockStore) CreateUser(ctx context.Context, user model.SiteUser) error {
	if m.CreateUserFunc != nil {
		return m.CreateUserFunc(ctx, user)
	}
	return nil
}

// DeactivatePatches returns the recorded patches that set active=false.
func (m *MockStore) DeactivatePatches() []site.InfractionPatch {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []site.InfractionPatch
	for _, p := range m.Patches {
		if p.Active != nil && !*p.Active {
			out = append(out, p)
		}
	}
	return out
}

type MockWatchlist struct {
	WatchedFunc func(userID string) bool
	WatchFunc   func(ctx context.Context, entry model.WatchEntry) error
	UnwatchFunc func(ctx context.Context, userID string) error

	mu        sync.Mutex
	Watches   []model.WatchEntry
	Unwatches []string
}

func (m *MockWatchlist) Watched(userID string) bool {
	if m.WatchedFunc != nil {
		return m.WatchedFunc(userID)
	}
	return false
}

func (m *MockWatchlist) Watch(ctx context.Context, entry model.WatchEntry) error {
	m.mu.Lock()
	m.Watches = append(m.Watches, entry)
	m.mu.Unlock()
	if m.WatchFunc != nil {
		return m.WatchFunc(ctx, entry)
	}
	return nil
}

func (m *MockWatchlist) Unwatch(ctx context.Context, userID string) error {
	m.mu.Lock()
	m.Unwatches = append(m.Unwatches, userID)
	m.mu.Unlock()
	if m.UnwatchFunc != nil {
		return m.UnwatchFunc(ctx, userID)
	}
	return site.ErrNotFound
}

// fakeWatchSite is an in-memory stand-in for the site's watch
// endpoints, used when a test wires a real watch.Relay to the engine.
type fakeWatchSite struct {
	mu      sync.Mutex
	entries map[string]model.WatchEntry
}

func (f *fakeWatchSite) ListWatches(ctx context.Context) ([]model.WatchEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]model.WatchEntry, 0, len(f.entries))
	for _, entry := range f.entries {
		out = append(out, entry)
	}
	return out, nil
}

func (f *fakeWatchSite) CreateWatch(ctx context.Context, entry model.WatchEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.entries == nil {
		f.entries = make(map[string]model.WatchEntry)
	}
	if _, ok := f.entries[entry.UserID]; ok {
		return site.ErrConflict
	}
	f.entries[entry.UserID] = entry
	return nil
}

func (f *fakeWatchSite) DeleteWatch(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.entries[userID]; !ok {
		return site.ErrNotFound
	}
	delete(f.entries, userID)
	return nil
}

type MockPlatform struct {
	TimeoutMemberFunc   func(guildID, userID string, until *time.Time) error
	BanMemberFunc       func(guildID, userID, reason string, purgeDays int) error
	UnbanMemberFunc     func(guildID, userID string) error
	KickMemberFunc      func(guildID, userID, reason string) error
	AddRoleFunc         func(guildID, userID, roleID string) error
	RemoveRoleFunc      func(guildID, userID, roleID string) error
	SetNicknameFunc     func(guildID, userID, nick string) error
	DisconnectVoiceFunc func(guildID, userID string) error
	SendDMFunc          func(userID, content string) error
	BotOutranksFunc     func(guildID, userID string) (bool, error)

	mu    sync.Mutex
	Calls []string
}

func (m *MockPlatform) record(name string) {
	m.mu.Lock()
	m.Calls = append(m.Calls, name)
	m.mu.Unlock()
}

// CallCount returns how often the named method was invoked.
func (m *MockPlatform) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, c := range m.Calls {
		if c == name {
			n++
		}
	}
	return n
}

func (m *MockPlatform) TimeoutMember(guildID, userID string, until *time.Time) error {
	if until == nil {
		m.record("removeTimeout")
	} else {
		m.record("timeout")
	}
	if m.TimeoutMemberFunc != nil {
		return m.TimeoutMemberFunc(guildID, userID, until)
	}
	return nil
}

func (m *MockPlatform) BanMember(guildID, userID, reason string, purgeDays int) error {
	m.record("ban")
	if m.BanMemberFunc != nil {
		return m.BanMemberFunc(guildID, userID, reason, purgeDays)
	}
	return nil
}

func (m *MockPlatform) UnbanMember(guildID, userID string) error {
	m.record("unban")
	if m.UnbanMemberFunc != nil {
		return m.UnbanMemberFunc(guildID, userID)
	}
	return nil
}

func (m *MockPlatform) KickMember(guildID, userID, reason string) error {
	m.record("kick")
	if m.KickMemberFunc != nil {
		return m.KickMemberFunc(guildID, userID, reason)
	}
	return nil
}

func (m *MockPlatform) AddRole(guildID, userID, roleID string) error {
	m.record("addRole")
	if m.AddRoleFunc != nil {
		return m.AddRoleFunc(guildID, userID, roleID)
	}
	return nil
}

func (m *MockPlatform) RemoveRole(guildID, userID, roleID string) error {
	m.record("removeRole")
	if m.RemoveRoleFunc != nil {
		return m.RemoveRoleFunc(guildID, userID, roleID)
	}
	return nil
}

func (m *MockPlatform) SetNickname(guildID, userID, nick string) error {
	m.record("setNickname")
	if m.SetNicknameFunc != nil {
		return m.SetNicknameFunc(guildID, userID, nick)
	}
	return nil
}

func (m *MockPlatform) DisconnectVoice(guildID, userID string) error {
	m.record("disconnectVoice")
	if m.DisconnectVoiceFunc != nil {
		return m.DisconnectVoiceFunc(guildID, userID)
	}
	return nil
}

func (m *MockPlatform) SendDM(userID, content string) error {
	m.record("sendDM")
	if m.SendDMFunc != nil {
		return m.SendDMFunc(userID, content)
	}
	return nil
}

func (m *MockPlatform) BotOutranks(guildID, userID string) (bool, error) {
	if m.BotOutranksFunc != nil {
		return m.BotOutranksFunc(guildID, userID)
	}
	return true, nil
}

type MockSink struct {
	mu      sync.Mutex
	Entries []modlog.Entry
}

func (m *MockSink) Post(entry modlog.Entry) {
	m.mu.Lock()
	m.Entries = append(m.Entries, entry)
	m.mu.Unlock()
}

func (m *MockSink) Last() *modlog.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Entries) == 0 {
		return nil
	}
	entry := m.Entries[len(m.Entries)-1]
	return &entry
}
