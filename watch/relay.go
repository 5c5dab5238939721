// Package watch relays messages from monitored users into a staff
// channel. Watch entries live on the site; the relay keeps a local
// cache that is rebuilt on startup and kept in sync by the watch and
// unwatch paths.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"sentinel-bot/model"
	"sentinel-bot/site"
)

// Store is the slice of the site API the relay depends on.
type Store interface {
	ListWatches(ctx context.Context) ([]model.WatchEntry, error)
	CreateWatch(ctx context.Context, entry model.WatchEntry) error
	DeleteWatch(ctx context.Context, userID string) error
}

// Sender posts relayed content to a channel.
type Sender interface {
	SendMessage(channelID, content string) error
}

// Relay watches the message stream for monitored users.
type Relay struct {
	store          Store
	sender         Sender
	staffChannelID string

	mu      sync.Mutex
	watched map[string]model.WatchEntry
	// lastUserID/lastChannelID track the previous relayed message so
	// consecutive messages from one user in one channel are
	// consolidated under a single header.
	lastUserID    string
	lastChannelID string
}

// New creates a relay. Call Init before use.
func New(store Store, sender Sender, staffChannelID string) *Relay {
	return &Relay{
		store:          store,
		sender:         sender,
		staffChannelID: staffChannelID,
		watched:        make(map[string]model.WatchEntry),
	}
}

// Init rebuilds the watched-user cache from the site.
func (r *Relay) Init(ctx context.Context) error {
	entries, err := r.store.ListWatches(ctx)
	if err != nil {
		return fmt.Errorf("failed to load watch entries: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.watched = make(map[string]model.WatchEntry, len(entries))
	for _, entry := range entries {
		r.watched[entry.UserID] = entry
	}
	log.Printf("Watch relay initialized with %d watched users", len(entries))
	return nil
}

// Clear drops the cache and consolidation state.
func (r *Relay) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.watched = make(map[string]model.WatchEntry)
	r.lastUserID = ""
	r.lastChannelID = ""
}

// Watched reports whether userID is currently monitored.
func (r *Relay) Watched(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.watched[userID]
	return ok
}

// Watch adds a watch entry on the site and in the cache. A conflict
// means the site already has the entry; the cache is synced to match
// and the conflict is still reported to the caller.
func (r *Relay) Watch(ctx context.Context, entry model.WatchEntry) error {
	err := r.store.CreateWatch(ctx, entry)
	if err != nil && !errors.Is(err, site.ErrConflict) {
		return err
	}

	r.mu.Lock()
	r.watched[entry.UserID] = entry
	r.mu.Unlock()
	return err
}

// Unwatch removes the watch entry on the site and in the cache. When
// the site has no entry the cache is cleared anyway so the two cannot
// stay out of step.
func (r *Relay) Unwatch(ctx context.Context, userID string) error {
	err := r.store.DeleteWatch(ctx, userID)
	if err != nil && !errors.Is(err, site.ErrNotFound) {
		return err
	}

	r.mu.Lock()
	delete(r.watched, userID)
	r.mu.Unlock()
	return err
}

// HandleMessage relays the message if its author is watched.
// Consecutive messages by the same user in the same channel are
// relayed without repeating the header.
func (r *Relay) HandleMessage(authorID, authorName, channelID, content string) {
	r.mu.Lock()
	_, ok := r.watched[authorID]
	if !ok {
		r.mu.Unlock()
		return
	}
	repeat := r.lastUserID == authorID && r.lastChannelID == channelID
	r.lastUserID = authorID
	r.lastChannelID = channelID
	r.mu.Unlock()

	relayed := content
	if !repeat {
		relayed = fmt.Sprintf("**%s** (`%s`) in <#%s>:\n%s", authorName, authorID, channelID, content)
	}
	if err := r.sender.SendMessage(r.staffChannelID, relayed); err != nil {
		log.Printf("Failed to relay message from %s: %v", authorID, err)
	}
}
