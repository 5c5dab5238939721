// Package infractions implements the moderation infraction lifecycle:
// apply an action on the guild, persist it with the site, schedule its
// expiry, and deactivate it again through pardon or expiration.
package infractions

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"sentinel-bot/model"
	"sentinel-bot/modlog"
	"sentinel-bot/scheduler"
	"sentinel-bot/site"
)

// Store is the slice of the site API the engine depends on.
type Store interface {
	CreateInfraction(ctx context.Context, params site.InfractionParams) (*model.Infraction, error)
	GetInfraction(ctx context.Context, id int64) (*model.Infraction, error)
	ListInfractions(ctx context.Context, filter site.InfractionFilter) ([]model.Infraction, error)
	PatchInfraction(ctx context.Context, id int64, patch site.InfractionPatch) (*model.Infraction, error)
	DeleteInfraction(ctx context.Context, id int64) error
	CreateUser(ctx context.Context, user model.SiteUser) error
}

// Watchlist is the watch relay surface the engine drives. Going
// through the relay keeps its in-memory cache in sync with the watch
// entries the engine creates and removes.
type Watchlist interface {
	Watched(userID string) bool
	Watch(ctx context.Context, entry model.WatchEntry) error
	Unwatch(ctx context.Context, userID string) error
}

// Config carries the guild-specific knobs the engine needs.
type Config struct {
	VoiceVerifiedRoleID string
	// PageSize bounds one restart-recovery fetch. Records past the
	// page are picked up by a chained reschedule at the last fetched
	// expiry.
	PageSize int
	// RejoinThreshold is how close to expiry a rejoin reapplication is
	// pointless and the infraction is deactivated instead.
	RejoinThreshold time.Duration
}

// rescheduleKey is the scheduler key for the chained recovery call; it
// can never collide with infraction IDs, which are numeric.
const rescheduleKey = "reschedule"

// Engine orchestrates the infraction lifecycle.
type Engine struct {
	platform  Platform
	store     Store
	watchlist Watchlist
	sched     *scheduler.Scheduler
	audit     modlog.Sink
	cfg       Config

	mu           sync.Mutex
	deactivating map[int64]struct{}
}

// New creates an engine. The scheduler is owned by the engine and torn
// down by Close.
func New(platform Platform, store Store, watchlist Watchlist, audit modlog.Sink, cfg Config) *Engine {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.RejoinThreshold <= 0 {
		cfg.RejoinThreshold = time.Minute
	}
	return &Engine{
		platform:     platform,
		store:        store,
		watchlist:    watchlist,
		sched:        scheduler.New("infractions"),
		audit:        audit,
		cfg:          cfg,
		deactivating: make(map[int64]struct{}),
	}
}

// Close cancels every pending expiry timer.
func (e *Engine) Close() {
	e.sched.CancelAll()
}

// Scheduled reports whether an expiry task is pending for id.
func (e *Engine) Scheduled(id int64) bool {
	return e.sched.Contains(taskKey(id))
}

func taskKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ApplyRequest describes a new infraction to apply.
type ApplyRequest struct {
	GuildID   string
	UserID    string
	UserName  string // for remedial site user creation
	ActorID   string
	Type      model.InfractionType
	Reason    string
	Hidden    bool
	ExpiresAt *time.Time
	PurgeDays int
}

// ApplyResult reports what actually happened, including soft failures
// that did not abort the infraction.
type ApplyResult struct {
	Infraction *model.Infraction
	DMSent     bool
	Notes      []string
}

// Apply runs the full apply path: pre-checks, persistence, user
// notification, the platform side effect and expiry scheduling.
//
// Expected negative outcomes come back as typed errors: ConflictError,
// HierarchyError, ErrDurationNotAllowed, ErrNotifyRequired and
// ApplyFailedError (the latter two after rolling the record back).
func (e *Engine) Apply(ctx context.Context, req ApplyRequest) (*ApplyResult, error) {
	a, err := applierFor(req.Type)
	if err != nil {
		return nil, err
	}
	if req.ExpiresAt != nil && !req.Type.Expires() {
		return nil, ErrDurationNotAllowed
	}

	// Hierarchy is checked before anything is persisted.
	if req.Type == model.TypeBan || req.Type == model.TypeKick {
		outranks, err := e.platform.BotOutranks(req.GuildID, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to check role hierarchy: %w", err)
		}
		if !outranks {
			return nil, &HierarchyError{UserID: req.UserID}
		}
	}

	// Best-effort conflict pre-check. A rare double-create between the
	// check and the create is accepted; the second record is left for
	// a moderator to reconcile.
	if req.Type.Exclusive() {
		existing, err := e.store.ListInfractions(ctx, site.InfractionFilter{
			Active: true,
			Types:  []model.InfractionType{req.Type},
			UserID: req.UserID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to check for an existing %s: %w", req.Type, err)
		}
		if len(existing) > 0 {
			return nil, &ConflictError{Type: req.Type, ExistingID: existing[0].ID}
		}
	}

	inf, err := e.persist(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &ApplyResult{Infraction: inf}

	// Notify before applying so a mandatory-notification type can
	// still abort cleanly.
	if !req.Hidden {
		if dmErr := e.platform.SendDM(inf.UserID, e.dmBody(inf)); dmErr != nil {
			if a.mandatoryDM {
				e.rollback(ctx, inf, "user could not be notified")
				return nil, ErrNotifyRequired
			}
			result.Notes = append(result.Notes, "DM Failed")
			log.Printf("Could not DM %s about infraction #%d: %v", inf.UserID, inf.ID, dmErr)
		} else {
			result.DMSent = true
		}
	}

	if a.apply != nil {
		if applyErr := a.apply(ctx, e, inf); applyErr != nil {
			e.rollback(ctx, inf, applyErr.Error())
			return nil, &ApplyFailedError{Cause: applyErr}
		}
	}

	// dm_sent is recorded best-effort; the infraction stands either way.
	dmSent := result.DMSent
	now := time.Now()
	if _, patchErr := e.store.PatchInfraction(ctx, inf.ID, site.InfractionPatch{
		DMSent:      &dmSent,
		LastApplied: &now,
	}); patchErr != nil {
		log.Printf("Failed to record dm_sent for infraction #%d: %v", inf.ID, patchErr)
	}

	if inf.ExpiresAt != nil {
		e.scheduleExpiry(inf)
	}

	e.audit.Post(modlog.Entry{
		Title:    fmt.Sprintf("Infraction applied: %s", inf.Type),
		Severity: modlog.Info,
		Body:     e.describeInfraction(inf, result.Notes),
		FooterID: inf.ID,
	})
	return result, nil
}

// persist creates the record, creating the site user and retrying
// exactly once if the site does not know the target yet.
func (e *Engine) persist(ctx context.Context, req ApplyRequest) (*model.Infraction, error) {
	params := site.InfractionParams{
		Type:      req.Type,
		UserID:    req.UserID,
		ActorID:   req.ActorID,
		GuildID:   req.GuildID,
		Reason:    req.Reason,
		Hidden:    req.Hidden,
		Active:    true,
		ExpiresAt: req.ExpiresAt,
		PurgeDays: req.PurgeDays,
	}

	inf, err := e.store.CreateInfraction(ctx, params)
	if errors.Is(err, site.ErrUnknownUser) {
		log.Printf("Site does not know user %s, creating a user record and retrying", req.UserID)
		if userErr := e.store.CreateUser(ctx, model.SiteUser{
			ID:      req.UserID,
			Name:    req.UserName,
			InGuild: true,
		}); userErr != nil {
			return nil, fmt.Errorf("failed to create site user %s: %w", req.UserID, userErr)
		}
		inf, err = e.store.CreateInfraction(ctx, params)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to persist infraction: %w", err)
	}
	return inf, nil
}

// rollback deletes a record whose platform action never took effect and
// pings the moderators so the failure is never silent.
func (e *Engine) rollback(ctx context.Context, inf *model.Infraction, cause string) {
	if err := e.store.DeleteInfraction(ctx, inf.ID); err != nil {
		log.Printf("Failed to roll back infraction #%d: %v", inf.ID, err)
	}
	e.audit.Post(modlog.Entry{
		Title:    fmt.Sprintf("Infraction failed: %s", inf.Type),
		Severity: modlog.Error,
		Body:     fmt.Sprintf("Could not apply %s to <@%s>: %s. The record has been removed.", inf.Type, inf.UserID, cause),
		FooterID: inf.ID,
		PingMods: true,
	})
}

func (e *Engine) scheduleExpiry(inf *model.Infraction) {
	record := *inf
	e.sched.ScheduleAt(taskKey(inf.ID), *inf.ExpiresAt, func(ctx context.Context) error {
		return e.expire(ctx, &record)
	})
}

// Pardon deactivates the user's active infraction of the given type.
// Returns ErrNoActiveInfraction if there is none.
func (e *Engine) Pardon(ctx context.Context, typ model.InfractionType, userID, reason string) (*model.Infraction, error) {
	active, err := e.store.ListInfractions(ctx, site.InfractionFilter{
		Active: true,
		Types:  []model.InfractionType{typ},
		UserID: userID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up active %s for %s: %w", typ, userID, err)
	}
	if len(active) == 0 {
		return nil, ErrNoActiveInfraction
	}

	inf := &active[0]
	if err := e.Deactivate(ctx, inf, reason); err != nil {
		return nil, err
	}
	return inf, nil
}

// Deactivate ends an infraction on behalf of a moderator; the reason
// is appended to the record. Natural expiry goes through expire
// instead.
func (e *Engine) Deactivate(ctx context.Context, inf *model.Infraction, reason string) error {
	return e.deactivate(ctx, inf, reason, false)
}

// expire ends an infraction because its expiry was reached; the record
// reason is left untouched.
func (e *Engine) expire(ctx context.Context, inf *model.Infraction) error {
	return e.deactivate(ctx, inf, "expired", true)
}

// deactivate is the single convergence point for manual pardons and
// automatic expiry. It is idempotent: a second call for the same ID,
// or a call racing an about-to-fire expiry task, is a no-op.
//
// Sub-step failures are collected and reported; deactivation is
// best-effort and never silently lost.
func (e *Engine) deactivate(ctx context.Context, inf *model.Infraction, reason string, expired bool) error {
	e.mu.Lock()
	if _, busy := e.deactivating[inf.ID]; busy {
		e.mu.Unlock()
		return nil
	}
	e.deactivating[inf.ID] = struct{}{}
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.deactivating, inf.ID)
		e.mu.Unlock()
	}()

	var notes []string

	// Refresh: the record may already have been deactivated.
	fresh, err := e.store.GetInfraction(ctx, inf.ID)
	switch {
	case err != nil:
		notes = append(notes, fmt.Sprintf("Could not refresh record: %v", err))
	case !fresh.Active:
		e.sched.Cancel(taskKey(inf.ID))
		return nil
	default:
		inf = fresh
	}

	a, err := applierFor(inf.Type)
	if err != nil {
		return err
	}
	if a.pardon != nil {
		if pardonErr := a.pardon(ctx, e, inf); pardonErr != nil {
			notes = append(notes, classifyPardonFailure(inf, pardonErr))
		}
	}

	// Watch status is audit context only.
	if inf.Type != model.TypeWatch && e.watchlist.Watched(inf.UserID) {
		notes = append(notes, "User is currently being watched")
	}

	active := false
	patch := site.InfractionPatch{Active: &active}
	if reason != "" && !expired {
		combined := inf.Reason
		if combined != "" {
			combined += " | "
		}
		combined += "Pardoned: " + reason
		patch.Reason = &combined
	}
	if _, patchErr := e.store.PatchInfraction(ctx, inf.ID, patch); patchErr != nil {
		notes = append(notes, fmt.Sprintf("Failed to deactivate record: %v", patchErr))
	}

	// Cancel regardless of patch outcome so the task never refires.
	e.sched.Cancel(taskKey(inf.ID))

	entry := modlog.Entry{
		Title:    fmt.Sprintf("Infraction ended: %s", inf.Type),
		Severity: modlog.Info,
		Body:     fmt.Sprintf("<@%s>'s %s is over (%s).", inf.UserID, inf.Type, reason),
		FooterID: inf.ID,
	}
	if len(notes) > 0 {
		entry.Severity = modlog.Warn
		entry.Body += "\n**Failures:** " + strings.Join(notes, "; ")
		entry.PingMods = true
	}
	e.audit.Post(entry)
	return nil
}

func classifyPardonFailure(inf *model.Infraction, err error) string {
	switch {
	case IsForbidden(err):
		return fmt.Sprintf("Missing permissions to undo %s", inf.Type)
	case IsNotFound(err):
		return "User has left the guild"
	default:
		return fmt.Sprintf("Failed to undo %s: %v", inf.Type, err)
	}
}

// EditExpiry updates the reason and/or expiry of an active infraction
// and reschedules its expiry task to match.
func (e *Engine) EditExpiry(ctx context.Context, id int64, newReason *string, newExpiry *time.Time) (*model.Infraction, error) {
	inf, err := e.store.GetInfraction(ctx, id)
	if err != nil {
		return nil, err
	}
	if !inf.Active {
		return nil, ErrAlreadyInactive
	}
	if newExpiry != nil && !inf.Type.Expires() {
		return nil, ErrDurationNotAllowed
	}

	updated, err := e.store.PatchInfraction(ctx, id, site.InfractionPatch{
		Reason:    newReason,
		ExpiresAt: newExpiry,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update infraction #%d: %w", id, err)
	}

	if newExpiry != nil {
		updated.ExpiresAt = newExpiry
		e.sched.Cancel(taskKey(id))
		e.scheduleExpiry(updated)
	}
	return updated, nil
}

// Search fetches a user's infraction history. The site filters on the
// active flag, so "everything" takes two queries.
func (e *Engine) Search(ctx context.Context, userID string, activeOnly bool) ([]model.Infraction, error) {
	records, err := e.store.ListInfractions(ctx, site.InfractionFilter{
		Active: true,
		UserID: userID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list infractions for %s: %w", userID, err)
	}
	if activeOnly {
		return records, nil
	}

	inactive, err := e.store.ListInfractions(ctx, site.InfractionFilter{
		Active: false,
		UserID: userID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list infractions for %s: %w", userID, err)
	}
	return append(records, inactive...), nil
}

// RescheduleAll rebuilds expiry tasks after a restart. The fetch is
// page-limited; when a full page comes back, a follow-up call is
// chained at the last fetched expiry so later records are eventually
// picked up too.
func (e *Engine) RescheduleAll(ctx context.Context) error {
	types := make([]model.InfractionType, 0, len(model.SupportedTypes))
	for _, t := range model.SupportedTypes {
		if t.Expires() {
			types = append(types, t)
		}
	}

	batch, err := e.store.ListInfractions(ctx, site.InfractionFilter{
		Active:        true,
		Types:         types,
		Expires:       true,
		OrderByExpiry: true,
		Limit:         e.cfg.PageSize,
	})
	if err != nil {
		return fmt.Errorf("failed to fetch active infractions for rescheduling: %w", err)
	}

	scheduled := 0
	for i := range batch {
		inf := batch[i]
		if inf.ExpiresAt == nil || e.sched.Contains(taskKey(inf.ID)) {
			continue
		}
		e.scheduleExpiry(&inf)
		scheduled++
	}
	log.Printf("Rescheduled %d of %d fetched infractions", scheduled, len(batch))

	if len(batch) == e.cfg.PageSize {
		last := batch[len(batch)-1]
		if last.ExpiresAt != nil {
			e.sched.Cancel(rescheduleKey)
			e.sched.ScheduleAt(rescheduleKey, *last.ExpiresAt, func(ctx context.Context) error {
				return e.RescheduleAll(ctx)
			})
		}
	}
	return nil
}

// ReapplyOnRejoin re-checks a returning member for active reapplicable
// infractions. Within the rejoin threshold of expiry the infraction is
// deactivated instead; otherwise the platform action is reapplied
// silently and last_applied is bumped.
func (e *Engine) ReapplyOnRejoin(ctx context.Context, userID string) error {
	types := make([]model.InfractionType, 0, 2)
	for _, t := range model.SupportedTypes {
		if t.Reapplicable() {
			types = append(types, t)
		}
	}

	active, err := e.store.ListInfractions(ctx, site.InfractionFilter{
		Active: true,
		Types:  types,
		UserID: userID,
	})
	if err != nil {
		return fmt.Errorf("failed to check rejoin infractions for %s: %w", userID, err)
	}

	for i := range active {
		inf := active[i]
		if inf.ExpiresAt != nil && time.Until(*inf.ExpiresAt) < e.cfg.RejoinThreshold {
			if err := e.expire(ctx, &inf); err != nil {
				log.Printf("Failed to deactivate near-expiry infraction #%d on rejoin: %v", inf.ID, err)
			}
			continue
		}

		a, err := applierFor(inf.Type)
		if err != nil || a.apply == nil {
			continue
		}
		if applyErr := a.apply(ctx, e, &inf); applyErr != nil {
			e.audit.Post(modlog.Entry{
				Title:    fmt.Sprintf("Reapplication failed: %s", inf.Type),
				Severity: modlog.Warn,
				Body:     fmt.Sprintf("Could not reapply %s to returning user <@%s>: %v", inf.Type, inf.UserID, applyErr),
				FooterID: inf.ID,
				PingMods: true,
			})
			continue
		}

		now := time.Now()
		if _, patchErr := e.store.PatchInfraction(ctx, inf.ID, site.InfractionPatch{LastApplied: &now}); patchErr != nil {
			log.Printf("Failed to bump last_applied for infraction #%d: %v", inf.ID, patchErr)
		}
	}
	return nil
}

func (e *Engine) dmBody(inf *model.Infraction) string {
	expiry := "further notice"
	if inf.ExpiresAt != nil {
		expiry = inf.ExpiresAt.UTC().Format("2006-01-02 15:04 UTC")
	}
	reason := inf.Reason
	if reason == "" {
		reason = "No reason given"
	}

	if inf.Type == model.TypeSuperstar {
		return starDMBody(StarNickname(inf.ID, inf.UserID), reason, expiry)
	}
	return fmt.Sprintf("You have received a **%s** until %s.\nReason: %s", inf.Type, expiry, reason)
}

func (e *Engine) describeInfraction(inf *model.Infraction, notes []string) string {
	body := fmt.Sprintf("**Member:** <@%s>\n**Actor:** <@%s>\n**Reason:** %s", inf.UserID, inf.ActorID, inf.Reason)
	if inf.ExpiresAt != nil {
		body += "\n**Expires:** " + inf.ExpiresAt.UTC().Format("2006-01-02 15:04 UTC")
	}
	if len(notes) > 0 {
		body += "\n**Notes:** " + strings.Join(notes, "; ")
	}
	return body
}
