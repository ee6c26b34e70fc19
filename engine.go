package gatelist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kardianos/gatelist/store"
)

// ExistenceCheck selects when a gamertag is looked up with the Resolver.
type ExistenceCheck string

const (
	// CheckAtApproval resolves only when a reviewer approves. Unknown
	// gamertags can be submitted and fail at approval.
	CheckAtApproval ExistenceCheck = "approval"
	// CheckAtSubmission also resolves when the application is submitted and
	// rejects unknown gamertags early.
	CheckAtSubmission ExistenceCheck = "submission"
)

var errNoReloader = errors.New("gatelist: no reloader configured")

// EngineConfig holds the channel and role identifiers the engine checks.
type EngineConfig struct {
	// ApplyChannel is where users submit applications.
	ApplyChannel string

	// ReviewChannel is where reviewers approve, revoke and list approved names.
	ReviewChannel string

	// ReviewerRole is the role ID required to review.
	ReviewerRole string

	// ExistenceCheck defaults to CheckAtApproval.
	ExistenceCheck ExistenceCheck
}

// Deps are the collaborators of an Engine.
type Deps struct {
	Store    store.Store
	Resolver Resolver

	// Reloader is optional. Without it the reload command fails.
	Reloader Reloader

	// Ledger is optional. Nil creates a ledger with DefaultRateInterval.
	Ledger *Ledger

	// Logger is optional. Nil uses slog.Default.
	Logger *slog.Logger
}

// Engine runs the application workflow: submit, approve, revoke, list.
//
// Every command that reads and then writes the store holds mu for the whole
// load, check, resolve and save sequence, so two approvals that resolve to the
// same XUID cannot both pass the uniqueness check.
type Engine struct {
	cfg      EngineConfig
	store    store.Store
	resolver Resolver
	reloader Reloader
	ledger   *Ledger
	log      *slog.Logger

	mu sync.Mutex
}

// NewEngine validates the configuration and returns an engine.
func NewEngine(cfg EngineConfig, deps Deps) (*Engine, error) {
	if cfg.ApplyChannel == "" || cfg.ReviewChannel == "" {
		return nil, fmt.Errorf("apply and review channels are required")
	}
	if cfg.ReviewerRole == "" {
		return nil, fmt.Errorf("reviewer role is required")
	}
	switch cfg.ExistenceCheck {
	case "":
		cfg.ExistenceCheck = CheckAtApproval
	case CheckAtApproval, CheckAtSubmission:
	default:
		return nil, fmt.Errorf("unknown existence check %q", cfg.ExistenceCheck)
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	if deps.Ledger == nil {
		deps.Ledger = NewLedger(DefaultRateInterval, nil)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Engine{
		cfg:      cfg,
		store:    deps.Store,
		resolver: deps.Resolver,
		reloader: deps.Reloader,
		ledger:   deps.Ledger,
		log:      deps.Logger,
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// Submit files a pending application for gamertag on behalf of the caller.
func (e *Engine) Submit(ctx context.Context, c Caller, gamertag string) Reply {
	if c.ChannelID != e.cfg.ApplyChannel {
		return Reply{Kind: KindWrongChannel, Command: CommandApply}
	}
	if !ValidGamertag(gamertag) {
		return Reply{Kind: KindInvalidFormat, Gamertag: gamertag}
	}
	if ok, wait := e.ledger.Allow(c.UserID); !ok {
		return Reply{Kind: KindRateLimited, RetryAfter: wait}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	apps, err := e.store.LoadApplications(ctx)
	if err != nil {
		return e.storageFailure("submit", gamertag, err)
	}
	if _, exists := apps.Get(gamertag); exists {
		return Reply{Kind: KindDuplicateGamertag, Gamertag: gamertag}
	}
	if _, pending := apps.PendingFor(c.UserID); pending {
		return Reply{Kind: KindDuplicateRequester, Gamertag: gamertag}
	}

	if e.cfg.ExistenceCheck == CheckAtSubmission {
		if _, err := e.resolver.Resolve(ctx, gamertag); err != nil {
			if errors.Is(err, ErrPlayerNotFound) {
				return Reply{Kind: KindGamertagNotFound, Gamertag: gamertag}
			}
			e.log.Warn("gamertag lookup failed", "op", "submit", "gamertag", gamertag, "err", err)
			return Reply{Kind: KindResolutionFailed, Gamertag: gamertag, Err: err}
		}
	}

	apps.Put(gamertag, store.Application{RequesterID: c.UserID, Status: store.StatusPending})
	if err := e.store.SaveApplications(ctx, apps); err != nil {
		return e.storageFailure("submit", gamertag, err)
	}
	e.log.Info("application submitted", "gamertag", gamertag, "requester", c.UserID)
	return Reply{Kind: KindAccepted, Gamertag: gamertag}
}

// Approve resolves gamertag, adds it to the access list and marks the
// application approved.
func (e *Engine) Approve(ctx context.Context, c Caller, gamertag string) Reply {
	if r, ok := e.authorizeReview(c, CommandApprove); !ok {
		return r
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	apps, err := e.store.LoadApplications(ctx)
	if err != nil {
		return e.storageFailure("approve", gamertag, err)
	}
	app, ok := apps.Get(gamertag)
	if !ok {
		return Reply{Kind: KindNotFound, Gamertag: gamertag}
	}
	list, err := e.store.LoadAccessList(ctx)
	if err != nil {
		return e.storageFailure("approve", gamertag, err)
	}

	xuid, err := e.resolver.Resolve(ctx, gamertag)
	if err != nil {
		e.log.Warn("gamertag lookup failed", "op", "approve", "gamertag", gamertag, "err", err)
		return Reply{Kind: KindResolutionFailed, Gamertag: gamertag, Err: err}
	}
	if list.HasXUID(xuid) {
		return Reply{Kind: KindAlreadyRegistered, Gamertag: gamertag}
	}

	list = append(list, store.AccessEntry{Name: gamertag, XUID: xuid})
	app.Status = store.StatusApproved
	apps.Put(gamertag, app)
	if err := e.commit(ctx, apps, list); err != nil {
		return e.storageFailure("approve", gamertag, err)
	}
	e.log.Info("application approved", "gamertag", gamertag, "xuid", xuid, "reviewer", c.UserID)
	return Reply{Kind: KindApproved, Gamertag: gamertag}
}

// Revoke deletes the application for gamertag and every access list entry
// with that name. Revoking an unknown gamertag changes no records; a store
// that exports the access list rewrites its export.
func (e *Engine) Revoke(ctx context.Context, c Caller, gamertag string) Reply {
	if r, ok := e.authorizeReview(c, CommandRevoke); !ok {
		return r
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	apps, err := e.store.LoadApplications(ctx)
	if err != nil {
		return e.storageFailure("revoke", gamertag, err)
	}
	list, err := e.store.LoadAccessList(ctx)
	if err != nil {
		return e.storageFailure("revoke", gamertag, err)
	}

	removedApp := apps.Delete(gamertag)
	list, removedEntry := list.WithoutName(gamertag)
	if !removedApp && !removedEntry {
		// A previous revoke may have committed without updating the export.
		if x, ok := e.store.(store.Exporter); ok {
			if err := x.Export(ctx); err != nil {
				return e.storageFailure("revoke", gamertag, err)
			}
		}
		return Reply{Kind: KindRevoked, Gamertag: gamertag}
	}
	if err := e.commit(ctx, apps, list); err != nil {
		return e.storageFailure("revoke", gamertag, err)
	}
	e.log.Info("application revoked", "gamertag", gamertag, "reviewer", c.UserID)
	return Reply{Kind: KindRevoked, Gamertag: gamertag}
}

// List returns the gamertags whose application has the named status.
func (e *Engine) List(ctx context.Context, c Caller, status string) Reply {
	st := store.Status(status)
	switch st {
	case store.StatusPending:
		if c.ChannelID != e.cfg.ApplyChannel && c.ChannelID != e.cfg.ReviewChannel {
			return Reply{Kind: KindWrongChannel, Command: CommandList}
		}
	case store.StatusApproved:
		if r, ok := e.authorizeReview(c, CommandList); !ok {
			return r
		}
	default:
		return Reply{Kind: KindBadArgument, Command: CommandList}
	}

	e.mu.Lock()
	apps, err := e.store.LoadApplications(ctx)
	e.mu.Unlock()
	if err != nil {
		return e.storageFailure("list", "", err)
	}

	names := apps.WithStatus(st)
	if len(names) == 0 {
		return Reply{Kind: KindEmpty, Status: st}
	}
	return Reply{Kind: KindList, Status: st, Names: names}
}

// Reload asks the game server to reread the access list. It has no effect on
// stored state.
func (e *Engine) Reload(ctx context.Context, c Caller) Reply {
	if r, ok := e.authorizeReview(c, CommandReload); !ok {
		return r
	}
	if e.reloader == nil {
		return Reply{Kind: KindReloadFailed, Err: errNoReloader}
	}
	if err := e.reloader.Reload(ctx); err != nil {
		e.log.Warn("reload failed", "reviewer", c.UserID, "err", err)
		return Reply{Kind: KindReloadFailed, Err: err}
	}
	e.log.Info("reload requested", "reviewer", c.UserID)
	return Reply{Kind: KindReloadOK}
}

// Help describes the commands available to the caller.
func (e *Engine) Help(c Caller) Reply {
	return Reply{Kind: KindHelp, Reviewer: c.HasRole(e.cfg.ReviewerRole)}
}

// authorizeReview checks the review channel first, then the reviewer role.
func (e *Engine) authorizeReview(c Caller, command string) (Reply, bool) {
	if c.ChannelID != e.cfg.ReviewChannel {
		return Reply{Kind: KindWrongChannel, Command: command}, false
	}
	if !c.HasRole(e.cfg.ReviewerRole) {
		return Reply{Kind: KindNotAuthorized, Command: command}, false
	}
	return Reply{}, true
}

// commit persists both collections, in one transaction when the store
// supports it. Otherwise the access list is written first.
func (e *Engine) commit(ctx context.Context, apps *store.Applications, list store.AccessList) error {
	if c, ok := e.store.(store.Committer); ok {
		return c.Commit(ctx, apps, list)
	}
	if err := e.store.SaveAccessList(ctx, list); err != nil {
		return fmt.Errorf("save access list: %w", err)
	}
	if err := e.store.SaveApplications(ctx, apps); err != nil {
		return fmt.Errorf("save applications: %w", err)
	}
	return nil
}

func (e *Engine) storageFailure(op, gamertag string, err error) Reply {
	e.log.Error("storage failure", "op", op, "gamertag", gamertag, "err", err)
	return Reply{Kind: KindStorageError, Gamertag: gamertag, Err: err}
}
