package registration

import (
    "context"
    "database/sql"
    "errors"
    "log"
    "sync"
    "time"

    "github.com/jonboulle/clockwork"

    "github.com/kateri/camp-registration/internal/model"
    "github.com/kateri/camp-registration/internal/repository"
)

// sweepPageSize bounds how many expired holds one global sweep run
// processes.  The sweep runs every few minutes, so a session with more
// expired holds than one page is drained incrementally across runs.
const sweepPageSize = 200

// ensureCountersEvery is the cadence of the counter-repair job.
const ensureCountersEvery = 24 * time.Hour

// Sweeper reclaims seats from abandoned holds.  It owns the two
// scheduled jobs (the global expired-hold sweep and the counter repair)
// and the on-demand per-session release used by admins.  Failures are
// logged and returned to the caller; the scheduling loop retries on the
// next tick, and re-querying still-expired holds is the only recovery
// state needed.
type Sweeper struct {
    db       *sql.DB
    sessions *repository.SessionRepo
    holds    *repository.HoldRepo
    regs     *repository.RegistrationRepo
    clock    clockwork.Clock
    every    time.Duration
}

// NewSweeper constructs a Sweeper that sweeps on the given interval.
func NewSweeper(db *sql.DB, sessions *repository.SessionRepo, holds *repository.HoldRepo, regs *repository.RegistrationRepo, clock clockwork.Clock, every time.Duration) *Sweeper {
    if db == nil || sessions == nil || holds == nil || regs == nil {
        panic("nil dependency passed to NewSweeper")
    }
    if clock == nil {
        clock = clockwork.NewRealClock()
    }
    if every <= 0 {
        every = 5 * time.Minute
    }
    return &Sweeper{db: db, sessions: sessions, holds: holds, regs: regs, clock: clock, every: every}
}

// ReleaseExpiredForSession releases every expired hold in one session:
// the hold rows are deleted, their registrations flipped to expired, and
// the session's hold counter decremented by the number of rows actually
// deleted.  Everything runs in one transaction under the session row
// lock, so a hold confirmed concurrently cannot be counted twice — the
// confirm either commits first and removes its hold row, or waits for
// the lock and finds its hold gone.  Returns the number of holds
// released.
func (s *Sweeper) ReleaseExpiredForSession(ctx context.Context, year int, gender, sessionID string) (int, error) {
    now := s.clock.Now().UTC()

    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return 0, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    if _, err := s.sessions.GetForUpdateTx(ctx, tx, year, gender, sessionID); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return 0, ErrSessionNotFound
        }
        return 0, err
    }
    expired, err := s.holds.ExpiredBySessionTx(ctx, tx, year, gender, sessionID, now)
    if err != nil {
        return 0, err
    }
    if len(expired) == 0 {
        committed = true
        return 0, tx.Commit()
    }
    regIDs := make([]string, 0, len(expired))
    for _, h := range expired {
        if h.RegistrationID != "" {
            regIDs = append(regIDs, h.RegistrationID)
        }
    }
    released, err := s.holds.DeleteExpiredBySessionTx(ctx, tx, year, gender, sessionID, now)
    if err != nil {
        return 0, err
    }
    if err := s.regs.MarkExpiredTx(ctx, tx, regIDs); err != nil {
        return 0, err
    }
    if released > 0 {
        if err := s.sessions.ApplyCounterDeltaTx(ctx, tx, year, gender, sessionID, -int(released), 0); err != nil {
            return 0, err
        }
    }
    committed = true
    if err := tx.Commit(); err != nil {
        return 0, err
    }
    return int(released), nil
}

// sessionKey identifies one session partition touched by a sweep page.
type sessionKey struct {
    year      int
    gender    string
    sessionID string
}

// groupSessions deduplicates the sessions referenced by a page of
// expired holds, preserving first-seen order.
func groupSessions(holds []model.Hold) []sessionKey {
    keys := make([]sessionKey, 0)
    seen := make(map[sessionKey]struct{})
    for _, h := range holds {
        k := sessionKey{year: h.Year, gender: h.Gender, sessionID: h.SessionID}
        if _, ok := seen[k]; ok {
            continue
        }
        seen[k] = struct{}{}
        keys = append(keys, k)
    }
    return keys
}

// SweepAllExpired queries one page of expired holds across every
// session, groups them by session, and releases each session's holds
// concurrently.  Returns the total number of holds released and the
// first release error encountered, if any; a partial failure leaves the
// remaining holds expired and re-queryable, so the next run picks them
// up.
func (s *Sweeper) SweepAllExpired(ctx context.Context) (int, error) {
    now := s.clock.Now().UTC()
    page, err := s.holds.ListExpired(ctx, now, sweepPageSize)
    if err != nil {
        return 0, err
    }
    keys := groupSessions(page)
    if len(keys) == 0 {
        return 0, nil
    }

    var wg sync.WaitGroup
    var mu sync.Mutex
    var firstErr error
    var total int
    for _, k := range keys {
        wg.Add(1)
        go func(k sessionKey) {
            defer wg.Done()
            released, err := s.ReleaseExpiredForSession(ctx, k.year, k.gender, k.sessionID)
            if err != nil {
                log.Printf("sweep: release failed for %d/%s/%s: %v", k.year, k.gender, k.sessionID, err)
                mu.Lock()
                if firstErr == nil {
                    firstErr = err
                }
                mu.Unlock()
                return
            }
            if released > 0 {
                log.Printf("sweep: released %d expired holds in %d/%s/%s", released, k.year, k.gender, k.sessionID)
                mu.Lock()
                total += released
                mu.Unlock()
            }
        }(k)
    }
    wg.Wait()
    return total, firstErr
}

// EnsureCounters fills in zero for any session missing its hold or
// confirmed counter.  Existing numeric values are never overwritten, so
// repeated runs cannot clobber legitimate counts.  Returns the number of
// rows repaired.
func (s *Sweeper) EnsureCounters(ctx context.Context) (int64, error) {
    return s.sessions.EnsureCounterDefaults(ctx)
}

// Run drives the scheduled jobs until the context is cancelled: the
// expired-hold sweep on the configured interval and the counter repair
// daily.  Errors are logged; the next tick is the retry.
func (s *Sweeper) Run(ctx context.Context) {
    sweepTicker := s.clock.NewTicker(s.every)
    defer sweepTicker.Stop()
    repairTicker := s.clock.NewTicker(ensureCountersEvery)
    defer repairTicker.Stop()

    log.Printf("sweeper: running (sweep every %s)", s.every)
    for {
        select {
        case <-sweepTicker.Chan():
            if n, err := s.SweepAllExpired(ctx); err != nil {
                log.Printf("sweeper: sweep failed: %v", err)
            } else if n > 0 {
                log.Printf("sweeper: released %d holds", n)
            }
        case <-repairTicker.Chan():
            if n, err := s.EnsureCounters(ctx); err != nil {
                log.Printf("sweeper: counter repair failed: %v", err)
            } else if n > 0 {
                log.Printf("sweeper: repaired counters on %d sessions", n)
            }
        case <-ctx.Done():
            log.Printf("sweeper: stopped")
            return
        }
    }
}
