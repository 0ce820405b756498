package torrent

import "time"

// LimitMode selects whether a per-torrent seed-ratio or idle-time limit
// follows the session default, overrides it with a torrent-specific value,
// or is disabled outright. Grounded on the original's tr_ratiolimit /
// tr_idlelimit tri-state (global / single-torrent / unlimited).
type LimitMode int

const (
	LimitGlobal LimitMode = iota
	LimitSingle
	LimitUnlimited
)

func (m LimitMode) String() string {
	switch m {
	case LimitSingle:
		return "single"
	case LimitUnlimited:
		return "unlimited"
	default:
		return "global"
	}
}

// SetSeedRatioLimit sets this torrent's seed-ratio mode and, for
// LimitSingle, the ratio itself.
func (t *Torrent) SetSeedRatioLimit(mode LimitMode, ratio float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seedRatioMode = mode
	t.seedRatioLimit = ratio
	t.dirty = true
}

// SeedRatioLimit returns this torrent's seed-ratio mode and ratio.
func (t *Torrent) SeedRatioLimit() (LimitMode, float64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.seedRatioMode, t.seedRatioLimit
}

// SetIdleLimit sets this torrent's idle-time mode and, for LimitSingle, the
// number of idle minutes before it's considered done seeding.
func (t *Torrent) SetIdleLimit(mode LimitMode, minutes uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.idleLimitMode = mode
	t.idleMinutes = minutes
	t.dirty = true
}

// IdleLimit returns this torrent's idle-time mode and minutes.
func (t *Torrent) IdleLimit() (LimitMode, uint16) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.idleLimitMode, t.idleMinutes
}

// effectiveSeedRatio resolves this torrent's seed-ratio mode against the
// session default, reporting false when no ratio applies (unlimited, or
// global with no session default configured).
func (t *Torrent) effectiveSeedRatio(sessionDefault float64) (float64, bool) {
	t.mu.RLock()
	mode, limit := t.seedRatioMode, t.seedRatioLimit
	t.mu.RUnlock()

	switch mode {
	case LimitSingle:
		return limit, true
	case LimitUnlimited:
		return 0, false
	default:
		return sessionDefault, sessionDefault > 0
	}
}

// effectiveIdleMinutes resolves this torrent's idle-time mode against the
// session default, reporting false when no idle limit applies.
func (t *Torrent) effectiveIdleMinutes(sessionDefault uint16) (uint16, bool) {
	t.mu.RLock()
	mode, minutes := t.idleLimitMode, t.idleMinutes
	t.mu.RUnlock()

	switch mode {
	case LimitSingle:
		return minutes, true
	case LimitUnlimited:
		return 0, false
	default:
		return sessionDefault, sessionDefault > 0
	}
}

// SeedRatioReached reports whether this torrent, sized sizeWhenDone bytes,
// has uploaded at least its effective seed ratio against sessionDefault.
// Mirrors tr_torrentIsSeedRatioDone.
func (t *Torrent) SeedRatioReached(sizeWhenDone uint64, sessionDefault float64) bool {
	ratio, ok := t.effectiveSeedRatio(sessionDefault)
	if !ok || sizeWhenDone == 0 {
		return false
	}
	uploaded, _, _ := t.Stats()
	goal := float64(sizeWhenDone) * ratio
	return float64(uploaded.Ever) >= goal
}

// IdleSecondsLeft reports how many seconds remain before this torrent's
// idle limit trips, resolved against sessionDefaultMinutes, measured from
// the last time it recorded upload/download activity. ok is false when no
// idle limit applies.
func (t *Torrent) IdleSecondsLeft(sessionDefaultMinutes uint16, now time.Time) (left int64, ok bool) {
	minutes, ok := t.effectiveIdleMinutes(sessionDefaultMinutes)
	if !ok {
		return 0, false
	}
	t.mu.RLock()
	idleSince := now.Sub(t.dateActive)
	t.mu.RUnlock()
	return int64(minutes)*60 - int64(idleSince.Seconds()), true
}

// CheckSeedLimits stops a Seed torrent once it reaches its effective
// seed-ratio or idle-time limit, mirroring
// tr_torrent::stop_if_seed_limit_reached. Reports whether it stopped the
// torrent.
func (t *Torrent) CheckSeedLimits(sizeWhenDone uint64, sessionRatio float64, sessionIdleMinutes uint16, now time.Time) bool {
	if t.Activity() != Seed {
		return false
	}
	if t.SeedRatioReached(sizeWhenDone, sessionRatio) {
		t.FinishSeeding()
		return true
	}
	if left, ok := t.IdleSecondsLeft(sessionIdleMinutes, now); ok && left <= 0 {
		t.FinishSeeding()
		return true
	}
	return false
}
