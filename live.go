package osufeed

import "sync"

// Field names a single tracked value in [LiveState]. It tags [Change]
// notifications so subscribers can filter without type-switching.
type Field string

const (
	FieldStatus     Field = "status"
	FieldPlayerName Field = "player_name"
	FieldScore      Field = "score"
	FieldCombo      Field = "combo"
	FieldMods       Field = "mods"
	FieldPlayTime   Field = "play_time"
	FieldIsReplay   Field = "is_replay"
	FieldBeatmap    Field = "beatmap"
)

// Change describes one observed value transition.
type Change struct {
	Field Field
	Old   any
	New   any
}

// Snapshot is a point-in-time copy of every tracked value.
type Snapshot struct {
	Status     GameStatus
	PlayerName string
	Score      int64
	Combo      int64
	Mods       Mods
	PlayTimeMs int64
	IsReplay   bool
	Beatmap    BeatmapIdentity
}

// subscriberBuffer is the per-subscriber channel capacity. A
// subscriber that falls further behind than this loses changes rather
// than stalling the feed.
const subscriberBuffer = 100

// LiveState holds the most recently observed game values and fans out
// change notifications to subscribers.
//
// All methods are safe for concurrent use. Reads never block writes
// for longer than a field copy, and notification delivery is
// non-blocking: a full subscriber channel drops the change.
type LiveState struct {
	mu         sync.RWMutex
	status     GameStatus
	playerName string
	score      int64
	combo      int64
	mods       Mods
	playTimeMs int64
	isReplay   bool
	beatmap    BeatmapIdentity

	subMu       sync.Mutex
	subscribers map[chan Change]struct{}
}

// NewLiveState creates an empty state. Status starts at
// [StatusNotRunning] until the first snapshot says otherwise.
func NewLiveState() *LiveState {
	return &LiveState{
		status:      StatusNotRunning,
		subscribers: make(map[chan Change]struct{}),
	}
}

// Status returns the current game screen.
func (l *LiveState) Status() GameStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

// PlayerName returns the current player name, if any.
func (l *LiveState) PlayerName() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.playerName
}

// Score returns the score of the ongoing play.
func (l *LiveState) Score() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.score
}

// Combo returns the current combo of the ongoing play.
func (l *LiveState) Combo() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.combo
}

// Mods returns the active modifier selection.
func (l *LiveState) Mods() Mods {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.mods
}

// PlayTimeMs returns the playback position in milliseconds.
func (l *LiveState) PlayTimeMs() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.playTimeMs
}

// IsReplay reports whether the game is watching a replay rather than
// a live play.
func (l *LiveState) IsReplay() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.isReplay
}

// Beatmap returns the identity of the currently loaded beatmap.
func (l *LiveState) Beatmap() BeatmapIdentity {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.beatmap
}

// Snapshot returns a consistent copy of all tracked values.
func (l *LiveState) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Snapshot{
		Status:     l.status,
		PlayerName: l.playerName,
		Score:      l.score,
		Combo:      l.combo,
		Mods:       l.mods,
		PlayTimeMs: l.playTimeMs,
		IsReplay:   l.isReplay,
		Beatmap:    l.beatmap,
	}
}

// Subscribe registers for change notifications. It returns a receive
// channel and an unsubscribe function. The channel is closed on
// unsubscribe; calling unsubscribe more than once is safe.
func (l *LiveState) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, subscriberBuffer)

	l.subMu.Lock()
	l.subscribers[ch] = struct{}{}
	l.subMu.Unlock()

	unsubscribe := func() {
		l.subMu.Lock()
		defer l.subMu.Unlock()
		if _, ok := l.subscribers[ch]; ok {
			delete(l.subscribers, ch)
			close(ch)
		}
	}
	return ch, unsubscribe
}

// The setters below are the write path used by the Manager after it
// has decided a value actually changed. Each records the new value
// under the write lock and then notifies outside it.

func (l *LiveState) setStatus(v GameStatus) {
	l.mu.Lock()
	old := l.status
	l.status = v
	l.mu.Unlock()
	l.notify(Change{Field: FieldStatus, Old: old, New: v})
}

func (l *LiveState) setPlayerName(v string) {
	l.mu.Lock()
	old := l.playerName
	l.playerName = v
	l.mu.Unlock()
	l.notify(Change{Field: FieldPlayerName, Old: old, New: v})
}

func (l *LiveState) setScore(v int64) {
	l.mu.Lock()
	old := l.score
	l.score = v
	l.mu.Unlock()
	l.notify(Change{Field: FieldScore, Old: old, New: v})
}

func (l *LiveState) setCombo(v int64) {
	l.mu.Lock()
	old := l.combo
	l.combo = v
	l.mu.Unlock()
	l.notify(Change{Field: FieldCombo, Old: old, New: v})
}

func (l *LiveState) setMods(v Mods) {
	l.mu.Lock()
	old := l.mods
	l.mods = v
	l.mu.Unlock()
	l.notify(Change{Field: FieldMods, Old: old, New: v})
}

func (l *LiveState) setPlayTimeMs(v int64) {
	l.mu.Lock()
	old := l.playTimeMs
	l.playTimeMs = v
	l.mu.Unlock()
	l.notify(Change{Field: FieldPlayTime, Old: old, New: v})
}

func (l *LiveState) setIsReplay(v bool) {
	l.mu.Lock()
	old := l.isReplay
	l.isReplay = v
	l.mu.Unlock()
	l.notify(Change{Field: FieldIsReplay, Old: old, New: v})
}

func (l *LiveState) setBeatmap(v BeatmapIdentity) {
	l.mu.Lock()
	old := l.beatmap
	l.beatmap = v
	l.mu.Unlock()
	l.notify(Change{Field: FieldBeatmap, Old: old, New: v})
}

// notify delivers c to every subscriber without blocking.
func (l *LiveState) notify(c Change) {
	l.subMu.Lock()
	defer l.subMu.Unlock()
	for ch := range l.subscribers {
		select {
		case ch <- c:
		default:
			// Subscriber is not keeping up; drop.
		}
	}
}
