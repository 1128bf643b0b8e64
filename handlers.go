package osufeed

import (
	"errors"

	"github.com/OniNezuko/osufeed/internal/scan"
)

// Snapshot paths tracked by the client, as dotted key chains into the
// companion's v2 snapshot document. Values inside arrays are never
// tracked.
const (
	pathState         = "state.number"
	pathPlayerName    = "play.playerName"
	pathScore         = "play.score"
	pathCombo         = "play.combo.current"
	pathMods          = "play.mods.number"
	pathPlayTime      = "beatmap.time.live"
	pathIsReplay      = "play.isReplay"
	pathBeatmapFolder = "directPath.beatmapFolder"
	pathBeatmapFile   = "directPath.beatmapFile"
)

// framePending stages the values one document produced until the whole
// document has parsed cleanly. Committing only after a full parse keeps
// a malformed frame from leaving half its values behind.
type framePending struct {
	status      int64
	hasStatus   bool
	playerName  string
	hasPlayer   bool
	score       int64
	hasScore    bool
	combo       int64
	hasCombo    bool
	mods        int64
	hasMods     bool
	playTime    int64
	hasPlayTime bool
	isReplay    bool
	hasReplay   bool
}

// shadowFields mirrors the last value committed per tracked path. The
// shadow copy is what makes change detection possible without reading
// LiveState back under its lock, and it is deliberately not reset
// across Stop/Start so consumers are not re-notified of values that
// did not actually change.
type shadowFields struct {
	status     GameStatus
	playerName string
	score      int64
	combo      int64
	mods       Mods
	playTime   int64
	isReplay   bool
	beatmap    BeatmapIdentity
}

// registerHandlers wires every tracked path into the registry. The
// scalar paths stage into m.pending; the two beatmap paths only feed
// the last-value table and are correlated in applyFrame, which only
// ever runs for documents that parsed without error.
func (m *Manager) registerHandlers(reg *scan.Registry) error {
	return errors.Join(
		scan.Register(reg, pathState, scan.Int64, m.stageStatus),
		scan.Register(reg, pathPlayerName, scan.Str, m.stagePlayerName),
		scan.Register(reg, pathScore, scan.Int64, m.stageScore),
		scan.Register(reg, pathCombo, scan.Int64, m.stageCombo),
		scan.Register(reg, pathMods, scan.Int64, m.stageMods),
		scan.Register(reg, pathPlayTime, scan.Int64, m.stagePlayTime),
		scan.Register(reg, pathIsReplay, scan.Bool, m.stageIsReplay),
		scan.Register(reg, pathBeatmapFolder, scan.Str, recordOnly),
		scan.Register(reg, pathBeatmapFile, scan.Str, recordOnly),
	)
}

// recordOnly is the processor for paths read back through the
// registry's last-value table instead of staged per field.
func recordOnly(string, bool) {}

// The stage methods record a successfully extracted value for the
// current document. A failed extraction reads as "absent this
// document" and leaves the previous committed value in place.

func (m *Manager) stageStatus(v int64, ok bool) {
	if ok {
		m.pending.status, m.pending.hasStatus = v, true
	}
}

func (m *Manager) stagePlayerName(v string, ok bool) {
	if ok {
		m.pending.playerName, m.pending.hasPlayer = v, true
	}
}

func (m *Manager) stageScore(v int64, ok bool) {
	if ok {
		m.pending.score, m.pending.hasScore = v, true
	}
}

func (m *Manager) stageCombo(v int64, ok bool) {
	if ok {
		m.pending.combo, m.pending.hasCombo = v, true
	}
}

func (m *Manager) stageMods(v int64, ok bool) {
	if ok {
		m.pending.mods, m.pending.hasMods = v, true
	}
}

func (m *Manager) stagePlayTime(v int64, ok bool) {
	if ok {
		m.pending.playTime, m.pending.hasPlayTime = v, true
	}
}

func (m *Manager) stageIsReplay(v bool, ok bool) {
	if ok {
		m.pending.isReplay, m.pending.hasReplay = v, true
	}
}

// applyFrame commits staged values to the shadows and writes changed
// ones through to LiveState. The beatmap identity is rebuilt from the
// registry's last-value table so it only updates when folder and file
// appeared together in the same document.
func (m *Manager) applyFrame() {
	p := &m.pending
	if p.hasStatus {
		if st := GameStatus(p.status); st != m.shadow.status {
			m.shadow.status = st
			m.live.setStatus(st)
		}
	}
	if p.hasPlayer && p.playerName != m.shadow.playerName {
		m.shadow.playerName = p.playerName
		m.live.setPlayerName(p.playerName)
	}
	if p.hasScore && p.score != m.shadow.score {
		m.shadow.score = p.score
		m.live.setScore(p.score)
	}
	if p.hasCombo && p.combo != m.shadow.combo {
		m.shadow.combo = p.combo
		m.live.setCombo(p.combo)
	}
	if p.hasMods {
		if mods := Mods(p.mods); mods != m.shadow.mods {
			m.shadow.mods = mods
			m.live.setMods(mods)
		}
	}
	if p.hasPlayTime && p.playTime != m.shadow.playTime {
		m.shadow.playTime = p.playTime
		m.live.setPlayTimeMs(p.playTime)
	}
	if p.hasReplay && p.isReplay != m.shadow.isReplay {
		m.shadow.isReplay = p.isReplay
		m.live.setIsReplay(p.isReplay)
	}

	folder, okFolder := scan.LastValue[string](m.registry, pathBeatmapFolder)
	file, okFile := scan.LastValue[string](m.registry, pathBeatmapFile)
	if okFolder && okFile {
		id := BeatmapIdentity{Folder: folder, File: lastPathComponent(file)}
		if id != m.shadow.beatmap {
			m.shadow.beatmap = id
			m.live.setBeatmap(id)
		}
	}
}

// lastPathComponent reduces a filesystem path to the part after the
// final separator. The companion reports Windows paths; when the
// client runs elsewhere both separators must be honored, so
// filepath.Base alone does not cut it.
func lastPathComponent(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' || p[i] == '\\' {
			return p[i+1:]
		}
	}
	return p
}
