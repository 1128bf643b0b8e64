package osufeed

import (
	"fmt"
	"strings"
)

// GameStatus identifies the screen the game client is currently on.
// Values mirror the status numbers the companion process reads out of
// game memory, which is why they are sparse.
type GameStatus int32

const (
	// StatusNotRunning is the synthetic "no game observed yet" value.
	// It is never sent by the companion; the client seeds its state
	// with it before the first snapshot arrives.
	StatusNotRunning GameStatus = -1

	StatusMainMenu              GameStatus = 0
	StatusEditing               GameStatus = 1
	StatusPlaying               GameStatus = 2
	StatusExiting               GameStatus = 3
	StatusSongSelectEditor      GameStatus = 4
	StatusSongSelect            GameStatus = 5
	StatusResultsScreen         GameStatus = 7
	StatusMultiplayerLobby      GameStatus = 11
	StatusMultiplayerRoom       GameStatus = 12
	StatusMultiplayerSongSelect GameStatus = 13
	StatusMultiplayerResults    GameStatus = 14
	StatusOsuDirect             GameStatus = 15
	StatusTourney               GameStatus = 22
)

// String returns a log-friendly name for the status. Unknown values
// are rendered with their raw number so new game screens degrade
// gracefully instead of hiding behind a generic label.
func (s GameStatus) String() string {
	switch s {
	case StatusNotRunning:
		return "not_running"
	case StatusMainMenu:
		return "main_menu"
	case StatusEditing:
		return "editing"
	case StatusPlaying:
		return "playing"
	case StatusExiting:
		return "exiting"
	case StatusSongSelectEditor:
		return "song_select_editor"
	case StatusSongSelect:
		return "song_select"
	case StatusResultsScreen:
		return "results_screen"
	case StatusMultiplayerLobby:
		return "multiplayer_lobby"
	case StatusMultiplayerRoom:
		return "multiplayer_room"
	case StatusMultiplayerSongSelect:
		return "multiplayer_song_select"
	case StatusMultiplayerResults:
		return "multiplayer_results"
	case StatusOsuDirect:
		return "osu_direct"
	case StatusTourney:
		return "tourney"
	default:
		return fmt.Sprintf("status_%d", int32(s))
	}
}

// Mods is the game's modifier bitmask as reported in snapshots.
type Mods uint32

const (
	ModNoFail Mods = 1 << iota
	ModEasy
	ModTouchDevice
	ModHidden
	ModHardRock
	ModSuddenDeath
	ModDoubleTime
	ModRelax
	ModHalfTime
	ModNightcore
	ModFlashlight
	ModAutoplay
	ModSpunOut
	ModAutopilot
	ModPerfect
)

const (
	// ModNone is the empty mod selection.
	ModNone Mods = 0

	// ModScoreV2 sits outside the contiguous low bits.
	ModScoreV2 Mods = 1 << 29
)

// Has reports whether every bit of flag is set. Call it with a single
// mod constant; Has(ModNone) is vacuously true.
func (m Mods) Has(flag Mods) bool {
	return m&flag == flag
}

// modCodes lists the two-letter display codes in bit order, which is
// also the order of the common shorthand (HDDT, HDHR). Order matters
// for String.
var modCodes = []struct {
	flag Mods
	code string
}{
	{ModNoFail, "NF"},
	{ModEasy, "EZ"},
	{ModTouchDevice, "TD"},
	{ModHidden, "HD"},
	{ModHardRock, "HR"},
	{ModSuddenDeath, "SD"},
	{ModDoubleTime, "DT"},
	{ModRelax, "RX"},
	{ModHalfTime, "HT"},
	{ModNightcore, "NC"},
	{ModFlashlight, "FL"},
	{ModAutoplay, "AT"},
	{ModSpunOut, "SO"},
	{ModAutopilot, "AP"},
	{ModPerfect, "PF"},
	{ModScoreV2, "V2"},
}

// String renders the selection as concatenated two-letter codes, for
// example "HDDT". Nightcore implies DoubleTime and Perfect implies
// SuddenDeath, so the implied bit is suppressed to match how the game
// itself displays mods. The empty selection renders as "".
func (m Mods) String() string {
	if m == ModNone {
		return ""
	}
	shown := m
	if shown.Has(ModNightcore) {
		shown &^= ModDoubleTime
	}
	if shown.Has(ModPerfect) {
		shown &^= ModSuddenDeath
	}
	var b strings.Builder
	for _, mc := range modCodes {
		if shown.Has(mc.flag) {
			b.WriteString(mc.code)
		}
	}
	return b.String()
}

// BeatmapIdentity names the beatmap the game currently has loaded, as
// a songs-folder-relative pair. Folder is the beatmap set directory
// and File the .osu difficulty file inside it. The companion reports
// File as a full filesystem path; the client reduces it to its last
// path component so the pair stays stable across machines.
type BeatmapIdentity struct {
	Folder string
	File   string
}

// IsZero reports whether no beatmap has been observed.
func (b BeatmapIdentity) IsZero() bool {
	return b == BeatmapIdentity{}
}

// String renders the identity as "Folder/File" for logging. The zero
// identity renders as "".
func (b BeatmapIdentity) String() string {
	if b.IsZero() {
		return ""
	}
	return b.Folder + "/" + b.File
}
