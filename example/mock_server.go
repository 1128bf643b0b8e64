package main

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/OniNezuko/osufeed"
)

// playSim scripts an endless session for one feed connection: main
// menu, song select, a play that builds score and combo with the odd
// miss, results, then the next map.
type playSim struct {
	tick     int
	mapIdx   int
	playLen  int
	status   osufeed.GameStatus
	score    int64
	combo    int64
	maxCombo int64
	timeMs   int64
}

// simMaps is the rotation of beatmaps the scripted session plays. The
// file entries are full paths because that is how the real companion
// reports them.
var simMaps = []struct {
	folder string
	file   string
	mods   osufeed.Mods
}{
	{"412378 asterisk - Forge the Dawn", `C:\osu!\Songs\412378 asterisk - Forge the Dawn\Insane.osu`, osufeed.ModNone},
	{"528819 Nanahira - Sukisuki Loop", `C:\osu!\Songs\528819 Nanahira - Sukisuki Loop\Hard.osu`, osufeed.ModHidden},
	{"771649 DJ Raisei - Overclock", `C:\osu!\Songs\771649 DJ Raisei - Overclock\Extra.osu`, osufeed.ModHidden | osufeed.ModDoubleTime},
}

// StartMockCompanion runs a fake companion feed that pushes a snapshot
// every 250ms, playing through an endless scripted session.
// Call this in a goroutine before starting the Manager.
func StartMockCompanion(addr string) {
	var upgrader websocket.Upgrader

	http.HandleFunc("/websocket/v2", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("failed to upgrade connection", "error", err)
			return
		}
		serveFeed(conn)
	})

	if err := http.ListenAndServe(addr, nil); err != nil {
		slog.Error("mock companion error", "error", err)
	}
}

// serveFeed pushes frames until the client goes away. Each connection
// gets its own session script.
func serveFeed(conn *websocket.Conn) {
	defer conn.Close()

	sim := newPlaySim()
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		prev := sim.status
		frame, err := json.Marshal(sim.next())
		if err != nil {
			slog.Error("failed to encode frame", "error", err)
			return
		}
		if sim.status != prev {
			slog.Info("phase change", "from", prev, "to", sim.status)
		}
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}
}

func newPlaySim() *playSim {
	return &playSim{playLen: 60 + rand.Intn(60)}
}

const (
	menuTicks   = 8
	pickTicks   = 8
	resultTicks = 12
)

// next advances the script by one tick and returns the snapshot
// document for it, shaped the way the companion shapes its frames.
func (s *playSim) next() map[string]any {
	switch {
	case s.tick < menuTicks:
		s.status = osufeed.StatusMainMenu
	case s.tick < menuTicks+pickTicks:
		s.status = osufeed.StatusSongSelect
	case s.tick < menuTicks+pickTicks+s.playLen:
		if s.status != osufeed.StatusPlaying {
			s.status = osufeed.StatusPlaying
			s.score, s.combo, s.maxCombo, s.timeMs = 0, 0, 0, 0
		}
		s.timeMs += 250
		if rand.Intn(100) < 4 {
			s.combo = 0 // miss
		} else {
			s.combo++
			s.score += 300 + 30*s.combo
			if s.combo > s.maxCombo {
				s.maxCombo = s.combo
			}
		}
	case s.tick < menuTicks+pickTicks+s.playLen+resultTicks:
		s.status = osufeed.StatusResultsScreen
	default:
		// back to song select for the next map
		s.tick = menuTicks
		s.mapIdx++
		s.playLen = 60 + rand.Intn(60)
		s.status = osufeed.StatusSongSelect
	}
	s.tick++

	m := simMaps[s.mapIdx%len(simMaps)]
	return map[string]any{
		"state": map[string]any{"number": s.status},
		"play": map[string]any{
			"playerName": "mockplayer",
			"score":      s.score,
			"combo":      map[string]any{"current": s.combo, "max": s.maxCombo},
			"mods":       map[string]any{"number": m.mods},
			"isReplay":   s.mapIdx%4 == 3,
		},
		"beatmap": map[string]any{
			"time": map[string]any{"live": s.timeMs},
		},
		"directPath": map[string]any{
			"beatmapFolder": m.folder,
			"beatmapFile":   m.file,
		},
	}
}
