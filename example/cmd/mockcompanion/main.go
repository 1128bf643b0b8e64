// Standalone mock companion for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockcompanion
//
// Then in another terminal:
//
//	go run ./cmd/osufeed run -c example/config.yaml
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/OniNezuko/osufeed"
)

func main() {
	// The first line doubles as the readiness announcement a
	// supervising Manager scrapes for, so auto_start configs can
	// point at a built copy of this binary too.
	fmt.Println("server started: ws://127.0.0.1:24050/websocket/v2")
	fmt.Println("The feed plays an endless scripted session")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	var upgrader websocket.Upgrader

	http.HandleFunc("/websocket/v2", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sim := &playSim{playLen: 60 + rand.Intn(60)}
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()

		for range ticker.C {
			prev := sim.status
			frame, err := json.Marshal(sim.next())
			if err != nil {
				return
			}
			if sim.status != prev {
				slog.Info("phase change", "from", prev, "to", sim.status)
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}
	})

	if err := http.ListenAndServe(":24050", nil); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

const (
	menuTicks   = 8
	pickTicks   = 8
	resultTicks = 12
)

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

var simMaps = []struct {
	folder string
	file   string
	mods   osufeed.Mods
}{
	{"412378 asterisk - Forge the Dawn", `C:\osu!\Songs\412378 asterisk - Forge the Dawn\Insane.osu`, osufeed.ModNone},
	{"528819 Nanahira - Sukisuki Loop", `C:\osu!\Songs\528819 Nanahira - Sukisuki Loop\Hard.osu`, osufeed.ModHidden},
	{"771649 DJ Raisei - Overclock", `C:\osu!\Songs\771649 DJ Raisei - Overclock\Extra.osu`, osufeed.ModHidden | osufeed.ModDoubleTime},
}

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
			s.combo = 0
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
