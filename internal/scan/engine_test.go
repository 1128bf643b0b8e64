package scan

import (
	"strings"
	"testing"
)

func TestEngine_DispatchNested(t *testing.T) {
	r := NewRegistry()
	var gotB, gotD int64
	if err := Register(r, "a.b", Int64, func(v int64, ok bool) { gotB = v }); err != nil {
		t.Fatalf("Register(a.b) error = %v", err)
	}
	if err := Register(r, "a.c.d", Int64, func(v int64, ok bool) { gotD = v }); err != nil {
		t.Fatalf("Register(a.c.d) error = %v", err)
	}
	// same leaf name at the wrong depth must not fire
	bareB := false
	if err := Register(r, "b", Int64, func(int64, bool) { bareB = true }); err != nil {
		t.Fatalf("Register(b) error = %v", err)
	}

	e := NewEngine()
	if err := e.Parse([]byte(`{"a":{"b":1,"c":{"d":2}}}`), r); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if gotB != 1 {
		t.Errorf("a.b = %d, want 1", gotB)
	}
	if gotD != 2 {
		t.Errorf("a.c.d = %d, want 2", gotD)
	}
	if bareB {
		t.Error("path b fired for value at a.b")
	}
}

func TestEngine_ArraysNeverDispatch(t *testing.T) {
	r := NewRegistry()
	xyFired := false
	var gotZ int64
	if err := Register(r, "x.y", Int64, func(int64, bool) { xyFired = true }); err != nil {
		t.Fatalf("Register(x.y) error = %v", err)
	}
	if err := Register(r, "z", Int64, func(v int64, ok bool) { gotZ = v }); err != nil {
		t.Fatalf("Register(z) error = %v", err)
	}

	e := NewEngine()
	if err := e.Parse([]byte(`{"x":[1,2,{"y":3}],"z":4}`), r); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if xyFired {
		t.Error("x.y fired for a value inside an array")
	}
	if gotZ != 4 {
		t.Errorf("z = %d, want 4", gotZ)
	}
}

func TestEngine_MixedTypes(t *testing.T) {
	r := NewRegistry()
	var name string
	var replay bool
	var live float64
	if err := Register(r, "play.playerName", Str, func(v string, ok bool) { name = v }); err != nil {
		t.Fatalf("Register error = %v", err)
	}
	if err := Register(r, "play.isReplay", Bool, func(v bool, ok bool) { replay = v }); err != nil {
		t.Fatalf("Register error = %v", err)
	}
	if err := Register(r, "beatmap.time.live", Float64, func(v float64, ok bool) { live = v }); err != nil {
		t.Fatalf("Register error = %v", err)
	}

	doc := `{
	  "play": {"playerName": "Cookiezi", "isReplay": true, "mods": {"number": 72}},
	  "beatmap": {"time": {"live": 28456.5}}
	}`
	e := NewEngine()
	if err := e.Parse([]byte(doc), r); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if name != "Cookiezi" {
		t.Errorf("playerName = %q, want %q", name, "Cookiezi")
	}
	if !replay {
		t.Error("isReplay = false, want true")
	}
	if live != 28456.5 {
		t.Errorf("time.live = %v, want 28456.5", live)
	}
}

func TestEngine_TopLevelNonObjects(t *testing.T) {
	r := NewRegistry()
	fired := false
	if err := Register(r, "a", Int64, func(int64, bool) { fired = true }); err != nil {
		t.Fatalf("Register error = %v", err)
	}

	e := NewEngine()
	for _, doc := range []string{`[1,2,3]`, `[{"a":1}]`, `42`, `"hello"`, `true`, `null`} {
		if err := e.Parse([]byte(doc), r); err != nil {
			t.Errorf("Parse(%q) error = %v", doc, err)
		}
	}
	if fired {
		t.Error("handler fired for a document with no matching member")
	}
}

func TestEngine_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ``},
		{"whitespace only", `   `},
		{"open brace", `{`},
		{"bare key", `{"a"`},
		{"missing value", `{"a":}`},
		{"missing colon", `{"a" 1}`},
		{"trailing comma", `{"a":1,}`},
		{"unterminated string", `{"a":"oops`},
		{"unterminated array", `{"a":[1,2}`},
		{"unterminated nested object", `{"a":{"b":1}`},
		{"bad literal", `{"a":tru}`},
		{"trailing data", `{"a":1} {"b":2}`},
		{"garbage", `@#!$`},
		{"unquoted key", `{a:1}`},
	}

	e := NewEngine()
	r := NewRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.Parse([]byte(tt.doc), r)
			if err == nil {
				t.Fatalf("Parse(%q) expected error, got nil", tt.doc)
			}
			if _, ok := err.(*SyntaxError); !ok {
				t.Errorf("Parse(%q) error type = %T, want *SyntaxError", tt.doc, err)
			}
		})
	}
}

func TestEngine_NoPanicOnTruncation(t *testing.T) {
	doc := []byte(`{"state":{"number":2},"play":{"playerName":"abc é","score":1234},"x":[1,{"y":[2]}],"ok":true}`)
	r := NewRegistry()
	if err := Register(r, "play.score", Int64, func(int64, bool) {}); err != nil {
		t.Fatalf("Register error = %v", err)
	}

	e := NewEngine()
	for i := 0; i <= len(doc); i++ {
		// any error is fine; a panic is not
		_ = e.Parse(doc[:i], r)
	}
}

func TestEngine_NestingGuard(t *testing.T) {
	depth := maxNesting + 10
	doc := strings.Repeat(`{"a":`, depth) + `1` + strings.Repeat(`}`, depth)

	e := NewEngine()
	err := e.Parse([]byte(doc), NewRegistry())
	if err == nil {
		t.Fatal("Parse() expected nesting error, got nil")
	}
	if !strings.Contains(err.Error(), "nesting") {
		t.Errorf("Parse() error = %v, want nesting error", err)
	}
}

func TestEngine_DeepDocumentShallowMatch(t *testing.T) {
	// 20 levels exceeds the tracker's storage; the scan must stay
	// balanced and still match the shallow sibling afterwards.
	depth := MaxDepth + 4
	var b strings.Builder
	b.WriteString(`{"deep":`)
	for i := 0; i < depth; i++ {
		b.WriteString(`{"n":`)
	}
	b.WriteString(`1`)
	for i := 0; i < depth; i++ {
		b.WriteString(`}`)
	}
	b.WriteString(`,"z":5}`)

	r := NewRegistry()
	var gotZ int64
	if err := Register(r, "z", Int64, func(v int64, ok bool) { gotZ = v }); err != nil {
		t.Fatalf("Register error = %v", err)
	}

	e := NewEngine()
	if err := e.Parse([]byte(b.String()), r); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if gotZ != 5 {
		t.Errorf("z = %d, want 5", gotZ)
	}
}

func TestEngine_ValuesResetPerDocument(t *testing.T) {
	r := NewRegistry()
	if err := Register(r, "a", Int64, func(int64, bool) {}); err != nil {
		t.Fatalf("Register error = %v", err)
	}

	e := NewEngine()
	if err := e.Parse([]byte(`{"a":1}`), r); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, ok := LastValue[int64](r, "a"); !ok {
		t.Fatal("LastValue() should hit after first document")
	}

	if err := e.Parse([]byte(`{"b":2}`), r); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, ok := LastValue[int64](r, "a"); ok {
		t.Error("LastValue() leaked across documents")
	}
}

func TestEngine_DuplicateKeysLastWins(t *testing.T) {
	r := NewRegistry()
	calls := 0
	if err := Register(r, "a", Int64, func(int64, bool) { calls++ }); err != nil {
		t.Fatalf("Register error = %v", err)
	}

	e := NewEngine()
	if err := e.Parse([]byte(`{"a":1,"a":2}`), r); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if calls != 2 {
		t.Errorf("processor ran %d times, want 2", calls)
	}
	got, ok := LastValue[int64](r, "a")
	if !ok || got != 2 {
		t.Errorf("LastValue() = (%d, %v), want (2, true)", got, ok)
	}
}

func TestEngine_EngineReuse(t *testing.T) {
	r := NewRegistry()
	var got int64
	if err := Register(r, "play.score", Int64, func(v int64, ok bool) { got = v }); err != nil {
		t.Fatalf("Register error = %v", err)
	}

	e := NewEngine()
	// a failed parse must not poison the next one
	if err := e.Parse([]byte(`{"play":{"score":`), r); err == nil {
		t.Fatal("Parse() expected error for truncated document")
	}
	if err := e.Parse([]byte(`{"play":{"score":777}}`), r); err != nil {
		t.Fatalf("Parse() after failure error = %v", err)
	}
	if got != 777 {
		t.Errorf("play.score = %d, want 777", got)
	}
}

func TestEngine_SnapshotShapedDocument(t *testing.T) {
	// trimmed-down version of a real upstream snapshot
	doc := `{
	  "state": {"number": 2, "name": "play"},
	  "settings": {"sort": {"number": 0}},
	  "profile": {"userStatus": {"number": 256}},
	  "beatmap": {
	    "time": {"live": 43021, "firstObject": 812, "lastObject": 200345},
	    "stats": {"stars": {"live": 5.32}}
	  },
	  "play": {
	    "playerName": "peppy",
	    "score": 2147777,
	    "combo": {"current": 312, "max": 412},
	    "mods": {"number": 88, "name": "HDDTHR"},
	    "isReplay": false
	  },
	  "directPath": {
	    "beatmapFolder": "1011011 xi - Blue Zenith",
	    "beatmapFile": "xi - Blue Zenith (Asphyxia) [FOUR DIMENSIONS].osu"
	  },
	  "leaderboard": [{"name": "a", "score": 1}, {"name": "b", "score": 2}]
	}`

	r := NewRegistry()
	var state, score, combo, mods, live int64
	var player, folder, file string
	var replay bool
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("Register error = %v", err)
		}
	}
	must(Register(r, "state.number", Int64, func(v int64, ok bool) { state = v }))
	must(Register(r, "play.playerName", Str, func(v string, ok bool) { player = v }))
	must(Register(r, "play.score", Int64, func(v int64, ok bool) { score = v }))
	must(Register(r, "play.combo.current", Int64, func(v int64, ok bool) { combo = v }))
	must(Register(r, "play.mods.number", Int64, func(v int64, ok bool) { mods = v }))
	must(Register(r, "play.isReplay", Bool, func(v bool, ok bool) { replay = v }))
	must(Register(r, "beatmap.time.live", Int64, func(v int64, ok bool) { live = v }))
	must(Register(r, "directPath.beatmapFolder", Str, func(v string, ok bool) { folder = v }))
	must(Register(r, "directPath.beatmapFile", Str, func(v string, ok bool) { file = v }))

	e := NewEngine()
	if err := e.Parse([]byte(doc), r); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if state != 2 {
		t.Errorf("state.number = %d, want 2", state)
	}
	if player != "peppy" {
		t.Errorf("playerName = %q, want %q", player, "peppy")
	}
	if score != 2147777 {
		t.Errorf("score = %d, want 2147777", score)
	}
	if combo != 312 {
		t.Errorf("combo.current = %d, want 312", combo)
	}
	if mods != 88 {
		t.Errorf("mods.number = %d, want 88", mods)
	}
	if replay {
		t.Error("isReplay = true, want false")
	}
	if live != 43021 {
		t.Errorf("time.live = %d, want 43021", live)
	}
	if folder != "1011011 xi - Blue Zenith" {
		t.Errorf("beatmapFolder = %q", folder)
	}
	if file != "xi - Blue Zenith (Asphyxia) [FOUR DIMENSIONS].osu" {
		t.Errorf("beatmapFile = %q", file)
	}
}
