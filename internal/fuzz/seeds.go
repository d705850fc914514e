package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const maxSeedBytes = 64 << 10

// builtinSeeds cover every document shape and the phases the handler
// switches on.
var builtinSeeds = []string{
	``,
	`[]`,
	`{}`,
	`{"traceEvents": []}`,
	`[{"ph": "b", "cat": "blink.user_timing", "name": "a", "ts": 1, "id": "0x1"}, {"ph": "e", "cat": "blink.user_timing", "name": "a", "ts": 2, "id": "0x1"}]`,
	`[{"ph": "e", "cat": "blink.user_timing", "name": "a", "ts": 2, "id": 1}, {"ph": "b", "cat": "blink.user_timing", "name": "a", "ts": 1, "id": 1}]`,
	`[{"ph": "S", "cat": "blink.console", "name": "t", "ts": 0, "id2": {"local": "0x2"}, "pid": 3}, {"ph": "F", "cat": "blink.console", "name": "t", "ts": 5, "id2": {"global": "0x2"}}]`,
	`[{"ph": "X", "cat": "blink.user_timing", "name": "UserTiming::Measure", "ts": 1.5, "dur": 2, "args": {"traceId": "abc"}}]`,
	`[{"ph": "I", "cat": "x", "name": "TimeStamp", "ts": 3, "args": {"data": {"message": "m"}}}, {"ph": "R", "cat": "blink.user_timing", "name": "mark", "ts": 4}]`,
	`{"otherData": {"v": 1}, "traceEvents": [{"ph": "M", "name": "process_name", "pid": 1, "args": {"name": "p"}}, {"bogus": [1, 2]}]}`,
	`[{"ph": "b", "cat": "blink.user_timing", "name": "a", "ts": 1, "id": "0x1"}`,
}

func addCorpusSeeds(f *testing.F) {
	for _, s := range builtinSeeds {
		f.Add([]byte(s))
	}
	addTestdataSeeds(f)
}

// addTestdataSeeds adds every trace under the repository testdata directory.
func addTestdataSeeds(f *testing.F) {
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}
