package transcode

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type call struct {
	name string
	args []string
}

// scriptedRunner writes the files ffmpeg would produce so callers can be
// exercised without the real binaries.
type scriptedRunner struct {
	mu        sync.Mutex
	calls     []call
	probeJSON string
	failWhen  func(args []string) bool
}

func (r *scriptedRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, call{name: name, args: args})
	r.mu.Unlock()

	if r.failWhen != nil && r.failWhen(args) {
		return []byte("boom: encoder exploded"), errExit
	}
	if strings.Contains(name, "ffprobe") {
		return []byte(r.probeJSON), nil
	}
	out := args[len(args)-1]
	if strings.HasSuffix(out, ".m3u8") {
		dir := filepath.Dir(out)
		_ = os.WriteFile(filepath.Join(dir, "segment_000.ts"), []byte("0123456789"), 0o644)
		_ = os.WriteFile(out, []byte("#EXTM3U\n#EXTINF:6.0,\nsegment_000.ts\n#EXT-X-ENDLIST\n"), 0o644)
		return nil, nil
	}
	_ = os.WriteFile(out, []byte("jpeg"), 0o644)
	return nil, nil
}

type exitError string

func (e exitError) Error() string { return string(e) }

const errExit = exitError("exit status 1")
