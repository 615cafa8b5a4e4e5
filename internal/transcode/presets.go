package transcode

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Preset is a named quality tier. Bitrates are in kbps.
type Preset struct {
	Name         string
	Height       int
	VideoBitrate int
	AudioBitrate int
}

var presets = []Preset{
	{Name: "1080p", Height: 1080, VideoBitrate: 5000, AudioBitrate: 128},
	{Name: "720p", Height: 720, VideoBitrate: 2500, AudioBitrate: 128},
	{Name: "480p", Height: 480, VideoBitrate: 1000, AudioBitrate: 128},
	{Name: "360p", Height: 360, VideoBitrate: 600, AudioBitrate: 128},
}

func (p Preset) MaxRate() int { return p.VideoBitrate * 3 / 2 }

func (p Preset) BufSize() int { return p.VideoBitrate * 2 }

// Presets returns every known tier, best first.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

func PresetByName(name string) (Preset, error) {
	for _, p := range presets {
		if p.Name == name {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("unknown preset %q", name)
}

// ParsePresetList resolves configured tier names, dropping duplicates.
func ParsePresetList(names []string) ([]Preset, error) {
	seen := make(map[string]bool, len(names))
	out := make([]Preset, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(strings.ToLower(n))
		if n == "" || seen[n] {
			continue
		}
		p, err := PresetByName(n)
		if err != nil {
			return nil, err
		}
		seen[n] = true
		out = append(out, p)
	}
	return out, nil
}

// SelectPresets keeps the requested tiers that do not upscale the source.
// When none fit, the lowest requested tier is used alone. The result is
// ordered from highest to lowest height.
func SelectPresets(sourceHeight int, requested []Preset) []Preset {
	if len(requested) == 0 {
		return nil
	}
	var out []Preset
	for _, p := range requested {
		if p.Height <= sourceHeight {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		lowest := requested[0]
		for _, p := range requested[1:] {
			if p.Height < lowest.Height {
				lowest = p
			}
		}
		out = []Preset{lowest}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Height > out[j].Height })
	return out
}

// EvenWidth scales srcW to tierH keeping the aspect ratio, rounded and then
// forced down to an even number.
func EvenWidth(srcW, srcH, tierH int) int {
	if srcH <= 0 || srcW <= 0 {
		return 0
	}
	w := int(math.Round(float64(srcW) * float64(tierH) / float64(srcH)))
	return w - w%2
}
