// Package progress renders an in-place terminal progress bar driven by
// archive.ProgressFunc events.
package progress

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dtoblo/swtiles/internal/archive"
)

// bar renders one level's progress. It redraws on every update or finish
// call and is driven entirely by the events it is handed; it does not poll.
type bar struct {
	label     string
	barWidth  int
	start     time.Time
	mu        sync.Mutex
	total     int
	processed int
}

func newBar(label string, total int) *bar {
	return &bar{label: label, barWidth: 30, start: time.Now(), total: total}
}

func (b *bar) update(processed int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.processed = processed
	b.draw()
}

func (b *bar) finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draw()
	fmt.Fprint(os.Stderr, "\n")
}

func (b *bar) draw() {
	var frac float64
	if b.total > 0 {
		frac = float64(b.processed) / float64(b.total)
	}
	if frac > 1 {
		frac = 1
	}

	filled := int(float64(b.barWidth) * frac)
	barStr := strings.Repeat("█", filled) + strings.Repeat("░", b.barWidth-filled)

	elapsed := time.Since(b.start)
	rate := float64(0)
	if secs := elapsed.Seconds(); secs > 0 {
		rate = float64(b.processed) / secs
	}

	fmt.Fprintf(os.Stderr, "\r%s [%s] %3.0f%%  %d/%d tiles  %.0f/s  %s\033[K",
		b.label, barStr, frac*100, b.processed, b.total, rate, formatDuration(elapsed))
}

func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) - m*60
	return fmt.Sprintf("%dm%02ds", m, s)
}

// Terminal returns an archive.ProgressFunc that draws one progress bar per
// level, refreshing in place as PhaseTile events arrive.
func Terminal() archive.ProgressFunc {
	var current *bar
	return func(e archive.Event) {
		switch e.Phase {
		case archive.PhaseLevelStart:
			current = newBar(fmt.Sprintf("level %d", e.LevelID), e.TilesTotal)
			current.update(0)
		case archive.PhaseTile:
			if current != nil {
				current.update(e.TilesDone)
			}
		case archive.PhaseLevelEnd:
			if current != nil {
				current.finish()
				current = nil
			}
		case archive.PhaseDone:
			fmt.Fprintf(os.Stderr, "wrote %d tiles\n", e.TilesDone)
		}
	}
}
