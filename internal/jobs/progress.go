package jobs

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ProgressBar renders an in-place terminal progress bar for a batch of jobs.
// Its Update method fits Pool.Progress and is safe for concurrent use.
type ProgressBar struct {
	w        io.Writer
	label    string
	barWidth int
	start    time.Time

	done  atomic.Int64
	total atomic.Int64

	stop chan struct{}
	once sync.Once
	mu   sync.Mutex
}

// NewProgressBar starts a bar that refreshes every interval until Finish.
// A non-positive interval only draws on Finish.
func NewProgressBar(w io.Writer, label string, interval time.Duration) *ProgressBar {
	pb := &ProgressBar{
		w:        w,
		label:    label,
		barWidth: 30,
		start:    time.Now(),
		stop:     make(chan struct{}),
	}
	if interval > 0 {
		go pb.run(interval)
	}
	return pb
}

// Update records done of total jobs finished.
func (pb *ProgressBar) Update(done, total int) {
	pb.total.Store(int64(total))
	for {
		old := pb.done.Load()
		if int64(done) <= old || pb.done.CompareAndSwap(old, int64(done)) {
			return
		}
	}
}

// Reset starts a new batch under label.
func (pb *ProgressBar) Reset(label string) {
	pb.mu.Lock()
	pb.label = label
	pb.start = time.Now()
	pb.mu.Unlock()
	pb.done.Store(0)
	pb.total.Store(0)
}

// Finish stops the refresh loop and prints the final bar with a newline.
func (pb *ProgressBar) Finish() {
	pb.once.Do(func() { close(pb.stop) })
	pb.draw()
	fmt.Fprint(pb.w, "\n")
}

func (pb *ProgressBar) run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-pb.stop:
			return
		case <-ticker.C:
			pb.draw()
		}
	}
}

func (pb *ProgressBar) draw() {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	fmt.Fprint(pb.w, "\r"+pb.line()+"\033[K")
}

// line formats the bar; callers hold mu.
func (pb *ProgressBar) line() string {
	done, total := pb.done.Load(), pb.total.Load()
	var frac float64
	if total > 0 {
		frac = float64(done) / float64(total)
	}
	if frac > 1 {
		frac = 1
	}
	filled := int(float64(pb.barWidth) * frac)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", pb.barWidth-filled)
	return fmt.Sprintf("%s [%s] %3.0f%%  %d/%d jobs  %s",
		pb.label, bar, frac*100, done, total, formatDuration(time.Since(pb.start)))
}

// formatDuration formats a duration concisely (e.g. "1m23s", "45s", "0s").
func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) - m*60
	return fmt.Sprintf("%dm%02ds", m, s)
}
