package common

import (
	"fmt"
	"os"
	"time"
)

// Progress renders a single-line progress bar with elapsed and
// remaining time estimates.
type Progress struct {
	t0  time.Time
	bar [20]byte
	out *os.File
}

// NewProgress returns a progress bar writing to stdout.
func NewProgress() *Progress {
	return &Progress{out: os.Stdout}
}

// Start begins the progress bar activity.
func (p *Progress) Start() {
	p.t0 = time.Now()
	for i := range p.bar {
		p.bar[i] = '-'
	}
}

// Update redraws the bar after zero-based step n of total, i.e. with
// n+1 steps done.
func (p *Progress) Update(n, total int) {
	dt := time.Since(p.t0)
	frac := float64(n+1) / float64(total)

	for i := 0; i < len(p.bar)*(n+1)/total; i++ {
		p.bar[i] = '='
	}

	remaining := time.Duration(float64(dt) * (1/frac - 1))

	fmt.Fprintf(p.out, "\r\x1b[KProgress %s %5.1f%% | elapsed %s remaining %s ",
		p.bar[:], 100*frac, DeltaString(dt), DeltaString(remaining))
}

// Finish ends the progress bar activity.
func (p *Progress) Finish() {
	fmt.Fprintln(p.out)
}

// DeltaString formats a duration as H:MM:SS.
func DeltaString(d time.Duration) string {
	s := int(d.Seconds())
	if s < 0 {
		s = 0
	}
	return fmt.Sprintf("%d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}
