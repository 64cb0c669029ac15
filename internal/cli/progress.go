package cli

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/Veraticus/smartspend/internal/pipeline"
	"github.com/schollz/progressbar/v3"
)

// ProgressObserver draws a progress bar over the pipeline stages.
type ProgressObserver struct {
	bar  *progressbar.ProgressBar
	w    io.Writer
	seen map[pipeline.State]bool
	mu   sync.Mutex
}

// NewProgressObserver creates an observer writing to w.
func NewProgressObserver(w io.Writer) *ProgressObserver {
	p := &ProgressObserver{w: w, seen: make(map[pipeline.State]bool)}
	p.bar = progressbar.NewOptions(len(pipeline.Stages()),
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription("[cyan][bold]Processing receipt...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return p
}

// Observe is a pipeline.Observer. Each working stage advances the bar once.
func (p *ProgressObserver) Observe(state pipeline.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch state {
	case pipeline.StateDone:
		if err := p.bar.Finish(); err != nil {
			slog.Warn("Failed to finish progress bar", "error", err)
		}
	case pipeline.StateIdle:
	default:
		if p.seen[state] {
			return
		}
		p.seen[state] = true
		p.bar.Describe(fmt.Sprintf("[cyan][bold]%s...[reset]", state))
		if err := p.bar.Add(1); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}
}

// Completed returns the number of stages entered so far.
func (p *ProgressObserver) Completed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seen)
}
