package main

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"langtagger/internal/tagger"
)

// progressObserver drives a terminal progress bar from tagger callbacks.
type progressObserver struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

func newProgressObserver(out io.Writer) *progressObserver {
	return &progressObserver{out: out}
}

func (p *progressObserver) Started(total int) {
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription("Scanning folders"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func (p *progressObserver) FolderProcessed(tagger.FolderResult) {
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

func (p *progressObserver) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
