package cli

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

var barTheme = progressbar.Theme{
	Saucer:        "=",
	SaucerHead:    ">",
	SaucerPadding: " ",
	BarStart:      "[",
	BarEnd:        "]",
}

// Ensure ingestProgress implements the interface.
var _ driving.IngestProgress = (*ingestProgress)(nil)

// ingestProgress draws a progress bar over the files of an ingestion run.
// Without a bar it logs each failed file instead.
type ingestProgress struct {
	w       io.Writer
	enabled bool
	bar     *progressbar.ProgressBar
}

func newIngestProgress(w io.Writer, enabled bool) *ingestProgress {
	return &ingestProgress{w: w, enabled: enabled}
}

func (p *ingestProgress) Start(total int) {
	if !p.enabled || total <= 0 {
		return
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription("ingesting"),
		progressbar.OptionSetWidth(32),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(barTheme),
	)
}

func (p *ingestProgress) FileDone(path string, err error) {
	if p.bar == nil {
		if err != nil {
			logger.Debug("skipped %s: %v", path, err)
		}
		return
	}
	p.bar.Describe(filepath.Base(path))
	_ = p.bar.Add(1) //nolint:errcheck // display only
}

func (p *ingestProgress) Finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish() //nolint:errcheck // display only
}

// stderrIsTerminal reports whether progress output can be drawn.
func stderrIsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// stdinIsTerminal reports whether the user can interact with the program.
func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// startSpinner shows an indeterminate spinner on w until the returned
// function is called.
func startSpinner(w io.Writer, enabled bool, desc string) func() {
	if !enabled {
		return func() {}
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSpinnerType(9),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWidth(10),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(barTheme),
	)

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(120 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = bar.Add(1) //nolint:errcheck // display only
			case <-done:
				_ = bar.Finish() //nolint:errcheck // display only
				return
			}
		}
	}()
	return func() {
		close(done)
		<-stopped
	}
}
