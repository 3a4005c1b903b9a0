package pipeline

import (
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Progress receives row level advancement of a run.
type Progress interface {
	Advance(row, total int)
	Flushed(row, total int)
	Finish()
}

// NewProgress picks how a run reports advancement. Without verbose nothing is
// reported; with verbose a bar is drawn when stderr is a terminal, otherwise
// the current line is logged at every flush.
func NewProgress(verbose bool, log *slog.Logger, rows int) Progress {
	if !verbose {
		return noopProgress{}
	}

	if isatty.IsTerminal(os.Stderr.Fd()) {
		return &barProgress{
			log: log,
			bar: progressbar.NewOptions(rows,
				progressbar.OptionSetDescription("Enriching rows"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			),
		}
	}

	return &logProgress{log: log}
}

type noopProgress struct{}

func (noopProgress) Advance(int, int) {}
func (noopProgress) Flushed(int, int) {}
func (noopProgress) Finish()          {}

type barProgress struct {
	log *slog.Logger
	bar *progressbar.ProgressBar
}

func (bp *barProgress) Advance(int, int) {
	if err := bp.bar.Add(1); err != nil {
		bp.log.Debug("Failed to update progress bar", "error", err)
	}
}

func (bp *barProgress) Flushed(int, int) {}

func (bp *barProgress) Finish() {
	if err := bp.bar.Finish(); err != nil {
		bp.log.Debug("Failed to finish progress bar", "error", err)
	}
}

type logProgress struct {
	log *slog.Logger
}

func (lp *logProgress) Advance(int, int) {}

func (lp *logProgress) Flushed(row, total int) {
	lp.log.Info("Currently executing line", "row", row, "total", total)
}

func (lp *logProgress) Finish() {}
