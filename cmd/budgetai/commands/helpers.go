package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/54b3r/budgetai-go/internal/app"
	"github.com/54b3r/budgetai-go/internal/logging"
	"github.com/54b3r/budgetai-go/internal/rag"
	"github.com/54b3r/budgetai-go/internal/session"
)

// openApp builds the runtime for one command. Callers must Close it.
func openApp(cmd *cobra.Command, opts app.Options) (*app.App, error) {
	return app.New(cmd.Context(), logging.FromContext(cmd.Context()), opts)
}

// interactive reports whether stderr is a terminal, where progress output
// is drawn.
func interactive() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

var barTheme = progressbar.Theme{
	Saucer:        "=",
	SaucerHead:    ">",
	SaucerPadding: " ",
	BarStart:      "[",
	BarEnd:        "]",
}

// chunkProgress returns a rag.Progress drawing a bar on stderr, and a
// function finishing it. Both are no-ops off a terminal.
func chunkProgress(desc string) (rag.Progress, func()) {
	if !interactive() {
		return nil, func() {}
	}
	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetDescription(desc),
				progressbar.OptionSetWidth(32),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
				progressbar.OptionSetTheme(barTheme),
			)
		}
		_ = bar.Set(done)
	}
	return progress, func() {
		if bar != nil {
			_ = bar.Finish()
		}
	}
}

// startSpinner draws an indeterminate spinner on stderr until the returned
// function is called.
func startSpinner(desc string) func() {
	if !interactive() {
		return func() {}
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
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
				_ = bar.Add(1)
			case <-done:
				_ = bar.Finish()
				return
			}
		}
	}()
	return func() {
		close(done)
		<-stopped
	}
}

// printMessage renders an assistant message with its citations.
func printMessage(w io.Writer, msg session.Message) {
	fmt.Fprintln(w, msg.Content)
	if msg.Failed {
		return
	}
	if len(msg.Sources) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Sources :")
		for _, c := range msg.Sources {
			switch {
			case c.URL != "":
				fmt.Fprintf(w, "  - %s\n", c.URL)
			case c.Similarity != nil:
				fmt.Fprintf(w, "  - %s (extrait %d, similarité %.2f)\n", c.Source, c.ChunkIndex, *c.Similarity)
			default:
				fmt.Fprintf(w, "  - %s (extrait %d)\n", c.Source, c.ChunkIndex)
			}
		}
	}
	fmt.Fprintf(w, "\n(%.1f s)\n", msg.Elapsed)
}

// questionArg joins positional args into one question.
func questionArg(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
