package console

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"

	plugsync "github.com/schaermu/plugsync/internal/sync"
	"github.com/schaermu/plugsync/internal/watch"
)

// Printer writes human-readable status lines. It is safe for concurrent use.
type Printer struct {
	mu sync.Mutex
	w  io.Writer

	title, label, ok, warn, fail, change *color.Color
}

// New returns a Printer writing to w. Colors are used only when w is a
// terminal and noColor is false.
func New(w io.Writer, noColor bool) *Printer {
	p := &Printer{
		w:      w,
		title:  color.New(color.FgBlue, color.Bold),
		label:  color.New(color.FgCyan),
		ok:     color.New(color.FgGreen),
		warn:   color.New(color.FgYellow),
		fail:   color.New(color.FgRed),
		change: color.New(color.FgYellow),
	}

	colorize := !noColor && ShouldColorize(w)
	for _, c := range []*color.Color{p.title, p.label, p.ok, p.warn, p.fail, p.change} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// ShouldColorize reports whether w is a terminal
func ShouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (p *Printer) println(a ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintln(p.w, a...)
}

// Banner describes the configuration shown at startup
type Banner struct {
	PluginID    string
	Source      string
	Destination string
	Version     string
}

// Title prints the program heading
func (p *Printer) Title() {
	p.println(p.title.Sprint("Obsidian Plugin Sync"))
	p.println()
}

// Banner prints the resolved configuration
func (p *Printer) Banner(b Banner) {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendRow(table.Row{p.label.Sprint("Plugin"), b.PluginID})
	if b.Version != "" {
		tw.AppendRow(table.Row{p.label.Sprint("Version"), b.Version})
	}
	tw.AppendRow(table.Row{p.label.Sprint("Source"), b.Source})
	tw.AppendRow(table.Row{p.label.Sprint("Destination"), b.Destination})

	p.println(tw.Render())
	p.println()
}

// Warn prints a non-fatal warning
func (p *Printer) Warn(format string, args ...any) {
	p.println(p.warn.Sprint("! ") + fmt.Sprintf(format, args...))
}

// Fatal prints a startup error and an optional hint on how to fix it
func (p *Printer) Fatal(err error, hint string) {
	p.println(p.fail.Sprint("✗ ") + err.Error())
	if hint != "" {
		p.println("Run: " + p.label.Sprint(hint))
	}
}

// SyncStarted announces a full sync
func (p *Printer) SyncStarted() {
	p.println(p.title.Sprint("Syncing..."))
}

// SyncDone prints the result of a full sync
func (p *Printer) SyncDone(s plugsync.Summary) {
	line := fmt.Sprintf("%s %d files, %d folders", p.ok.Sprint("Done:"), s.Files, s.Folders)
	if s.Removed > 0 {
		line += fmt.Sprintf(", %d removed", s.Removed)
	}
	if s.Failed > 0 {
		line += p.fail.Sprintf(", %d failed", s.Failed)
	}
	p.println(line)
	p.println()
}

// Changed announces a change that is about to be synced
func (p *Printer) Changed(rel string, op watch.Op) {
	if op == watch.Created {
		p.println(p.ok.Sprint("+ " + rel))
		return
	}
	p.println(p.change.Sprint("~ " + rel))
}

// Synced confirms a copied file
func (p *Printer) Synced(rel string) {
	p.println("   " + p.ok.Sprint("✓ "+rel))
}

// Failed reports a file that could not be copied
func (p *Printer) Failed(rel string, err error) {
	p.println("   " + p.fail.Sprintf("✗ %s: %v", rel, err))
}

// FolderFailed reports a folder that could not be mirrored
func (p *Printer) FolderFailed(rel string, err error) {
	p.println(p.fail.Sprintf("✗ Folder error %s: %v", rel, err))
}

// Watching announces that changes are being monitored
func (p *Printer) Watching() {
	p.println(p.ok.Sprint("Monitoring active") + " (Ctrl+C to stop)")
	p.println()
}

// Stopping announces shutdown
func (p *Printer) Stopping() {
	p.println()
	p.println(p.warn.Sprint("Stopping..."))
}

// Stopped confirms a clean shutdown
func (p *Printer) Stopped() {
	p.println(p.ok.Sprint("Sync stopped"))
}
