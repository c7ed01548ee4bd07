package statussink

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/mlsmithjr/wandarr-go/internal/statusbus"
)

// Console is a Sink that renders one progress bar per (host, file) pair
// using fatih/color for labels and schollz/progressbar for the bar itself,
// in the terminal reporter's style.
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	bars  map[string]*progressbar.ProgressBar
	cyan  *color.Color
	green *color.Color
	red   *color.Color
	dim   *color.Color
}

// NewConsole constructs a Console sink writing to stderr.
func NewConsole() *Console {
	return &Console{
		out:   os.Stderr,
		bars:  make(map[string]*progressbar.ProgressBar),
		cyan:  color.New(color.FgCyan),
		green: color.New(color.FgGreen),
		red:   color.New(color.FgRed, color.Bold),
		dim:   color.New(color.Faint),
	}
}

func key(e statusbus.Event) string {
	return e.Host + "|" + e.File
}

// Update implements Sink.
func (c *Console) Update(e statusbus.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	bar, ok := c.bars[key(e)]
	if !ok {
		bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(c.out),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetDescription(fmt.Sprintf("%s %s", c.cyan.Sprint(e.Host), e.File)),
			progressbar.OptionClearOnFinish(),
		)
		c.bars[key(e)] = bar
	}

	_ = bar.Set(e.Comp)
	bar.Describe(fmt.Sprintf("%s %s %s", c.cyan.Sprint(e.Host), e.File, c.dim.Sprintf("(%s, %s)", e.Status, e.Speed)))

	if e.Completed {
		_ = bar.Finish()
		delete(c.bars, key(e))
		status := c.green.Sprint(e.Status)
		if e.Status == "" {
			status = c.green.Sprint("done")
		}
		fmt.Fprintf(c.out, "%s %s: %s\n", c.cyan.Sprint(e.Host), e.File, status)
	}
}
