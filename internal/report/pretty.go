package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

type palette struct {
	title, name, dim, dur *color.Color
	sev                   map[string]*color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		title: color.New(color.Bold),
		name:  color.New(color.FgCyan),
		dim:   color.New(color.Faint),
		dur:   color.New(color.FgYellow),
		sev: map[string]*color.Color{
			"error":   color.New(color.FgRed, color.Bold),
			"warning": color.New(color.FgYellow, color.Bold),
			"info":    color.New(color.FgBlue),
		},
	}
	for _, c := range []*color.Color{p.title, p.name, p.dim, p.dur, p.sev["error"], p.sev["warning"], p.sev["info"]} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s string) *color.Color {
	if c, ok := p.sev[s]; ok {
		return c
	}
	return p.dim
}

// WritePretty renders the interval tree, points, correlation ids and
// diagnostics for a terminal.
func WritePretty(w io.Writer, s *Summary, opts Options) error {
	bw := bufio.NewWriter(w)
	p := newPalette(opts.Color)
	width := opts.Width
	if width <= 0 {
		width = 100
	}

	source := s.Source
	if source == "" {
		source = "<stdin>"
	}
	fmt.Fprintf(bw, "%s  %s\n", p.title.Sprint(source), p.dim.Sprint(headline(s)))

	if len(s.Intervals) > 0 {
		fmt.Fprintf(bw, "\n%s\n", p.title.Sprint("Intervals"))
		nameWidth := intervalNameWidth(s, width)
		for _, iv := range s.Intervals {
			label := strings.Repeat("  ", iv.Depth) + iv.Name
			label = runewidth.FillRight(truncate(label, nameWidth), nameWidth)
			fmt.Fprintf(bw, "  %s %s  %s  %s\n",
				p.name.Sprint(label),
				p.dur.Sprintf("%12s", millis(iv.Duration)),
				p.dim.Sprintf("@%-12s", millis(iv.Timestamp)),
				p.dim.Sprint(iv.Category))
		}
	}

	if !opts.Quiet && len(s.Points) > 0 {
		fmt.Fprintf(bw, "\n%s\n", p.title.Sprint("Points"))
		for _, pt := range s.Points {
			line := fmt.Sprintf("%12s  %s", millis(pt.Timestamp), pt.Name)
			if msg := pointMessage(pt); msg != "" {
				line += ": " + msg
			}
			fmt.Fprintf(bw, "  %s %s\n", truncate(line, width-20), p.dim.Sprintf("(%s %s)", pt.Phase, pt.Category))
		}
	}

	if ids := s.SortedCorrelationIDs(); !opts.Quiet && len(ids) > 0 {
		fmt.Fprintf(bw, "\n%s\n", p.title.Sprint("Correlation ids"))
		for _, id := range ids {
			var ev struct {
				Name string `json:"name"`
				TS   int64  `json:"ts"`
			}
			_ = json.Unmarshal(s.ByCorrelationID[id], &ev) //nolint:errcheck
			fmt.Fprintf(bw, "  %s -> %s %s\n", p.name.Sprint(id), ev.Name, p.dim.Sprintf("@%s", millis(ev.TS)))
		}
	}

	if len(s.Diagnostics) > 0 {
		fmt.Fprintf(bw, "\n%s\n", p.title.Sprint("Diagnostics"))
		shown := s.Diagnostics
		if opts.MaxDiagnostics > 0 && len(shown) > opts.MaxDiagnostics {
			shown = shown[:opts.MaxDiagnostics]
		}
		for _, d := range shown {
			where := fmt.Sprintf("#%d", d.Seq)
			if d.Key != "" {
				where += " " + d.Key
			}
			fmt.Fprintf(bw, "  %s %s %s %s\n",
				p.severity(d.Severity).Sprintf("%-7s", d.Severity),
				d.Code,
				p.dim.Sprint(truncate(where, width/3)),
				d.Message)
			for _, note := range d.Notes {
				fmt.Fprintf(bw, "      %s %s\n", p.dim.Sprint("note:"), note)
			}
		}
		if hidden := len(s.Diagnostics) - len(shown) + s.Dropped; hidden > 0 {
			fmt.Fprintf(bw, "  %s\n", p.dim.Sprintf("... %d more", hidden))
		}
	}
	return bw.Flush()
}

func headline(s *Summary) string {
	parts := []string{
		plural(len(s.Intervals), "interval"),
		plural(len(s.Points), "point"),
	}
	if n := len(s.ByCorrelationID); n > 0 {
		parts = append(parts, plural(n, "correlation id"))
	}
	if !s.Bounds.Empty {
		parts = append(parts, fmt.Sprintf("span %s..%s", millis(int64(s.Bounds.Min)), millis(int64(s.Bounds.Max))))
	}
	return strings.Join(parts, ", ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return humanize.Comma(int64(n)) + " " + noun + "s"
}

// millis formats microseconds as milliseconds with three decimals.
func millis(us int64) string {
	sign := ""
	if us < 0 {
		sign = "-"
		us = -us
	}
	return fmt.Sprintf("%s%d.%03dms", sign, us/1000, us%1000)
}

func intervalNameWidth(s *Summary, width int) int {
	widest := 0
	for _, iv := range s.Intervals {
		widest = max(widest, 2*iv.Depth+runewidth.StringWidth(iv.Name))
	}
	limit := max(width-50, 16)
	return min(widest, limit)
}

// pointMessage extracts the console message carried by TimeStamp events.
func pointMessage(pt Point) string {
	if len(pt.Args) == 0 {
		return ""
	}
	var args struct {
		Data struct {
			Message string `json:"message"`
		} `json:"data"`
	}
	if err := json.Unmarshal(pt.Args, &args); err != nil {
		return ""
	}
	return args.Data.Message
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
