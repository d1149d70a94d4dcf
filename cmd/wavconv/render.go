package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"wavconv/internal/batch"
	"wavconv/internal/history"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 12
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + line + ansiReset
		}
	}
	return line
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func shouldColorize(writer io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			WidthMax:    80,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// printSummary writes the end-of-run report: one status line per outcome and a
// table of failed files.
func printSummary(out io.Writer, summary batch.Summary, colorize bool) {
	fmt.Fprintf(out, "Run %s: %d file(s) in %s\n", summary.RunID, summary.Discovered, summary.InputDir)

	kind := statusOK
	if summary.Encoded == 0 && summary.Discovered > 0 {
		kind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Converted", kind,
		fmt.Sprintf("%d (%s in, %s out)", summary.Encoded, formatBytes(summary.BytesIn), formatBytes(summary.BytesOut)), colorize))
	if summary.Skipped > 0 {
		fmt.Fprintln(out, renderStatusLine("Skipped", statusInfo, fmt.Sprintf("%d (output exists)", summary.Skipped), colorize))
	}
	if summary.Canceled > 0 {
		fmt.Fprintln(out, renderStatusLine("Canceled", statusWarn, fmt.Sprintf("%d", summary.Canceled), colorize))
	}
	if summary.Failed > 0 {
		fmt.Fprintln(out, renderStatusLine("Failed", statusError, fmt.Sprintf("%d", summary.Failed), colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Elapsed", statusInfo, formatDuration(summary.Elapsed()), colorize))

	var rows [][]string
	for _, r := range summary.Results {
		if r.Status != history.StatusFailed {
			continue
		}
		reason := ""
		if r.Err != nil {
			reason = firstLine(r.Err.Error())
		}
		rows = append(rows, []string{filepath.Base(r.Input), reason})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable([]string{"File", "Error"}, rows, nil))
	}
}

func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
