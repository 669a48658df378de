package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"tubenote/internal/pipeline"
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
	statusLabelWidth = 28
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
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

func outcomeKind(status pipeline.Status) statusKind {
	switch status {
	case pipeline.StatusSucceeded:
		return statusOK
	case pipeline.StatusSkipped:
		return statusWarn
	default:
		return statusError
	}
}

func colorizeText(kind statusKind, value string, colorize bool) string {
	if !colorize {
		return value
	}
	color := statusKindColor(kind)
	if color == "" {
		return value
	}
	return color + value + ansiReset
}

// renderRunSummary prints one row per outcome followed by the totals line.
func renderRunSummary(run *pipeline.Run, colorize bool) string {
	rows := make([][]string, 0, len(run.Outcomes))
	for _, o := range run.Outcomes {
		ref := o.VideoID
		if ref == "" {
			ref = o.Input
		}
		detail := o.DocumentID
		if o.Status != pipeline.StatusSucceeded {
			detail = o.Reason
			if o.Stage != "" {
				detail = o.Stage + ": " + detail
			}
		} else if o.Passthrough {
			detail += " (untransformed)"
		}
		if o.Note != "" && o.Status == pipeline.StatusSucceeded {
			detail += " (" + o.Note + ")"
		}
		rows = append(rows, []string{
			strconv.Itoa(o.Index),
			ref,
			o.Title,
			colorizeText(outcomeKind(o.Status), o.Status.Label(), colorize),
			detail,
		})
	}
	var b strings.Builder
	b.WriteString(renderTable([]column{
		{title: "#", numeric: true},
		{title: "Video", width: 45},
		{title: "Title", width: 40},
		{title: "Status"},
		{title: "Detail"},
	}, rows))
	fmt.Fprintf(&b, "\nRun %s: %d succeeded, %d skipped, %d failed in %s",
		run.ID, run.Summary.Succeeded, run.Summary.Skipped, run.Summary.Failed, run.Duration().Round(time.Millisecond))
	return b.String()
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
