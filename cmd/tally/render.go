package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

const checklistLabelWidth = 18

// renderChecklistLine formats one milestone row of a period detail view.
// Reached milestones show their stamp, pending ones a dash.
func renderChecklistLine(label string, reached bool, detail string, colorize bool) string {
	marker := "[ ]"
	if reached {
		marker = "[x]"
	}
	line := fmt.Sprintf("  %s %-*s %s", marker, checklistLabelWidth, label, detail)
	if colorize {
		if reached {
			return ansiGreen + line + ansiReset
		}
		return ansiYellow + line + ansiReset
	}
	return line
}

func renderSectionHeader(title string) string {
	return fmt.Sprintf("== %s ==", strings.TrimSpace(title))
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
