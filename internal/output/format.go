// Package output provides formatters for chat replies.
package output

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"todobot/internal/store"
)

const (
	// MaxReplyRunes is the LINE text message limit.
	MaxReplyRunes = 5000

	// Bullet prefixes each task line.
	Bullet = "•"
)

// FormatDueTask formats one line of a deadline listing.
// Format: "• {NAME}（due: {DEADLINE}）"
func FormatDueTask(task store.Task) string {
	return fmt.Sprintf("%s %s（due: %s）", Bullet, normalizeName(task.Name), task.Deadline)
}

// FormatDueTasks joins task lines with newlines, preserving order.
// If the result would exceed MaxReplyRunes, trailing lines are dropped and
// replaced by a "…and N more" line.
func FormatDueTasks(tasks []store.Task) string {
	lines := make([]string, len(tasks))
	for i, t := range tasks {
		lines[i] = FormatDueTask(t)
	}
	out := strings.Join(lines, "\n")
	if utf8.RuneCountInString(out) <= MaxReplyRunes {
		return out
	}

	size := 0
	for i, line := range lines {
		more := moreLine(len(lines) - i)
		n := utf8.RuneCountInString(line) + 1
		if size+n+utf8.RuneCountInString(more) > MaxReplyRunes {
			return strings.Join(append(lines[:i:i], more), "\n")
		}
		size += n
	}
	return out
}

func moreLine(n int) string {
	return fmt.Sprintf("…and %d more", n)
}

// normalizeName replaces newlines so one task stays on one line.
func normalizeName(name string) string {
	name = strings.ReplaceAll(name, "\r", " ")
	name = strings.ReplaceAll(name, "\n", " ")
	return name
}
