package output_test

import (
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"todobot/internal/output"
	"todobot/internal/store"
)

func TestFormatDueTask(t *testing.T) {
	got := output.FormatDueTask(store.Task{UserID: "U1", Name: "Buy milk", Deadline: "2025-06-10"})
	want := "• Buy milk（due: 2025-06-10）"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestFormatDueTask_Newlines(t *testing.T) {
	got := output.FormatDueTask(store.Task{Name: "a\r\nb", Deadline: "2025-06-10"})
	want := "• a  b（due: 2025-06-10）"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestFormatDueTasks_PreservesOrder(t *testing.T) {
	got := output.FormatDueTasks([]store.Task{
		{Name: "b", Deadline: "2025-06-12"},
		{Name: "a", Deadline: "2025-06-10"},
	})
	want := "• b（due: 2025-06-12）\n• a（due: 2025-06-10）"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestFormatDueTasks_Truncates(t *testing.T) {
	var tasks []store.Task
	for i := 0; i < 400; i++ {
		tasks = append(tasks, store.Task{Name: strings.Repeat("x", 20), Deadline: "2025-06-10"})
	}

	got := output.FormatDueTasks(tasks)
	if n := utf8.RuneCountInString(got); n > output.MaxReplyRunes {
		t.Fatalf("reply has %d runes, limit is %d", n, output.MaxReplyRunes)
	}
	lines := strings.Split(got, "\n")
	last := lines[len(lines)-1]
	if !strings.HasPrefix(last, "…and ") || !strings.HasSuffix(last, " more") {
		t.Errorf("expected trailing more line, got %q", last)
	}
	shown := len(lines) - 1
	wantMore := "…and " + strconv.Itoa(400-shown) + " more"
	if last != wantMore {
		t.Errorf("expected %q, got %q", wantMore, last)
	}
}
