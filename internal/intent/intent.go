// Package intent classifies free-text chat messages into a closed set of
// command variants.
//
// Classification order is fixed and first match wins:
//
//  1. Help           text contains a help keyword
//  2. CompleteTask   "<name> completed", "<name> done", "<name>完了", "<name>を完了"
//  3. ListByDeadline "YYYY-MM-DDまでのタスク" or "YYYY-MM-DD tasks"
//  4. AddTask        "<name> <YYYY-MM-DD>"
//  5. Malformed      anything else
//
// The patterns overlap ("2025-06-10 done" is both a completion and looks like a
// date), so the order above is part of the contract.
package intent

import (
	"regexp"
	"strings"
)

// Kind identifies an intent variant.
type Kind int

const (
	KindHelp Kind = iota + 1
	KindCompleteTask
	KindListByDeadline
	KindAddTask
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindHelp:
		return "help"
	case KindCompleteTask:
		return "complete_task"
	case KindListByDeadline:
		return "list_by_deadline"
	case KindAddTask:
		return "add_task"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Intent is one of Help, CompleteTask, ListByDeadline, AddTask or Malformed.
type Intent interface {
	Kind() Kind
	sealed()
}

// Help asks for the usage guide.
type Help struct{}

// CompleteTask removes every task named Name.
type CompleteTask struct {
	Name string
}

// ListByDeadline lists tasks due between today and UntilDate, inclusive.
// UntilDate has the YYYY-MM-DD shape but is not guaranteed to be a real date.
type ListByDeadline struct {
	UntilDate string
}

// AddTask appends a task.
type AddTask struct {
	Name     string
	Deadline string
}

// Malformed is text that matched no command.
type Malformed struct {
	Text string
}

func (Help) Kind() Kind           { return KindHelp }
func (CompleteTask) Kind() Kind   { return KindCompleteTask }
func (ListByDeadline) Kind() Kind { return KindListByDeadline }
func (AddTask) Kind() Kind        { return KindAddTask }
func (Malformed) Kind() Kind      { return KindMalformed }

func (Help) sealed()           {}
func (CompleteTask) sealed()   {}
func (ListByDeadline) sealed() {}
func (AddTask) sealed()        {}
func (Malformed) sealed()      {}

// HelpKeywords trigger the usage guide when found anywhere in a message.
// Matching is case-insensitive.
var HelpKeywords = []string{"使い方", "how to use"}

var (
	// English markers need a space before them so "undone" is not a completion.
	// This is narrower than a bare (completed|done)$ suffix: "reportcompleted"
	// falls through to AddTask. Japanese markers attach directly to the name.
	completeRe = regexp.MustCompile(`^(.+?)(?:\s+(?:completed|done)|\s*(?:を完了|完了))$`)
	listRe     = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})(?:までのタスク|\s+tasks)$`)
	dateRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Classify maps text to exactly one intent.
func Classify(text string) Intent {
	text = strings.TrimSpace(text)

	lower := strings.ToLower(text)
	for _, kw := range HelpKeywords {
		if strings.Contains(lower, kw) {
			return Help{}
		}
	}

	if m := completeRe.FindStringSubmatch(text); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" {
			return CompleteTask{Name: name}
		}
	}

	if m := listRe.FindStringSubmatch(text); m != nil {
		return ListByDeadline{UntilDate: m[1]}
	}

	return parseAddTask(text)
}

// parseAddTask treats the last whitespace-separated token as the deadline and
// everything before it, trimmed, as the name.
func parseAddTask(text string) Intent {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return Malformed{Text: text}
	}

	deadline := fields[len(fields)-1]
	if !dateRe.MatchString(deadline) {
		return Malformed{Text: text}
	}

	name := strings.TrimSpace(text[:strings.LastIndex(text, deadline)])
	if name == "" {
		return Malformed{Text: text}
	}
	return AddTask{Name: name, Deadline: deadline}
}
