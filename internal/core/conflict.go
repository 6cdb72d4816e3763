package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Strategy defines how Import resolves a key that exists locally with a
// different value
type Strategy int

const (
	StrategyKeepLocal Strategy = iota // Keep the local value
	StrategyUseBackup                 // Overwrite with the backup value
	StrategyAbort                     // Fail without writing anything
)

var (
	ErrConflict        = errors.New("conflicting keys in backup")
	ErrUnknownStrategy = errors.New("unknown conflict strategy")
)

var strategyNames = map[Strategy]string{
	StrategyKeepLocal: "keep-local",
	StrategyUseBackup: "use-backup",
	StrategyAbort:     "abort",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy parses a strategy name as printed by String
func ParseStrategy(name string) (Strategy, error) {
	for s, n := range strategyNames {
		if n == strings.ToLower(strings.TrimSpace(name)) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q (want keep-local, use-backup or abort)", ErrUnknownStrategy, name)
}

// diffKeyLists renders a line diff of two sorted key lists: "-key" for keys
// only in local, "+key" for keys only in backup. Equal runs are omitted.
// Keys that would not print as a single plain line are Go-quoted.
func diffKeyLists(local, backup []string) string {
	dmp := diffmatchpatch.New()

	a, b, lineArray := dmp.DiffLinesToChars(joinLines(displayKeys(local)), joinLines(displayKeys(backup)))
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var buf strings.Builder
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		default:
			continue
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			buf.WriteString(prefix)
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

func displayKeys(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = displayKey(k)
	}
	return out
}

func displayKey(key string) string {
	if strings.HasPrefix(key, `"`) || strings.IndexFunc(key, func(r rune) bool { return !strconv.IsPrint(r) }) != -1 {
		return strconv.Quote(key)
	}
	return key
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
