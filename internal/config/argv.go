package config

import (
	"fmt"
	"strings"
	"unicode"
)

// ValueSlot marks where a helper command receives its per-call value: the
// emote path for CLIPBOARD_CMD and the key chord for KEY_CMD.
const ValueSlot = "{}"

// Expand returns the command with value substituted into every ValueSlot.
// Commands without a slot receive value as their final argument.
func (c CommandConfig) Expand(value string) []string {
	argv := make([]string, 0, len(c.Argv)+1)
	slotted := false
	for _, arg := range c.Argv {
		if strings.Contains(arg, ValueSlot) {
			arg = strings.ReplaceAll(arg, ValueSlot, value)
			slotted = true
		}
		argv = append(argv, arg)
	}
	if !slotted {
		argv = append(argv, value)
	}
	return argv
}

// splitCommand tokenizes a helper command line using shell-style words.
// Single quotes are literal, double quotes honor \" and \\, and a bare
// backslash escapes the next rune. Quoted empty strings survive as empty
// arguments. A line starting with # is treated as unset.
func splitCommand(line string) ([]string, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, nil
	}

	var (
		argv   []string
		word   strings.Builder
		inWord bool
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; {
		case unicode.IsSpace(r):
			if inWord {
				argv = append(argv, word.String())
				word.Reset()
				inWord = false
			}
		case r == '\\':
			i++
			if i == len(runes) {
				return nil, fmt.Errorf("command %q ends with a dangling escape", line)
			}
			word.WriteRune(runes[i])
			inWord = true
		case r == '\'':
			end := indexRune(runes, i+1, '\'')
			if end < 0 {
				return nil, fmt.Errorf("command %q has an unterminated ' quote", line)
			}
			word.WriteString(string(runes[i+1 : end]))
			i = end
			inWord = true
		case r == '"':
			i++
			for ; i < len(runes) && runes[i] != '"'; i++ {
				if runes[i] == '\\' && i+1 < len(runes) && (runes[i+1] == '"' || runes[i+1] == '\\') {
					i++
				}
				word.WriteRune(runes[i])
			}
			if i == len(runes) {
				return nil, fmt.Errorf("command %q has an unterminated \" quote", line)
			}
			inWord = true
		default:
			word.WriteRune(r)
			inWord = true
		}
	}
	if inWord {
		argv = append(argv, word.String())
	}
	return argv, nil
}

func indexRune(runes []rune, from int, want rune) int {
	for i := from; i < len(runes); i++ {
		if runes[i] == want {
			return i
		}
	}
	return -1
}

func mustSplitCommand(line string) []string {
	argv, err := splitCommand(line)
	if err != nil {
		panic(err)
	}
	return argv
}
