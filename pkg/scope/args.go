package scope

import "strings"

// SplitArgs splits a configuration string at top-level commas. Commas inside
// quotes or inside (), [] and {} do not split. Each argument is trimmed. A
// blank configuration has no arguments; a trailing empty argument is dropped.
func SplitArgs(config string) []string {
	if strings.TrimSpace(config) == "" {
		return nil
	}
	var (
		args  []string
		depth int
		quote byte
		start int
	)
	for i := 0; i < len(config); i++ {
		c := config[i]
		if quote != 0 {
			switch {
			case c == '\\' && quote == '"' && i+1 < len(config):
				i++
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(config[start:i]))
				start = i + 1
			}
		}
	}
	last := strings.TrimSpace(config[start:])
	if last != "" || len(args) == 0 {
		args = append(args, last)
	}
	return args
}

// JoinArgs is the inverse of SplitArgs for already-trimmed arguments.
func JoinArgs(args []string) string {
	return strings.Join(args, ", ")
}
