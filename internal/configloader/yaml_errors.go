package configloader

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var (
	yamlErrorPattern = regexp.MustCompile(`yaml: line (\d+):(?: column (\d+):)? (.+)`)
	yamlKeyPattern   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)
)

// EnhanceConfigError rewrites a koanf parse error into a message with the offending lines
// and, when a common mistake is recognised, a hint. Only YAML errors are enhanced; the JSON
// and TOML parsers already report positions clearly.
func EnhanceConfigError(configFile, format string, parseErr error) error {
	wrapped := fmt.Errorf("failed to load config file: %w", parseErr)
	if format != "yaml" {
		return wrapped
	}

	pos, ok := parseYAMLError(parseErr)
	if !ok {
		return wrapped
	}

	content, err := os.ReadFile(configFile)
	if err != nil {
		return wrapped
	}
	lines := strings.Split(string(content), "\n")

	hint, hintLine := findHint(lines, pos.Line)
	focus := pos.Line
	if hint != "" && hintLine > 0 {
		focus = hintLine
	}

	return errors.New(renderYAMLError(configFile, lines, focus, pos, hint))
}

type yamlPosition struct {
	Line    int
	Column  int
	Message string
}

func parseYAMLError(err error) (yamlPosition, bool) {
	if err == nil {
		return yamlPosition{}, false
	}
	m := yamlErrorPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return yamlPosition{}, false
	}
	line, _ := strconv.Atoi(m[1])
	col := 0
	if m[2] != "" {
		col, _ = strconv.Atoi(m[2])
	}
	return yamlPosition{Line: line, Column: col, Message: m[3]}, true
}

func renderYAMLError(configFile string, lines []string, focus int, pos yamlPosition, hint string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "YAML syntax error in %s\n\n", configFile)

	first := max(1, focus-1)
	last := min(len(lines), focus+1)
	width := len(strconv.Itoa(last))

	for n := first; n <= last; n++ {
		fmt.Fprintf(&b, "  %*d | %s\n", width, n, strings.ReplaceAll(lines[n-1], "\t", "→   "))
		if n == pos.Line && pos.Column > 0 {
			fmt.Fprintf(&b, "%s^ %s\n", strings.Repeat(" ", width+4+pos.Column-1), pos.Message)
		}
	}

	switch {
	case hint != "":
		fmt.Fprintf(&b, "\n   Hint: %s\n", hint)
	case pos.Message != "" && pos.Column == 0:
		fmt.Fprintf(&b, "\n   Error: %s\n", pos.Message)
	}
	return b.String()
}

// hintFunc inspects the file around the reported line and returns a hint and the line it
// refers to.
type hintFunc func(lines []string, errLine int) (string, int, bool)

var hintFuncs = []hintFunc{
	hintTabIndent,
	hintMissingColon,
	hintOddIndent,
	hintUnquotedValue,
}

func findHint(lines []string, errLine int) (string, int) {
	for _, fn := range hintFuncs {
		if hint, line, ok := fn(lines, errLine); ok {
			return hint, line
		}
	}
	return "", 0
}

func hintTabIndent(lines []string, _ int) (string, int, bool) {
	for i, l := range lines {
		indent := l[:len(l)-len(strings.TrimLeft(l, " \t"))]
		if strings.Contains(indent, "\t") {
			return "YAML requires spaces for indentation, not tabs. Replace the tab with spaces.", i + 1, true
		}
	}
	return "", 0, false
}

// hintMissingColon looks at the reported line and the one before it, since the parser often
// trips on the line after a "key value" typo.
func hintMissingColon(lines []string, errLine int) (string, int, bool) {
	for _, n := range []int{errLine, errLine - 1} {
		if n < 1 || n > len(lines) {
			continue
		}
		trimmed := strings.TrimSpace(lines[n-1])
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "-") || strings.Contains(trimmed, ":") {
			continue
		}
		key, value, found := strings.Cut(trimmed, " ")
		if found && value != "" && yamlKeyPattern.MatchString(key) {
			return fmt.Sprintf("Line %d appears to be missing a ':' after '%s'. Did you mean '%s: %s'?", n, key, key, value), n, true
		}
	}
	return "", 0, false
}

func hintOddIndent(lines []string, errLine int) (string, int, bool) {
	unit := indentUnit(lines)
	for i := max(0, errLine-3); i < min(len(lines), errLine+1); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if n := leadingSpaces(lines[i]); n%unit != 0 {
			return fmt.Sprintf("Inconsistent indentation on line %d. Expected indentation to be a multiple of %d spaces.", i+1, unit), i + 1, true
		}
	}
	return "", 0, false
}

func hintUnquotedValue(lines []string, errLine int) (string, int, bool) {
	const special = `:@#{}[]*&!|>'"%`
	for _, n := range []int{errLine - 1, errLine} {
		if n < 1 || n > len(lines) {
			continue
		}
		trimmed := strings.TrimSpace(lines[n-1])
		if strings.HasPrefix(trimmed, "#") {
			continue
		}
		_, value, found := strings.Cut(trimmed, ":")
		value = strings.TrimSpace(value)
		if !found || value == "" || isQuoted(value) {
			continue
		}
		if i := strings.IndexAny(value, special); i >= 0 {
			return fmt.Sprintf("Value on line %d contains special character '%c'. Try quoting the value: '%s'", n, value[i], value), n, true
		}
	}
	return "", 0, false
}

func isQuoted(s string) bool {
	return len(s) >= 2 && (s[0] == '"' && s[len(s)-1] == '"' || s[0] == '\'' && s[len(s)-1] == '\'')
}

func leadingSpaces(s string) int {
	return len(s) - len(strings.TrimLeft(s, " "))
}

// indentUnit returns the smallest non-zero indentation in the file, defaulting to 2.
func indentUnit(lines []string) int {
	unit := 0
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if n := leadingSpaces(l); n > 0 && (unit == 0 || n < unit) {
			unit = n
		}
	}
	if unit == 0 {
		return 2
	}
	return unit
}
