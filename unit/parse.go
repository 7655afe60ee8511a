package unit

import (
	"regexp"
	"strings"
)

// Install placeholders stripped from EXE/LIB paths.
var placeholders = []string{
	"$(FOAM_APPBIN)/",
	"$(FOAM_LIBBIN)/",
	"$(FOAM_USER_APPBIN)/",
	"$(FOAM_USER_LIBBIN)/",
}

// dependencyVars are the Make/options variables holding link flags.
var dependencyVars = map[string]bool{
	"EXE_LIBS": true,
	"LIB_LIBS": true,
}

// continuation matches a backslash and the character after it, newline included.
var continuation = regexp.MustCompile(`\\(?s:.)`)

// ParseTarget finds the first EXE or LIB assignment in Make/files content.
// ok is false when there is none.
func ParseTarget(content string) (kind Kind, output string, ok bool) {
	for _, line := range logicalLines(content) {
		name, value, isAssign := assignment(line)
		if !isAssign {
			continue
		}
		switch name {
		case "EXE":
			return Executable, OutputName(value), true
		case "LIB":
			return Library, OutputName(value), true
		}
	}
	return KindUnknown, "", false
}

// ParseDependencies returns the library names linked through EXE_LIBS and
// LIB_LIBS in Make/options content. Only -l<name> tokens count; every
// assignment (=, +=, :=, ?=) contributes. Names keep their first-seen order
// and appear once.
func ParseDependencies(content string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, line := range logicalLines(content) {
		name, value, isAssign := assignment(line)
		if !isAssign || !dependencyVars[name] {
			continue
		}
		for _, tok := range strings.Fields(value) {
			if !strings.HasPrefix(tok, "-l") || len(tok) == 2 {
				continue
			}
			dep := tok[2:]
			if !seen[dep] {
				seen[dep] = true
				names = append(names, dep)
			}
		}
	}
	return names
}

// OutputName strips a known install placeholder prefix from a target path.
func OutputName(target string) string {
	target = strings.TrimSpace(target)
	for _, p := range placeholders {
		if rest, found := strings.CutPrefix(target, p); found {
			return rest
		}
	}
	return target
}

// logicalLines joins continuation lines and drops blank and comment lines.
func logicalLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = continuation.ReplaceAllString(content, " ")
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// assignment splits "NAME op value" where op is =, +=, := or ?=.
func assignment(line string) (name, value string, ok bool) {
	lhs, rhs, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	lhs = strings.TrimSpace(lhs)
	lhs = strings.TrimRight(lhs, "+:?")
	lhs = strings.TrimSpace(lhs)
	if lhs == "" || strings.ContainsAny(lhs, " \t") {
		return "", "", false
	}
	return lhs, strings.TrimSpace(rhs), true
}
