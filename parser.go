package halyard

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/agilira/go-errors"

	"gopkg.in/yaml.v3"
)

// tabSize is the number of columns a tab expands to before indentation is
// measured.
const tabSize = 4

// Parse converts halyard-format text into a Patch of dotted paths.
// name identifies the source in error messages (usually a file name).
//
// The format is an indentation-based subset of YAML with custom extensions:
//
//	server:                      # opens a block
//	    host: localhost          # bare strings need no quotes
//	    port: 8080
//	server.tls:                  # collapsed dotted path, same tree shape
//	    ciphers: [a, b]          # inline flow literals
//	    motd: |                  # multiline block string
//	        line one
//	        line two
//	    backends: - primary      # bullet list
//	    - secondary
//	    cert: !REF pki.server.cert
//
// The indentation unit is taken from the first indented line; every other
// line must indent by an exact multiple of it, growing at most one level at
// a time. Comments start with '#'. Parsing is all-or-nothing: any structural
// violation aborts with a MalformedInput error carrying the source name,
// 1-based line number, and offending line text.
func Parse(name string, data []byte) (Patch, error) {
	p := &parser{
		name:  name,
		patch: make(Patch),
	}

	for num, text := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(text) == "" {
			continue
		}
		p.lines = append(p.lines, sourceLine{num: num + 1, text: text})
	}

	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		p.pos++

		if err := p.processIndent(line); err != nil {
			return nil, err
		}
		if err := p.parseLine(line); err != nil {
			return nil, err
		}
	}

	return p.patch, nil
}

// sourceLine is a physical line paired with its 1-based number for
// diagnostics.
type sourceLine struct {
	num  int
	text string
}

type parser struct {
	name  string
	lines []sourceLine
	pos   int

	// unit is the indentation unit in columns, detected from the first
	// indented line; 0 until then.
	unit int

	// level is the current indentation level; expected is the only level
	// an indent increase may land on.
	level    int
	expected int

	// blocks is the sequence of open block names; the dot-join of it is
	// the path of the attributes on the current level.
	blocks []string

	patch Patch
}

// processIndent measures a line's indentation and adjusts the open-block
// stack. Dedents pop one block per level; an indent is only legal directly
// after a line that opened a block.
func (p *parser) processIndent(line sourceLine) error {
	indent := leadingSpaces(expandTabs(line.text))

	if p.unit == 0 && indent > 0 {
		p.unit = indent
	}

	level := 0
	if p.unit > 0 && indent > 0 {
		if indent%p.unit != 0 {
			return p.errorf(line, "indentation of %d columns is not a multiple of %d", indent, p.unit)
		}
		level = indent / p.unit
	}

	switch {
	case level < p.level:
		p.dedent(p.level - level)
		p.level = level
	case level > p.level:
		if level != p.expected {
			return p.errorf(line, "unexpected indent")
		}
		p.level = level
	}

	return nil
}

func (p *parser) dedent(levels int) {
	if levels > len(p.blocks) {
		levels = len(p.blocks)
	}
	p.blocks = p.blocks[:len(p.blocks)-levels]
	p.expected -= levels
}

// parseLine splits a normalized line on its first colon. A bare "name:"
// opens a block; "name: value" records an attribute at the current path.
func (p *parser) parseLine(line sourceLine) error {
	text := normalizeLine(line.text)
	if text == "" {
		// The whole line was a comment.
		return nil
	}

	idx := strings.Index(text, ":")
	if idx < 0 {
		return p.errorf(line, "expected %q or %q", "name: value", "name:")
	}

	name := strings.TrimSpace(text[:idx])
	if name == "" {
		return p.errorf(line, "missing name before ':'")
	}

	rawValue := strings.TrimSpace(text[idx+1:])
	if rawValue == "" {
		p.blocks = append(p.blocks, name)
		p.expected++
		return nil
	}

	value, err := p.parseValue(rawValue, line)
	if err != nil {
		return err
	}

	p.patch.Set(strings.Join(p.blocks, "."), name, value)
	return nil
}

// parseValue dispatches on the shape of a value: "|" opens a multiline block
// string, "- " opens a bullet list, "!REF " builds a lazy reference, and
// anything else is an inline scalar.
func (p *parser) parseValue(raw string, line sourceLine) (any, error) {
	switch {
	case raw == "|":
		return p.parseBlockString(), nil
	case isBullet(raw):
		return p.parseBulletList(raw, line)
	case raw == "!REF":
		return nil, p.errorf(line, "!REF requires a target path")
	case strings.HasPrefix(raw, "!REF "):
		return NewReference(strings.TrimSpace(raw[len("!REF "):])), nil
	default:
		return p.parseScalar(raw, line)
	}
}

// parseBlockString accumulates the following physical lines verbatim until a
// line containing ':' appears. That line is not consumed: the main loop runs
// it through indentation processing and line parsing again (parse-back).
// The accumulated lines are dedented as one string.
func (p *parser) parseBlockString() string {
	var collected []string

	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		if strings.Contains(line.text, ":") {
			break
		}
		collected = append(collected, expandTabs(line.text))
		p.pos++
	}

	return strings.Join(dedent(collected), "\n")
}

// parseBulletList collects "- item" lines into a list. The first element
// rides on the value of the opening line; every following line that begins
// with a bullet adds one. The first non-bullet line ends the list and is
// parsed back as a normal line.
func (p *parser) parseBulletList(first string, line sourceLine) (any, error) {
	items := make([]any, 0, 1)

	elem, err := p.parseScalar(bulletRest(first), line)
	if err != nil {
		return nil, err
	}
	items = append(items, elem)

	for p.pos < len(p.lines) {
		next := p.lines[p.pos]
		text := normalizeLine(next.text)
		if !isBullet(text) {
			break
		}
		elem, err := p.parseScalar(bulletRest(text), next)
		if err != nil {
			return nil, err
		}
		items = append(items, elem)
		p.pos++
	}

	return items, nil
}

// parseScalar evaluates an inline literal: numbers, booleans, quoted
// strings, and flow lists/maps, in YAML literal syntax. A value the
// evaluator rejects is kept as a bare string when it is a plain word;
// anything else is a hard error.
func (p *parser) parseScalar(raw string, line sourceLine) (any, error) {
	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err == nil {
		return value, nil
	}

	if isBareWord(raw) {
		return raw, nil
	}

	return nil, p.errorf(line, "cannot parse value %q", raw)
}

func (p *parser) errorf(line sourceLine, format string, args ...any) error {
	trimmed := strings.TrimSpace(line.text)
	msg := fmt.Sprintf(format, args...)
	return errors.New(ErrCodeMalformedInput,
		fmt.Sprintf("%s:%d: %s: %q", p.name, line.num, msg, trimmed)).
		WithContext("source", p.name).
		WithContext("line", line.num).
		WithContext("text", trimmed)
}

// normalizeLine strips a trailing comment and surrounding whitespace.
func normalizeLine(text string) string {
	if idx := strings.Index(text, "#"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

func expandTabs(text string) string {
	return strings.ReplaceAll(text, "\t", strings.Repeat(" ", tabSize))
}

func leadingSpaces(text string) int {
	for i := 0; i < len(text); i++ {
		if text[i] != ' ' {
			return i
		}
	}
	return len(text)
}

// isBullet reports whether a trimmed value or line reads as a list element.
// The space after the dash is required so negative numbers stay scalars.
func isBullet(text string) bool {
	return text == "-" || strings.HasPrefix(text, "- ")
}

func bulletRest(text string) string {
	return strings.TrimSpace(strings.TrimPrefix(text, "-"))
}

// isBareWord reports whether text is a plain alphanumeric token (with '_'
// and '-') acceptable as an unquoted string.
func isBareWord(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' {
			return false
		}
	}
	return true
}

// dedent strips the longest common leading-space prefix from the lines.
func dedent(lines []string) []string {
	if len(lines) == 0 {
		return lines
	}

	common := -1
	for _, line := range lines {
		n := leadingSpaces(line)
		if common < 0 || n < common {
			common = n
		}
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = line[common:]
	}
	return out
}
