package cfgfile

import (
	"bytes"
	"strings"
	"unicode"
)

type lineKind int

const (
	kindOther lineKind = iota
	kindHeader
)

// line is one raw line of the settings file. Text excludes the line ending,
// which is kept separately so it can be reproduced byte for byte.
type line struct {
	text string
	eol  string
	kind lineKind
	name string // section name, headers only
}

func newLine(text, eol string) line {
	l := line{text: text, eol: eol}
	if name, ok := parseHeader(text); ok {
		l.kind = kindHeader
		l.name = name
	}
	return l
}

func (l line) blank() bool {
	return strings.TrimSpace(l.text) == ""
}

// parseHeader recognizes "[name]" with optional surrounding whitespace.
func parseHeader(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 3 || trimmed[0] != '[' || trimmed[len(trimmed)-1] != ']' {
		return "", false
	}
	return strings.TrimSpace(trimmed[1 : len(trimmed)-1]), true
}

// assignment is a key line split into its parts:
// prefix (indent, key, separator, whitespace), value, trailing (whitespace
// and optional '#' or ';' comment).
type assignment struct {
	prefix   string
	value    string
	trailing string
}

// matchKey matches `key` followed by ':' or '=' on a single line.
func matchKey(text, key string) (assignment, bool) {
	rest := strings.TrimLeftFunc(text, unicode.IsSpace)
	if key == "" || !strings.HasPrefix(rest, key) {
		return assignment{}, false
	}
	rest = strings.TrimLeftFunc(rest[len(key):], unicode.IsSpace)
	if rest == "" || (rest[0] != ':' && rest[0] != '=') {
		return assignment{}, false
	}
	rest = strings.TrimLeftFunc(rest[1:], unicode.IsSpace)

	prefixEnd := len(text) - len(rest)
	tokenEnd := len(text)
	if i := strings.IndexAny(rest, "#;"); i >= 0 {
		tokenEnd = prefixEnd + i
	}
	valueEnd := prefixEnd + len(strings.TrimRightFunc(text[prefixEnd:tokenEnd], unicode.IsSpace))

	return assignment{
		prefix:   text[:prefixEnd],
		value:    text[prefixEnd:valueEnd],
		trailing: text[valueEnd:],
	}, true
}

// Document is the settings file as an ordered sequence of typed line
// records. Unrecognized lines are kept verbatim. Section ranges are
// recomputed on every lookup because insertions shift indices.
type Document struct {
	lines []line
	eol   string
}

// Parse splits data into line records, preserving each line ending.
func Parse(data []byte) *Document {
	doc := &Document{}
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			doc.lines = append(doc.lines, newLine(string(data), ""))
			break
		}
		text, eol := string(data[:i]), "\n"
		if strings.HasSuffix(text, "\r") {
			text, eol = text[:len(text)-1], "\r\n"
		}
		if doc.eol == "" {
			doc.eol = eol
		}
		doc.lines = append(doc.lines, newLine(text, eol))
		data = data[i+1:]
	}
	if doc.eol == "" {
		doc.eol = "\n"
	}
	return doc
}

// Bytes reassembles the document.
func (d *Document) Bytes() []byte {
	var b bytes.Buffer
	for _, l := range d.lines {
		b.WriteString(l.text)
		b.WriteString(l.eol)
	}
	return b.Bytes()
}

// Len returns the number of lines
func (d *Document) Len() int {
	return len(d.lines)
}

// sectionRange returns [start, end) for a section: start is the header line,
// end the next header or end of file. When a name appears more than once,
// the last occurrence wins.
func (d *Document) sectionRange(name string) (start, end int, ok bool) {
	start = -1
	for i, l := range d.lines {
		if l.kind != kindHeader {
			continue
		}
		if start >= 0 && end < 0 {
			end = i
		}
		if l.name == name {
			start, end = i, -1
		}
	}
	if start < 0 {
		return 0, 0, false
	}
	if end < 0 {
		end = len(d.lines)
	}
	return start, end, true
}

// HasSection reports whether a header for name exists
func (d *Document) HasSection(name string) bool {
	_, _, ok := d.sectionRange(name)
	return ok
}

func (d *Document) findKey(section, key string) (int, assignment, bool) {
	start, end, ok := d.sectionRange(section)
	if !ok {
		return 0, assignment{}, false
	}
	for i := start + 1; i < end; i++ {
		if d.lines[i].kind == kindHeader {
			continue
		}
		if a, ok := matchKey(d.lines[i].text, key); ok {
			return i, a, true
		}
	}
	return 0, assignment{}, false
}

// Get returns the trimmed value of key inside section.
func (d *Document) Get(section, key string) (string, bool) {
	_, a, ok := d.findKey(section, key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(a.value), true
}

// EnsureSection appends a "[name]" header when the section is missing. The
// file is first terminated with a line ending and, when its last line is
// not blank, separated by one blank line.
func (d *Document) EnsureSection(name string) {
	if d.HasSection(name) {
		return
	}
	if n := len(d.lines); n > 0 {
		if d.lines[n-1].eol == "" {
			d.lines[n-1].eol = d.eol
		}
		if !d.lines[n-1].blank() {
			d.lines = append(d.lines, newLine("", d.eol))
		}
	}
	d.lines = append(d.lines, newLine("["+name+"]", d.eol))
}

// Set assigns value to key inside section. An existing line only has its
// value span replaced; prefix, trailing comment and line ending are kept. A
// missing key is inserted after the header or the section's last non-blank
// line, whichever is later.
func (d *Document) Set(section, key, value string) {
	d.EnsureSection(section)

	if i, a, ok := d.findKey(section, key); ok {
		d.lines[i].text = a.prefix + value + a.trailing
		return
	}

	start, end, _ := d.sectionRange(section)
	insertAt := start + 1
	for i := end - 1; i > start; i-- {
		if !d.lines[i].blank() {
			insertAt = i + 1
			break
		}
	}

	// the line we insert after may be the unterminated last line
	if d.lines[insertAt-1].eol == "" {
		d.lines[insertAt-1].eol = d.eol
	}

	d.lines = append(d.lines, line{})
	copy(d.lines[insertAt+1:], d.lines[insertAt:])
	d.lines[insertAt] = newLine(key+" : "+value, d.eol)
}
