package syscmd

import "strings"

// SplitTerse splits one line of nmcli terse (-t) output on ':' honouring the
// "\:" and "\\" escapes nmcli uses inside field values.
func SplitTerse(line string) []string {
	var fields []string
	var cur strings.Builder
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case c == '\\' && i+1 < len(line) && (line[i+1] == ':' || line[i+1] == '\\'):
			cur.WriteByte(line[i+1])
			i++
		case c == ':':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(fields, cur.String())
}

// TerseRows splits multi-line terse output into rows of n fields. Blank
// lines and rows with a different field count are skipped.
func TerseRows(output string, n int) [][]string {
	var rows [][]string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := SplitTerse(line)
		if len(fields) != n {
			continue
		}
		rows = append(rows, fields)
	}
	return rows
}
