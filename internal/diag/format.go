package diag

import (
	"strings"
)

// FormatShort renders one line per diagnostic:
//
//	warning PAIR2001 #12@4500 blink.console:0x1:load end event without a matching begin
//
// Notes follow on their own lines prefixed with "note". Empty input yields "".
func FormatShort(diags []Diagnostic, includeNotes bool) string {
	if len(diags) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, d := range diags {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(d.Severity.Label())
		sb.WriteByte(' ')
		sb.WriteString(d.Code.ID())
		sb.WriteByte(' ')
		sb.WriteString(d.Primary.String())
		sb.WriteByte(' ')
		sb.WriteString(strings.Join(strings.Fields(d.Message), " "))
		if includeNotes {
			for _, n := range d.Notes {
				sb.WriteString("\nnote ")
				sb.WriteString(d.Code.ID())
				sb.WriteByte(' ')
				sb.WriteString(n)
			}
		}
	}
	return sb.String()
}
