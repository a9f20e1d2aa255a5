package segment

import "strings"

// Join reassembles segments into fenced text. Joining the output of Split
// reproduces the original content up to whitespace at segment boundaries.
func Join(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s.Kind != KindCode {
			parts = append(parts, s.Text)
			continue
		}
		tag := ""
		if s.Tagged {
			tag = s.Language
		}
		parts = append(parts, fence+tag+"\n"+s.Text+"\n"+fence)
	}
	return strings.Join(parts, "\n")
}

// ProseOnly reports whether no segment is code.
func ProseOnly(segments []Segment) bool {
	for _, s := range segments {
		if s.Kind == KindCode {
			return false
		}
	}
	return true
}
