package locator

// Quote-aware scanning. Attribute values in queries are quoted with either
// double or single quotes, and separators inside a quoted run must not act
// as separators. Quote characters cannot be escaped inside a value; a value
// containing its own quote character is not expressible in the language.

// indexOfUnquoted returns the index of the first occurrence of ch at or
// after from that sits outside any quoted run, or -1. The scan assumes from
// itself is outside a quoted run.
func indexOfUnquoted(s string, ch byte, from int) int {
	var quote byte
	for i := from; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == ch:
			return i
		}
	}
	return -1
}

// lastIndexOfUnquoted returns the index of the last unquoted occurrence of
// ch, or -1.
func lastIndexOfUnquoted(s string, ch byte) int {
	var quote byte
	last := -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == ch:
			last = i
		}
	}
	return last
}

// splitUnquoted splits s at every unquoted occurrence of ch.
func splitUnquoted(s string, ch byte) []string {
	var parts []string
	start := 0
	for {
		ix := indexOfUnquoted(s, ch, start)
		if ix < 0 {
			return append(parts, s[start:])
		}
		parts = append(parts, s[start:ix])
		start = ix + 1
	}
}
