package document

import "strings"

// scanFences tracks fenced code blocks line by line and reports each block
// with its info string and whether its closing fence was found. The scan
// follows the CommonMark fence rules: three or more backticks or tildes,
// at most three spaces of indentation, a closing fence of the same character
// at least as long as the opener, and no info string on backtick openers
// containing a backtick. offset is the 1-based file line of the first body
// line.
func scanFences(body string, offset int) []CodeBlock {
	if body == "" {
		return nil
	}

	var blocks []CodeBlock
	openIdx := -1
	var openChar byte
	var openLen int

	for i, raw := range strings.Split(body, "\n") {
		line := strings.TrimRight(raw, "\r")
		indent := leadingSpaces(line)
		if indent > 3 {
			continue // indented code or fence content, never a fence line
		}
		trimmed := line[indent:]

		ch, run := fenceRun(trimmed)
		if run < 3 {
			continue
		}
		rest := trimmed[run:]

		if openIdx >= 0 {
			// Inside a fence: only a matching closer ends it. Anything else,
			// including a longer run with trailing text, is content.
			if ch == openChar && run >= openLen && strings.TrimSpace(rest) == "" {
				blocks[openIdx].Closed = true
				openIdx = -1
			}
			continue
		}

		// Backtick info strings may not contain backticks (CommonMark).
		if ch == '`' && strings.ContainsRune(rest, '`') {
			continue
		}

		info := strings.TrimSpace(rest)
		blocks = append(blocks, CodeBlock{
			Info: info,
			Lang: firstWord(info),
			Line: offset + i,
		})
		openIdx = len(blocks) - 1
		openChar = ch
		openLen = run
	}

	return blocks
}

func leadingSpaces(s string) int {
	n := 0
	for n < len(s) && s[n] == ' ' {
		n++
	}
	return n
}

// fenceRun counts a leading run of backticks or tildes.
func fenceRun(s string) (byte, int) {
	if s == "" || (s[0] != '`' && s[0] != '~') {
		return 0, 0
	}
	ch := s[0]
	n := 0
	for n < len(s) && s[n] == ch {
		n++
	}
	return ch, n
}

func firstWord(s string) string {
	if fields := strings.Fields(s); len(fields) > 0 {
		return fields[0]
	}
	return ""
}
