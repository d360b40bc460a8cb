package extract

import (
	"bufio"
	"bytes"
	"strings"
)

// ParseTextFile extracts one text per non-empty line of an external text
// file. Lines starting with "#" are comments. Surrounding whitespace and a
// UTF-8 byte order mark are trimmed.
func ParseTextFile(data []byte) []string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var texts []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		texts = append(texts, line)
	}
	return texts
}
