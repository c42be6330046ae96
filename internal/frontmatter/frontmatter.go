// Package frontmatter extracts and decodes metadata blocks from
// Markdown documents. The split rules match the engine's front matter
// extension: the delimiter must be the first line and must recur on a
// later line, with trailing blank lines belonging to the block.
package frontmatter

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultDelimiter is the conventional YAML front matter fence.
const DefaultDelimiter = "---"

// ErrBadDelimiter indicates a delimiter that cannot form a fence line.
var ErrBadDelimiter = errors.New("front matter delimiter must be a single non-empty line")

// Split separates a leading front matter block from the Markdown body.
// The returned block excludes the delimiter lines. When src does not
// start with the delimiter, or no closing delimiter follows, had is
// false and body is the full input.
func Split(src []byte, delimiter string) (block, body []byte, had bool, err error) {
	if delimiter == "" || strings.ContainsAny(delimiter, "\r\n") {
		return nil, src, false, ErrBadDelimiter
	}

	lines := strings.SplitAfter(string(src), "\n")
	if len(lines) < 2 || strings.TrimRight(lines[0], "\r\n") != delimiter {
		return nil, src, false, nil
	}
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r\n") == delimiter {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, src, false, nil
	}

	blockStart := len(lines[0])
	blockEnd := blockStart
	for i := 1; i < end; i++ {
		blockEnd += len(lines[i])
	}
	cut := blockEnd + len(lines[end])
	for i := end + 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t\r\n") != "" {
			break
		}
		cut += len(lines[i])
	}
	return src[blockStart:blockEnd], src[cut:], true, nil
}

// Join reassembles a document from a front matter block and body. When
// had is false the body is returned unchanged.
func Join(block, body []byte, had bool, delimiter string) []byte {
	if !had {
		return body
	}
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}

	fence := []byte(delimiter + "\n")
	out := make([]byte, 0, 2*len(fence)+len(block)+1+len(body))
	out = append(out, fence...)
	out = append(out, block...)
	if len(block) > 0 && block[len(block)-1] != '\n' {
		out = append(out, '\n')
	}
	out = append(out, fence...)
	out = append(out, body...)
	return out
}

// Metadata is decoded front matter with the fields the preview server
// cares about pulled out.
type Metadata struct {
	// Title is the "title" field when it is a string, otherwise empty.
	Title string
	// Fields holds the full decoded mapping.
	Fields map[string]any
}

// Decode parses a YAML front matter block (without delimiter lines).
// An empty block decodes to empty metadata.
func Decode(block []byte) (Metadata, error) {
	meta := Metadata{Fields: map[string]any{}}
	if len(block) == 0 {
		return meta, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal(block, &fields); err != nil {
		return Metadata{}, fmt.Errorf("decode front matter: %w", err)
	}
	if fields != nil {
		meta.Fields = fields
	}
	if title, ok := meta.Fields["title"].(string); ok {
		meta.Title = title
	}
	return meta, nil
}
