// Package extract recovers concrete file edits from a provider's free-form
// completion text. Edits are regions fenced by triple backticks carrying a
// single-line "filepath:" annotation; everything else in the response is
// prose and is never written to disk.
package extract

import (
	"regexp"
	"strings"
)

// fenceRe matches one triple-backtick region with an optional language tag.
var fenceRe = regexp.MustCompile("(?s)```(\\w+)?[ \t]*\n(.*?)```")

// pathAnnotationRe matches a comment-style "filepath: <path>" line. The
// annotation must use a comment prefix (#, // or /* ... */) and is matched
// case-insensitively.
var pathAnnotationRe = regexp.MustCompile(`(?i)^\s*(?:#|//|/\*)\s*filepath:\s*(.+?)\s*(?:\*/)?\s*$`)

// annotationScanLines caps how deep into a fence the path annotation may sit.
const annotationScanLines = 3

// Block is one fenced region found in the response, labelled or not.
// Unlabelled blocks are retained for output statistics only.
type Block struct {
	Language string
	// Path is the normalized repo-relative target, empty when the fence had
	// no recognized annotation.
	Path    string
	Content string
	// CodeLines counts non-empty lines that are not #- or //-comments.
	CodeLines int
	// Index is the fence's position in document order.
	Index int
}

// CodeChange is a full-file replacement recovered from a labelled block.
// Content replaces any existing file wholesale; there are no partial-patch
// semantics anywhere in this system.
type CodeChange struct {
	TargetPath string
	Content    string
	// SourceOrder is the originating fence's document-order index. When two
	// changes target the same path, the higher SourceOrder wins on apply.
	SourceOrder int
}

// NormalizePath converts separators to "/" and strips a leading "./".
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	return strings.TrimPrefix(p, "./")
}

// Blocks parses every fenced region out of responseText in document order.
// Within the first few lines of a fence, a comment-style "filepath:" line
// names the target; that line is stripped from the content. Fences whose
// remaining content is empty are dropped.
func Blocks(responseText string) []Block {
	matches := fenceRe.FindAllStringSubmatch(responseText, -1)

	var blocks []Block
	for _, m := range matches {
		lang := m[1]
		lines := strings.Split(m[2], "\n")

		var path string
		var kept []string
		for i, line := range lines {
			if path == "" && i < annotationScanLines {
				if pm := pathAnnotationRe.FindStringSubmatch(line); pm != nil {
					path = NormalizePath(strings.TrimSpace(pm[1]))
					continue
				}
			}
			kept = append(kept, line)
		}

		content := strings.TrimSpace(strings.Join(kept, "\n"))
		if content == "" {
			continue
		}

		blocks = append(blocks, Block{
			Language:  lang,
			Path:      path,
			Content:   content,
			CodeLines: CountCodeLines(content),
			Index:     len(blocks),
		})
	}
	return blocks
}

// Changes filters blocks down to the path-annotated edits, preserving
// document order. Blocks without a path are discarded here: explanatory
// snippets must never corrupt real files, even when they look like code.
func Changes(blocks []Block) []CodeChange {
	var changes []CodeChange
	for _, b := range blocks {
		if b.Path == "" {
			continue
		}
		changes = append(changes, CodeChange{
			TargetPath:  b.Path,
			Content:     b.Content,
			SourceOrder: b.Index,
		})
	}
	return changes
}

// Extract is the one-shot form: response text in, applicable edits out.
func Extract(responseText string) []CodeChange {
	return Changes(Blocks(responseText))
}

// CountCodeLines counts non-empty lines that are not #- or //-comment lines.
func CountCodeLines(text string) int {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "//") {
			continue
		}
		count++
	}
	return count
}

// TotalCodeLines sums CodeLines over all blocks, labelled or not.
func TotalCodeLines(blocks []Block) int {
	total := 0
	for _, b := range blocks {
		total += b.CodeLines
	}
	return total
}

// LinesToApply sums CodeLines over labelled blocks only.
func LinesToApply(blocks []Block) int {
	total := 0
	for _, b := range blocks {
		if b.Path != "" {
			total += b.CodeLines
		}
	}
	return total
}
