package github

import (
	"regexp"
	"strconv"
	"strings"
)

var hunkHeaderRegex = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,\d+)? @@`)

// CommentableLines extracts the line numbers on the new side of a patch
// that can receive an inline review comment. The platform rejects
// reviews whose comments point outside the diff, so callers filter
// model findings through this before publishing.
func CommentableLines(patch string) map[int]struct{} {
	valid := make(map[int]struct{})
	current := -1

	for _, line := range strings.Split(patch, "\n") {
		if strings.HasPrefix(line, "@@") {
			matches := hunkHeaderRegex.FindStringSubmatch(line)
			if len(matches) < 2 {
				current = -1
				continue
			}
			start, err := strconv.Atoi(matches[1])
			if err != nil {
				current = -1
				continue
			}
			current = start
			continue
		}

		if current == -1 {
			continue
		}

		switch {
		case strings.HasPrefix(line, "+"), strings.HasPrefix(line, " "):
			valid[current] = struct{}{}
			current++
		case strings.HasPrefix(line, "-"):
			// Removed lines live on the old side only.
		}
	}

	return valid
}

// CommentableLinesByFile builds the per-file valid-line index for a set
// of changed files.
func CommentableLinesByFile(files []ChangedFile) map[string]map[int]struct{} {
	index := make(map[string]map[int]struct{}, len(files))
	for _, f := range files {
		if f.Patch == "" {
			continue
		}
		index[f.Path] = CommentableLines(f.Patch)
	}
	return index
}
