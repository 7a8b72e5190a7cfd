// Package report splits a long text report into parts that fit a chat
// message size limit. Parts break only at section dividers, so every section
// arrives whole.
package report

import (
	"fmt"
	"strings"
)

// Divider separates report sections.
var Divider = strings.Repeat("-", 80)

// Overhead is reserved in every part for the part header and code fence.
const Overhead = 80

// DefaultCeiling is the chat message size limit in bytes.
const DefaultCeiling = 25000

const fence = "```"

// Split groups the divider-delimited sections of report into chunks of at
// most ceiling bytes, including Overhead. Sections are appended to the
// current chunk while they fit; a section that does not fit starts a new
// chunk. A single section larger than the ceiling is returned on its own,
// unsplit. A report no longer than ceiling is returned as one chunk.
//
// strings.Join(Split(r, c), Divider) == r for every r and c.
func Split(report string, ceiling int) []string {
	if len(report) <= ceiling {
		return []string{report}
	}

	sections := strings.Split(report, Divider)
	chunks := make([]string, 0, 2)

	var (
		cur     strings.Builder
		started bool
	)

	for _, section := range sections {
		if !started {
			cur.WriteString(section)
			started = true

			continue
		}

		if cur.Len()+len(Divider)+len(section)+Overhead <= ceiling {
			cur.WriteString(Divider)
			cur.WriteString(section)

			continue
		}

		chunks = append(chunks, cur.String())
		cur.Reset()
		cur.WriteString(section)
	}

	return append(chunks, cur.String())
}

// Format wraps chunks for delivery. A single chunk gets only the code
// fence; multiple chunks also get a "Report Part i/N" header.
func Format(chunks []string) []string {
	out := make([]string, len(chunks))

	if len(chunks) == 1 {
		out[0] = fenced(chunks[0])
		return out
	}

	for i, c := range chunks {
		out[i] = fmt.Sprintf("**Report Part %d/%d**\n%s", i+1, len(chunks), fenced(c))
	}

	return out
}

// Chunks splits and formats report in one step.
func Chunks(report string, ceiling int) []string {
	return Format(Split(report, ceiling))
}

// Unformat strips what Format added, returning the raw chunk text.
func Unformat(part string) string {
	if strings.HasPrefix(part, "**Report Part ") {
		if i := strings.IndexByte(part, '\n'); i >= 0 {
			part = part[i+1:]
		}
	}

	part = strings.TrimPrefix(part, fence+"\n")

	return strings.TrimSuffix(part, "\n"+fence)
}

func fenced(s string) string {
	return fence + "\n" + s + "\n" + fence
}
