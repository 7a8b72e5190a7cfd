package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func section(title string, size int) string {
	return "\n" + title + "\n" + strings.Repeat("x", size) + "\n"
}

func TestSplit_ReportAtCeilingIsOneChunk(t *testing.T) {
	r := strings.Repeat("a", 1000)

	chunks := Split(r, 1000)
	require.Len(t, chunks, 1)
	assert.Equal(t, r, chunks[0])

	parts := Format(chunks)
	require.Len(t, parts, 1)
	assert.NotContains(t, parts[0], "Report Part")
	assert.Equal(t, "```\n"+r+"\n```", parts[0])
}

func TestSplit_ThreeSectionsReconstruct(t *testing.T) {
	r := section("PROJECT", 400) + Divider + section("SHEETS", 400) + Divider + section("FLAGS", 400)
	ceiling := 1000

	require.Greater(t, len(r), ceiling)

	chunks := Split(r, ceiling)
	require.GreaterOrEqual(t, len(chunks), 2)

	for _, c := range chunks {
		assert.LessOrEqual(t, len(c)+Overhead, ceiling)
	}

	assert.Equal(t, r, strings.Join(chunks, Divider))
}

func TestChunks_FormattedPartsRejoin(t *testing.T) {
	r := section("A", 300) + Divider + section("B", 300) + Divider + section("C", 300) + Divider + section("D", 300)

	parts := Chunks(r, 800)
	require.Greater(t, len(parts), 1)

	raw := make([]string, len(parts))
	for i, p := range parts {
		assert.LessOrEqual(t, len(p), 800)
		assert.True(t, strings.HasPrefix(p, "**Report Part "), p[:20])
		raw[i] = Unformat(p)
	}

	assert.Equal(t, r, strings.Join(raw, Divider))
	assert.Contains(t, parts[0], "**Report Part 1/")
	assert.Contains(t, parts[len(parts)-1], "/"+string(rune('0'+len(parts)))+"**")
}

func TestSplit_OversizedSectionEmittedWhole(t *testing.T) {
	big := section("BIG", 5000)
	r := section("small", 10) + Divider + big + Divider + section("tail", 10)

	chunks := Split(r, 1000)
	require.Len(t, chunks, 3)
	assert.Equal(t, big, chunks[1])
	assert.Equal(t, r, strings.Join(chunks, Divider))
}

func TestSplit_OrderPreserved(t *testing.T) {
	var sections []string
	for _, title := range []string{"one", "two", "three", "four", "five", "six"} {
		sections = append(sections, section(title, 200))
	}

	r := strings.Join(sections, Divider)
	chunks := Split(r, 600)

	joined := strings.Join(chunks, Divider)
	assert.Equal(t, r, joined)

	last := -1
	for _, s := range sections {
		idx := strings.Index(joined, s)
		assert.Greater(t, idx, last)
		last = idx
	}
}

func TestSplit_LeadingAndTrailingDividers(t *testing.T) {
	r := Divider + section("A", 600) + Divider + Divider + section("B", 600) + Divider

	chunks := Split(r, 1000)
	assert.Equal(t, r, strings.Join(chunks, Divider))
}

func TestSplit_NoDividers(t *testing.T) {
	r := strings.Repeat("z", 3000)

	chunks := Split(r, 1000)
	require.Len(t, chunks, 1)
	assert.Equal(t, r, chunks[0])
}

func TestUnformat_SingleChunk(t *testing.T) {
	assert.Equal(t, "body", Unformat(Format([]string{"body"})[0]))
}
