// Package analyze is the document analysis engine behind a review: given a
// local PDF path it produces a plain-text report and a structured summary.
// It reads the page tree and the first line of text on each page, which is
// enough to build a sheet index for a planset.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/tonimelisma/planset-go/internal/report"
)

// ErrUnreadable is returned when the file cannot be parsed as a PDF.
var ErrUnreadable = errors.New("analyze: unreadable PDF")

// maxTitleLen caps sheet titles taken from page text.
const maxTitleLen = 72

// Sheet is one page of the document.
type Sheet struct {
	Page  int    `json:"page"`
	Title string `json:"title"`
	Chars int    `json:"chars"`
}

// Summary is the structured result of an analysis.
type Summary struct {
	FileName   string  `json:"file_name"`
	SizeBytes  int64   `json:"size_bytes"`
	PageCount  int     `json:"page_count"`
	Sheets     []Sheet `json:"sheets"`
	BlankPages []int   `json:"blank_pages"`
}

// Analysis is what a review hands back to the user.
type Analysis struct {
	PageCount int
	Report    string
	Summary   Summary
}

// PageReport analyzes PDFs page by page.
type PageReport struct {
	logger *slog.Logger
}

// NewPageReport creates a PageReport.
func NewPageReport(logger *slog.Logger) *PageReport {
	if logger == nil {
		logger = slog.Default()
	}

	return &PageReport{logger: logger}
}

// Analyze reads the PDF at path. ctx is checked between pages.
func (a *PageReport) Analyze(ctx context.Context, path string) (*Analysis, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("analyze: opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("analyze: stat %s: %w", path, err)
	}

	summary := Summary{
		FileName:   filepath.Base(path),
		SizeBytes:  info.Size(),
		Sheets:     []Sheet{},
		BlankPages: []int{},
	}

	if err := a.readPages(ctx, f, info.Size(), &summary); err != nil {
		return nil, err
	}

	a.logger.Info("analyzed document",
		slog.String("file", summary.FileName),
		slog.Int("pages", summary.PageCount),
		slog.Int("blank_pages", len(summary.BlankPages)),
	)

	return &Analysis{
		PageCount: summary.PageCount,
		Report:    render(&summary),
		Summary:   summary,
	}, nil
}

// readPages fills summary from the page tree. The pdf package panics on
// some malformed inputs; that is reported as ErrUnreadable.
func (a *PageReport) readPages(ctx context.Context, f *os.File, size int64, summary *Summary) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()

	r, err := pdf.NewReader(f, size)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	summary.PageCount = r.NumPage()

	for i := 1; i <= summary.PageCount; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("analyze: %w", ctxErr)
		}

		page := r.Page(i)
		if page.V.IsNull() {
			summary.BlankPages = append(summary.BlankPages, i)
			continue
		}

		text, textErr := page.GetPlainText(nil)
		if textErr != nil {
			a.logger.Warn("failed to extract page text",
				slog.Int("page", i),
				slog.String("error", textErr.Error()),
			)
		}

		text = strings.TrimSpace(text)
		if text == "" {
			summary.BlankPages = append(summary.BlankPages, i)
		}

		summary.Sheets = append(summary.Sheets, Sheet{
			Page:  i,
			Title: sheetTitle(text),
			Chars: len(text),
		})
	}

	return nil
}

// sheetTitle returns the first non-empty line of text, shortened.
func sheetTitle(text string) string {
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}

		if len(line) > maxTitleLen {
			line = strings.TrimSpace(line[:maxTitleLen]) + "..."
		}

		return line
	}

	return "(no text)"
}

// render builds the plain-text report. Sections are separated by
// report.Divider so long reports can be split for chat delivery.
func render(s *Summary) string {
	sections := make([]string, 0, 3)

	var b strings.Builder

	b.WriteString("\nPLANSET REVIEW REPORT\n\n")
	fmt.Fprintf(&b, "File:  %s\n", s.FileName)
	fmt.Fprintf(&b, "Size:  %.1f MB\n", float64(s.SizeBytes)/(1024*1024))
	fmt.Fprintf(&b, "Pages: %d\n", s.PageCount)
	sections = append(sections, b.String())

	b.Reset()
	b.WriteString("\nSHEET INDEX\n\n")

	for _, sh := range s.Sheets {
		fmt.Fprintf(&b, "%4d  %s\n", sh.Page, sh.Title)
	}

	sections = append(sections, b.String())

	b.Reset()
	b.WriteString("\nREVIEW FLAGS\n\n")

	switch {
	case s.PageCount == 0:
		b.WriteString("- Document has no pages.\n")
	case len(s.BlankPages) == 0:
		b.WriteString("- No flags. Every page carries extractable text.\n")
	default:
		fmt.Fprintf(&b, "- %d page(s) have no extractable text and may be scanned images: %s\n",
			len(s.BlankPages), joinInts(s.BlankPages))
	}

	sections = append(sections, b.String())

	return strings.Join(sections, report.Divider)
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}

	return strings.Join(parts, ", ")
}
