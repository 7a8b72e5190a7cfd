package acquire

import (
	"mime"
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// DefaultName is used when the source reports no usable file name.
const DefaultName = "planset.pdf"

// maxNameBytes caps sanitized names, leaving room under the usual
// 255-byte filesystem limit.
const maxNameBytes = 200

// dispositionFallback extracts a filename from Content-Disposition values
// that mime.ParseMediaType rejects (unquoted spaces, stray separators).
var dispositionFallback = regexp.MustCompile(`(?i)filename\*?=["']?([^"';\n]+)`)

// FilenameFromDisposition returns the file name carried by a
// Content-Disposition header, preferring the RFC 6266 filename* form.
// Returns "" when the header carries none.
func FilenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}

	// ParseMediaType decodes filename* (RFC 2231) into "filename".
	if _, params, err := mime.ParseMediaType(header); err == nil {
		if name := strings.TrimSpace(params["filename"]); name != "" {
			return name
		}
	}

	m := dispositionFallback.FindStringSubmatch(header)
	if m == nil {
		return ""
	}

	name := strings.TrimSpace(m[1])

	// Undecoded extended value: charset'lang'percent-encoded.
	if parts := strings.SplitN(name, "'", 3); len(parts) == 3 {
		if decoded, err := url.PathUnescape(parts[2]); err == nil {
			name = decoded
		}
	}

	return name
}

// SanitizeName makes an untrusted file name safe to use as a single path
// element: path components are stripped, characters other than letters,
// digits, '-', '_' and '.' become '_', and the result is capped at 200
// bytes with the extension preserved. Returns "" when nothing usable remains.
func SanitizeName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))

	if name == "." || name == ".." || name == "/" {
		return ""
	}

	name = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.' {
			return r
		}

		return '_'
	}, name)

	// No hidden files and no names made only of dots.
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return ""
	}

	if len(name) <= maxNameBytes {
		return name
	}

	ext := path.Ext(name)
	if len(ext) >= maxNameBytes {
		return truncateUTF8(name, maxNameBytes)
	}

	return truncateUTF8(strings.TrimSuffix(name, ext), maxNameBytes-len(ext)) + ext
}

// localName sanitizes a declared name and guarantees a .pdf suffix.
func localName(declared string) string {
	name := SanitizeName(declared)
	if name == "" {
		return DefaultName
	}

	if !IsPDFName(name) {
		if len(name)+len(pdfExt) > maxNameBytes {
			name = truncateUTF8(name, maxNameBytes-len(pdfExt))
		}

		name += pdfExt
	}

	return name
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}

	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}

	return s[:n]
}
