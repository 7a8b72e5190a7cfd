// Package sharelink recognizes cloud-storage sharing URLs in user input.
// Everything here is pure: unmatched or malformed text is simply not a link.
package sharelink

import (
	"net/url"
	"regexp"
	"strings"
)

// Recognized hosts.
const (
	shortLinkHost     = "1drv.ms"
	consumerHost      = "onedrive.live.com"
	collabSuiteSuffix = ".sharepoint.com"
)

// hostPattern matches the scheme and host of a recognized sharing URL. The
// trailing slash is mandatory so that look-alike hosts such as
// "1drv.ms.example.com" never match.
const hostPattern = `https?://(?:[a-z0-9-]+\.sharepoint\.com|onedrive\.live\.com|1drv\.ms)/`

// findRe requires the scheme to open the text or follow whitespace or an
// opening delimiter, so a sharing URL nested in another URL's query string
// does not match. The delimiter is captured in group 1 and the URL in group 2.
var (
	exactRe = regexp.MustCompile(`(?i)^` + hostPattern + `\S*$`)
	findRe  = regexp.MustCompile(`(?i)(^|[\s<("'\[{])(` + hostPattern + `[^\s<>"]*)`)
	anyURL  = regexp.MustCompile(`https?://[^\s<>"{}|\\^\x60\[\]]+`)
)

// trailingPunct is sentence punctuation that ends a URL typed in prose.
const trailingPunct = ".,;:!?'\""

// closers maps each closing bracket to its opener.
var closers = map[byte]byte{')': '(', ']': '[', '}': '{'}

// redacted replaces the parts of a sharing URL that grant access.
const redacted = "[REDACTED]"

// IsShareURL reports whether s, after trimming surrounding whitespace, is
// exactly one recognized sharing URL. Used for single-value form fields.
func IsShareURL(s string) bool {
	return exactRe.MatchString(strings.TrimSpace(s))
}

// FindShareURL returns the first recognized sharing URL inside free text,
// such as a chat message.
// Trailing sentence punctuation and unbalanced closing brackets are not
// part of the returned URL.
func FindShareURL(text string) (string, bool) {
	m := findRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}

	u := trimTrailing(m[2])
	if !exactRe.MatchString(u) {
		return "", false
	}

	return u, true
}

// trimTrailing strips punctuation and unbalanced closing brackets from the
// end of u, repeating until neither applies.
func trimTrailing(u string) string {
	for u != "" {
		last := u[len(u)-1]

		if strings.IndexByte(trailingPunct, last) >= 0 {
			u = u[:len(u)-1]
			continue
		}

		opener, ok := closers[last]
		if ok && strings.Count(u, string(opener)) < strings.Count(u, string(last)) {
			u = u[:len(u)-1]
			continue
		}

		break
	}

	return u
}

// ExtractURLs returns every http(s) URL in text, recognized or not.
func ExtractURLs(text string) []string {
	return anyURL.FindAllString(text, -1)
}

// IsShortLink reports whether rawURL is on the short-link redirector host.
func IsShortLink(rawURL string) bool {
	return hostOf(rawURL) == shortLinkHost
}

// IsStorageHost reports whether rawURL is on a collaboration-suite or
// consumer-storage host, the hosts whose links can be rewritten into a
// direct download.
func IsStorageHost(rawURL string) bool {
	host := hostOf(rawURL)

	return host == consumerHost || strings.HasSuffix(host, collabSuiteSuffix)
}

// Redact reduces rawURL to a form that is safe to log or store: scheme,
// host and path, with the query and fragment dropped. On the short-link and
// collaboration-suite hosts the last path segment identifies the share and
// is masked too. Unparseable input is masked entirely.
func Redact(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return redacted
	}

	path := u.EscapedPath()

	host := strings.ToLower(u.Hostname())
	if host == shortLinkHost || strings.HasSuffix(host, collabSuiteSuffix) {
		if i := strings.LastIndexByte(path, '/'); i >= 0 && i < len(path)-1 {
			path = path[:i+1] + redacted
		}
	}

	return u.Scheme + "://" + u.Host + path
}

func hostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}

	return strings.ToLower(u.Hostname())
}
