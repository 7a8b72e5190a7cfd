package sharelink

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var recognized = []string{
	"https://contoso.sharepoint.com/:b:/s/Projects/EaBcD?e=xyz",
	"https://contoso-my.sharepoint.com/personal/alice_contoso_com/Documents/plan.pdf",
	"https://onedrive.live.com/view.aspx?resid=ABC!123&authkey=!xyz",
	"https://1drv.ms/b/s!AbCdEf",
	"http://1drv.ms/u/s!xyz",
}

func TestIsShareURL_Recognized(t *testing.T) {
	for _, u := range recognized {
		variants := []string{u, strings.ToUpper(u), "  " + u + "\n", mixedCase(u)}
		for _, v := range variants {
			assert.True(t, IsShareURL(v), "expected match for %q", v)
		}
	}
}

func TestIsShareURL_Rejected(t *testing.T) {
	tests := []string{
		"",
		"not a url",
		"https://example.com/file.pdf",
		"https://1drv.ms",
		"https://1drv.ms.evil.example/b/s!x",
		"https://contoso.sharepoint.com.evil.example/x",
		"https://sharepoint.com/x",
		"ftp://1drv.ms/b/s!x",
		"see https://1drv.ms/b/s!x",
		"https://1drv.ms/b/s!x and more",
		"https://drive.google.com/file/d/abc/view",
	}

	for _, s := range tests {
		assert.False(t, IsShareURL(s), "expected no match for %q", s)
	}
}

func TestFindShareURL(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"bare", "https://1drv.ms/b/s!AbC", "https://1drv.ms/b/s!AbC", true},
		{"in sentence", "please review https://contoso.sharepoint.com/:b:/s/x/Eab?e=1 thanks",
			"https://contoso.sharepoint.com/:b:/s/x/Eab?e=1", true},
		{"angle brackets", "<https://onedrive.live.com/view.aspx?resid=1>", "https://onedrive.live.com/view.aspx?resid=1", true},
		{"upper case", "HTTPS://1DRV.MS/B/S!X", "HTTPS://1DRV.MS/B/S!X", true},
		{"first of two", "https://1drv.ms/a https://1drv.ms/b", "https://1drv.ms/a", true},
		{"unrecognized host", "look at https://example.com/plan.pdf", "", false},
		{"glued prefix", "xhttps://1drv.ms/b/s!x", "", false},
		{"trailing period", "Please review https://1drv.ms/b/s!AbC123.", "https://1drv.ms/b/s!AbC123", true},
		{"trailing punctuation run", "done: https://1drv.ms/b/s!AbC?!", "https://1drv.ms/b/s!AbC", true},
		{"trailing comma", "https://1drv.ms/b/s!AbC, and the rest", "https://1drv.ms/b/s!AbC", true},
		{"in parentheses", "(see https://contoso.sharepoint.com/:b:/s/eng/EAbc)",
			"https://contoso.sharepoint.com/:b:/s/eng/EAbc", true},
		{"wrapped in parentheses", "(https://1drv.ms/b/s!x).", "https://1drv.ms/b/s!x", true},
		{"quoted", `"https://1drv.ms/b/s!x"`, "https://1drv.ms/b/s!x", true},
		{"balanced parentheses kept", "https://contoso.sharepoint.com/sites/eng/Plans(1).pdf",
			"https://contoso.sharepoint.com/sites/eng/Plans(1).pdf", true},
		{"nested in query string", "https://evil.example/go?u=https://1drv.ms/b/s!x", "", false},
		{"after slash", "https://evil.example/https://1drv.ms/b/s!x", "", false},
		{"nested then standalone", "https://evil.example/go?u=https://1drv.ms/b/s!x or https://1drv.ms/b/s!y",
			"https://1drv.ms/b/s!y", true},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindShareURL(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindShareURL_AllRecognizedInText(t *testing.T) {
	for _, u := range recognized {
		got, ok := FindShareURL("link: " + mixedCase(u) + " ok")
		assert.True(t, ok, u)
		assert.True(t, strings.EqualFold(u, got), "got %q for %q", got, u)
	}
}

func TestExtractURLs(t *testing.T) {
	got := ExtractURLs("a https://example.com/x b http://1drv.ms/y c")
	assert.Equal(t, []string{"https://example.com/x", "http://1drv.ms/y"}, got)
	assert.Empty(t, ExtractURLs("no links here"))
}

func TestHostHelpers(t *testing.T) {
	assert.True(t, IsShortLink("https://1DRV.ms/b/s!x"))
	assert.False(t, IsShortLink("https://onedrive.live.com/x"))
	assert.True(t, IsStorageHost("https://contoso-my.sharepoint.com/x"))
	assert.True(t, IsStorageHost("https://onedrive.live.com/x"))
	assert.False(t, IsStorageHost("https://1drv.ms/x"))
	assert.False(t, IsStorageHost("::not a url"))
}

// mixedCase alternates letter case so matching is exercised beyond the
// all-lower and all-upper forms.
func mixedCase(s string) string {
	var b strings.Builder

	for i, r := range s {
		if i%2 == 0 {
			b.WriteString(strings.ToUpper(string(r)))
		} else {
			b.WriteString(strings.ToLower(string(r)))
		}
	}

	return b.String()
}

func TestRedact(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"consumer authkey", "https://onedrive.live.com/redir?resid=ABC&authkey=!SECRETKEY",
			"https://onedrive.live.com/redir"},
		{"consumer download rewrite", "https://onedrive.live.com/download?resid=ABC&authkey=!SECRETKEY&download=1",
			"https://onedrive.live.com/download"},
		{"short link", "https://1drv.ms/b/s!AbCdEf", "https://1drv.ms/b/[REDACTED]"},
		{"collab suite", "https://contoso.sharepoint.com/:b:/s/eng/EAbc?e=xyz",
			"https://contoso.sharepoint.com/:b:/s/eng/[REDACTED]"},
		{"trailing slash", "https://contoso.sharepoint.com/", "https://contoso.sharepoint.com/"},
		{"fragment", "https://example.com/a#secret", "https://example.com/a"},
		{"no host", "not a url", "[REDACTED]"},
		{"unparseable", "https://bad host/%zz", "[REDACTED]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Redact(tt.in))
		})
	}
}
