package intake

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tonimelisma/planset-go/internal/acquire"
)

const supportLine = "Need help? Contact your planset review administrator."

// Welcome is the help copy shown for greetings and empty messages.
const Welcome = `**PlanSet Review Agent**

I can review your civil engineering planset PDFs and generate a PM review report.

**How to use:**

1. **Direct upload** (smaller files):
   - Click the attachment icon (paperclip)
   - Select your PDF planset
   - Send the message

2. **OneDrive/SharePoint link** (large files):
   - Upload your planset to OneDrive or SharePoint
   - Copy the sharing link
   - Paste the link in a message and send

**Supported formats:** PDF files only

Just send me a planset to get started!`

// Progress copy.
const (
	ProcessingStart    = "Received your planset. Processing now... This may take a minute for large files."
	ProcessingComplete = "Analysis complete! Here's your review report:"
)

// Source labels used in the download progress message.
const (
	sourceAttachment = "chat attachment"
	sourceShareLink  = "OneDrive/SharePoint"
)

// ProcessingDownload reports where the planset is being fetched from.
func ProcessingDownload(source string) string {
	return fmt.Sprintf("Downloading planset from %s...", source)
}

// ProcessingAnalysis reports the page count once the document is open.
func ProcessingAnalysis(pages int) string {
	return fmt.Sprintf("Analyzing planset (%d pages)...", pages)
}

// NoAttachment is sent when a message carries neither a PDF nor a link.
func NoAttachment(limits acquire.Limits) string {
	return fmt.Sprintf(`I didn't receive a PDF file or OneDrive/SharePoint link.

**To submit a planset:**
- Attach a PDF file directly (under %s), or
- Paste a OneDrive/SharePoint sharing link (for files up to %s)

%s`, formatMB(limits.Attachment), formatMB(limits.Link), supportLine)
}

// InvalidFileType is sent when the submitted file is not a PDF.
func InvalidFileType(name string) string {
	if name == "" {
		name = "(unnamed file)"
	}

	return fmt.Sprintf(`Sorry, I can only process PDF files.

You sent: **%s**

Please send a PDF planset file. Most CAD software can export to PDF format.

%s`, name, supportLine)
}

// FileTooLarge is sent when an upload or attachment exceeds its ceiling.
func FileTooLarge(sizeBytes, limitBytes int64) string {
	return fmt.Sprintf(`The file is too large to process directly.

**File size:** %.1f MB
**Maximum direct upload:** %s

**For large files:**
1. Upload your planset to OneDrive or SharePoint
2. Create a sharing link
3. Send me the link instead

%s`, mb(sizeBytes), formatMB(limitBytes), supportLine)
}

// LinkTooLarge is sent when a shared file exceeds the link ceiling.
func LinkTooLarge(sizeBytes, limitBytes int64) string {
	return fmt.Sprintf(`The shared file is too large to process.

**File size:** %.1f MB
**Maximum for sharing links:** %s

Please split the planset into smaller PDFs and share them separately.

%s`, mb(sizeBytes), formatMB(limitBytes), supportLine)
}

// DownloadFailed is sent when a sharing link cannot be fetched.
const DownloadFailed = `I couldn't download the file from the link you provided.

**Possible causes:**
- The link may have expired
- The file may have been moved or deleted
- I may not have permission to access it

**To fix:**
1. Make sure the file still exists
2. Create a new sharing link with "Anyone with the link can view" permission
3. Send me the new link

` + supportLine

// InvalidLink is sent when text is not a recognized sharing link.
const InvalidLink = "I couldn't recognize that as a OneDrive or SharePoint link.\n\n" +
	"**Supported link formats:**\n" +
	"- `https://[company].sharepoint.com/...`\n" +
	"- `https://[company]-my.sharepoint.com/...`\n" +
	"- `https://onedrive.live.com/...`\n" +
	"- `https://1drv.ms/...`\n\n" +
	"Please share a valid OneDrive or SharePoint link to your planset.\n\n" +
	supportLine

// LinksUnavailable is sent when sharing links are disabled.
const LinksUnavailable = `Sharing links are not available right now. Please attach the PDF directly.

` + supportLine

// ProcessingFailed is sent when the document could not be analyzed.
func ProcessingFailed(err error) string {
	return fmt.Sprintf(`Sorry, I encountered an error while analyzing your planset.

**Error:** %s

**What to try:**
- Make sure the PDF is not corrupted or password-protected
- Try re-uploading the file
- If the problem persists, the PDF may use an unsupported format

%s`, err, supportLine)
}

// Generic is the fallback for unexpected failures.
func Generic(err error) string {
	return fmt.Sprintf(`Sorry, something went wrong.

**Error:** %s

Please try again. %s`, err, supportLine)
}

// UserMessage picks the copy for a failed review. Link failures point the
// user at the link; attachment and upload failures at the file.
func UserMessage(err error, limits acquire.Limits) string {
	var analysisErr *AnalysisError
	if errors.As(err, &analysisErr) {
		return ProcessingFailed(analysisErr.Err)
	}

	var acqErr *acquire.Error
	if !errors.As(err, &acqErr) {
		return Generic(err)
	}

	switch acqErr.Kind {
	case acquire.ErrTooLarge:
		limit := acqErr.Limit
		if limit == 0 {
			limit = limits.Ceiling(acqErr.Provenance)
		}

		if acqErr.Provenance.IsLink() {
			return LinkTooLarge(acqErr.Size, limit)
		}

		return FileTooLarge(acqErr.Size, limit)
	case acquire.ErrNotAPDF:
		return InvalidFileType(acqErr.Name)
	case acquire.ErrInvalidLink:
		return InvalidLink
	case acquire.ErrNotConfigured:
		return LinksUnavailable
	case acquire.ErrNotAuthorized, acquire.ErrNotFound, acquire.ErrResolutionFailed,
		acquire.ErrDownloadURLUnavailable:
		return DownloadFailed
	case acquire.ErrDownloadFailed:
		if acqErr.Provenance.IsLink() {
			return DownloadFailed
		}

		return ProcessingFailed(err)
	default:
		return Generic(err)
	}
}

func mb(n int64) float64 {
	return float64(n) / (1024 * 1024)
}

// formatMB renders a ceiling as "25 MB", dropping a zero fraction.
func formatMB(n int64) string {
	s := strings.TrimSuffix(fmt.Sprintf("%.1f", mb(n)), ".0")
	return s + " MB"
}
