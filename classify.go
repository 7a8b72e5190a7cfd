package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/planset-go/internal/acquire"
	"github.com/tonimelisma/planset-go/internal/graph"
	"github.com/tonimelisma/planset-go/internal/sharelink"
)

var errNoShareLink = errors.New("no OneDrive or SharePoint sharing link found")

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>...",
		Short: "Find a sharing link in text and show how it would be fetched",
		Long: `Find the first OneDrive/SharePoint sharing link in the given text and print
it with its sharing-API token and the direct-download form the rewrite
strategy would try. Nothing is fetched.`,
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(mustCLIContext(cmd.Context()), strings.Join(args, " "))
		},
	}
}

type classifyOutput struct {
	URL            string   `json:"url"`
	ShareToken     string   `json:"share_token"`
	ShortLink      bool     `json:"short_link"`
	StorageHost    bool     `json:"storage_host"`
	DirectDownload string   `json:"direct_download,omitempty"`
	OtherURLs      []string `json:"other_urls,omitempty"`
}

func classifyText(text string) (*classifyOutput, error) {
	shareURL, ok := sharelink.FindShareURL(text)
	if !ok {
		return nil, errNoShareLink
	}

	out := &classifyOutput{
		URL:         shareURL,
		ShareToken:  graph.EncodeShareToken(shareURL),
		ShortLink:   sharelink.IsShortLink(shareURL),
		StorageHost: sharelink.IsStorageHost(shareURL),
	}

	// Short links are expanded by a redirect before rewriting.
	if out.StorageHost {
		out.DirectDownload = acquire.DirectDownloadURL(shareURL)
	}

	for _, u := range sharelink.ExtractURLs(text) {
		if u != shareURL {
			out.OtherURLs = append(out.OtherURLs, u)
		}
	}

	return out, nil
}

func runClassify(cc *CLIContext, text string) error {
	out, err := classifyText(text)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		enc := json.NewEncoder(cc.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(out)
	}

	fmt.Fprintf(cc.Stdout, "url:          %s\n", out.URL)
	fmt.Fprintf(cc.Stdout, "share token:  %s\n", out.ShareToken)

	switch {
	case out.ShortLink:
		fmt.Fprintln(cc.Stdout, "kind:         short link (expanded by redirect)")
	case out.StorageHost:
		fmt.Fprintln(cc.Stdout, "kind:         storage host")
		fmt.Fprintf(cc.Stdout, "direct:       %s\n", out.DirectDownload)
	}

	for _, u := range out.OtherURLs {
		fmt.Fprintf(cc.Stdout, "ignored:      %s\n", u)
	}

	return nil
}
