package managecompetitors

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	httpc "marketing-workers/internal/common/http"
)

type PageMetadata struct {
	Title       string
	Description string
}

// FetchPageMetadata reads the page title and description, preferring the
// Open Graph tags over <title> and <meta name="description">. og:site_name is
// the platform on profile pages, so it only names the competitor as a last resort.
func FetchPageMetadata(ctx context.Context, client *httpc.Client, pageURL string) (*PageMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, &httpc.StatusError{StatusCode: resp.StatusCode}
	}

	return ParsePageMetadata(io.LimitReader(resp.Body, 1<<20))
}

func ParsePageMetadata(r io.Reader) (*PageMetadata, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	meta := func(selectors ...string) string {
		for _, sel := range selectors {
			if v, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}

	siteName := meta(`meta[property="og:site_name"]`)
	md := &PageMetadata{
		Title:       meta(`meta[property="og:title"]`),
		Description: meta(`meta[property="og:description"]`, `meta[name="description"]`),
	}
	if md.Title == "" {
		md.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	md.Title = stripSiteSuffix(md.Title, siteName)
	if md.Title == "" {
		md.Title = siteName
	}
	return md, nil
}

// stripSiteSuffix drops a trailing " | LinkedIn" style site name from a page title.
func stripSiteSuffix(title, siteName string) string {
	if siteName == "" {
		return title
	}
	for _, sep := range []string{" | ", " - ", " · "} {
		suffix := sep + siteName
		if len(title) > len(suffix) && strings.EqualFold(title[len(title)-len(suffix):], suffix) {
			return strings.TrimSpace(title[:len(title)-len(suffix)])
		}
	}
	return title
}

// NameFromURL derives a display name from the host, or the handle for
// profile URLs such as tiktok.com/@brand and linkedin.com/company/brand.
func NameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if strings.HasPrefix(seg, "@") && len(seg) > 1 {
			return seg[1:]
		}
		if (seg == "company" || seg == "in" || seg == "school") && i+1 < len(segments) && segments[i+1] != "" {
			return segments[i+1]
		}
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
