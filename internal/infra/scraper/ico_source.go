package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"enforcement_watch_bot/internal/domain/record"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

const listPath = "/action-weve-taken/enforcement/"

// Selectors mirror the structure of the ICO's published pages.
const (
	selActionPageLinks = `a[href*="/action-weve-taken/enforcement/"]`
	selPDFLink         = `div[class*="resultlist"] a[href*="/media/action-weve-taken"][href$=".pdf"]`
	selDescription     = `div[class*="article-content"] p`
)

// ICOSource scrapes the ICO enforcement list page and each linked action
// page, producing one raw candidate per action page in list order.
type ICOSource struct {
	baseURL string
	client  *http.Client
	logger  *logrus.Entry
}

func NewICOSource(baseURL string, timeout time.Duration, logger *logrus.Entry) *ICOSource {
	return &ICOSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Fetch returns the full current candidate set. Any transport or
// page-contract failure aborts the whole fetch: a partial listing must not
// be mistaken for the source's complete state.
func (s *ICOSource) Fetch(ctx context.Context) ([]record.Raw, error) {
	pages, err := s.listActionPages(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.WithField("pages", len(pages)).Debug("Collected action page links")

	raws := make([]record.Raw, 0, len(pages))
	for _, pageURL := range pages {
		raw, err := s.fetchActionPage(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		raws = append(raws, raw)
	}
	return raws, nil
}

func (s *ICOSource) listActionPages(ctx context.Context) ([]string, error) {
	listURL := s.baseURL + listPath
	doc, err := s.getDocument(ctx, listURL)
	if err != nil {
		return nil, err
	}

	var pages []string
	seen := make(map[string]struct{})
	doc.Find(selActionPageLinks).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		pageURL := s.expandHref(href)
		if pageURL == listURL || strings.TrimRight(pageURL, "/") == strings.TrimRight(listURL, "/") {
			return
		}
		if _, dup := seen[pageURL]; dup {
			return
		}
		seen[pageURL] = struct{}{}
		pages = append(pages, pageURL)
	})
	return pages, nil
}

func (s *ICOSource) fetchActionPage(ctx context.Context, pageURL string) (record.Raw, error) {
	doc, err := s.getDocument(ctx, pageURL)
	if err != nil {
		return record.Raw{}, err
	}

	pdfURL, err := s.parsePDFURL(doc, pageURL)
	if err != nil {
		return record.Raw{}, err
	}

	return record.Raw{
		Title:       strings.TrimSpace(doc.Find("h1").First().Text()),
		Date:        parseDateText(doc),
		Description: strings.TrimSpace(doc.Find(selDescription).First().Text()),
		PageURL:     pageURL,
		PDFURL:      pdfURL,
	}, nil
}

// parsePDFURL finds the single PDF linked from the action page. Pages
// without a PDF are tolerated; more than one breaks the page contract.
func (s *ICOSource) parsePDFURL(doc *goquery.Document, pageURL string) (string, error) {
	links := doc.Find(selPDFLink)
	switch links.Length() {
	case 0:
		s.logger.WithField("page_url", pageURL).Info("No PDF link found on action page")
		return "", nil
	case 1:
		href, _ := links.First().Attr("href")
		return s.expandHref(href), nil
	default:
		return "", fmt.Errorf("multiple PDF links on page %s", pageURL)
	}
}

// parseDateText reads the dd following the "Date" dt in the page's
// definition list.
func parseDateText(doc *goquery.Document) string {
	var dateText string
	doc.Find("dt").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if !strings.Contains(sel.Text(), "Date") {
			return true
		}
		dateText = strings.TrimSpace(sel.NextFiltered("dd").First().Text())
		return false
	})
	return dateText
}

func (s *ICOSource) getDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	s.logger.WithField("url", pageURL).Debug("Fetching page")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error building request for %s: %w", pageURL, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", pageURL, err)
	}
	return doc, nil
}

func (s *ICOSource) expandHref(href string) string {
	if strings.HasPrefix(href, "/") {
		return s.baseURL + href
	}
	return href
}
