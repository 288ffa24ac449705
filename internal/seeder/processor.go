package seeder

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

const wikipediaBase = "https://en.wikipedia.org/wiki/"

// ContentProcessor turns Wikipedia markup into plain intro text.
type ContentProcessor struct {
	multiWhitespace *regexp.Regexp
	htmlTags        *regexp.Regexp
	wikiLinks       *regexp.Regexp
	citations       *regexp.Regexp
	emptyParens     *regexp.Regexp
	maxLength       int
}

// NewContentProcessor returns a processor that cuts intros at maxLength
// characters. Zero means no limit.
func NewContentProcessor(maxLength int) *ContentProcessor {
	return &ContentProcessor{
		multiWhitespace: regexp.MustCompile(`\s+`),
		htmlTags:        regexp.MustCompile(`<[^>]*>`),
		wikiLinks:       regexp.MustCompile(`\[\[[^\]]*\]\]`),
		citations:       regexp.MustCompile(`\[(?:\d+|[a-z]|note \d+|citation needed|nb \d+)\]`),
		emptyParens:     regexp.MustCompile(`\(\s*[;,]?\s*\)`),
		maxLength:       maxLength,
	}
}

// CleanContent strips markup, citation markers and extra whitespace.
func (cp *ContentProcessor) CleanContent(content string) string {
	content = cp.htmlTags.ReplaceAllString(content, "")

	// [[Page|Display Text]] keeps the display text, [[Page]] the page name
	content = cp.wikiLinks.ReplaceAllStringFunc(content, func(link string) string {
		link = strings.Trim(link, "[]")
		parts := strings.Split(link, "|")
		if len(parts) > 1 {
			return parts[1]
		}
		return parts[0]
	})

	content = cp.citations.ReplaceAllString(content, "")
	content = cp.emptyParens.ReplaceAllString(content, "")
	content = cp.multiWhitespace.ReplaceAllString(content, " ")
	content = strings.ReplaceAll(content, " ,", ",")
	content = strings.ReplaceAll(content, " .", ".")

	return cp.Truncate(strings.TrimSpace(content))
}

// Truncate shortens text to the processor's limit, preferring the last full
// sentence and otherwise the last word boundary.
func (cp *ContentProcessor) Truncate(text string) string {
	runes := []rune(text)
	if cp.maxLength <= 0 || len(runes) <= cp.maxLength {
		return text
	}
	cut := string(runes[:cp.maxLength])

	if i := strings.LastIndexAny(cut, ".!?"); i > len(cut)/2 {
		return cut[:i+1]
	}
	if i := strings.LastIndexFunc(cut, unicode.IsSpace); i > 0 {
		return strings.TrimRightFunc(cut[:i], unicode.IsPunct) + "..."
	}
	return cut
}

// Intro returns the cleaned first non-empty paragraph of an article body.
func (cp *ContentProcessor) Intro(body *goquery.Selection) string {
	body.Find(".mw-empty-elt, .reference, .noprint, style, sup").Remove()

	var intro string
	body.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text := cp.CleanContent(p.Text())
		if CountWords(text) < 5 {
			return true
		}
		intro = text
		return false
	})
	return intro
}

// CountWords counts words longer than one character.
func CountWords(text string) int {
	words := strings.FieldsFunc(text, func(c rune) bool {
		return unicode.IsSpace(c) || unicode.IsPunct(c)
	})

	count := 0
	for _, word := range words {
		if len(word) > 1 {
			count++
		}
	}
	return count
}

// ArticleTitle turns a dataset title like "Matrix, The (1999)" into the
// display form "The Matrix".
func ArticleTitle(title string) string {
	title = strings.TrimSpace(title)
	if i := strings.LastIndex(title, " ("); i > 0 && strings.HasSuffix(title, ")") {
		title = strings.TrimSpace(title[:i])
	}
	for _, article := range []string{"The", "A", "An", "Les", "La", "Le", "Il", "Das", "Die", "El"} {
		suffix := ", " + article
		if strings.HasSuffix(title, suffix) {
			return article + " " + strings.TrimSuffix(title, suffix)
		}
	}
	return title
}

// CandidateURLs lists the article URLs to try for a movie, most specific
// first.
func CandidateURLs(title string, year int) []string {
	name := ArticleTitle(title)
	if name == "" {
		return nil
	}

	var pages []string
	if year > 0 {
		pages = append(pages, fmt.Sprintf("%s (%d film)", name, year))
	}
	pages = append(pages, name+" (film)", name)

	urls := make([]string, 0, len(pages))
	for _, p := range pages {
		urls = append(urls, wikipediaBase+url.PathEscape(strings.ReplaceAll(p, " ", "_")))
	}
	return urls
}
