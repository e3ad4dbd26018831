package htmlutil

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

type Anchor struct {
	Name string
	Href string
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// GetAnchors collects the (text, href) pairs of all anchor nodes in the
// selection, with the anchor text whitespace-normalized.
func GetAnchors(sel *goquery.Selection) []Anchor {
	anchors := []Anchor{}
	for _, n := range sel.Nodes {
		href := ""
		for _, a := range n.Attr {
			if a.Key == "href" {
				href = a.Val
				break
			}
		}
		link, err := url.Parse(href)
		if err != nil {
			continue
		}

		name := GetText(n)
		name = removeNonPrintable(name)
		name = strings.Trim(name, " \t\n")
		name = innerWhitespace.ReplaceAllString(name, " ")

		anchors = append(anchors, Anchor{
			Name: name,
			Href: link.String(),
		})
	}
	return anchors
}

// SecureUrl rewrites protocol-relative and http urls to explicit https.
// anything else passes through untouched.
func SecureUrl(raw string) string {
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	if strings.HasPrefix(raw, "http://") {
		return "https://" + strings.TrimPrefix(raw, "http://")
	}
	return raw
}

// ResolveHref resolves a possibly-relative href against a base url.
// returns the href as-is when either side fails to parse.
func ResolveHref(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// SecureFragment rewrites protocol-relative embedded link/image sources
// inside an html fragment to explicit https.
func SecureFragment(fragment string) string {
	fragment = strings.ReplaceAll(fragment, `<img src="//`, `<img src="https://`)
	fragment = strings.ReplaceAll(fragment, `<a href="//`, `<a href="https://`)
	return fragment
}

var imageLinkRegex = regexp.MustCompile(`(https?://[a-zA-Z0-9\.\?/%-_]*)\.(jpg|jpeg|png)`)

// ImageLinks returns all absolute image urls embedded in an html fragment.
func ImageLinks(fragment string) []string {
	var links []string
	for _, m := range imageLinkRegex.FindAllString(fragment, -1) {
		links = append(links, m)
	}
	return links
}
