package format

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/docs-crawler/internal/assets"
	"github.com/rohmanhakim/docs-crawler/internal/extractor"
	"github.com/rohmanhakim/docs-crawler/internal/mdconvert"
	"github.com/rohmanhakim/docs-crawler/internal/sanitizer"
	"github.com/rohmanhakim/docs-crawler/pkg/hashutil"
	"github.com/rohmanhakim/docs-crawler/pkg/retry"
	"github.com/rohmanhakim/docs-crawler/pkg/timeutil"
	"github.com/rohmanhakim/docs-crawler/pkg/urlutil"
	"golang.org/x/net/html"
)

/*
Responsibilities
- Gate on content length
- Delegate DOM isolation, sanitization, and markdown conversion to the
  existing extractor/sanitizer/mdconvert/assets chain
- Assemble a ProcessedContent: title, headings, structured outline, asset
  inventory, metadata bag

Every sub-step is best-effort: a failure is appended to ProcessedContent's
error list rather than aborting the whole pipeline, matching the fallback
rule every other Handler in this package follows too.
*/

// HTMLHandlerParam tunes the HTML handler's length gate and the depth of
// headings it records.
type HTMLHandlerParam struct {
	MinContentLength int
	MaxContentLength int
	MaxHeadingLevel  int
	OutputDir        string
	MaxAssetSize     int64
	HashAlgo         hashutil.HashAlgo
}

func DefaultHTMLHandlerParam() HTMLHandlerParam {
	return HTMLHandlerParam{
		MinContentLength: 0,
		MaxContentLength: 5_000_000,
		MaxHeadingLevel:  6,
		OutputDir:        "assets",
		MaxAssetSize:     10 << 20,
		HashAlgo:         hashutil.HashAlgoSHA256,
	}
}

// HTMLHandler is the canonical Handler every non-HTML handler eventually
// delegates to. Markdown produced here is format-agnostic; RAG shaping
// (frontmatter injection) is applied later, at storage-write time, by
// normalize.Constraint.
type HTMLHandler struct {
	extractor extractor.Extractor
	sanitizer sanitizer.Sanitizer
	converter mdconvert.ConvertRule
	resolver  assets.Resolver
	param     HTMLHandlerParam
}

func NewHTMLHandler(
	ext extractor.Extractor,
	san sanitizer.Sanitizer,
	conv mdconvert.ConvertRule,
	resolver assets.Resolver,
	param HTMLHandlerParam,
) *HTMLHandler {
	return &HTMLHandler{
		extractor: ext,
		sanitizer: san,
		converter: conv,
		resolver:  resolver,
		param:     param,
	}
}

// SetParam replaces the length gate, heading depth, and asset-resolution
// tuning used by subsequent calls to Process. Callers typically derive it
// from config.Config once, before the crawl starts.
func (h *HTMLHandler) SetParam(param HTMLHandlerParam) {
	h.param = param
}

func (h *HTMLHandler) Name() string { return "html" }

func (h *HTMLHandler) CanHandle(content []byte, contentType string) bool {
	return contentType == "text/html" || contentType == "application/xhtml+xml"
}

func (h *HTMLHandler) Process(ctx context.Context, content []byte, baseURL url.URL) (ProcessedContent, error) {
	var errs []string

	// Step 1: length gate
	textLen := len(bytes.TrimSpace(content))
	if h.param.MaxContentLength > 0 && textLen > h.param.MaxContentLength {
		return NewProcessedContent(baseURL, "", "", nil, nil, nil, AssetInventory{}, map[string]string{}, []string{"content exceeds max_content_length"}, h.Name(), time.Now()), nil
	}
	if textLen < h.param.MinContentLength {
		return NewProcessedContent(baseURL, "", "", nil, nil, nil, AssetInventory{}, map[string]string{}, []string{"content below min_content_length"}, h.Name(), time.Now()), nil
	}

	// Steps 2-3: parse + isolate main content (extractor strips script/style/nav/etc)
	extraction, classifiedErr := h.extractor.Extract(baseURL, content)
	if classifiedErr != nil {
		errs = append(errs, classifiedErr.Error())
		return NewProcessedContent(baseURL, "", "", nil, nil, nil, AssetInventory{}, map[string]string{}, errs, h.Name(), time.Now()), nil
	}

	// Step 4: effective base URL from <base href>, falling back to the caller base
	effectiveBase := resolveEffectiveBase(extraction.DocumentRoot, baseURL)

	// Step 5: metadata
	title := extractTitle(extraction.DocumentRoot)
	metadataBag := extractMetadata(extraction.DocumentRoot)

	// Step 6: asset inventory over the full document
	assetInventory := extractAssets(extraction.DocumentRoot, effectiveBase)

	// Step 8-9: structured outline + headings over the isolated content node
	outline, headings, links := buildOutline(extraction.ContentNode, effectiveBase, h.param.MaxHeadingLevel)

	if title == "" {
		if len(headings) > 0 {
			title = headings[0].Text
		} else {
			title = "Untitled Document"
		}
	}

	// Steps 3 (sanitize), 11 (markdown): hand off to the existing chain
	sanitized, sanErr := h.sanitizer.Sanitize(extraction.ContentNode)
	if sanErr != nil {
		errs = append(errs, sanErr.Error())
		return NewProcessedContent(effectiveBase, title, "", headings, outline, links, assetInventory, metadataBag, errs, h.Name(), time.Now()), nil
	}

	conversion, convErr := h.converter.Convert(sanitized)
	if convErr != nil {
		errs = append(errs, convErr.Error())
		return NewProcessedContent(effectiveBase, title, "", headings, outline, links, assetInventory, metadataBag, errs, h.Name(), time.Now()), nil
	}

	markdownContent := conversion.GetMarkdownContent()

	if h.resolver != nil {
		resolveParam := assets.NewResolveParamWithHashAlgo(h.param.OutputDir, h.param.MaxAssetSize, h.param.HashAlgo)
		backoff := timeutil.NewBackoffParam(time.Second, 2.0, 10*time.Second)
		retryParam := retry.NewRetryParam(time.Second, 0, 1, 1, backoff)
		assetful, assetErr := h.resolver.Resolve(ctx, effectiveBase, conversion, resolveParam, retryParam)
		if assetErr != nil {
			errs = append(errs, assetErr.Error())
		} else {
			markdownContent = assetful.Content()
		}
	}

	return NewProcessedContent(effectiveBase, title, string(markdownContent), headings, outline, links, assetInventory, metadataBag, errs, h.Name(), time.Now()), nil
}

func resolveEffectiveBase(doc *html.Node, fallback url.URL) url.URL {
	if doc == nil {
		return fallback
	}
	gq := goquery.NewDocumentFromNode(doc)
	href, ok := gq.Find("base[href]").First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return fallback
	}
	baseInfo := urlutil.Parse(fallback.String(), nil)
	resolved := urlutil.Parse(href, &baseInfo)
	if !resolved.IsValid() {
		return fallback
	}
	parsed, err := url.Parse(resolved.Normalized())
	if err != nil {
		return fallback
	}
	return *parsed
}

func extractTitle(doc *html.Node) string {
	if doc == nil {
		return ""
	}
	gq := goquery.NewDocumentFromNode(doc)
	if title := strings.TrimSpace(gq.Find("head title").First().Text()); title != "" {
		return title
	}
	if title := strings.TrimSpace(gq.Find("title").First().Text()); title != "" {
		return title
	}
	return ""
}

func extractMetadata(doc *html.Node) map[string]string {
	bag := make(map[string]string)
	if doc == nil {
		return bag
	}
	gq := goquery.NewDocumentFromNode(doc)
	gq.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		key, _ := sel.Attr("name")
		if key == "" {
			key, _ = sel.Attr("property")
		}
		content, hasContent := sel.Attr("content")
		if key == "" || !hasContent {
			return
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if _, exists := bag[key]; exists {
			return
		}
		bag[key] = strings.TrimSpace(content)
	})
	return bag
}

func extractAssets(doc *html.Node, base url.URL) AssetInventory {
	var inv AssetInventory
	if doc == nil {
		return inv
	}
	gq := goquery.NewDocumentFromNode(doc)
	seen := make(map[string]bool)

	addUnique := func(bucket *[]string, raw string) {
		resolved := resolveAbsolute(raw, base)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true
		*bucket = append(*bucket, resolved)
	}

	gq.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		addUnique(&inv.Images, src)
	})
	gq.Find("link[rel='stylesheet'][href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		addUnique(&inv.Stylesheets, href)
	})
	gq.Find("script[src]").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		addUnique(&inv.Scripts, src)
	})
	gq.Find("video[src], audio[src], source[src]").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		addUnique(&inv.Media, src)
	})

	return inv
}

// resolveAbsolute resolves raw against base, returning it verbatim if it is
// already a data URI, and "" if it is a dangerous scheme or unparseable.
func resolveAbsolute(raw string, base url.URL) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "data:") {
		return raw
	}
	baseInfo := urlutil.Parse(base.String(), nil)
	resolved := urlutil.Parse(raw, &baseInfo)
	if !resolved.IsValid() {
		return ""
	}
	return resolved.Normalized()
}

// buildOutline performs the depth-first walk over contentNode, producing a
// section-centric outline, the flattened heading list, and a flattened link
// list (the quality checker reads the latter directly, per the chosen
// resolution to the source's two competing link-list conventions).
func buildOutline(contentNode *html.Node, base url.URL, maxHeadingLevel int) ([]OutlineNode, []Heading, []string) {
	var outline []OutlineNode
	var headings []Heading
	var links []string

	if contentNode == nil {
		return outline, headings, links
	}

	headingLevel := map[string]int{"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n == nil {
			return
		}
		if n.Type == html.ElementNode {
			switch {
			case headingLevel[n.Data] > 0:
				level := headingLevel[n.Data]
				text := strings.TrimSpace(textContent(n))
				if level <= maxHeadingLevel {
					id, _ := attr(n, "id")
					headings = append(headings, Heading{Level: level, Text: text, ID: id})
					outline = append(outline, OutlineNode{Kind: OutlineHeading, Text: text, Level: level})
				}
				return
			case n.Data == "p":
				nodeLinks := collectLinks(n, base)
				links = appendLinkURLs(links, nodeLinks)
				outline = append(outline, OutlineNode{Kind: OutlineParagraph, Text: strings.TrimSpace(textContent(n)), Links: nodeLinks})
				return
			case n.Data == "ul" || n.Data == "ol":
				outline = append(outline, OutlineNode{Kind: OutlineList, Text: strings.TrimSpace(textContent(n))})
				return
			case n.Data == "pre":
				lang := ""
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.ElementNode && c.Data == "code" {
						lang = codeLanguage(c)
					}
				}
				outline = append(outline, OutlineNode{Kind: OutlineCode, Text: textContent(n), Language: lang})
				return
			case n.Data == "table":
				outline = append(outline, OutlineNode{Kind: OutlineTable, Text: strings.TrimSpace(textContent(n))})
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(contentNode)

	return outline, headings, links
}

func appendLinkURLs(links []string, nodeLinks []LinkNode) []string {
	for _, l := range nodeLinks {
		if l.URL != "" {
			links = append(links, l.URL)
		}
	}
	return links
}

func collectLinks(n *html.Node, base url.URL) []LinkNode {
	var out []LinkNode
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node == nil {
			return
		}
		if node.Type == html.ElementNode && (node.Data == "a" || node.Data == "img") {
			attrName := "href"
			isImage := node.Data == "img"
			if isImage {
				attrName = "src"
			}
			if raw, ok := attr(node, attrName); ok {
				resolved := resolveAbsolute(raw, base)
				if resolved == "" {
					resolved = "#"
				}
				out = append(out, LinkNode{Text: strings.TrimSpace(textContent(node)), URL: resolved, Image: isImage})
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func codeLanguage(codeNode *html.Node) string {
	class, _ := attr(codeNode, "class")
	for _, cls := range strings.Fields(class) {
		if strings.HasPrefix(cls, "language-") {
			return strings.TrimPrefix(cls, "language-")
		}
		if strings.HasPrefix(cls, "lang-") {
			return strings.TrimPrefix(cls, "lang-")
		}
	}
	return ""
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// noiseTags never contribute to extracted text even when nested inside a
// paragraph or heading, which the HTML5 content model allows.
var noiseTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && noiseTags[node.Data] {
			return
		}
		if node.Type == html.TextNode {
			buf.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}
