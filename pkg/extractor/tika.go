package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"originality-go/pkg/log"

	"golang.org/x/net/html"
)

// Tika 调用 Apache Tika 服务器提取文本。
// 请求 XHTML 输出，PDF 的每一页在其中对应一个 <div class="page">。
type Tika struct {
	serverURL string
	client    *http.Client
}

// NewTika 创建一个 Tika 提取器实例。
func NewTika(serverURL string) *Tika {
	return &Tika{
		serverURL: strings.TrimRight(serverURL, "/"),
		client:    &http.Client{Timeout: 2 * time.Minute},
	}
}

func (t *Tika) Extract(ctx context.Context, data []byte, maxPages int) string {
	doc, err := t.fetchXHTML(ctx, data)
	if err != nil {
		log.Errorf("[TikaExtractor] 调用 Tika 失败: %v", err)
		return ""
	}
	pages := pageTexts(doc, pageLimit(maxPages))
	return strings.TrimSpace(strings.Join(pages, "\n"))
}

func (t *Tika) fetchXHTML(ctx context.Context, data []byte) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, t.serverURL+"/tika", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("Content-Type", "application/pdf")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求 Tika 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("Tika 返回错误 [%d]: %s", resp.StatusCode, string(body))
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("解析 Tika 响应失败: %w", err)
	}
	return doc, nil
}

// pageTexts 按文档顺序收集前 limit 个分页 div 的文本。
// 没有分页信息的格式整体视为一页。
func pageTexts(doc *html.Node, limit int) []string {
	var pages []string
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if len(pages) >= limit {
			return false
		}
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "page") {
			pages = append(pages, nodeText(n))
			return len(pages) < limit
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(doc)

	if len(pages) == 0 {
		if body := findElement(doc, "body"); body != nil {
			if text := nodeText(body); text != "" {
				pages = append(pages, text)
			}
		}
	}
	return pages
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, f := range strings.Fields(a.Val) {
				if f == class {
					return true
				}
			}
		}
	}
	return false
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// nodeText 拼接节点下的文本，块级元素之间换行。
func nodeText(n *html.Node) string {
	var lines []string
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			lines = append(lines, s)
		}
		cur.Reset()
	}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			cur.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "head":
				return
			case "br":
				flush()
				return
			}
		}
		block := n.Type == html.ElementNode && isBlock(n.Data)
		if block {
			flush()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			flush()
		}
	}
	walk(n)
	flush()
	return strings.Join(lines, "\n")
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "h1", "h2", "h3", "h4", "h5", "h6", "li", "tr", "table", "pre", "blockquote":
		return true
	}
	return false
}
