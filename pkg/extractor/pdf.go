package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"originality-go/pkg/log"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDir sync.Once

// PDF 使用 ledongthuc/pdf 逐页解释内容流，按页面字体的编码解码文本。
// 交叉引用表损坏等无法直接打开的文件，先用 pdfcpu 以宽松模式读取并重写一遍再解析。
type PDF struct {
	conf *model.Configuration
}

// NewPDF 创建 PDF 提取器。
func NewPDF() *PDF {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDF{conf: conf}
}

// Extract 按页序读取至多 maxPages 页，页与页之间用换行连接，结果去掉首尾空白。
func (p *PDF) Extract(_ context.Context, data []byte, maxPages int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[PDFExtractor] 解析 PDF 时发生 panic: %v", r)
			text = ""
		}
	}()

	pages, err := p.pages(data, pageLimit(maxPages))
	if err != nil {
		log.Errorf("[PDFExtractor] 提取文本失败: %v", err)
		return ""
	}
	return strings.TrimSpace(strings.Join(pages, "\n"))
}

func (p *PDF) pages(data []byte, limit int) ([]string, error) {
	r, err := p.open(data)
	if err != nil {
		return nil, err
	}

	n := r.NumPage()
	if n > limit {
		n = limit
	}
	pages := make([]string, 0, n)
	for pageNr := 1; pageNr <= n; pageNr++ {
		pages = append(pages, pageText(r.Page(pageNr), pageNr))
	}
	return pages, nil
}

func (p *PDF) open(data []byte) (*pdf.Reader, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err == nil {
		return r, nil
	}

	log.Debugf("[PDFExtractor] 无法直接读取 PDF (%v)，尝试修复", err)
	repaired, rerr := p.repair(data)
	if rerr != nil {
		return nil, fmt.Errorf("读取 PDF 失败: %v; 修复失败: %w", err, rerr)
	}
	r, err = pdf.NewReader(bytes.NewReader(repaired), int64(len(repaired)))
	if err != nil {
		return nil, fmt.Errorf("读取修复后的 PDF 失败: %w", err)
	}
	return r, nil
}

// repair 用 pdfcpu 重建交叉引用表并重新序列化文档。
func (p *PDF) repair(data []byte) ([]byte, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), p.conf)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// pageText 单页解析失败时只丢弃该页。
func pageText(page pdf.Page, pageNr int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("[PDFExtractor] 第 %d 页解析失败，已跳过: %v", pageNr, r)
			text = ""
		}
	}()

	if page.V.IsNull() {
		return ""
	}
	return newPageReader(page).text()
}
