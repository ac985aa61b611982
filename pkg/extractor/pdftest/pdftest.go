// Package pdftest 生成用于测试的最小 PDF 文档。
package pdftest

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

var escaper = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)

const helvetica = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>"

// Build 生成一个 PDF，每个参数对应一页，页面内容用 Helvetica 绘制。
// 参数中的换行会变成独立的文本行。
func Build(pages ...string) []byte {
	contents := make([]string, len(pages))
	for i, text := range pages {
		contents[i] = contentStream(text, literal)
	}
	return assemble([]string{helvetica}, contents)
}

// BuildRaw 生成单页 PDF，页面内容流原样使用 content，字体资源名为 F1。
func BuildRaw(content string) []byte {
	return assemble([]string{helvetica}, []string{content})
}

// BuildWinAnsi 与 Build 相同，但字体声明 WinAnsiEncoding，
// 文本按 Windows-1252 编码写入（弯引号、破折号等落在 0x80-0x9F）。
func BuildWinAnsi(pages ...string) []byte {
	font := "<< /Type /Font /Subtype /Type1 /BaseFont /Times-Roman /Encoding /WinAnsiEncoding >>"
	enc := charmap.Windows1252.NewEncoder()
	contents := make([]string, len(pages))
	for i, text := range pages {
		contents[i] = contentStream(text, func(line string) string {
			b, err := enc.String(line)
			if err != nil {
				panic(err)
			}
			return literal(b)
		})
	}
	return assemble([]string{font}, contents)
}

// BuildType0 生成单页 PDF，文本用 Identity-H 编码的 Type0 字体绘制：
// 内容流里只有两字节的 CID，Unicode 映射只存在于 ToUnicode CMap 中。
// 文本必须位于基本多文种平面内。
func BuildType0(text string) []byte {
	cids := make(map[rune]int)
	var order []rune
	for _, r := range text {
		if r == '\n' {
			continue
		}
		if _, ok := cids[r]; !ok {
			cids[r] = len(order) + 1
			order = append(order, r)
		}
	}

	var cmap strings.Builder
	cmap.WriteString("begincmap\n1 begincodespacerange\n<0000> <FFFF>\nendcodespacerange\n")
	for start := 0; start < len(order); start += 100 {
		end := start + 100
		if end > len(order) {
			end = len(order)
		}
		fmt.Fprintf(&cmap, "%d beginbfchar\n", end-start)
		for _, r := range order[start:end] {
			fmt.Fprintf(&cmap, "<%04X> <%04X>\n", cids[r], r)
		}
		cmap.WriteString("endbfchar\n")
	}
	cmap.WriteString("endcmap")

	fonts := []string{
		"<< /Type /Font /Subtype /Type0 /BaseFont /ABCDEF+Calibri /Encoding /Identity-H /DescendantFonts [4 0 R] /ToUnicode 5 0 R >>",
		"<< /Type /Font /Subtype /CIDFontType2 /BaseFont /ABCDEF+Calibri /CIDSystemInfo << /Registry (Adobe) /Ordering (Identity) /Supplement 0 >> >>",
		stream(cmap.String()),
	}
	content := contentStream(text, func(line string) string {
		var sb strings.Builder
		sb.WriteByte('<')
		for _, r := range line {
			fmt.Fprintf(&sb, "%04X", cids[r])
		}
		sb.WriteByte('>')
		return sb.String()
	})
	return assemble(fonts, []string{content})
}

func literal(s string) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, b := range []byte(escaper.Replace(s)) {
		if b >= 0x80 {
			fmt.Fprintf(&sb, `\%03o`, b)
			continue
		}
		sb.WriteByte(b)
	}
	sb.WriteByte(')')
	return sb.String()
}

func stream(content string) string {
	return fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content)
}

// assemble 写出文档：1 为 Catalog，2 为 Pages，fonts 依次从 3 开始编号，
// fonts[0] 以 F1 的名字挂到每一页上；之后每页占用页面与内容流两个对象。
func assemble(fonts []string, contents []string) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	first := 3 + len(fonts)
	kids := make([]string, len(contents))
	for i := range contents {
		kids[i] = fmt.Sprintf("%d 0 R", first+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(contents)))
	for _, f := range fonts {
		obj(f)
	}

	for i, content := range contents {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", first+2*i+1))
		obj(stream(content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func contentStream(text string, str func(line string) string) string {
	var sb strings.Builder
	sb.WriteString("BT\n/F1 12 Tf\n14 TL\n72 720 Td\n")
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			sb.WriteString("T*\n")
		}
		fmt.Fprintf(&sb, "%s Tj\n", str(line))
	}
	sb.WriteString("ET")
	return sb.String()
}
