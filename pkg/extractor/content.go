package extractor

import (
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// 内容流中与文本相关的操作符：
//   Tf      选择字体，决定后续字符串的解码方式
//   Tj ' "  绘制单个字符串
//   TJ      绘制字符串与字距调整的数组
//   T* Td TD Tm 换行或移动文本位置
//   ET      结束文本对象

// 字距调整超过该值（千分之一字号）时视为单词间隔
const tjSpaceThreshold = -200

// latin1 用于未选择字体时的字符串。
type latin1 struct{}

func (latin1) Decode(raw string) string {
	r := make([]rune, len(raw))
	for i := 0; i < len(raw); i++ {
		r[i] = rune(raw[i])
	}
	return string(r)
}

type textWriter struct {
	sb   strings.Builder
	last rune
}

func (w *textWriter) write(s string) {
	for _, r := range s {
		switch {
		case r == unicode.ReplacementChar:
			continue
		case r == '\t' || r == '\n' || r == '\r':
			r = ' '
		case unicode.IsControl(r):
			continue
		}
		w.sb.WriteRune(r)
		w.last = r
	}
}

func (w *textWriter) newline() {
	if w.sb.Len() > 0 && w.last != '\n' {
		w.sb.WriteByte('\n')
		w.last = '\n'
	}
}

func (w *textWriter) space() {
	if w.sb.Len() > 0 && w.last != '\n' && w.last != ' ' {
		w.sb.WriteByte(' ')
		w.last = ' '
	}
}

// pageReader 按绘制顺序解释一页的内容流。字符串按当前字体的编码
// （ToUnicode CMap、WinAnsi、Differences、Identity-H）解码为 Unicode。
type pageReader struct {
	page  pdf.Page
	fonts map[string]pdf.TextEncoding
	enc   pdf.TextEncoding
	w     textWriter

	// 最近一次 Tm 设置的坐标
	tmSet bool
	tmX   float64
	tmY   float64
}

func newPageReader(page pdf.Page) *pageReader {
	return &pageReader{
		page:  page,
		fonts: make(map[string]pdf.TextEncoding),
		enc:   latin1{},
	}
}

func (pr *pageReader) font(name string) pdf.TextEncoding {
	if enc, ok := pr.fonts[name]; ok {
		return enc
	}
	var enc pdf.TextEncoding = latin1{}
	if f := pr.page.Font(name); !f.V.IsNull() {
		enc = f.Encoder()
	}
	pr.fonts[name] = enc
	return enc
}

func (pr *pageReader) show(v pdf.Value) {
	if v.Kind() == pdf.String {
		pr.w.write(pr.enc.Decode(v.RawString()))
	}
}

func isNumber(v pdf.Value) bool {
	return v.Kind() == pdf.Integer || v.Kind() == pdf.Real
}

// text 返回页面文本，去掉首尾空白。
func (pr *pageReader) text() string {
	contents := pr.page.V.Key("Contents")
	if contents.Kind() != pdf.Stream && contents.Kind() != pdf.Array {
		return ""
	}
	pdf.Interpret(contents, pr.op)
	return strings.TrimSpace(pr.w.sb.String())
}

func (pr *pageReader) op(stk *pdf.Stack, op string) {
	args := make([]pdf.Value, stk.Len())
	for i := len(args) - 1; i >= 0; i-- {
		args[i] = stk.Pop()
	}
	last := func() pdf.Value {
		if len(args) == 0 {
			return pdf.Value{}
		}
		return args[len(args)-1]
	}

	switch op {
	case "Tf":
		if len(args) >= 2 && args[len(args)-2].Kind() == pdf.Name {
			pr.enc = pr.font(args[len(args)-2].Name())
		}
	case "Tj":
		pr.show(last())
	case "'", "\"":
		pr.w.newline()
		pr.show(last())
	case "TJ":
		arr := last()
		if arr.Kind() != pdf.Array {
			return
		}
		for i := 0; i < arr.Len(); i++ {
			el := arr.Index(i)
			switch {
			case el.Kind() == pdf.String:
				pr.show(el)
			case isNumber(el) && el.Float64() < tjSpaceThreshold:
				pr.w.space()
			}
		}
	case "T*":
		pr.w.newline()
	case "ET":
		pr.w.newline()
		pr.tmSet = false
	case "Td", "TD":
		if len(args) < 2 || !isNumber(args[len(args)-1]) || !isNumber(args[len(args)-2]) {
			return
		}
		if args[len(args)-1].Float64() != 0 {
			pr.w.newline()
		} else if args[len(args)-2].Float64() != 0 {
			pr.w.space()
		}
	case "Tm":
		if len(args) < 6 || !isNumber(args[len(args)-1]) || !isNumber(args[len(args)-2]) {
			return
		}
		x, y := args[len(args)-2].Float64(), args[len(args)-1].Float64()
		if pr.tmSet {
			if y != pr.tmY {
				pr.w.newline()
			} else if x != pr.tmX {
				pr.w.space()
			}
		}
		pr.tmSet, pr.tmX, pr.tmY = true, x, y
	}
}
