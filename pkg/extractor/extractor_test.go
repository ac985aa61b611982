package extractor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"originality-go/internal/config"
	"originality-go/pkg/extractor/pdftest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDF_ExtractsPagesInOrder(t *testing.T) {
	doc := pdftest.Build("first page", "second page\nwith two lines")

	text := NewPDF().Extract(context.Background(), doc, 10)
	assert.Equal(t, "first page\nsecond page\nwith two lines", text)
}

func TestPDF_StopsAtMaxPages(t *testing.T) {
	pages := make([]string, 12)
	for i := range pages {
		pages[i] = fmt.Sprintf("marker%02d", i+1)
	}
	doc := pdftest.Build(pages...)

	text := NewPDF().Extract(context.Background(), doc, 10)
	assert.Contains(t, text, "marker01")
	assert.Contains(t, text, "marker10")
	assert.NotContains(t, text, "marker11")
	assert.NotContains(t, text, "marker12")

	text = NewPDF().Extract(context.Background(), doc, 3)
	assert.Equal(t, "marker01\nmarker02\nmarker03", text)
}

func TestPDF_DefaultPageLimit(t *testing.T) {
	pages := make([]string, 11)
	for i := range pages {
		pages[i] = fmt.Sprintf("p%d", i+1)
	}
	text := NewPDF().Extract(context.Background(), pdftest.Build(pages...), 0)
	assert.Contains(t, text, "p10")
	assert.NotContains(t, text, "p11")
}

func TestPDF_EscapedParentheses(t *testing.T) {
	text := NewPDF().Extract(context.Background(), pdftest.Build(`f(x) = \y`), 1)
	assert.Equal(t, `f(x) = \y`, text)
}

func TestPDF_GarbageReturnsEmpty(t *testing.T) {
	ex := NewPDF()
	assert.Equal(t, "", ex.Extract(context.Background(), []byte("this is not a pdf"), 10))
	assert.Equal(t, "", ex.Extract(context.Background(), nil, 10))
}

func TestPDF_ContentOperators(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"tj", "BT /F1 12 Tf (Hello) Tj ET", "Hello"},
		{"tj array with kerning", "BT /F1 12 Tf [(Hel) 20 (lo) -300 (world)] TJ ET", "Hello world"},
		{"quote operator", "BT /F1 12 Tf (one) Tj (two) ' ET", "one\ntwo"},
		{"double quote operator", `BT /F1 12 Tf (one) Tj 1 2 (two) " ET`, "one\ntwo"},
		{"td moves down", "BT /F1 12 Tf 72 700 Td (a) Tj 0 -14 Td (b) Tj ET", "a\nb"},
		{"td same line", "BT /F1 12 Tf (a) Tj 30 0 Td (b) Tj ET", "a b"},
		{"tm per line", "BT /F1 12 Tf 1 0 0 1 72 700 Tm (a) Tj 1 0 0 1 72 686 Tm (b) Tj 1 0 0 1 90 686 Tm (c) Tj ET", "a\nb c"},
		{"hex string", "BT /F1 12 Tf <48656C6C6F> Tj ET", "Hello"},
		{"octal escape", `BT /F1 12 Tf (caf\351) Tj ET`, "café"},
		{"no font selected", "BT (plain) Tj ET", "plain"},
		{"marked content dict", "/Span << /ActualText (x) >> BDC BT /F1 12 Tf (y) Tj ET EMC", "y"},
		{"separate text objects", "BT /F1 12 Tf (a) Tj ET BT /F1 12 Tf (b) Tj ET", "a\nb"},
		{"no text", "0 0 m 10 10 l S", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := NewPDF().Extract(context.Background(), pdftest.BuildRaw(tt.content), 1)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestPDF_WinAnsiEncoding(t *testing.T) {
	doc := pdftest.BuildWinAnsi("students’ work – “quoted”", "naïve café")

	text := NewPDF().Extract(context.Background(), doc, 10)
	assert.Equal(t, "students’ work – “quoted”\nnaïve café", text)
}

func TestPDF_Type0IdentityHWithToUnicode(t *testing.T) {
	text := NewPDF().Extract(context.Background(), pdftest.BuildType0("Hello"), 10)
	assert.Equal(t, "Hello", text)

	text = NewPDF().Extract(context.Background(), pdftest.BuildType0("原创性检测\nsecond line"), 10)
	assert.Equal(t, "原创性检测\nsecond line", text)
}

func TestPDF_RepairedDocumentIsReadable(t *testing.T) {
	ex := NewPDF()
	repaired, err := ex.repair(pdftest.Build("rebuilt by pdfcpu"))
	require.NoError(t, err)

	assert.Equal(t, "rebuilt by pdfcpu", ex.Extract(context.Background(), repaired, 10))
}

func TestPDF_RepairFailsOnGarbage(t *testing.T) {
	_, err := NewPDF().repair([]byte("this is not a pdf"))
	assert.Error(t, err)
}

const tikaXHTML = `<html xmlns="http://www.w3.org/1999/xhtml"><head><title>x</title></head><body>
<div class="page"><p>page one</p><p>second paragraph</p></div>
<div class="page"><p>page two</p></div>
<div class="page"><p>page three</p></div>
</body></html>`

func TestTika_ExtractsPageDivs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/tika", r.URL.Path)
		assert.Equal(t, "text/html", r.Header.Get("Accept"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "%PDF-fake", string(body))
		_, _ = w.Write([]byte(tikaXHTML))
	}))
	defer srv.Close()

	ex := NewTika(srv.URL + "/")
	assert.Equal(t, "page one\nsecond paragraph\npage two\npage three",
		ex.Extract(context.Background(), []byte("%PDF-fake"), 10))
	assert.Equal(t, "page one\nsecond paragraph\npage two",
		ex.Extract(context.Background(), []byte("%PDF-fake"), 2))
}

func TestTika_NoPageDivsUsesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>plain</p><p>text</p></body></html>`))
	}))
	defer srv.Close()

	assert.Equal(t, "plain\ntext", NewTika(srv.URL).Extract(context.Background(), []byte("x"), 10))
}

func TestTika_ServerErrorReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unprocessable", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	assert.Equal(t, "", NewTika(srv.URL).Extract(context.Background(), []byte("x"), 10))
}

func TestNew(t *testing.T) {
	ex, err := New(config.ExtractorConfig{})
	require.NoError(t, err)
	assert.IsType(t, &PDF{}, ex)

	_, err = New(config.ExtractorConfig{Type: "tika"})
	assert.Error(t, err)

	ex, err = New(config.ExtractorConfig{Type: "tika", TikaServerURL: "http://tika:9998"})
	require.NoError(t, err)
	assert.IsType(t, &Tika{}, ex)

	_, err = New(config.ExtractorConfig{Type: "docx"})
	assert.True(t, strings.Contains(err.Error(), "docx"))
}
