package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"originality-go/internal/config"
	"originality-go/internal/model"
	"originality-go/internal/repository"
	"originality-go/internal/service"
	"originality-go/pkg/database"
	"originality-go/pkg/embedding"
	"originality-go/pkg/extractor"
	"originality-go/pkg/extractor/pdftest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router *gin.Engine
	corpus repository.CorpusRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "handler.db")})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	corpus := repository.NewCorpusRepository(db)
	originality := service.NewOriginalityService(corpus, extractor.NewPDF(), embedding.NewHashEncoder(0), 10)
	reports := service.NewReportService(repository.NewReportRepository(db), nil, 0)

	router := NewRouter(
		config.ServerConfig{CORSAllowedOrigins: []string{"*"}},
		NewSimilarityHandler(originality, reports, 1),
		NewReportHandler(reports),
		NewCorpusHandler(originality),
	)
	return &testServer{router: router, corpus: corpus}
}

func (s *testServer) seed(t *testing.T, name, text string) {
	t.Helper()
	_, err := s.corpus.Insert(context.Background(), name, text)
	require.NoError(t, err)
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, path, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "upload.pdf")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// reportJSON 是报告接口的响应结构，createdAt 保持原始字符串。
type reportJSON struct {
	ReportID       string  `json:"reportId"`
	FileName       string  `json:"fileName"`
	Originality    float64 `json:"originality"`
	MostSimilarDoc string  `json:"mostSimilarDoc"`
	CorpusSize     int     `json:"corpusSize"`
	CreatedAt      string  `json:"createdAt"`
}

func TestCheckSimilarity_IdenticalDocument(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "DocB", "recipes for baking sourdough bread")
	s.seed(t, "DocA", "the quick brown fox")

	w := s.do(uploadRequest(t, "/check-similarity/", "file", pdftest.Build("the quick brown fox")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res model.SimilarityResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "DocA", res.MostSimilarDoc)
	assert.InDelta(t, 0.0, res.Originality, 0.01)

	reportID := w.Header().Get(ReportIDHeader)
	require.NotEmpty(t, reportID)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+reportID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Code int        `json:"code"`
		Data reportJSON `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, reportID, envelope.Data.ReportID)
	assert.Equal(t, "upload.pdf", envelope.Data.FileName)
	assert.Equal(t, "DocA", envelope.Data.MostSimilarDoc)
	assert.Equal(t, 2, envelope.Data.CorpusSize)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`, envelope.Data.CreatedAt)
}

func TestCheckSimilarity_EmptyCorpus(t *testing.T) {
	s := newTestServer(t)

	w := s.do(uploadRequest(t, "/api/v1/similarity/check", "file", pdftest.Build("brand new work")))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"originality":100,"most_similar_doc":"No documents in database"}`, w.Body.String())
}

func TestCheckSimilarity_ExtractionFailure(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "DocA", "anything")

	w := s.do(uploadRequest(t, "/check-similarity/", "file", []byte("not a pdf")))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"error":"Failed to extract text from PDF"}`, w.Body.String())
	assert.Empty(t, w.Header().Get(ReportIDHeader))
}

func TestCheckSimilarity_MissingFile(t *testing.T) {
	s := newTestServer(t)

	w := s.do(uploadRequest(t, "/check-similarity/", "document", pdftest.Build("x")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndCorpus(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "DocA", "four")

	w := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","corpus_size":1}`, w.Body.String())

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/corpus", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":200,"message":"success","data":[{"name":"DocA","textLength":4}]}`, w.Body.String())
}

func TestReports_ListAndErrors(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "DocA", "the quick brown fox")
	for i := 0; i < 3; i++ {
		w := s.do(uploadRequest(t, "/check-similarity/", "file", pdftest.Build("the quick brown fox")))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/reports?limit=2", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data []reportJSON `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data, 2)

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/reports?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/reports/does-not-exist", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/check-similarity/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := s.do(req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
