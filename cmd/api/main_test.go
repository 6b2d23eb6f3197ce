package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MacroScout/macroscout/engine/classify"
	"github.com/MacroScout/macroscout/engine/domain"
	"github.com/MacroScout/macroscout/engine/facts"
	"github.com/MacroScout/macroscout/engine/index"
	"github.com/MacroScout/macroscout/engine/nutrition"
	"github.com/MacroScout/macroscout/engine/pipeline"
	"github.com/MacroScout/macroscout/engine/retrieve"
	"github.com/MacroScout/macroscout/engine/verify"
	"github.com/MacroScout/macroscout/pkg/metrics"
)

func testAPI(t *testing.T) *apiServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	flat := index.NewFlat(index.NewHashingEmbedder(64), logger)
	seed := []domain.NutritionFact{
		{Name: "Chicken Breast", Calories100g: 165, Protein100g: 31, Fat100g: 3.6},
		{Name: "Banana", Calories100g: 89, Protein100g: 1.1, Carbs100g: 22.8, Fat100g: 0.3},
	}
	for i := range seed {
		seed[i].FactText = facts.FormatFactText(seed[i])
	}
	if err := flat.Build(context.Background(), seed); err != nil {
		t.Fatalf("build index: %v", err)
	}

	retriever := retrieve.New(flat, logger)
	model := classify.Load(t.TempDir(), logger) // no artifacts: degraded classifier
	chain := nutrition.NewChain(logger, 0, nutrition.NewStaples())
	verifier := verify.New(0, logger)
	pipe := pipeline.New(chain, model, retriever, verifier, nil, pipeline.Opts{Logger: logger})

	return &apiServer{
		pipeline:  pipe,
		resolver:  chain,
		retriever: retriever,
		model:     model,
		index:     flat,
		verifier:  verifier,
		logger:    logger,
		metrics:   metrics.New(),
	}
}

func TestHandleHealth(t *testing.T) {
	api := testAPI(t)

	rec := httptest.NewRecorder()
	api.handleHealth(rec, httptest.NewRequest("GET", "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var h pipeline.Health
	if err := json.NewDecoder(rec.Body).Decode(&h); err != nil {
		t.Fatal(err)
	}
	if !h.Retriever {
		t.Error("retriever should be available")
	}
	if h.Classifier || h.Status != "degraded" {
		t.Errorf("classifier without artifacts should degrade: %+v", h)
	}
}

func TestHandleFacts(t *testing.T) {
	api := testAPI(t)

	rec := httptest.NewRecorder()
	api.handleFacts(rec, httptest.NewRequest("GET", "/api/facts?q=chicken+breast&k=1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp FactsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 || resp.Results[0].Meta.Name != "Chicken Breast" {
		t.Errorf("unexpected results: %+v", resp)
	}
}

func TestHandleFactsRejectsBadQuery(t *testing.T) {
	api := testAPI(t)

	rec := httptest.NewRecorder()
	api.handleFacts(rec, httptest.NewRequest("GET", "/api/facts?q=x", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("short query: status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	api.handleFacts(rec, httptest.NewRequest("GET", "/api/facts?q=banana&k=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad k: status = %d", rec.Code)
	}
}

func TestHandleClassify(t *testing.T) {
	api := testAPI(t)

	body := strings.NewReader(`{"food_name":"banana","quantity_g":200}`)
	rec := httptest.NewRecorder()
	api.handleClassify(rec, httptest.NewRequest("POST", "/api/classify", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp ClassifyResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Food != "Banana" || resp.Nutrition.Calories != 178 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.Classification.Explanation != "Model not available" {
		t.Errorf("degraded classifier should answer with sentinel: %+v", resp.Classification)
	}
}

func TestHandleClassifyNotFound(t *testing.T) {
	api := testAPI(t)

	body := strings.NewReader(`{"food_name":"unobtainium"}`)
	rec := httptest.NewRecorder()
	api.handleClassify(rec, httptest.NewRequest("POST", "/api/classify", body))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleVerify(t *testing.T) {
	api := testAPI(t)

	body := strings.NewReader(`{"text":"Chicken has 165 calories per 100g.","query":"chicken breast","k":1,"portions":{"Chicken Breast":100}}`)
	rec := httptest.NewRecorder()
	api.handleVerify(rec, httptest.NewRequest("POST", "/api/verify", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp verify.Result
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != verify.StatusVerified {
		t.Errorf("status = %q: %+v", resp.Status, resp)
	}
}

func TestHandleVerifyTrimsText(t *testing.T) {
	api := testAPI(t)

	body := strings.NewReader(`{"text":"  Chicken has 165 calories per 100g.  ","query":"chicken breast","k":1,"portions":{"Chicken Breast":100}}`)
	rec := httptest.NewRecorder()
	api.handleVerify(rec, httptest.NewRequest("POST", "/api/verify", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp verify.Result
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != verify.StatusVerified {
		t.Errorf("status = %q: %+v", resp.Status, resp)
	}
}

func TestHandleVerifyRequiresText(t *testing.T) {
	api := testAPI(t)

	rec := httptest.NewRecorder()
	api.handleVerify(rec, httptest.NewRequest("POST", "/api/verify", strings.NewReader(`{"query":"banana"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleRecommend(t *testing.T) {
	api := testAPI(t)

	body := strings.NewReader(`{"food_name":"banana","quantity_g":120}`)
	rec := httptest.NewRecorder()
	api.handleRecommend(rec, httptest.NewRequest("POST", "/api/recommend", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp pipeline.Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Food != "Banana" || resp.Explanation == "" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if _, ok := resp.Timings["total"]; !ok {
		t.Error("missing total timing")
	}
}

func TestHandleRecommendErrors(t *testing.T) {
	api := testAPI(t)

	rec := httptest.NewRecorder()
	api.handleRecommend(rec, httptest.NewRequest("POST", "/api/recommend", strings.NewReader(`{"food_name":"x"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("validation: status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	api.handleRecommend(rec, httptest.NewRequest("POST", "/api/recommend", strings.NewReader(`{"food_name":"unobtainium"}`)))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown food: status = %d", rec.Code)
	}
}

func TestHandleModelInfo(t *testing.T) {
	api := testAPI(t)

	rec := httptest.NewRecorder()
	api.handleModelInfo(rec, httptest.NewRequest("GET", "/api/model", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp ModelInfoResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Classifier.Available {
		t.Error("classifier should be unavailable without artifacts")
	}
	if len(resp.Classifier.FeatureNames) != classify.FeatureCount {
		t.Errorf("feature names = %v", resp.Classifier.FeatureNames)
	}
	if resp.Index == nil || resp.Index.VectorCount != 2 {
		t.Errorf("index info = %+v", resp.Index)
	}
}
