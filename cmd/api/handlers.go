package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/MacroScout/macroscout/engine/classify"
	"github.com/MacroScout/macroscout/engine/domain"
	"github.com/MacroScout/macroscout/engine/index"
	"github.com/MacroScout/macroscout/engine/nutrition"
	"github.com/MacroScout/macroscout/engine/pipeline"
	"github.com/MacroScout/macroscout/engine/retrieve"
	"github.com/MacroScout/macroscout/engine/verify"
	"github.com/MacroScout/macroscout/pkg/metrics"
)

type apiServer struct {
	pipeline  *pipeline.Service
	resolver  pipeline.Resolver
	retriever *retrieve.Service
	model     *classify.Model
	index     retrieve.Searcher
	verifier  *verify.Verifier
	logger    *slog.Logger
	metrics   *metrics.Registry
}

func (api *apiServer) count(route string) {
	api.metrics.Counter(
		metrics.WithLabels("api_requests_total", "route", route),
		"API requests by route.",
	).Inc()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (api *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	api.count("health")
	writeJSON(w, http.StatusOK, api.pipeline.Health())
}

// FactsResponse is the JSON response for GET /api/facts.
type FactsResponse struct {
	Query   string            `json:"query"`
	Count   int               `json:"count"`
	Results []retrieve.Result `json:"results"`
}

func (api *apiServer) handleFacts(w http.ResponseWriter, r *http.Request) {
	api.count("facts")

	query, err := domain.ValidateQuery(r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	k := 5
	if raw := r.URL.Query().Get("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "k must be an integer")
			return
		}
		k = parsed
	}

	results := api.retriever.Retrieve(r.Context(), query, k)
	writeJSON(w, http.StatusOK, FactsResponse{Query: query, Count: len(results), Results: results})
}

// ClassifyRequest is the JSON body for POST /api/classify.
type ClassifyRequest struct {
	FoodName  string  `json:"food_name"`
	QuantityG float64 `json:"quantity_g"`
}

// ClassifyResponse is the JSON response for POST /api/classify.
type ClassifyResponse struct {
	Food           string          `json:"food"`
	QuantityG      float64         `json:"quantity_g"`
	Nutrition      domain.Macros   `json:"nutrition"`
	Classification classify.Result `json:"classification"`
}

func (api *apiServer) handleClassify(w http.ResponseWriter, r *http.Request) {
	api.count("classify")

	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name, err := domain.ValidateFoodName(req.FoodName)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	quantity := req.QuantityG
	if quantity == 0 {
		quantity = pipeline.DefaultQuantityG
	}
	if err := domain.ValidateQuantity(quantity); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	fact, err := api.resolver.Lookup(r.Context(), name)
	if err != nil {
		if errors.Is(err, nutrition.ErrNotFound) {
			writeError(w, http.StatusNotFound, "food not found")
			return
		}
		api.logger.Error("classify: resolve failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	macros := fact.ForQuantity(quantity)
	writeJSON(w, http.StatusOK, ClassifyResponse{
		Food:           fact.Name,
		QuantityG:      quantity,
		Nutrition:      macros,
		Classification: api.model.Predict(macros),
	})
}

// VerifyRequest is the JSON body for POST /api/verify.
type VerifyRequest struct {
	Text     string             `json:"text"`
	Query    string             `json:"query"`
	K        int                `json:"k"`
	Portions map[string]float64 `json:"portions,omitempty"`
}

func (api *apiServer) handleVerify(w http.ResponseWriter, r *http.Request) {
	api.count("verify")

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	text, err := domain.ValidateText(req.Text)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	query, err := domain.ValidateQuery(req.Query)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	k := req.K
	if k == 0 {
		k = pipeline.DefaultTopK
	}

	evidence := api.retriever.Retrieve(r.Context(), query, k)
	metas := make([]domain.NutritionFact, len(evidence))
	for i, hit := range evidence {
		metas[i] = hit.Meta
	}

	writeJSON(w, http.StatusOK, api.verifier.Verify(text, metas, req.Portions))
}

func (api *apiServer) handleRecommend(w http.ResponseWriter, r *http.Request) {
	api.count("recommend")

	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := api.pipeline.Recommend(r.Context(), req)
	if err != nil {
		switch {
		case domain.IsValidation(err):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, pipeline.ErrFoodNotFound):
			writeError(w, http.StatusNotFound, "food not found")
		default:
			api.logger.Error("recommend failed", "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	api.metrics.Histogram("recommend_duration_seconds", "Pipeline wall time.", nil).
		Observe(resp.Timings["total"])
	writeJSON(w, http.StatusOK, resp)
}

// infoProvider is satisfied by the flat index; the Qdrant store has no
// local info record.
type infoProvider interface {
	Info() index.Info
}

// ModelInfoResponse is the JSON response for GET /api/model.
type ModelInfoResponse struct {
	Classifier ClassifierInfo `json:"classifier"`
	Index      *index.Info    `json:"index,omitempty"`
}

// ClassifierInfo describes the loaded classification model.
type ClassifierInfo struct {
	Available    bool               `json:"available"`
	Metadata     classify.Metadata  `json:"metadata"`
	FeatureNames []string           `json:"feature_names"`
	Importance   map[string]float64 `json:"feature_importance"`
}

func (api *apiServer) handleModelInfo(w http.ResponseWriter, _ *http.Request) {
	api.count("model")

	resp := ModelInfoResponse{
		Classifier: ClassifierInfo{
			Available:    api.model.Available(),
			Metadata:     api.model.Info(),
			FeatureNames: classify.FeatureNames[:],
			Importance:   api.model.FeatureImportance(),
		},
	}
	if ip, ok := api.index.(infoProvider); ok {
		info := ip.Info()
		resp.Index = &info
	}
	writeJSON(w, http.StatusOK, resp)
}
