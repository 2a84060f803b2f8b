package controllers

import (
	"dashd/internal/models"
	"dashd/internal/pipeline"
	"dashd/internal/providers"
	"dashd/internal/services"
	"dashd/internal/structures"
	"dashd/internal/upstream"
	"fmt"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"
)

const maxRequestBodySize = 1 << 20 // 1 MB

const missingTermsMessage = "Please enter at least one search term"

type ApiController struct {
	config  *structures.Config
	logger  providers.Logger
	api     upstream.ClientInterface
	usage   services.UsageServiceInterface
	ready   *pipeline.ReadyState
	cache   providers.CacheProviderInterface
	metrics providers.MetricsProviderInterface
}

func NewApiController(
	config *structures.Config,
	logger providers.Logger,
	api upstream.ClientInterface,
	usage services.UsageServiceInterface,
	ready *pipeline.ReadyState,
	cache providers.CacheProviderInterface,
	metrics providers.MetricsProviderInterface,
) *ApiController {
	return &ApiController{
		config:  config,
		logger:  logger,
		api:     api,
		usage:   usage,
		ready:   ready,
		cache:   cache,
		metrics: metrics,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	gson, err := json.Marshal(body)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	result, err := compute()
	if err != nil {
		ac.logger.Errorf(providers.TypeGet, "Search request failed: %s", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ac.cache.Set(cacheKey, gson)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func (ac *ApiController) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ready": ac.ready.Ready()})
}

// SearchColumn resolves a term against the upstream column index. Hits are
// charged to the usage record once per distinct term; a cache hit repeats
// the previous response without charging again.
func (ac *ApiController) SearchColumn(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, missingTermsMessage)
		return
	}
	if !ac.ready.Ready() {
		writeError(w, http.StatusServiceUnavailable, "Prediction service is still loading")
		return
	}

	ac.serveFromCacheOrCompute(w, "col:"+query, func() (any, error) {
		matches, err := ac.api.SearchColumns(r.Context(), query)
		if err != nil {
			return nil, err
		}

		results := make([]models.SearchResult, 0, len(matches))
		for _, column := range matches {
			results = append(results, models.NewColumnResult(column, query))
		}

		ac.metrics.IncSearches()
		if len(results) > 0 {
			ac.usage.RecordSearch(r.Context(), query, "", len(results))
		}
		return results, nil
	})
}

// SearchValue resolves a term inside one column. Value hits are exact only.
func (ac *ApiController) SearchValue(w http.ResponseWriter, r *http.Request) {
	column := r.URL.Query().Get("column")
	query := r.URL.Query().Get("query")
	if column == "" || query == "" {
		writeError(w, http.StatusBadRequest, missingTermsMessage)
		return
	}
	if !ac.ready.Ready() {
		writeError(w, http.StatusServiceUnavailable, "Prediction service is still loading")
		return
	}

	limit := ac.config.Upstream.SearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= limit {
			limit = parsed
		}
	}

	// The effective limit is part of the key, a clamped request must not
	// replay a larger cached result.
	key := fmt.Sprintf("val:%s:%s:%d", column, query, limit)
	ac.serveFromCacheOrCompute(w, key, func() (any, error) {
		matches, err := ac.api.SearchValues(r.Context(), column, query, limit)
		if err != nil {
			return nil, err
		}

		results := make([]models.SearchResult, 0, len(matches))
		for _, value := range matches {
			results = append(results, models.NewEntryResult(column, value))
		}

		ac.metrics.IncSearches()
		if len(results) > 0 {
			ac.usage.RecordSearch(r.Context(), column, query, len(results))
		}
		return results, nil
	})
}

func (ac *ApiController) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ac.usage.Current())
}

// GetHistory lists the identity's previously generated prediction files.
func (ac *ApiController) GetHistory(w http.ResponseWriter, r *http.Request) {
	identity := ac.usage.Identity()
	if identity == "" {
		writeError(w, http.StatusUnauthorized, "No identity attached")
		return
	}

	files, err := ac.api.PredictionFiles(r.Context(), identity)
	if err != nil {
		ac.logger.Errorf(providers.TypeGet, "History request failed: %s", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// AttachIdentity switches the usage record to the given identity and returns
// the reconciled record.
func (ac *ApiController) AttachIdentity(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload struct {
		Identity string `json:"identity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if payload.Identity == "" {
		writeError(w, http.StatusBadRequest, "identity is required")
		return
	}

	rec := ac.usage.Load(r.Context(), payload.Identity)
	writeJSON(w, http.StatusOK, rec)
}

// DetachIdentity drops the identity and falls back to the anonymous record.
func (ac *ApiController) DetachIdentity(w http.ResponseWriter, r *http.Request) {
	rec := ac.usage.Load(r.Context(), "")
	writeJSON(w, http.StatusOK, rec)
}
