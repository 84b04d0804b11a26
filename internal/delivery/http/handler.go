package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/usecase"
)

const (
	serviceName    = "pricelens-backend"
	serviceVersion = "1.0.0"
)

// Services are the usecases served over HTTP. Any of them may be nil, in
// which case its endpoints answer 503.
type Services struct {
	Ledger     *usecase.PriceLedger
	Cascade    *usecase.ResolutionCascade
	Matcher    *usecase.FuzzyMatcher
	Comparator *usecase.StoreComparator
	Repricer   *usecase.StoreSwitchRepricer
	Estimator  *usecase.PriceEstimator
	Variants   *usecase.VariantCatalog
	Lists      domain.ListRepository
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	services Services
	now      func() time.Time
	logger   zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(services Services, logger zerolog.Logger) *Handler {
	return &Handler{
		services: services,
		now:      time.Now,
		logger:   logger.With().Str("component", "http").Logger(),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

func notConfigured(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": what + " is not configured"})
}

// respondError maps domain errors to status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		status = http.StatusTooManyRequests
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("rid", c.GetString(requestIDKey)).Msg("request failed")
		msg = "internal server error"
	}
	c.JSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
}

// RecordObservation folds a price observation into the ledger
func (h *Handler) RecordObservation(c *gin.Context) {
	if h.services.Ledger == nil {
		notConfigured(c, "price ledger")
		return
	}

	var obs domain.Observation
	if err := c.ShouldBindJSON(&obs); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.services.Ledger.Upsert(c.Request.Context(), obs)
	if err != nil {
		h.respondError(c, err)
		return
	}

	status := http.StatusOK
	if result.Outcome == domain.OutcomeInserted {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

type recordView struct {
	domain.PriceRecord
	EffectiveConfidence float64 `json:"effectiveConfidence"`
}

// LookupPrices lists the ledger records of an item, cheapest first
func (h *Handler) LookupPrices(c *gin.Context) {
	if h.services.Ledger == nil {
		notConfigured(c, "price ledger")
		return
	}

	item := c.Param("item")
	name := usecase.Normalize(item)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item name is required"})
		return
	}

	records, err := h.services.Ledger.Lookup(c.Request.Context(), item, c.Query("store"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if len(records) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no prices recorded for " + name})
		return
	}

	now := h.now()
	views := make([]recordView, 0, len(records))
	for _, r := range records {
		views = append(views, recordView{
			PriceRecord:         r,
			EffectiveConfidence: usecase.EffectiveConfidence(h.services.Ledger.Policy(), r, now),
		})
	}
	c.JSON(http.StatusOK, gin.H{"item": name, "records": views})
}

// ResolveItem runs the resolution cascade for one item name
func (h *Handler) ResolveItem(c *gin.Context) {
	if h.services.Cascade == nil {
		notConfigured(c, "resolution cascade")
		return
	}

	var req usecase.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.services.Cascade.Resolve(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// SaveVariant adds or replaces a known size variant of an item
func (h *Handler) SaveVariant(c *gin.Context) {
	if h.services.Variants == nil {
		notConfigured(c, "variant catalog")
		return
	}

	var variant domain.Variant
	if err := c.ShouldBindJSON(&variant); err != nil {
		badRequest(c, err)
		return
	}

	saved, err := h.services.Variants.Save(c.Request.Context(), variant)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// ListVariants returns the variants of an item known at a store
func (h *Handler) ListVariants(c *gin.Context) {
	if h.services.Variants == nil {
		notConfigured(c, "variant catalog")
		return
	}

	variants, err := h.services.Variants.List(c.Request.Context(), c.Param("item"), c.Query("store"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": usecase.Normalize(c.Param("item")), "variants": variants})
}

type suggestRequest struct {
	Query string `json:"query" binding:"required"`
}

// SuggestItems ranks known ledger item names against a typed query
func (h *Handler) SuggestItems(c *gin.Context) {
	if h.services.Ledger == nil || h.services.Matcher == nil {
		notConfigured(c, "item suggestions")
		return
	}

	var req suggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	names, err := h.services.Ledger.KnownItems(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	matches := h.services.Matcher.FindMatches(usecase.Normalize(req.Query), names)
	c.JSON(http.StatusOK, gin.H{"query": req.Query, "matches": matches})
}

type compareRequest struct {
	ListID            string            `json:"listId,omitempty"`
	Items             []domain.ListItem `json:"items,omitempty"`
	CurrentStoreID    string            `json:"currentStoreId"`
	CandidateStoreIDs []string          `json:"candidateStoreIds" binding:"required"`
}

// CompareStores totals a list at candidate stores. Items come from the
// request or, when only listId is given, from the list repository.
func (h *Handler) CompareStores(c *gin.Context) {
	if h.services.Comparator == nil {
		notConfigured(c, "store comparison")
		return
	}

	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	items := req.Items
	if len(items) == 0 && req.ListID != "" {
		if h.services.Lists == nil {
			notConfigured(c, "list storage")
			return
		}
		loaded, err := h.services.Lists.ListItems(c.Request.Context(), req.ListID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		items = loaded
	}

	result, err := h.services.Comparator.Compare(c.Request.Context(), items, req.CurrentStoreID, req.CandidateStoreIDs)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type switchStoreRequest struct {
	StoreID string `json:"storeId" binding:"required"`
}

// SwitchStore reprices a list for a new store and persists the result
func (h *Handler) SwitchStore(c *gin.Context) {
	if h.services.Repricer == nil {
		notConfigured(c, "store switching")
		return
	}

	var req switchStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.services.Repricer.SwitchStore(c.Request.Context(), c.Param("id"), req.StoreID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// EstimateMissing asks the AI estimator for items the cascade left unpriced
func (h *Handler) EstimateMissing(c *gin.Context) {
	if h.services.Estimator == nil {
		notConfigured(c, "price estimator")
		return
	}

	result, err := h.services.Estimator.FillMissing(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type putItemsRequest struct {
	Items []domain.ListItem `json:"items" binding:"required,dive"`
}

// PutListItems replaces the items of a list. Items without an id get one.
func (h *Handler) PutListItems(c *gin.Context) {
	if h.services.Lists == nil {
		notConfigured(c, "list storage")
		return
	}

	var req putItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	listID := c.Param("id")
	for i := range req.Items {
		if req.Items[i].ID == "" {
			req.Items[i].ID = uuid.NewString()
		}
		req.Items[i].ListID = listID
	}

	if err := h.services.Lists.ReplaceItems(c.Request.Context(), listID, req.Items); err != nil {
		h.respondError(c, err)
		return
	}

	items, err := h.services.Lists.ListItems(c.Request.Context(), listID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listId": listID, "items": items})
}
