package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/torralab/pulse/internal/accounts"
	"github.com/torralab/pulse/internal/enumkey"
)

var (
	errMissingDatabase        = errors.New("database dependency required")
	errMissingRegistry        = errors.New("enum key registry dependency required")
	errMissingAccountsService = errors.New("accounts service dependency required")
)

type Dependencies struct {
	Database *gorm.DB
	Registry *enumkey.Registry
	Accounts *accounts.Service
	Logger   *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Database == nil {
		return nil, errMissingDatabase
	}
	if deps.Registry == nil {
		return nil, errMissingRegistry
	}
	if deps.Accounts == nil {
		return nil, errMissingAccountsService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		source:   enumkey.NewGormSource(deps.Database),
		registry: deps.Registry,
		accounts: deps.Accounts,
		logger:   logger,
	}

	router.GET("/healthz", handler.handleHealth)

	api := router.Group("/")
	api.Use(handler.refreshRegistry)
	api.GET("/enumkeys/categories/:category/options", handler.handleCategoryOptions)
	api.GET("/enumkeys/categories/:category/keys", handler.handleCategoryKeys)
	api.GET("/options/domains", handler.handleDomainOptions)
	api.GET("/options/groups", handler.handleGroupOptions)
	api.GET("/domains", handler.handleDomainSummaries)
	api.GET("/actions", handler.handleRecentActions)

	return router, nil
}

type httpHandler struct {
	source   enumkey.Source
	registry *enumkey.Registry
	accounts *accounts.Service
	logger   *zap.Logger
}

// refreshRegistry brings the enum cache up to date once per request. All
// lookups behind it read the same snapshot.
func (h *httpHandler) refreshRegistry(c *gin.Context) {
	if err := h.registry.EnsureCurrent(c.Request.Context(), h.source); err != nil {
		h.logger.Error("enum key registry refresh failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "registry_unavailable"})
		return
	}
	c.Next()
}

type healthPayload struct {
	Status          string `json:"status"`
	RegistryVersion int64  `json:"registry_version"`
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, healthPayload{
		Status:          "ok",
		RegistryVersion: h.registry.Version(),
	})
}

type optionPayload struct {
	ID  int64  `json:"id"`
	Key string `json:"key"`
}

type categoryOptionsPayload struct {
	Category string          `json:"category"`
	Options  []optionPayload `json:"options"`
}

func (h *httpHandler) handleCategoryOptions(c *gin.Context) {
	category := c.Param("category")
	items, err := h.registry.Items(category)
	if err != nil {
		h.renderRegistryError(c, category, err)
		return
	}

	response := categoryOptionsPayload{Category: category, Options: make([]optionPayload, 0, len(items))}
	for _, item := range items {
		response.Options = append(response.Options, optionPayload{ID: item.ID, Key: item.Key})
	}
	c.JSON(http.StatusOK, response)
}

type categoryKeysPayload struct {
	Category string   `json:"category"`
	Keys     []string `json:"keys"`
}

func (h *httpHandler) handleCategoryKeys(c *gin.Context) {
	category := c.Param("category")
	keys, err := h.registry.Keys(category)
	if err != nil {
		h.renderRegistryError(c, category, err)
		return
	}
	c.JSON(http.StatusOK, categoryKeysPayload{Category: category, Keys: keys})
}

type selectionPayload struct {
	Options []accounts.Option `json:"options"`
}

func (h *httpHandler) handleDomainOptions(c *gin.Context) {
	options, err := h.accounts.DomainOptions(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list domain options", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query_failed"})
		return
	}
	c.JSON(http.StatusOK, selectionPayload{Options: options})
}

func (h *httpHandler) handleGroupOptions(c *gin.Context) {
	options, err := h.accounts.GroupOptions(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list group options", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query_failed"})
		return
	}
	c.JSON(http.StatusOK, selectionPayload{Options: options})
}

type domainPayload struct {
	ID         int64  `json:"id"`
	UUID       string `json:"uuid"`
	Domain     string `json:"domain"`
	Desc       string `json:"desc"`
	DomainType string `json:"domain_type"`
	UserCount  int64  `json:"user_count"`
}

type domainsResponsePayload struct {
	Domains []domainPayload `json:"domains"`
}

func (h *httpHandler) handleDomainSummaries(c *gin.Context) {
	summaries, err := h.accounts.DomainSummaries(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list domains", zap.Error(err))
		if errors.Is(err, enumkey.ErrCategoryMismatch) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "registry_inconsistent"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query_failed"})
		return
	}

	response := domainsResponsePayload{Domains: make([]domainPayload, 0, len(summaries))}
	for _, summary := range summaries {
		response.Domains = append(response.Domains, domainPayload{
			ID:         summary.Domain.ID,
			UUID:       summary.Domain.UUID,
			Domain:     summary.Domain.Domain,
			Desc:       summary.Domain.Desc,
			DomainType: summary.DomainType,
			UserCount:  summary.UserCount,
		})
	}
	c.JSON(http.StatusOK, response)
}

type actionPayload struct {
	ID                int64  `json:"id"`
	Action            string `json:"action"`
	Detail            string `json:"detail"`
	UserID            *int64 `json:"user_id"`
	RecordedAtSeconds int64  `json:"recorded_at_s"`
}

type actionsResponsePayload struct {
	Actions []actionPayload `json:"actions"`
}

func (h *httpHandler) handleRecentActions(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_limit"})
			return
		}
		limit = parsed
	}

	entries, err := h.accounts.RecentActions(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list actions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query_failed"})
		return
	}

	response := actionsResponsePayload{Actions: make([]actionPayload, 0, len(entries))}
	for _, entry := range entries {
		response.Actions = append(response.Actions, actionPayload{
			ID:                entry.Entry.ID,
			Action:            entry.Action,
			Detail:            entry.Entry.Detail,
			UserID:            entry.Entry.UserID,
			RecordedAtSeconds: entry.Entry.RecordedAt.Unix(),
		})
	}
	c.JSON(http.StatusOK, response)
}

// renderRegistryError maps lookup failures: an unknown category is a client
// error, a category mismatch means the cache and the database disagree.
func (h *httpHandler) renderRegistryError(c *gin.Context, category string, err error) {
	switch {
	case errors.Is(err, enumkey.ErrCategoryNotLoaded):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_category", "category": category})
	case errors.Is(err, enumkey.ErrCategoryMismatch):
		h.logger.Error("enum key registry inconsistent",
			zap.String("category", category), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registry_inconsistent"})
	default:
		h.logger.Error("enum key lookup failed",
			zap.String("category", category), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed"})
	}
}
