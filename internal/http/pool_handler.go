package http

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/balancer-sor/internal/http/httputil"
)

type PoolHandler struct {
	sorSvc SORService
}

func NewPoolHandler(sorSvc SORService) *PoolHandler {
	return &PoolHandler{sorSvc: sorSvc}
}

func (h *PoolHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.getStats)
	pub.POST("/refresh", h.refresh)
}

func (h *PoolHandler) Root() string {
	return "/pools"
}

// PoolStatsResponse summarises the cached pool set
type PoolStatsResponse struct {
	// Number of parsed, routable pools
	Count int `json:"count" example:"1247"`

	// Pool type tags present in the set
	Types []string `json:"types"`

	// Routable pools per type tag
	ByType map[string]int `json:"byType"`

	// Block the provider reported the set at, when known
	SyncedToBlockNumber *uint64 `json:"syncedToBlockNumber,omitempty"`

	// Time of the last successful refresh (RFC 3339)
	LastRefresh string `json:"lastRefresh,omitempty"`
}

// @Summary Pool set statistics
// @Tags pools
// @Produce json
// @Success 200 {object} PoolStatsResponse
// @Router /api/v1/pools [get]
func (h *PoolHandler) getStats(c *gin.Context) {
	stats := h.sorSvc.Stats()
	resp := PoolStatsResponse{
		Count:               stats.Count,
		Types:               h.sorSvc.PoolTypes(),
		ByType:              stats.ByType,
		SyncedToBlockNumber: stats.SyncedToBlockNumber,
	}
	if !stats.LastRefresh.IsZero() {
		resp.LastRefresh = stats.LastRefresh.UTC().Format(time.RFC3339)
	}
	httputil.HandleSuccess(c, resp)
}

// RefreshResponse reports the outcome of a forced refresh
type RefreshResponse struct {
	Count int `json:"count"`
}

// @Summary Refresh the pool set
// @Description Fetches pools from the provider, enriches them on chain when an RPC is configured and replaces the cache.
// @Tags pools
// @Produce json
// @Success 200 {object} RefreshResponse
// @Failure 500 {object} httputil.Response
// @Router /api/v1/pools/refresh [post]
func (h *PoolHandler) refresh(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Minute)
	defer cancel()

	count, err := h.sorSvc.FetchAndCachePools(ctx, nil)
	if err != nil {
		httputil.HandleError(c, err)
		return
	}
	httputil.HandleSuccess(c, RefreshResponse{Count: count})
}
