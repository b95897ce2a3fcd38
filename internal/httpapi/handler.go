package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"forge-engine/pkg/errutil"
	"forge-engine/pkg/timeutil"
	"forge-engine/services/ingest"
	"forge-engine/services/leaderboard"
	"forge-engine/services/profile"
	"forge-engine/services/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Handler exposes the public ingestion and read surface.
type Handler struct {
	ingest   *ingest.Service
	users    user.Repository
	profiles *profile.Service
	boards   *leaderboard.Accumulator
}

type HandlerParams struct {
	fx.In

	Ingest   *ingest.Service
	Users    user.Repository
	Profiles *profile.Service
	Boards   *leaderboard.Accumulator
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		ingest:   p.Ingest,
		users:    p.Users,
		profiles: p.Profiles,
		boards:   p.Boards,
	}
}

// IngestEvent accepts one event for asynchronous processing. A 202 only means
// the event was admitted, not that rewards were applied.
func (h *Handler) IngestEvent(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, errutil.BadRequest("unreadable body", errutil.WithErr(err)))
		return
	}

	var req ingest.AdmitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(c, errutil.BadRequest("invalid json body", errutil.WithErr(err)))
		return
	}
	req.RawBody = body

	result, err := h.ingest.Admit(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, result)
}

type registerUserRequest struct {
	AppID      string         `json:"appId" binding:"required"`
	ExternalID string         `json:"externalId" binding:"required"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RegisterUser upserts a tenant user by external id.
func (h *Handler) RegisterUser(c *gin.Context) {
	var req registerUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errutil.ValidationFailed("appId and externalId are required", errutil.WithErr(err)))
		return
	}

	row, err := h.users.Upsert(c.Request.Context(), req.AppID, req.ExternalID, req.Attributes)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, row)
}

// GetProfile returns the aggregated profile for app and external user id.
func (h *Handler) GetProfile(c *gin.Context) {
	appID := c.Query("appId")
	if appID == "" {
		writeError(c, errutil.ValidationFailed("appId query parameter is required"))
		return
	}

	result, err := h.profiles.Get(c.Request.Context(), appID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetLeaderboard returns the live ranked top-N for one board.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	appID := c.Query("appId")
	metric := c.Query("metric")
	if appID == "" || metric == "" {
		writeError(c, errutil.ValidationFailed("appId and metric query parameters are required"))
		return
	}

	scope := c.DefaultQuery("scope", leaderboard.ScopeApp)
	periodKey := c.Query("periodKey")
	if periodKey == "" {
		periodKey = timeutil.PeriodKey(time.Now())
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			writeError(c, errutil.ValidationFailed("limit must be an integer between 1 and 500"))
			return
		}
		limit = parsed
	}

	entries, err := h.boards.Top(c.Request.Context(), appID, metric, periodKey, scope, limit, c.Query("leagueId"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"scope":     scope,
		"metric":    metric,
		"periodKey": periodKey,
		"entries":   entries,
	})
}

func writeError(c *gin.Context, err error) {
	var be errutil.BaseError
	if errors.As(err, &be) {
		c.JSON(be.Code.HTTPStatus(), be.JSON())
		return
	}

	zap.L().Error("unhandled api error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{"code": errutil.StatusInternal, "message": "internal error"},
	})
}
