package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/amorempixels/amor_server/internal/api/middleware"
	"github.com/amorempixels/amor_server/internal/model/dto"
	"github.com/amorempixels/amor_server/internal/pkg/response"
	"github.com/amorempixels/amor_server/internal/service"
	"github.com/amorempixels/amor_server/internal/together"
)

const SitePasswordHeader = "X-Site-Password"

type SiteHandler struct {
	siteService *service.SiteService
	streams     context.Context
	tick        time.Duration
}

// NewSiteHandler ties every together stream to ctx, so cancelling it at
// shutdown closes the open sockets.
func NewSiteHandler(ctx context.Context, siteService *service.SiteService) *SiteHandler {
	return &SiteHandler{
		siteService: siteService,
		streams:     ctx,
		tick:        time.Second,
	}
}

// Availability normalizes a wanted URL and tells whether it is free.
// GET /api/v1/sites/availability?custom_url=
func (h *SiteHandler) Availability(c *gin.Context) {
	var req dto.AvailabilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.siteService.Availability(req.CustomURL)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, resp)
}

// Get serves a published card.
// GET /api/v1/sites/:custom_url
func (h *SiteHandler) Get(c *gin.Context) {
	var uri dto.SiteURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.AccessDenied(c, "")
		return
	}

	viewerID, _ := middleware.GetUserID(c)
	resp, err := h.siteService.GetPublic(c.Request.Context(), uri.CustomURL, c.GetHeader(SitePasswordHeader), viewerID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, resp)
}

// Together streams the time since the couple's start date once per tick
// until the client goes away or the server shuts down.
// GET /api/v1/sites/:custom_url/together/ws?password=
func (h *SiteHandler) Together(c *gin.Context) {
	var uri dto.SiteURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.AccessDenied(c, "")
		return
	}

	viewerID, _ := middleware.GetUserID(c)
	site, err := h.siteService.Authorize(c.Request.Context(), uri.CustomURL, c.Query("password"), viewerID)
	if err != nil {
		writeError(c, err)
		return
	}
	start, err := together.ParseStartDate(site.Form.StartDate, nil)
	if err != nil {
		_ = c.Error(err)
		response.ServerError(c, "")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		_ = c.Error(err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(h.streams)
	defer cancel()

	// the read side only exists to notice the disconnect
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	_ = together.Run(ctx, start, h.tick, nil, func(e together.Elapsed) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(e)
	})
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}
