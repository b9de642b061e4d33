package router

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"codstore.dev/storefront/pkg/apperr"
	"codstore.dev/storefront/pkg/global"
	"codstore.dev/storefront/pkg/models"
)

func (h *Handler) GetPublicSettings(c *gin.Context) {
	list, err := h.Settings.ListPublic(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(list))
}

// GetAllSettings returns every setting grouped by category.
func (h *Handler) GetAllSettings(c *gin.Context) {
	list, err := h.Settings.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	grouped := map[string][]models.Setting{}
	for _, s := range list {
		grouped[s.Category] = append(grouped[s.Category], s)
	}
	c.JSON(http.StatusOK, global.SuccessResponse(grouped))
}

func (h *Handler) GetSetting(c *gin.Context) {
	setting, err := h.Settings.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(setting))
}

func (h *Handler) UpdateSetting(c *gin.Context) {
	var req models.UpdateSettingRequest
	if !bindJSON(c, &req) {
		return
	}
	setting, err := h.Settings.Update(c.Request.Context(), c.Param("key"), req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(setting))
}

func (h *Handler) UploadMedia(c *gin.Context) {
	if h.Media == nil {
		respondError(c, apperr.Unavailable("media_disabled", "media storage is not configured"))
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MediaMaxBytes+1<<20)
	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, apperr.Validation("file", "multipart field \"file\" is required"))
		return
	}
	f, err := file.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	blob, err := h.Media.Upload(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusCreated
	if blob.Existed {
		status = http.StatusOK
	}
	c.JSON(status, global.SuccessResponse(blob))
}

func (h *Handler) GetMediaURL(c *gin.Context) {
	if h.Media == nil {
		respondError(c, apperr.Unavailable("media_disabled", "media storage is not configured"))
		return
	}
	signed, err := h.Media.URL(c.Request.Context(), c.Param("hash"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(signed))
}

func (h *Handler) GetOrderAnalytics(c *gin.Context) {
	if h.Stats == nil {
		respondError(c, apperr.Unavailable("analytics_disabled", "analytics are not configured"))
		return
	}
	top, err := strconv.Atoi(c.DefaultQuery("top", "5"))
	if err != nil || top < 1 || top > 50 {
		respondError(c, apperr.Validation("top", "top must be between 1 and 50"))
		return
	}
	stats, err := h.Stats.OrderStats(c.Request.Context(), top)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(stats))
}

func (h *Handler) GenerateAISalesReport(c *gin.Context) {
	if h.Reports == nil {
		respondError(c, apperr.Unavailable("reports_disabled", "reports are not configured"))
		return
	}
	report, err := h.Reports.SalesReport(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(report))
}
