package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"codstore.dev/storefront/pkg/global"
	"codstore.dev/storefront/pkg/models"
)

func (h *Handler) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.AuthCookieName, token, maxAge, "/", "", h.cfg.AuthCookieSecure, true)
}

func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.Auth.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := global.SuccessResponse(user)
	resp.Message = "Account created. Check your email to verify your address."
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.Auth.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.setSessionCookie(c, result.Token, int(h.Auth.JWT().TTL().Seconds()))
	c.JSON(http.StatusOK, global.SuccessResponse(result))
}

func (h *Handler) Logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, global.SuccessResponse(nil))
}

func (h *Handler) VerifyEmail(c *gin.Context) {
	var req models.TokenRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.Auth.Verify(c.Request.Context(), req.Token)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(user))
}

func (h *Handler) ResendVerification(c *gin.Context) {
	var req models.EmailRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Auth.Resend(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	resp := global.SuccessResponse(nil)
	resp.Message = "If the account exists and is unverified, a new link has been sent."
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ForgotPassword(c *gin.Context) {
	var req models.EmailRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Auth.Forgot(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	resp := global.SuccessResponse(nil)
	resp.Message = "If the account exists, a reset link has been sent."
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Auth.Reset(c.Request.Context(), &req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(nil))
}

func (h *Handler) BootstrapAdmin(c *gin.Context) {
	admin, err := h.Auth.Bootstrap(c.Request.Context(), c.GetHeader("X-Admin-Bootstrap-Token"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, global.SuccessResponse(admin))
}

func (h *Handler) GetProfile(c *gin.Context) {
	user, err := h.Auth.Profile(c.Request.Context(), identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(user))
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.Auth.UpdateProfile(c.Request.Context(), identity(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(user))
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Auth.ChangePassword(c.Request.Context(), identity(c), &req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(nil))
}

func (h *Handler) UpdateAdminAccount(c *gin.Context) {
	var req models.UpdateAdminAccountRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.Auth.UpdateAdminAccount(c.Request.Context(), identity(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(user))
}
