package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/handmade_shop/internal/logging"
	"github.com/Skotchmaster/handmade_shop/internal/service"
	"github.com/Skotchmaster/handmade_shop/internal/tokens"
	"github.com/Skotchmaster/handmade_shop/internal/transport"
)

type AuthHTTP struct {
	Svc          *service.AccountService
	CookieSecure bool
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "register_error", "invalid body", err)
	}
	res, err := h.Svc.Register(ctx, service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Address:  req.Address,
		City:     req.City,
		ZipCode:  req.ZipCode,
	})
	if err != nil {
		return fail(l, "register_error", err)
	}

	l.Info("register_success", "user_id", res.User.ID)
	return c.JSON(http.StatusCreated, transport.RegisterResponse{User: res.User, EmailSent: res.EmailSent})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "login_error", "invalid body", err)
	}
	sess, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(l, "login_error", err)
	}

	l.Info("login_success", "user_id", sess.User.ID)
	return h.writeSession(c, http.StatusOK, sess)
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	ck, err := c.Cookie(tokens.RefreshCookie)
	if err != nil || ck.Value == "" {
		return unauthorized(l, "refresh_error", err)
	}
	sess, err := h.Svc.Refresh(ctx, ck.Value)
	if err != nil {
		h.clearCookies(c)
		return fail(l, "refresh_error", err)
	}

	l.Info("refresh_success", "user_id", sess.User.ID)
	return h.writeSession(c, http.StatusOK, sess)
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	if ck, err := c.Cookie(tokens.RefreshCookie); err == nil {
		if err := h.Svc.Logout(ctx, ck.Value); err != nil {
			l.Warn("logout_revoke_error", "error", err)
		}
	}
	h.clearCookies(c)

	l.Info("logout_success")
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "logged out"})
}

// VerifyEmail accepts the token from the query string (email link) or a JSON body.
func (h *AuthHTTP) VerifyEmail(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.verify_email")

	token := c.QueryParam("token")
	if token == "" && c.Request().Method == http.MethodPost {
		var req transport.TokenRequest
		if err := c.Bind(&req); err != nil {
			return badRequest(l, "verify_email_error", "invalid body", err)
		}
		token = req.Token
	}
	res, err := h.Svc.VerifyEmail(ctx, token)
	if err != nil {
		return fail(l, "verify_email_error", err)
	}

	msg := "email verified"
	if res.AlreadyVerified {
		msg = "email already verified"
	}
	l.Info("verify_email_success", "already_verified", res.AlreadyVerified)
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: msg})
}

func (h *AuthHTTP) ResendVerification(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.resend_verification")

	var req transport.EmailRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "resend_verification_error", "invalid body", err)
	}
	if err := h.Svc.ResendVerification(ctx, req.Email); err != nil {
		return fail(l, "resend_verification_error", err)
	}

	l.Info("resend_verification_success")
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "verification email sent"})
}

func (h *AuthHTTP) ForgotPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.forgot_password")

	var req transport.EmailRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "forgot_password_error", "invalid body", err)
	}
	if err := h.Svc.ForgotPassword(ctx, req.Email); err != nil {
		return fail(l, "forgot_password_error", err)
	}

	return c.JSON(http.StatusOK, transport.MessageResponse{
		Message: "if the email is registered, a reset link has been sent",
	})
}

func (h *AuthHTTP) ResetPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.reset_password")

	var req transport.ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "reset_password_error", "invalid body", err)
	}
	if err := h.Svc.ResetPassword(ctx, req.Token, req.Password); err != nil {
		return fail(l, "reset_password_error", err)
	}

	l.Info("reset_password_success")
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "password updated"})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.me")

	userID, err := currentUser(c)
	if err != nil {
		return unauthorized(l, "me_error", err)
	}
	u, err := h.Svc.Profile(ctx, userID)
	if err != nil {
		return fail(l, "me_error", err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *AuthHTTP) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.update_profile")

	userID, err := currentUser(c)
	if err != nil {
		return unauthorized(l, "update_profile_error", err)
	}
	var req transport.ProfileRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_profile_error", "invalid body", err)
	}
	u, err := h.Svc.UpdateProfile(ctx, userID, service.ProfileInput{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
		City:    req.City,
		ZipCode: req.ZipCode,
	})
	if err != nil {
		return fail(l, "update_profile_error", err)
	}

	l.Info("update_profile_success")
	return c.JSON(http.StatusOK, u)
}

func (h *AuthHTTP) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.change_password")

	userID, err := currentUser(c)
	if err != nil {
		return unauthorized(l, "change_password_error", err)
	}
	var req transport.ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "change_password_error", "invalid body", err)
	}
	if err := h.Svc.ChangePassword(ctx, userID, req.CurrentPassword, req.NewPassword); err != nil {
		return fail(l, "change_password_error", err)
	}

	l.Info("change_password_success")
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "password changed"})
}

func (h *AuthHTTP) writeSession(c echo.Context, status int, sess *service.Session) error {
	for _, ck := range tokens.PairCookies(sess.Tokens, h.CookieSecure) {
		c.SetCookie(ck)
	}
	return c.JSON(status, transport.SessionResponse{
		User:            sess.User,
		AccessToken:     sess.Tokens.AccessToken,
		AccessExpiresAt: sess.Tokens.AccessExp,
	})
}

func (h *AuthHTTP) clearCookies(c echo.Context) {
	for _, ck := range tokens.ClearCookies(h.CookieSecure) {
		c.SetCookie(ck)
	}
}
