package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/speakup/internal/account"
	"github.com/geocoder89/speakup/internal/actorctx"
	"github.com/geocoder89/speakup/internal/domain/user"
)

// bcrypt runs inside most of these calls
const requestTimeout = 5 * time.Second

// Accounts is the part of the account service the auth routes use.
type Accounts interface {
	Register(ctx context.Context, in account.RegisterInput) (account.Message, error)
	ConfirmEmail(ctx context.Context, email, token string) (account.Message, error)
	Login(ctx context.Context, email, password string) (account.TokenResponse, error)
	UpdateProfile(ctx context.Context, current user.User, in account.ProfileUpdate) (user.View, error)
	ChangePassword(ctx context.Context, current user.User, oldPassword, newPassword string) (account.Message, error)
	ForgotPassword(ctx context.Context, email string) (account.Message, error)
	ResetPassword(ctx context.Context, email, token, newPassword string) (account.Message, error)
}

type AuthHandler struct {
	accounts Accounts
	log      *slog.Logger
}

func NewAuthHandler(accounts Accounts, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{accounts: accounts, log: log}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()

	msg, err := h.accounts.Register(cctx, account.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Profile:  req.Profile(),
	})
	if err != nil {
		RespondAccountError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusCreated, msg)
}

// ConfirmEmail accepts the link from the email (GET with query) as well as a
// JSON body posted by the frontend.
func (h *AuthHandler) ConfirmEmail(ctx *gin.Context) {
	var req user.ConfirmEmailRequest

	if ctx.Request.Method == http.MethodGet {
		if !BindQuery(ctx, &req) {
			return
		}
	} else if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()

	msg, err := h.accounts.ConfirmEmail(cctx, req.Email, req.Token)
	if err != nil {
		RespondAccountError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, msg)
}

// Login takes an OAuth2 password form; a JSON body with the same fields works too.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginForm

	if isJSON(ctx) {
		if !BindJSON(ctx, &req) {
			return
		}
	} else if !BindForm(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()

	token, err := h.accounts.Login(cctx, req.Username, req.Password)
	if err != nil {
		if account.IsKind(err, account.KindInvalidCredentials) {
			ctx.Header("WWW-Authenticate", "Bearer")
		}
		RespondAccountError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, token)
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	current, ok := currentUser(ctx)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, current.View())
}

func (h *AuthHandler) UpdateProfile(ctx *gin.Context) {
	current, ok := currentUser(ctx)
	if !ok {
		return
	}

	var form user.UpdateProfileForm
	if !BindForm(ctx, &form) {
		return
	}

	in := account.ProfileUpdate{
		DisplayName: form.DisplayName,
		PhoneNumber: form.PhoneNumber,
		Gender:      form.Gender,
		Location:    form.Location,
	}

	avatar, err := readAvatar(ctx)
	if err != nil {
		RespondBadRequest(ctx, "Invalid avatar upload", gin.H{"reason": err.Error()})
		return
	}
	in.Avatar = avatar

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*requestTimeout)
	defer cancel()

	view, err := h.accounts.UpdateProfile(cctx, current, in)
	if err != nil {
		RespondAccountError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, view)
}

func (h *AuthHandler) ChangePassword(ctx *gin.Context) {
	current, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req user.ChangePasswordRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()

	msg, err := h.accounts.ChangePassword(cctx, current, req.OldPassword, req.NewPassword)
	if err != nil {
		RespondAccountError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, msg)
}

func (h *AuthHandler) ForgotPassword(ctx *gin.Context) {
	var req user.ForgotPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()

	msg, err := h.accounts.ForgotPassword(cctx, req.Email)
	if err != nil {
		RespondAccountError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, msg)
}

func (h *AuthHandler) ResetPassword(ctx *gin.Context) {
	var req user.ResetPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()

	msg, err := h.accounts.ResetPassword(cctx, req.Email, req.Token, req.NewPassword)
	if err != nil {
		RespondAccountError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, msg)
}

// currentUser returns the caller stored by the auth middleware, answering 401
// when the route was mounted without it.
func currentUser(ctx *gin.Context) (user.User, bool) {
	u, ok := actorctx.UserFrom(ctx.Request.Context())
	if !ok {
		RespondUnauthorized(ctx, "Not authenticated")
		return user.User{}, false
	}
	return u, true
}

func isJSON(ctx *gin.Context) bool {
	return strings.HasPrefix(strings.ToLower(ctx.ContentType()), "application/json")
}

// readAvatar loads the optional "avatar" file part. At most one byte more
// than the size limit is read so the service can reject oversized files.
func readAvatar(ctx *gin.Context) (*account.Upload, error) {
	header, err := ctx.FormFile("avatar")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}

	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, account.MaxAvatarBytes+1))
	if err != nil {
		return nil, err
	}

	return &account.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
