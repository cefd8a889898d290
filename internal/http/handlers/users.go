package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/speakup/internal/account"
	"github.com/geocoder89/speakup/internal/domain/user"
)

// AdminAccounts is the administrative surface of the account service.
type AdminAccounts interface {
	AdminCreateUser(ctx context.Context, actor user.User, in account.AdminCreateInput) (user.View, error)
	AdminListUsers(ctx context.Context, actor user.User) ([]user.View, error)
	AdminUpdateUser(ctx context.Context, actor user.User, id string, in account.AdminUpdateInput) (user.View, error)
	AdminDeleteUser(ctx context.Context, actor user.User, id string) (account.Message, error)
}

type UsersHandler struct {
	accounts AdminAccounts
	log      *slog.Logger
}

func NewUsersHandler(accounts AdminAccounts, log *slog.Logger) *UsersHandler {
	if log == nil {
		log = slog.Default()
	}
	return &UsersHandler{accounts: accounts, log: log}
}

func (h *UsersHandler) CreateUser(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req user.AdminCreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()

	view, err := h.accounts.AdminCreateUser(cctx, actor, account.AdminCreateInput{
		Email:    req.Email,
		Password: req.Password,
		Profile:  req.Profile(),
		IsAdmin:  req.IsAdmin,
	})
	if err != nil {
		RespondAccountError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusCreated, view)
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()

	users, err := h.accounts.AdminListUsers(cctx, actor)
	if err != nil {
		RespondAccountError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"items": users, "count": len(users)})
}

func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req user.AdminUpdateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()

	view, err := h.accounts.AdminUpdateUser(cctx, actor, ctx.Param("id"), account.AdminUpdateInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		PhoneNumber: req.PhoneNumber,
		Gender:      req.Gender,
		Location:    req.Location,
		IsAdmin:     req.IsAdmin,
	})
	if err != nil {
		RespondAccountError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, view)
}

func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()

	msg, err := h.accounts.AdminDeleteUser(cctx, actor, ctx.Param("id"))
	if err != nil {
		RespondAccountError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, msg)
}
