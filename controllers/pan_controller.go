package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/pans/engagement"
	"github.com/cppla/pans/middleware"
	"github.com/cppla/pans/models"
	"github.com/cppla/pans/services"
	"github.com/cppla/pans/store"
	"github.com/cppla/pans/utils"
)

// PanService is the part of the post service the HTTP layer drives.
type PanService interface {
	CreatePan(ctx context.Context, actorID, text string) (*models.Pan, error)
	ListPans(ctx context.Context) ([]models.Pan, error)
	GetPan(ctx context.Context, panID string) (*models.Pan, error)
	DeletePan(ctx context.Context, actorID, panID string) error
	Like(ctx context.Context, actorID, panID string) ([]models.Like, error)
	Unlike(ctx context.Context, actorID, panID string) ([]models.Like, error)
	AddComment(ctx context.Context, actorID, panID, text string) ([]models.Comment, error)
	DeleteComment(ctx context.Context, actorID, panID, commentID string) ([]models.Comment, error)
}

// PanController serves pans, likes and comments.
type PanController struct {
	svc PanService
	log *zap.Logger
}

// NewPanController creates a new PanController instance.
func NewPanController(svc PanService, log *zap.Logger) *PanController {
	if log == nil {
		log = zap.NewNop()
	}
	return &PanController{svc: svc, log: log}
}

type textRequest struct {
	Text string `json:"text"`
}

var textRequired = utils.FieldError{Msg: "Text is required", Param: "text", Location: "body"}

// CreatePan stores a new pan for the authenticated user.
func (p *PanController) CreatePan(ctx *gin.Context) {
	var req textRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.ValidationError(ctx, textRequired)
		return
	}

	pan, err := p.svc.CreatePan(ctx.Request.Context(), getUserID(ctx), req.Text)
	if err != nil {
		p.fail(ctx, "create pan", err)
		return
	}
	utils.Success(ctx, pan)
}

// ListPans returns every pan, newest first.
func (p *PanController) ListPans(ctx *gin.Context) {
	pans, err := p.svc.ListPans(ctx.Request.Context())
	if err != nil {
		p.fail(ctx, "list pans", err)
		return
	}
	if pans == nil {
		pans = []models.Pan{}
	}
	utils.Success(ctx, pans)
}

// GetPan returns a single pan.
func (p *PanController) GetPan(ctx *gin.Context) {
	pan, err := p.svc.GetPan(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		p.fail(ctx, "get pan", err)
		return
	}
	utils.Success(ctx, pan)
}

// DeletePan removes a pan owned by the authenticated user.
func (p *PanController) DeletePan(ctx *gin.Context) {
	if err := p.svc.DeletePan(ctx.Request.Context(), getUserID(ctx), ctx.Param("id")); err != nil {
		p.fail(ctx, "delete pan", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"msg": "Pan removed"})
}

// Like adds the user's like and returns the pan's likes.
func (p *PanController) Like(ctx *gin.Context) {
	likes, err := p.svc.Like(ctx.Request.Context(), getUserID(ctx), ctx.Param("id"))
	if err != nil {
		p.fail(ctx, "like pan", err)
		return
	}
	utils.Success(ctx, likes)
}

// Unlike withdraws the user's like and returns the pan's likes.
func (p *PanController) Unlike(ctx *gin.Context) {
	likes, err := p.svc.Unlike(ctx.Request.Context(), getUserID(ctx), ctx.Param("id"))
	if err != nil {
		p.fail(ctx, "unlike pan", err)
		return
	}
	utils.Success(ctx, likes)
}

// AddComment prepends a comment and returns the pan's comments.
func (p *PanController) AddComment(ctx *gin.Context) {
	var req textRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.ValidationError(ctx, textRequired)
		return
	}

	comments, err := p.svc.AddComment(ctx.Request.Context(), getUserID(ctx), ctx.Param("id"), req.Text)
	if err != nil {
		p.fail(ctx, "add comment", err)
		return
	}
	utils.Success(ctx, comments)
}

// DeleteComment removes one of the user's comments and returns what is left.
func (p *PanController) DeleteComment(ctx *gin.Context) {
	commentID := ctx.Param("commentId")
	if commentID == "" {
		commentID = ctx.Param("comment_id")
	}

	comments, err := p.svc.DeleteComment(ctx.Request.Context(), getUserID(ctx), ctx.Param("id"), commentID)
	if err != nil {
		p.fail(ctx, "delete comment", err)
		return
	}
	utils.Success(ctx, comments)
}

// fail maps a service error onto the response body clients expect.
func (p *PanController) fail(ctx *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, engagement.ErrEmptyText):
		utils.ValidationError(ctx, textRequired)
	case errors.Is(err, store.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, "Pan not found")
	case errors.Is(err, engagement.ErrCommentNotFound):
		utils.Error(ctx, http.StatusNotFound, "Comment does not exist")
	case errors.Is(err, services.ErrUnauthorized), errors.Is(err, engagement.ErrNotCommentOwner):
		utils.Error(ctx, http.StatusUnauthorized, "User not authorized")
	case errors.Is(err, engagement.ErrAlreadyLiked):
		utils.Error(ctx, http.StatusBadRequest, "Pan already like")
	case errors.Is(err, engagement.ErrNotLiked):
		utils.Error(ctx, http.StatusBadRequest, "Pan has not yet been liked")
	case errors.Is(err, services.ErrContention):
		utils.Error(ctx, http.StatusServiceUnavailable, "Pan is busy, try again")
	default:
		p.log.Error(op+" failed", zap.String("path", ctx.Request.URL.Path), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, "Server Error")
	}
}

// getUserID returns the authenticated user id set by AuthRequired.
func getUserID(ctx *gin.Context) string {
	return ctx.GetString(middleware.ContextUserIDKey)
}
