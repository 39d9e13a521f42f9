package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Kaboochy/GitSummit/services"
	"github.com/Kaboochy/GitSummit/utils"
)

// GroupController manages group creation, invite-code joins, and member
// listings. Caller identity arrives from the surrounding web layer as an
// explicit user id; session handling lives outside this service.
type GroupController struct {
	groups *services.GroupService
}

// NewGroupController creates a new controller instance.
func NewGroupController(groups *services.GroupService) *GroupController {
	return &GroupController{groups: groups}
}

type createGroupRequest struct {
	Name   string `json:"name" binding:"required"`
	UserID uint   `json:"user_id" binding:"required"`
}

// Create creates a group with a fresh invite code.
func (g *GroupController) Create(ctx *gin.Context) {
	var req createGroupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "name and user_id are required")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		utils.Error(ctx, http.StatusBadRequest, 40031, "group name must not be blank")
		return
	}

	group, err := g.groups.CreateGroup(ctx.Request.Context(), strings.TrimSpace(req.Name), req.UserID)
	if err != nil {
		utils.Sugar.Errorf("create group failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to create group")
		return
	}
	utils.Success(ctx, group)
}

type joinGroupRequest struct {
	InviteCode string `json:"invite_code" binding:"required"`
	UserID     uint   `json:"user_id" binding:"required"`
}

// Join adds the user to the group matching the invite code.
func (g *GroupController) Join(ctx *gin.Context) {
	var req joinGroupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40032, "invite_code and user_id are required")
		return
	}

	group, err := g.groups.JoinGroup(ctx.Request.Context(), req.InviteCode, req.UserID)
	if err != nil {
		if errors.Is(err, services.ErrGroupNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40430, "invalid invite code")
			return
		}
		utils.Sugar.Errorf("join group failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to join group")
		return
	}
	utils.Success(ctx, group)
}

// Members lists a group's memberships.
func (g *GroupController) Members(ctx *gin.Context) {
	members, err := g.groups.Members(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to load members")
		return
	}
	utils.Success(ctx, gin.H{"members": members})
}
