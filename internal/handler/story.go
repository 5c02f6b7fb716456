// Package handler 故事服务的 HTTP 接口
package handler

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"storybook/internal/model"
	"storybook/internal/service"
)

// StoryAPI 故事流水线提供的操作
type StoryAPI interface {
	Generate(ctx context.Context, req model.StoryRequest) (*model.Story, error)
	Revise(ctx context.Context, req model.RevisionRequest) (*model.RevisionResult, error)
	Get(ctx context.Context, id string) (*model.Story, error)
	ListRecent(ctx context.Context) ([]model.StorySummary, error)
}

type StoryHandler struct {
	svc StoryAPI
	log logrus.FieldLogger
}

func NewStoryHandler(svc StoryAPI, log logrus.FieldLogger) *StoryHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &StoryHandler{svc: svc, log: log}
}

// Register 挂载 /generate-story 与 /revise-image，其余方法返回405
func (h *StoryHandler) Register(r gin.IRoutes) {
	r.POST("/generate-story", h.GenerateStory)
	r.GET("/generate-story", h.GetStories)
	rejectOtherMethods(r, "/generate-story", http.MethodGet, http.MethodPost)

	r.POST("/revise-image", h.ReviseImage)
	rejectOtherMethods(r, "/revise-image", http.MethodPost)
}

var allMethods = []string{
	http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
	http.MethodDelete, http.MethodOptions, http.MethodConnect, http.MethodTrace,
}

// rejectOtherMethods 给 path 上 allow 之外的所有方法挂405
func rejectOtherMethods(r gin.IRoutes, path string, allow ...string) {
	handler := methodNotAllowed(allow...)
	for _, m := range allMethods {
		if !slices.Contains(allow, m) {
			r.Handle(m, path, handler)
		}
	}
}

// GenerateStory POST /generate-story
func (h *StoryHandler) GenerateStory(c *gin.Context) {
	var req model.StoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	story, err := h.svc.Generate(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "Failed to generate story")
		return
	}
	c.JSON(http.StatusOK, story)
}

// GetStories GET /generate-story，带 id 时返回单个故事，否则返回最近的故事列表
func (h *StoryHandler) GetStories(c *gin.Context) {
	if id := strings.TrimSpace(c.Query("id")); id != "" {
		story, err := h.svc.Get(c.Request.Context(), id)
		if err != nil {
			h.fail(c, err, "Failed to retrieve story")
			return
		}
		c.JSON(http.StatusOK, story)
		return
	}

	list, err := h.svc.ListRecent(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to retrieve stories")
		return
	}
	c.JSON(http.StatusOK, list)
}

// ReviseImage POST /revise-image
func (h *StoryHandler) ReviseImage(c *gin.Context) {
	var req model.RevisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	res, err := h.svc.Revise(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "Failed to revise image")
		return
	}
	c.JSON(http.StatusOK, res)
}

// fail NotFound 返回404，其余返回500并附带底层错误
func (h *StoryHandler) fail(c *gin.Context, err error, message string) {
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundMessage(err)})
		return
	}
	h.log.WithError(err).WithField("kind", service.KindOf(err).String()).Error(message)
	c.JSON(http.StatusInternalServerError, gin.H{"error": message, "details": err.Error()})
}

func notFoundMessage(err error) string {
	if errors.Is(err, service.ErrPageNotFound) {
		return "Page not found"
	}
	return "Story not found"
}

func methodNotAllowed(allow ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Allow", strings.Join(allow, ", "))
		c.String(http.StatusMethodNotAllowed, "Method %s Not Allowed", c.Request.Method)
	}
}
