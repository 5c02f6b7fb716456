package handler

import (
	"errors"
	"io"
	"net/http"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"storybook/internal/assets"
	"storybook/internal/metrics"
	"storybook/internal/service"
	"storybook/internal/tools"
	"storybook/internal/web"
)

// Deps 路由依赖，Share/Assets/Tools 可为空
type Deps struct {
	Stories StoryAPI
	Share   *web.SharePage
	// Assets 仅在使用内存资源存储时提供 /assets/:name
	Assets *assets.MemoryStore
	// Tools 路径 -> 工具，挂载在 /tools 下
	Tools map[string]einotool.InvokableTool
	Log   logrus.FieldLogger
}

func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), metrics.Middleware())

	NewStoryHandler(d.Stories, d.Log).Register(router)

	if d.Share != nil {
		router.GET("/stories/:id", d.Share.Handle)
	}
	if d.Assets != nil {
		router.GET("/assets/:name", handleAsset(d.Assets))
	}
	for path, tool := range d.Tools {
		router.POST("/tools/"+path, handleTool(tool, d.Log))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	return router
}

func handleAsset(store *assets.MemoryStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, contentType, ok := store.Get(c.Param("name"))
		if !ok {
			c.Status(http.StatusNotFound)
			return
		}
		c.Header("Cache-Control", "public, max-age=31536000, immutable")
		c.Data(http.StatusOK, contentType, data)
	}
}

// handleTool 请求体即工具参数JSON，工具输出原样返回
func handleTool(tool einotool.InvokableTool, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}

		result, err := tool.InvokableRun(c.Request.Context(), string(body))
		if err != nil {
			var argErr *tools.ArgumentError
			switch {
			case errors.As(err, &argErr):
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			case errors.Is(err, service.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": notFoundMessage(err)})
			default:
				log.WithError(err).WithField("path", c.FullPath()).Error("tool invocation failed")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Tool invocation failed", "details": err.Error()})
			}
			return
		}
		c.Data(http.StatusOK, "application/json", []byte(result))
	}
}
