// Package web 渲染故事分享页
package web

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"

	"storybook/internal/model"
	"storybook/internal/service"
)

// StoryGetter 按ID读取故事
type StoryGetter interface {
	Get(ctx context.Context, id string) (*model.Story, error)
}

type pageView struct {
	Number      int
	ImageURL    string
	Text        template.HTML
	Interaction string
}

type storyView struct {
	Title   string
	Summary string
	Values  []string
	Pages   []pageView
}

// SharePage 服务端渲染的只读故事页，渲染结果按故事ID缓存
type SharePage struct {
	stories StoryGetter
	cache   *cache.Cache
	md      goldmark.Markdown
	log     logrus.FieldLogger
}

func NewSharePage(stories StoryGetter, ttl time.Duration, log logrus.FieldLogger) *SharePage {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SharePage{
		stories: stories,
		cache:   cache.New(ttl, 2*ttl),
		md:      goldmark.New(),
		log:     log,
	}
}

// Render 返回故事的HTML，故事不存在时返回的错误满足 errors.Is(err, service.ErrNotFound)
func (p *SharePage) Render(ctx context.Context, id string) ([]byte, error) {
	if v, ok := p.cache.Get(id); ok {
		return v.([]byte), nil
	}
	story, err := p.stories.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	view := storyView{Title: story.Title, Summary: story.Summary, Values: story.ValuesExplored}
	for _, pg := range story.Pages {
		var buf bytes.Buffer
		if err := p.md.Convert([]byte(pg.StoryText), &buf); err != nil {
			return nil, err
		}
		pv := pageView{Number: pg.PageNumber, ImageURL: pg.ImageURL, Text: template.HTML(buf.String())}
		if pg.ParentInteraction != nil {
			pv.Interaction = *pg.ParentInteraction
		}
		view.Pages = append(view.Pages, pv)
	}

	var out bytes.Buffer
	if err := storyTemplate.Execute(&out, view); err != nil {
		return nil, err
	}
	p.cache.Set(id, out.Bytes(), cache.DefaultExpiration)
	return out.Bytes(), nil
}

// Invalidate 丢弃某个故事的缓存，插画修改后调用
func (p *SharePage) Invalidate(id string) {
	p.cache.Delete(id)
}

// Handle GET /stories/:id
func (p *SharePage) Handle(c *gin.Context) {
	id := c.Param("id")
	html, err := p.Render(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.Data(http.StatusNotFound, "text/html; charset=utf-8", notFoundHTML)
			return
		}
		p.log.WithError(err).WithField("story_id", id).Error("render share page failed")
		c.Data(http.StatusInternalServerError, "text/html; charset=utf-8", errorHTML)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

var notFoundHTML = []byte(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>Story not found</title></head><body><h1>Story not found</h1></body></html>`)

var errorHTML = []byte(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>Error</title></head><body><h1>Failed to retrieve story</h1></body></html>`)

var storyTemplate = template.Must(template.New("story").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { font-family: Georgia, serif; max-width: 720px; margin: 0 auto; padding: 24px; background: #fdf8f0; color: #333; }
.page { margin: 32px 0; }
.page img { width: 100%; border-radius: 12px; }
.interaction { font-style: italic; color: #7a5c3e; }
.values span { display: inline-block; margin-right: 8px; padding: 2px 8px; border-radius: 8px; background: #e8eefc; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Summary}}</p>
{{- if .Values}}
<div class="values">{{range .Values}}<span>{{.}}</span>{{end}}</div>
{{- end}}
{{- range .Pages}}
<section class="page" id="page-{{.Number}}">
{{- if .ImageURL}}
<img src="{{.ImageURL}}" alt="Illustration for page {{.Number}}">
{{- end}}
<div class="text">{{.Text}}</div>
{{- if .Interaction}}
<p class="interaction">{{.Interaction}}</p>
{{- end}}
</section>
{{- end}}
</body>
</html>
`))
