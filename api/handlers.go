package api

import (
	"net/http"
	"strings"
	"terminal-messenger/domain"
	"terminal-messenger/errors"
	"terminal-messenger/services"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

type createMessageRequest struct {
	Message string `json:"message" form:"message"`
	Theme   string `json:"theme" form:"theme"`
}

type createMessageResponse struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Theme string `json:"theme"`
}

type themeResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Process any    `json:"process,omitempty"`
}

func (s *Server) createMessage(c echo.Context) error {
	var req createMessageRequest
	if err := c.Bind(&req); err != nil {
		return s.jsonError(c, errors.ErrInvalidBody)
	}
	message, err := s.service.Create(c.Request().Context(), services.CreateMessageCommand{
		Content: req.Message,
		Theme:   req.Theme,
	})
	if err != nil {
		return s.jsonError(c, err)
	}
	return c.JSON(http.StatusOK, createMessageResponse{
		ID:    message.ID,
		URL:   s.shareURL(c, message.ID),
		Theme: message.Theme,
	})
}

// viewMessage answers command-line clients with the rendered theme as plain
// text and browsers with an HTML page. "?raw=1" returns the bare content and
// "?color=0" turns ANSI colours off.
func (s *Server) viewMessage(c echo.Context) error {
	id := c.Param("id")
	if strings.Contains(id, "/") {
		return echo.StaticFileHandler("index.html", s.public)(c)
	}
	cli := s.isCLIClient(c.Request().UserAgent())
	colored := c.QueryParam("color") != "0"

	message, err := s.service.Get(c.Request().Context(), id)
	if err != nil {
		return s.viewError(c, err, cli, colored)
	}

	client := lo.Ternary(cli, "cli", "browser")
	if c.QueryParam("raw") == "1" {
		s.metrics.MessagesViewed.WithLabelValues("raw").Inc()
		return c.String(http.StatusOK, s.renderer.Plain(message))
	}
	s.metrics.MessagesViewed.WithLabelValues(client).Inc()
	if cli {
		return c.String(http.StatusOK, joinLines(s.renderer.Render(message, colored)))
	}
	return s.html(c, http.StatusOK, "message.html", s.messagePage(message))
}

func (s *Server) viewError(c echo.Context, err error, cli, colored bool) error {
	status := errors.MapToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("Message lookup failed", "id", c.Param("id"), "error", err)
	}
	if cli {
		if status == http.StatusNotFound {
			return c.String(status, joinLines(s.renderer.NotFound(colored)))
		}
		return c.String(status, errors.Reason(err)+"\n")
	}
	return s.html(c, status, "error.html", errorPage{Status: status, Reason: errors.Reason(err)})
}

func (s *Server) listThemes(c echo.Context) error {
	templates := s.service.Themes()
	themes := make([]themeResponse, 0, len(templates))
	for _, t := range templates {
		themes = append(themes, themeResponse{ID: t.ID, Name: t.DisplayName})
	}
	return c.JSON(http.StatusOK, themes)
}

func (s *Server) health(c echo.Context) error {
	resp := healthResponse{Status: "ok", Uptime: time.Since(s.startedAt).Round(time.Second).String()}
	if s.options.Process != nil {
		if stats, ok := s.options.Process.Snapshot(); ok {
			resp.Process = stats
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) jsonError(c echo.Context, err error) error {
	status := errors.MapToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("Message creation failed", "error", err)
	}
	return c.JSON(status, map[string]string{"error": errors.Reason(err)})
}

func (s *Server) shareURL(c echo.Context, id string) string {
	base := strings.TrimRight(s.options.PublicURL, "/")
	if base == "" {
		base = c.Scheme() + "://" + c.Request().Host
	}
	return base + "/" + id
}

func (s *Server) html(c echo.Context, status int, name string, data any) error {
	var b strings.Builder
	if err := s.templates.ExecuteTemplate(&b, name, data); err != nil {
		s.log.Error("Template rendering failed", "template", name, "error", err)
		return c.String(http.StatusInternalServerError, "Internal server error")
	}
	return c.HTML(status, b.String())
}

type messagePage struct {
	ID        string
	Theme     string
	ThemeID   string
	CreatedAt string
	Lang      string
	Rendered  string
}

type errorPage struct {
	Status int
	Reason string
}

func (s *Server) messagePage(message domain.Message) messagePage {
	tpl := s.renderer.Catalog().Resolve(message.Theme)
	return messagePage{
		ID:        message.ID,
		Theme:     tpl.DisplayName,
		ThemeID:   tpl.ID,
		CreatedAt: s.renderer.Timestamp(message.CreatedAt),
		Lang:      message.Lang,
		Rendered:  strings.Join(s.renderer.Render(message, false), "\n"),
	}
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n") + "\n"
}
