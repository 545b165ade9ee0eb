// Package router binds the read API onto the echo instance.
package router

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/DjordjeVuckovic/news-pulse/internal/apperr"
	"github.com/DjordjeVuckovic/news-pulse/internal/domain"
	"github.com/DjordjeVuckovic/news-pulse/internal/feed"
)

type FeedRouter struct {
	e       *echo.Echo
	feeds   *feed.Service
	stories *feed.StoryService
}

func NewFeedRouter(e *echo.Echo, feeds *feed.Service, stories *feed.StoryService) *FeedRouter {
	return &FeedRouter{
		e:       e,
		feeds:   feeds,
		stories: stories,
	}
}

func (r *FeedRouter) Bind() {
	r.e.GET("/api/feed", r.feedHandler)
	r.e.GET("/api/story/:id", r.storyHandler)
	r.e.GET("/api/story/:id/explain", r.explainHandler)
}

// feedHandler serves one feed slice.
//
//	GET /api/feed?country=US&category=technology&mode=trending
func (r *FeedRouter) feedHandler(c echo.Context) error {
	q := domain.FeedQuery{
		Country:  c.QueryParam("country"),
		Category: c.QueryParam("category"),
		Mode:     domain.FeedMode(c.QueryParam("mode")),
	}
	if q.Category == "" {
		q.Category = "general"
	}
	if q.Mode == "" {
		q.Mode = domain.ModeTrending
	}
	if err := q.Validate(); err != nil {
		return apperr.NewValidationWrap("invalid feed query", err)
	}
	if q.Category != "general" && !domain.ValidCategory(q.Category) {
		return apperr.NewValidation("unknown category: " + q.Category)
	}

	limit, err := feedLimit(c)
	if err != nil {
		return err
	}

	resp, err := r.feeds.Get(c.Request().Context(), q)
	if err != nil {
		return err
	}
	resp.Truncate(limit)
	return c.JSON(http.StatusOK, resp)
}

func (r *FeedRouter) storyHandler(c echo.Context) error {
	id, err := storyID(c)
	if err != nil {
		return err
	}

	resp, err := r.stories.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (r *FeedRouter) explainHandler(c echo.Context) error {
	id, err := storyID(c)
	if err != nil {
		return err
	}

	resp, err := r.stories.Explain(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// feedLimit parses ?limit=; 0 means the full cached page.
func feedLimit(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > 100 {
		return 0, apperr.NewValidation("limit must be an integer between 1 and 100")
	}
	return limit, nil
}

func storyID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, apperr.NewValidation("story id must be a positive integer")
	}
	return id, nil
}
