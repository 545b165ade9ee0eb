package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/DjordjeVuckovic/news-pulse/internal/domain"
	"github.com/DjordjeVuckovic/news-pulse/internal/dto"
)

type MetaRouter struct {
	e *echo.Echo
}

func NewMetaRouter(e *echo.Echo) *MetaRouter {
	return &MetaRouter{e: e}
}

func (r *MetaRouter) Bind() {
	r.e.GET("/api/meta/countries", r.countriesHandler)
	r.e.GET("/api/meta/categories", r.categoriesHandler)
}

func (r *MetaRouter) countriesHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.MetaResponse{Countries: domain.Countries})
}

func (r *MetaRouter) categoriesHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.MetaResponse{Categories: domain.Categories})
}
