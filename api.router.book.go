package main

import (
	"github.com/julienschmidt/httprouter"
)

// SetupBookRoutes injects the catalog, reviews and ml endpoints.
func (api *APIHandler) SetupBookRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.RedirectTrailingSlash = true
	router.GET("/", m.public(api.Index))
	router.GET("/status", m.public(api.Status))

	router.POST("/books", m.public(api.CreateBook))
	router.GET("/books", m.public(api.GetAllBooks))
	router.GET("/books/:id", m.public(api.GetOneBook))
	router.PUT("/books/:id", m.public(api.UpdateBook))
	router.DELETE("/books/:id", m.public(api.DeleteOneBook))

	router.POST("/books/:id/reviews", m.public(api.CreateReview))
	router.GET("/books/:id/reviews", m.public(api.GetBookReviews))

	router.POST("/summarize", m.public(api.RateLimitMiddleware(api.Summarize)))
	router.GET("/recommendations", m.public(api.RateLimitMiddleware(api.GetRecommendation)))
	return router
}
