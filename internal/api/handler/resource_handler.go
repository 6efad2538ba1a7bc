package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fleetcore/fleet-api/internal/api/metrics"
	"github.com/fleetcore/fleet-api/internal/api/middleware"
	"github.com/fleetcore/fleet-api/internal/api/response"
	"github.com/fleetcore/fleet-api/internal/core/domain"
	"github.com/fleetcore/fleet-api/internal/core/ports"
)

// ResourceHandler serves the REST surface of one catalog resource.
type ResourceHandler struct {
	svc   ports.ResourceService
	def   domain.Definition
	label string
}

func NewResourceHandler(svc ports.ResourceService) *ResourceHandler {
	def := svc.Definition()
	return &ResourceHandler{svc: svc, def: def, label: label(def.Singular)}
}

// Register mounts the resource routes on g. Fixed sub-paths are registered
// before /:id so they are never captured as identifiers.
func (h *ResourceHandler) Register(g *echo.Group) {
	write := middleware.RBAC(h.def.Writers()...)

	g.GET("", h.List)
	g.GET("/search/query", h.Search)
	g.GET("/stats/overview", h.Stats)
	if h.def.CategoryField != "" {
		g.GET("/category/:category", h.ByCategory)
	}
	g.GET("/:id", h.Get)
	g.POST("", h.Create, write)
	g.PUT("/:id", h.Update, write)
	g.PATCH("/:id", h.Update, write)
	if len(h.def.Statuses) > 0 {
		g.PATCH("/:id/status", h.SetStatus, write)
	}
	if h.def.ToggleField != "" {
		g.PATCH("/:id/toggle", h.Toggle, write)
	}
	if h.def.Rateable {
		// Any authenticated caller may rate.
		g.POST("/:id/ratings", h.Rate)
	}
	g.DELETE("/:id", h.Delete, write)
}

// observe records the operation outcome and latency.
func (h *ResourceHandler) observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "INTERNAL_ERROR"
		if de, ok := domain.AsError(err); ok {
			outcome = de.Code
		}
	}
	metrics.ResourceOperationsTotal.WithLabelValues(h.def.Name, op, outcome).Inc()
	metrics.ResourceOperationDuration.WithLabelValues(h.def.Name, op).Observe(time.Since(start).Seconds())
}

// List returns a page of documents.
//
// @Summary      List documents
// @Tags         resources
// @Produce      json
// @Security     BearerAuth
// @Param        resource  path      string  true   "Resource name, e.g. services"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Page size (default 10, max 100)"
// @Param        search    query     string  false  "Case-insensitive text search"
// @Param        status    query     string  false  "Filter by status"
// @Success      200       {object}  response.Envelope
// @Failure      400       {object}  response.ErrorEnvelope
// @Failure      401       {object}  response.ErrorEnvelope
// @Router       /{resource} [get]
func (h *ResourceHandler) List(c echo.Context) (err error) {
	defer func(start time.Time) { h.observe("list", start, err) }(time.Now())

	res, err := h.svc.List(c.Request().Context(), listInput(c))
	if err != nil {
		return err
	}
	return response.Page(c, res.Items, res.Pagination)
}

// Search runs a free-text search over the resource's searchable fields.
//
// @Summary      Search documents
// @Tags         resources
// @Produce      json
// @Security     BearerAuth
// @Param        resource  path      string  true   "Resource name"
// @Param        q         query     string  true   "Search term"
// @Param        page      query     int     false  "Page number"
// @Param        limit     query     int     false  "Page size"
// @Success      200       {object}  response.Envelope
// @Failure      400       {object}  response.ErrorEnvelope
// @Router       /{resource}/search/query [get]
func (h *ResourceHandler) Search(c echo.Context) (err error) {
	defer func(start time.Time) { h.observe("search", start, err) }(time.Now())

	in := listInput(c)
	term := in.Params["q"]
	if term == "" {
		term = in.Params["search"]
	}
	res, err := h.svc.Search(c.Request().Context(), term, in)
	if err != nil {
		return err
	}
	return response.Page(c, res.Items, res.Pagination)
}

// ByCategory lists documents of one category.
//
// @Summary      List documents by category
// @Tags         resources
// @Produce      json
// @Security     BearerAuth
// @Param        resource  path      string  true  "Resource name"
// @Param        category  path      string  true  "Category"
// @Success      200       {object}  response.Envelope
// @Router       /{resource}/category/{category} [get]
func (h *ResourceHandler) ByCategory(c echo.Context) (err error) {
	defer func(start time.Time) { h.observe("list", start, err) }(time.Now())

	res, err := h.svc.ByCategory(c.Request().Context(), c.Param("category"), listInput(c))
	if err != nil {
		return err
	}
	return response.Page(c, res.Items, res.Pagination)
}

// Stats returns document counts.
//
// @Summary      Collection statistics
// @Tags         resources
// @Produce      json
// @Security     BearerAuth
// @Param        resource  path      string  true  "Resource name"
// @Success      200       {object}  response.Envelope{data=domain.Stats}
// @Router       /{resource}/stats/overview [get]
func (h *ResourceHandler) Stats(c echo.Context) (err error) {
	defer func(start time.Time) { h.observe("stats", start, err) }(time.Now())

	stats, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, stats, "")
}

// Get returns one document.
//
// @Summary      Get a document
// @Tags         resources
// @Produce      json
// @Security     BearerAuth
// @Param        resource  path      string  true  "Resource name"
// @Param        id        path      string  true  "Document id"
// @Success      200       {object}  response.Envelope
// @Failure      400       {object}  response.ErrorEnvelope
// @Failure      404       {object}  response.ErrorEnvelope
// @Router       /{resource}/{id} [get]
func (h *ResourceHandler) Get(c echo.Context) (err error) {
	defer func(start time.Time) { h.observe("get", start, err) }(time.Now())

	doc, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, doc, "")
}

// Create stores a new document.
//
// @Summary      Create a document
// @Tags         resources
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        resource  path      string          true  "Resource name"
// @Param        body      body      map[string]any  true  "Document fields"
// @Success      201       {object}  response.Envelope
// @Failure      400       {object}  response.ErrorEnvelope
// @Failure      403       {object}  response.ErrorEnvelope
// @Router       /{resource} [post]
func (h *ResourceHandler) Create(c echo.Context) (err error) {
	defer func(start time.Time) { h.observe("create", start, err) }(time.Now())

	payload, err := bindDocument(c)
	if err != nil {
		return err
	}
	doc, err := h.svc.Create(c.Request().Context(), actor(c), payload)
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusCreated, doc, h.label+" created successfully")
}

// Update merges fields into a document.
//
// @Summary      Update a document
// @Tags         resources
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        resource  path      string          true  "Resource name"
// @Param        id        path      string          true  "Document id"
// @Param        body      body      map[string]any  true  "Fields to update"
// @Success      200       {object}  response.Envelope
// @Failure      400       {object}  response.ErrorEnvelope
// @Failure      404       {object}  response.ErrorEnvelope
// @Router       /{resource}/{id} [put]
func (h *ResourceHandler) Update(c echo.Context) (err error) {
	defer func(start time.Time) { h.observe("update", start, err) }(time.Now())

	payload, err := bindDocument(c)
	if err != nil {
		return err
	}
	doc, err := h.svc.Update(c.Request().Context(), actor(c), c.Param("id"), payload)
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, doc, h.label+" updated successfully")
}

type statusRequest struct {
	Status string `json:"status"`
}

// SetStatus changes the status field.
//
// @Summary      Change status
// @Tags         resources
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        resource  path      string         true  "Resource name"
// @Param        id        path      string         true  "Document id"
// @Param        body      body      statusRequest  true  "New status"
// @Success      200       {object}  response.Envelope
// @Failure      400       {object}  response.ErrorEnvelope
// @Failure      404       {object}  response.ErrorEnvelope
// @Router       /{resource}/{id}/status [patch]
func (h *ResourceHandler) SetStatus(c echo.Context) (err error) {
	defer func(start time.Time) { h.observe("status", start, err) }(time.Now())

	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidJSON
	}
	if strings.TrimSpace(req.Status) == "" {
		return domain.MissingFields([]string{domain.FieldStatus})
	}

	doc, err := h.svc.SetStatus(c.Request().Context(), actor(c), c.Param("id"), req.Status)
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, doc, h.label+" status updated to "+req.Status)
}

// Toggle flips, or with {"value": bool} sets, the resource's toggle field.
//
// @Summary      Toggle a flag
// @Tags         resources
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        resource  path      string  true  "Resource name"
// @Param        id        path      string  true  "Document id"
// @Success      200       {object}  response.Envelope
// @Failure      400       {object}  response.ErrorEnvelope
// @Failure      404       {object}  response.ErrorEnvelope
// @Router       /{resource}/{id}/toggle [patch]
func (h *ResourceHandler) Toggle(c echo.Context) (err error) {
	defer func(start time.Time) { h.observe("toggle", start, err) }(time.Now())

	body, err := bindDocument(c)
	if err != nil && !errors.Is(err, errEmptyBody) {
		return err
	}
	var in ports.ToggleInput
	for _, key := range []string{"value", h.def.ToggleField} {
		if raw, ok := body[key]; ok {
			v, isBool := raw.(bool)
			if !isBool {
				return domain.Invalid("FIELDS", key+" must be a boolean", key)
			}
			in.Value = &v
			break
		}
	}

	doc, err := h.svc.Toggle(c.Request().Context(), actor(c), c.Param("id"), in)
	if err != nil {
		return err
	}
	state := "disabled"
	if on, _ := doc.Bool(h.def.ToggleField); on {
		state = "enabled"
	}
	return response.OK(c, http.StatusOK, doc, h.label+" "+h.def.ToggleField+" "+state)
}

type rateRequest struct {
	Rating *float64 `json:"rating"`
}

// Rate adds a 1-5 rating.
//
// @Summary      Rate a document
// @Tags         resources
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        resource  path      string       true  "Resource name"
// @Param        id        path      string       true  "Document id"
// @Param        body      body      rateRequest  true  "Rating between 1 and 5"
// @Success      200       {object}  response.Envelope
// @Failure      400       {object}  response.ErrorEnvelope
// @Router       /{resource}/{id}/ratings [post]
func (h *ResourceHandler) Rate(c echo.Context) (err error) {
	defer func(start time.Time) { h.observe("rate", start, err) }(time.Now())

	var req rateRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidJSON
	}
	if req.Rating == nil {
		return domain.MissingFields([]string{"rating"})
	}

	doc, err := h.svc.Rate(c.Request().Context(), actor(c), c.Param("id"), *req.Rating)
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, doc, "rating recorded")
}

// Delete removes a document.
//
// @Summary      Delete a document
// @Tags         resources
// @Produce      json
// @Security     BearerAuth
// @Param        resource  path      string  true  "Resource name"
// @Param        id        path      string  true  "Document id"
// @Success      200       {object}  response.Envelope
// @Failure      404       {object}  response.ErrorEnvelope
// @Router       /{resource}/{id} [delete]
func (h *ResourceHandler) Delete(c echo.Context) (err error) {
	defer func(start time.Time) { h.observe("delete", start, err) }(time.Now())

	if err := h.svc.Delete(c.Request().Context(), actor(c), c.Param("id")); err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, nil, h.label+" deleted successfully")
}

var errEmptyBody = &domain.Error{Kind: domain.ErrValidation, Code: "MISSING_BODY", Message: "request body is required"}

// bindDocument decodes the JSON object body only; path and query values
// never leak into the payload.
func bindDocument(c echo.Context) (domain.Document, error) {
	var doc domain.Document
	if err := c.Echo().JSONSerializer.Deserialize(c, &doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errEmptyBody
		}
		var he *echo.HTTPError
		if errors.As(err, &he) && errors.Is(he.Internal, io.EOF) {
			return nil, errEmptyBody
		}
		return nil, errInvalidJSON
	}
	if doc == nil {
		return nil, errEmptyBody
	}
	return doc, nil
}

// label turns SERVICE_RECORD into "Service record".
func label(singular string) string {
	s := strings.ToLower(strings.ReplaceAll(singular, "_", " "))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
