// Copyright (c) 2026 Hemeroteca. All rights reserved.

package catalog

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"hemeroteca/internal/platform/apperr"
	requestutil "hemeroteca/internal/platform/request"
	"hemeroteca/internal/platform/respond"
	"hemeroteca/internal/platform/validate"
)

// Handler implements the catalog HTTP endpoints.
type Handler struct {
	catalogService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{catalogService: service}
}

// List handles GET /revistas requests.
func (handler *Handler) List(writer http.ResponseWriter, request *http.Request) {
	revistas, err := handler.catalogService.List(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, revistas)
}

// Recent handles GET /revistas/recientes requests.
func (handler *Handler) Recent(writer http.ResponseWriter, request *http.Request) {
	revistas, err := handler.catalogService.Recent(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, revistas)
}

// facet builds a handler serving the distinct values of one facet column.
func (handler *Handler) facet(column string) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		values, err := handler.catalogService.Facet(request.Context(), column)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}
		respond.OK(writer, values)
	}
}

// Facet endpoints, one per distinct-value column of the catalog.

func (handler *Handler) Areas(w http.ResponseWriter, r *http.Request) {
	handler.facet("area_conocimiento")(w, r)
}

func (handler *Handler) Indices(w http.ResponseWriter, r *http.Request) {
	handler.facet("indice")(w, r)
}

func (handler *Handler) Idiomas(w http.ResponseWriter, r *http.Request) {
	handler.facet("idioma")(w, r)
}

func (handler *Handler) Editoriales(w http.ResponseWriter, r *http.Request) {
	handler.facet("editorial")(w, r)
}

func (handler *Handler) Periodicidades(w http.ResponseWriter, r *http.Request) {
	handler.facet("periodicidad")(w, r)
}

func (handler *Handler) Formatos(w http.ResponseWriter, r *http.Request) {
	handler.facet("formato")(w, r)
}

// Insert handles POST /revistas requests. The body is a free-form JSON
// object; field names are matched against the column allow-list.
func (handler *Handler) Insert(writer http.ResponseWriter, request *http.Request) {
	var fields map[string]any
	if err := requestutil.DecodeJSON(request, &fields); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	revista, err := handler.catalogService.Insert(request.Context(), fields)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, revista)
}

// Update handles PATCH /revistas/{revistaId} requests.
func (handler *Handler) Update(writer http.ResponseWriter, request *http.Request) {
	id, err := revistaID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var fields map[string]any
	if err := requestutil.DecodeJSON(request, &fields); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	revista, err := handler.catalogService.Update(request.Context(), id, fields)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, revista)
}

// UploadCover handles POST /revistas/{revistaId}/portada multipart requests.
func (handler *Handler) UploadCover(writer http.ResponseWriter, request *http.Request) {
	id, err := revistaID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := request.ParseMultipartForm(MaxCoverBytes); err != nil {
		respond.Error(writer, request, apperr.BadRequest("No valid file provided"))
		return
	}

	file, _, err := request.FormFile("portada")
	if err != nil {
		respond.Error(writer, request, apperr.BadRequest("No valid file provided"))
		return
	}
	defer file.Close()

	revista, filename, err := handler.catalogService.UploadCover(request.Context(), id, file)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"message":  "Cover uploaded successfully",
		"filename": filename,
		"revista":  revista,
	})
}

// ServeCover handles GET /portadas/{filename} requests for stored covers.
//
// The filename is reduced to its base component before touching the
// filesystem, so path traversal cannot escape the cover directory.
func (handler *Handler) ServeCover(writer http.ResponseWriter, request *http.Request) {
	filename := filepath.Base(requestutil.Param(request, "filename"))
	path := filepath.Join(handler.catalogService.CoverDir(), filename)

	if _, err := os.Stat(path); err != nil {
		respond.Error(writer, request, apperr.NotFound("Image"))
		return
	}

	writer.Header().Set("Cross-Origin-Resource-Policy", "cross-origin")
	http.ServeFile(writer, request, path)
}

// revistaID parses the numeric magazine ID from the URL.
func revistaID(request *http.Request) (int, error) {
	raw := requestutil.Param(request, "revistaId")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, apperr.BadRequest("The magazine ID must be a positive number")
	}
	return id, nil
}
