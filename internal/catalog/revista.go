// Copyright (c) 2026 Hemeroteca. All rights reserved.

// Package catalog manages the magazine catalog: listing, facet values,
// administrative edits, and cover images.
package catalog

import (
	"strings"
	"time"
)

// Revista represents one magazine of the national catalog.
//
// Most columns are free-form text maintained by librarians; optional ones
// are pointers so a missing value round-trips as JSON null.
type Revista struct {
	ID                   int       `json:"id"`
	Revista              string    `json:"revista"`
	AreaConocimiento     *string   `json:"area_conocimiento"`
	Indice               *string   `json:"indice"`
	Idioma               *string   `json:"idioma"`
	Editorial            *string   `json:"editorial"`
	Periodicidad         *string   `json:"periodicidad"`
	Formato              *string   `json:"formato"`
	Estado               *string   `json:"estado"`
	ISSNDigital          *string   `json:"issn_digital"`
	ISSNImpreso          *string   `json:"issn_impreso"`
	DepositoLegalDigital *string   `json:"deposito_legal_digital"`
	DepositoLegalImpreso *string   `json:"deposito_legal_impreso"`
	CorreoRevista        *string   `json:"correo_revista"`
	CorreoEditor         *string   `json:"correo_editor"`
	URL                  *string   `json:"url"`
	Portada              *string   `json:"portada"`
	CreatedAt            time.Time `json:"created_at"`
}

// writableColumns is the allow-list of columns a client may set. Field
// names arriving in a request body are matched against this list and
// silently dropped otherwise; they are never interpolated into SQL.
var writableColumns = map[string]bool{
	"revista":                true,
	"area_conocimiento":      true,
	"indice":                 true,
	"idioma":                 true,
	"editorial":              true,
	"periodicidad":           true,
	"formato":                true,
	"estado":                 true,
	"issn_digital":           true,
	"issn_impreso":           true,
	"deposito_legal_digital": true,
	"deposito_legal_impreso": true,
	"correo_revista":         true,
	"correo_editor":          true,
	"url":                    true,
	"portada":                true,
}

// lowercaseColumns stores machine-consumed values (addresses, URLs, file
// names) in lowercase; every other text column is stored uppercase, the
// convention of the legacy catalog data.
var lowercaseColumns = map[string]bool{
	"correo_revista": true,
	"correo_editor":  true,
	"url":            true,
	"portada":        true,
}

// facetColumns names the columns exposed as distinct-value facets.
var facetColumns = map[string]bool{
	"area_conocimiento": true,
	"indice":            true,
	"idioma":            true,
	"editorial":         true,
	"periodicidad":      true,
	"formato":           true,
}

// CanonicalizeFields filters a client-supplied field map down to the
// allow-list and applies the column case convention to string values.
// Non-string values (null, numbers) pass through untouched.
func CanonicalizeFields(fields map[string]any) map[string]any {
	canonical := make(map[string]any, len(fields))
	for key, value := range fields {
		column := strings.ToLower(strings.TrimSpace(key))
		if !writableColumns[column] {
			continue
		}

		if text, ok := value.(string); ok {
			if lowercaseColumns[column] {
				value = strings.ToLower(text)
			} else {
				value = strings.ToUpper(text)
			}
		}
		canonical[column] = value
	}
	return canonical
}
