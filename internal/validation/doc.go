// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

// Package validation validates API query structs and configuration with
// go-playground/validator v10.
//
// Besides the built-in tags it registers:
//   - facet: a facet name such as "genres" or "production company"
//   - view: a result view name ("aggregate", "full" or "compact")
//
// Example:
//
//	type recommendQuery struct {
//	    Title string `query:"title" validate:"required,max=500"`
//	    Facet string `query:"facet" validate:"omitempty,facet"`
//	    K     int    `query:"k" validate:"min=0,max=100"`
//	}
//
//	if err := validation.ValidateStruct(&q); err != nil {
//	    respondError(w, http.StatusBadRequest, validation.ErrorCode, err.Error(), err)
//	}
package validation
