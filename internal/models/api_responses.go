// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

// Package models defines the JSON shapes returned by the HTTP API.
package models

import (
	"time"
)

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error codes.
const (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeNotReady     = "NOT_READY"
	ErrCodeUnavailable  = "FACET_UNAVAILABLE"
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeRateLimited  = "RATE_LIMIT_EXCEEDED"
	ErrCodeBuildRunning = "BUILD_IN_PROGRESS"
)

// APIResponse wraps every API response.
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": {"title": "Avatar", "facet": "genres", "items": [...]},
//	  "metadata": {
//	    "timestamp": "2026-01-02T12:00:00Z",
//	    "request_id": "5f0c...",
//	    "query_time_ms": 1,
//	    "version": 3
//	  }
//	}
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {"code": "VALIDATION_ERROR", "message": "title is required"},
//	  "metadata": {"timestamp": "2026-01-02T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata accompanies every response.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id,omitempty"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`

	// Version is the artifact version that answered the request.
	Version int64 `json:"version,omitempty"`
}

// APIError is the error payload.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// TitleResolution is the result of resolving a title to a row.
type TitleResolution struct {
	Title string `json:"title"`
	Found bool   `json:"found"`
	Row   int    `json:"row"`
	ID    int64  `json:"id,omitempty"`
}

// TitleList is a page of titles for selection lists.
type TitleList struct {
	Prefix string   `json:"prefix,omitempty"`
	Titles []string `json:"titles"`
	Total  int      `json:"total"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version int64  `json:"version"`
	Items   int    `json:"items"`
	Uptime  string `json:"uptime"`
}

// RebuildResponse describes a rebuild triggered through the API.
type RebuildResponse struct {
	BuildID string `json:"build_id"`
	Version int64  `json:"version"`
	Skipped bool   `json:"skipped"`
	Items   int    `json:"items"`
}
