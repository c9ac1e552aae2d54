// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()
	if v1 == nil || v1 != v2 {
		t.Error("GetValidator() should return one shared instance")
	}
}

type query struct {
	Title string `query:"title" validate:"required,max=20"`
	Facet string `query:"facet" validate:"omitempty,facet"`
	View  string `query:"view" validate:"omitempty,view"`
	K     int    `query:"k" validate:"min=0,max=100"`
	Mode  string `json:"mode" validate:"omitempty,oneof=a b"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     query
		wantField string
		wantTag   string
		wantMsg   string
	}{
		{name: "valid", input: query{Title: "Avatar", Facet: "genres", View: "compact", K: 5}},
		{name: "facet alias", input: query{Title: "Avatar", Facet: "Production Company"}},
		{name: "view alias", input: query{Title: "Avatar", View: "FULL"}},
		{
			name:      "missing title",
			input:     query{},
			wantField: "title", wantTag: "required", wantMsg: "title is required",
		},
		{
			name:      "title too long",
			input:     query{Title: strings.Repeat("x", 21)},
			wantField: "title", wantTag: "max", wantMsg: "title must be at most 20 characters",
		},
		{
			name:      "unknown facet",
			input:     query{Title: "Avatar", Facet: "budget"},
			wantField: "facet", wantTag: "facet",
		},
		{
			name:      "unknown view",
			input:     query{Title: "Avatar", View: "grid"},
			wantField: "view", wantTag: "view",
		},
		{
			name:      "k too large",
			input:     query{Title: "Avatar", K: 101},
			wantField: "k", wantTag: "max", wantMsg: "k must be at most 100",
		},
		{
			name:      "json tag name",
			input:     query{Title: "Avatar", Mode: "c"},
			wantField: "mode", wantTag: "oneof", wantMsg: "mode must be one of: a b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateStruct() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ValidateStruct() expected error")
			}
			if len(err.Fields) != 1 {
				t.Fatalf("got %d field errors, want 1: %v", len(err.Fields), err)
			}
			fe := err.Fields[0]
			if fe.Field != tt.wantField || fe.Tag != tt.wantTag {
				t.Errorf("field error = %s/%s, want %s/%s", fe.Field, fe.Tag, tt.wantField, tt.wantTag)
			}
			if tt.wantMsg != "" && fe.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", fe.Message, tt.wantMsg)
			}
			if got := err.Details()["field"]; got != tt.wantField {
				t.Errorf("Details()[field] = %v", got)
			}
		})
	}
}

func TestValidateStruct_MultipleErrors(t *testing.T) {
	err := ValidateStruct(&query{K: -1, Facet: "nope"})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(err.Fields) != 3 {
		t.Fatalf("got %d field errors, want 3", len(err.Fields))
	}
	if !strings.Contains(err.Error(), "title is required") || !strings.Contains(err.Error(), "; ") {
		t.Errorf("Error() = %q", err.Error())
	}
	fields, ok := err.Details()["fields"].([]map[string]interface{})
	if !ok || len(fields) != 3 {
		t.Errorf("Details() = %v", err.Details())
	}
}

func TestValidateStruct_KoanfTagName(t *testing.T) {
	type section struct {
		Backend string `koanf:"backend" validate:"oneof=file badger"`
	}
	err := ValidateStruct(&section{Backend: "s3"})
	if err == nil || err.Fields[0].Field != "backend" {
		t.Errorf("ValidateStruct() = %v, want backend field error", err)
	}
}
