// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

// Package web serves the server-rendered HTML pages.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"strings"
	"time"

	"github.com/mkaschke/bucketlist/internal/models"
)

//go:embed templates
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// templates holds one parsed tree per page, each combining the layout
// with the page's content block.
type templates struct {
	pages map[string]*template.Template
}

// parseTemplates builds all page templates. It runs once at startup so
// a broken template fails the boot, not the first request.
func parseTemplates() (*templates, error) {
	pages, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("glob page templates: %w", err)
	}

	t := &templates{pages: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		name := strings.TrimSuffix(strings.TrimPrefix(page, "templates/pages/"), ".html")
		tmpl, err := template.New("layout.html").
			Funcs(templateFuncs()).
			ParseFS(templateFS, "templates/layout.html", page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		t.pages[name] = tmpl
	}
	return t, nil
}

// templateFuncs returns the helper functions available to all pages.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDateShort": func(t time.Time) string {
			return t.Format("Jan 2, 2006")
		},
		"formatDateInput": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format("2006-01-02")
		},
		"timePtr": func(t *time.Time) time.Time {
			if t == nil {
				return time.Time{}
			}
			return *t
		},
		"percent": func(rate float64) string {
			return fmt.Sprintf("%.0f%%", rate*100)
		},
		"titleCase": func(s string) string {
			s = strings.ReplaceAll(s, "_", " ")
			if s == "" {
				return s
			}
			return strings.ToUpper(s[:1]) + s[1:]
		},
		"categories": func() []string { return models.Categories },
		"priorities": func() []string { return models.Priorities },
		"statuses":   func() []string { return models.Statuses },
		"isOverdue": func(item models.Item) bool {
			return item.IsOverdue(time.Now().UTC())
		},
	}
}
