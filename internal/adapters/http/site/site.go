// Package site serves the page shell: one HTML view per navigation route.
package site

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/fleetview/internal/navigation"
)

// Error constants.
var (
	ErrUnknownView = errors.New("no template for view")
	ErrRender      = errors.New("view render failed")
)

//go:embed templates/*.html static/*
var assets embed.FS

// viewTemplates binds navigation views to their page templates.
var viewTemplates = map[string]string{
	navigation.DashboardView: "templates/dashboard.html",
	navigation.HistoryView:   "templates/history.html",
}

// page is the data every view template receives.
type page struct {
	Title  string
	View   string
	Path   string
	Params map[string]string
	Routes []navigation.Route
}

// Register mounts every route of table onto r, plus the static assets under
// /static/. Table paths also answer with a trailing slash by redirecting to
// the declared path. It fails when a route binds a view without a template.
func Register(_ context.Context, r *mux.Router, table *navigation.Table) error {
	if r == nil {
		panic("router is nil")
	}

	views := make(map[string]*template.Template)
	for _, view := range table.Views() {
		file, ok := viewTemplates[view]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownView, view)
		}
		tmpl, err := template.ParseFS(assets, "templates/layout.html", file)
		if err != nil {
			return fmt.Errorf("parse %s: %w", view, err)
		}
		views[view] = tmpl
	}

	pages := r.NewRoute().Subrouter()
	pages.StrictSlash(true)
	for _, route := range table.Routes() {
		if route.IsRedirect() {
			pages.Handle(route.Path, redirect(route.Redirect)).Methods(http.MethodGet, http.MethodHead)
			continue
		}
		pages.Handle(route.Path, render(table, views[route.View])).Methods(http.MethodGet, http.MethodHead)
	}

	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(FS())))
	return nil
}

// FS returns an http.FileSystem for the embedded static assets.
func FS() http.FileSystem {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		return http.FS(assets)
	}
	return http.FS(sub)
}

func redirect(target string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusFound)
	})
}

func render(table *navigation.Table, tmpl *template.Template) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m, err := table.Resolve(r.URL.Path)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		data := page{
			Title:  m.Route.Name,
			View:   m.Route.View,
			Path:   m.Route.Path,
			Params: m.Params,
			Routes: table.Routes(),
		}
		var buf bytes.Buffer
		if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
			http.Error(w, fmt.Sprintf("%v: %v", ErrRender, err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = buf.WriteTo(w)
	})
}
