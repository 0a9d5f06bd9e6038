// Package web embeds the ledger page templates and its static assets.
package web

import "embed"

// TemplatesFS holds index.html and the "ledger" partial re-rendered by
// every HTMX action.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds app.js and app.css, served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
