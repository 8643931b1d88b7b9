package web

import "embed"

// TemplatesFS embeds the HTML pages and partials rendered server-side.
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds static assets (css, images).
//go:embed static/*
var StaticFS embed.FS
