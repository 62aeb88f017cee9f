package web

import "embed"

// Templates embeds the PDF document templates and their manifest.
//
//go:embed templates/pdf/*
var Templates embed.FS
