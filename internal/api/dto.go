package api

import (
	"github.com/pellmark/folio/internal/docservice"
	"github.com/pellmark/folio/internal/lint"
	"github.com/pellmark/folio/internal/nav"
)

// CreateDocRequest is the request body for creating a document.
type CreateDocRequest struct {
	Path    string `json:"path" example:"guides/build.md" validate:"required"`
	Content string `json:"content" example:"---\ntitle: Build\n---\n\n# Build" validate:"required"`
}

// UpdateDocRequest is the request body for updating a document.
type UpdateDocRequest struct {
	Content string `json:"content" example:"# Updated\nContent" validate:"required"`
}

// DocDetail is the full document response type (aliased from the domain layer).
type DocDetail = docservice.DocDetail

// DocListItem is a lightweight item in a list response (aliased from the domain layer).
type DocListItem = docservice.DocListItem

// DocListResponse wraps paginated document listings.
type DocListResponse struct {
	Docs  []DocListItem `json:"docs" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path" example:"guides/build.md" validate:"required"`
	Title   string `json:"title" example:"Build" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// NavTree is the sidebar tree response (aliased from the assembler).
type NavTree = nav.Tree

// LintReport is the corpus lint response (aliased from the linter).
type LintReport = lint.Report

// GraphNode is a node in the cross-reference graph.
type GraphNode struct {
	Path  string `json:"path" example:"guides/build.md" validate:"required"`
	Title string `json:"title" example:"Build"`
}

// GraphLink is an edge in the cross-reference graph.
type GraphLink struct {
	Source string `json:"source" example:"guides/build.md" validate:"required"`
	Target string `json:"target" example:"intro.md" validate:"required"`
	Kind   string `json:"kind" example:"inline" validate:"required"`
}

// GraphResponse wraps the cross-reference graph.
type GraphResponse struct {
	Nodes []GraphNode `json:"nodes" validate:"required"`
	Links []GraphLink `json:"links" validate:"required"`
}

// AttachmentUploadResponse is returned after a successful attachment upload.
type AttachmentUploadResponse struct {
	Filename string `json:"filename" example:"diagram.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	Checksum string `json:"checksum" example:"abc123..." validate:"required"`
	URL      string `json:"url" example:"/attachments/diagram.png" validate:"required"`
}
