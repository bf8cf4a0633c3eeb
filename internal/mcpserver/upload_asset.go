package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pellmark/folio/internal/checksum"
)

const (
	// maxAssetSize caps attachments at 10 MB.
	maxAssetSize = 10 << 20

	fetchTimeout = 30 * time.Second
	maxRedirects = 5
)

// extByMIME maps sniffed or declared MIME types to a canonical extension.
var extByMIME = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/svg+xml":   ".svg",
	"application/pdf": ".pdf",
}

// allowedExt holds the extensions upload_asset accepts.
var allowedExt = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true,
	".gif": true, ".webp": true, ".svg": true, ".pdf": true,
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

type uploadResult struct {
	SavedPath     string `json:"savedPath"`
	MarkdownImage string `json:"markdownImage"`
	Checksum      string `json:"checksum"`
}

func (s *Server) uploadAsset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filename := ""
	if v, fErr := req.RequireString("filename"); fErr == nil {
		filename = v
	}

	data, hintExt, err := loadAsset(ctx, source)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(data) > maxAssetSize {
		return mcp.NewToolResultError(fmt.Sprintf("asset is %d bytes, limit is %d", len(data), maxAssetSize)), nil
	}

	if filename == "" {
		filename = nameFromSource(source, hintExt)
	}
	filename = sanitizeFilename(filename)

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return mcp.NewToolResultError(fmt.Sprintf("extension %s not accepted; use png, jpg, jpeg, gif, webp, svg or pdf", ext)), nil
	}
	if err := matchContent(data, ext); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	savePath := path.Join("attachments", filename)
	if _, readErr := s.store.Read(savePath); readErr == nil {
		return mcp.NewToolResultError(fmt.Sprintf("attachment already exists at %s", savePath)), nil
	}
	if err := s.store.Write(savePath, data); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("write attachment: %v", err)), nil
	}

	publicPath := "/attachments/" + filename
	out, _ := json.Marshal(uploadResult{
		SavedPath:     publicPath,
		MarkdownImage: fmt.Sprintf("![%s](%s)", filename, publicPath),
		Checksum:      checksum.Sum(data),
	})
	return mcp.NewToolResultText(string(out)), nil
}

// loadAsset resolves the asset bytes from either a data URI or an
// http(s) URL. The returned extension is a hint from the declared MIME
// type and may be empty.
func loadAsset(ctx context.Context, source string) ([]byte, string, error) {
	if strings.HasPrefix(source, "data:") {
		return decodeDataURI(source)
	}
	return fetchRemote(ctx, source)
}

// decodeDataURI splits a base64 data URI into its payload and the
// extension implied by its media type.
func decodeDataURI(uri string) ([]byte, string, error) {
	meta, encoded, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data URI")
	}
	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("data URI must be base64 encoded")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("decode base64 payload: %w", err)
		}
	}

	mimeType, _, _ := strings.Cut(strings.TrimSuffix(meta, ";base64"), ";")
	ext, ok := extByMIME[mimeType]
	if !ok {
		return nil, "", fmt.Errorf("data URI declares unsupported type %s", mimeType)
	}
	return data, ext, nil
}

// fetchRemote downloads an asset over http(s), refusing loopback,
// link-local and cloud metadata destinations on every hop.
func fetchRemote(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("parse URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, "", fmt.Errorf("scheme %q not supported, use http or https", parsed.Scheme)
	}
	if err := checkBlockedHost(parsed.Hostname()); err != nil {
		return nil, "", err
	}

	client := &http.Client{
		Timeout: fetchTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects (max %d)", maxRedirects)
			}
			return checkBlockedHost(req.URL.Hostname())
		},
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid request: %w", err)
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("fetch asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch asset: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read response: %w", err)
	}
	if len(data) > maxAssetSize {
		return nil, "", fmt.Errorf("asset exceeds %d byte limit", maxAssetSize)
	}

	declared, _, _ := strings.Cut(resp.Header.Get("Content-Type"), ";")
	return data, extByMIME[declared], nil
}

// checkBlockedHost rejects destinations an uploader must not reach from
// inside the deployment: loopback, link-local (which covers the
// 169.254.169.254 cloud metadata endpoint) and the GCP metadata name.
func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("refusing to fetch from %s", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			// Unresolvable names fail later in the client with a clearer error.
			return nil
		}
		ip = ips[0]
	}

	switch {
	case ip.IsLoopback():
		return fmt.Errorf("refusing to fetch from loopback address %s", host)
	case ip.IsLinkLocalUnicast():
		return fmt.Errorf("refusing to fetch from link-local address %s", host)
	}
	return nil
}

// nameFromSource derives a filename from the source URL, falling back to
// a random name with the hinted extension.
func nameFromSource(source, hintExt string) string {
	if !strings.HasPrefix(source, "data:") {
		if parsed, err := url.Parse(source); err == nil {
			base := path.Base(parsed.Path)
			if base != "" && base != "." && base != "/" && strings.Contains(base, ".") {
				return base
			}
		}
	}
	if hintExt == "" {
		hintExt = ".bin"
	}
	return uuid.New().String() + hintExt
}

// sanitizeFilename reduces a name to its base component and replaces
// anything outside [a-zA-Z0-9._-].
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	if name == "" || name == "." {
		name = uuid.New().String()
	}
	return name
}

// matchContent verifies the asset bytes agree with the declared
// extension. SVG is text and gets a tag scan; everything else goes
// through content-type sniffing.
func matchContent(data []byte, ext string) error {
	if ext == ".svg" {
		head := data
		if len(head) > 1024 {
			head = head[:1024]
		}
		if !bytes.Contains(head, []byte("<svg")) {
			return fmt.Errorf("svg payload has no <svg tag")
		}
		return nil
	}

	sniffed, _, _ := strings.Cut(http.DetectContentType(data), ";")
	got := extByMIME[sniffed]

	want := ext
	if want == ".jpeg" {
		want = ".jpg"
	}
	if got != want {
		return fmt.Errorf("payload sniffs as %s, not %s", sniffed, ext)
	}
	return nil
}
