package pipeline

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/AxiomOrient/Dendrite/internal/chunk"
	"github.com/AxiomOrient/Dendrite/internal/dendriteerr"
	"github.com/AxiomOrient/Dendrite/internal/identity"
	"github.com/AxiomOrient/Dendrite/internal/parser"
)

// extensionContentTypes maps a lowercase file extension to the content-type
// tag the bundled parsers register under.
var extensionContentTypes = map[string]parser.ContentType{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".html":     "text/html",
	".htm":      "text/html",
	".pdf":      "application/pdf",
	".txt":      "text/plain",
}

// ProcessURL reads a document from rawURL — over HTTP(S) via net/http, or as
// a local filesystem path otherwise — infers its content type from the
// extension, defaults the document ID to the last path segment, and runs it
// through Process. File-reading failures surface as dendriteerr.FileReadFailed
// per spec.md §6.
func (o *Orchestrator) ProcessURL(
	ctx context.Context,
	rawURL string,
	cfg chunk.Config,
) (*ProcessedDocument, error) {
	data, err := readSource(ctx, rawURL)
	if err != nil {
		return nil, dendriteerr.FileReadFailed(rawURL, err)
	}

	ct, ok := contentTypeFromExtension(rawURL)
	if !ok {
		return nil, dendriteerr.UnsupportedFileType(extensionOf(rawURL))
	}

	return o.Process(ctx, data, ct, defaultDocumentID(rawURL), cfg)
}

func readSource(ctx context.Context, rawURL string) ([]byte, error) {
	if isHTTPURL(rawURL) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return nil, &httpStatusError{status: resp.StatusCode}
		}
		return io.ReadAll(resp.Body)
	}
	return os.ReadFile(rawURL)
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func extensionOf(raw string) string {
	ext := path.Ext(strings.ToLower(raw))
	return strings.TrimPrefix(ext, ".")
}

func contentTypeFromExtension(raw string) (parser.ContentType, bool) {
	ext := strings.ToLower(path.Ext(raw))
	ct, ok := extensionContentTypes[ext]
	return ct, ok
}

func defaultDocumentID(raw string) identity.DocumentID {
	base := path.Base(raw)
	if isHTTPURL(raw) {
		if u, err := url.Parse(raw); err == nil && u.Path != "" {
			base = path.Base(u.Path)
		}
	}
	return identity.DocumentID(base)
}

type httpStatusError struct{ status int }

func (e *httpStatusError) Error() string {
	return "unexpected status " + strconv.Itoa(e.status)
}
