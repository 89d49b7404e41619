package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/pedago/internal/model"
)

// DefaultFetchConcurrency bounds parallel chapter fetches.
const DefaultFetchConcurrency = 4

// HTTPLoader loads a catalog from a static HTTP host.
type HTTPLoader struct {
	BaseURL     string
	Client      *http.Client
	Concurrency int
}

// NewHTTPLoader creates a loader for baseURL. A nil client means
// http.DefaultClient; the catalog fetch has no timeout of its own.
func NewHTTPLoader(baseURL string, client *http.Client) *HTTPLoader {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPLoader{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Client:      client,
		Concurrency: DefaultFetchConcurrency,
	}
}

// Load fetches the manifest then every chapter document in parallel.
// The first failure cancels the remaining fetches.
func (l *HTTPLoader) Load(ctx context.Context, classID string) (*model.Catalog, error) {
	data, err := l.get(ctx, "manifest.json")
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}
	manifest, err := decodeManifest("manifest.json", data)
	if err != nil {
		return nil, err
	}
	ids, err := manifest.chapterIDs(classID)
	if err != nil {
		return nil, err
	}

	defs := make([]*model.ChapterDefinition, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(l.Concurrency, 1))
	for i, id := range ids {
		g.Go(func() error {
			name := "chapters/" + url.PathEscape(id) + ".json"
			body, err := l.get(gctx, name)
			if err != nil {
				return fmt.Errorf("fetch chapter %q: %w", id, err)
			}
			def, err := decodeChapter(name, body)
			if err != nil {
				return err
			}
			defs[i] = def
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return assemble(classID, ids, defs)
}

func (l *HTTPLoader) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.BaseURL+"/"+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	// Versions change server-side.
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return body, nil
}

// NewLoader picks the loader for source: http(s) URLs use HTTPLoader,
// anything else is a directory.
func NewLoader(source string, client *http.Client) Loader {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return NewHTTPLoader(source, client)
	}
	return NewDirLoader(source)
}
