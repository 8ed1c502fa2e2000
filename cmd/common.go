package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/user/malscan-report/pkg/backend"
	"github.com/user/malscan-report/pkg/config"
	"github.com/user/malscan-report/pkg/engine"
	"github.com/user/malscan-report/pkg/export"
	"github.com/user/malscan-report/pkg/taxonomy"
	"github.com/user/malscan-report/pkg/view"
)

// env is what every report command needs: settings, a client and a builder.
type env struct {
	cfg       *config.Config
	client    *backend.Client
	builder   *engine.Builder
	documents *export.DocumentExporter
}

func loadEnv(taxonomyRef string) (*env, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if taxonomyRef == "" {
		taxonomyRef = cfg.Taxonomy
	}
	table, err := taxonomy.Resolve(taxonomyRef)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}
	return &env{
		cfg:     cfg,
		client:  backend.NewClient(cfg.BackendURL, cfg.Token),
		builder: engine.NewBuilder(table),

		documents: export.NewDocumentExporter(cfg.DocumentOptions()),
	}, nil
}

// session fetches id from the service, or decodes file when one is given.
func (e *env) session(ctx context.Context, id, file string) (*engine.Session, error) {
	if file != "" {
		return readSessionFile(file)
	}
	if id == "" {
		return nil, fmt.Errorf("a session id or --file is required")
	}
	return e.client.GetSession(ctx, engine.SessionID(id))
}

func (e *env) report(ctx context.Context, id, file string) (*engine.SessionReport, error) {
	s, err := e.session(ctx, id, file)
	if err != nil {
		return nil, err
	}
	return e.builder.Build(*s)
}

func readSessionFile(path string) (*engine.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s engine.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &s, nil
}

func (e *env) outputPath(dir, name string) (string, error) {
	if dir == "" {
		dir = e.cfg.OutputDir
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func (e *env) exportTabular(r *engine.SessionReport, dir string) (string, error) {
	data, err := export.NewTabularExporter(e.cfg.Tabular).Export(r)
	if err != nil {
		return "", err
	}
	path, err := e.outputPath(dir, export.TabularFilename(r.Session.ID))
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, data, 0644)
}

// exportDocument renders the report page in a headless browser and captures
// it into a paginated PDF.
func (e *env) exportDocument(ctx context.Context, r *engine.SessionReport, dir string) (string, error) {
	page, err := view.RenderBytes(r)
	if err != nil {
		return "", fmt.Errorf("render view: %w", err)
	}

	src, err := export.NewBrowserSource(ctx, e.cfg.BrowserOptions())
	if err != nil {
		return "", err
	}
	defer src.Close()
	if err := src.Load(ctx, page); err != nil {
		return "", err
	}

	data, err := e.documents.Export(ctx, r.Session.ID, src)
	if err != nil {
		return "", err
	}
	path, err := e.outputPath(dir, export.DocumentFilename(r.Session.ID))
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, data, 0644)
}
