package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/poutila/doxstrux-sub002/internal/collectors"
	"github.com/poutila/doxstrux-sub002/internal/config"
	"github.com/poutila/doxstrux-sub002/internal/extract"
	"github.com/poutila/doxstrux-sub002/internal/parser"
	"github.com/poutila/doxstrux-sub002/internal/timeout"
	"github.com/poutila/doxstrux-sub002/internal/warehouse"
)

// ExtractorOptions configures an Extractor.
type ExtractorOptions struct {
	Warehouse  warehouse.Config
	Collectors collectors.Config
	Parser     parser.Options
	// CacheSize bounds the result cache. Zero disables caching.
	CacheSize int
}

// OptionsFromConfig maps service configuration onto extractor options.
func OptionsFromConfig(cfg config.Config, log *slog.Logger) (ExtractorOptions, error) {
	guard, err := timeout.ForMode(cfg.TimeoutMode)
	if err != nil {
		return ExtractorOptions{}, err
	}
	colCfg := collectors.DefaultConfig()
	colCfg.Chunk.Size = cfg.ChunkSize
	colCfg.Chunk.Overlap = cfg.ChunkOverlap

	return ExtractorOptions{
		Warehouse: warehouse.Config{
			MaxTokens:        cfg.MaxTokens,
			MaxBytes:         cfg.MaxContentBytes,
			CollectorTimeout: cfg.CollectorTimeout,
			Guard:            guard,
			Strict:           cfg.StrictCollectors,
			Logger:           log,
		},
		Collectors: colCfg,
		Parser:     parser.Options{PDFFallback: cfg.PDFFallbackPdftotext},
		CacheSize:  cfg.ResultCacheSize,
	}, nil
}

// Result is the outcome of one dispatch pass over a document.
type Result struct {
	Title       string                      `json:"title"`
	Format      string                      `json:"format"`
	ContentHash string                      `json:"content_hash"`
	Tokens      int                         `json:"tokens"`
	Lines       int                         `json:"lines"`
	Collectors  []string                    `json:"collectors"`
	Sections    []warehouse.Section         `json:"sections"`
	Results     map[string]any              `json:"results"`
	Failures    []*warehouse.CollectorError `json:"failures"`
	Timings     []warehouse.Timing          `json:"timings"`
	Cached      bool                        `json:"cached"`
}

// Extractor turns documents into collector results. It is safe for
// concurrent use; every Run builds its own warehouse and collectors.
type Extractor struct {
	opts  ExtractorOptions
	cache *lru.Cache[uint64, *Result]
	stats *extract.CollectorStats
	log   *slog.Logger
}

func NewExtractor(opts ExtractorOptions, stats *extract.CollectorStats, log *slog.Logger) (*Extractor, error) {
	e := &Extractor{opts: opts, stats: stats, log: log}
	if opts.CacheSize > 0 {
		cache, err := lru.New[uint64, *Result](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("result cache: %w", err)
		}
		e.cache = cache
	}
	return e, nil
}

// Stats returns the collector statistics sink, which may be nil.
func (e *Extractor) Stats() *extract.CollectorStats { return e.stats }

// Parse tokenizes raw file bytes with the tokenizer chosen by filename.
func (e *Extractor) Parse(data []byte, filename string) (*parser.Document, error) {
	tk, err := parser.ForFile(filename, e.opts.Parser)
	if err != nil {
		return nil, err
	}
	doc, err := tk.Tokenize(bytes.NewReader(data), filename)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return doc, nil
}

// Run builds a warehouse over doc, registers the named collectors (the
// default set when names is empty) and dispatches once.
func (e *Extractor) Run(ctx context.Context, doc *parser.Document, names []string) (*Result, error) {
	cs, err := collectors.ByName(names, e.opts.Collectors)
	if err != nil {
		return nil, err
	}
	registered := make([]string, len(cs))
	for i, c := range cs {
		registered[i] = c.Name()
	}

	key := cacheKey(doc, registered)
	if e.cache != nil {
		if hit, ok := e.cache.Get(key); ok {
			res := *hit
			res.Title = doc.Title
			res.Results = maps.Clone(hit.Results)
			res.Cached = true
			return &res, nil
		}
	}

	wh, err := warehouse.New(doc.Tokens, doc.Text, e.opts.Warehouse)
	if err != nil {
		return nil, err
	}
	if err := collectors.Register(wh, cs); err != nil {
		return nil, err
	}

	start := time.Now()
	failures, err := wh.Dispatch(ctx)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}

	res := &Result{
		Title:       doc.Title,
		Format:      doc.Format,
		ContentHash: ContentHashHex([]byte(doc.Text)),
		Tokens:      wh.Len(),
		Lines:       wh.LineCount(),
		Collectors:  wh.Collectors(),
		Sections:    wh.Sections(),
		Results:     wh.Results(),
		Failures:    failures,
		Timings:     wh.Timings(),
	}
	e.record(res)

	e.log.Info("document extracted",
		"format", doc.Format,
		"tokens", res.Tokens,
		"sections", len(res.Sections),
		"collectors", len(res.Collectors),
		"failures", len(failures),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	// Failed passes are not cached; a timeout may not repeat.
	if e.cache != nil && len(failures) == 0 {
		e.cache.Add(key, res)
	}
	return res, nil
}

func (e *Extractor) record(res *Result) {
	if e.stats == nil {
		return
	}
	failed := make(map[string]bool, len(res.Failures))
	for _, f := range res.Failures {
		failed[f.Collector] = true
	}
	for _, t := range res.Timings {
		e.stats.Record(t.Collector, t.Elapsed, t.Calls, failed[t.Collector])
	}
}

// cacheKey hashes everything a result depends on besides configuration,
// which is fixed for the lifetime of an Extractor.
func cacheKey(doc *parser.Document, names []string) uint64 {
	h := xxhash.New()
	h.WriteString(doc.Format)
	h.WriteString("\x00")
	h.WriteString(strings.Join(names, ","))
	h.WriteString("\x00")
	h.WriteString(doc.Text)
	return h.Sum64()
}
