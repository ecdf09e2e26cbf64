package sld

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultIconCacheSize bounds the number of decoded external graphics kept.
const DefaultIconCacheSize = 256

// IconCache loads external graphics once and shares the decoded image
// between every resolver that references the same href.
type IconCache struct {
	BaseDir string
	Client  *http.Client

	mu      sync.Mutex
	entries *lru.Cache[string, *iconEntry]
	loading int
	idle    chan struct{}
	logger  *slog.Logger
}

type iconEntry struct {
	img     image.Image
	err     error
	done    bool
	waiters []func()
}

// NewIconCache creates a cache. Relative hrefs resolve against baseDir.
func NewIconCache(size int, baseDir string) (*IconCache, error) {
	if size <= 0 {
		size = DefaultIconCacheSize
	}
	entries, err := lru.New[string, *iconEntry](size)
	if err != nil {
		return nil, err
	}
	return &IconCache{
		BaseDir: baseDir,
		Client:  http.DefaultClient,
		entries: entries,
		logger:  slog.With("component", "icons"),
	}, nil
}

// Get returns the decoded image for href when it is available. Otherwise it
// starts one background load per href and reports ready=false; onLoad (if
// not nil) is called from the loading goroutine once the load finishes,
// successfully or not. A failed load is returned as err on later calls.
func (c *IconCache) Get(href string, onLoad func()) (img image.Image, ready bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries.Get(href); ok {
		if e.done {
			return e.img, true, e.err
		}
		if onLoad != nil {
			e.waiters = append(e.waiters, onLoad)
		}
		return nil, false, nil
	}
	e := &iconEntry{}
	if onLoad != nil {
		e.waiters = append(e.waiters, onLoad)
	}
	c.entries.Add(href, e)
	c.loading++
	go c.load(href, e)
	return nil, false, nil
}

// Idle returns a channel that is closed once no load is in flight and every
// load callback has returned. Loads started after Idle was called keep the
// channel open until they finish too.
func (c *IconCache) Idle() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.idle == nil {
		c.idle = make(chan struct{})
	}
	ch := c.idle
	if c.loading == 0 {
		close(ch)
		c.idle = nil
	}
	return ch
}

// Wait blocks until no load is in flight. A callback that blocks (for
// example on a full task queue nobody drains) blocks Wait as well; use Idle
// to keep serving those callbacks while waiting.
func (c *IconCache) Wait() {
	<-c.Idle()
}

func (c *IconCache) load(href string, e *iconEntry) {
	img, err := c.Load(context.Background(), href)
	c.mu.Lock()
	e.img, e.err, e.done = img, err, true
	waiters := e.waiters
	e.waiters = nil
	c.mu.Unlock()
	for _, fn := range waiters {
		fn()
	}
	c.mu.Lock()
	c.loading--
	if c.loading == 0 && c.idle != nil {
		close(c.idle)
		c.idle = nil
	}
	c.mu.Unlock()
}

// Load fetches and decodes href synchronously, bypassing the cache.
func (c *IconCache) Load(ctx context.Context, href string) (image.Image, error) {
	rc, err := c.open(ctx, href)
	if err != nil {
		c.logger.Warn("Failed to open external graphic", "href", href, "error", err)
		return nil, err
	}
	defer rc.Close()
	cr := &countingReader{r: rc}
	img, format, err := image.Decode(cr)
	if err != nil {
		c.logger.Warn("Failed to decode external graphic", "href", href, "error", err)
		return nil, fmt.Errorf("decode %s: %w", href, err)
	}
	c.logger.Debug("Loaded external graphic", "href", href, "format", format,
		"size", humanize.Bytes(uint64(cr.n)))
	return img, nil
}

func (c *IconCache) open(ctx context.Context, href string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, href, nil)
		if err != nil {
			return nil, err
		}
		client := c.Client
		if client == nil {
			client = http.DefaultClient
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("get %s: %s", href, resp.Status)
		}
		return resp.Body, nil
	default:
		path := strings.TrimPrefix(href, "file://")
		if !filepath.IsAbs(path) && c.BaseDir != "" {
			path = filepath.Join(c.BaseDir, path)
		}
		return os.Open(path)
	}
}

type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}
