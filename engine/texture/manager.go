package texture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-terrain/common"
)

// Handle identifies a texture uploaded to the graphics backend.
type Handle uint32

// Uploader is the slice of the graphics backend the Manager needs.
// All calls happen on the render goroutine.
type Uploader interface {
	CreateTexture(px common.TextureStagingData) (Handle, error)
	DeleteTexture(h Handle)
	BindTexture(h Handle, unit int)
}

// LoadFunc produces decoded pixels for a URL. Load is the default.
type LoadFunc func(ctx context.Context, url string) (common.TextureStagingData, error)

type managerImpl struct {
	mu *sync.Mutex
	wg *sync.WaitGroup

	load    LoadFunc
	workers int
	pool    worker.DynamicWorkerPool

	textures map[string]Handle
	pending  map[string]common.TextureStagingData
	loading  map[string]struct{}
	failed   map[string]error

	defaultHandle Handle
	hasDefault    bool
	taskID        int
}

// Manager caches textures by URL.
//
// Request decodes off the render goroutine; Flush uploads whatever finished decoding.
// Until a texture is uploaded, Handle and Bind fall back to a 2×2 checkerboard.
type Manager interface {
	// Request starts loading url unless it is already loaded, decoded or in flight.
	//
	// Parameters:
	//   - ctx: cancels the fetch
	//   - url: the texture location
	Request(ctx context.Context, url string)

	// Wait blocks until every in-flight request has finished decoding.
	Wait()

	// Flush uploads decoded textures and creates the default texture on first use.
	//
	// Parameters:
	//   - u: the backend to upload to
	//
	// Returns:
	//   - error: joined upload errors; textures that failed stay unloaded
	Flush(u Uploader) error

	// Ready reports whether url has been uploaded.
	Ready(url string) bool

	// Err returns the load error recorded for url, if any.
	Err(url string) error

	// Handle returns the uploaded texture for url, or the default texture.
	Handle(url string) Handle

	// Bind binds url's texture, or the default texture, to unit.
	Bind(u Uploader, url string, unit int)

	// Delete releases url's texture.
	Delete(u Uploader, url string)

	// DeleteAll releases every texture, the default one included, and forgets in-flight
	// requests. The next Flush uploads a fresh default texture.
	DeleteAll(u Uploader)
}

var _ Manager = &managerImpl{}

func (m *managerImpl) Request(ctx context.Context, url string) {
	m.mu.Lock()
	if m.known(url) {
		m.mu.Unlock()
		return
	}
	delete(m.failed, url)
	m.loading[url] = struct{}{}
	m.wg.Add(1)
	id := m.taskID
	m.taskID++
	m.mu.Unlock()

	m.pool.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			defer m.wg.Done()
			px, err := m.load(ctx, url)
			if err == nil && !px.Valid() {
				err = fmt.Errorf("texture %q: invalid pixel data %dx%d", url, px.Width, px.Height)
			}
			m.finish(url, px, err)
			return nil, nil
		},
	})
}

// known reports whether url is uploaded, decoded or in flight. Caller must hold the mutex.
func (m *managerImpl) known(url string) bool {
	if _, ok := m.textures[url]; ok {
		return true
	}
	if _, ok := m.pending[url]; ok {
		return true
	}
	_, ok := m.loading[url]
	return ok
}

// finish records the result of a decode task.
func (m *managerImpl) finish(url string, px common.TextureStagingData, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.loading[url]; !ok {
		// Deleted while in flight.
		return
	}
	delete(m.loading, url)
	if err != nil {
		m.failed[url] = err
		common.Logger().Error("texture load failed", "url", url, "err", err)
		return
	}
	m.pending[url] = px
}

func (m *managerImpl) Wait() {
	m.wg.Wait()
}

func (m *managerImpl) Flush(u Uploader) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if !m.hasDefault {
		h, err := u.CreateTexture(Checkerboard())
		if err != nil {
			errs = append(errs, fmt.Errorf("default texture: %w", err))
		} else {
			m.defaultHandle = h
			m.hasDefault = true
		}
	}

	for url, px := range m.pending {
		delete(m.pending, url)
		h, err := u.CreateTexture(px)
		if err != nil {
			m.failed[url] = err
			errs = append(errs, fmt.Errorf("texture %q: %w", url, err))
			continue
		}
		m.textures[url] = h
		common.Logger().Info("texture uploaded", "url", url, "width", px.Width, "height", px.Height)
	}
	return errors.Join(errs...)
}

func (m *managerImpl) Ready(url string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.textures[url]
	return ok
}

func (m *managerImpl) Err(url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failed[url]
}

func (m *managerImpl) Handle(url string) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.textures[url]; ok {
		return h
	}
	return m.defaultHandle
}

func (m *managerImpl) Bind(u Uploader, url string, unit int) {
	u.BindTexture(m.Handle(url), unit)
}

func (m *managerImpl) Delete(u Uploader, url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.textures[url]; ok {
		u.DeleteTexture(h)
		delete(m.textures, url)
	}
	delete(m.pending, url)
	delete(m.loading, url)
	delete(m.failed, url)
}

func (m *managerImpl) DeleteAll(u Uploader) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.textures {
		u.DeleteTexture(h)
	}
	if m.hasDefault {
		u.DeleteTexture(m.defaultHandle)
		m.defaultHandle = 0
		m.hasDefault = false
	}
	clear(m.textures)
	clear(m.pending)
	clear(m.loading)
	clear(m.failed)
}

// ManagerBuilderOption is a functional option for configuring a Manager.
type ManagerBuilderOption func(*managerImpl)

// WithLoadFunc replaces the function used to fetch and decode textures.
//
// Parameters:
//   - fn: the loader
//
// Returns:
//   - ManagerBuilderOption: functional option to set the loader
func WithLoadFunc(fn LoadFunc) ManagerBuilderOption {
	return func(m *managerImpl) {
		m.load = fn
	}
}

// WithDecodeWorkers sets the maximum number of concurrent decode goroutines.
//
// Parameters:
//   - n: worker count
//
// Returns:
//   - ManagerBuilderOption: functional option to set the worker pool size
func WithDecodeWorkers(n int) ManagerBuilderOption {
	return func(m *managerImpl) {
		m.workers = n
	}
}

// NewManager creates a texture Manager that decodes on a pool of two workers.
//
// Parameters:
//   - options: variadic list of ManagerBuilderOption functions
//
// Returns:
//   - Manager: the new manager
func NewManager(options ...ManagerBuilderOption) Manager {
	m := &managerImpl{
		mu:       &sync.Mutex{},
		wg:       &sync.WaitGroup{},
		load:     Load,
		workers:  2,
		textures: make(map[string]Handle),
		pending:  make(map[string]common.TextureStagingData),
		loading:  make(map[string]struct{}),
		failed:   make(map[string]error),
	}
	for _, opt := range options {
		opt(m)
	}
	m.pool = worker.NewDynamicWorkerPool(max(m.workers, 1), 64, time.Second)
	return m
}
