// Package browser holds the note browser controller: the search, paging and
// create-modal state behind every notes-browser front end.
//
// The controller derives a query key from (page, debounced search, page size)
// and keeps the rendered result in step with it through the query cache.
// While a fetch for a new key runs, the last result stays on display. A
// completion is rendered only if its key is still current when it lands.
package browser

import (
	"context"
	"sync"
	"time"

	"github.com/streed/notes-browser/internal/config"
	"github.com/streed/notes-browser/internal/constants"
	"github.com/streed/notes-browser/internal/debounce"
	interrors "github.com/streed/notes-browser/internal/errors"
	"github.com/streed/notes-browser/internal/logger"
	"github.com/streed/notes-browser/internal/models"
	"github.com/streed/notes-browser/internal/querycache"
)

// NotesService is the remote side of the controller.
type NotesService interface {
	FetchNotes(ctx context.Context, page, perPage int, search string) (*models.NotesPage, error)
	CreateNote(ctx context.Context, req models.CreateNoteRequest) (*models.Note, error)
	DeleteNote(ctx context.Context, id string) (*models.Note, error)
}

// View is a snapshot of everything a front end needs to draw the browser.
type View struct {
	SearchInput     string
	DebouncedSearch string
	Page            int
	PerPage         int
	ModalOpen       bool

	// Notes and TotalPages belong to the last result obtained. While
	// Fetching they may still describe the previous key.
	Notes          []models.Note
	TotalPages     int
	ShowPagination bool

	// Loading is set only while the first result is being fetched.
	Loading bool
	// Fetching is set while the current key is being fetched.
	Fetching bool
	Err      error
}

type Controller struct {
	service  NotesService
	cache    *querycache.Cache[*models.NotesPage]
	search   *debounce.Debouncer[string]
	perPage  int
	onChange func(View)

	// ownsCache is false for a cache passed in with WithCache
	ownsCache bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	notifyMu sync.Mutex

	mu              sync.Mutex
	searchInput     string
	debouncedSearch string
	page            int
	modalOpen       bool
	result          *models.NotesPage
	err             error
	epoch           uint64
	inflight        map[querycache.Key]uint64
	changed         chan struct{}
	closed          bool
}

type Option func(*options)

type options struct {
	perPage   int
	delay     time.Duration
	retry     querycache.RetryPolicy
	staleTime time.Duration
	cache     *querycache.Cache[*models.NotesPage]
	onChange  func(View)
}

func WithPerPage(n int) Option {
	return func(o *options) { o.perPage = n }
}

// WithDebounceDelay sets the search quiet period.
func WithDebounceDelay(d time.Duration) Option {
	return func(o *options) { o.delay = d }
}

// WithRetryPolicy sets how failed list fetches are retried. Ignored when
// WithCache is used.
func WithRetryPolicy(p querycache.RetryPolicy) Option {
	return func(o *options) { o.retry = p }
}

// WithStaleTime ages cached pages out after d. Ignored when WithCache is used.
func WithStaleTime(d time.Duration) Option {
	return func(o *options) { o.staleTime = d }
}

// WithCache shares an existing cache between controllers.
func WithCache(cache *querycache.Cache[*models.NotesPage]) Option {
	return func(o *options) { o.cache = cache }
}

// OnChange registers fn to receive a snapshot after every state change.
// fn runs outside the controller lock, one call at a time, and must not call
// mutating controller methods synchronously.
func OnChange(fn func(View)) Option {
	return func(o *options) { o.onChange = fn }
}

// ConfigOptions translates the browsing settings in cfg into options.
func ConfigOptions(cfg *config.Config) []Option {
	return []Option{
		WithPerPage(cfg.PerPage),
		WithDebounceDelay(cfg.DebounceDelay()),
		WithStaleTime(cfg.StaleTime()),
		WithRetryPolicy(querycache.RetryPolicy{
			Retries:   cfg.FetchRetries,
			BaseDelay: constants.DefaultRetryBaseDelay,
			MaxDelay:  constants.DefaultRetryMaxDelay,
		}),
	}
}

// New returns a controller on page 1 with an empty search. Nothing is
// fetched until the first Refresh.
func New(service NotesService, opts ...Option) *Controller {
	o := options{
		perPage: constants.DefaultPerPage,
		delay:   constants.DefaultDebounceDelay,
		retry: querycache.RetryPolicy{
			Retries:   constants.DefaultFetchRetries,
			BaseDelay: constants.DefaultRetryBaseDelay,
			MaxDelay:  constants.DefaultRetryMaxDelay,
		},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.perPage < 1 {
		o.perPage = constants.DefaultPerPage
	}
	ownsCache := o.cache == nil
	if ownsCache {
		o.cache = querycache.New[*models.NotesPage](
			querycache.WithStaleTime(o.staleTime),
			querycache.WithRetryPolicy(o.retry),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		service:   service,
		cache:     o.cache,
		perPage:   o.perPage,
		onChange:  o.onChange,
		ownsCache: ownsCache,
		ctx:       ctx,
		cancel:    cancel,
		page:      1,
		inflight:  make(map[querycache.Key]uint64),
		changed:   make(chan struct{}),
	}
	c.search = debounce.New(o.delay, c.commitSearch)
	return c
}

// OnSearchChange records text as the search input and sends page back to 1.
// Leaving another page shows page 1 of the committed search right away; the
// search itself only changes once input has been quiet for the debounce
// delay.
func (c *Controller) OnSearchChange(text string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.searchInput = text
	pageChanged := c.page != 1
	c.page = 1
	c.touchLocked()
	c.mu.Unlock()

	c.search.Push(text)
	if pageChanged {
		c.Refresh()
		return
	}
	c.notify()
}

// FlushSearch commits a pending search edit without waiting for the quiet
// period. It reports whether there was one.
func (c *Controller) FlushSearch() bool {
	return c.search.Flush()
}

func (c *Controller) commitSearch(text string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	logger.Debug("Search settled on %q", text)
	c.debouncedSearch = text
	c.page = 1
	c.mu.Unlock()

	c.Refresh()
}

// OnPageChange moves to the zero-based page index reported by a pagination
// control. The index is clamped to the known page range.
func (c *Controller) OnPageChange(index int) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	page := index + 1
	if page < 1 {
		page = 1
	}
	if c.result != nil && c.result.TotalPages > 0 && page > c.result.TotalPages {
		page = c.result.TotalPages
	}
	c.page = page
	c.mu.Unlock()

	c.Refresh()
}

func (c *Controller) OpenCreateModal() {
	c.setModal(true)
}

func (c *Controller) CloseCreateModal() {
	c.setModal(false)
}

func (c *Controller) setModal(open bool) {
	c.mu.Lock()
	if c.closed || c.modalOpen == open {
		c.mu.Unlock()
		return
	}
	c.modalOpen = open
	c.touchLocked()
	c.mu.Unlock()

	c.notify()
}

// SubmitNote sends req to the notes service. On success the modal closes and
// every cached list is invalidated. Failures are returned as a CreateError
// and leave the modal as it was.
func (c *Controller) SubmitNote(ctx context.Context, req models.CreateNoteRequest) (*models.Note, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, &interrors.CreateError{Err: err}
	}

	note, err := c.service.CreateNote(ctx, req)
	if err != nil {
		logger.Warn("Failed to create note: %v", err)
		if !interrors.IsCreateError(err) {
			err = &interrors.CreateError{Err: err}
		}
		return nil, err
	}

	logger.Info("Created note %s", note.ID)
	c.OnNoteCreated()
	return note, nil
}

// OnNoteCreated closes the modal and invalidates every cached note list, so
// the current page is refetched.
func (c *Controller) OnNoteCreated() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.modalOpen = false
	c.mu.Unlock()

	c.invalidate()
}

// DeleteNote removes a note and invalidates every cached note list.
func (c *Controller) DeleteNote(ctx context.Context, id string) (*models.Note, error) {
	note, err := c.service.DeleteNote(ctx, id)
	if err != nil {
		return nil, err
	}

	logger.Info("Deleted note %s", id)
	c.invalidate()
	return note, nil
}

// Reload drops the cached result for the current key and fetches it again.
// Other cached pages are left alone.
func (c *Controller) Reload() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	key := c.keyLocked()
	c.mu.Unlock()

	c.cache.Invalidate(key)

	c.mu.Lock()
	c.epoch++
	c.mu.Unlock()

	c.Refresh()
}

func (c *Controller) invalidate() {
	c.cache.InvalidateNamespace(constants.NotesNamespace)

	c.mu.Lock()
	c.epoch++
	c.mu.Unlock()

	c.Refresh()
}

// Refresh brings the displayed result in line with the current key. A fresh
// cache entry is shown without fetching. Otherwise a fetch starts unless one
// for the same key is already running.
func (c *Controller) Refresh() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	key := c.keyLocked()
	entry, cached := c.cache.Get(key)
	if cached {
		c.result = entry.Value
		c.err = nil
	}
	if cached && !entry.Stale {
		c.touchLocked()
		c.mu.Unlock()
		c.notify()
		return
	}

	if epoch, ok := c.inflight[key]; ok && epoch == c.epoch {
		c.touchLocked()
		c.mu.Unlock()
		c.notify()
		return
	}
	epoch := c.epoch
	c.inflight[key] = epoch
	c.err = nil
	c.touchLocked()
	c.wg.Add(1)
	c.mu.Unlock()

	c.notify()
	go c.load(key, epoch)
}

// Render is an alias for Refresh.
func (c *Controller) Render() {
	c.Refresh()
}

func (c *Controller) load(key querycache.Key, epoch uint64) {
	defer c.wg.Done()

	page, err := c.cache.Fetch(c.ctx, key, func(ctx context.Context, k querycache.Key) (*models.NotesPage, error) {
		return c.service.FetchNotes(ctx, k.Page, k.PerPage, k.Search)
	})

	c.mu.Lock()
	if c.inflight[key] == epoch {
		delete(c.inflight, key)
	}
	if c.closed {
		c.mu.Unlock()
		return
	}
	if key != c.keyLocked() || epoch != c.epoch {
		logger.Debug("Discarding result for superseded key %s", key)
		c.mu.Unlock()
		return
	}

	if err != nil {
		logger.Error("Failed to fetch notes for %s: %v", key, err)
		if !interrors.IsFetchError(err) {
			err = &interrors.FetchError{Page: key.Page, PerPage: key.PerPage, Search: key.Search, Err: err}
		}
		c.err = err
	} else {
		c.result = page
		c.err = nil
	}
	c.touchLocked()
	c.mu.Unlock()

	c.notify()
}

// View returns a snapshot of the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Await blocks until no fetch for the current key is running and returns the
// resulting view.
func (c *Controller) Await(ctx context.Context) (View, error) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return View{}, interrors.ErrClosed
		}
		view := c.viewLocked()
		changed := c.changed
		c.mu.Unlock()

		if !view.Fetching {
			return view, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return view, ctx.Err()
		}
	}
}

// Goto commits search without debouncing, moves to the 1-based page and
// waits for the result. It serves callers without a live input stream.
func (c *Controller) Goto(ctx context.Context, page int, search string) (View, error) {
	current := c.View()
	if search != current.SearchInput || search != current.DebouncedSearch {
		c.search.Cancel()
		c.mu.Lock()
		c.searchInput = search
		c.mu.Unlock()
		c.commitSearch(search)
		if _, err := c.Await(ctx); err != nil {
			return View{}, err
		}
	}

	c.OnPageChange(page - 1)
	view, err := c.Await(ctx)
	if err != nil || view.TotalPages == 0 || view.Page <= view.TotalPages {
		return view, err
	}

	// page was out of range before the page count was known
	c.OnPageChange(view.TotalPages - 1)
	return c.Await(ctx)
}

// Close drops any pending search edit and waits for running fetches to
// return. A cache the controller created itself is emptied; a shared one is
// left for its other users.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.changed)
	c.mu.Unlock()

	c.search.Cancel()
	c.cancel()
	c.wg.Wait()

	if c.ownsCache {
		logger.Debug("Dropping %d cached note pages", c.cache.Len())
		c.cache.Clear()
	}
}

func (c *Controller) keyLocked() querycache.Key {
	return querycache.Key{
		Namespace: constants.NotesNamespace,
		Page:      c.page,
		Search:    c.debouncedSearch,
		PerPage:   c.perPage,
	}
}

func (c *Controller) viewLocked() View {
	_, fetching := c.inflight[c.keyLocked()]
	v := View{
		SearchInput:     c.searchInput,
		DebouncedSearch: c.debouncedSearch,
		Page:            c.page,
		PerPage:         c.perPage,
		ModalOpen:       c.modalOpen,
		Fetching:        fetching,
		Loading:         fetching && c.result == nil,
		Err:             c.err,
	}
	if c.result != nil {
		v.Notes = append([]models.Note(nil), c.result.Notes...)
		v.TotalPages = c.result.TotalPages
		v.ShowPagination = c.result.TotalPages > 1
	}
	return v
}

// touchLocked wakes Await callers.
func (c *Controller) touchLocked() {
	if c.closed {
		return
	}
	close(c.changed)
	c.changed = make(chan struct{})
}

func (c *Controller) notify() {
	if c.onChange == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.onChange(c.View())
}
