package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
)

// DefaultPageSize is used when ConsoleOptions.PageSize is not positive.
const DefaultPageSize = 10

// ViewState is one user's view of the catalog.
type ViewState struct {
	Page       int
	PageSize   int
	Search     string
	SortField  SortField
	SortDir    SortDir
	Items      []Product // last fetched page, unfiltered
	Selected   *Product  // open detail, nil when closed
	Categories []Category
}

// Offset returns the remote offset of the current page.
func (s ViewState) Offset() int {
	return (s.Page - 1) * s.PageSize
}

// CanPrev reports whether a previous page exists.
func (s ViewState) CanPrev() bool {
	return s.Page > 1
}

// CanNext reports whether the last fetch filled the page. A short page is
// taken as the last one; a catalog that is an exact multiple of the page
// size therefore shows one extra empty page.
func (s ViewState) CanNext() bool {
	return len(s.Items) >= s.PageSize
}

// View is an immutable snapshot of a console for rendering.
type View struct {
	State      ViewState
	Projection []Product
	CanPrev    bool
	CanNext    bool
	Edit       EditorView
	Create     EditorView
}

// EditorView is a snapshot of an Editor.
type EditorView struct {
	State       SubmitState
	TargetID    int
	Form        FormInput
	FieldError  *ValidationError
	SubmitError error
}

func snapshotEditor(e *Editor) EditorView {
	return EditorView{
		State:       e.State(),
		TargetID:    e.TargetID(),
		Form:        e.Form(),
		FieldError:  e.FieldError(),
		SubmitError: e.SubmitError(),
	}
}

// ConsoleOptions configures a Console.
type ConsoleOptions struct {
	PageSize int
	Logger   *slog.Logger
}

// Console owns a ViewState and funnels every change through a named
// transition. After each transition the projection is recomputed and handed
// to the Presenter.
//
// Flows that call the remote API (fetches, saves, creates) are exclusive:
// starting one while another is in flight returns ErrBusy instead of
// queuing a duplicate request. The state lock is held only to read inputs
// and to apply results, never across a remote call, so rendering, search,
// sort and export stay available while a flow is in flight. Transitions
// that change the selection or an editor are refused with ErrBusy until the
// flow ends.
type Console struct {
	mu        sync.Mutex
	busy      atomic.Bool
	state     ViewState
	data      DataAccess
	presenter Presenter
	edit      *Editor
	create    *Editor
	logger    *slog.Logger
}

// NewConsole returns a console on page 1 with no data loaded.
func NewConsole(data DataAccess, presenter Presenter, opts ConsoleOptions) *Console {
	if presenter == nil {
		presenter = NopPresenter{}
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Console{
		state: ViewState{
			Page:     1,
			PageSize: opts.PageSize,
			SortDir:  SortAsc,
		},
		data:      data,
		presenter: presenter,
		edit:      NewEditor(FlowEdit, presenter),
		create:    NewEditor(FlowCreate, presenter),
		logger:    opts.Logger,
	}
}

// exclusive runs fn as a remote flow. fn takes the state lock itself around
// each step that touches state.
func (c *Console) exclusive(fn func() error) error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer c.busy.Store(false)
	return fn()
}

// locked runs fn under the state lock.
func (c *Console) locked(fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn()
}

// guarded is locked for transitions that must not interleave with a flow.
func (c *Console) guarded(fn func() error) error {
	return c.locked(func() error {
		if c.busy.Load() {
			return ErrBusy
		}
		return fn()
	})
}

// Busy reports whether a remote flow is in flight.
func (c *Console) Busy() bool {
	return c.busy.Load()
}

// View returns a snapshot for rendering.
func (c *Console) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state
	st.Items = slices.Clone(st.Items)
	st.Categories = slices.Clone(st.Categories)
	if st.Selected != nil {
		sel := *st.Selected
		st.Selected = &sel
	}
	return View{
		State:      st,
		Projection: c.projection(),
		CanPrev:    st.CanPrev(),
		CanNext:    st.CanNext(),
		Edit:       snapshotEditor(c.edit),
		Create:     snapshotEditor(c.create),
	}
}

func (c *Console) projection() []Product {
	return Project(c.state.Items, c.state.Search, c.state.SortField, c.state.SortDir)
}

// notify is the explicit "state changed" step.
func (c *Console) notify() {
	c.presenter.OnProjectionChanged(c.projection())
}

func (c *Console) alert(level AlertLevel, msg string) {
	c.presenter.OnAlert(Alert{Level: level, Message: msg})
}

func (c *Console) alertErr(level AlertLevel, prefix string, err error) {
	um := MapError(err)
	c.presenter.OnAlert(Alert{
		Level:   level,
		Message: fmt.Sprintf("%s: %s", prefix, errorDetail(err)),
		Code:    um.Code,
	})
}

// errorDetail returns the message most useful to the user: the API's own
// message when there is one, otherwise the mapped user message.
func errorDetail(err error) string {
	var ne *NetworkError
	if errors.As(err, &ne) && ne.Message != "" {
		return ne.Message
	}
	return MapError(err).Message
}

// Init loads categories and the first page.
func (c *Console) Init(ctx context.Context) error {
	return c.exclusive(func() error {
		c.loadCategories(ctx)
		return c.load(ctx)
	})
}

// loadCategories never fails the caller; the console falls back to an
// empty category set.
func (c *Console) loadCategories(ctx context.Context) {
	cats, err := c.data.ListCategories(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.logger.Warn("load categories failed", "error", err)
		c.state.Categories = nil
		c.alertErr(AlertWarning, "Could not load categories, the category list may be empty", err)
		return
	}
	c.state.Categories = cats
}

// load fetches the current page and replaces Items wholesale. On failure
// Items becomes empty and the error is surfaced. Must run inside exclusive.
func (c *Console) load(ctx context.Context) error {
	var page, offset, size int
	_ = c.locked(func() error {
		c.state.Selected = nil
		c.edit.Reset()
		page, offset, size = c.state.Page, c.state.Offset(), c.state.PageSize
		return nil
	})

	items, err := c.data.ListProducts(ctx, offset, size)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state.Items = nil
		c.logger.Warn("load products failed",
			"page", page,
			"page_size", size,
			"error", err,
		)
		var shape *DataShapeError
		if errors.As(err, &shape) {
			c.alertErr(AlertWarning, "Unexpected product list from the API", err)
		} else {
			c.alertErr(AlertDanger, "Failed to load products", err)
		}
		c.notify()
		return err
	}

	c.state.Items = items
	c.logger.Debug("products loaded", "page", page, "page_size", size, "count", len(items))
	c.notify()
	return nil
}

// Reload re-fetches the current page. Used to retry after a failure.
func (c *Console) Reload(ctx context.Context) error {
	return c.exclusive(func() error {
		return c.load(ctx)
	})
}

// NextPage advances when the last fetch filled the page. It reports whether
// it moved; a no-op returns false and no error.
func (c *Console) NextPage(ctx context.Context) (bool, error) {
	moved := false
	err := c.exclusive(func() error {
		_ = c.locked(func() error {
			if c.state.CanNext() {
				c.state.Page++
				moved = true
			}
			return nil
		})
		if !moved {
			return nil
		}
		return c.load(ctx)
	})
	return moved, err
}

// PrevPage goes back one page when not on the first.
func (c *Console) PrevPage(ctx context.Context) (bool, error) {
	moved := false
	err := c.exclusive(func() error {
		_ = c.locked(func() error {
			if c.state.CanPrev() {
				c.state.Page--
				moved = true
			}
			return nil
		})
		if !moved {
			return nil
		}
		return c.load(ctx)
	})
	return moved, err
}

// SetPageSize changes the page size and returns to page 1.
func (c *Console) SetPageSize(ctx context.Context, size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPageSize, size)
	}
	return c.exclusive(func() error {
		_ = c.locked(func() error {
			c.state.PageSize = size
			c.state.Page = 1
			return nil
		})
		return c.load(ctx)
	})
}

// SetSearch updates the search term. No fetch happens. An open detail that
// the new term filters out is closed.
func (c *Console) SetSearch(search string) {
	_ = c.locked(func() error {
		c.state.Search = search
		proj := c.projection()
		if sel := c.state.Selected; sel != nil && c.edit.State() != Submitting &&
			!slices.ContainsFunc(proj, func(p Product) bool { return p.ID == sel.ID }) {
			c.state.Selected = nil
			c.edit.Reset()
		}
		c.presenter.OnProjectionChanged(proj)
		return nil
	})
}

// ToggleSort applies the user's pick of a sort column.
func (c *Console) ToggleSort(field SortField) {
	_ = c.locked(func() error {
		c.state.SortField, c.state.SortDir = NextSort(c.state.SortField, c.state.SortDir, field)
		c.notify()
		return nil
	})
}

// SetSort sets field and direction directly.
func (c *Console) SetSort(field SortField, dir SortDir) {
	_ = c.locked(func() error {
		c.state.SortField, c.state.SortDir = field, dir
		c.notify()
		return nil
	})
}

// OpenDetail selects a product from the current projection.
func (c *Console) OpenDetail(id int) error {
	return c.guarded(func() error {
		for _, p := range c.projection() {
			if p.ID == id {
				sel := p
				c.state.Selected = &sel
				c.edit.Reset()
				return nil
			}
		}
		return fmt.Errorf("%w: #%d", ErrNotFound, id)
	})
}

// CloseDetail clears the selection and discards any open edit.
func (c *Console) CloseDetail() error {
	return c.guarded(func() error {
		c.state.Selected = nil
		c.edit.Reset()
		return nil
	})
}

// BeginEdit switches the open detail to its edit form.
func (c *Console) BeginEdit() error {
	return c.guarded(func() error {
		if c.state.Selected == nil {
			return ErrNoSelection
		}
		return c.edit.Begin(c.state.Selected.ID, FormFromProduct(*c.state.Selected))
	})
}

// CancelEdit returns the detail to Viewing, discarding edits.
func (c *Console) CancelEdit() error {
	return c.guarded(func() error {
		return c.edit.Cancel()
	})
}

// SaveEdit submits the edit form. On success the detail closes and the
// current page is reloaded; on failure the entered values stay in the form.
func (c *Console) SaveEdit(ctx context.Context, in FormInput) (Product, error) {
	var saved Product
	err := c.exclusive(func() error {
		var sub submission
		if err := c.locked(func() error {
			if c.state.Selected == nil {
				return ErrNoSelection
			}
			var err error
			if sub, err = c.edit.prepare(in); err != nil {
				c.submitFailed("Update failed", err)
			}
			return err
		}); err != nil {
			return err
		}

		p, sendErr := sub.send(ctx, c.data)

		if err := c.locked(func() error {
			res, err := c.edit.complete(p, sendErr)
			if err != nil {
				c.submitFailed("Update failed", err)
				return err
			}
			saved = res
			c.alert(AlertSuccess, fmt.Sprintf("Updated #%d (%s)", res.ID, res.Title))
			c.state.Selected = nil
			return nil
		}); err != nil {
			return err
		}

		_ = c.load(ctx)
		return nil
	})
	return saved, err
}

// OpenCreate opens the create form with defaults.
func (c *Console) OpenCreate() error {
	return c.guarded(func() error {
		if c.create.State() != Viewing {
			return nil
		}
		return c.create.Begin(0, NewProductForm(c.state.Categories))
	})
}

// CancelCreate closes the create form.
func (c *Console) CancelCreate() error {
	return c.guarded(func() error {
		return c.create.Cancel()
	})
}

// Create submits the create form. On success the console returns to page 1
// and reloads; on failure the entered values stay in the form.
func (c *Console) Create(ctx context.Context, in FormInput) (Product, error) {
	var created Product
	err := c.exclusive(func() error {
		var sub submission
		if err := c.locked(func() error {
			if c.create.State() == Viewing {
				if err := c.create.Begin(0, in); err != nil {
					return err
				}
			}
			var err error
			if sub, err = c.create.prepare(in); err != nil {
				c.submitFailed("Create failed", err)
			}
			return err
		}); err != nil {
			return err
		}

		p, sendErr := sub.send(ctx, c.data)

		if err := c.locked(func() error {
			res, err := c.create.complete(p, sendErr)
			if err != nil {
				c.submitFailed("Create failed", err)
				return err
			}
			created = res
			c.alert(AlertSuccess, fmt.Sprintf("Created #%d (%s)", res.ID, res.Title))
			c.state.Page = 1
			return nil
		}); err != nil {
			return err
		}

		_ = c.load(ctx)
		return nil
	})
	return created, err
}

func (c *Console) submitFailed(prefix string, err error) {
	var ve ValidationError
	if errors.As(err, &ve) {
		c.alert(AlertWarning, ve.Message)
		return
	}
	c.logger.Warn("submit failed", "error", err)
	c.alertErr(AlertDanger, prefix, err)
}

// ExportCSV serializes the current projection and names the file after the
// current page.
func (c *Console) ExportCSV() (filename, body string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	body, err = ToCSV(c.projection())
	if err != nil {
		return "", "", err
	}
	return ExportFilename(c.state.Page, c.state.PageSize), body, nil
}
