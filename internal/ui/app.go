package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/five82/shoplist/internal/catalog"
	"github.com/five82/shoplist/internal/identity"
	"github.com/five82/shoplist/internal/prefs"
	"github.com/five82/shoplist/internal/state"
)

// Controller is the slice of the sync controller the UI drives.
type Controller interface {
	State() *state.Store
	SetIdentity(ctx context.Context, id identity.Effective) error

	ToggleFavorite(id int64) error
	AddToCart(id int64) error
	RemoveFromCart(index int) error
	ClearCart() error

	AddProduct(draft catalog.Product) (catalog.Product, error)
	EditProduct(p catalog.Product) error
	DeleteProduct(id int64) error
	ImportProducts(data []byte) (int, error)
	ExportProducts() ([]byte, error)

	IssueShareCode(ctx context.Context) (string, error)
	RevokeShareCode(ctx context.Context) error
	JoinWithCode(ctx context.Context, code string) (string, error)
}

// Session is the identity state the sign-in screen changes.
type Session interface {
	SignIn(ctx context.Context, credential string) (identity.Effective, error)
	JoinAsGuest(ownerID string) (identity.Effective, error)
	SignOut() (identity.Effective, error)
}

// pane identifies which list has the cursor.
type pane int

const (
	paneProducts pane = iota
	paneCart
)

// Options configures the UI.
type Options struct {
	Context    context.Context
	Controller Controller
	Session    Session
	Logger     zerolog.Logger
	Prefs      prefs.Prefs
	PrefsPath  string
	// CredentialHint describes what the sign-in prompt expects.
	CredentialHint string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx            context.Context
	ctrl           Controller
	session        Session
	store          *state.Store
	log            zerolog.Logger
	prefsPath      string
	credentialHint string

	// UI state
	keys   keyMap
	theme  Theme
	width  int
	height int
	ready  bool
	focus  pane

	// Data state
	snapshot state.Snapshot

	// Product list state
	selectedRow   int
	cartRow       int
	search        string
	category      catalog.Category
	favoritesOnly bool
	sortOrder     catalog.SortOrder

	// Overlays
	showHelp bool
	modal    Modal

	status status
}

// status is the one-line message under the panes.
type status struct {
	text string
	err  bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	hint := opts.CredentialHint
	if hint == "" {
		hint = "Enter your user id."
	}

	m := Model{
		ctx:            ctx,
		ctrl:           opts.Controller,
		session:        opts.Session,
		log:            opts.Logger.With().Str("component", "ui").Logger(),
		prefsPath:      prefsPath,
		credentialHint: hint,
		keys:           DefaultKeyMap(),
		theme:          GetTheme(opts.Prefs.Theme),
		favoritesOnly:  opts.Prefs.Tab == prefs.TabFavorites,
		sortOrder:      catalog.SortOrder(opts.Prefs.Sort),
	}
	if m.ctrl != nil {
		m.store = m.ctrl.State()
		m.snapshot = m.store.Snapshot()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.store == nil {
		return nil
	}
	return tea.Batch(fetchSnapshotCmd(m.store), waitForChangeCmd(m.ctx, m.store))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case snapshotMsg:
		m.applySnapshot(state.Snapshot(msg))
		return m, nil

	case changedMsg:
		m.applySnapshot(state.Snapshot(msg))
		return m, waitForChangeCmd(m.ctx, m.store)

	case statusMsg:
		m.setStatus(msg)
		m.refresh()
		return m, nil

	case searchMsg:
		m.search = string(msg)
		m.selectedRow = 0
		return m, nil

	case productFormMsg:
		m.submitProduct(msg)
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.snapshot.Identity.None() {
		return m.renderSignIn()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.modal != nil {
		next, cmd, done := m.modal.Update(msg, m.keys)
		if done {
			m.modal = nil
		} else {
			m.modal = next
		}
		return m, cmd
	}

	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil
	}

	if m.snapshot.Identity.None() {
		return m.handleSignInKey(msg)
	}
	return m.handleMainKey(msg)
}

func (m Model) handleSignInKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.SignIn):
		m.modal = newPrompt("Sign in", m.credentialHint, "", "credential", func(cred string) tea.Cmd {
			return signInCmd(m.ctx, m.session, m.ctrl, cred)
		})
	case key.Matches(msg, m.keys.Join):
		m.modal = newPrompt("Join a shared list", "Enter the share code you were given.", "", "XXXX-XXXX", func(code string) tea.Cmd {
			return joinCmd(m.ctx, m.session, m.ctrl, code)
		})
	}
	return m, nil
}

func (m Model) handleMainKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Tab):
		m.focus = ternaryPane(m.focus == paneProducts, paneCart, paneProducts)
	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)
	case key.Matches(msg, m.keys.Top):
		m.moveSelection(-1 << 30)
	case key.Matches(msg, m.keys.Bottom):
		m.moveSelection(1 << 30)

	case key.Matches(msg, m.keys.Escape):
		m.search, m.category, m.favoritesOnly = "", "", false
		m.selectedRow = 0
		m.savePrefs()
	case key.Matches(msg, m.keys.Search):
		m.modal = searchModal{newPrompt("Search products", "Matches product names, ignoring case.", m.search, "name", func(q string) tea.Cmd {
			return func() tea.Msg { return searchMsg(q) }
		})}
	case key.Matches(msg, m.keys.CycleCategory):
		m.category = catalog.NextCategory(m.category)
		m.selectedRow = 0
	case key.Matches(msg, m.keys.ToggleFavsTab):
		m.favoritesOnly = !m.favoritesOnly
		m.selectedRow = 0
		m.savePrefs()
	case key.Matches(msg, m.keys.CycleSort):
		m.sortOrder = catalog.NextSort(m.sortOrder)
		m.savePrefs()

	case key.Matches(msg, m.keys.AddToCart):
		if p, ok := m.selectedProduct(); ok {
			m.report(m.ctrl.AddToCart(p.ID), "Added "+p.Name+" to cart")
		}
	case key.Matches(msg, m.keys.ToggleFavorite):
		if p, ok := m.selectedProduct(); ok {
			fav := m.snapshot.Favorites.Contains(p.ID)
			m.report(m.ctrl.ToggleFavorite(p.ID), ternary(fav, "Removed "+p.Name+" from favorites", "Added "+p.Name+" to favorites"))
		}
	case key.Matches(msg, m.keys.RemoveLine):
		if n := len(m.snapshot.Cart); n > 0 {
			row := clamp(m.cartRow, 0, n-1)
			m.report(m.ctrl.RemoveFromCart(row), "Removed "+m.snapshot.Cart[row].Name+" from cart")
		}
	case key.Matches(msg, m.keys.ClearCart):
		if len(m.snapshot.Cart) > 0 {
			m.report(m.ctrl.ClearCart(), "Cart cleared")
		}
	case key.Matches(msg, m.keys.Checkout):
		if len(m.snapshot.Cart) == 0 {
			m.setStatus(statusMsg{text: "Cart is empty"})
			break
		}
		m.modal = messageModal{title: "Checkout", body: m.snapshot.Cart.CheckoutSummary()}

	case key.Matches(msg, m.keys.Export):
		m.modal = newPrompt("Export catalog", "Write the catalog as JSON to this file.", "shoplist-products.json", "path", func(path string) tea.Cmd {
			return exportCmd(m.ctrl, path)
		})
	case key.Matches(msg, m.keys.SignOut):
		return m, signOutCmd(m.ctx, m.session, m.ctrl)

	case key.Matches(msg, m.keys.NewProduct),
		key.Matches(msg, m.keys.EditProduct),
		key.Matches(msg, m.keys.DeleteProduct),
		key.Matches(msg, m.keys.Import),
		key.Matches(msg, m.keys.IssueCode),
		key.Matches(msg, m.keys.RevokeCode):
		return m.handleOwnerKey(msg)
	}
	return m, nil
}

// handleOwnerKey serves catalog editing and share codes, which guests may not use.
func (m Model) handleOwnerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.snapshot.Identity.Owner() {
		m.setStatus(statusMsg{text: "Only the list owner can do that", err: true})
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.NewProduct):
		m.modal = productForm(catalog.Product{Category: catalog.Produce}, false)
	case key.Matches(msg, m.keys.EditProduct):
		if p, ok := m.selectedProduct(); ok {
			m.modal = productForm(p, true)
		}
	case key.Matches(msg, m.keys.DeleteProduct):
		if p, ok := m.selectedProduct(); ok {
			ctrl := m.ctrl
			m.modal = confirmModal{
				question: "Delete " + p.Name + "? It is also removed from favorites and the cart.",
				onYes: func() tea.Msg {
					if err := ctrl.DeleteProduct(p.ID); err != nil {
						return statusMsg{text: "Delete failed", cause: err}
					}
					return statusMsg{text: "Deleted " + p.Name}
				},
			}
		}
	case key.Matches(msg, m.keys.Import):
		m.modal = newPrompt("Import catalog", "Read a JSON array of products from this file.", "", "path", func(path string) tea.Cmd {
			return importCmd(m.ctrl, path)
		})
	case key.Matches(msg, m.keys.IssueCode):
		return m, issueCodeCmd(m.ctx, m.ctrl)
	case key.Matches(msg, m.keys.RevokeCode):
		if m.snapshot.ShareCode == "" {
			m.setStatus(statusMsg{text: "No active share code"})
			return m, nil
		}
		return m, revokeCodeCmd(m.ctx, m.ctrl)
	}
	return m, nil
}

func (m *Model) moveSelection(delta int) {
	if m.focus == paneCart {
		m.cartRow = clamp(m.cartRow+delta, 0, len(m.snapshot.Cart)-1)
		return
	}
	m.selectedRow = clamp(m.selectedRow+delta, 0, len(m.visibleProducts())-1)
}

func (m Model) visibleProducts() catalog.Products {
	return catalog.Filter(m.snapshot.Products, catalog.Query{
		Search:        m.search,
		Category:      m.category,
		FavoritesOnly: m.favoritesOnly,
		Favorites:     m.snapshot.Favorites,
		Sort:          m.sortOrder,
	})
}

func (m Model) selectedProduct() (catalog.Product, bool) {
	visible := m.visibleProducts()
	if len(visible) == 0 {
		return catalog.Product{}, false
	}
	return visible[clamp(m.selectedRow, 0, len(visible)-1)], true
}

// report shows ok on success and err otherwise, then picks up the new state.
func (m *Model) report(err error, ok string) {
	if err != nil {
		m.setStatus(statusMsg{text: "Action failed", cause: err})
	} else {
		m.setStatus(statusMsg{text: ok})
	}
	m.refresh()
}

func (m *Model) setStatus(msg statusMsg) {
	if msg.cause != nil {
		m.log.Warn().Err(msg.cause).Msg(msg.text)
		m.status = status{text: msg.text + ": " + msg.cause.Error(), err: true}
		return
	}
	m.status = status{text: msg.text, err: msg.err}
}

func (m *Model) refresh() {
	if m.store != nil {
		m.applySnapshot(m.store.Snapshot())
	}
}

func (m *Model) applySnapshot(snap state.Snapshot) {
	if snap.Identity.OwnerID != m.snapshot.Identity.OwnerID {
		m.selectedRow, m.cartRow, m.focus = 0, 0, paneProducts
	}
	m.snapshot = snap
	m.selectedRow = clamp(m.selectedRow, 0, len(m.visibleProducts())-1)
	m.cartRow = clamp(m.cartRow, 0, len(snap.Cart)-1)
}

func (m Model) savePrefs() {
	p := prefs.Prefs{
		Theme: m.theme.Name,
		Tab:   ternary(m.favoritesOnly, prefs.TabFavorites, prefs.TabAll),
		Sort:  string(m.sortOrder),
	}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.log.Warn().Err(err).Str("path", m.prefsPath).Msg("saving preferences")
	}
}

func ternaryPane(cond bool, a, b pane) pane {
	if cond {
		return a
	}
	return b
}

// searchModal applies the query as it is typed.
type searchModal struct {
	*formModal
}

func (s searchModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	next, cmd, done := s.formModal.Update(msg, keys)
	if done {
		return next, cmd, true
	}
	query := strings.TrimSpace(s.fields[0].input.Value())
	return s, tea.Batch(cmd, func() tea.Msg { return searchMsg(query) }), false
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
