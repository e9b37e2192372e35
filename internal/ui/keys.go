package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	Escape     key.Binding

	// Navigation
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding

	// Catalog browsing
	Search         key.Binding
	CycleCategory  key.Binding
	ToggleFavsTab  key.Binding
	CycleSort      key.Binding
	AddToCart      key.Binding
	ToggleFavorite key.Binding

	// Cart
	RemoveLine key.Binding
	ClearCart  key.Binding
	Checkout   key.Binding

	// Owner only
	NewProduct    key.Binding
	EditProduct   key.Binding
	DeleteProduct key.Binding
	Import        key.Binding
	IssueCode     key.Binding
	RevokeCode    key.Binding

	// Everyone signed in
	Export  key.Binding
	SignOut key.Binding

	// Sign-in screen
	SignIn key.Binding
	Join   key.Binding

	// Modals
	Confirm   key.Binding
	NextField key.Binding
	PrevField key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "Products/cart focus"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Clear search and filters"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),

		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Search products"),
		),
		CycleCategory: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Cycle category"),
		),
		ToggleFavsTab: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "All/favorites tab"),
		),
		CycleSort: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Cycle sort"),
		),
		AddToCart: key.NewBinding(
			key.WithKeys("enter", "a"),
			key.WithHelp("enter/a", "Add to cart"),
		),
		ToggleFavorite: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("Space", "Toggle favorite"),
		),

		RemoveLine: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Remove cart line"),
		),
		ClearCart: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "Clear cart"),
		),
		Checkout: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "Checkout summary"),
		),

		NewProduct: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "New product"),
		),
		EditProduct: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "Edit product"),
		),
		DeleteProduct: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Delete product"),
		),
		Import: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "Import JSON"),
		),
		IssueCode: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "Issue share code"),
		),
		RevokeCode: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Revoke share code"),
		),

		Export: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "Export JSON"),
		),
		SignOut: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Sign out / leave"),
		),

		SignIn: key.NewBinding(
			key.WithKeys("s", "enter"),
			key.WithHelp("s", "Sign in"),
		),
		Join: key.NewBinding(
			key.WithKeys("j"),
			key.WithHelp("j", "Join with a share code"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "Next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "Previous field"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view. Owner-only bindings
// are left out for guests.
func (k keyMap) FullHelp(owner bool) [][]key.Binding {
	groups := [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom, k.Tab},
		{k.Search, k.CycleCategory, k.ToggleFavsTab, k.CycleSort, k.Escape},
		{k.AddToCart, k.ToggleFavorite, k.RemoveLine, k.ClearCart, k.Checkout},
	}
	if owner {
		groups = append(groups, []key.Binding{
			k.NewProduct, k.EditProduct, k.DeleteProduct, k.Import, k.IssueCode, k.RevokeCode,
		})
	}
	groups = append(groups, []key.Binding{k.Export, k.SignOut, k.CycleTheme, k.Help, k.Quit})
	return groups
}
