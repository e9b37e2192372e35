package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/shoplist/internal/catalog"
	"github.com/five82/shoplist/internal/sharecode"
	"github.com/five82/shoplist/internal/state"
)

// Messages

type snapshotMsg state.Snapshot

// changedMsg carries the snapshot read after a change notification.
type changedMsg state.Snapshot

type searchMsg string

// statusMsg reports the outcome of an action. A non-nil cause marks it as a
// failure and is logged.
type statusMsg struct {
	text  string
	err   bool
	cause error
}

type productFormMsg struct {
	product catalog.Product
	editing bool
}

// Commands

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// waitForChangeCmd blocks until the store changes or ctx ends.
func waitForChangeCmd(ctx context.Context, store *state.Store) tea.Cmd {
	changed := store.Changed()
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			return changedMsg(store.Snapshot())
		}
	}
}

func signInCmd(ctx context.Context, session Session, ctrl Controller, credential string) tea.Cmd {
	return func() tea.Msg {
		eff, err := session.SignIn(ctx, credential)
		if err != nil {
			return statusMsg{text: "Sign in failed", cause: err}
		}
		if err := ctrl.SetIdentity(ctx, eff); err != nil {
			return statusMsg{text: "Signed in, working from the local cache", cause: err}
		}
		return statusMsg{text: "Signed in as " + eff.Label()}
	}
}

func joinCmd(ctx context.Context, session Session, ctrl Controller, code string) tea.Cmd {
	return func() tea.Msg {
		owner, err := ctrl.JoinWithCode(ctx, code)
		if err != nil {
			if errors.Is(err, sharecode.ErrNotFound) || errors.Is(err, sharecode.ErrInvalidCode) {
				return statusMsg{text: "Invalid share code", err: true}
			}
			return statusMsg{text: "Join failed", cause: err}
		}
		eff, err := session.JoinAsGuest(owner)
		if err != nil {
			return statusMsg{text: "Join failed", cause: err}
		}
		if err := ctrl.SetIdentity(ctx, eff); err != nil {
			return statusMsg{text: "Joined, working from the local cache", cause: err}
		}
		return statusMsg{text: "Joined shared list"}
	}
}

func signOutCmd(ctx context.Context, session Session, ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		eff, err := session.SignOut()
		if err != nil {
			return statusMsg{text: "Sign out failed", cause: err}
		}
		if err := ctrl.SetIdentity(ctx, eff); err != nil {
			return statusMsg{text: "Sign out failed", cause: err}
		}
		return statusMsg{text: "Signed out"}
	}
}

func issueCodeCmd(ctx context.Context, ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		code, err := ctrl.IssueShareCode(ctx)
		if err != nil {
			return statusMsg{text: "Could not issue a share code", cause: err}
		}
		return statusMsg{text: "Share code " + code + " is active"}
	}
}

func revokeCodeCmd(ctx context.Context, ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		if err := ctrl.RevokeShareCode(ctx); err != nil {
			return statusMsg{text: "Could not revoke the share code", cause: err}
		}
		return statusMsg{text: "Share code revoked"}
	}
}

func importCmd(ctrl Controller, path string) tea.Cmd {
	return func() tea.Msg {
		if path == "" {
			return statusMsg{text: "Import cancelled: no file given", err: true}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return statusMsg{text: "Import failed", cause: err}
		}
		added, err := ctrl.ImportProducts(data)
		if err != nil {
			return statusMsg{text: "Import failed", cause: err}
		}
		return statusMsg{text: fmt.Sprintf("Imported %d new products", added)}
	}
}

func exportCmd(ctrl Controller, path string) tea.Cmd {
	return func() tea.Msg {
		if path == "" {
			return statusMsg{text: "Export cancelled: no file given", err: true}
		}
		data, err := ctrl.ExportProducts()
		if err != nil {
			return statusMsg{text: "Export failed", cause: err}
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return statusMsg{text: "Export failed", cause: err}
		}
		return statusMsg{text: "Exported catalog to " + path}
	}
}

// productForm edits p. Fields are name, price, category and image URL.
func productForm(p catalog.Product, editing bool) *formModal {
	price := ""
	if editing {
		price = strconv.FormatFloat(p.Price, 'f', 2, 64)
	}
	categories := make([]string, len(catalog.Categories))
	for i, c := range catalog.Categories {
		categories[i] = string(c)
	}
	title := ternary(editing, "Edit product", "New product")
	return newForm(title, "Categories: "+strings.Join(categories, ", "), []formField{
		newField("Name", p.Name, "Bananas", 80),
		newField("Price", price, "0.99", 12),
		newField("Category", string(p.Category), "Produce", 12),
		newField("Image", p.ImageURL, "https://...", 256),
	}, func(values []string) tea.Cmd {
		return func() tea.Msg {
			draft, err := parseProductForm(values)
			if err != nil {
				return statusMsg{text: "Product not saved", cause: err}
			}
			draft.ID = p.ID
			return productFormMsg{product: draft, editing: editing}
		}
	})
}

func parseProductForm(values []string) (catalog.Product, error) {
	price, err := strconv.ParseFloat(values[1], 64)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("price %q: %w", values[1], catalog.ErrInvalidProduct)
	}
	category, ok := catalog.ParseCategory(values[2])
	if !ok {
		return catalog.Product{}, fmt.Errorf("category %q: %w", values[2], catalog.ErrInvalidProduct)
	}
	return catalog.Product{
		Name:     values[0],
		Price:    price,
		Category: category,
		ImageURL: values[3],
	}, nil
}

func (m *Model) submitProduct(msg productFormMsg) {
	if msg.editing {
		m.report(m.ctrl.EditProduct(msg.product), "Saved "+msg.product.Name)
		return
	}
	added, err := m.ctrl.AddProduct(msg.product)
	m.report(err, "Added "+added.Name)
	if err == nil {
		m.search, m.category, m.favoritesOnly = "", "", false
		for i, p := range m.visibleProducts() {
			if p.ID == added.ID {
				m.selectedRow = i
			}
		}
	}
}
