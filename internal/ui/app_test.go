package ui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/five82/shoplist/internal/catalog"
	"github.com/five82/shoplist/internal/identity"
	"github.com/five82/shoplist/internal/localcache"
	"github.com/five82/shoplist/internal/prefs"
	"github.com/five82/shoplist/internal/remote"
	"github.com/five82/shoplist/internal/state"
	"github.com/five82/shoplist/internal/syncer"
)

type fixture struct {
	ctrl      *syncer.Controller
	session   *identity.Session
	store     *remote.MemoryStore
	prefsPath string
	dir       string
}

func newFixture(t *testing.T) *fixture {
	return newFixtureOn(t, remote.NewMemoryStore())
}

// newFixtureOn builds a device sharing store with other fixtures.
func newFixtureOn(t *testing.T, store *remote.MemoryStore) *fixture {
	t.Helper()
	dir := t.TempDir()
	cache, err := localcache.Open(filepath.Join(dir, "cache.db"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	ctrl, err := syncer.New(syncer.Options{
		Cache:        cache,
		Store:        store,
		Logger:       zerolog.Nop(),
		WriteTimeout: time.Second,
		ReadTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("syncer.New: %v", err)
	}
	t.Cleanup(func() {
		ctrl.Close()
		_ = cache.Close()
	})
	return &fixture{
		ctrl:      ctrl,
		session:   identity.NewSession(identity.StaticProvider{}, cache),
		store:     store,
		prefsPath: filepath.Join(dir, "prefs.toml"),
		dir:       dir,
	}
}

func (f *fixture) model(t *testing.T) Model {
	t.Helper()
	m := New(Options{
		Controller: f.ctrl,
		Session:    f.session,
		Logger:     zerolog.Nop(),
		Prefs:      prefs.Defaults(),
		PrefsPath:  f.prefsPath,
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model)
}

func (f *fixture) signIn(t *testing.T, uid string) {
	t.Helper()
	eff, err := f.session.SignIn(context.Background(), uid)
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if err := f.ctrl.SetIdentity(context.Background(), eff); err != nil {
		t.Fatalf("SetIdentity: %v", err)
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatalf("expected a command")
	}
	next, _ := m.Update(cmd())
	return next.(Model)
}

func TestView_SignInScreenWhenSignedOut(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)

	view := m.View()
	if !strings.Contains(view, "Join with a share code") {
		t.Fatalf("sign-in view missing join hint:\n%s", view)
	}
}

func TestSignInPrompt_LoadsCatalog(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)

	m, _ = press(t, m, runes("s"))
	if m.modal == nil {
		t.Fatalf("s should open the sign-in prompt")
	}
	m, cmd := press(t, m, runes("alice"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.modal != nil {
		t.Fatalf("prompt should close on enter")
	}
	m = run(t, m, cmd)

	if !m.snapshot.Identity.Owner() || m.snapshot.Identity.OwnerID != "alice" {
		t.Fatalf("identity = %+v", m.snapshot.Identity)
	}
	if len(m.snapshot.Products) != len(catalog.SampleProducts()) {
		t.Fatalf("products = %d, want sample catalog", len(m.snapshot.Products))
	}
	if !strings.Contains(m.View(), "Mandarin Orange Chicken") {
		t.Fatalf("main view does not list products")
	}
}

func TestFavoritesAndCartKeys(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice")
	m := f.model(t)

	// First row is product 1, then move down to product 2.
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeySpace}, runes("j"), tea.KeyMsg{Type: tea.KeyEnter}, runes("a"))

	snap := f.ctrl.State().Snapshot()
	if !snap.Favorites.Contains(1) || len(snap.Favorites) != 1 {
		t.Fatalf("favorites = %v, want [1]", snap.Favorites)
	}
	if len(snap.Cart) != 2 || snap.Cart[0].ID != 2 || snap.Cart[1].ID != 2 {
		t.Fatalf("cart = %+v, want two lines of product 2", snap.Cart)
	}

	m, _ = press(t, m, runes("x"))
	if got := len(f.ctrl.State().Snapshot().Cart); got != 1 {
		t.Fatalf("cart after x = %d lines, want 1", got)
	}
	m, _ = press(t, m, runes("X"))
	if got := len(f.ctrl.State().Snapshot().Cart); got != 0 {
		t.Fatalf("cart after X = %d lines, want 0", got)
	}
	m, _ = press(t, m, runes("C"))
	if m.modal != nil || m.status.text != "Cart is empty" {
		t.Fatalf("checkout on empty cart: modal=%v status=%q", m.modal, m.status.text)
	}
}

func TestFavoritesTabAndCategoryFilter(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice")
	m := f.model(t)

	m, _ = press(t, m, runes("f"))
	if got := len(m.visibleProducts()); got != 0 {
		t.Fatalf("favorites tab shows %d products, want 0", got)
	}
	loaded, _ := prefs.Load(f.prefsPath)
	if loaded.Tab != prefs.TabFavorites {
		t.Fatalf("saved tab = %q, want favorites", loaded.Tab)
	}

	m, _ = press(t, m, runes("f"), runes("c"))
	for _, p := range m.visibleProducts() {
		if p.Category != catalog.Categories[0] {
			t.Fatalf("category filter let %s (%s) through", p.Name, p.Category)
		}
	}
}

func TestSearchFiltersProducts(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice")
	m := f.model(t)

	m, _ = press(t, m, runes("/"))
	m, typing := press(t, m, runes("cookie"))
	if typing == nil {
		t.Fatalf("typing should schedule a search update")
	}
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = run(t, m, cmd)

	if m.search != "cookie" {
		t.Fatalf("search = %q, want cookie", m.search)
	}
	visible := m.visibleProducts()
	if len(visible) != 2 {
		t.Fatalf("visible = %d products, want 2", len(visible))
	}
	for _, p := range visible {
		if !strings.Contains(strings.ToLower(p.Name), "cookie") {
			t.Fatalf("search let %q through", p.Name)
		}
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.search != "" || len(m.visibleProducts()) != 12 {
		t.Fatalf("esc did not clear the search")
	}
}

func TestProductForm_AddsProduct(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice")
	m := f.model(t)

	m, _ = press(t, m, runes("n"))
	if m.modal == nil {
		t.Fatalf("n should open the product form")
	}
	enter := tea.KeyMsg{Type: tea.KeyEnter}
	ctrlU := tea.KeyMsg{Type: tea.KeyCtrlU}
	m, cmd := press(t, m,
		runes("Plantains"), enter,
		runes("0.79"), enter,
		ctrlU, runes("produce"), enter,
		enter,
	)
	if m.modal != nil {
		t.Fatalf("form should close after the last field")
	}
	m = run(t, m, cmd)

	p, ok := m.selectedProduct()
	if !ok || p.Name != "Plantains" || p.ID != 13 || p.Category != catalog.Produce {
		t.Fatalf("selected = %+v, want new product 13", p)
	}
}

func TestProductForm_RejectsBadPrice(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice")
	m := f.model(t)

	enter := tea.KeyMsg{Type: tea.KeyEnter}
	m, _ = press(t, m, runes("n"))
	m, cmd := press(t, m, runes("Thing"), enter, runes("cheap"), enter, enter, enter)
	m = run(t, m, cmd)

	if !m.status.err || !strings.Contains(m.status.text, "invalid product") {
		t.Fatalf("status = %+v", m.status)
	}
	if got := len(f.ctrl.State().Snapshot().Products); got != len(catalog.SampleProducts()) {
		t.Fatalf("catalog changed to %d products", got)
	}
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice")
	m := f.model(t)

	m, _ = press(t, m, runes("d"))
	m, cmd := press(t, m, runes("n"))
	if cmd != nil || len(f.ctrl.State().Snapshot().Products) != 12 {
		t.Fatalf("declining should not delete")
	}
	m, _ = press(t, m, runes("d"))
	m, cmd = press(t, m, runes("y"))
	m = run(t, m, cmd)

	if _, ok := f.ctrl.State().Snapshot().Products.Find(1); ok {
		t.Fatalf("product 1 still present")
	}
	if m.status.text != "Deleted Mandarin Orange Chicken" {
		t.Fatalf("status = %q", m.status.text)
	}
}

func TestGuestCannotEditCatalog(t *testing.T) {
	f := newFixture(t)
	f.store.Put("owner-1", remote.Document{Products: catalog.SampleProducts()})
	eff, err := f.session.JoinAsGuest("owner-1")
	if err != nil {
		t.Fatalf("JoinAsGuest: %v", err)
	}
	if err := f.ctrl.SetIdentity(context.Background(), eff); err != nil {
		t.Fatalf("SetIdentity: %v", err)
	}
	m := f.model(t)

	for _, k := range []string{"n", "e", "d", "i", "S", "R"} {
		m, _ = press(t, m, runes(k))
		if m.modal != nil {
			t.Fatalf("%s opened a modal for a guest", k)
		}
		if !m.status.err {
			t.Fatalf("%s: status = %+v, want refusal", k, m.status)
		}
	}
	if strings.Contains(m.View(), "n/e/d") {
		t.Fatalf("guest command bar shows owner commands")
	}

	// Favorites still work for guests.
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	if !f.ctrl.State().Snapshot().Favorites.Contains(1) {
		t.Fatalf("guest favorite not applied")
	}
}

func TestJoinWithUnknownCodeStaysSignedOut(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)

	m, _ = press(t, m, runes("j"))
	m, cmd := press(t, m, runes("ABCD-EFGH"), tea.KeyMsg{Type: tea.KeyEnter})
	m = run(t, m, cmd)

	if !m.snapshot.Identity.None() {
		t.Fatalf("identity = %+v, want none", m.snapshot.Identity)
	}
	if m.status.text != "Invalid share code" {
		t.Fatalf("status = %q", m.status.text)
	}
}

func TestShareCodeIssueJoinAndLeave(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice")
	owner := f.model(t)

	owner, cmd := press(t, owner, runes("S"))
	owner = run(t, owner, cmd)
	code := owner.snapshot.ShareCode
	if code == "" || !strings.Contains(owner.status.text, code) {
		t.Fatalf("share code %q, status %q", code, owner.status.text)
	}

	f.ctrl.Wait()

	// A second device joins with the code.
	g := newFixtureOn(t, f.store)
	guestModel := g.model(t)

	guestModel, _ = press(t, guestModel, runes("j"))
	guestModel, cmd = press(t, guestModel, runes(strings.ToLower(code)), tea.KeyMsg{Type: tea.KeyEnter})
	guestModel = run(t, guestModel, cmd)
	if !guestModel.snapshot.Identity.Guest || guestModel.snapshot.Identity.OwnerID != "alice" {
		t.Fatalf("guest identity = %+v", guestModel.snapshot.Identity)
	}

	guestModel, cmd = press(t, guestModel, runes("L"))
	guestModel = run(t, guestModel, cmd)
	if !guestModel.snapshot.Identity.None() {
		t.Fatalf("after leave identity = %+v", guestModel.snapshot.Identity)
	}

	owner, cmd = press(t, owner, runes("R"))
	owner = run(t, owner, cmd)
	if owner.snapshot.ShareCode != "" {
		t.Fatalf("share code after revoke = %q", owner.snapshot.ShareCode)
	}
}

func TestExportAndImportPrompts(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice")
	m := f.model(t)

	out := filepath.Join(f.dir, "out.json")
	m, _ = press(t, m, runes("o"))
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlU}, runes(out), tea.KeyMsg{Type: tea.KeyEnter})
	m = run(t, m, cmd)
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("export not written: %v (status %q)", err, m.status.text)
	}
	if !strings.Contains(string(data), "Greek Yogurt") {
		t.Fatalf("export missing products")
	}

	in := filepath.Join(f.dir, "in.json")
	if err := os.WriteFile(in, []byte(`[{"name":"greek yogurt","price":1,"category":"Dairy"},{"name":"Figs","price":3.5,"category":"Produce"}]`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	m, _ = press(t, m, runes("i"))
	m, cmd = press(t, m, runes(in), tea.KeyMsg{Type: tea.KeyEnter})
	m = run(t, m, cmd)
	if m.status.text != "Imported 1 new products" {
		t.Fatalf("status = %q", m.status.text)
	}

	bad := filepath.Join(f.dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"not":"an array"}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	m, _ = press(t, m, runes("i"))
	m, cmd = press(t, m, runes(bad), tea.KeyMsg{Type: tea.KeyEnter})
	m = run(t, m, cmd)
	if !m.status.err {
		t.Fatalf("malformed import status = %+v", m.status)
	}
	if got := len(f.ctrl.State().Snapshot().Products); got != 13 {
		t.Fatalf("products = %d, want 13", got)
	}
}

func TestThemeCycleIsSaved(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)

	m, _ = press(t, m, runes("T"))
	if m.theme.Name != "Kanagawa" {
		t.Fatalf("theme = %q, want Kanagawa", m.theme.Name)
	}
	loaded, _ := prefs.Load(f.prefsPath)
	if loaded.Theme != "Kanagawa" {
		t.Fatalf("saved theme = %q", loaded.Theme)
	}
}

func TestChangeNotificationRefreshesSnapshot(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice")
	m := f.model(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wait := waitForChangeCmd(ctx, f.ctrl.State())
	if err := f.ctrl.AddToCart(5); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	msg := wait()
	m, next := press(t, m, msg)
	if next == nil {
		t.Fatalf("change handling should wait for the next change")
	}
	if len(m.snapshot.Cart) != 1 || m.snapshot.Cart[0].ID != 5 {
		t.Fatalf("cart = %+v", m.snapshot.Cart)
	}

	cancel()
	if got := waitForChangeCmd(ctx, &state.Store{})(); got != nil {
		t.Fatalf("cancelled wait returned %T", got)
	}
}
