package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/shoplist/internal/catalog"
	"github.com/five82/shoplist/internal/state"
)

const logo = "shoplist"

// renderMain renders the header, command bar, panes and status line.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderPanes())
	b.WriteString("\n")
	b.WriteString(m.renderStatusLine())
	return b.String()
}

// renderHeader shows who is signed in and how fresh the data is.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	snap := m.snapshot

	parts := []string{bg.Render(logo, styles.Logo)}

	phase := snap.Phase.String()
	if snap.IsOffline() {
		phase = "offline"
	}
	parts = append(parts, styles.BadgeStyle(phase).Render(strings.ToUpper(phase)))

	if snap.Identity.Guest {
		parts = append(parts, styles.BadgeStyle("guest").Render("GUEST"))
	}
	parts = append(parts, bg.Render(truncate(snap.Identity.Label(), 32), styles.Text))

	parts = append(parts,
		bg.Render("Products:", styles.MutedText)+bg.Spaces(1)+
			bg.Render(fmt.Sprintf("%d", len(snap.Products)), styles.Text),
		bg.Render("Cart:", styles.MutedText)+bg.Spaces(1)+
			bg.Render(fmt.Sprintf("%d · %s", len(snap.Cart), formatPrice(snap.Cart.Total())), styles.Text),
	)

	if snap.Identity.Owner() && snap.ShareCode != "" {
		parts = append(parts,
			bg.Render("Code:", styles.MutedText)+bg.Spaces(1)+bg.Render(snap.ShareCode, styles.WarningText))
	}

	if m.width >= LayoutCompactWidth {
		if !snap.LastSynced.IsZero() {
			parts = append(parts, bg.Render("synced "+humanizeSince(time.Since(snap.LastSynced)), styles.FaintText))
		}
		if snap.LastError != nil {
			parts = append(parts, bg.Render(truncate(snap.LastError.Error(), 40), styles.DangerText))
		}
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, bg.Spaces(2)))
}

// renderCommandBar renders the command hints for the current identity.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	commands := []cmd{
		{"/", ternary(m.search == "", "Search", "/"+truncate(m.search, 12))},
		{"c", ternary(m.category == "", "All", string(m.category))},
		{"f", ternary(m.favoritesOnly, "Favorites", "All items")},
		{"s", sortLabel(m.sortOrder)},
		{"enter", "Cart+"},
		{"Space", "Fav"},
		{"C", "Checkout"},
	}
	if m.snapshot.Identity.Owner() {
		commands = append(commands, cmd{"n/e/d", "Edit"}, cmd{"S", "Share"})
	}
	commands = append(commands, cmd{"L", ternary(m.snapshot.Identity.Guest, "Leave", "Sign out")}, cmd{"?", "More"})

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}

func sortLabel(s catalog.SortOrder) string {
	if s == catalog.SortNone {
		return "Unsorted"
	}
	return "By " + string(s)
}

// renderPanes lays out the product list and the cart side by side, or
// stacked on narrow terminals.
func (m Model) renderPanes() string {
	contentHeight := m.height - 3
	if contentHeight < 6 {
		contentHeight = 6
	}

	if m.width < LayoutCompactWidth {
		cartHeight := minInt(len(m.snapshot.Cart)+3, contentHeight/3)
		if cartHeight < 4 {
			cartHeight = 4
		}
		productHeight := contentHeight - cartHeight
		products := m.renderTitledBox(m.productsTitle(), m.renderProductRows(m.width-2, productHeight-2), m.width, productHeight, m.focus == paneProducts)
		cart := m.renderTitledBox(m.cartTitle(), m.renderCartRows(m.width-2, cartHeight-2), m.width, cartHeight, m.focus == paneCart)
		return lipgloss.JoinVertical(lipgloss.Left, products, cart)
	}

	cartWidth := CartPanelWidth
	productWidth := m.width - cartWidth
	products := m.renderTitledBox(m.productsTitle(), m.renderProductRows(productWidth-2, contentHeight-2), productWidth, contentHeight, m.focus == paneProducts)
	cart := m.renderTitledBox(m.cartTitle(), m.renderCartRows(cartWidth-2, contentHeight-2), cartWidth, contentHeight, m.focus == paneCart)
	return lipgloss.JoinHorizontal(lipgloss.Top, products, cart)
}

func (m Model) productsTitle() string {
	visible := len(m.visibleProducts())
	title := ternary(m.favoritesOnly, "Favorites", "Products")
	if visible != len(m.snapshot.Products) {
		return fmt.Sprintf("%s (%d/%d)", title, visible, len(m.snapshot.Products))
	}
	return fmt.Sprintf("%s (%d)", title, visible)
}

func (m Model) cartTitle() string {
	return fmt.Sprintf("Cart %s", formatPrice(m.snapshot.Cart.Total()))
}

// renderProductRows renders the window of product rows around the selection.
func (m Model) renderProductRows(width, rows int) string {
	styles := m.theme.Styles()
	bgColor := ternary(m.focus == paneProducts, m.theme.FocusBg, m.theme.SurfaceAlt)

	visible := m.visibleProducts()
	if len(visible) == 0 {
		msg := "No products"
		switch {
		case m.snapshot.Phase == state.PhaseLoading:
			msg = "Loading..."
		case m.snapshot.OwnerMissing:
			msg = "The shared list no longer exists"
		case m.favoritesOnly:
			msg = "No favorites yet. Press space on a product."
		case m.search != "" || m.category != "":
			msg = "Nothing matches. Press esc to clear filters."
		}
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color(m.theme.Muted)).
			Background(lipgloss.Color(bgColor)).
			Render(msg)
	}

	start, end := window(m.selectedRow, len(visible), rows)
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		p := visible[i]
		selected := i == m.selectedRow && m.focus == paneProducts
		rowBg := ternary(selected, m.theme.SelectionBg, bgColor)
		bg := NewBgStyle(rowBg)

		text := styles.Text
		if selected {
			text = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		}
		fav := ternary(m.snapshot.Favorites.Contains(p.ID), "★", " ")
		inCart := ternary(catalog.InCart(m.snapshot.Cart, p.ID), "✓", " ")

		nameWidth := width - 30
		if m.width >= LayoutWideWidth {
			nameWidth = width/2 - 20
		}
		row := bg.Render(fav, styles.WarningText) + bg.Spaces(1) +
			bg.Render(inCart, styles.SuccessText) + bg.Spaces(1) +
			bg.Render(padRight(truncate(p.Name, nameWidth), nameWidth), text) + bg.Spaces(1) +
			styles.BadgeStyle(string(p.Category)).Render(padRight(string(p.Category), 8)) + bg.Spaces(1) +
			bg.Render(fmt.Sprintf("%8s", formatPrice(p.Price)), text)
		if m.width >= LayoutWideWidth && p.ImageURL != "" {
			row += bg.Spaces(2) + bg.Render(truncate(p.ImageURL, width/2-8), styles.FaintText)
		}
		lines = append(lines, NewBgStyle(rowBg).FillLine(row, width))
	}
	return strings.Join(lines, "\n")
}

// renderCartRows renders cart lines in insertion order.
func (m Model) renderCartRows(width, rows int) string {
	styles := m.theme.Styles()
	bgColor := ternary(m.focus == paneCart, m.theme.FocusBg, m.theme.SurfaceAlt)

	cart := m.snapshot.Cart
	if len(cart) == 0 {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color(m.theme.Muted)).
			Background(lipgloss.Color(bgColor)).
			Render("Cart is empty")
	}

	start, end := window(m.cartRow, len(cart), rows)
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		line := cart[i]
		selected := i == m.cartRow && m.focus == paneCart
		rowBg := ternary(selected, m.theme.SelectionBg, bgColor)
		bg := NewBgStyle(rowBg)
		text := styles.Text
		if selected {
			text = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		}
		nameWidth := width - 10
		row := bg.Render(padRight(truncate(line.Name, nameWidth), nameWidth), text) +
			bg.Render(fmt.Sprintf("%9s", formatPrice(line.Price)), text)
		lines = append(lines, bg.FillLine(row, width))
	}
	return strings.Join(lines, "\n")
}

// window returns the [start,end) slice of n rows that keeps sel visible.
func window(sel, n, rows int) (int, int) {
	if rows <= 0 || n <= rows {
		return 0, n
	}
	start := sel - rows + 1
	if start < 0 {
		start = 0
	}
	return start, start + rows
}

func (m Model) renderStatusLine() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	if m.status.text == "" {
		return bg.FillLine("", m.width)
	}
	style := ternaryStyle(m.status.err, styles.DangerText, styles.Text)
	return styles.Footer.Width(m.width).Render(bg.Render(truncate(m.status.text, m.width-2), style))
}

// renderSignIn is shown while there is no effective identity.
func (m Model) renderSignIn() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Logo.Render(logo))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 36)))
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Render("Keep a product catalog, favorites and a cart"))
	b.WriteString("\n")
	b.WriteString(styles.Text.Render("in sync across your devices."))
	b.WriteString("\n\n")

	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Warning)).Width(8)
	for _, item := range []struct{ key, desc string }{
		{"s", "Sign in"},
		{"j", "Join with a share code"},
		{"T", "Cycle theme"},
		{"q", "Quit"},
	} {
		b.WriteString(keyStyle.Render(item.key))
		b.WriteString(styles.Text.Render(item.desc))
		b.WriteString("\n")
	}
	if m.status.text != "" {
		b.WriteString("\n")
		b.WriteString(ternaryStyle(m.status.err, styles.DangerText, styles.MutedText).Render(m.status.text))
	}
	return placeModal(m.theme, m.width, m.height, b.String(), 52)
}

// renderTitledBox draws a bordered pane with the title embedded in the top
// border.
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	borderColor := ternary(focused, m.theme.BorderFocus, m.theme.Border)
	bgColor := ternary(focused, m.theme.FocusBg, m.theme.SurfaceAlt)
	bg := NewBgStyle(bgColor)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColor))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	innerWidth := width - 2
	if innerWidth < 4 {
		innerWidth = 4
	}
	title = truncate(title, innerWidth-4)
	titleLen := lipgloss.Width(title)
	leftPad := (innerWidth - titleLen - 2) / 2
	rightPad := innerWidth - titleLen - 2 - leftPad

	top := bg.Render("┌", borderStyle) +
		bg.Render(strings.Repeat("─", leftPad), borderStyle) +
		bg.Render(" "+title+" ", titleStyle) +
		bg.Render(strings.Repeat("─", rightPad), borderStyle) +
		bg.Render("┐", borderStyle)
	bottom := bg.Render("└", borderStyle) +
		bg.Render(strings.Repeat("─", innerWidth), borderStyle) +
		bg.Render("┘", borderStyle)

	contentStyle := lipgloss.NewStyle().Width(innerWidth).MaxWidth(innerWidth).Background(lipgloss.Color(bgColor))
	contentLines := strings.Split(content, "\n")
	lines := make([]string, 0, height)
	lines = append(lines, top)
	for i := 0; i < height-2; i++ {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		lines = append(lines, bg.Render("│", borderStyle)+contentStyle.Render(line)+bg.Render("│", borderStyle))
	}
	lines = append(lines, bottom)
	return strings.Join(lines, "\n")
}

func humanizeSince(d time.Duration) string {
	switch {
	case d < 5*time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}

func ternaryStyle(cond bool, a, b lipgloss.Style) lipgloss.Style {
	if cond {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
