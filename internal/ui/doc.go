// Package ui provides the shoplist terminal user interface.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. Model holds the latest state snapshot plus
// purely visual state (selection, filters, theme, open modal). It never
// mutates catalog data itself: every action goes through the Controller,
// which applies it to the shared state.Store, and the model re-reads that
// store after the call or when the store signals a change.
//
// # Package Structure
//
//   - app.go: Model, key dispatch and the Run entry point
//   - commands.go: messages and the tea.Cmds that talk to the controller and session
//   - view.go: header, command bar, product and cart panes, sign-in screen
//   - modal.go: prompt, product form, confirmation and message dialogs
//   - keys.go, help.go: key bindings and the help overlay
//   - theme.go, style_helpers.go: palettes and lipgloss helpers
//
// # Screens
//
// With no effective identity the sign-in screen is shown. It offers sign-in
// and joining a shared list with a share code. Once an identity is active the
// main screen shows the filtered product list beside the cart.
//
// # Owner and Guest
//
// Catalog editing, import and share-code management are owner-only. For
// guests those keys are refused with a status message and hidden from the
// command bar and help. Favorites and cart changes are available to both.
//
// # Refresh
//
// waitForChangeCmd blocks on state.Store.Changed and delivers a fresh
// snapshot, then re-arms itself. Network work (sign-in, join, share codes)
// runs inside tea.Cmds so the interface stays responsive.
package ui
