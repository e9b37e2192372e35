package ui

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which the cart stacks under
	// the product list.
	LayoutCompactWidth = 100

	// LayoutWideWidth is the minimum width to show image URLs in the list.
	LayoutWideWidth = 150

	// CartPanelWidth is the cart column width in the side-by-side layout.
	CartPanelWidth = 38
)
