package flow

import (
	"github.com/m3rciful/shopbot/shop/cart"
	"github.com/m3rciful/shopbot/shop/catalog"
	"github.com/m3rciful/shopbot/shop/navigation"
	"github.com/m3rciful/shopbot/shop/orders"
)

// ScreenKind discriminates the Screen union. Only a subset of kinds is
// navigable; see Screen.Frame.
type ScreenKind string

const (
	// ScreenNone means the event produced no visible change.
	ScreenNone ScreenKind = "none"
	// ScreenHome is the main menu.
	ScreenHome ScreenKind = "home"
	// ScreenCategories lists catalog categories.
	ScreenCategories ScreenKind = "categories"
	// ScreenProducts lists products of one category.
	ScreenProducts ScreenKind = "products"
	// ScreenProduct shows a single product card.
	ScreenProduct ScreenKind = "product"
	// ScreenCart shows the cart contents, possibly empty.
	ScreenCart ScreenKind = "cart"
	// ScreenCheckout offers the saved profile for reuse.
	ScreenCheckout ScreenKind = "checkout"
	// ScreenConfirm shows the final order summary before placement.
	ScreenConfirm ScreenKind = "confirm"
	// ScreenHistory lists the session's recent orders.
	ScreenHistory ScreenKind = "history"
	// ScreenPrompt asks the user for the next form field.
	ScreenPrompt ScreenKind = "prompt"
	// ScreenNotice carries a short status message.
	ScreenNotice ScreenKind = "notice"
	// ScreenOrderPlaced confirms a persisted order.
	ScreenOrderPlaced ScreenKind = "order_placed"
	// ScreenReviewed confirms an admin accept/decline decision.
	ScreenReviewed ScreenKind = "reviewed"
)

// PromptKind names the form field a ScreenPrompt asks for.
type PromptKind string

const (
	PromptName    PromptKind = "name"
	PromptPhone   PromptKind = "phone"
	PromptAddress PromptKind = "address"

	PromptProductName     PromptKind = "product_name"
	PromptProductDesc     PromptKind = "product_desc"
	PromptProductPrice    PromptKind = "product_price"
	PromptProductCategory PromptKind = "product_category"
	PromptProductPhoto    PromptKind = "product_photo"
)

// NoticeKind names a short status message for the renderer to phrase.
type NoticeKind string

const (
	NoticeCatalogEmpty   NoticeKind = "catalog_empty"
	NoticeCategoryEmpty  NoticeKind = "category_empty"
	NoticeAddedToCart    NoticeKind = "added_to_cart"
	NoticeProductAdded   NoticeKind = "product_added"
	NoticeProfileMissing NoticeKind = "profile_missing"
)

// Screen is a transport-independent description of what to show next.
// Kind selects the variant; the payload fields relevant to that kind are
// populated, the rest stay zero.
type Screen struct {
	Kind ScreenKind

	Categories []string
	Category   string
	Products   []catalog.Product
	Product    catalog.Product

	Items []cart.Item
	Total int64

	Profile orders.Profile
	Orders  []orders.Summary
	OrderID int64
	// Decision is "accepted" or "declined" on ScreenReviewed.
	Decision string

	Prompt PromptKind
	// Invalid marks a re-prompt after failed validation.
	Invalid bool

	Notice NoticeKind
}

// Frame maps a navigable screen to its history frame. Prompts, notices and
// terminal confirmations are not navigable and return false.
func (s Screen) Frame() (navigation.Frame, bool) {
	switch s.Kind {
	case ScreenCategories:
		return navigation.Frame{Kind: navigation.KindCategories}, true
	case ScreenProducts:
		return navigation.Frame{Kind: navigation.KindProducts, Category: s.Category}, true
	case ScreenProduct:
		return navigation.Frame{Kind: navigation.KindProduct, Category: s.Category, ProductID: s.Product.ID}, true
	case ScreenCart:
		return navigation.Frame{Kind: navigation.KindCart}, true
	case ScreenCheckout, ScreenConfirm:
		return navigation.Frame{Kind: navigation.KindCheckout}, true
	case ScreenHistory:
		return navigation.Frame{Kind: navigation.KindHistory}, true
	}
	return navigation.Frame{}, false
}
