// Package telegram renders flow screens into Telegram messages and wires
// the storefront intents into the bot registry.
package telegram

import (
	"fmt"
	"strings"

	"github.com/m3rciful/shopbot/core/telegram/format"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/core/telegram/keyboard"
	"github.com/m3rciful/shopbot/shop/flow"

	tele "gopkg.in/telebot.v4"
)

// Callback uniques shared between keyboards and registry entries.
const (
	cbCategories = "cats"
	cbCategory   = "cat"
	cbProduct    = "view"
	cbAddToCart  = "add"
	cbIncrement  = "inc"
	cbDecrement  = "dec"
	cbCart       = "cart"
	cbCheckout   = "checkout"
	cbUseSaved   = "use_saved"
	cbEditData   = "edit_data"
	cbConfirm    = "confirm"
	cbEditOrder  = "edit_order"
	cbBack       = "back"
	cbHome       = "main"
	cbHistory    = "history"
	cbOrderOK    = "order_ok"
	cbOrderNo    = "order_no"
)

func (h *Handlers) price(v int64) string {
	return fmt.Sprintf("%d %s", v, h.currency)
}

// md escapes user-entered text interpolated into Markdown bodies.
func md(s string) string {
	escaped, err := format.EscapeMarkdown(s, format.MarkdownV1, "")
	if err != nil {
		return s
	}
	return escaped
}

// render turns a screen into an outgoing message. Callback-originated
// screens edit the triggering message where that reads naturally; the rest
// are sent fresh.
func (h *Handlers) render(c tele.Context, s flow.Screen) error {
	switch s.Kind {
	case flow.ScreenNone:
		return nil
	case flow.ScreenHome:
		return h.renderHome(c)
	case flow.ScreenCategories:
		return h.renderCategories(c, s)
	case flow.ScreenProducts:
		return h.renderProducts(c, s)
	case flow.ScreenProduct:
		return h.renderProduct(c, s)
	case flow.ScreenCart:
		return h.renderCart(c, s)
	case flow.ScreenCheckout:
		return h.renderCheckout(c, s)
	case flow.ScreenConfirm:
		return h.renderConfirm(c, s)
	case flow.ScreenHistory:
		return h.renderHistory(c, s)
	case flow.ScreenPrompt:
		return h.renderPrompt(c, s)
	case flow.ScreenNotice:
		return h.renderNotice(c, s)
	case flow.ScreenOrderPlaced:
		return tghelpers.EditOrSendMD(c,
			fmt.Sprintf("✅ Order *#%d* placed!\nWe will contact you shortly.", s.OrderID),
			homeMarkup())
	case flow.ScreenReviewed:
		verdict := "declined ❌"
		if s.Decision == "accepted" {
			verdict = "accepted ✅"
		}
		return tghelpers.EditOrSendMD(c, fmt.Sprintf("Order *#%d* %s", s.OrderID, verdict))
	}
	return nil
}

func homeMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "🛍 Catalog", Unique: cbCategories}},
		[]keyboard.InlineBtn{
			{Text: "🛒 Cart", Unique: cbCart},
			{Text: "📦 My orders", Unique: cbHistory},
		},
	)
}

func (h *Handlers) renderHome(c tele.Context) error {
	return tghelpers.EditOrSendMD(c, "Welcome! What would you like to do?", homeMarkup())
}

func (h *Handlers) renderCategories(c tele.Context, s flow.Screen) error {
	btns := make([]keyboard.InlineBtn, 0, len(s.Categories)+1)
	for _, cat := range s.Categories {
		btns = append(btns, keyboard.InlineBtn{Text: cat, Unique: cbCategory, Data: cat})
	}
	btns = append(btns, keyboard.InlineBtn{Text: "⬅️ Back", Unique: cbBack})
	return tghelpers.EditOrSendMD(c, "Choose a category:", keyboard.InlineButtons(btns))
}

func (h *Handlers) renderProducts(c tele.Context, s flow.Screen) error {
	btns := make([]keyboard.InlineBtn, 0, len(s.Products)+1)
	for _, p := range s.Products {
		btns = append(btns, keyboard.InlineBtn{
			Text:   fmt.Sprintf("%s · %s", p.Name, h.price(p.Price)),
			Unique: cbProduct,
			Data:   fmt.Sprintf("%d|%s", p.ID, s.Category),
		})
	}
	btns = append(btns, keyboard.InlineBtn{Text: "⬅️ Back", Unique: cbBack})
	title := fmt.Sprintf("*%s*", md(s.Category))
	return tghelpers.EditOrSendMD(c, title, keyboard.InlineButtons(btns))
}

func (h *Handlers) renderProduct(c tele.Context, s flow.Screen) error {
	p := s.Product
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n%s\n\nPrice: *%s*", md(p.Name), md(p.Description), h.price(p.Price))
	markup := keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "➕ Add to cart", Unique: cbAddToCart, Data: fmt.Sprintf("%d", p.ID)}},
		[]keyboard.InlineBtn{
			{Text: "⬅️ Back", Unique: cbBack},
			{Text: "🏠 Menu", Unique: cbHome},
		},
	)
	if p.ImageRef != "" {
		// Photo cards cannot be edited into a text message; send anew.
		photo := &tele.Photo{File: tele.File{FileID: p.ImageRef}, Caption: b.String()}
		return c.Send(photo, &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: markup})
	}
	return tghelpers.EditOrSendMD(c, b.String(), markup)
}

func (h *Handlers) renderCart(c tele.Context, s flow.Screen) error {
	if len(s.Items) == 0 {
		markup := keyboard.InlineButtonsRows(
			[]keyboard.InlineBtn{{Text: "🛍 Catalog", Unique: cbCategories}},
			[]keyboard.InlineBtn{{Text: "🏠 Menu", Unique: cbHome}},
		)
		return tghelpers.EditOrSendMD(c, "Your cart is empty.", markup)
	}

	var b strings.Builder
	b.WriteString("🛒 *Your cart*\n\n")
	rows := make([][]keyboard.InlineBtn, 0, len(s.Items)+2)
	for i, it := range s.Items {
		fmt.Fprintf(&b, "%d. %s × %d = %s\n", i+1, md(it.Product.Name), it.Qty, h.price(it.Sum()))
		id := fmt.Sprintf("%d", it.Product.ID)
		rows = append(rows, []keyboard.InlineBtn{
			{Text: "➖ " + it.Product.Name, Unique: cbDecrement, Data: id},
			{Text: "➕", Unique: cbIncrement, Data: id},
		})
	}
	fmt.Fprintf(&b, "\nTotal: *%s*", h.price(s.Total))
	rows = append(rows,
		[]keyboard.InlineBtn{{Text: "✅ Checkout", Unique: cbCheckout}},
		[]keyboard.InlineBtn{
			{Text: "⬅️ Back", Unique: cbBack},
			{Text: "🏠 Menu", Unique: cbHome},
		},
	)
	return tghelpers.EditOrSendMD(c, b.String(), keyboard.InlineButtonsRows(rows...))
}

func (h *Handlers) renderCheckout(c tele.Context, s flow.Screen) error {
	p := s.Profile
	text := fmt.Sprintf("We have your contact details:\n\n*%s*\n%s\n%s\n\nUse them for this order?",
		md(p.Name), p.Phone, md(p.Address))
	markup := keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "✅ Use saved details", Unique: cbUseSaved}},
		[]keyboard.InlineBtn{{Text: "✏️ Enter new details", Unique: cbEditData}},
		[]keyboard.InlineBtn{{Text: "⬅️ Back", Unique: cbBack}},
	)
	return tghelpers.EditOrSendMD(c, text, markup)
}

func (h *Handlers) renderConfirm(c tele.Context, s flow.Screen) error {
	var b strings.Builder
	b.WriteString("📋 *Order summary*\n\n")
	for i, it := range s.Items {
		fmt.Fprintf(&b, "%d. %s × %d = %s\n", i+1, md(it.Product.Name), it.Qty, h.price(it.Sum()))
	}
	fmt.Fprintf(&b, "\nTotal: *%s*\n\n", h.price(s.Total))
	fmt.Fprintf(&b, "Recipient: %s\nPhone: %s\nAddress: %s",
		md(s.Profile.Name), s.Profile.Phone, md(s.Profile.Address))
	markup := keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "✅ Confirm order", Unique: cbConfirm}},
		[]keyboard.InlineBtn{{Text: "✏️ Edit order", Unique: cbEditOrder}},
	)
	return tghelpers.EditOrSendMD(c, b.String(), markup)
}

func (h *Handlers) renderHistory(c tele.Context, s flow.Screen) error {
	if len(s.Orders) == 0 {
		markup := keyboard.InlineButtonsRows(
			[]keyboard.InlineBtn{{Text: "🛍 Catalog", Unique: cbCategories}},
			[]keyboard.InlineBtn{{Text: "🏠 Menu", Unique: cbHome}},
		)
		return tghelpers.EditOrSendMD(c, "You have no orders yet.", markup)
	}

	var b strings.Builder
	b.WriteString("📦 *Your recent orders*\n")
	for _, o := range s.Orders {
		fmt.Fprintf(&b, "\n*#%d* — %s — %s\n", o.ID, h.price(o.Total), statusLabel(o.Status))
		for _, line := range o.Lines {
			fmt.Fprintf(&b, "  · %s × %d\n", md(line.Name), line.Qty)
		}
	}
	markup := keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "⬅️ Back", Unique: cbBack},
			{Text: "🏠 Menu", Unique: cbHome},
		},
	)
	return tghelpers.EditOrSendMD(c, b.String(), markup)
}

func statusLabel(status string) string {
	switch status {
	case "accepted":
		return "accepted ✅"
	case "declined":
		return "declined ❌"
	default:
		return "pending ⏳"
	}
}

func (h *Handlers) renderPrompt(c tele.Context, s flow.Screen) error {
	var text string
	switch s.Prompt {
	case flow.PromptName:
		text = "Enter your name:"
	case flow.PromptPhone:
		text = "Enter your phone number in the format +7XXXXXXXXXX:"
	case flow.PromptAddress:
		text = "Enter your delivery address:"
	case flow.PromptProductName:
		text = "Enter the product name:"
	case flow.PromptProductDesc:
		text = "Enter the product description:"
	case flow.PromptProductPrice:
		text = "Enter the price (whole number):"
	case flow.PromptProductCategory:
		text = "Enter the category:"
	case flow.PromptProductPhoto:
		text = "Send a product photo, or type \"none\" to skip:"
	}
	if s.Invalid {
		text = "That doesn't look right. " + text
	}
	return tghelpers.SendText(c, text)
}

func (h *Handlers) renderNotice(c tele.Context, s flow.Screen) error {
	switch s.Notice {
	case flow.NoticeAddedToCart:
		return tghelpers.SendText(c, "Added to cart ✅")
	case flow.NoticeCatalogEmpty:
		return tghelpers.SendText(c, "The catalog is empty for now. Check back later!")
	case flow.NoticeCategoryEmpty:
		return tghelpers.SendText(c, "No products in this category yet.")
	case flow.NoticeProductAdded:
		return tghelpers.SendMD(c,
			fmt.Sprintf("Product *%s* added for %s.", md(s.Product.Name), h.price(s.Product.Price)))
	case flow.NoticeProfileMissing:
		return tghelpers.SendText(c, "Your contact details are missing. Please start checkout again.")
	}
	return nil
}

// adminPingMessage builds the new-order notification for the admin chat.
func (h *Handlers) adminPingMessage(ping *flow.AdminPing) (string, *tele.ReplyMarkup) {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 *New order #%d*\n\n", ping.OrderID)
	for i, line := range ping.Lines {
		fmt.Fprintf(&b, "%d. %s × %d = %s\n", i+1, md(line.Name), line.Qty, h.price(line.Sum()))
	}
	fmt.Fprintf(&b, "\nTotal: *%s*\n\n", h.price(ping.Total))
	fmt.Fprintf(&b, "Customer: %s\nPhone: %s\nAddress: %s",
		md(ping.Profile.Name), ping.Profile.Phone, md(ping.Profile.Address))

	id := fmt.Sprintf("%d", ping.OrderID)
	markup := keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "✅ Accept", Unique: cbOrderOK, Data: id},
			{Text: "❌ Decline", Unique: cbOrderNo, Data: id},
		},
	)
	return b.String(), markup
}
