package telegram

import (
	"context"
	"strconv"
	"strings"

	"github.com/m3rciful/shopbot/core/logger"
	tg "github.com/m3rciful/shopbot/core/telegram"
	"github.com/m3rciful/shopbot/core/telegram/callbacks"
	"github.com/m3rciful/shopbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/shop/flow"

	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// Handlers binds the conversation engine to bot commands and callbacks.
type Handlers struct {
	engine   *flow.Engine
	currency string
	adminID  int64
}

// NewHandlers builds the handler set for the given engine.
func NewHandlers(engine *flow.Engine, currency string, adminID int64) *Handlers {
	if currency == "" {
		currency = "RUB"
	}
	return &Handlers{engine: engine, currency: currency, adminID: adminID}
}

// Register wires commands, callbacks and form states into the registry.
func (h *Handlers) Register(reg *tg.Registry) error {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.onStart,
		Description: "Open the main menu",
	})
	reg.RegisterCommand("/history", commands.Command{
		Handler:     h.onHistory,
		Description: "Show your recent orders",
	})
	reg.RegisterCommand("/add_product", commands.Command{
		Handler:     h.onAddProduct,
		Description: "Add a product to the catalog",
		AdminOnly:   true,
		Hidden:      true,
	})

	cbs := map[string]tele.HandlerFunc{
		cbCategories: h.onCategories,
		cbCategory:   h.onCategory,
		cbProduct:    h.onProduct,
		cbAddToCart:  h.onAddToCart,
		cbIncrement:  h.onIncrement,
		cbDecrement:  h.onDecrement,
		cbCart:       h.onCart,
		cbCheckout:   h.onCheckout,
		cbUseSaved:   h.onUseSaved,
		cbEditData:   h.onEditData,
		cbConfirm:    h.onConfirm,
		cbEditOrder:  h.onEditOrder,
		cbBack:       h.onBack,
		cbHome:       h.onHome,
		cbHistory:    h.onHistoryCallback,
		cbOrderOK:    h.onOrderAccept,
		cbOrderNo:    h.onOrderDecline,
	}
	for key, handler := range cbs {
		if err := reg.RegisterCallback(key, handler); err != nil {
			return err
		}
	}

	formStates := []state.State{
		flow.StateCheckoutName,
		flow.StateCheckoutPhone,
		flow.StateCheckoutAddress,
		flow.StateProductName,
		flow.StateProductDesc,
		flow.StateProductPrice,
		flow.StateProductCategory,
		flow.StateProductPhoto,
	}
	for _, st := range formStates {
		state.RegisterHandler(st, h.onFormInput)
	}
	return nil
}

// PhotoRoute handles photo uploads, which the text router does not cover.
// Photos outside an active form are ignored.
func (h *Handlers) PhotoRoute(fsm state.Manager) tg.Route {
	return tg.Route{
		Endpoint: tele.OnPhoto,
		Handler: func(c tele.Context) error {
			if fsm.InProgress(c.Sender().ID) {
				return fsm.ManagerHandler(c)
			}
			return nil
		},
	}
}

// show renders the screen and, on success, records it in the navigation
// history. The engine holds the session lock across both steps so racing
// taps cannot leave the stack top out of step with the message on screen,
// and a failed render leaves the stack untouched.
func (h *Handlers) show(c tele.Context, s flow.Screen) error {
	return h.engine.Present(c.Sender().ID, s, func() error {
		return h.render(c, s)
	})
}

// run executes an engine intent and renders the result. Domain errors are
// surfaced to the user and returned so handler summaries carry the code.
func (h *Handlers) run(c tele.Context, fn func(ctx context.Context, sessionID int64) (flow.Screen, error)) error {
	ctx := tghelpers.BuildContext(c)
	s, err := fn(ctx, c.Sender().ID)
	if err != nil {
		if msg := userMessage(err); msg != "" {
			_ = tghelpers.SendText(c, msg)
		}
		return err
	}
	return h.show(c, s)
}

func userMessage(err error) string {
	switch err {
	case flow.ErrEmptyCart:
		return "Your cart is empty. Add something first!"
	case flow.ErrNotFound:
		return "That item is no longer available."
	case flow.ErrUnauthorized:
		return "This action is not available to you."
	}
	return ""
}

func (h *Handlers) onStart(c tele.Context) error {
	return h.run(c, h.engine.Start)
}

func (h *Handlers) onHome(c tele.Context) error {
	return h.run(c, h.engine.Home)
}

func (h *Handlers) onHistory(c tele.Context) error {
	return h.run(c, h.engine.History)
}

func (h *Handlers) onHistoryCallback(c tele.Context) error {
	return h.run(c, h.engine.History)
}

func (h *Handlers) onAddProduct(c tele.Context) error {
	return h.run(c, h.engine.BeginProductEntry)
}

func (h *Handlers) onCategories(c tele.Context) error {
	return h.run(c, h.engine.Categories)
}

func (h *Handlers) onCategory(c tele.Context) error {
	category := callbacks.CallbackPayload(c)
	return h.run(c, func(ctx context.Context, sid int64) (flow.Screen, error) {
		return h.engine.ProductsIn(ctx, sid, category)
	})
}

func (h *Handlers) onProduct(c tele.Context) error {
	parts, err := callbacks.PayloadParts(c, "|")
	if err != nil || len(parts) == 0 {
		return h.run(c, h.engine.Home)
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return h.run(c, h.engine.Home)
	}
	var category string
	if len(parts) > 1 {
		category = parts[1]
	}
	return h.run(c, func(ctx context.Context, sid int64) (flow.Screen, error) {
		return h.engine.Product(ctx, sid, id, category)
	})
}

func (h *Handlers) onAddToCart(c tele.Context) error {
	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return err
	}
	return h.run(c, func(ctx context.Context, sid int64) (flow.Screen, error) {
		return h.engine.AddToCart(ctx, sid, id)
	})
}

func (h *Handlers) onIncrement(c tele.Context) error {
	return h.adjust(c, 1)
}

func (h *Handlers) onDecrement(c tele.Context) error {
	return h.adjust(c, -1)
}

func (h *Handlers) adjust(c tele.Context, delta int) error {
	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return err
	}
	return h.run(c, func(ctx context.Context, sid int64) (flow.Screen, error) {
		return h.engine.AdjustQuantity(ctx, sid, id, delta)
	})
}

func (h *Handlers) onCart(c tele.Context) error {
	return h.run(c, h.engine.Cart)
}

func (h *Handlers) onCheckout(c tele.Context) error {
	return h.run(c, h.engine.Checkout)
}

func (h *Handlers) onUseSaved(c tele.Context) error {
	return h.run(c, h.engine.UseSavedProfile)
}

func (h *Handlers) onEditData(c tele.Context) error {
	return h.run(c, h.engine.EditProfile)
}

func (h *Handlers) onEditOrder(c tele.Context) error {
	return h.run(c, h.engine.EditOrder)
}

func (h *Handlers) onBack(c tele.Context) error {
	return h.run(c, h.engine.Back)
}

func (h *Handlers) onConfirm(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	s, ping, err := h.engine.ConfirmOrder(ctx, c.Sender().ID)
	if err != nil {
		if msg := userMessage(err); msg != "" {
			_ = tghelpers.SendText(c, msg)
		}
		return err
	}
	if ping != nil {
		h.notifyAdmin(c, ctx, ping)
	}
	return h.show(c, s)
}

func (h *Handlers) notifyAdmin(c tele.Context, ctx context.Context, ping *flow.AdminPing) {
	if h.adminID == 0 {
		return
	}
	text, markup := h.adminPingMessage(ping)
	_, err := c.Bot().Send(tele.ChatID(h.adminID), text,
		&tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: markup})
	if err != nil {
		logger.TG.LogAttrs(ctx, slog.LevelWarn, "order.notify.failed",
			slog.Int64("order_id", ping.OrderID),
			slog.String("err", err.Error()),
		)
	}
}

func (h *Handlers) onOrderAccept(c tele.Context) error {
	return h.review(c, true)
}

func (h *Handlers) onOrderDecline(c tele.Context) error {
	return h.review(c, false)
}

func (h *Handlers) review(c tele.Context, accept bool) error {
	orderID, err := callbacks.PayloadInt64(c)
	if err != nil {
		return err
	}
	ctx := tghelpers.BuildContext(c)
	s, err := h.engine.Review(ctx, c.Sender().ID, orderID, accept)
	if err != nil {
		if msg := userMessage(err); msg != "" {
			_ = tghelpers.SendText(c, msg)
		}
		return err
	}
	return h.render(c, s)
}

// onFormInput feeds the active form. Photo messages carry the uploaded
// image; everything else is treated as text.
func (h *Handlers) onFormInput(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	sid := c.Sender().ID

	var (
		s   flow.Screen
		err error
	)
	if msg := c.Message(); msg != nil && msg.Photo != nil {
		s, err = h.engine.SubmitPhoto(ctx, sid, msg.Photo.FileID)
	} else {
		s, err = h.engine.SubmitText(ctx, sid, strings.TrimSpace(c.Text()))
	}
	if err != nil {
		if m := userMessage(err); m != "" {
			_ = tghelpers.SendText(c, m)
		}
		return err
	}
	return h.show(c, s)
}
