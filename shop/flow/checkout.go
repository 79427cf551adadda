package flow

import (
	"context"
	"regexp"
	"strings"

	"log/slog"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/shop/orders"
)

// Checkout form states.
const (
	StateCheckoutName    state.State = "checkout_name"
	StateCheckoutPhone   state.State = "checkout_phone"
	StateCheckoutAddress state.State = "checkout_address"
)

const (
	tempName  = "checkout_name"
	tempPhone = "checkout_phone"
)

// phoneRe accepts +7 followed by exactly ten digits.
var phoneRe = regexp.MustCompile(`^\+7\d{10}$`)

// AdminPing carries the data for the new-order notification sent to the
// admin chat when an order is placed.
type AdminPing struct {
	OrderID int64
	Profile orders.Profile
	Lines   []orders.Line
	Total   int64
}

// Checkout starts order placement. With a saved profile the user is offered
// to reuse it; otherwise the contact form begins with the name prompt. An
// empty cart aborts with ErrEmptyCart.
func (e *Engine) Checkout(ctx context.Context, sessionID int64) (Screen, error) {
	unlock := e.lockSession(sessionID)
	defer unlock()
	return e.checkout(ctx, sessionID)
}

func (e *Engine) checkout(ctx context.Context, sessionID int64) (Screen, error) {
	items, err := e.carts.Snapshot(ctx, sessionID)
	if err != nil {
		return Screen{}, err
	}
	if len(items) == 0 {
		return Screen{}, ErrEmptyCart
	}
	profile, err := e.orders.ProfileBySession(ctx, sessionID)
	if err == orders.ErrNoProfile {
		return e.beginContactForm(sessionID), nil
	}
	if err != nil {
		return Screen{}, err
	}
	var total int64
	for _, it := range items {
		total += it.Sum()
	}
	return Screen{Kind: ScreenCheckout, Profile: profile, Items: items, Total: total}, nil
}

func (e *Engine) beginContactForm(sessionID int64) Screen {
	e.forms.SetState(sessionID, StateCheckoutName)
	return Screen{Kind: ScreenPrompt, Prompt: PromptName}
}

// UseSavedProfile proceeds to order confirmation with the stored contact
// data. A vanished profile degrades to the contact form.
func (e *Engine) UseSavedProfile(ctx context.Context, sessionID int64) (Screen, error) {
	unlock := e.lockSession(sessionID)
	defer unlock()

	profile, err := e.orders.ProfileBySession(ctx, sessionID)
	if err == orders.ErrNoProfile {
		return e.beginContactForm(sessionID), nil
	}
	if err != nil {
		return Screen{}, err
	}
	return e.confirmScreen(ctx, sessionID, profile)
}

// EditProfile restarts the contact form regardless of stored data.
func (e *Engine) EditProfile(ctx context.Context, sessionID int64) (Screen, error) {
	unlock := e.lockSession(sessionID)
	defer unlock()
	return e.beginContactForm(sessionID), nil
}

func (e *Engine) confirmScreen(ctx context.Context, sessionID int64, profile orders.Profile) (Screen, error) {
	items, err := e.carts.Snapshot(ctx, sessionID)
	if err != nil {
		return Screen{}, err
	}
	if len(items) == 0 {
		return Screen{}, ErrEmptyCart
	}
	var total int64
	for _, it := range items {
		total += it.Sum()
	}
	return Screen{Kind: ScreenConfirm, Profile: profile, Items: items, Total: total}, nil
}

// SubmitText feeds a text message into the active form. Outside any form
// it is a no-op and returns ScreenNone.
func (e *Engine) SubmitText(ctx context.Context, sessionID int64, text string) (Screen, error) {
	unlock := e.lockSession(sessionID)
	defer unlock()

	text = strings.TrimSpace(text)
	switch e.forms.GetState(sessionID) {
	case StateCheckoutName:
		if text == "" {
			return Screen{Kind: ScreenPrompt, Prompt: PromptName, Invalid: true}, nil
		}
		e.forms.SetTemp(sessionID, tempName, text)
		e.forms.SetState(sessionID, StateCheckoutPhone)
		return Screen{Kind: ScreenPrompt, Prompt: PromptPhone}, nil

	case StateCheckoutPhone:
		if !phoneRe.MatchString(text) {
			return Screen{Kind: ScreenPrompt, Prompt: PromptPhone, Invalid: true}, nil
		}
		e.forms.SetTemp(sessionID, tempPhone, text)
		e.forms.SetState(sessionID, StateCheckoutAddress)
		return Screen{Kind: ScreenPrompt, Prompt: PromptAddress}, nil

	case StateCheckoutAddress:
		if text == "" {
			return Screen{Kind: ScreenPrompt, Prompt: PromptAddress, Invalid: true}, nil
		}
		return e.finishContactForm(ctx, sessionID, text)
	}
	return e.submitAdminText(ctx, sessionID, text)
}

func (e *Engine) finishContactForm(ctx context.Context, sessionID int64, address string) (Screen, error) {
	name, _ := e.forms.GetTempString(sessionID, tempName)
	phone, _ := e.forms.GetTempString(sessionID, tempPhone)

	if err := e.orders.UpsertProfile(ctx, sessionID, name, phone, address); err != nil {
		return Screen{}, err
	}
	e.forms.Clear(sessionID)

	profile, err := e.orders.ProfileBySession(ctx, sessionID)
	if err != nil {
		return Screen{}, err
	}
	return e.confirmScreen(ctx, sessionID, profile)
}

// ConfirmOrder persists the order and returns the placed screen plus the
// admin notification payload. The cart is cleared only after the order is
// stored; a storage failure leaves it intact.
func (e *Engine) ConfirmOrder(ctx context.Context, sessionID int64) (Screen, *AdminPing, error) {
	unlock := e.lockSession(sessionID)
	defer unlock()

	profile, err := e.orders.ProfileBySession(ctx, sessionID)
	if err == orders.ErrNoProfile {
		return Screen{Kind: ScreenNotice, Notice: NoticeProfileMissing}, nil, nil
	}
	if err != nil {
		return Screen{}, nil, err
	}

	items, err := e.carts.Snapshot(ctx, sessionID)
	if err != nil {
		return Screen{}, nil, err
	}
	if len(items) == 0 {
		return Screen{}, nil, ErrEmptyCart
	}

	lines := make([]orders.Line, 0, len(items))
	var total int64
	for _, it := range items {
		lines = append(lines, orders.Line{
			ProductID: it.Product.ID,
			Name:      it.Product.Name,
			Price:     it.Product.Price,
			Qty:       it.Qty,
		})
		total += it.Sum()
	}

	orderID, err := e.orders.CreateOrder(ctx, profile, lines, total)
	if err != nil {
		return Screen{}, nil, err
	}
	if err := e.carts.Clear(ctx, sessionID); err != nil {
		logger.Warn(ctx, "service.orders", "cart.clear.failed",
			slog.Int64("user_id", sessionID),
			slog.Int64("order_id", orderID),
			slog.String("err", err.Error()),
		)
	}
	e.nav.Clear(sessionID)

	logger.Info(ctx, "service.orders", "order.placed",
		slog.Int64("user_id", sessionID),
		slog.Int64("order_id", orderID),
		slog.Int("items", len(lines)),
		slog.Int64("total", total),
	)

	ping := &AdminPing{OrderID: orderID, Profile: profile, Lines: lines, Total: total}
	return Screen{Kind: ScreenOrderPlaced, OrderID: orderID, Total: total}, ping, nil
}

// EditOrder abandons the confirmation screen and reopens the cart.
func (e *Engine) EditOrder(ctx context.Context, sessionID int64) (Screen, error) {
	return e.Cart(ctx, sessionID)
}

// Review applies the admin's accept or decline decision to a pending
// order. Non-admin callers are rejected before any lookup. Orders already
// decided, or unknown ids, report ErrNotFound.
func (e *Engine) Review(ctx context.Context, reviewerID, orderID int64, accept bool) (Screen, error) {
	if reviewerID != e.adminID {
		logger.Warn(ctx, "service.orders", "order.review.denied",
			slog.Int64("user_id", reviewerID),
			slog.Int64("order_id", orderID),
		)
		return Screen{}, ErrUnauthorized
	}

	status := orders.StatusDeclined
	if accept {
		status = orders.StatusAccepted
	}
	if err := e.orders.SetStatus(ctx, orderID, status); err != nil {
		if err == orders.ErrNotFound {
			return Screen{}, ErrNotFound
		}
		return Screen{}, err
	}
	logger.Info(ctx, "service.orders", "order.reviewed",
		slog.Int64("order_id", orderID),
		slog.String("order_status", status),
	)
	return Screen{Kind: ScreenReviewed, OrderID: orderID, Decision: status}, nil
}
