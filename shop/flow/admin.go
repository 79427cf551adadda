package flow

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"log/slog"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/shop/catalog"
)

// Product entry form states.
const (
	StateProductName     state.State = "product_name"
	StateProductDesc     state.State = "product_desc"
	StateProductPrice    state.State = "product_price"
	StateProductCategory state.State = "product_category"
	StateProductPhoto    state.State = "product_photo"
)

const (
	tempProductName  = "product_name"
	tempProductDesc  = "product_desc"
	tempProductPrice = "product_price"
	tempProductCat   = "product_category"

	// noImageToken skips the photo step without attaching an image.
	noImageToken = "none"
)

var priceRe = regexp.MustCompile(`^\d+$`)

// BeginProductEntry opens the product form. Admin only.
func (e *Engine) BeginProductEntry(ctx context.Context, sessionID int64) (Screen, error) {
	unlock := e.lockSession(sessionID)
	defer unlock()

	if sessionID != e.adminID {
		logger.Warn(ctx, "service.catalog", "product.entry.denied",
			slog.Int64("user_id", sessionID),
		)
		return Screen{}, ErrUnauthorized
	}
	e.forms.SetState(sessionID, StateProductName)
	return Screen{Kind: ScreenPrompt, Prompt: PromptProductName}, nil
}

// submitAdminText advances the product form. Called under the session lock
// from SubmitText once the checkout states are ruled out.
func (e *Engine) submitAdminText(ctx context.Context, sessionID int64, text string) (Screen, error) {
	switch e.forms.GetState(sessionID) {
	case StateProductName:
		if text == "" {
			return Screen{Kind: ScreenPrompt, Prompt: PromptProductName, Invalid: true}, nil
		}
		e.forms.SetTemp(sessionID, tempProductName, text)
		e.forms.SetState(sessionID, StateProductDesc)
		return Screen{Kind: ScreenPrompt, Prompt: PromptProductDesc}, nil

	case StateProductDesc:
		if text == "" {
			return Screen{Kind: ScreenPrompt, Prompt: PromptProductDesc, Invalid: true}, nil
		}
		e.forms.SetTemp(sessionID, tempProductDesc, text)
		e.forms.SetState(sessionID, StateProductPrice)
		return Screen{Kind: ScreenPrompt, Prompt: PromptProductPrice}, nil

	case StateProductPrice:
		if !priceRe.MatchString(text) {
			return Screen{Kind: ScreenPrompt, Prompt: PromptProductPrice, Invalid: true}, nil
		}
		e.forms.SetTemp(sessionID, tempProductPrice, text)
		e.forms.SetState(sessionID, StateProductCategory)
		return Screen{Kind: ScreenPrompt, Prompt: PromptProductCategory}, nil

	case StateProductCategory:
		if text == "" {
			return Screen{Kind: ScreenPrompt, Prompt: PromptProductCategory, Invalid: true}, nil
		}
		e.forms.SetTemp(sessionID, tempProductCat, text)
		e.forms.SetState(sessionID, StateProductPhoto)
		return Screen{Kind: ScreenPrompt, Prompt: PromptProductPhoto}, nil

	case StateProductPhoto:
		if strings.EqualFold(text, noImageToken) {
			return e.finishProductForm(ctx, sessionID, "")
		}
		return Screen{Kind: ScreenPrompt, Prompt: PromptProductPhoto, Invalid: true}, nil
	}
	return Screen{Kind: ScreenNone}, nil
}

// SubmitPhoto feeds an uploaded image into the product form. Photos sent
// outside the photo step are ignored.
func (e *Engine) SubmitPhoto(ctx context.Context, sessionID int64, fileID string) (Screen, error) {
	unlock := e.lockSession(sessionID)
	defer unlock()

	if e.forms.GetState(sessionID) != StateProductPhoto {
		return Screen{Kind: ScreenNone}, nil
	}
	return e.finishProductForm(ctx, sessionID, fileID)
}

func (e *Engine) finishProductForm(ctx context.Context, sessionID int64, imageRef string) (Screen, error) {
	name, _ := e.forms.GetTempString(sessionID, tempProductName)
	desc, _ := e.forms.GetTempString(sessionID, tempProductDesc)
	priceText, _ := e.forms.GetTempString(sessionID, tempProductPrice)
	category, _ := e.forms.GetTempString(sessionID, tempProductCat)

	price, err := strconv.ParseInt(priceText, 10, 64)
	if err != nil {
		e.forms.SetState(sessionID, StateProductPrice)
		return Screen{Kind: ScreenPrompt, Prompt: PromptProductPrice, Invalid: true}, nil
	}

	created, err := e.catalog.AddProduct(ctx, catalog.Draft{
		Name:        name,
		Price:       price,
		Description: desc,
		ImageRef:    imageRef,
		Category:    category,
	})
	if err != nil {
		return Screen{}, err
	}
	e.forms.Clear(sessionID)
	return Screen{Kind: ScreenNotice, Notice: NoticeProductAdded, Product: created}, nil
}
