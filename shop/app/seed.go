package app

import (
	"context"
	"fmt"

	"github.com/m3rciful/shopbot/core/bootstrap"
	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/shop/catalog"

	"log/slog"
)

// demoProducts populate an empty catalog so the bot is browsable out of
// the box. A non-empty catalog is left untouched.
var demoProducts = []catalog.Draft{
	{Name: "Classic Tee", Price: 1200, Description: "Plain cotton tee, unisex fit.", Category: "Apparel"},
	{Name: "Logo Hoodie", Price: 3500, Description: "Heavyweight hoodie with embroidered logo.", Category: "Apparel"},
	{Name: "Ceramic Mug", Price: 700, Description: "330 ml mug, dishwasher safe.", Category: "Accessories"},
	{Name: "Canvas Tote", Price: 900, Description: "Reusable tote bag, 40x35 cm.", Category: "Accessories"},
	{Name: "Sticker Pack", Price: 300, Description: "Five die-cut vinyl stickers.", Category: "Misc"},
}

var demoSeeder bootstrap.SeederFunc = func(ctx context.Context, storage bootstrap.Storage) error {
	store, ok := storage.(*catalog.Store)
	if !ok {
		return fmt.Errorf("seed: unexpected storage %T", storage)
	}

	count, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("seed: catalog count failed: %w", err)
	}
	if count > 0 {
		logger.SEED.LogAttrs(ctx, slog.LevelInfo, "seed.skipped",
			slog.String("status", "ok"),
			slog.Int("existing", count),
		)
		return nil
	}

	for _, draft := range demoProducts {
		if _, err := store.AddProduct(ctx, draft); err != nil {
			return fmt.Errorf("seed: add %q failed: %w", draft.Name, err)
		}
	}
	logger.SEED.LogAttrs(ctx, slog.LevelInfo, "seed.applied",
		slog.String("status", "ok"),
		slog.Int("products", len(demoProducts)),
	)
	return nil
}

func seedDemoCatalog(ctx context.Context, store *catalog.Store) error {
	return demoSeeder.Seed(ctx, store)
}
