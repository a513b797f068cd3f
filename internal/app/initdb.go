package app

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/launchmena/catalogd/internal/domain"
)

// checkContent writes empty manifests when the content root is new and
// warns about settings that make the admin panel unusable.
func (a *Application) checkContent() {
	ctx := context.Background()

	pm, err := a.store.ProductManifest(ctx)
	if err != nil {
		zap.L().Error("failed to read product manifest", zap.Error(err))
	} else if len(pm.Products) == 0 {
		err = a.store.UpdateProductManifest(ctx, func(m *domain.ProductManifest) error {
			if m.Products == nil {
				m.Products = []string{}
			}
			return nil
		})
		if err != nil {
			zap.L().Error("failed to initialize product manifest", zap.Error(err))
		}
	}

	cm, err := a.store.CategoryManifest(ctx)
	if err != nil {
		zap.L().Error("failed to read category manifest", zap.Error(err))
	} else if len(cm.Categories) == 0 {
		if err := a.store.SaveCategoryManifest(ctx, cm); err != nil {
			zap.L().Error("failed to initialize category manifest", zap.Error(err))
		}
		zap.L().Warn("no categories configured, products cannot be filed until categories/manifest.json lists some")
	}

	if strings.TrimSpace(a.appConfig.Admin.PasswordHash) == "" {
		zap.L().Warn("admin.password_hash is not set, run genpasswd to create one")
	}
	if strings.TrimSpace(a.appConfig.Web.Secret) == "" {
		zap.L().Warn("web.secret is not set, sessions will not survive a restart")
	}
}
