package cache

import (
	"context"

	"mlm-referral-app/internal/catalog"
	"mlm-referral-app/internal/database"
)

// The methods below make CacheService satisfy referral.SettingsCache
// and catalog.ContentCache.

// GetActiveSettings returns the cached active commission settings
func (cs *CacheService) GetActiveSettings(ctx context.Context) (*database.ReferralSettings, bool) {
	settings := &database.ReferralSettings{}
	if !cs.getJSON(ctx, KeyActiveSettings, settings) {
		return nil, false
	}
	return settings, true
}

// SetActiveSettings caches the active commission settings
func (cs *CacheService) SetActiveSettings(ctx context.Context, settings *database.ReferralSettings) {
	cs.setJSON(ctx, KeyActiveSettings, settings, SettingsTTL)
}

// InvalidateSettings drops the cached commission settings
func (cs *CacheService) InvalidateSettings(ctx context.Context) {
	cs.del(ctx, KeyActiveSettings)
}

// GetHomePage returns the cached public homepage payload
func (cs *CacheService) GetHomePage(ctx context.Context) (*catalog.HomePage, bool) {
	page := &catalog.HomePage{}
	if !cs.getJSON(ctx, KeyHomePage, page) {
		return nil, false
	}
	return page, true
}

// SetHomePage caches the public homepage payload
func (cs *CacheService) SetHomePage(ctx context.Context, page *catalog.HomePage) {
	cs.setJSON(ctx, KeyHomePage, page, HomePageTTL)
}

// InvalidateHomePage drops the cached homepage payload
func (cs *CacheService) InvalidateHomePage(ctx context.Context) {
	cs.del(ctx, KeyHomePage)
}
