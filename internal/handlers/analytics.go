package handlers

import "finitefield.org/shopper-web/internal/platform/config"

// Analytics holds client instrumentation configuration surfaced to templates.
type Analytics struct {
	GA4MeasurementID string // e.g. G-XXXXXXXXXX
	Debug            bool
}

// AnalyticsFromConfig builds Analytics from the site configuration. Tags are
// only emitted outside dev mode.
func AnalyticsFromConfig(cfg config.SiteConfig) Analytics {
	if cfg.Dev {
		return Analytics{Debug: true}
	}
	return Analytics{GA4MeasurementID: cfg.MeasurementID}
}
