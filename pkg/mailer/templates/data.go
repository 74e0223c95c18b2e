package templates

import (
	"context"
	"strings"
	"time"

	"github.com/launchbase/launchbase/config"
)

// EmailData carries everything the account email templates can reference.
type EmailData struct {
	Email     string
	ActionURL string

	// Request context for the security footer
	IP        string
	UserAgent string
	Location  string
	Time      string

	ExpiresAtText string

	// Company info
	AppName        string
	CompanyName    string
	CompanyAddress string
	SupportURL     string
}

// Option mutates EmailData during construction.
type Option func(*EmailData)

func WithIP(ip string) Option        { return func(d *EmailData) { d.IP = ip } }
func WithUserAgent(ua string) Option { return func(d *EmailData) { d.UserAgent = ua } }

func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		d.Time = t.UTC().Format("02 January 2006, 15:04 MST")
	}
}

func WithExpiresIn(dur time.Duration) Option {
	return func(d *EmailData) {
		d.ExpiresAtText = time.Now().Add(dur).UTC().Format("02 January 2006, 15:04 MST")
	}
}

func WithGeoFromIP(ctx context.Context, r GeoResolver, ip string) Option {
	return func(d *EmailData) {
		if r == nil || strings.TrimSpace(ip) == "" {
			return
		}
		if g, err := r.Lookup(ctx, ip); err == nil {
			if s := strings.TrimSpace(FormatGeo(g)); s != "" {
				d.Location = s
			}
		}
	}
}

// NewEmailData fills the company fields from config, then applies options.
func NewEmailData(cfg *config.Config, email, actionURL string, opts ...Option) EmailData {
	d := EmailData{
		Email:     email,
		ActionURL: actionURL,

		AppName:        cfg.AppName,
		CompanyName:    cfg.CompanyName,
		CompanyAddress: cfg.CompanyAddress,
		SupportURL:     cfg.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}
