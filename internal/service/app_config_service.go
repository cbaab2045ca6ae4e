package service

import (
	"context"
	"net/http"

	"minimarket/internal/apiclient"
	"minimarket/internal/domain"
	"minimarket/internal/notify"
	"minimarket/internal/store"
	"minimarket/internal/validation"

	"go.uber.org/zap"
)

// AppConfigInput is the admin form for the app-wide configuration
type AppConfigInput struct {
	AppName         string       `json:"app_name" validate:"required,max=80"`
	AppDescription  string       `json:"app_description" validate:"max=300"`
	Theme           domain.Theme `json:"theme" validate:"required,theme"`
	WhatsappNumber  string       `json:"whatsapp_number" validate:"omitempty,min=6,max=20"`
	BusinessHours   string       `json:"business_hours" validate:"max=120"`
	BusinessAddress string       `json:"business_address" validate:"max=200"`
	LogoURL         string       `json:"logo_url" validate:"omitempty,url"`
	InitialInfo     string       `json:"initialinfo" validate:"max=2000"`
}

func (in AppConfigInput) config() domain.AppConfig {
	return domain.AppConfig(in)
}

type AppConfigService struct {
	base
}

// NewAppConfigService creates a new AppConfigService
func NewAppConfigService(api Backend, st *store.Store, notifier notify.Notifier, logger *zap.Logger) *AppConfigService {
	return &AppConfigService{base: newBase(api, st, notifier, logger, "app_config")}
}

// LoadPublic replaces the configuration; on failure the defaults or the
// previously loaded values stay in place
func (s *AppConfigService) LoadPublic(ctx context.Context) error {
	return s.load(ctx, "app config",
		func(ctx context.Context) (*apiclient.Response, error) {
			return s.api.Public(ctx, http.MethodGet, "app-config/public", nil)
		},
		func(resp *apiclient.Response) error {
			var cfg domain.AppConfig
			if err := resp.Decode("config", &cfg); err != nil {
				return err
			}
			s.store.Dispatch(store.AppConfigLoaded{Config: cfg})
			return nil
		},
	)
}

func (s *AppConfigService) Update(ctx context.Context, in AppConfigInput) (domain.AppConfig, error) {
	if err := validation.Struct(in); err != nil {
		return domain.AppConfig{}, s.reject("Could not save settings", err)
	}

	cfg := in.config()
	err := s.mutate("Saving settings", "Settings saved", "Could not save settings",
		func() (*apiclient.Response, error) {
			return s.api.Authed(ctx, http.MethodPut, "app-config", cfg)
		},
		func(resp *apiclient.Response) error {
			if resp.Has("config") {
				if err := resp.Decode("config", &cfg); err != nil {
					return err
				}
			}
			s.store.Dispatch(store.AppConfigLoaded{Config: cfg})
			return nil
		},
	)
	return cfg, err
}
