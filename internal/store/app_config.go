package store

import "minimarket/internal/domain"

type AppConfigState struct {
	Config domain.AppConfig
}

// AppConfigLoaded replaces the whole configuration; fields are never merged
type AppConfigLoaded struct{ Config domain.AppConfig }

func (AppConfigLoaded) ActionType() string { return "appConfig/loaded" }

func reduceAppConfig(s AppConfigState, action Action) AppConfigState {
	if a, ok := action.(AppConfigLoaded); ok {
		return AppConfigState{Config: a.Config}
	}
	return s
}
