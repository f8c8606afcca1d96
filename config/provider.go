package config

import "github.com/km-arc/go-container/container"

// Provider registers the application configuration as a singleton under the
// "config" key, with the *Config type key aliased to it.
//
//	registry := container.NewProviderRegistry(c)
//	registry.Register(&config.Provider{})
//	cfg, err := container.Resolve[*config.Config](c, "config")
type Provider struct {
	container.BaseProvider

	// EnvFiles are passed to Load; empty means ".env".
	EnvFiles []string

	// YAMLFile, when set, is layered over the environment.
	YAMLFile string
}

func (p *Provider) Register(app *container.Container) error {
	err := app.Bind("config", func(c *container.Container) (any, error) {
		if p.YAMLFile != "" {
			return LoadYAML(p.YAMLFile, p.EnvFiles...)
		}
		return Load(p.EnvFiles...), nil
	})
	if err != nil {
		return err
	}
	return app.Alias(container.Key[*Config](), "config")
}
