package config

import (
	"github.com/nulzo/model-relay/internal/routing"
)

// GlobalStream is the process wide stream override.
func (c *Config) GlobalStream() routing.StreamMode {
	// Loader.decode has already rejected unparsable values via the
	// stream_mode validation tag.
	m, _ := routing.ParseStreamMode(c.Defaults.StreamMode)
	return m
}

// DefaultRoute is the single backend built from the defaults section. Its
// override mirrors the global one.
func (c *Config) DefaultRoute() routing.Route {
	return routing.Route{
		Name:            "default",
		Endpoint:        c.Defaults.TargetAPI,
		ExposedModelID:  c.Defaults.CustomModel,
		UpstreamModelID: c.Defaults.TargetModel,
		StreamOverride:  c.GlobalStream(),
		Active:          true,
	}
}

// Table materializes the routing snapshot. Without an apis list the table
// holds only the default route.
func (c *Config) Table() *routing.Table {
	if !c.Multi {
		return routing.NewSingleTable(c.DefaultRoute())
	}

	routes := make([]routing.Route, 0, len(c.APIs))
	for _, api := range c.APIs {
		// validated by the stream_mode tag on APIConfig
		mode, _ := routing.ParseStreamMode(api.StreamMode)
		routes = append(routes, routing.Route{
			Name:            api.Name,
			Endpoint:        api.Endpoint,
			ExposedModelID:  api.CustomModelID,
			UpstreamModelID: api.TargetModelID,
			StreamOverride:  mode,
			Active:          api.Active,
		})
	}
	return routing.NewTable(routes, c.DefaultRoute())
}
