// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/operion-forms/pkg/actions/httprequest"
	logaction "github.com/dukex/operion-forms/pkg/actions/log"
	"github.com/dukex/operion-forms/pkg/registry"
	"github.com/dukex/operion-forms/pkg/workflows/builtin"
	"github.com/dukex/operion-forms/pkg/workflows/search"
)

var ErrUnsupportedProvider = errors.New("unsupported provider")

func registerNativeClasses(reg *registry.Registry) {
	for _, class := range builtin.Classes() {
		reg.RegisterActionClass(class)
	}

	for _, class := range search.Classes() {
		reg.RegisterActionClass(class)
	}

	reg.RegisterActionClass(httprequest.NewAction())
	reg.RegisterActionClass(logaction.Action{})
}

// NewRegistry registers the native action classes, then whatever handler and
// action plugins live under pluginsPath. Plugins may replace native classes.
func NewRegistry(log *slog.Logger, pluginsPath string) (*registry.Registry, error) {
	reg := registry.NewRegistry(log)

	registerNativeClasses(reg)

	if pluginsPath == "" {
		return reg, nil
	}

	if err := reg.LoadActionPlugins(pluginsPath); err != nil {
		return nil, fmt.Errorf("failed to load action plugins: %w", err)
	}

	if err := reg.LoadHandlerPlugins(pluginsPath); err != nil {
		return nil, fmt.Errorf("failed to load handler plugins: %w", err)
	}

	return reg, nil
}
