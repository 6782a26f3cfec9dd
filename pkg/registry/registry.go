// Package registry resolves handler identifiers to render handlers and action classes.
package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"plugin"
	"sort"
	"strings"
	"sync"

	"github.com/dukex/operion-forms/pkg/protocol"
)

var (
	// ErrHandlerNotFound indicates no render handler is registered under an id.
	ErrHandlerNotFound = errors.New("render handler not registered")

	// ErrActionClassNotFound indicates no action class is registered under an id.
	ErrActionClassNotFound = errors.New("action class not registered")
)

type Registry struct {
	logger   *slog.Logger
	mu       sync.RWMutex
	handlers map[string]protocol.RenderHandler
	classes  map[string]protocol.ActionClass
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:   log,
		handlers: make(map[string]protocol.RenderHandler),
		classes:  make(map[string]protocol.ActionClass),
	}
}

// LoadHandlerPlugins opens <pluginsPath>/handlers/**/*.so and registers the
// exported Handler symbol of each.
func (r *Registry) LoadHandlerPlugins(pluginsPath string) error {
	handlers, err := loadPlugin[protocol.RenderHandler](r.logger, pluginsPath, "Handler")
	if err != nil {
		return err
	}

	for _, handler := range handlers {
		r.RegisterHandler(handler)
	}

	return nil
}

// LoadActionPlugins opens <pluginsPath>/actions/**/*.so and registers the
// exported Action symbol of each.
func (r *Registry) LoadActionPlugins(pluginsPath string) error {
	classes, err := loadPlugin[protocol.ActionClass](r.logger, pluginsPath, "Action")
	if err != nil {
		return err
	}

	for _, class := range classes {
		r.RegisterActionClass(class)
	}

	return nil
}

func (r *Registry) RegisterHandler(handler protocol.RenderHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[handler.ID()] = handler
}

func (r *Registry) RegisterActionClass(class protocol.ActionClass) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.classes[class.ID()] = class
}

// Handler resolves a render handler id such as "search.ResultPage".
func (r *Registry) Handler(id string) (protocol.RenderHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[id]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrHandlerNotFound, id)
	}

	return handler, nil
}

// ActionClass resolves an action class id.
func (r *Registry) ActionClass(id string) (protocol.ActionClass, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	class, ok := r.classes[id]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrActionClassNotFound, id)
	}

	return class, nil
}

func (r *Registry) HasHandler(id string) bool {
	_, err := r.Handler(id)

	return err == nil
}

func (r *Registry) HasActionClass(id string) bool {
	_, err := r.ActionClass(id)

	return err == nil
}

// HealthCheck reports what is registered.
func (r *Registry) HealthCheck() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handlers := make([]string, 0, len(r.handlers))
	for id := range r.handlers {
		handlers = append(handlers, id)
	}

	sort.Strings(handlers)

	return fmt.Sprintf("%d action classes, handlers: [%s]", len(r.classes), strings.Join(handlers, ", ")), len(r.classes) > 0
}

func loadPlugin[T any](logger *slog.Logger, pluginsPath string, symbolName string) ([]T, error) {
	rootPath := pluginsPath + "/" + strings.ToLower(symbolName) + "s"
	if _, err := os.Stat(rootPath); os.IsNotExist(err) {
		return nil, nil
	}

	root := os.DirFS(rootPath)

	pluginPathList, err := fs.Glob(root, "**/*.so")
	if err != nil {
		return nil, err
	}

	l := logger.With(slog.String("path", pluginsPath), slog.String("type", symbolName))
	l.Info("Loading plugins")

	pluginList := make([]T, 0, len(pluginPathList))

	for _, p := range pluginPathList {
		plg, err := plugin.Open(rootPath + "/" + p)
		if err != nil {
			return nil, fmt.Errorf("open plugin %s: %w", p, err)
		}

		v, err := plg.Lookup(symbolName)
		if err != nil {
			return nil, fmt.Errorf("lookup %s in plugin %s: %w", symbolName, p, err)
		}

		castV, ok := v.(T)
		if !ok {
			// Exported variables come back as pointers.
			ptr, isPtr := v.(*T)
			if !isPtr {
				return nil, fmt.Errorf("plugin %s: symbol %s has unexpected type %T", p, symbolName, v)
			}

			castV = *ptr
		}

		pluginList = append(pluginList, castV)

		l.Info("Loaded plugin", slog.String("plugin", p))
	}

	return pluginList, nil
}
