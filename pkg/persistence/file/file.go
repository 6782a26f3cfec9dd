// Package file provides file-based persistence for workflow instances.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dukex/operion-forms/pkg/models"
	"github.com/dukex/operion-forms/pkg/persistence"
)

// Persistence keeps one JSON file per instance below <root>/instances.
type Persistence struct {
	root string
}

func NewPersistence(root string) *Persistence {
	return &Persistence{root: strings.Replace(root, "file://", "", 1)}
}

func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) Instances(ctx context.Context) ([]*models.WorkflowInstance, error) {
	root := os.DirFS(fp.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list instance files: %w", err)
	}

	sort.Strings(jsonFiles)

	instances := make([]*models.WorkflowInstance, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		instance, err := fp.InstanceByID(ctx, strings.TrimSuffix(file, ".json"))
		if err != nil {
			return nil, err
		}

		instances = append(instances, instance)
	}

	return instances, nil
}

func (fp *Persistence) InstanceByID(_ context.Context, id string) (*models.WorkflowInstance, error) {
	filePath, err := fp.path(id)
	if err != nil {
		return nil, persistence.NewInstanceError("InstanceByID", id, err)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewInstanceError("InstanceByID", id, persistence.ErrInstanceNotFound)
		}

		return nil, persistence.NewInstanceError("InstanceByID", id, err)
	}

	var instance models.WorkflowInstance
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, persistence.NewInstanceError("InstanceByID", id, fmt.Errorf("failed to decode: %w", err))
	}

	return &instance, nil
}

// SaveInstance writes the record to a temporary file and renames it into place.
func (fp *Persistence) SaveInstance(_ context.Context, instance *models.WorkflowInstance) error {
	filePath, err := fp.path(instance.ID)
	if err != nil {
		return persistence.NewInstanceError("SaveInstance", instance.ID, err)
	}

	if err := os.MkdirAll(fp.dir(), 0750); err != nil {
		return fmt.Errorf("failed to create instances directory: %w", err)
	}

	data, err := json.MarshalIndent(persistence.Record(instance), "", "  ")
	if err != nil {
		return persistence.NewInstanceError("SaveInstance", instance.ID, err)
	}

	tmp := filePath + ".tmp"

	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return persistence.NewInstanceError("SaveInstance", instance.ID, err)
	}

	if err := os.Rename(tmp, filePath); err != nil {
		_ = os.Remove(tmp)

		return persistence.NewInstanceError("SaveInstance", instance.ID, err)
	}

	return nil
}

func (fp *Persistence) dir() string {
	return path.Join(fp.root, "instances")
}

func (fp *Persistence) path(id string) (string, error) {
	if id == "" || filepath.Base(id) != id || strings.HasPrefix(id, ".") {
		return "", persistence.ErrInvalidInstanceID
	}

	return path.Join(fp.dir(), id+".json"), nil
}
