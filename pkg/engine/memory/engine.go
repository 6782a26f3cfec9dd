// Package memory provides an in-process workflow engine that executes loaded definitions.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/dukex/operion-forms/pkg/definition"
	"github.com/dukex/operion-forms/pkg/engine"
	"github.com/dukex/operion-forms/pkg/fields"
	"github.com/dukex/operion-forms/pkg/models"
	"github.com/dukex/operion-forms/pkg/persistence"
	"github.com/dukex/operion-forms/pkg/protocol"
	"github.com/dukex/operion-forms/pkg/template"
)

const maxAutorunSteps = 32

var (
	errActionNotAvailable = errors.New("action not available in current state")
	errConcurrentUpdate   = errors.New("instance was modified concurrently")
	errAutorunLoop        = errors.New("autorun did not settle")
)

// ClassResolver resolves action class ids.
type ClassResolver interface {
	ActionClass(id string) (protocol.ActionClass, error)
}

// Engine keeps instances in memory and runs them against a definition catalog.
type Engine struct {
	catalog *definition.Catalog
	classes ClassResolver
	logger  *slog.Logger
	now     func() time.Time
	store   persistence.Persistence

	mu        sync.Mutex
	instances map[string]*instance
	nextID    int64
}

type instance struct {
	id         string
	wfType     string
	state      string
	context    map[string]any
	lastUpdate time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the time source used for LastUpdate.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithPersistence writes every committed instance of a non-volatile type
// through to store.
func WithPersistence(store persistence.Persistence) Option {
	return func(e *Engine) {
		e.store = store
	}
}

func New(catalog *definition.Catalog, classes ClassResolver, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		catalog:   catalog,
		classes:   classes,
		logger:    logger.With("module", "memory_engine"),
		now:       time.Now,
		instances: make(map[string]*instance),
		nextID:    1,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *Engine) GetWorkflowInitialInfo(ctx context.Context, workflowType string) (*models.InitialInfo, error) {
	def, err := e.definition("get_workflow_initial_info", "", workflowType)
	if err != nil {
		return nil, err
	}

	if !def.Allowed(engine.RoleFrom(ctx), models.OperationCreate) {
		return nil, engine.NewError("get_workflow_initial_info", "", engine.ErrUnauthorized)
	}

	return &models.InitialInfo{
		Type:        def.Type,
		Label:       def.Label,
		Description: def.Description,
	}, nil
}

func (e *Engine) GetWorkflowInfo(ctx context.Context, id string) (*models.WorkflowInstance, error) {
	current, err := e.load("get_workflow_info", id)
	if err != nil {
		return nil, err
	}

	def, err := e.definition("get_workflow_info", id, current.wfType)
	if err != nil {
		return nil, err
	}

	if !def.Allowed(engine.RoleFrom(ctx), models.OperationRead) {
		return nil, engine.NewError("get_workflow_info", id, engine.ErrUnauthorized)
	}

	return e.snapshot(def, current), nil
}

// CreateWorkflowInstance starts an instance in the initial state and fires
// the first available transition of that state with params as input.
func (e *Engine) CreateWorkflowInstance(ctx context.Context, workflowType string, params map[string]string) (*models.WorkflowInstance, error) {
	const command = "create_workflow_instance"

	def, err := e.definition(command, "", workflowType)
	if err != nil {
		return nil, err
	}

	if !def.Allowed(engine.RoleFrom(ctx), models.OperationCreate) {
		return nil, engine.NewError(command, "", engine.ErrUnauthorized)
	}

	created := &instance{
		wfType:  def.Type,
		state:   def.InitialState().Name,
		context: map[string]any{},
	}

	// The id is reserved up front so the initial action class sees it.
	e.mu.Lock()
	created.id = strconv.FormatInt(e.nextID, 10)
	e.nextID++
	e.mu.Unlock()

	if activities := e.activities(def, created); len(activities) > 0 {
		if err := e.run(ctx, def, created, activities[0].Name, params); err != nil {
			return nil, &engine.Error{Command: command, Message: err.Error(), Err: engine.ErrActionFailed}
		}
	}

	created.lastUpdate = e.now()

	e.mu.Lock()

	if err := e.save(ctx, def, created); err != nil {
		e.mu.Unlock()

		return nil, &engine.Error{Command: command, WorkflowID: created.id, Message: err.Error(), Err: engine.ErrUnavailable}
	}

	e.instances[created.id] = created
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "Created workflow instance", "workflow_id", created.id, "type", def.Type, "state", created.state)

	return e.snapshot(def, created), nil
}

func (e *Engine) ExecuteWorkflowActivity(ctx context.Context, workflowType, id, action string, params map[string]string) (*models.WorkflowInstance, error) {
	const command = "execute_workflow_activity"

	current, err := e.load(command, id)
	if err != nil {
		return nil, err
	}

	if workflowType != "" && current.wfType != workflowType {
		return nil, engine.NewError(command, id, engine.ErrNotFound)
	}

	def, err := e.definition(command, id, current.wfType)
	if err != nil {
		return nil, err
	}

	if !def.Allowed(engine.RoleFrom(ctx), models.OperationExecute) {
		return nil, engine.NewError(command, id, engine.ErrUnauthorized)
	}

	working := current.clone()
	if err := e.run(ctx, def, working, action, params); err != nil {
		return nil, &engine.Error{Command: command, WorkflowID: id, Message: err.Error(), Err: engine.ErrActionFailed}
	}

	working.lastUpdate = e.now()

	e.mu.Lock()
	stored := e.instances[id]
	if !stored.lastUpdate.Equal(current.lastUpdate) {
		e.mu.Unlock()

		return nil, &engine.Error{Command: command, WorkflowID: id, Message: errConcurrentUpdate.Error(), Err: engine.ErrActionFailed}
	}

	if err := e.save(ctx, def, working); err != nil {
		e.mu.Unlock()

		return nil, &engine.Error{Command: command, WorkflowID: id, Message: err.Error(), Err: engine.ErrUnavailable}
	}

	e.instances[id] = working
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "Executed workflow activity", "workflow_id", id, "action", action, "state", working.state)

	return e.snapshot(def, working), nil
}

// FindInstances returns the ids of indexed instances whose context key equals value.
// Instances of volatile types are never indexed.
func (e *Engine) FindInstances(_ context.Context, workflowType, key, value string) ([]string, error) {
	def, err := e.catalog.Get(workflowType)
	if err != nil {
		return nil, engine.NewError("search_instances", "", engine.ErrNotFound)
	}

	if def.Volatile() {
		return []string{}, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ids := []string{}

	for id, inst := range e.instances {
		if inst.wfType != workflowType {
			continue
		}

		if candidate, ok := inst.context[key]; ok && fmt.Sprint(candidate) == value {
			ids = append(ids, id)
		}
	}

	sortIDs(ids)

	return ids, nil
}

// Restore loads every stored instance into memory. Without a store it does nothing.
func (e *Engine) Restore(ctx context.Context) error {
	if e.store == nil {
		return nil
	}

	instances, err := e.store.Instances(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore instances: %w", err)
	}

	for _, instance := range instances {
		e.Put(instance)
	}

	e.logger.InfoContext(ctx, "Restored workflow instances", "count", len(instances))

	return nil
}

// Put stores a snapshot as an instance in memory only, replacing any instance
// with the same id.
func (e *Engine) Put(snapshot *models.WorkflowInstance) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lastUpdate := snapshot.LastUpdate
	if lastUpdate.IsZero() {
		lastUpdate = e.now()
	}

	e.instances[snapshot.ID] = &instance{
		id:         snapshot.ID,
		wfType:     snapshot.Type,
		state:      snapshot.State,
		context:    maps.Clone(snapshot.Context),
		lastUpdate: lastUpdate,
	}

	if numeric, err := strconv.ParseInt(snapshot.ID, 10, 64); err == nil && numeric >= e.nextID {
		e.nextID = numeric + 1
	}
}

// run executes action on inst and follows transitions, including autorun states.
func (e *Engine) run(ctx context.Context, def *models.WorkflowDefinition, inst *instance, action string, input map[string]string) error {
	if inst.context == nil {
		inst.context = map[string]any{}
	}

	state, err := def.State(inst.state)
	if err != nil {
		return err
	}

	transition, err := e.transitionFor(def, state, inst, action)
	if err != nil {
		return err
	}

	if err := e.fire(ctx, def, inst, transition, input); err != nil {
		return err
	}

	for step := 0; ; step++ {
		state, err := def.State(inst.state)
		if err != nil {
			return err
		}

		if !state.Autorun {
			return nil
		}

		if step >= maxAutorunSteps {
			return fmt.Errorf("%w in state %s", errAutorunLoop, state.Name)
		}

		next, ok, err := e.firstOpenTransition(def, state, inst)
		if err != nil {
			return err
		}

		if !ok {
			e.logger.WarnContext(ctx, "Autorun state has no open transition", "workflow_id", inst.id, "state", state.Name)

			return nil
		}

		if err := e.fire(ctx, def, inst, next, nil); err != nil {
			return err
		}
	}
}

func (e *Engine) fire(ctx context.Context, def *models.WorkflowDefinition, inst *instance, transition models.Transition, input map[string]string) error {
	action, err := def.Action(transition.Action)
	if err != nil {
		return err
	}

	mergeInput(inst.context, action, input)

	params, err := template.ExpandParams(action.Params, inst.context)
	if err != nil {
		return fmt.Errorf("action %s: %w", action.Name, err)
	}

	class, err := e.classes.ActionClass(action.Class)
	if err != nil {
		return err
	}

	err = class.Execute(ctx, &protocol.ActionContext{
		WorkflowID:   inst.id,
		WorkflowType: inst.wfType,
		Context:      inst.context,
		Params:       params,
		Input:        input,
		Finder:       e,
		Logger:       e.logger,
	})
	if err != nil {
		return fmt.Errorf("action %s: %w", action.Name, err)
	}

	inst.state = transition.Target

	return nil
}

func (e *Engine) transitionFor(def *models.WorkflowDefinition, state *models.State, inst *instance, action string) (models.Transition, error) {
	for _, transition := range state.Transitions {
		if transition.Action != action {
			continue
		}

		holds, err := definition.GuardHolds(def, transition, inst.context)
		if err != nil {
			return models.Transition{}, err
		}

		if holds {
			return transition, nil
		}
	}

	return models.Transition{}, fmt.Errorf("%w: %s", errActionNotAvailable, action)
}

func (e *Engine) firstOpenTransition(def *models.WorkflowDefinition, state *models.State, inst *instance) (models.Transition, bool, error) {
	for _, transition := range state.Transitions {
		holds, err := definition.GuardHolds(def, transition, inst.context)
		if err != nil {
			return models.Transition{}, false, err
		}

		if holds {
			return transition, true, nil
		}
	}

	return models.Transition{}, false, nil
}

func (e *Engine) activities(def *models.WorkflowDefinition, inst *instance) []models.Activity {
	state, err := def.State(inst.state)
	if err != nil || state.Autorun {
		return nil
	}

	var activities []models.Activity

	seen := make(map[string]bool)

	for _, transition := range state.Transitions {
		if seen[transition.Action] {
			continue
		}

		holds, err := definition.GuardHolds(def, transition, inst.context)
		if err != nil {
			e.logger.Error("Failed to evaluate guard", "workflow_id", inst.id, "action", transition.Action, "error", err)

			continue
		}

		if !holds {
			continue
		}

		action, err := def.Action(transition.Action)
		if err != nil {
			continue
		}

		seen[transition.Action] = true

		label := action.Label
		if label == "" {
			label = action.Name
		}

		activity := models.Activity{Name: action.Name, Label: label, Handler: action.Handler}

		for _, name := range action.Fields {
			if field, err := def.Field(name); err == nil {
				activity.Fields = append(activity.Fields, field.Describe())
			}
		}

		activities = append(activities, activity)
	}

	return activities
}

func (e *Engine) snapshot(def *models.WorkflowDefinition, inst *instance) *models.WorkflowInstance {
	snapshot := &models.WorkflowInstance{
		ID:          inst.id,
		Type:        def.Type,
		Label:       def.Label,
		Description: def.Description,
		State:       inst.state,
		Context:     maps.Clone(inst.context),
		LastUpdate:  inst.lastUpdate,
		Activities:  e.activities(def, inst),
	}

	state, err := def.State(inst.state)
	if err != nil {
		return snapshot
	}

	snapshot.StateLabel = state.Label
	snapshot.StateDescription = state.Description
	snapshot.StateHandler = state.Handler

	for _, name := range state.Output {
		field, err := def.Field(name)
		if err != nil {
			continue
		}

		descriptor := field.Describe()
		descriptor.Value = inst.context[fields.ParseName(name).Base]
		snapshot.Output = append(snapshot.Output, descriptor)
	}

	return snapshot
}

// save is called with e.mu held.
func (e *Engine) save(ctx context.Context, def *models.WorkflowDefinition, inst *instance) error {
	if e.store == nil || def.Volatile() {
		return nil
	}

	return e.store.SaveInstance(ctx, &models.WorkflowInstance{
		ID:         inst.id,
		Type:       inst.wfType,
		State:      inst.state,
		Context:    inst.context,
		LastUpdate: inst.lastUpdate,
	})
}

func (e *Engine) load(command, id string) (*instance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, ok := e.instances[id]
	if !ok {
		return nil, engine.NewError(command, id, engine.ErrNotFound)
	}

	return inst.clone(), nil
}

func (e *Engine) definition(command, id, workflowType string) (*models.WorkflowDefinition, error) {
	def, err := e.catalog.Get(workflowType)
	if err != nil {
		return nil, &engine.Error{Command: command, WorkflowID: id, Message: err.Error(), Err: engine.ErrNotFound}
	}

	return def, nil
}

func (i *instance) clone() *instance {
	c := *i
	c.context = maps.Clone(i.context)

	if c.context == nil {
		c.context = map[string]any{}
	}

	return &c
}

// mergeInput stores submitted values in the context. Sequence and mapping
// fields arrive JSON encoded and are decoded back into collections.
func mergeInput(workflowCtx map[string]any, action *models.Action, input map[string]string) {
	kinds := make(map[string]fields.Kind, len(action.Fields))
	for _, name := range action.Fields {
		parsed := fields.ParseName(name)
		kinds[parsed.Base] = parsed.Kind
	}

	for key, raw := range input {
		switch kinds[key] {
		case fields.KindSequence:
			var sequence []string
			if err := json.Unmarshal([]byte(raw), &sequence); err == nil {
				workflowCtx[key] = sequence

				continue
			}
		case fields.KindMapping:
			var mapping map[string]string
			if err := json.Unmarshal([]byte(raw), &mapping); err == nil {
				workflowCtx[key] = mapping

				continue
			}
		}

		workflowCtx[key] = raw
	}
}

func sortIDs(ids []string) {
	sort.Slice(ids, func(a, b int) bool {
		left, errLeft := strconv.ParseInt(ids[a], 10, 64)
		right, errRight := strconv.ParseInt(ids[b], 10, 64)

		if errLeft == nil && errRight == nil {
			return left < right
		}

		return ids[a] < ids[b]
	})
}
