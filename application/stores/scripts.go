package stores

import (
	"context"
	"strconv"

	"ideaclient/application/store"
	"ideaclient/domain/resources"
)

// ScriptDefinition describes the scripts endpoint. Status policies are the
// store defaults.
func ScriptDefinition() store.Definition[resources.Script] {
	return store.Definition[resources.Script]{
		Kind:       "script",
		Label:      "Script",
		Endpoint:   "scripts",
		ResourceID: resources.Script.Key,
	}
}

type ScriptStore struct {
	*store.Store[resources.Script]
}

func NewScriptStore(deps store.Deps) *ScriptStore {
	return &ScriptStore{Store: store.New(ScriptDefinition(), deps)}
}

func (s *ScriptStore) Create(ctx context.Context, in resources.ScriptInput) (*resources.Script, error) {
	return s.Store.Create(ctx, in)
}

func (s *ScriptStore) Update(ctx context.Context, id int64, in resources.ScriptInput) (*resources.Script, error) {
	return s.Store.Update(ctx, strconv.FormatInt(id, 10), in)
}
