package snapshot

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed state.schema.json
var stateSchema string

var compiled = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("https://world-api.schemas/state.schema.json", stateSchema)
})

// Validate checks the envelope's hub document against the state schema.
func Validate(env Envelope) error {
	s, err := compiled()
	if err != nil {
		return fmt.Errorf("compile state schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(env.State, &doc); err != nil {
		return fmt.Errorf("decode snapshot state: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("validate snapshot %s: %w", env.Header.ID, err)
	}
	return nil
}
