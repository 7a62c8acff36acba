package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// requiredFields lists, per variant, the fields a wire event must carry in
// addition to "type". Together with AllTypes this table is the single source
// of truth the schema document is generated from.
var requiredFields = map[Type][]string{
	TypeRunStarted:              {"threadId", "runId"},
	TypeRunFinished:             {"threadId", "runId"},
	TypeRunError:                {"message"},
	TypeStepStarted:             {"stepName"},
	TypeStepFinished:            {"stepName"},
	TypeTextMessageStart:        {"messageId"},
	TypeTextMessageContent:      {"messageId", "delta"},
	TypeTextMessageEnd:          {"messageId"},
	TypeTextMessageChunk:        {},
	TypeToolCallStart:           {"toolCallId", "toolCallName"},
	TypeToolCallArgs:            {"toolCallId", "delta"},
	TypeToolCallEnd:             {"toolCallId"},
	TypeToolCallChunk:           {},
	TypeToolCallResult:          {"messageId", "toolCallId", "content"},
	TypeStateSnapshot:           {"snapshot"},
	TypeStateDelta:              {"delta"},
	TypeMessagesSnapshot:        {"messages"},
	TypeActivitySnapshot:        {"messageId", "activityType", "content"},
	TypeActivityDelta:           {"messageId", "activityType", "patch"},
	TypeReasoningStart:          {},
	TypeReasoningEnd:            {},
	TypeReasoningMessageStart:   {"messageId"},
	TypeReasoningMessageContent: {"messageId", "delta"},
	TypeReasoningMessageEnd:     {"messageId"},
	TypeReasoningMessageChunk:   {},
	TypeReasoningEncryptedValue: {"encryptedValue"},
	TypeRaw:                     {"event"},
	TypeCustom:                  {"name"},
}

// fieldSchemas constrains the shape of fields whose type matters to the state
// machine. Everything else is left open for forward compatibility.
var fieldSchemas = map[Type]map[string]any{
	TypeTextMessageContent:      {"delta": map[string]any{"type": "string", "minLength": 1.0}},
	TypeReasoningMessageContent: {"delta": map[string]any{"type": "string", "minLength": 1.0}},
	TypeToolCallArgs:            {"delta": map[string]any{"type": "string"}},
	TypeStateDelta:              {"delta": map[string]any{"type": "array"}},
	TypeActivityDelta:           {"patch": map[string]any{"type": "array"}},
	TypeMessagesSnapshot:        {"messages": map[string]any{"type": "array"}},
}

var (
	schemaOnce sync.Once
	schemas    map[Type]*jsonschema.Schema
	schemaErr  error
)

// Validate checks a raw wire event against the generated schema for its
// claimed type. It returns a *SchemaError when the payload is not valid JSON,
// names an unknown type or is missing required fields. Extra fields never
// cause a failure.
func Validate(data []byte) error {
	var env struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return &SchemaError{Err: fmt.Errorf("decode envelope: %w", err)}
	}
	if !Known(env.Type) {
		return &SchemaError{EventType: env.Type, Err: fmt.Errorf("unknown event type %q", env.Type)}
	}
	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return &SchemaError{EventType: env.Type, Err: schemaErr}
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return &SchemaError{EventType: env.Type, Err: fmt.Errorf("decode payload: %w", err)}
	}
	if err := schemas[env.Type].Validate(inst); err != nil {
		return &SchemaError{EventType: env.Type, Err: err}
	}
	return nil
}

// ValidateEvent checks an already-typed event by re-encoding it and running
// the wire validation. Useful for events constructed in process rather than
// decoded from the wire.
func ValidateEvent(evt Event) error {
	if evt == nil {
		return &SchemaError{Err: fmt.Errorf("nil event")}
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return &SchemaError{EventType: evt.Type(), Err: err}
	}
	return Validate(data)
}

// compileSchemas generates one schema per variant from the requiredFields and
// fieldSchemas tables and compiles them all up front.
func compileSchemas() {
	defs := make(map[string]any, len(AllTypes))
	for _, t := range AllTypes {
		props := map[string]any{
			"type":      map[string]any{"const": string(t)},
			"timestamp": map[string]any{"type": "integer"},
		}
		for name, s := range fieldSchemas[t] {
			props[name] = s
		}
		required := []any{"type"}
		for _, f := range requiredFields[t] {
			required = append(required, f)
		}
		defs[string(t)] = map[string]any{
			"type":       "object",
			"properties": props,
			"required":   required,
		}
	}
	doc := map[string]any{"$defs": defs}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("agui-events.json", doc); err != nil {
		schemaErr = fmt.Errorf("add schema resource: %w", err)
		return
	}
	compiled := make(map[Type]*jsonschema.Schema, len(AllTypes))
	for _, t := range AllTypes {
		s, err := c.Compile(fmt.Sprintf("agui-events.json#/$defs/%s", t))
		if err != nil {
			schemaErr = fmt.Errorf("compile %s schema: %w", t, err)
			return
		}
		compiled[t] = s
	}
	schemas = compiled
}
