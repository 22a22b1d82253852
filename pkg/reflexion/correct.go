package reflexion

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sam-at-git/aipms-sub001/pkg/actions"
	"github.com/Sam-at-git/aipms-sub001/pkg/execerr"
	"github.com/Sam-at-git/aipms-sub001/pkg/llm"
	"github.com/Sam-at-git/aipms-sub001/pkg/paramschema"
)

// correct tries, in order, autoCorrect, stateHint, then llmReflect, and
// returns the first non-nil corrected param map (spec.md §4.E).
func (l *Loop) correct(name string, params map[string]any, e *execerr.ExecutionError, dctx actions.Context, ctx context.Context) map[string]any {
	if corrected := l.autoCorrect(name, params); corrected != nil {
		return corrected
	}
	if corrected := stateHint(params, e); corrected != nil {
		return corrected
	}
	if !l.llm.IsEnabled() {
		return nil
	}
	return l.llmReflect(ctx, name, params, e)
}

// autoCorrect applies date/enum/integer normalization to the first
// parameter whose declared kind and current value allow a rewrite
// (spec.md §4.E auto_correct). It mutates a copy, never the original map.
func (l *Loop) autoCorrect(name string, params map[string]any) map[string]any {
	action, err := l.ontology.GetAction(name)
	if err != nil {
		return nil
	}

	for _, def := range action.Parameters {
		raw, ok := params[def.Name]
		if !ok {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			continue
		}

		switch def.Kind {
		case paramschema.KindDate:
			if normalized, changed := paramschema.NormalizeLooseDate(s); changed && normalized != s {
				return withParam(params, def.Name, normalized)
			}
		case paramschema.KindEnum:
			if normalized, ok := paramschema.NormalizeEnumValue(s, def.Constraints.EnumValues); ok && normalized != s {
				return withParam(params, def.Name, normalized)
			}
		case paramschema.KindInt:
			if coerced, err := paramschema.Coerce(paramschema.KindInt, s); err == nil {
				return withParam(params, def.Name, coerced)
			}
		}
	}
	return nil
}

// stateHint augments params with the entity's current state and valid
// alternatives when e is a STATE_ERROR carrying state context (spec.md
// §4.E state_hint), so the handler can branch differently on retry.
func stateHint(params map[string]any, e *execerr.ExecutionError) map[string]any {
	if e.Kind != execerr.KindStateError || e.State == nil {
		return nil
	}
	if e.State.CurrentState == "" && len(e.State.ValidAlternatives) == 0 {
		return nil
	}
	augmented := withParam(params, "_entity_current_state", e.State.CurrentState)
	augmented["_valid_state_alternatives"] = e.State.ValidAlternatives
	return augmented
}

// llmReflectResponse is the shape the LLM is asked to return for
// llm_reflect (spec.md §4.E).
type llmReflectResponse struct {
	CorrectedParams map[string]any `json:"corrected_params"`
	ShouldRetry     bool           `json:"should_retry"`
	Confidence      float64        `json:"confidence"`
}

// minReflectConfidence is the threshold below which the loop terminates
// rather than retrying on an LLM-suggested correction (spec.md §4.E).
const minReflectConfidence = 0.5

// llmReflect asks the LLM capability to inspect the failed attempt and
// propose a correction, returning nil if it declines or the response is
// malformed or under-confident.
func (l *Loop) llmReflect(ctx context.Context, name string, params map[string]any, e *execerr.ExecutionError) map[string]any {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil
	}

	prompt := fmt.Sprintf(
		"Action %q failed with %s: %s. Params were: %s. "+
			"Reply with JSON {\"corrected_params\": object, \"should_retry\": bool, \"confidence\": number} only.",
		name, e.Kind, e.Message, string(paramsJSON),
	)

	raw, err := l.llm.ChatJSON(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, llm.ChatOptions{})
	if err != nil || raw == nil {
		return nil
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var parsed llmReflectResponse
	if err := json.Unmarshal(encoded, &parsed); err != nil {
		return nil
	}

	if !parsed.ShouldRetry || parsed.Confidence < minReflectConfidence || len(parsed.CorrectedParams) == 0 {
		return nil
	}
	return parsed.CorrectedParams
}

// withParam returns a shallow copy of params with key set to value.
func withParam(params map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	out[key] = value
	return out
}
