package skill

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/schema"
)

// Kind identifies a callable skill. The set is fixed at compile time; the
// generation engine addresses skills by these names.
type Kind string

const (
	KindWebSearch Kind = "search_web"
	KindWeather   Kind = "get_weather"
)

// Result is the outcome of one skill execution. Err is a structured error
// string rather than an error value so it can be fed back to the generation
// engine verbatim.
type Result struct {
	Success bool
	Data    any
	Err     string
}

// Skill is the uniform capability every adapter implements.
type Skill interface {
	Kind() Kind
	Declaration() *schema.ToolInfo
	Execute(ctx context.Context, params map[string]any, creds map[string]string) Result
	Format(res Result) string
}

// CallRecord captures one skill invocation for diagnostics. Records are
// immutable once produced.
type CallRecord struct {
	Function string         `json:"function"`
	Params   map[string]any `json:"params"`
	Success  bool           `json:"success"`
	Output   string         `json:"output"`
}

// Registry is the lookup table of available skills, built once at startup.
type Registry struct {
	skills map[Kind]Skill
	order  []Kind
}

// NewRegistry builds a registry from the supplied skills.
func NewRegistry(skills ...Skill) *Registry {
	r := &Registry{skills: make(map[Kind]Skill, len(skills))}
	for _, sk := range skills {
		if _, dup := r.skills[sk.Kind()]; dup {
			continue
		}
		r.skills[sk.Kind()] = sk
		r.order = append(r.order, sk.Kind())
	}
	return r
}

// Declarations returns the tool declarations for every registered skill, in
// registration order.
func (r *Registry) Declarations() []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(r.order))
	for _, kind := range r.order {
		infos = append(infos, r.skills[kind].Declaration())
	}
	return infos
}

// Execute runs the named skill and converts the outcome into a CallRecord.
// An unknown name or a failed execution yields a failed record whose Output
// still reads as tool-response text, so the generation loop can recover
// instead of aborting.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any, creds map[string]string) CallRecord {
	record := CallRecord{Function: name, Params: params}

	sk, ok := r.skills[Kind(name)]
	if !ok {
		record.Output = fmt.Sprintf("Error: unknown function: %s", name)
		return record
	}

	log.Printf("[skill] executing %s params=%v", name, params)
	res := sk.Execute(ctx, params, creds)
	record.Success = res.Success
	record.Output = sk.Format(res)
	if !res.Success {
		log.Printf("[skill] %s failed: %s", name, res.Err)
	}
	return record
}
