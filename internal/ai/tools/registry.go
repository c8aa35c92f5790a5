package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"prima-facie-go/internal/repository"
	"prima-facie-go/pkg/llm"
	"prima-facie-go/pkg/tasks"
)

// ErrNotConfirmable is returned by Apply for tools that run immediately.
var ErrNotConfirmable = errors.New("tool does not support confirmation")

// ErrUnknownTool is returned by Apply when the caller has no such tool.
var ErrUnknownTool = errors.New("unknown tool")

// DocumentSearcher runs a full-text search over one firm's documents.
type DocumentSearcher interface {
	SearchDocuments(ctx context.Context, lawFirmID, query string, limit int) ([]DocumentHit, error)
}

// DocumentHit is one search match.
type DocumentHit struct {
	DocumentID string  `json:"documentId"`
	MatterID   string  `json:"matterId,omitempty"`
	Name       string  `json:"name"`
	Snippet    string  `json:"snippet,omitempty"`
	Score      float64 `json:"score"`
}

// LinkSigner issues short-lived download links for stored documents.
type LinkSigner interface {
	PresignedURL(ctx context.Context, objectPath string) (string, error)
}

// Deps are the collaborators tools query. Search and Links are optional.
type Deps struct {
	Matters  repository.MatterRepository
	Search   DocumentSearcher
	Links    LinkSigner
	Validate *validator.Validate
}

// Result is the outcome of one tool call. Output is always valid JSON; a
// failed call carries {"error": "..."} and Failed is set.
type Result struct {
	Output               json.RawMessage
	RequiresConfirmation bool
	Failed               bool
}

// Applied is the outcome of a confirmed action.
type Applied struct {
	Output json.RawMessage
	// Event is published after the action is committed, when set.
	Event *tasks.NotificationEvent
}

type tool struct {
	name        string
	description string
	parameters  map[string]any
	// confirm marks actions that are previewed by run and executed by apply
	// only after a human confirms.
	confirm bool
	run     func(ctx context.Context, raw json.RawMessage) (any, error)
	apply   func(ctx context.Context, raw json.RawMessage) (any, *tasks.NotificationEvent, error)
}

// Registry is the tool set of one caller. It is built per request and is safe
// for concurrent use.
type Registry struct {
	caller Caller
	tools  map[string]*tool
}

// New builds the tool set for caller.
func New(caller Caller, deps Deps) *Registry {
	if deps.Validate == nil {
		deps.Validate = NewValidator()
	}
	r := &Registry{caller: caller, tools: make(map[string]*tool)}
	var list []*tool
	switch c := caller.(type) {
	case StaffCaller:
		list = staffTools(c, deps)
	case ClientCaller:
		list = clientTools(c, deps)
	}
	for _, t := range list {
		r.tools[t.name] = t
	}
	return r
}

// Caller returns the identity the registry is scoped to.
func (r *Registry) Caller() Caller { return r.caller }

// Names returns the tool names in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Has reports whether the registry exposes name.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// RequiresConfirmation reports the confirmation policy of name.
func (r *Registry) RequiresConfirmation(name string) bool {
	t, ok := r.tools[name]
	return ok && t.confirm
}

// Definitions describes the tools to the model.
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.tools))
	for _, n := range r.Names() {
		t := r.tools[n]
		defs = append(defs, llm.ToolDefinition{Name: t.name, Description: t.description, Parameters: t.parameters})
	}
	return defs
}

// Execute runs one model-requested call. It never returns an error: failures
// become {"error": "..."} so the model can answer conversationally.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (res Result) {
	t, ok := r.tools[name]
	if !ok {
		return errorResult(fmt.Errorf("ferramenta desconhecida: %s", name))
	}
	defer func() {
		if p := recover(); p != nil {
			res = errorResult(fmt.Errorf("falha interna na ferramenta %s: %v", name, p))
		}
	}()
	out, err := t.run(ctx, args)
	if err != nil {
		return errorResult(err)
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return errorResult(err)
	}
	return Result{Output: raw, RequiresConfirmation: t.confirm}
}

// Apply performs a previously previewed action after confirmation.
func (r *Registry) Apply(ctx context.Context, name string, args json.RawMessage) (Applied, error) {
	t, ok := r.tools[name]
	if !ok {
		return Applied{}, ErrUnknownTool
	}
	if !t.confirm || t.apply == nil {
		return Applied{}, ErrNotConfirmable
	}
	out, ev, err := t.apply(ctx, args)
	if err != nil {
		return Applied{}, err
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return Applied{}, err
	}
	return Applied{Output: raw, Event: ev}, nil
}

// NewValidator reports argument errors by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func errorResult(err error) Result {
	raw, _ := json.Marshal(map[string]string{"error": err.Error()})
	return Result{Output: raw, Failed: true}
}

// define binds a typed, validated argument struct to a tool body.
func define[A any](v *validator.Validate, name, description string, params map[string]any, fn func(ctx context.Context, a A) (any, error)) *tool {
	return &tool{
		name:        name,
		description: description,
		parameters:  params,
		run: func(ctx context.Context, raw json.RawMessage) (any, error) {
			a, err := decode[A](v, raw)
			if err != nil {
				return nil, err
			}
			return fn(ctx, a)
		},
	}
}

// defineConfirmed binds a preview and an apply step sharing one argument type.
func defineConfirmed[A any](v *validator.Validate, name, description string, params map[string]any,
	preview func(ctx context.Context, a A) (any, error),
	apply func(ctx context.Context, a A) (any, *tasks.NotificationEvent, error),
) *tool {
	t := define(v, name, description, params, preview)
	t.confirm = true
	t.apply = func(ctx context.Context, raw json.RawMessage) (any, *tasks.NotificationEvent, error) {
		a, err := decode[A](v, raw)
		if err != nil {
			return nil, nil, err
		}
		return apply(ctx, a)
	}
	return t
}

func decode[A any](v *validator.Validate, raw json.RawMessage) (A, error) {
	var a A
	if len(strings.TrimSpace(string(raw))) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, &a); err != nil {
		return a, fmt.Errorf("argumentos inválidos: %w", err)
	}
	if err := v.Struct(a); err != nil {
		return a, fmt.Errorf("argumentos inválidos: %s", describeValidation(err))
	}
	return a, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s (%s=%s)", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, ", ")
}
