package resource

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"gapi/internal/api"
	"gapi/internal/cli"
	"gapi/internal/output"
)

// Service performs REST calls against the remote API.
type Service interface {
	Do(ctx context.Context, req api.Request) (json.RawMessage, error)
}

// Connector builds an authenticated Service. Handlers call it only after
// every flag and the request body have been validated.
type Connector func(ctx context.Context) (Service, error)

// MaskFlag overrides the update mask derived from the body keys.
const MaskFlag = "updateMask"

// Op describes a single REST call.
type Op struct {
	Method string
	Target Target
	// Suffix is appended to the resolved path verbatim, for sub-resources
	// ("/status") and custom methods (":publish").
	Suffix string
	// Require lists flags checked after the path flags.
	Require []string
	// Query builds the query string once flags are validated.
	Query func(flags cli.Flags) url.Values
	// Body reads a JSON request body from --data or stdin.
	Body bool
	// Mask sends an updateMask parameter: --updateMask if given, otherwise
	// the body's top-level keys in document order.
	Mask bool
	// Action, when set, replaces the response payload with {ok, action}.
	Action string
}

// Verb is a named operation on a kind.
type Verb struct {
	Name string
	Op   Op
}

// List reads the collection.
func (k Kind) List() Verb {
	return Verb{Name: "list", Op: Op{Method: http.MethodGet, Target: Collection}}
}

// Get reads one item.
func (k Kind) Get() Verb {
	return Verb{Name: "get", Op: Op{Method: http.MethodGet, Target: Item}}
}

// Create posts the body to the collection.
func (k Kind) Create() Verb {
	return Verb{Name: "create", Op: Op{Method: http.MethodPost, Target: Collection, Body: true}}
}

// Update replaces one item with the body.
func (k Kind) Update() Verb {
	return Verb{Name: "update", Op: Op{Method: http.MethodPut, Target: Item, Body: true}}
}

// Patch partially updates one item under an update mask.
func (k Kind) Patch() Verb {
	return Verb{Name: "patch", Op: Op{Method: http.MethodPatch, Target: Item, Body: true, Mask: true}}
}

// Delete removes one item and reports "<collection>.delete".
func (k Kind) Delete() Verb {
	return Verb{Name: "delete", Op: Op{Method: http.MethodDelete, Target: Item, Action: k.Collection + ".delete"}}
}

// Revert discards workspace changes to one item.
func (k Kind) Revert() Verb {
	return Verb{Name: "revert", Op: Op{Method: http.MethodPost, Target: Item, Suffix: ":revert"}}
}

// Standard is the verb set shared by workspace entities.
func (k Kind) Standard() []Verb {
	return []Verb{k.List(), k.Get(), k.Create(), k.Update(), k.Delete(), k.Revert()}
}

// Factory turns kinds and verbs into command handlers.
type Factory struct {
	Connect Connector
	Input   *cli.Input
}

// NewFactory creates a factory reading bodies from input.
func NewFactory(connect Connector, input *cli.Input) *Factory {
	return &Factory{Connect: connect, Input: input}
}

// Routes binds each verb of k to the command "<resource> <verb>".
func (f *Factory) Routes(resource string, k Kind, verbs ...Verb) []cli.Route {
	routes := make([]cli.Route, 0, len(verbs))
	for _, v := range verbs {
		routes = append(routes, cli.Route{
			Command: resource + " " + v.Name,
			Handler: f.Handler(k, v.Op),
		})
	}
	return routes
}

// Handler returns the handler running op against k. Flags are validated in
// path order, then Require, then the body is read; only then is the service
// connected and called.
func (f *Factory) Handler(k Kind, op Op) cli.Handler {
	return func(ctx context.Context, flags cli.Flags) (*output.Response, error) {
		req, err := f.request(k, op, flags)
		if err != nil {
			return nil, err
		}

		svc, err := f.Connect(ctx)
		if err != nil {
			return nil, err
		}
		data, err := svc.Do(ctx, req)
		if err != nil {
			return nil, err
		}

		if op.Action != "" {
			return output.Action(op.Action), nil
		}
		return output.Data(data), nil
	}
}

func (f *Factory) request(k Kind, op Op, flags cli.Flags) (api.Request, error) {
	path, err := k.Path(op.Target, flags)
	if err != nil {
		return api.Request{}, err
	}
	for _, name := range op.Require {
		if _, err := requireFlag(flags, name); err != nil {
			return api.Request{}, err
		}
	}

	req := api.Request{Method: op.Method, Path: path + op.Suffix}
	if op.Query != nil {
		req.Query = op.Query(flags)
	}
	if !op.Body {
		return req, nil
	}

	body, err := f.Input.Body(flags)
	if err != nil {
		return api.Request{}, err
	}
	req.Body = body.JSON

	if op.Mask {
		// Body keys are not checked against the field mask grammar.
		mask := flags.String(MaskFlag)
		if mask == "" {
			mask = body.FieldMask()
		}
		if mask != "" {
			if req.Query == nil {
				req.Query = url.Values{}
			}
			req.Query.Set(MaskFlag, mask)
		}
	}
	return req, nil
}
