// Package inspect exposes a running store over Connect so external tools can
// read its state and history and dispatch actions into it.
//
// The service is store.v1.InspectorService with three unary procedures. All
// messages are well-known protobuf types, so no generated code is needed:
//
//	GetState(google.protobuf.Empty)   → google.protobuf.Struct {store_id, state}
//	History(google.protobuf.Empty)    → google.protobuf.Struct {changes}
//	Dispatch(google.protobuf.Struct)  → google.protobuf.Empty
//
// Dispatch requests carry {"action": string, "payload": [...]}. Payload
// values arrive JSON-shaped: numbers are float64 and objects are
// map[string]any; store.Arg converts numbers back to the kind an action
// expects.
package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/store/patch"
	"github.com/tailored-agentic-units/store/store"
)

// ServiceName is the fully-qualified name of the inspector service.
const ServiceName = "store.v1.InspectorService"

// Procedure paths served by NewHandler.
const (
	GetStateProcedure = "/" + ServiceName + "/GetState"
	HistoryProcedure  = "/" + ServiceName + "/History"
	DispatchProcedure = "/" + ServiceName + "/Dispatch"
)

// NewHandler builds the inspector service for s. It returns the path to
// mount the handler on and the handler itself, in the shape expected by
// http.ServeMux.Handle.
func NewHandler[S any](s *store.Store[S], opts ...connect.HandlerOption) (string, http.Handler) {
	svc := &service[S]{store: s}

	mux := http.NewServeMux()
	mux.Handle(GetStateProcedure, connect.NewUnaryHandler(GetStateProcedure, svc.getState, opts...))
	mux.Handle(HistoryProcedure, connect.NewUnaryHandler(HistoryProcedure, svc.history, opts...))
	mux.Handle(DispatchProcedure, connect.NewUnaryHandler(DispatchProcedure, svc.dispatch, opts...))

	return "/" + ServiceName + "/", mux
}

type service[S any] struct {
	store *store.Store[S]
}

func (svc *service[S]) getState(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	state, err := toValue(svc.store.State())
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&structpb.Struct{Fields: map[string]*structpb.Value{
		"store_id": structpb.NewStringValue(svc.store.ID()),
		"state":    state,
	}}), nil
}

func (svc *service[S]) history(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	history := svc.store.History()

	changes := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(history))}
	for _, c := range history {
		encoded, err := encodeChange(c)
		if err != nil {
			return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("change %d: %w", c.Seq, err))
		}
		changes.Values = append(changes.Values, structpb.NewStructValue(encoded))
	}

	return connect.NewResponse(&structpb.Struct{Fields: map[string]*structpb.Value{
		"changes": structpb.NewListValue(changes),
	}}), nil
}

func (svc *service[S]) dispatch(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[emptypb.Empty], error) {
	fields := req.Msg.GetFields()

	name := fields["action"].GetStringValue()
	if name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("action is required"))
	}

	var payload []any
	if list := fields["payload"].GetListValue(); list != nil {
		payload = list.AsSlice()
	}

	// Deferred work outlives the request.
	if err := svc.store.Dispatch(context.WithoutCancel(ctx), name, payload...); err != nil {
		return nil, connect.NewError(codeOf(err), err)
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}

func codeOf(err error) connect.Code {
	switch {
	case errors.Is(err, store.ErrUnknownAction):
		return connect.CodeNotFound
	case errors.Is(err, store.ErrCommitFailed):
		return connect.CodeAborted
	case store.IsRejection(err):
		return connect.CodeFailedPrecondition
	}
	return connect.CodeInternal
}

func encodeChange(c store.Change) (*structpb.Struct, error) {
	patches, err := patch.ListToProto(c.Patches)
	if err != nil {
		return nil, err
	}
	inverse, err := patch.ListToProto(c.Inverse)
	if err != nil {
		return nil, err
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"seq":          structpb.NewNumberValue(float64(c.Seq)),
		"action":       structpb.NewStringValue(c.Action),
		"dispatch_id":  structpb.NewStringValue(c.DispatchID),
		"replaced":     structpb.NewBoolValue(c.Replaced),
		"committed_at": structpb.NewStringValue(c.CommittedAt.Format(timeLayout)),
		"patches":      structpb.NewListValue(patches),
		"inverse":      structpb.NewListValue(inverse),
	}}, nil
}

// toValue converts v to a structpb.Value through its JSON encoding.
func toValue(v any) (*structpb.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}

	value, err := structpb.NewValue(generic)
	if err != nil {
		return nil, fmt.Errorf("convert state: %w", err)
	}
	return value, nil
}
