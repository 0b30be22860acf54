package inspect

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/store/store"
)

const timeLayout = time.RFC3339Nano

// Client calls a remote InspectorService.
type Client struct {
	getState *connect.Client[emptypb.Empty, structpb.Struct]
	history  *connect.Client[emptypb.Empty, structpb.Struct]
	dispatch *connect.Client[structpb.Struct, emptypb.Empty]
}

// NewClient creates a client for the service mounted at baseURL, for example
// "http://localhost:8080".
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		getState: connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+GetStateProcedure, opts...),
		history:  connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+HistoryProcedure, opts...),
		dispatch: connect.NewClient[structpb.Struct, emptypb.Empty](httpClient, baseURL+DispatchProcedure, opts...),
	}
}

// State fetches the remote snapshot and decodes it into out, which must be a
// pointer. It returns the remote store's ID.
func (c *Client) State(ctx context.Context, out any) (string, error) {
	res, err := c.getState.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return "", err
	}

	fields := res.Msg.GetFields()
	if err := decode(fields["state"].AsInterface(), out); err != nil {
		return "", fmt.Errorf("decode state: %w", err)
	}
	return fields["store_id"].GetStringValue(), nil
}

// History fetches the remote commit history, oldest first. Path segments
// name Go struct fields, while values arrive as generic JSON encoded through
// json tags. patch.Apply decodes such values into the typed location, so the
// changes replay against a local copy of the state.
func (c *Client) History(ctx context.Context) ([]store.Change, error) {
	res, err := c.history.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return nil, err
	}

	var changes []store.Change
	if err := decode(res.Msg.GetFields()["changes"].AsInterface(), &changes); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return changes, nil
}

// Dispatch runs the named action on the remote store. Payload values must be
// representable as JSON.
func (c *Client) Dispatch(ctx context.Context, action string, payload ...any) error {
	args, err := structpb.NewList(normalize(payload))
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		"action":  structpb.NewStringValue(action),
		"payload": structpb.NewListValue(args),
	}}
	_, err = c.dispatch.CallUnary(ctx, connect.NewRequest(req))
	return err
}

// normalize passes payload through JSON so structs and typed slices become
// values structpb can represent.
func normalize(payload []any) []any {
	out := make([]any, len(payload))
	for i, v := range payload {
		data, err := json.Marshal(v)
		if err != nil {
			out[i] = v
			continue
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			out[i] = v
			continue
		}
		out[i] = generic
	}
	return out
}

func decode(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
