package mcp

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"tourgate/internal/tools"
)

type stubFetcher struct {
	fn func(path string, query url.Values) (any, error)
}

func (s *stubFetcher) FetchJSON(_ context.Context, path string, query url.Values) (any, error) {
	return s.fn(path, query)
}

func newTestServer(fn func(path string, query url.Values) (any, error)) *Server {
	if fn == nil {
		fn = func(string, url.Values) (any, error) {
			return map[string]any{"ok": true}, nil
		}
	}
	executor := tools.NewExecutor(tools.NewRegistry(), &stubFetcher{fn: fn}, nil)
	return NewServer(executor, "test")
}

func request(t *testing.T, method, params string) *Request {
	t.Helper()
	raw := `{"jsonrpc":"2.0","id":1,"method":"` + method + `"`
	if params != "" {
		raw += `,"params":` + params
	}
	raw += `}`
	req, rpcErr := UnmarshalRequest([]byte(raw))
	if rpcErr != nil {
		t.Fatalf("bad test request: %v", rpcErr)
	}
	return req
}

func TestInitialize(t *testing.T) {
	t.Parallel()

	resp := newTestServer(nil).HandleRequest(context.Background(), request(t, "initialize", ""))
	if resp.Error != nil {
		t.Fatalf("initialize failed: %v", resp.Error)
	}

	result := resp.Result.(map[string]any)
	if result["protocolVersion"] != ProtocolVersion {
		t.Fatalf("unexpected protocol version: %v", result["protocolVersion"])
	}
	info := result["serverInfo"].(map[string]any)
	if info["name"] != ServerName || info["version"] != "test" {
		t.Fatalf("unexpected server info: %v", info)
	}
	caps := result["capabilities"].(map[string]any)
	if _, ok := caps["tools"]; !ok {
		t.Fatalf("tools capability missing: %v", caps)
	}
}

func TestPing(t *testing.T) {
	t.Parallel()

	resp := newTestServer(nil).HandleRequest(context.Background(), request(t, "ping", ""))
	if resp.Error != nil {
		t.Fatalf("ping failed: %v", resp.Error)
	}
}

func TestToolsListMatchesRegistry(t *testing.T) {
	t.Parallel()

	server := newTestServer(nil)
	resp := server.HandleRequest(context.Background(), request(t, "tools/list", ""))
	if resp.Error != nil {
		t.Fatalf("tools/list failed: %v", resp.Error)
	}

	listed := resp.Result.(map[string]any)["tools"].([]MCPTool)
	defs := server.executor.Registry().List()
	if len(listed) != len(defs) {
		t.Fatalf("expected %d tools, got %d", len(defs), len(listed))
	}
	for i, tool := range listed {
		if tool.Name != defs[i].Name {
			t.Fatalf("tool %d: expected %s, got %s", i, defs[i].Name, tool.Name)
		}
		if tool.InputSchema["type"] != "object" {
			t.Fatalf("tool %s: expected object schema", tool.Name)
		}
	}
}

func TestToolsListNullableParameters(t *testing.T) {
	t.Parallel()

	resp := newTestServer(nil).HandleRequest(context.Background(), request(t, "tools/list", ""))
	listed := resp.Result.(map[string]any)["tools"].([]MCPTool)

	for _, tool := range listed {
		props := tool.InputSchema["properties"].(map[string]any)
		for name, raw := range props {
			prop := raw.(map[string]any)
			types, ok := prop["type"].([]string)
			if !ok || len(types) != 2 || types[1] != "null" {
				t.Fatalf("tool %s parameter %s must be nullable, got %v", tool.Name, name, prop["type"])
			}
			if _, hasDefault := prop["default"]; !hasDefault {
				t.Fatalf("tool %s parameter %s must advertise its default", tool.Name, name)
			}
		}
	}
}

func TestCallTool(t *testing.T) {
	t.Parallel()

	server := newTestServer(func(path string, query url.Values) (any, error) {
		return map[string]any{"visitors": 42}, nil
	})

	resp := server.HandleRequest(context.Background(),
		request(t, "tools/call", `{"name":"get_tourism_overview","arguments":{"year":2024}}`))
	if resp.Error != nil {
		t.Fatalf("tools/call failed: %v", resp.Error)
	}

	result := resp.Result.(map[string]any)
	if result["isError"] != false {
		t.Fatalf("expected isError false, got %v", result["isError"])
	}
	content := result["content"].([]map[string]any)
	if len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("unexpected content shape: %v", content)
	}
	text := content[0]["text"].(string)
	if !strings.Contains(text, `"ok":true`) || !strings.Contains(text, `"visitors":42`) {
		t.Fatalf("result envelope missing payload: %s", text)
	}
}

func TestCallToolFailureIsDataNotError(t *testing.T) {
	t.Parallel()

	resp := newTestServer(nil).HandleRequest(context.Background(),
		request(t, "tools/call", `{"name":"no_such_tool"}`))
	if resp.Error != nil {
		t.Fatalf("a failed execution must not be a protocol error: %v", resp.Error)
	}

	result := resp.Result.(map[string]any)
	if result["isError"] != true {
		t.Fatalf("expected isError true, got %v", result["isError"])
	}
	text := result["content"].([]map[string]any)[0]["text"].(string)
	if !strings.Contains(text, `"type":"unknown_tool"`) {
		t.Fatalf("error envelope missing kind: %s", text)
	}
}

func TestCallToolInvalidParams(t *testing.T) {
	t.Parallel()

	server := newTestServer(nil)

	resp := server.HandleRequest(context.Background(), request(t, "tools/call", `{"arguments":{}}`))
	if resp.Error == nil || resp.Error.Code != InvalidParams {
		t.Fatalf("expected invalid params for a missing name, got %v", resp.Error)
	}

	resp = server.HandleRequest(context.Background(), request(t, "tools/call", `"not an object"`))
	if resp.Error == nil || resp.Error.Code != InvalidParams {
		t.Fatalf("expected invalid params for bad json, got %v", resp.Error)
	}
}

func TestMethodNotFound(t *testing.T) {
	t.Parallel()

	resp := newTestServer(nil).HandleRequest(context.Background(), request(t, "resources/list", ""))
	if resp.Error == nil || resp.Error.Code != MethodNotFound {
		t.Fatalf("expected method not found, got %v", resp.Error)
	}
}

func TestNotificationsProduceNoResponse(t *testing.T) {
	t.Parallel()

	server := newTestServer(nil)
	resp := server.HandleMessage(context.Background(),
		[]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	if resp != nil {
		t.Fatalf("notifications must not produce a response, got %v", resp)
	}
}

func TestHandleMessageParseError(t *testing.T) {
	t.Parallel()

	resp := newTestServer(nil).HandleMessage(context.Background(), []byte(`{not json`))
	if resp == nil || resp.Error == nil || resp.Error.Code != ParseError {
		t.Fatalf("expected a parse error, got %v", resp)
	}
}

func TestUnmarshalRequestValidation(t *testing.T) {
	t.Parallel()

	if _, rpcErr := UnmarshalRequest([]byte(`{"jsonrpc":"1.0","id":1,"method":"ping"}`)); rpcErr == nil || rpcErr.Code != InvalidRequest {
		t.Fatalf("expected rejection of a wrong version, got %v", rpcErr)
	}
	if _, rpcErr := UnmarshalRequest([]byte(`{"jsonrpc":"2.0","id":1}`)); rpcErr == nil || rpcErr.Code != InvalidRequest {
		t.Fatalf("expected rejection of a missing method, got %v", rpcErr)
	}
}
