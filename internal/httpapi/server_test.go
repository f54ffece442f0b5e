package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Debrajkhanra88/Gaia/pkg/types"
)

type fakeService struct {
	nodes []types.NodeStatus
}

func (f fakeService) Nodes() []types.NodeStatus { return f.nodes }

func TestHealthz(t *testing.T) {
	srv := httptest.NewServer(NewRouter(fakeService{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestNodes(t *testing.T) {
	svc := fakeService{nodes: []types.NodeStatus{
		{Index: 1, State: types.StateRunning, Port: 8081},
		{Index: 2, State: types.StateStopped, Port: 8082, LastError: "start failed"},
	}}
	srv := httptest.NewServer(NewRouter(svc))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/nodes")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var body types.NodesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(body.Nodes))
	}
	if body.Nodes[0].State != types.StateRunning || body.Nodes[1].LastError != "start failed" {
		t.Fatalf("unexpected payload: %+v", body.Nodes)
	}
}

func TestNodesEmptyFleet(t *testing.T) {
	srv := httptest.NewServer(NewRouter(fakeService{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/nodes")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var body types.NodesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Nodes == nil || len(body.Nodes) != 0 {
		t.Fatalf("expected empty array, got %+v", body.Nodes)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := httptest.NewServer(NewRouter(fakeService{}))
	defer srv.Close()

	RecordNodeOp("start", nil)
	SetNodesRunning(3)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
