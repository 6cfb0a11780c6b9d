package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/foodtrack/foodtrack-backend/pkg/actor"
	"github.com/stretchr/testify/require"
)

// TestActor is the identity used by tests that need an acting user.
var TestActor = &actor.Actor{
	ID:   "5f2b7c3e-9a41-4f8d-b3a7-1c6d8e9f0a2b",
	Name: "Test User",
	Role: "manager",
}

// ContextWithActor returns a context carrying the test actor.
func ContextWithActor() context.Context {
	return actor.WithActor(context.Background(), TestActor)
}

// NewJSONRequest builds an HTTP request with a JSON body and the actor
// identity headers the gateway would normally set.
func NewJSONRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", TestActor.ID)
	req.Header.Set("X-User-Name", TestActor.Name)
	req.Header.Set("X-User-Role", TestActor.Role)

	return req
}

// DecodeResponse unmarshals the data field of a response envelope.
func DecodeResponse(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, v))
}
