package api

import (
	"bytes"
	"embed"
	"io"
	"net/http"
	"strings"
)

//go:embed fixtures/*.json
var fixtures embed.FS

// MockTransport serves canned JSON fixtures instead of calling the gateway,
// mirroring the client's mock-data mode. It keeps the rest of the stack
// identical: the gate and the typed wrappers do not know it is fake.
type MockTransport struct{}

func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	name, ok := fixtureFor(req.URL.Path)
	if !ok {
		return mockResponse(req, http.StatusNotFound, []byte(`{"error":"no fixture"}`)), nil
	}

	raw, err := fixtures.ReadFile("fixtures/" + name)
	if err != nil {
		return mockResponse(req, http.StatusInternalServerError, []byte(`{"error":"fixture unreadable"}`)), nil
	}

	return mockResponse(req, http.StatusOK, raw), nil
}

func fixtureFor(path string) (string, bool) {
	switch {
	case strings.HasSuffix(path, "/accounts"):
		return "accounts.json", true
	case strings.HasSuffix(path, "/transactions"):
		return "transactions.json", true
	case strings.HasSuffix(path, "/budget/summary"):
		return "budget.json", true
	default:
		return "", false
	}
}

func mockResponse(req *http.Request, code int, body []byte) *http.Response {
	return &http.Response{
		StatusCode:    code,
		Status:        http.StatusText(code),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": []string{"application/json"}},
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
