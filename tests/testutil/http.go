package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/waifubot/backend/internal/interfaces/http/dto"
)

// Client issues JSON requests against an in-process handler as one gateway
type Client struct {
	Handler http.Handler
	Token   string
}

// Do sends body as JSON with the gateway token and any extra headers
func (c *Client) Do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	require.Zero(t, len(headers)%2, "headers must be key/value pairs")

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	for i := 0; i < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	c.Handler.ServeHTTP(rec, req)
	return rec
}

// Data decodes the envelope's data field into T, failing on an error envelope
func Data[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Success bool           `json:"success"`
		Data    T              `json:"data"`
		Error   *dto.ErrorInfo `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	require.True(t, envelope.Success, rec.Body.String())
	return envelope.Data
}

// ErrorCode decodes the envelope's error code
func ErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	require.NotNil(t, resp.Error, rec.Body.String())
	return resp.Error.Code
}
