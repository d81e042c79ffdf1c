package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestReadDoc_CoversEveryRoute(t *testing.T) {
	raw, err := swag.ReadDoc()
	require.NoError(t, err)

	var doc struct {
		Swagger  string                     `json:"swagger"`
		BasePath string                     `json:"basePath"`
		Paths    map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc), "rendered document is not JSON")
	assert.Equal(t, "2.0", doc.Swagger)
	assert.Equal(t, "/api/v1", doc.BasePath)

	routes := map[string]string{
		"/auth/register":         "post",
		"/auth/login":            "post",
		"/users/me":              "get",
		"/users/{id}":            "get",
		"/friends":               "get",
		"/friends/pending-count": "get",
		"/friends/requests":      "post",
		"/friends/{id}/respond":  "post",
		"/realtime/token":        "post",
		"/realtime/sse":          "get",
		"/realtime/ws":           "get",
	}
	for path, method := range routes {
		ops, ok := doc.Paths[path]
		if assert.True(t, ok, "missing path %s", path) {
			assert.Contains(t, ops, method, "missing %s %s", method, path)
		}
	}
}
