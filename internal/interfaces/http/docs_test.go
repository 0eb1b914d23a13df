package http_test

import (
	"encoding/json"
	"net/http"
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// La documentación servida en /docs cubre todas las rutas de la API.
func TestSwaggerCubreLasRutas(t *testing.T) {
	raw, err := os.ReadFile("../../../docs/swagger.json")
	require.NoError(t, err)
	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))

	param := regexp.MustCompile(`:(\w+)`)
	app := newTestServer(t)
	checked := 0
	for _, r := range app.GetRoutes(true) {
		if r.Method == http.MethodHead || !strings.HasPrefix(r.Path, "/api/") {
			continue
		}
		path := param.ReplaceAllString(strings.TrimSuffix(r.Path, "/"), "{$1}")
		ops, ok := doc.Paths[path]
		if !assert.True(t, ok, "ruta sin documentar: %s", path) {
			continue
		}
		_, ok = ops[strings.ToLower(r.Method)]
		assert.True(t, ok, "método sin documentar: %s %s", r.Method, path)
		checked++
	}
	assert.GreaterOrEqual(t, checked, 12)
}
