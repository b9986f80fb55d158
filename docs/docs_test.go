package docs

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag/v2"
)

type openAPIDoc struct {
	OpenAPI string `json:"openapi"`
	Info    struct {
		Title   string `json:"title"`
		Version string `json:"version"`
	} `json:"info"`
	Servers []struct {
		URL string `json:"url"`
	} `json:"servers"`
	Paths      map[string]map[string]json.RawMessage `json:"paths"`
	Components struct {
		Schemas map[string]json.RawMessage `json:"schemas"`
	} `json:"components"`
}

func readDoc(t *testing.T) openAPIDoc {
	t.Helper()
	raw, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	require.NoError(t, err)

	var doc openAPIDoc
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func TestReadDoc_RendersInfo(t *testing.T) {
	doc := readDoc(t)

	assert.Equal(t, "3.1.0", doc.OpenAPI)
	assert.Equal(t, SwaggerInfo.Title, doc.Info.Title)
	assert.Equal(t, SwaggerInfo.Version, doc.Info.Version)
	require.Len(t, doc.Servers, 1)
	assert.Equal(t, "/api/v1", doc.Servers[0].URL)
}

func TestReadDoc_ReferencedSchemasExist(t *testing.T) {
	raw, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	require.NoError(t, err)
	doc := readDoc(t)

	var walk func(v any)
	walk = func(v any) {
		switch n := v.(type) {
		case map[string]any:
			if ref, ok := n["$ref"].(string); ok {
				name := strings.TrimPrefix(ref, "#/components/schemas/")
				assert.Contains(t, doc.Components.Schemas, name, "dangling reference %s", ref)
			}
			for _, child := range n {
				walk(child)
			}
		case []any:
			for _, child := range n {
				walk(child)
			}
		}
	}

	var tree any
	require.NoError(t, json.Unmarshal([]byte(raw), &tree))
	walk(tree)
}

func TestReadDoc_CardRewardCategories(t *testing.T) {
	doc := readDoc(t)

	op, ok := doc.Paths["/accounts/{id}/rewards/{category}/claim"]["post"]
	require.True(t, ok)

	var claim struct {
		Parameters []struct {
			Name   string `json:"name"`
			Schema struct {
				Enum []string `json:"enum"`
			} `json:"schema"`
		} `json:"parameters"`
	}
	require.NoError(t, json.Unmarshal(op, &claim))

	var categories []string
	for _, p := range claim.Parameters {
		if p.Name == "category" {
			categories = p.Schema.Enum
		}
	}
	assert.ElementsMatch(t, []string{"daily", "weekly", "monthly", "claim", "craft", "marry"}, categories)
}
