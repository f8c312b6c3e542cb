// Package docs serves the OpenAPI document and the interactive doc pages.
package docs

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openapiYAML []byte

const (
	SpecPath  = "/api/openapi.json"
	DocsPath  = "/api/docs"
	RedocPath = "/api/redoc"
)

// OpenAPIJSON converts the embedded YAML document to JSON, overriding
// info.title with title when it is set.
func OpenAPIJSON(title string) ([]byte, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(openapiYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse openapi yaml: %w", err)
	}

	if title != "" {
		if info, ok := doc["info"].(map[string]any); ok {
			info["title"] = title
		}
	}

	out, err := json.Marshal(normalize(doc))
	if err != nil {
		return nil, fmt.Errorf("encode openapi json: %w", err)
	}
	return out, nil
}

// normalize turns any map[any]any left by the decoder into map[string]any
// so encoding/json accepts it.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalize(val)
		}
		return m
	case []any:
		for i := range t {
			t[i] = normalize(t[i])
		}
		return t
	default:
		return v
	}
}

// SpecHandler serves the document built once at construction.
func SpecHandler(title string) (http.Handler, error) {
	body, err := OpenAPIJSON(title)
	if err != nil {
		return nil, err
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}), nil
}

var swaggerPage = template.Must(template.New("swagger").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}} - Swagger UI</title>
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
<div id="swagger-ui" data-spec="{{.SpecURL}}"></div>
<script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
<script>
const el = document.getElementById("swagger-ui");
window.ui = SwaggerUIBundle({url: el.dataset.spec, dom_id: "#swagger-ui"});
</script>
</body>
</html>
`))

var redocPage = template.Must(template.New("redoc").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}} - ReDoc</title>
</head>
<body>
<redoc spec-url="{{.SpecURL}}"></redoc>
<script src="https://cdn.jsdelivr.net/npm/redoc@2/bundles/redoc.standalone.js"></script>
</body>
</html>
`))

type pageData struct {
	Title   string
	SpecURL string
}

func SwaggerHandler(title string) http.Handler {
	return pageHandler(swaggerPage, title)
}

func RedocHandler(title string) http.Handler {
	return pageHandler(redocPage, title)
}

func pageHandler(tmpl *template.Template, title string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, pageData{Title: title, SpecURL: SpecPath}); err != nil {
			http.Error(w, "render docs", http.StatusInternalServerError)
		}
	})
}
