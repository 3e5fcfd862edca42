package httpapi

import (
	"net/http"
	"strings"
)

func (h *Handler) swaggerUI(w http.ResponseWriter, r *http.Request) {
	const page = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>TinyPal API Swagger</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    const docPath = window.location.pathname.startsWith('/swagger')
      ? '/swagger/openapi.json'
      : '/docs/openapi.json';
    window.ui = SwaggerUIBundle({
      url: docPath,
      dom_id: '#swagger-ui'
    });
  </script>
</body>
</html>`
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

func (h *Handler) swaggerSpec(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, openAPISpec(requestBaseURL(r)))
}

func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); forwarded != "" {
		scheme = strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}

	host := strings.TrimSpace(r.Host)
	if host == "" {
		host = "localhost:8080"
	}
	return scheme + "://" + host
}

func ref(name string) map[string]any {
	return map[string]any{"$ref": "#/components/schemas/" + name}
}

func jsonContent(schema map[string]any) map[string]any {
	return map[string]any{
		"application/json": map[string]any{"schema": schema},
	}
}

func jsonBody(schema string) map[string]any {
	return map[string]any{"required": true, "content": jsonContent(ref(schema))}
}

func okResponse(description string, schema string) map[string]any {
	return map[string]any{"description": description, "content": jsonContent(ref(schema))}
}

func errResponse(description string) map[string]any {
	return map[string]any{"description": description, "content": jsonContent(ref("ErrorResponse"))}
}

func screenIDParam() []map[string]any {
	return []map[string]any{
		{
			"name":        "id",
			"in":          "path",
			"required":    true,
			"description": "screen session id returned by POST /api/v1/screens",
			"schema":      map[string]any{"type": "string"},
		},
	}
}

func screenOperation(summary string, operationID string, success string) map[string]any {
	return map[string]any{
		"summary":     summary,
		"operationId": operationID,
		"parameters":  screenIDParam(),
		"responses": map[string]any{
			"200": okResponse(success, "ScreenView"),
			"404": errResponse("screen not found"),
			"409": errResponse("screen closed or reloaded while the upstream call was in flight"),
			"502": errResponse("upstream returned an error status or a malformed body"),
		},
	}
}

func nullableString() map[string]any {
	return map[string]any{"type": "string", "nullable": true}
}

func openAPISpec(serverURL string) map[string]any {
	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":       "TinyPal API",
			"description": "Normalized parenting cards and Tinu assistant for the TinyPal app",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": serverURL},
		},
		"paths": map[string]any{
			"/healthz": map[string]any{
				"get": map[string]any{
					"summary":     "Health check",
					"operationId": "healthz",
					"responses":   map[string]any{"200": okResponse("OK", "HealthResponse")},
				},
			},
			"/api/v1/home": map[string]any{
				"get": map[string]any{
					"summary":     "Home menu",
					"operationId": "home",
					"responses":   map[string]any{"200": okResponse("OK", "HomeMenu")},
				},
			},
			"/api/v1/screens": map[string]any{
				"post": map[string]any{
					"summary":     "Open a Did You Know or Flash Cards screen",
					"operationId": "openScreen",
					"requestBody": jsonBody("OpenScreenRequest"),
					"responses": map[string]any{
						"201": okResponse("screen loaded; fallback content when the upstream is unreachable", "ScreenView"),
						"400": errResponse("unknown screen or bad body"),
						"502": errResponse("upstream returned an error status or a malformed body"),
					},
				},
			},
			"/api/v1/screens/{id}": map[string]any{
				"get": screenOperation("Current screen view", "getScreen", "OK"),
				"delete": map[string]any{
					"summary":     "Close a screen; in-flight results are discarded",
					"operationId": "closeScreen",
					"parameters":  screenIDParam(),
					"responses": map[string]any{
						"204": map[string]any{"description": "closed"},
						"404": errResponse("screen not found"),
					},
				},
			},
			"/api/v1/screens/{id}/refresh": map[string]any{
				"post": screenOperation("Reload the screen's cards", "refreshScreen", "reloaded"),
			},
			"/api/v1/screens/{id}/assistant": map[string]any{
				"post":   screenOperation("Activate Tinu for the screen", "openAssistant", "assistant cards and chips"),
				"delete": screenOperation("Hide Tinu", "closeAssistant", "assistant hidden"),
			},
			"/api/v1/screens/{id}/messages": map[string]any{
				"get": map[string]any{
					"summary":     "Stored assistant transcript",
					"operationId": "listMessages",
					"parameters":  screenIDParam(),
					"responses":   map[string]any{"200": okResponse("oldest first", "TranscriptResponse")},
				},
				"post": map[string]any{
					"summary":     "Send typed text or a chip to Tinu",
					"operationId": "sendMessage",
					"parameters":  screenIDParam(),
					"requestBody": jsonBody("SendMessageRequest"),
					"responses": map[string]any{
						"201": okResponse("message and acknowledgement stored", "SendMessageResponse"),
						"400": errResponse("empty text or chip index out of range"),
						"404": errResponse("screen not found"),
					},
				},
				"delete": map[string]any{
					"summary":     "Clear the transcript",
					"operationId": "clearMessages",
					"parameters":  screenIDParam(),
					"responses":   map[string]any{"204": map[string]any{"description": "cleared"}},
				},
			},
			"/api/v1/images": map[string]any{
				"post": map[string]any{
					"summary":     "Upload a card image to object storage",
					"operationId": "uploadImage",
					"requestBody": map[string]any{
						"required": true,
						"content": map[string]any{
							"multipart/form-data": map[string]any{
								"schema": map[string]any{
									"type":       "object",
									"properties": map[string]any{"file": map[string]any{"type": "string", "format": "binary"}},
									"required":   []string{"file"},
								},
							},
						},
					},
					"responses": map[string]any{
						"201": okResponse("uploaded", "UploadImageResponse"),
						"400": errResponse("missing file"),
						"503": errResponse("object storage not configured"),
					},
				},
			},
		},
		"components": map[string]any{
			"schemas": schemas(),
		},
	}
}

func schemas() map[string]any {
	cardFields := func(first string, second string) map[string]any {
		return map[string]any{
			"type":     "object",
			"required": []string{"id", first, second},
			"properties": map[string]any{
				"id":          map[string]any{"type": "string"},
				first:         map[string]any{"type": "string"},
				second:        map[string]any{"type": "string"},
				"image_url":   nullableString(),
				"heading":     nullableString(),
				"sub_heading": nullableString(),
			},
		}
	}
	return map[string]any{
		"HealthResponse": map[string]any{
			"type":       "object",
			"properties": map[string]any{"status": map[string]any{"type": "string"}},
		},
		"ErrorResponse": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"error":           map[string]any{"type": "string"},
				"upstream_status": map[string]any{"type": "integer", "nullable": true},
			},
		},
		"HomeMenu": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title":    map[string]any{"type": "string"},
				"subtitle": map[string]any{"type": "string"},
				"entries": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"screen": map[string]any{"type": "string"},
							"label":  map[string]any{"type": "string"},
						},
					},
				},
				"features": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
		},
		"QuestionResponse": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question_id":         map[string]any{"type": "string"},
				"selected_choice_ids": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"open_response_text":  map[string]any{"type": "string"},
				"timestamp":           map[string]any{"type": "string", "format": "date-time"},
			},
		},
		"OpenScreenRequest": map[string]any{
			"type":     "object",
			"required": []string{"screen"},
			"properties": map[string]any{
				"screen":    map[string]any{"type": "string", "enum": []string{"did_you_know", "flash_cards"}},
				"parent_id": map[string]any{"type": "string"},
				"child_id":  map[string]any{"type": "string"},
				"responses": map[string]any{"type": "array", "items": ref("QuestionResponse")},
			},
		},
		"DykCard":   cardFields("title", "content"),
		"FlashCard": cardFields("question", "answer"),
		"TinuCard": map[string]any{
			"type":                 "object",
			"additionalProperties": true,
			"properties": map[string]any{
				"title":     map[string]any{"type": "string"},
				"content":   map[string]any{"type": "string"},
				"image_url": nullableString(),
			},
		},
		"AssistantActivation": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"cards": map[string]any{"type": "array", "items": ref("TinuCard")},
				"chips": map[string]any{"type": "array", "items": map[string]any{}},
			},
		},
		"ScreenView": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":                map[string]any{"type": "string"},
				"screen":            map[string]any{"type": "string"},
				"status":            map[string]any{"type": "string", "enum": []string{"loading", "ready", "empty"}},
				"dyk_cards":         map[string]any{"type": "array", "items": ref("DykCard")},
				"flash_cards":       map[string]any{"type": "array", "items": ref("FlashCard")},
				"title":             map[string]any{},
				"subtitle":          map[string]any{},
				"cta":               map[string]any{},
				"assistant_visible": map[string]any{"type": "boolean"},
				"assistant":         ref("AssistantActivation"),
			},
		},
		"SendMessageRequest": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text":       map[string]any{"type": "string"},
				"chip_index": map[string]any{"type": "integer"},
			},
		},
		"Message": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":         map[string]any{"type": "string"},
				"screen_id":  map[string]any{"type": "string"},
				"child_id":   map[string]any{"type": "string"},
				"role":       map[string]any{"type": "string", "enum": []string{"user", "assistant"}},
				"text":       map[string]any{"type": "string"},
				"created_at": map[string]any{"type": "string", "format": "date-time"},
			},
		},
		"SendMessageResponse": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message": ref("Message"),
				"reply":   ref("Message"),
			},
		},
		"TranscriptResponse": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"screen_id": map[string]any{"type": "string"},
				"messages":  map[string]any{"type": "array", "items": ref("Message")},
			},
		},
		"UploadImageResponse": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file_name": map[string]any{"type": "string"},
				"image_url": map[string]any{"type": "string"},
			},
		},
	}
}
