package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/kopikita-pos/api/internal/docstore"
)

// successEnvelope is the uniform success payload: {"success":true,"data":...}.
type successEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successEnvelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// docJSON merges a document's id into its fields for serialization.
func docJSON(doc docstore.Document) map[string]any {
	out := make(map[string]any, len(doc.Data)+1)
	for k, v := range doc.Data {
		out[k] = v
	}
	out["id"] = doc.ID
	return out
}

// docsJSON converts a document list, never returning nil so empty collections
// serialize as [] rather than null.
func docsJSON(docs []docstore.Document) []map[string]any {
	out := make([]map[string]any, len(docs))
	for i, doc := range docs {
		out[i] = docJSON(doc)
	}
	return out
}
