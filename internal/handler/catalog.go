package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kopikita-pos/api/internal/docstore"
	"github.com/kopikita-pos/api/internal/enum"
	"github.com/kopikita-pos/api/internal/model"
	"github.com/kopikita-pos/api/internal/service"
)

// ResourceHandler serves plain document CRUD for a catalog collection
// (inventory, add-ons, discount codes). Write failures surface with the
// underlying message; read failures degrade to an empty list.
type ResourceHandler struct {
	coll docstore.Collection
	name string
}

// NewResourceHandler creates a CRUD handler for the named collection.
func NewResourceHandler(store docstore.Store, collection string) *ResourceHandler {
	return &ResourceHandler{coll: store.Collection(collection), name: collection}
}

// RegisterRoutes registers CRUD endpoints on the given Chi router.
func (h *ResourceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// List handles GET. An empty collection is a valid state, not an error, and a
// store failure is reported as an empty list as well.
func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.coll.GetAll(r.Context())
	if err != nil {
		log.Printf("ERROR: list %s: %v", h.name, err)
		docs = nil
	}
	writeSuccess(w, http.StatusOK, docsJSON(docs))
}

// Create handles POST.
func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	data, ok := decodeBody(w, r)
	if !ok {
		return
	}
	h.create(w, r, data)
}

func (h *ResourceHandler) create(w http.ResponseWriter, r *http.Request, data map[string]any) {
	data["createdAt"] = docstore.ServerTimestamp
	data["updatedAt"] = docstore.ServerTimestamp

	id, err := h.coll.Add(r.Context(), data)
	if err != nil {
		log.Printf("ERROR: create %s: %v", h.name, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	doc, err := h.coll.Get(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: read back %s/%s: %v", h.name, id, err)
		writeSuccess(w, http.StatusCreated, map[string]string{"id": id})
		return
	}
	writeSuccess(w, http.StatusCreated, docJSON(doc))
}

// Update handles PUT /{id} as a merge write.
func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	data, ok := decodeBody(w, r)
	if !ok {
		return
	}
	h.update(w, r, data)
}

func (h *ResourceHandler) update(w http.ResponseWriter, r *http.Request, data map[string]any) {
	id := chi.URLParam(r, "id")
	data["updatedAt"] = docstore.ServerTimestamp

	if err := h.coll.Set(r.Context(), id, data, true); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, h.name+" item not found")
			return
		}
		log.Printf("ERROR: update %s/%s: %v", h.name, id, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"id": id})
}

// Delete handles DELETE /{id}.
func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.coll.Delete(r.Context(), id); err != nil {
		log.Printf("ERROR: delete %s/%s: %v", h.name, id, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"id": id})
}

// decodeBody decodes a JSON object body, rejecting malformed or non-object
// payloads with 400.
func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	data := make(map[string]any)
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	// The id is server-assigned and path-addressed, never a payload field.
	delete(data, "id")
	return data, true
}

// --- Menu ---

// MenuHandler serves menu CRUD with ingredient reconciliation. Writes filter
// ingredient lists synchronously; reads return the filtered view and let the
// catalog service re-persist corrections in the background.
type MenuHandler struct {
	ResourceHandler
	catalog *service.CatalogService
}

// NewMenuHandler creates the menu CRUD handler.
func NewMenuHandler(store docstore.Store, catalog *service.CatalogService) *MenuHandler {
	return &MenuHandler{
		ResourceHandler: ResourceHandler{coll: store.Collection(enum.CollectionMenu), name: enum.CollectionMenu},
		catalog:         catalog,
	}
}

// RegisterRoutes registers menu endpoints on the given Chi router.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// List handles GET /api/menu. Each returned item carries only ingredients
// that still exist in inventory, whether or not the background correction
// write has landed.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.coll.GetAll(r.Context())
	if err != nil {
		log.Printf("ERROR: list menu: %v", err)
		writeSuccess(w, http.StatusOK, docsJSON(nil))
		return
	}

	inventory := h.catalog.InventoryNames(r.Context())
	cleaned := make([]docstore.Document, len(docs))
	for i, doc := range docs {
		cleaned[i] = h.catalog.CleanMenuDoc(r.Context(), doc, inventory)
	}
	writeSuccess(w, http.StatusOK, docsJSON(cleaned))
}

// Create handles POST /api/menu. The acknowledged write never contains
// ingredient names missing from inventory.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	data, ok := decodeBody(w, r)
	if !ok {
		return
	}
	if _, present := data["ingredients"]; present {
		data["ingredients"] = h.catalog.ValidIngredients(r.Context(), model.Strings(data["ingredients"]))
	}
	h.create(w, r, data)
}

// Update handles PUT /api/menu/{id}, filtering any supplied ingredient list
// before the write is acknowledged.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	data, ok := decodeBody(w, r)
	if !ok {
		return
	}
	if _, present := data["ingredients"]; present {
		data["ingredients"] = h.catalog.ValidIngredients(r.Context(), model.Strings(data["ingredients"]))
	}
	h.update(w, r, data)
}
