package handlers

import (
	"net/http"

	"fundbridge-gpt/internal/catalog"
	"fundbridge-gpt/internal/prompts"
)

// ModelResponse describes a selectable model.
//
// swagger:model ModelResponse
type ModelResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	// MaxTokens is the prompt budget checked before delegation.
	MaxTokens int  `json:"max_tokens"`
	Default   bool `json:"default,omitempty"`
}

// PromptResponse describes a summary prompt.
//
// swagger:model PromptResponse
type PromptResponse struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Text        string `json:"text"`
}

// CatalogHandler lists the model and prompt catalogs.
type CatalogHandler struct {
	defaultModel string
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(defaultModel string) *CatalogHandler {
	return &CatalogHandler{defaultModel: defaultModel}
}

// Models lists the model catalog with descriptions.
//
// swagger:route GET /api/v1/models listModels
func (h *CatalogHandler) Models(w http.ResponseWriter, r *http.Request) {
	models := catalog.All()
	resp := make([]ModelResponse, len(models))
	for i, m := range models {
		resp[i] = ModelResponse{
			ID:          m.ID,
			Description: m.Description,
			MaxTokens:   m.MaxTokens,
			Default:     m.ID == h.defaultModel,
		}
	}
	writeJSON(w, r.Context(), http.StatusOK, resp)
}

// Prompts lists the summary prompts.
//
// swagger:route GET /api/v1/prompts listPrompts
func (h *CatalogHandler) Prompts(w http.ResponseWriter, r *http.Request) {
	templates := prompts.All()
	resp := make([]PromptResponse, len(templates))
	for i, t := range templates {
		resp[i] = PromptResponse{Key: string(t.Key), Title: t.Title, Description: t.Description, Text: t.Text}
	}
	writeJSON(w, r.Context(), http.StatusOK, resp)
}
