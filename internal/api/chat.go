package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/sqlchat/sqlchat/internal/archive"
	"github.com/sqlchat/sqlchat/internal/pipeline"
	"github.com/sqlchat/sqlchat/internal/present"
	"github.com/sqlchat/sqlchat/internal/query"
	"github.com/sqlchat/sqlchat/internal/schema"
	"github.com/sqlchat/sqlchat/internal/storage"
)

const maxChatBodyBytes = 64 << 10

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
	Chart          string `json:"chart"`
}

type chatResponse struct {
	ConversationID string             `json:"conversation_id"`
	Type           string             `json:"type"`
	Outcome        string             `json:"outcome"`
	SQL            string             `json:"sql"`
	Content        string             `json:"content,omitempty"`
	Columns        []query.Column     `json:"columns,omitempty"`
	Rows           [][]any            `json:"rows,omitempty"`
	Truncated      bool               `json:"truncated,omitempty"`
	ChartSpec      *present.ChartSpec `json:"chart_spec,omitempty"`
	Chart          *present.Figure    `json:"chart,omitempty"`
	Message        string             `json:"message,omitempty"`
	Error          string             `json:"error,omitempty"`
}

// handleChat answers every turn the pipeline handled with 200; the outcome
// and error fields carry failures. Only malformed requests get 4xx.
func handleChat(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Chat == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CHAT_NOT_CONFIGURED", "chat pipeline is not configured", false, nil)
		return
	}

	var request chatRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid chat request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Message) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "MESSAGE_REQUIRED", "message is required", false, nil)
		return
	}
	if request.ConversationID != "" {
		if _, err := storage.ConversationPrefix(request.ConversationID); err != nil {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_CONVERSATION_ID", err.Error(), false, nil)
			return
		}
	}
	chart := strings.ToLower(strings.TrimSpace(request.Chart))
	if chart != "" && !slices.Contains(present.SupportedFamilies(), chart) {
		writeError(r.Context(), w, http.StatusBadRequest, "UNSUPPORTED_CHART", "unsupported chart family", false, map[string]any{"supported": present.SupportedFamilies()})
		return
	}

	resp := deps.Chat.Run(r.Context(), pipeline.Request{
		ConversationID: request.ConversationID,
		Message:        request.Message,
		ChartFamily:    chart,
	})
	writeJSON(w, http.StatusOK, toChatResponse(resp))
}

func toChatResponse(resp pipeline.Response) chatResponse {
	out := chatResponse{
		ConversationID: resp.ConversationID,
		Type:           resp.Decision.String(),
		Outcome:        resp.Outcome.String(),
		SQL:            resp.SQL,
		Content:        resp.Summary,
		Message:        resp.Message,
		Error:          resp.Error,
	}
	if resp.Outcome != pipeline.OutcomeRows {
		out.Content = resp.Message
		return out
	}
	out.Columns = resp.Result.Columns
	out.Rows = resp.Result.Rows
	out.Truncated = resp.Result.Truncated
	if resp.Decision == present.Plot {
		out.ChartSpec = resp.ChartSpec
		out.Chart = resp.Chart
	}
	return out
}

type schemaResponse struct {
	Tables []schema.Table `json:"tables"`
}

func handleSchema(deps Dependencies, w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, schemaResponse{Tables: deps.Catalog.Tables()})
}

func handleDeleteConversation(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := storage.ConversationPrefix(id); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_CONVERSATION_ID", err.Error(), false, nil)
		return
	}
	if deps.Chat == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CHAT_NOT_CONFIGURED", "chat pipeline is not configured", false, nil)
		return
	}

	reset := deps.Chat.Reset(id)
	purged := 0
	if deps.Archive != nil {
		var err error
		purged, err = deps.Archive.Purge(r.Context(), id)
		if err != nil {
			writeError(r.Context(), w, http.StatusBadGateway, "ARCHIVE_PURGE_FAILED", "failed to purge archived turns", true, map[string]any{"details": err.Error()})
			return
		}
	}
	if !reset && purged == 0 {
		writeError(r.Context(), w, http.StatusNotFound, "CONVERSATION_NOT_FOUND", "conversation not found", false, map[string]any{"conversation_id": id})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id":         id,
		"reset":                   reset,
		"archived_objects_purged": purged,
	})
}

type turnsResponse struct {
	ConversationID string             `json:"conversation_id"`
	Turns          []archive.Metadata `json:"turns"`
}

func handleListTurns(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := storage.ConversationPrefix(id); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_CONVERSATION_ID", err.Error(), false, nil)
		return
	}
	if deps.Archive == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ARCHIVE_NOT_CONFIGURED", "turn archive is disabled", false, nil)
		return
	}
	turns, err := deps.Archive.Turns(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadGateway, "ARCHIVE_READ_FAILED", "failed to read archived turns", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, turnsResponse{ConversationID: id, Turns: turns})
}
