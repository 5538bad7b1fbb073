package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"messenger-be/internal/domain"
	"messenger-be/internal/registry"
	"messenger-be/internal/store"
)

// Health returns a simple health check handler.
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

type createChatRequest struct {
	UserID int64 `json:"user_id"`
	PeerID int64 `json:"peer_id"`
}

type createChatResponse struct {
	ChatID int64  `json:"chat_id"`
	Status string `json:"status"`
}

// CreateChat creates a two-participant chat. Creating a chat that already
// exists for the pair returns the existing chat id.
func CreateChat(s store.ChatStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid body"}`, http.StatusBadRequest)
			return
		}
		if req.UserID == 0 || req.PeerID == 0 {
			http.Error(w, `{"error":"user_id and peer_id required"}`, http.StatusBadRequest)
			return
		}
		if req.UserID == req.PeerID {
			http.Error(w, `{"error":"cannot create a chat with yourself"}`, http.StatusBadRequest)
			return
		}

		existing, err := s.FindChatByParticipants(r.Context(), req.UserID, req.PeerID)
		if err == nil {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(createChatResponse{ChatID: existing.ID, Status: "chat already exists"})
			return
		}
		if !errors.Is(err, store.ErrNotFound) {
			log.Error("find chat failed", zap.Error(err))
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}

		chat, err := s.CreateChat(r.Context(), []int64{req.UserID, req.PeerID})
		if err != nil {
			log.Error("create chat failed", zap.Error(err))
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(createChatResponse{ChatID: chat.ID, Status: "chat created"})
	}
}

// ListChats returns the chats a user participates in, with the other
// participant and the latest message per chat. Route: /api/chats?user=<id>.
func ListChats(s store.ChatStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.URL.Query().Get("user"), 10, 64)
		if err != nil {
			http.Error(w, `{"error":"user query param required"}`, http.StatusBadRequest)
			return
		}

		sums, err := s.ChatSummaries(r.Context(), userID)
		if err != nil {
			log.Error("chat summaries failed", zap.Error(err))
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		if sums == nil {
			sums = []domain.ChatSummary{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string][]domain.ChatSummary{"chats": sums})
	}
}

type chatInfoResponse struct {
	ChatID        int64   `json:"chat_id"`
	Participants  []int64 `json:"participants"`
	ActiveStreams int     `json:"active_streams"`
}

// ChatInfo returns a chat's participants and its currently connected stream
// count. Route pattern: /api/chats/{id}.
func ChatInfo(s store.ChatStore, reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			http.Error(w, `{"error":"invalid chat id"}`, http.StatusBadRequest)
			return
		}

		chat, err := s.GetChat(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, `{"error":"chat not found"}`, http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatInfoResponse{
			ChatID:        chat.ID,
			Participants:  chat.Participants,
			ActiveStreams: reg.ActiveStreams(chat.ID),
		})
	}
}
