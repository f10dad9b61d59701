package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/faqbot/internal/chat"
	"github.com/hyperjump/faqbot/internal/models"
	"github.com/hyperjump/faqbot/internal/stream"
)

// decodeMessage reads the chat request. An undecodable body yields an empty message, which the
// pipeline answers with the "message required" reply.
func decodeMessage(r *http.Request) string {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return ""
	}
	return req.Message
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	message := decodeMessage(r)
	ctx := chat.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
	sink := stream.NewNDJSONWriter(w)

	err := s.chat.Respond(ctx, message, sink)
	if err == nil {
		return
	}
	if sink.Started() {
		s.logger.Warn("chat response interrupted", zap.Error(err))
		return
	}
	s.respondFailure(w, err)
}

func (s *Server) handleFAQMatch(w http.ResponseWriter, r *http.Request) {
	message := decodeMessage(r)
	ctx := chat.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
	var collector stream.Collector

	if err := s.chat.Respond(ctx, message, &collector); err != nil {
		s.respondFailure(w, err)
		return
	}
	if msg := collector.Err(); msg != "" {
		s.respondReply(w, http.StatusBadGateway, chat.MsgConnectFailed)
		return
	}
	s.respondJSON(w, http.StatusOK, collector.Reply())
}

// respondFailure maps a pipeline error that happened before any output to a JSON reply.
func (s *Server) respondFailure(w http.ResponseWriter, err error) {
	var upErr *chat.UpstreamError
	if errors.As(err, &upErr) {
		status := http.StatusBadGateway
		if upErr.Kind == chat.KindEmbedding {
			status = http.StatusInternalServerError
		}
		s.respondReply(w, status, upErr.Reply)
		return
	}
	s.logger.Error("chat failed", zap.Error(err))
	s.respondReply(w, http.StatusInternalServerError, chat.MsgSystemError)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":     "ok",
		"faqs":       s.info.Entries,
		"dimensions": s.info.Dimensions,
	}
	if s.info.PoolStats != nil {
		stats := s.info.PoolStats()
		resp["embedding_workers"] = stats.Workers
		resp["embedding_busy"] = stats.Busy
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondReply(w http.ResponseWriter, status int, reply string) {
	s.respondJSON(w, status, models.ChatReply{Reply: reply})
}
