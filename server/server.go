package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/Sethyshola20/T-itw/internal/models"
	"github.com/Sethyshola20/T-itw/pkg/extractor"
	"github.com/Sethyshola20/T-itw/pkg/indexer"
	"github.com/Sethyshola20/T-itw/pkg/logging"
	"github.com/Sethyshola20/T-itw/pkg/rag"
	"github.com/Sethyshola20/T-itw/pkg/registry"
	"github.com/Sethyshola20/T-itw/pkg/retriever"
	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// DocumentService is the part of the RAG service exposed over HTTP.
type DocumentService interface {
	Ingest(ctx context.Context, req rag.IngestRequest) (models.Document, error)
	Ask(ctx context.Context, documentID, question string) (rag.Answer, error)
	Search(ctx context.Context, documentID, query string) ([]retriever.Result, error)
	Document(ctx context.Context, id string) (models.Document, error)
	Documents(ctx context.Context) ([]models.Document, error)
	Delete(ctx context.Context, id string) error
}

var _ DocumentService = (*rag.Service)(nil)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the websocket envelope in both directions.
type Message struct {
	Type       string      `json:"type"`
	DocumentID string      `json:"documentId,omitempty"`
	Content    string      `json:"content"`
	Data       interface{} `json:"data,omitempty"`
}

type ServerConfig struct {
	Addr           string
	MaxUploadBytes int64
	RequestTimeout time.Duration
}

type Server struct {
	config  ServerConfig
	service DocumentService
	logger  *log.Logger
}

func NewWithConfig(config ServerConfig, service DocumentService, logger *log.Logger) *Server {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = extractor.DefaultMaxPDFBytes
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 2 * time.Minute
	}
	return &Server{
		config:  config,
		service: service,
		logger:  logging.Component(logger, "server"),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("POST /api/documents", s.handleUpload)
	mux.HandleFunc("GET /api/documents", s.handleList)
	mux.HandleFunc("GET /api/documents/{id}", s.handleGet)
	mux.HandleFunc("DELETE /api/documents/{id}", s.handleDelete)
	mux.HandleFunc("POST /api/query", s.handleQuery)
	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

type uploadRequest struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	DocumentID string `json:"documentId"`
}

type queryRequest struct {
	Query      string `json:"query"`
	DocumentID string `json:"documentId"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	var req rag.IngestRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes+1<<20)
		file, header, err := r.FormFile("file")
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("file is required: %w", err))
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, s.config.MaxUploadBytes+1))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read upload: %w", err))
			return
		}
		if err := extractor.ValidatePDF(data, s.config.MaxUploadBytes); err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		req = rag.IngestRequest{
			DocumentID: r.FormValue("documentId"),
			Title:      r.FormValue("title"),
			FilePath:   filepath.Base(header.Filename),
			Data:       data,
		}
	} else {
		var body uploadRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
		if strings.TrimSpace(body.URL) == "" {
			s.writeError(w, http.StatusBadRequest, errors.New("url is required"))
			return
		}
		req = rag.IngestRequest{DocumentID: body.DocumentID, Title: body.Title, URL: body.URL}
	}

	doc, err := s.service.Ingest(ctx, req)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	docs, err := s.service.Documents(r.Context())
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	s.writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	doc, err := s.service.Document(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	answer, err := s.service.Ask(ctx, req.DocumentID, req.Query)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	results, err := s.service.Search(r.Context(), req.DocumentID, req.Query)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	if results == nil {
		results = []retriever.Result{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func (s *Server) decodeQuery(w http.ResponseWriter, r *http.Request) (queryRequest, bool) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return req, false
	}
	if strings.TrimSpace(req.Query) == "" {
		s.writeError(w, http.StatusBadRequest, rag.ErrMissingQuestion)
		return req, false
	}
	if strings.TrimSpace(req.DocumentID) == "" {
		s.writeError(w, http.StatusBadRequest, rag.ErrMissingDocumentID)
		return req, false
	}
	return req, true
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read ended", "err", err)
			}
			return
		}
		s.handleMessage(r.Context(), conn, msg)
	}
}

func (s *Server) handleMessage(ctx context.Context, conn *websocket.Conn, msg Message) {
	if msg.Type != "ask" {
		s.sendMessage(conn, Message{Type: "error", Content: fmt.Sprintf("unsupported message type: %s", msg.Type)})
		return
	}

	s.sendMessage(conn, Message{Type: "status", DocumentID: msg.DocumentID, Content: "searching document"})

	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	answer, err := s.service.Ask(ctx, msg.DocumentID, msg.Content)
	if err != nil {
		s.sendMessage(conn, Message{Type: "error", DocumentID: msg.DocumentID, Content: err.Error()})
		return
	}
	s.sendMessage(conn, Message{Type: "response", DocumentID: msg.DocumentID, Content: answer.Text, Data: answer})
}

func (s *Server) sendMessage(conn *websocket.Conn, msg Message) {
	if err := conn.WriteJSON(msg); err != nil {
		s.logger.Warn("failed to send message", "err", err)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, rag.ErrMissingQuestion),
		errors.Is(err, rag.ErrMissingDocumentID),
		errors.Is(err, extractor.ErrNotPDF),
		errors.Is(err, extractor.ErrTooLarge),
		errors.Is(err, extractor.ErrEmptyPDF),
		errors.Is(err, extractor.ErrEmptyText),
		errors.Is(err, indexer.ErrEmptyDocument):
		return http.StatusBadRequest
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
