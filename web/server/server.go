package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
)

// Server serves the adaptive tracer demo: a static UI plus an SSE
// endpoint that streams intermediate renders as the allocator converges.
type Server struct {
	port int
}

// NewServer creates a new web server.
func NewServer(port int) *Server {
	return &Server{port: port}
}

// Start starts the web server.
func (s *Server) Start() error {
	http.Handle("/", http.FileServer(http.Dir("static/")))

	http.HandleFunc("/api/render", s.handleRender)
	http.HandleFunc("/api/health", s.handleHealth)

	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("Starting web server on http://localhost%s", addr)
	return http.ListenAndServe(addr, nil)
}

// handleHealth provides a simple health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
