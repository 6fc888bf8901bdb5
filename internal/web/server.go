package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"image-compressor-go/internal/batch"
	"image-compressor-go/internal/compressor"
	"image-compressor-go/internal/config"
	"image-compressor-go/internal/discovery"
	"image-compressor-go/internal/metadata"
	"image-compressor-go/internal/statistics"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type Server struct {
	cfg        *config.Config
	log        *logrus.Logger
	metadata   metadata.Copier
	router     *mux.Router
	httpServer *http.Server
	wsUpgrader websocket.Upgrader
	wsClients  map[*websocket.Conn]bool
	wsMutex    sync.Mutex

	// Current batch state
	operationMutex sync.RWMutex
	isRunning      bool
	currentStats   *statistics.Statistics
	lastSummary    *batch.Summary
	done           chan struct{}
}

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type DiscoverRequest struct {
	Directory string `json:"directory"`
}

type CompressRequest struct {
	Files           []string `json:"files,omitempty"`
	InputDirectory  string   `json:"input_directory,omitempty"`
	OutputDirectory string   `json:"output_directory,omitempty"`
	Quality         string   `json:"quality,omitempty"`
	Ratio           *float64 `json:"ratio,omitempty"`
	Dimension       string   `json:"dimension,omitempty"`
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// NewServer returns a server using cfg as the defaults for every batch.
// copier may be nil.
func NewServer(cfg *config.Config, log *logrus.Logger, copier metadata.Copier) *Server {
	s := &Server{
		cfg:       cfg,
		log:       log,
		metadata:  copier,
		router:    mux.NewRouter(),
		wsClients: make(map[*websocket.Conn]bool),
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/discover", s.handleDiscover).Methods("POST")
	api.HandleFunc("/compress", s.handleCompress).Methods("POST")
	api.HandleFunc("/statistics", s.handleGetStatistics).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.log.Infof("Starting web server on http://localhost%s", addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Wait blocks until the batch started last has finished.
func (s *Server) Wait() {
	s.operationMutex.RLock()
	done := s.done
	s.operationMutex.RUnlock()
	if done != nil {
		<-done
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.operationMutex.RLock()
	running := s.isRunning
	stats := s.currentStats
	summary := s.lastSummary
	s.operationMutex.RUnlock()

	var statsData interface{}
	if stats != nil {
		statsData = stats.Snapshot()
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"running":    running,
			"statistics": statsData,
			"summary":    summaryData(summary),
		},
	})
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	var req DiscoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Directory == "" {
		s.writeError(w, "Directory is required", http.StatusBadRequest)
		return
	}

	if info, err := os.Stat(req.Directory); err != nil || !info.IsDir() {
		s.writeError(w, "Directory does not exist", http.StatusBadRequest)
		return
	}

	finder := discovery.NewFinder(s.log, statistics.NewStatistics())
	s.writeJSON(w, APIResponse{
		Success: true,
		Data:    finder.FindImages(req.Directory),
	})
}

func (s *Server) handleCompress(w http.ResponseWriter, r *http.Request) {
	var req CompressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cfg, err := s.jobConfig(req)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.operationMutex.Lock()
	if s.isRunning {
		s.operationMutex.Unlock()
		s.writeError(w, "Operation already in progress", http.StatusConflict)
		return
	}
	s.isRunning = true
	s.currentStats = statistics.NewStatistics()
	s.lastSummary = nil
	s.done = make(chan struct{})
	stats, done := s.currentStats, s.done
	s.operationMutex.Unlock()

	go s.runCompressAsync(cfg, stats, done)

	s.writeJSON(w, APIResponse{
		Success: true,
		Message: "Compression started",
	})
}

// jobConfig applies the request on top of the server defaults and validates the result.
func (s *Server) jobConfig(req CompressRequest) (*config.Config, error) {
	cfg := *s.cfg
	cfg.Files = req.Files
	cfg.InputDirectory = req.InputDirectory
	if req.OutputDirectory != "" {
		cfg.OutputDirectory = req.OutputDirectory
	}
	if req.Quality != "" {
		cfg.Quality = req.Quality
	}
	if req.Ratio != nil || req.Dimension != "" {
		cfg.Scale = config.ScaleConfig{Ratio: req.Ratio, Dimension: req.Dimension}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.IsDirectoryMode() && cfg.InputDirectory == "" {
		return nil, fmt.Errorf("files or input_directory is required")
	}
	return &cfg, nil
}

func (s *Server) handleGetStatistics(w http.ResponseWriter, r *http.Request) {
	s.operationMutex.RLock()
	stats := s.currentStats
	s.operationMutex.RUnlock()

	if stats == nil {
		s.writeJSON(w, APIResponse{
			Success: true,
			Data:    nil,
		})
		return
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"summary": stats.GetSummary(),
			"errors":  stats.GetErrorSummary(),
			"images":  stats.Snapshot(),
		},
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	s.wsMutex.Lock()
	s.wsClients[conn] = true
	s.wsMutex.Unlock()

	s.log.Debug("WebSocket client connected")

	defer func() {
		s.wsMutex.Lock()
		delete(s.wsClients, conn)
		s.wsMutex.Unlock()
		s.log.Debug("WebSocket client disconnected")
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) runCompressAsync(cfg *config.Config, stats *statistics.Statistics, done chan struct{}) {
	defer close(done)

	s.broadcastWSMessage("compress_started", map[string]interface{}{
		"files":            cfg.Files,
		"input_directory":  cfg.InputDirectory,
		"output_directory": cfg.OutputDirectory,
		"scale":            cfg.GetScale().String(),
		"quality":          cfg.GetQuality().String(),
	})

	comp := compressor.NewDefaultCompressor(s.log, stats, compressor.Options{
		JPEGQuality: cfg.Output.JPEGQuality,
		Metadata:    s.metadata,
	})
	runner := batch.NewRunner(s.log, stats, discovery.NewFinder(s.log, stats), comp)

	summary := runner.Run(batch.Job{
		Files:           cfg.Files,
		InputDirectory:  cfg.InputDirectory,
		OutputDirectory: cfg.OutputDirectory,
		Scale:           cfg.GetScale(),
		Quality:         cfg.GetQuality(),
	})

	s.operationMutex.Lock()
	s.isRunning = false
	s.lastSummary = &summary
	s.operationMutex.Unlock()

	s.broadcastWSMessage("compress_completed", map[string]interface{}{
		"summary":    summaryData(&summary),
		"statistics": stats.GetSummary(),
	})
}

func summaryData(summary *batch.Summary) interface{} {
	if summary == nil {
		return nil
	}
	return map[string]interface{}{
		"requested": summary.Requested,
		"saved":     summary.Saved,
		"failed":    summary.Failed(),
	}
}

func (s *Server) broadcastWSMessage(messageType string, data interface{}) {
	message := WSMessage{
		Type: messageType,
		Data: data,
	}

	msgBytes, err := json.Marshal(message)
	if err != nil {
		s.log.Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}

	// Writes to a connection must not overlap, so broadcasts are serialized.
	s.wsMutex.Lock()
	defer s.wsMutex.Unlock()

	for conn := range s.wsClients {
		if err := conn.WriteMessage(websocket.TextMessage, msgBytes); err != nil {
			s.log.Errorf("Failed to write WebSocket message: %v", err)
			delete(s.wsClients, conn)
			conn.Close()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error:   message,
	})
}
