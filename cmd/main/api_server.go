package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
)

const (
	actionShutdown = "shutdown"
	actionRestart  = "restart"
)

// ServerAPI holds the dependencies for the main application API handlers.
type ServerAPI struct {
	mu         sync.RWMutex // Guards config.
	config     *Config
	actionChan chan string
	logger     *slog.Logger
}

// VersionInfo defines the structure for build/version information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// NewServerAPI creates a new instance of the ServerAPI.
func NewServerAPI(config *Config, actionChan chan string, logger *slog.Logger) *ServerAPI {
	return &ServerAPI{
		config:     config,
		actionChan: actionChan,
		logger:     logger,
	}
}

// RegisterRoutes sets up the routing for all /api/server endpoints. The health
// check is registered separately, outside authentication.
func (a *ServerAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/server/config", requireScope(scopeServerConfig, a.handleConfig))
	mux.HandleFunc("/api/server/version", a.handleVersion)
	mux.HandleFunc("/api/server/shutdown", requireScope(scopeServerCtl, a.handleShutdown))
	mux.HandleFunc("/api/server/restart", requireScope(scopeServerCtl, a.handleRestart))
}

// handleHealthCheck reports that the process is up.
func (a *ServerAPI) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleConfig gets or updates the configuration. An update is validated,
// saved to the config file in its own format, and takes effect on the next
// restart.
func (a *ServerAPI) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.mu.RLock()
		defer a.mu.RUnlock()
		respondWithJSON(w, http.StatusOK, a.config)
	case http.MethodPut:
		newConfig := DefaultConfig()
		if err := json.NewDecoder(r.Body).Decode(newConfig); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		if newConfig.Server == nil {
			newConfig.Server = DefaultServerConfig()
		}
		if newConfig.Lexicon == nil {
			newConfig.Lexicon = DefaultLexiconConfig()
		}
		if err := newConfig.validate(); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		a.mu.Lock()
		defer a.mu.Unlock()
		newConfig.path = a.config.path
		if newConfig.path == "" {
			respondWithError(w, http.StatusConflict, "The running configuration has no backing file")
			return
		}
		if err := saveConfig(newConfig.path, newConfig); err != nil {
			a.logger.Error("Failed to save configuration", "path", newConfig.path, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save configuration to disk: %v", err))
			return
		}
		*a.config = *newConfig

		a.logger.Info("Configuration updated and saved via API. Changes apply on restart.", "path", newConfig.path)
		respondWithJSON(w, http.StatusOK, a.config)
	default:
		w.Header().Set("Allow", "GET, PUT")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleVersion returns the application's build information.
func (a *ServerAPI) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	info := VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
	}
	respondWithJSON(w, http.StatusOK, info)
}

// handleShutdown initiates a graceful shutdown of the server.
func (a *ServerAPI) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	a.logger.Warn("Shutdown initiated via API")
	respondWithJSON(w, http.StatusAccepted, map[string]string{"message": "Server is shutting down..."})

	go func() {
		a.actionChan <- actionShutdown
	}()
}

// handleRestart initiates a graceful restart of the server. The config file
// is re-read and the models are rebuilt from scratch.
func (a *ServerAPI) handleRestart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	a.logger.Warn("Restart initiated via API")
	respondWithJSON(w, http.StatusAccepted, map[string]string{"message": "Server is restarting..."})

	go func() {
		a.actionChan <- actionRestart
	}()
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			fmt.Printf("ERROR: Failed to encode JSON response: %v\n", err)
		}
	}
}
