// Package api provides the HTTP API for editing and searching the map.
// GET endpoints are public (read-only observation).
// POST, PUT and DELETE endpoints require the admin bearer token. Without an
// admin key they are refused unless the server is explicitly opened.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/hexmap/internal/editor"
	"github.com/talgya/hexmap/internal/engine"
	"github.com/talgya/hexmap/internal/persistence"
	"github.com/talgya/hexmap/internal/world"
)

// maxBodyBytes bounds request bodies; the largest is an edit request.
const maxBodyBytes = 64 * 1024

var mapNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Server serves one editing session over HTTP.
type Server struct {
	Session     *editor.Session
	Eng         *engine.Engine  // Optional; only reported in status.
	DB          *persistence.DB // Optional; map library endpoints need it.
	Gen         world.GenConfig // Defaults for map generation requests.
	Port        int
	AdminKey    string   // Bearer token for mutating endpoints.
	OpenAdmin   bool     // Serve mutating endpoints without AdminKey.
	CORSOrigins []string // "*" allows any origin.
	ExportDir   string
	PathLimit   int // Path searches per minute per client; 0 = unlimited.

	hub         *Hub
	streamConns int32
	startedAt   time.Time
}

// Handler builds the HTTP handler with every route registered.
func (s *Server) Handler() http.Handler {
	if s.hub == nil {
		s.hub = NewHub()
	}
	if s.startedAt.IsZero() {
		s.startedAt = time.Now()
	}
	pathLimiter := NewRateLimiter(s.PathLimit, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/map", s.handleMap)
	mux.HandleFunc("GET /api/v1/chunk/{index}", s.handleChunk)
	mux.HandleFunc("GET /api/v1/cell/{x}/{z}", s.handleCell)
	mux.HandleFunc("GET /api/v1/cell/at", s.handleCellAt)
	mux.HandleFunc("GET /api/v1/maps", s.handleListMaps)
	mux.HandleFunc("GET /api/v1/stream", s.handleStream)

	// Searching does not change the map, but it is the expensive call.
	mux.HandleFunc("POST /api/v1/path", RateLimitMiddleware(pathLimiter, s.handlePath))

	// Admin endpoints.
	mux.HandleFunc("DELETE /api/v1/path", s.adminOnly(s.handleClearPath))
	mux.HandleFunc("POST /api/v1/map/new", s.adminOnly(s.handleNewMap))
	mux.HandleFunc("POST /api/v1/map/generate", s.adminOnly(s.handleGenerate))
	mux.HandleFunc("POST /api/v1/edit", s.adminOnly(s.handleEdit))
	mux.HandleFunc("POST /api/v1/unit", s.adminOnly(s.handleAddUnit))
	mux.HandleFunc("DELETE /api/v1/unit/{x}/{z}", s.adminOnly(s.handleRemoveUnit))
	mux.HandleFunc("POST /api/v1/unit/move", s.adminOnly(s.handleMoveUnit))
	mux.HandleFunc("POST /api/v1/maps/{name}", s.adminOnly(s.handleSaveMap))
	mux.HandleFunc("PUT /api/v1/maps/{name}", s.adminOnly(s.handleLoadMap))
	mux.HandleFunc("DELETE /api/v1/maps/{name}", s.adminOnly(s.handleDeleteMap))
	mux.HandleFunc("POST /api/v1/maps/{name}/export", s.adminOnly(s.handleExport))
	mux.HandleFunc("POST /api/v1/maps/{name}/import", s.adminOnly(s.handleImport))

	return corsMiddleware(s.CORSOrigins, mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "open_admin", s.OpenAdmin, "library", s.DB != nil)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// Publish pushes the chunks changed since the last call to stream
// subscribers. It is called after every mutation and on every engine tick.
func (s *Server) Publish() {
	chunks := s.Session.DrainDirty()
	if len(chunks) == 0 || s.hub == nil {
		return
	}
	s.hub.Broadcast(StreamMessage{Type: "refresh", Tick: s.tick(), Chunks: chunks})
}

func (s *Server) publishMap() {
	s.Session.DrainDirty()
	if s.hub == nil {
		return
	}
	st := s.Session.Status()
	s.hub.Broadcast(StreamMessage{Type: "map", Tick: s.tick(), Width: st.Width, Height: st.Height})
}

func (s *Server) tick() uint64 {
	if s.Eng == nil {
		return 0
	}
	return s.Eng.CurrentTick()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Localhost dev servers are always allowed.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowAny := false
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			allowAny = true
		} else if origin != "" {
			allowedOrigins[origin] = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowAny || allowedOrigins[origin]) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth. Without an admin
// key the handler is refused unless OpenAdmin is set.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			if !s.OpenAdmin {
				http.Error(w, "editing endpoints disabled (no HEXMAP_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
		} else if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.Session.Status()
	status := map[string]any{
		"name":           "hexmap",
		"width":          st.Width,
		"height":         st.Height,
		"chunks":         st.Chunks,
		"units":          st.Units,
		"moving_units":   st.Moving,
		"has_path":       st.HasPath,
		"default_speed":  st.DefaultSpeed,
		"stream_clients": s.hub.Len(),
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
		"library":        s.DB != nil,
	}
	if s.Eng != nil {
		status["tick"] = s.Eng.CurrentTick()
		status["engine_running"] = s.Eng.Running()
	}
	writeJSON(w, status)
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Session.Snapshot())
}

func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "invalid chunk index", http.StatusBadRequest)
		return
	}
	cells, err := s.Session.ChunkCells(index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"chunk": index, "cells": cells})
}

func (s *Server) handleCell(w http.ResponseWriter, r *http.Request) {
	c, ok := pathCoordinates(w, r)
	if !ok {
		return
	}
	cell, err := s.Session.Cell(c)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, cell)
}

// handleCellAt finds the cell under a point of the map plane, as a
// client does when the user clicks the rendered map.
func (s *Server) handleCellAt(w http.ResponseWriter, r *http.Request) {
	var point [2]float64
	for i, key := range []string{"x", "z"} {
		v, err := strconv.ParseFloat(r.URL.Query().Get(key), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			http.Error(w, "query parameters x and z must be numbers", http.StatusBadRequest)
			return
		}
		point[i] = v
	}
	cell, err := s.Session.CellAtPosition(point[0], point[1])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, cell)
}

func (s *Server) handleNewMap(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.Session.NewMap(req.Width, req.Height); err != nil {
		writeError(w, err)
		return
	}
	s.publishMap()
	writeJSON(w, s.Session.Status())
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	cfg := s.Gen
	req := struct {
		Seed          *int64 `json:"seed"`
		MountainLevel *int   `json:"mountain_level"`
		SeaLevel      *int   `json:"sea_level"`
		Rivers        *int   `json:"rivers"`
	}{}
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	if req.MountainLevel != nil {
		cfg.MaxElevation = *req.MountainLevel
	}
	if req.SeaLevel != nil {
		cfg.WaterLevel = *req.SeaLevel
	}
	if req.Rivers != nil {
		cfg.Rivers = *req.Rivers
	}
	if cfg.MaxElevation <= 0 || cfg.MaxElevation > 255 || cfg.WaterLevel < 0 || cfg.WaterLevel > 255 || cfg.Rivers < 0 {
		http.Error(w, "generation levels out of range", http.StatusBadRequest)
		return
	}

	s.Session.Generate(cfg)
	s.publishMap()
	writeJSON(w, s.Session.Status())
}

type editRequest struct {
	Brush    editor.Brush       `json:"brush"`
	Center   world.Coordinates  `json:"center"`
	DragFrom *world.Coordinates `json:"drag_from,omitempty"`
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := s.Session.Edit(req.Brush, req.Center, req.DragFrom)
	if err != nil {
		writeError(w, err)
		return
	}
	s.Publish()
	writeJSON(w, map[string]int{"edited": n})
}

type pathRequest struct {
	From  world.Coordinates `json:"from"`
	To    world.Coordinates `json:"to"`
	Speed int               `json:"speed"`
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := s.Session.FindPath(req.From, req.To, req.Speed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, p)
}

func (s *Server) handleClearPath(w http.ResponseWriter, r *http.Request) {
	s.Session.ClearPath()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddUnit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		world.Coordinates
		Orientation float64 `json:"orientation"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.Session.AddUnit(req.Coordinates, req.Orientation); err != nil {
		writeError(w, err)
		return
	}
	s.Publish()
	writeJSONStatus(w, http.StatusCreated, req)
}

func (s *Server) handleRemoveUnit(w http.ResponseWriter, r *http.Request) {
	c, ok := pathCoordinates(w, r)
	if !ok {
		return
	}
	if err := s.Session.RemoveUnit(c); err != nil {
		writeError(w, err)
		return
	}
	s.Publish()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMoveUnit(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := s.Session.MoveUnit(req.From, req.To, req.Speed)
	if err != nil {
		writeError(w, err)
		return
	}
	s.Publish()
	writeJSON(w, p)
}

func (s *Server) handleListMaps(w http.ResponseWriter, r *http.Request) {
	if !s.requireLibrary(w) {
		return
	}
	maps, err := s.DB.ListMaps()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, maps)
}

func (s *Server) handleSaveMap(w http.ResponseWriter, r *http.Request) {
	name, ok := mapName(w, r)
	if !ok || !s.requireLibrary(w) {
		return
	}
	info, err := s.Session.SaveTo(s.DB, name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, info)
}

func (s *Server) handleLoadMap(w http.ResponseWriter, r *http.Request) {
	name, ok := mapName(w, r)
	if !ok || !s.requireLibrary(w) {
		return
	}
	info, err := s.Session.LoadFrom(s.DB, name)
	if err != nil {
		writeError(w, err)
		return
	}
	s.publishMap()
	writeJSON(w, info)
}

func (s *Server) handleDeleteMap(w http.ResponseWriter, r *http.Request) {
	name, ok := mapName(w, r)
	if !ok || !s.requireLibrary(w) {
		return
	}
	if err := s.DB.DeleteMap(name); err != nil {
		writeError(w, err)
		return
	}
	slog.Info("map deleted", "name", name)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) exportPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	name, ok := mapName(w, r)
	if !ok {
		return "", false
	}
	if s.ExportDir == "" {
		http.Error(w, "map export disabled (no export dir)", http.StatusNotFound)
		return "", false
	}
	return filepath.Join(s.ExportDir, name+persistence.FileExt), true
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	path, ok := s.exportPath(w, r)
	if !ok {
		return
	}
	if err := s.Session.Export(path); err != nil {
		writeError(w, err)
		return
	}
	slog.Info("map exported", "path", path)
	writeJSON(w, map[string]string{"path": path})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	path, ok := s.exportPath(w, r)
	if !ok {
		return
	}
	if err := s.Session.Import(path); err != nil {
		writeError(w, err)
		return
	}
	slog.Info("map imported", "path", path)
	s.publishMap()
	writeJSON(w, s.Session.Status())
}

func (s *Server) requireLibrary(w http.ResponseWriter) bool {
	if s.DB == nil {
		http.Error(w, "map library disabled", http.StatusNotFound)
		return false
	}
	return true
}

func mapName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := r.PathValue("name")
	if !mapNamePattern.MatchString(name) {
		http.Error(w, "map names are 1-64 letters, digits, '-' or '_'", http.StatusBadRequest)
		return "", false
	}
	return name, true
}

// pathCoordinates reads cube coordinates from the {x} and {z} path values.
func pathCoordinates(w http.ResponseWriter, r *http.Request) (world.Coordinates, bool) {
	x, errX := strconv.Atoi(r.PathValue("x"))
	z, errZ := strconv.Atoi(r.PathValue("z"))
	if errX != nil || errZ != nil {
		http.Error(w, "invalid coordinates", http.StatusBadRequest)
		return world.Coordinates{}, false
	}
	return world.Coordinates{X: x, Z: z}, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, editor.ErrOutOfRange),
		errors.Is(err, editor.ErrInvalidMapSize):
		return http.StatusBadRequest
	case errors.Is(err, editor.ErrNoUnit),
		errors.Is(err, persistence.ErrMapNotFound),
		errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, editor.ErrCellOccupied):
		return http.StatusConflict
	case errors.Is(err, editor.ErrNoPath),
		errors.Is(err, persistence.ErrCorrupt),
		errors.Is(err, persistence.ErrUnsupportedVersion),
		errors.Is(err, persistence.ErrUnencodable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
