// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/dart/internal/rtspserver"
	"github.com/ManuGH/dart/internal/source"
)

// SourceView is a supervisor status enriched with its mount.
type SourceView struct {
	source.Status
	URL      string `json:"url,omitempty"`
	Sessions int    `json:"sessions"`
	Active   bool   `json:"active"`
}

// SourceList is the body of GET /api/sources.
type SourceList struct {
	Sources []SourceView `json:"sources"`
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.cfg.Version})
}

func (s *Server) handleListSources(w http.ResponseWriter, _ *http.Request) {
	mounts := s.mountIndex()
	snaps := s.deps.Sources.Snapshots()
	out := SourceList{Sources: make([]SourceView, 0, len(snaps))}
	for _, st := range snaps {
		out.Sources = append(out.Sources, s.view(st, mounts))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	st, ok := s.deps.Sources.Snapshot(name)
	if !ok {
		writeNotFound(w, r, "unknown source "+name)
		return
	}
	writeJSON(w, http.StatusOK, s.view(st, s.mountIndex()))
}

func (s *Server) handleListMounts(w http.ResponseWriter, _ *http.Request) {
	mounts := []rtspserver.MountStatus{}
	if s.deps.Mounts != nil {
		mounts = s.deps.Mounts.Mounts()
	}
	writeJSON(w, http.StatusOK, map[string]any{"mounts": mounts})
}

func (s *Server) mountIndex() map[string]rtspserver.MountStatus {
	idx := make(map[string]rtspserver.MountStatus)
	if s.deps.Mounts == nil {
		return idx
	}
	for _, m := range s.deps.Mounts.Mounts() {
		idx[m.Path] = m
	}
	return idx
}

func (s *Server) view(st source.Status, mounts map[string]rtspserver.MountStatus) SourceView {
	v := SourceView{Status: st}
	if s.cfg.RTSPBase != "" {
		v.URL = s.cfg.RTSPBase + st.Mount
	}
	if m, ok := mounts[st.Mount]; ok {
		v.Sessions = m.Sessions
		v.Active = m.Active
	}
	return v
}
