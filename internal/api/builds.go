package api

import (
	"net/http"

	"github.com/meur/gearforge/internal/models"
)

// handleConfigureBuild runs a build search
func (s *Server) handleConfigureBuild(w http.ResponseWriter, r *http.Request) {
	var req models.BuildConfigure
	if err := decodeJSON(r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}
	if req.GuardianClass == "" {
		respondError(w, http.StatusBadRequest, "缺少必需字段: guardian_class")
		return
	}

	res, err := s.manager.ConfigureBuild(r.Context(), req)
	if err != nil {
		s.respondManagerError(w, r, "configure build", err)
		return
	}

	respondSuccess(w, map[string]interface{}{
		"result":    res,
		"formatted": res.Formatted,
	})
}

// handleSaveBuild stores a named build
func (s *Server) handleSaveBuild(w http.ResponseWriter, r *http.Request) {
	var req models.BuildSave
	if err := decodeJSON(r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}
	if req.GuardianClass == "" {
		respondError(w, http.StatusBadRequest, "缺少必需字段: guardian_class")
		return
	}

	b, err := s.manager.SaveBuild(r.Context(), req)
	if err != nil {
		s.respondManagerError(w, r, "save build", err)
		return
	}

	respondSuccess(w, map[string]interface{}{
		"build":   b,
		"message": "套裝已成功保存",
	})
}

// handleListBuilds lists saved builds, optionally for one class
func (s *Server) handleListBuilds(w http.ResponseWriter, r *http.Request) {
	builds, err := s.manager.ListBuilds(r.Context(), r.URL.Query().Get("guardian_class"))
	if err != nil {
		s.respondManagerError(w, r, "list builds", err)
		return
	}
	respondSuccess(w, map[string]interface{}{"builds": builds})
}

// handleDeleteBuild deletes a build by ID
func (s *Server) handleDeleteBuild(w http.ResponseWriter, r *http.Request) {
	var req models.BuildDelete
	if err := decodeJSON(r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}
	if req.BuildID == "" {
		respondError(w, http.StatusBadRequest, "缺少必需字段: build_id")
		return
	}

	if err := s.manager.DeleteBuild(r.Context(), req.BuildID); err != nil {
		s.respondManagerError(w, r, "delete build", err)
		return
	}

	respondSuccess(w, map[string]interface{}{"message": "套裝已刪除"})
}
