package api

import (
	"net/http"

	"github.com/meur/gearforge/internal/models"
)

// handleGetClasses returns all guardian classes
func (s *Server) handleGetClasses(w http.ResponseWriter, r *http.Request) {
	classes := make([]models.ClassOption, 0, 3)
	for _, c := range models.AllClasses() {
		classes = append(classes, models.ClassOption{Value: string(c), Name: string(c)})
	}
	respondJSON(w, http.StatusOK, classes)
}

// handleGetEquipmentTypes returns the slot categories
func (s *Server) handleGetEquipmentTypes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.EquipmentTypes())
}

// handleGetEquipmentTags returns the archetype table
func (s *Server) handleGetEquipmentTags(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.EquipmentTags())
}

// handleGetAttributes returns every stat name
func (s *Server) handleGetAttributes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.Attributes())
}
