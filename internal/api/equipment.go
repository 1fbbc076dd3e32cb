package api

import (
	"net/http"

	"github.com/meur/gearforge/internal/models"
)

// handleAddEquipment adds a piece to a class inventory
func (s *Server) handleAddEquipment(w http.ResponseWriter, r *http.Request) {
	var req models.EquipmentAdd
	if err := decodeJSON(r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}

	required := []struct{ name, value string }{
		{"guardian_class", req.GuardianClass},
		{"equipment_type", req.EquipmentType},
		{"tag", req.Tag},
		{"random_stat", req.RandomStat},
	}
	for _, f := range required {
		if f.value == "" {
			respondError(w, http.StatusBadRequest, "缺少必需字段: "+f.name)
			return
		}
	}

	e, err := s.manager.AddEquipment(r.Context(), req)
	if err != nil {
		s.respondManagerError(w, r, "add equipment", err)
		return
	}

	respondSuccess(w, map[string]interface{}{"equipment": e.View()})
}

// handleListEquipment lists one class inventory, or all of them keyed by class
func (s *Server) handleListEquipment(w http.ResponseWriter, r *http.Request) {
	class := r.URL.Query().Get("guardian_class")

	if class != "" {
		items, err := s.manager.ListEquipment(r.Context(), class)
		if err != nil {
			s.respondManagerError(w, r, "list equipment", err)
			return
		}
		respondSuccess(w, map[string]interface{}{"equipments": items})
		return
	}

	all, err := s.manager.ListAllEquipment(r.Context())
	if err != nil {
		s.respondManagerError(w, r, "list equipment", err)
		return
	}
	respondSuccess(w, map[string]interface{}{"equipments": all})
}

// handleDeleteEquipment removes a piece from a class inventory
func (s *Server) handleDeleteEquipment(w http.ResponseWriter, r *http.Request) {
	var req models.EquipmentDelete
	if err := decodeJSON(r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}
	if req.GuardianClass == "" {
		respondError(w, http.StatusBadRequest, "缺少必需字段: guardian_class")
		return
	}
	if req.EquipmentID == "" {
		respondError(w, http.StatusBadRequest, "缺少必需字段: equipment_id")
		return
	}

	if err := s.manager.RemoveEquipment(r.Context(), req.GuardianClass, req.EquipmentID); err != nil {
		s.respondManagerError(w, r, "delete equipment", err)
		return
	}

	respondSuccess(w, map[string]interface{}{"message": "裝備已刪除"})
}
