package web

import (
	"net/http"
	"net/url"

	"github.com/meur/gearforge/internal/models"
)

// slotGroup is one collapsible group of the inventory list
type slotGroup struct {
	Type  string
	Items []itemView
	Open  bool
}

type itemView struct {
	models.EquipmentView
	Confirm Confirm
}

// classInventory is one class's grouped inventory
type classInventory struct {
	Class  string
	Total  int
	Groups []slotGroup
}

type inventoryData struct {
	Classes  []models.GuardianClass
	Selected string
	Sections []classInventory
}

const otherSlotGroup = "其他"

// groupBySlot groups items by slot in the fixed type order. Empty groups are
// skipped and the first populated group starts open.
func groupBySlot(class string, items []models.EquipmentView) []slotGroup {
	bySlot := make(map[string][]itemView)
	for _, e := range items {
		slot := e.Type
		if !models.IsEquipmentType(slot) {
			slot = otherSlotGroup
		}
		bySlot[slot] = append(bySlot[slot], itemView{
			EquipmentView: e,
			Confirm: newConfirm(class+"/"+e.ID,
				"確定要刪除裝備「"+e.Name+"」("+e.ID+") 嗎？",
				"/inventory/delete",
				map[string]string{"guardian_class": class, "equipment_id": e.ID}),
		})
	}

	order := append(models.EquipmentTypes(), otherSlotGroup)
	groups := make([]slotGroup, 0, len(order))
	for _, slot := range order {
		if len(bySlot[slot]) == 0 {
			continue
		}
		groups = append(groups, slotGroup{Type: slot, Items: bySlot[slot], Open: len(groups) == 0})
	}
	return groups
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	class := r.URL.Query().Get("guardian_class")
	data := inventoryData{Classes: models.AllClasses(), Selected: class}

	if class != "" {
		items, err := s.backend.ListEquipment(r.Context(), class)
		if err != nil {
			msg := s.backendError(r, "list equipment", err)
			s.render(w, r, http.StatusBadGateway, "inventory",
				page{Title: "裝備倉庫", Notice: s.notify(NoticeError, msg), Data: data})
			return
		}
		data.Sections = []classInventory{{Class: class, Total: len(items), Groups: groupBySlot(class, items)}}
		s.render(w, r, http.StatusOK, "inventory", page{Title: "裝備倉庫", Data: data})
		return
	}

	all, err := s.backend.ListAllEquipment(r.Context())
	if err != nil {
		msg := s.backendError(r, "list equipment", err)
		s.render(w, r, http.StatusBadGateway, "inventory",
			page{Title: "裝備倉庫", Notice: s.notify(NoticeError, msg), Data: data})
		return
	}
	for _, c := range models.AllClasses() {
		items := all[string(c)]
		data.Sections = append(data.Sections, classInventory{
			Class:  string(c),
			Total:  len(items),
			Groups: groupBySlot(string(c), items),
		})
	}
	s.render(w, r, http.StatusOK, "inventory", page{Title: "裝備倉庫", Data: data})
}

// handleDeleteEquipment runs a confirmed inventory delete
func (s *Server) handleDeleteEquipment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWithNotice(w, r, "/inventory", NoticeError, "表單格式錯誤")
		return
	}
	class := r.PostForm.Get("guardian_class")
	id := r.PostForm.Get("equipment_id")
	target := "/inventory?guardian_class=" + url.QueryEscape(class)

	msg, err := s.backend.DeleteEquipment(r.Context(), class, id)
	if err != nil {
		redirectWithNotice(w, r, target, NoticeError, s.backendError(r, "delete equipment", err))
		return
	}
	redirectWithNotice(w, r, target, NoticeSuccess, msg)
}
