package web

import (
	"html/template"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/meur/gearforge/internal/client"
	"github.com/meur/gearforge/internal/models"
	"github.com/meur/gearforge/internal/resultview"
)

type buildView struct {
	models.Build
	Confirm Confirm
}

type buildsData struct {
	Classes  []models.GuardianClass
	Selected string
	Builds   []buildView
}

type buildData struct {
	Build      *models.Build
	ResultHTML template.HTML
	Confirm    Confirm
}

func deleteBuildConfirm(b *models.Build) Confirm {
	return newConfirm(b.ID,
		"確定要刪除套裝「"+b.Name+"」嗎？此操作無法撤銷。",
		"/builds/"+url.PathEscape(b.ID)+"/delete",
		nil)
}

func (s *Server) handleBuilds(w http.ResponseWriter, r *http.Request) {
	class := r.URL.Query().Get("guardian_class")
	data := buildsData{Classes: models.AllClasses(), Selected: class}

	builds, err := s.backend.ListBuilds(r.Context(), class)
	if err != nil {
		msg := s.backendError(r, "list builds", err)
		s.render(w, r, http.StatusBadGateway, "builds",
			page{Title: "已保存套裝", Notice: s.notify(NoticeError, msg), Data: data})
		return
	}

	for i := range builds {
		data.Builds = append(data.Builds, buildView{Build: builds[i], Confirm: deleteBuildConfirm(&builds[i])})
	}
	s.render(w, r, http.StatusOK, "builds", page{Title: "已保存套裝", Data: data})
}

// findBuild looks a build up and renders the failure page itself when it cannot
func (s *Server) findBuild(w http.ResponseWriter, r *http.Request) *models.Build {
	id := chi.URLParam(r, "id")
	b, err := s.backend.FindBuild(r.Context(), id)
	if err != nil {
		msg := s.backendError(r, "find build", err)
		s.render(w, r, http.StatusBadGateway, "build",
			page{Title: "套裝詳情", Notice: s.notify(NoticeError, msg), Data: buildData{}})
		return nil
	}
	if b == nil {
		s.render(w, r, http.StatusNotFound, "build",
			page{Title: "套裝詳情", Notice: s.notify(NoticeError, "套裝不存在"), Data: buildData{}})
		return nil
	}
	return b
}

func (s *Server) handleViewBuild(w http.ResponseWriter, r *http.Request) {
	b := s.findBuild(w, r)
	if b == nil {
		return
	}

	html, err := resultview.HTML(b.Formatted())
	if err != nil {
		s.logger.Error("failed to render build result", zap.String("build_id", b.ID), zap.Error(err))
	}
	s.render(w, r, http.StatusOK, "build", page{
		Title: b.Name,
		Data:  buildData{Build: b, ResultHTML: html, Confirm: deleteBuildConfirm(b)},
	})
}

// handleLoadBuild makes a saved build the current result
func (s *Server) handleLoadBuild(w http.ResponseWriter, r *http.Request) {
	b := s.findBuild(w, r)
	if b == nil {
		return
	}

	s.state.set(sessionID(r), &currentBuild{
		Config: models.BuildConfigure{
			GuardianClass:    b.GuardianClass,
			TargetAttributes: b.TargetAttributes,
			PreferredAttr:    b.PreferredAttr,
			UseExotic:        b.ExoticEquipment != nil,
			ExoticEquipment:  b.ExoticEquipment,
		},
		Result:    b.Result,
		Formatted: b.Formatted(),
		Source:    b.Name,
	})

	u := url.URL{Path: "/", Fragment: "build-result"}
	redirectWithNotice(w, r, u.String(), NoticeSuccess, "已載入套裝: "+b.Name)
}

// handleDeleteBuild runs a confirmed build delete
func (s *Server) handleDeleteBuild(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	msg, err := s.backend.DeleteBuild(r.Context(), id)
	if err != nil {
		kind := NoticeError
		if client.IsNotFound(err) {
			kind = NoticeInfo
		}
		redirectWithNotice(w, r, "/builds", kind, s.backendError(r, "delete build", err))
		return
	}
	redirectWithNotice(w, r, "/builds", NoticeSuccess, msg)
}
