package web

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/meur/gearforge/internal/forms"
	"github.com/meur/gearforge/internal/models"
	"github.com/meur/gearforge/internal/resultview"
)

// reference is the backend's static option data
type reference struct {
	Classes    []models.ClassOption
	Types      []string
	Tags       []models.TagConfig
	Attributes []string
}

// referenceCache keeps the first complete reference fetch
type referenceCache struct {
	mu  sync.Mutex
	ref *reference
}

// loadReference fetches the four reference lists concurrently. A complete
// result is cached for the life of the process.
func (s *Server) loadReference(ctx context.Context) (*reference, error) {
	s.refs.mu.Lock()
	cached := s.refs.ref
	s.refs.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	ref := &reference{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ref.Classes, err = s.backend.Classes(ctx)
		return err
	})
	g.Go(func() (err error) {
		ref.Types, err = s.backend.EquipmentTypes(ctx)
		return err
	})
	g.Go(func() (err error) {
		ref.Tags, err = s.backend.EquipmentTags(ctx)
		return err
	})
	g.Go(func() (err error) {
		ref.Attributes, err = s.backend.Attributes(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.refs.mu.Lock()
	s.refs.ref = ref
	s.refs.mu.Unlock()
	return ref, nil
}

type dashboardData struct {
	Ref         *reference
	Config      *models.BuildConfigure
	Equipment   url.Values
	Current     *currentBuild
	ResultHTML  template.HTML
	ResultError string
	Loading     string
}

// renderDashboard fills in reference data and the current result, then renders
func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, status int, data dashboardData, notice *Notification) {
	ref, err := s.loadReference(r.Context())
	if err != nil {
		msg := s.backendError(r, "load reference", err)
		if notice == nil {
			notice = s.notify(NoticeError, msg)
		}
		ref = &reference{}
	}
	data.Ref = ref

	if data.Current == nil && data.ResultError == "" {
		data.Current = s.state.get(sessionID(r))
	}
	if data.Current != nil {
		if data.Config == nil {
			cfg := data.Current.Config
			data.Config = &cfg
		}
		html, err := resultview.HTML(data.Current.Formatted)
		if err != nil {
			s.logger.Error("failed to render build result", zap.Error(err))
		}
		data.ResultHTML = html
	}
	if data.Current == nil && data.ResultError == "" {
		data.Loading = "尚未配置套裝，請設置目標屬性後開始配置"
	}

	s.render(w, r, status, "dashboard", page{Title: "套裝配置", Notice: notice, Data: data})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.renderDashboard(w, r, http.StatusOK, dashboardData{}, nil)
}

// handleAddEquipment validates the add form and adds the piece
func (s *Server) handleAddEquipment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderDashboard(w, r, http.StatusBadRequest, dashboardData{}, s.notify(NoticeError, "表單格式錯誤"))
		return
	}

	req, err := forms.AddEquipmentForm(r.PostForm)
	if err != nil {
		s.renderDashboard(w, r, http.StatusUnprocessableEntity,
			dashboardData{Equipment: r.PostForm}, s.notify(NoticeError, err.Error()))
		return
	}

	added, err := s.backend.AddEquipment(r.Context(), req)
	if err != nil {
		msg := s.backendError(r, "add equipment", err)
		s.renderDashboard(w, r, http.StatusBadGateway,
			dashboardData{Equipment: r.PostForm}, s.notify(NoticeError, msg))
		return
	}

	target := "/inventory?guardian_class=" + url.QueryEscape(req.GuardianClass)
	redirectWithNotice(w, r, target, NoticeSuccess, "裝備已添加: "+added.Name+" ("+added.ID+")")
}

// handleConfigure validates the build form and runs the search. The previous
// result is cleared first and stays cleared if anything fails.
func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	s.state.clear(sessionID(r))

	if err := r.ParseForm(); err != nil {
		s.renderDashboard(w, r, http.StatusBadRequest, dashboardData{ResultError: "表單格式錯誤"}, nil)
		return
	}

	req, err := forms.BuildForm(r.PostForm, models.Attributes())
	if err != nil {
		var verr *forms.ValidationError
		if !errors.As(err, &verr) {
			s.logger.Error("unexpected form error", zap.Error(err))
		}
		s.renderDashboard(w, r, http.StatusUnprocessableEntity,
			dashboardData{Config: &req, ResultError: err.Error()}, nil)
		return
	}

	res, err := s.backend.ConfigureBuild(r.Context(), req)
	if err != nil {
		msg := s.backendError(r, "configure build", err)
		s.renderDashboard(w, r, http.StatusBadGateway,
			dashboardData{Config: &req, ResultError: msg}, nil)
		return
	}

	s.state.set(sessionID(r), &currentBuild{
		Config:    req,
		Result:    []byte(res.Result),
		Formatted: res.Formatted,
	})

	u := url.URL{Path: "/", Fragment: "build-result"}
	redirectWithNotice(w, r, u.String(), NoticeSuccess, "套裝配置完成")
}

// handleSave stores the current result under a name
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderDashboard(w, r, http.StatusBadRequest, dashboardData{}, s.notify(NoticeError, "表單格式錯誤"))
		return
	}

	name, err := forms.SaveForm(r.PostForm)
	if err != nil {
		s.renderDashboard(w, r, http.StatusUnprocessableEntity, dashboardData{}, s.notify(NoticeError, err.Error()))
		return
	}

	cur := s.state.get(sessionID(r))
	if cur == nil {
		s.renderDashboard(w, r, http.StatusConflict, dashboardData{}, s.notify(NoticeError, "請先配置套裝"))
		return
	}

	_, msg, err := s.backend.SaveBuild(r.Context(), models.BuildSave{
		Name:             name,
		GuardianClass:    cur.Config.GuardianClass,
		TargetAttributes: cur.Config.TargetAttributes,
		PreferredAttr:    cur.Config.PreferredAttr,
		ExoticEquipment:  cur.Config.ExoticEquipment,
		Result:           cur.Result,
	})
	if err != nil {
		msg := s.backendError(r, "save build", err)
		s.renderDashboard(w, r, http.StatusBadGateway, dashboardData{}, s.notify(NoticeError, msg))
		return
	}

	target := "/builds?guardian_class=" + url.QueryEscape(cur.Config.GuardianClass)
	redirectWithNotice(w, r, target, NoticeSuccess, msg)
}

// Class is the selected class of the configure form
func (d dashboardData) Class() string {
	if d.Config == nil {
		return ""
	}
	return d.Config.GuardianClass
}

// Target is the prefill value for a target input
func (d dashboardData) Target(attr string) string {
	if d.Config == nil {
		return ""
	}
	return formatInput(d.Config.TargetAttributes[attr])
}

// Preferred is the selected preferred attribute
func (d dashboardData) Preferred() string {
	if d.Config == nil {
		return ""
	}
	return deref(d.Config.PreferredAttr)
}

// Exotic is the exotic piece of the current configuration, if any
func (d dashboardData) Exotic() *models.ExoticEquipment {
	if d.Config == nil || !d.Config.UseExotic {
		return nil
	}
	return d.Config.ExoticEquipment
}

// ExoticValue is the prefill value for an exotic attribute input
func (d dashboardData) ExoticValue(attr string) string {
	if x := d.Exotic(); x != nil {
		return formatInput(x.Attributes[attr])
	}
	return ""
}

// ExoticType is the selected exotic slot
func (d dashboardData) ExoticType() string {
	if x := d.Exotic(); x != nil {
		return x.Type
	}
	return ""
}

// ExoticTag is the selected exotic tag
func (d dashboardData) ExoticTag() string {
	if x := d.Exotic(); x != nil {
		return deref(x.Tag)
	}
	return ""
}
