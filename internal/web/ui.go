package web

import (
	"fmt"
	"hash/fnv"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// NoticeKind styles a notification banner
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
	NoticeInfo    NoticeKind = "info"
)

// Notification is a dismissible banner shown at the top of a page
type Notification struct {
	Kind         NoticeKind
	Message      string
	DismissAfter time.Duration
	CloseHref    string
}

// DismissAfterMillis is the auto-dismiss delay for the data-dismiss-after attribute
func (n *Notification) DismissAfterMillis() int64 {
	return n.DismissAfter.Milliseconds()
}

// DismissAfterCSS is the same delay as a CSS time value
func (n *Notification) DismissAfterCSS() string {
	return fmt.Sprintf("%dms", n.DismissAfter.Milliseconds())
}

func (s *Server) notify(kind NoticeKind, msg string) *Notification {
	return &Notification{Kind: kind, Message: msg, DismissAfter: s.dismissAfter, CloseHref: "#"}
}

// notificationFrom reads a notice carried over a redirect
func (s *Server) notificationFrom(r *http.Request) *Notification {
	q := r.URL.Query()
	msg := q.Get("notice")
	if msg == "" {
		return nil
	}

	kind := NoticeKind(q.Get("kind"))
	switch kind {
	case NoticeSuccess, NoticeError, NoticeInfo:
	default:
		kind = NoticeInfo
	}

	q.Del("notice")
	q.Del("kind")
	closeURL := url.URL{Path: r.URL.Path, RawQuery: q.Encode()}

	n := s.notify(kind, msg)
	n.CloseHref = closeURL.String()
	return n
}

// redirectWithNotice redirects after a POST, carrying a notification in the query
func redirectWithNotice(w http.ResponseWriter, r *http.Request, target string, kind NoticeKind, msg string) {
	u, err := url.Parse(target)
	if err != nil {
		u = &url.URL{Path: "/"}
	}
	q := u.Query()
	q.Set("notice", msg)
	q.Set("kind", string(kind))
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusSeeOther)
}

// Confirm is an in-page confirmation dialog. It is shown when the page fragment
// matches ID, so opening and cancelling it never leaves the page.
type Confirm struct {
	ID           string
	Message      string
	Action       string
	ConfirmLabel string
	Fields       map[string]string
}

// OpenHref is the link that shows the dialog
func (c Confirm) OpenHref() string { return "#" + c.ID }

// newConfirm builds a dialog posting fields to action when confirmed
func newConfirm(key, message, action string, fields map[string]string) Confirm {
	h := fnv.New32a()
	h.Write([]byte(action))
	h.Write([]byte(key))
	return Confirm{
		ID:           fmt.Sprintf("confirm-%08x", h.Sum32()),
		Message:      message,
		Action:       action,
		ConfirmLabel: "確定刪除",
		Fields:       fields,
	}
}

const defaultLoadingMessage = "載入中..."

// handleLoading serves the loading placeholder fragment
func (s *Server) handleLoading(w http.ResponseWriter, r *http.Request) {
	msg := r.URL.Query().Get("message")
	if msg == "" {
		msg = defaultLoadingMessage
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.pages[fragmentsPage].ExecuteTemplate(w, "loading", msg); err != nil {
		s.logger.Error("failed to render loading fragment", zap.Error(err))
	}
}
