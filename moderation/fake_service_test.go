package moderation

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

// fakeModerationService serves a front page handing out sessions and a check
// endpoint accepting only the latest one.
type fakeModerationService struct {
	server       *httptest.Server
	pageHits     atomic.Int32
	checkHits    atomic.Int32
	mu           sync.Mutex
	validCookie  string
	validToken   string
	pageStatus   int
	checkStatus  int
	checkBody    string
	omitCookie   bool
	omitToken    bool
	lastWord     string
	rejectOnce   bool
	rejectStatus int
}

func newFakeModerationService(t *testing.T) *fakeModerationService {
	t.Helper()
	f := &fakeModerationService{
		pageStatus:  http.StatusOK,
		checkStatus: http.StatusOK,
		checkBody:   `{"code":0,"data":{"matchedTerms":[]}}`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/page", f.page)
	mux.HandleFunc("/check", f.check)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeModerationService) pageURL() string  { return f.server.URL + "/page" }
func (f *fakeModerationService) checkURL() string { return f.server.URL + "/check" }

func (f *fakeModerationService) page(w http.ResponseWriter, _ *http.Request) {
	hit := f.pageHits.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validCookie = fmt.Sprintf("sid-%d", hit)
	f.validToken = fmt.Sprintf("token-%d", hit)
	if !f.omitCookie {
		http.SetCookie(w, &http.Cookie{Name: "SESSION", Value: f.validCookie})
		http.SetCookie(w, &http.Cookie{Name: "lang", Value: "en"})
	}
	w.WriteHeader(f.pageStatus)
	if f.omitToken {
		_, _ = fmt.Fprint(w, `<html><body>no token here</body></html>`)
		return
	}
	_, _ = fmt.Fprintf(w, `<html><head><meta name="csrf-token" content="%s"></head></html>`, f.validToken)
}

func (f *fakeModerationService) check(w http.ResponseWriter, r *http.Request) {
	f.checkHits.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	_ = r.ParseForm()
	f.lastWord = r.PostFormValue("word")

	if f.rejectOnce {
		f.rejectOnce = false
		w.WriteHeader(f.rejectStatus)
		return
	}
	cookie, err := r.Cookie("SESSION")
	if err != nil || cookie.Value != f.validCookie ||
		r.PostFormValue("csrfToken") != f.validToken || r.Header.Get("X-CSRF-Token") != f.validToken {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.checkStatus)
	_, _ = fmt.Fprint(w, f.checkBody)
}
