package obs

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"net/http/httptest"
	"obsgrades/internal/components/telemetry"
	"sync"
	"testing"
	"time"
)

//go:embed testdata/login.html
var loginPageHtml string

//go:embed testdata/grades.html
var gradesPageHtml string

//go:embed testdata/stats.html
var statsPageHtml string

var captchaImage = []byte("\x89PNG\r\n\x1a\nfake-captcha-image")

type portalRequest struct {
	Method string
	Path   string
	Header http.Header
	Form   map[string]string
}

// fakePortal imitates the parts of OBS the scraper talks to.
type fakePortal struct {
	server *httptest.Server

	username    string
	password    string
	captchaCode string
	// noCaptcha serves a login page without a captcha image
	noCaptcha bool
	// redirectLoop sends the login page to index, which sends anonymous
	// sessions back to login
	redirectLoop bool
	// gradesHtml replaces the grades page when set
	gradesHtml string

	// deltas maps a postback target to the partial postback response body
	deltas map[string]string
	// statsPages maps the id query parameter of a statistics page to its html
	statsPages map[string]string

	mutex    sync.Mutex
	requests []portalRequest
}

func newFakePortal(t testing.TB) *fakePortal {
	p := &fakePortal{
		username:    "02190000",
		password:    "hunter2",
		captchaCode: "X7K2",
		deltas:      map[string]string{},
		statsPages:  map[string]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oibs/std/login.aspx", p.handleLogin)
	mux.HandleFunc("/oibs/std/captcha.aspx", p.handleCaptcha)
	mux.HandleFunc("/oibs/std/index.aspx", p.handleIndex)
	mux.HandleFunc("/oibs/std/not_listesi_op.aspx", p.handleGrades)
	mux.HandleFunc("/oibs/std/Ders_Istatistik.aspx", p.handleStats)
	mux.HandleFunc("/oibs/acd/ist_goster.aspx", p.handleStats)

	p.server = httptest.NewServer(p.record(mux))
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakePortal) baseUrl() string {
	return p.server.URL + "/oibs/std/"
}

func (p *fakePortal) newClient(t testing.TB, tel telemetry.API) *Client {
	client, err := NewClient(Options{
		BaseUrl: p.baseUrl(),
		Timeout: time.Second * 5,
	}, tel)
	if err != nil {
		t.Fatal(err)
	}
	return client
}

// loggedInClient returns a client that already went through Login.
func (p *fakePortal) loggedInClient(t testing.TB, tel telemetry.API) *Client {
	client := p.newClient(t, tel)
	ok, err := client.Login(context.Background(), p.username, p.password, SolverFunc(
		func(context.Context, []byte) (string, error) {
			return p.captchaCode, nil
		},
	))
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("login to fake portal failed")
	}
	return client
}

func (p *fakePortal) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		form := map[string]string{}
		if r.Method == http.MethodPost {
			err := r.ParseForm()
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			for k := range r.PostForm {
				form[k] = r.PostForm.Get(k)
			}
		}

		p.mutex.Lock()
		p.requests = append(p.requests, portalRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Form:   form,
		})
		p.mutex.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (p *fakePortal) findRequests(method, path string) []portalRequest {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	var out []portalRequest
	for _, r := range p.requests {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (p *fakePortal) allRequests() []portalRequest {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([]portalRequest{}, p.requests...)
}

func isLoggedIn(r *http.Request) bool {
	cookie, err := r.Cookie("auth")
	return err == nil && cookie.Value == "ok"
}

func writeHtml(w http.ResponseWriter, contents string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, contents)
}

func (p *fakePortal) loginPage() string {
	if p.noCaptcha {
		return `<html><body><form>
			<input type="hidden" name="__VIEWSTATE" value="login-viewstate-1" />
			<input type="hidden" name="btnLogin" value="Giriş" />
		</form></body></html>`
	}
	return loginPageHtml
}

func (p *fakePortal) handleLogin(w http.ResponseWriter, r *http.Request) {
	if p.redirectLoop {
		http.Redirect(w, r, "/oibs/std/index.aspx", http.StatusFound)
		return
	}
	if r.Method == http.MethodGet {
		http.SetCookie(w, &http.Cookie{Name: "ASP.NET_SessionId", Value: "anon", Path: "/"})
		writeHtml(w, p.loginPage())
		return
	}

	expectedCode := p.captchaCode
	if p.noCaptcha {
		expectedCode = ""
	}
	ok := r.PostForm.Get("__VIEWSTATE") == "login-viewstate-1" &&
		r.PostForm.Get("__EVENTTARGET") == "btnLogin" &&
		r.PostForm.Get("txtParamT01") == p.username &&
		r.PostForm.Get("txtParamT02") == p.password &&
		r.PostForm.Get("txtParamT1") == p.password &&
		r.PostForm.Get("txtSecCode") == expectedCode
	if !ok {
		writeHtml(w, p.loginPage())
		return
	}

	http.SetCookie(w, &http.Cookie{Name: "auth", Value: "ok", Path: "/"})
	http.Redirect(w, r, "/oibs/std/index.aspx", http.StatusFound)
}

func (p *fakePortal) handleCaptcha(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	w.Write(captchaImage)
}

func (p *fakePortal) handleIndex(w http.ResponseWriter, r *http.Request) {
	if !isLoggedIn(r) {
		http.Redirect(w, r, "/oibs/std/login.aspx", http.StatusFound)
		return
	}
	writeHtml(w, "<html><body>Hoş geldiniz</body></html>")
}

func (p *fakePortal) handleGrades(w http.ResponseWriter, r *http.Request) {
	if !isLoggedIn(r) {
		http.Redirect(w, r, "/oibs/std/login.aspx", http.StatusFound)
		return
	}
	if r.Method == http.MethodGet {
		page := gradesPageHtml
		if p.gradesHtml != "" {
			page = p.gradesHtml
		}
		writeHtml(w, page)
		return
	}

	valid := r.Header.Get("X-MicrosoftAjax") == "Delta=true" &&
		r.PostForm.Get("__VIEWSTATE") == "grades-viewstate-7" &&
		r.PostForm.Get("__ASYNCPOST") == "true" &&
		r.PostForm.Get("ScriptManager1") == "UpdatePanel1|"+r.PostForm.Get("__EVENTTARGET")
	if !valid {
		// the real portal answers a stale or malformed postback with an error delta
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, "0|error|500|Geçersiz istek|")
		return
	}

	delta, ok := p.deltas[r.PostForm.Get("__EVENTTARGET")]
	if !ok {
		delta = "1|#||4|0|updatePanel|UpdatePanel1||"
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, delta)
}

func (p *fakePortal) handleStats(w http.ResponseWriter, r *http.Request) {
	if !isLoggedIn(r) {
		http.Redirect(w, r, "/oibs/std/login.aspx", http.StatusFound)
		return
	}
	page, ok := p.statsPages[r.URL.Query().Get("id")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeHtml(w, page)
}
