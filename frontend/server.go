package frontend

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"jot/bundle"
	"jot/web"
)

const cookieName = "jot_page"

// Env is what gets baked into the page's window.ENV block.
type Env struct {
	URL     string
	AnonKey string
}

type Server struct {
	pages   *Registry
	index   *template.Template
	scratch *template.Template
	style   []byte
	log     *slog.Logger
}

// New parses the page templates from fsys. It fails with ErrMissingElement
// if a template lacks one of the element ids the page depends on.
func New(fsys fs.FS, pages *Registry, env Env, log *slog.Logger) (*Server, error) {
	indexSrc, err := readTemplate(fsys, "index.html", web.IndexIDs, log)
	if err != nil {
		return nil, err
	}
	scratchSrc, err := readTemplate(fsys, "scratch.html", web.ScratchIDs, log)
	if err != nil {
		return nil, err
	}

	index, err := template.New("index").Parse(string(bundle.InjectEnv(indexSrc, env.URL, env.AnonKey)))
	if err != nil {
		return nil, fmt.Errorf("parse index.html: %w", err)
	}
	scratch, err := template.New("scratch").Parse(string(scratchSrc))
	if err != nil {
		return nil, fmt.Errorf("parse scratch.html: %w", err)
	}

	style, err := fs.ReadFile(fsys, "style.css")
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read style.css: %w", err)
	}

	return &Server{pages: pages, index: index, scratch: scratch, style: style, log: log}, nil
}

func readTemplate(fsys fs.FS, name string, ids []string, log *slog.Logger) ([]byte, error) {
	src, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if missing := web.MissingIDs(src, ids); len(missing) > 0 {
		log.Warn("required elements not found", "template", name, "missing", missing)
		return nil, fmt.Errorf("%s: %w: %s", name, ErrMissingElement, strings.Join(missing, ", "))
	}
	return src, nil
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.Index)
	r.Post("/signin", s.SignIn)
	r.Post("/signup", s.SignUp)
	r.Post("/signout", s.SignOut)
	r.Post("/notes", s.AddNote)
	r.Post("/notes/{id}/delete", s.DeleteNote)

	r.Get("/scratch", s.Scratch)
	r.Post("/scratch", s.AddScratchNote)

	r.Get("/static/style.css", s.Style)

	return r
}

// page returns the caller's page, issuing a new page cookie when the
// request has none.
func (s *Server) page(w http.ResponseWriter, r *http.Request) *Page {
	var id string
	if c, err := r.Cookie(cookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			id = c.Value
		}
	}
	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     cookieName,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return s.pages.Get(r.Context(), id)
}

func (s *Server) render(w http.ResponseWriter, t *template.Template, v View) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, v); err != nil {
		s.log.Error("render failed", "template", t.Name(), "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	p := s.page(w, r)
	if mode := r.URL.Query().Get("mode"); mode != "" {
		p.SetMode(mode)
	}
	s.render(w, s.index, p.View())
}

func (s *Server) SignIn(w http.ResponseWriter, r *http.Request) {
	p := s.page(w, r)
	_ = p.SignIn(r.Context(), r.PostFormValue("email"), r.PostFormValue("password"))
	redirect(w, r, "/")
}

func (s *Server) SignUp(w http.ResponseWriter, r *http.Request) {
	p := s.page(w, r)
	if err := p.SignUp(r.Context(), r.PostFormValue("email"), r.PostFormValue("password")); err != nil {
		p.SetMode(ModeRegister)
	}
	redirect(w, r, "/")
}

func (s *Server) SignOut(w http.ResponseWriter, r *http.Request) {
	p := s.page(w, r)
	_ = p.SignOut(r.Context())
	redirect(w, r, "/")
}

func (s *Server) AddNote(w http.ResponseWriter, r *http.Request) {
	p := s.page(w, r)
	_ = p.AddNote(r.Context(), r.PostFormValue("text"))
	redirect(w, r, "/")
}

func (s *Server) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid note ID", http.StatusBadRequest)
		return
	}
	p := s.page(w, r)
	_ = p.DeleteNote(r.Context(), id)
	redirect(w, r, "/")
}

func (s *Server) Scratch(w http.ResponseWriter, r *http.Request) {
	s.render(w, s.scratch, s.page(w, r).ScratchView())
}

func (s *Server) AddScratchNote(w http.ResponseWriter, r *http.Request) {
	s.page(w, r).AddScratchNote(r.PostFormValue("text"))
	redirect(w, r, "/scratch")
}

func (s *Server) Style(w http.ResponseWriter, r *http.Request) {
	if s.style == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	_, _ = w.Write(s.style)
}
