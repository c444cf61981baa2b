// Package bundle prepares a deployable copy of the web directory with the
// service URL and public key baked into the page.
package bundle

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/bmatcuk/doublestar/v4"

	"jot/config"
	"jot/web"
)

var ErrMissingElement = errors.New("required element missing")

// DefaultAssets are copied next to index.html when they exist.
var DefaultAssets = []string{"*.css", "*.js", "scratch.html"}

var envBlock = regexp.MustCompile(`window\.ENV = \{[\s\S]*?\};`)

type Options struct {
	// WebDir is the source directory. Empty means the embedded pages.
	WebDir  string
	DistDir string
	URL     string
	AnonKey string
	Assets  []string
}

func (o Options) source() fs.FS {
	if o.WebDir == "" {
		return web.FS
	}
	return os.DirFS(o.WebDir)
}

func (o Options) values() (url, key string) {
	url, key = o.URL, o.AnonKey
	if url == "" {
		url = config.PlaceholderURL
	}
	if key == "" {
		key = config.PlaceholderAnonKey
	}
	return url, key
}

// InjectEnv replaces the first window.ENV block in src with one carrying url
// and anonKey. src is returned unchanged when it has no such block.
func InjectEnv(src []byte, url, anonKey string) []byte {
	block := fmt.Sprintf("window.ENV = {\n\t\t\tJOT_URL: '%s',\n\t\t\tJOT_ANON_KEY: '%s'\n\t\t};",
		jsString(url), jsString(anonKey))

	loc := envBlock.FindIndex(src)
	if loc == nil {
		return src
	}
	out := make([]byte, 0, len(src)+len(block))
	out = append(out, src[:loc[0]]...)
	out = append(out, block...)
	return append(out, src[loc[1]:]...)
}

// jsString escapes s for a single-quoted JS literal. Braces are escaped too
// so the result never reads as a template action.
func jsString(s string) string {
	s = template.JSEscapeString(s)
	s = strings.ReplaceAll(s, "{", `\u007b`)
	return strings.ReplaceAll(s, "}", `\u007d`)
}

// Mask hides all but the last four characters of key.
func Mask(key string) string {
	if key == "" {
		return "NOT SET"
	}
	if len(key) > 4 {
		key = key[len(key)-4:]
	}
	return "***" + key
}

// CheckIDs reports the required ids missing from index.html and, when
// present, scratch.html in fsys.
func CheckIDs(fsys fs.FS) error {
	checks := []struct {
		name     string
		ids      []string
		optional bool
	}{
		{"index.html", web.IndexIDs, false},
		{"scratch.html", web.ScratchIDs, true},
	}
	for _, c := range checks {
		src, err := fs.ReadFile(fsys, c.name)
		if err != nil {
			if c.optional && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("read %s: %w", c.name, err)
		}
		if missing := web.MissingIDs(src, c.ids); len(missing) > 0 {
			slog.Warn("required elements not found", "file", c.name, "missing", missing)
			return fmt.Errorf("%s: %w: %s", c.name, ErrMissingElement, strings.Join(missing, ", "))
		}
	}
	return nil
}

// Build writes DistDir/index.html with the env block injected and copies the
// asset patterns beside it. Nothing is written if a required element is
// missing.
func Build(opts Options) error {
	fsys := opts.source()
	if err := CheckIDs(fsys); err != nil {
		return err
	}

	src, err := fs.ReadFile(fsys, "index.html")
	if err != nil {
		return fmt.Errorf("read index.html: %w", err)
	}
	url, key := opts.values()

	if err := os.MkdirAll(opts.DistDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", opts.DistDir, err)
	}
	if err := os.WriteFile(filepath.Join(opts.DistDir, "index.html"), InjectEnv(src, url, key), 0o644); err != nil {
		return fmt.Errorf("write index.html: %w", err)
	}

	patterns := opts.Assets
	if patterns == nil {
		patterns = DefaultAssets
	}
	copied := 0
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return fmt.Errorf("asset pattern %q: %w", pattern, err)
		}
		for _, name := range matches {
			if name == "index.html" {
				continue
			}
			if err := copyFile(fsys, name, opts.DistDir); err != nil {
				return err
			}
			copied++
		}
	}

	slog.Info("build completed", "dist", opts.DistDir, "assets", copied)
	slog.Info("service config", "url", url, "anon_key", Mask(key))
	return nil
}

func copyFile(fsys fs.FS, name, distDir string) error {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	dst := filepath.Join(distDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(dst), err)
	}
	if err := os.WriteFile(dst, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}
