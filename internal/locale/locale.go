// Package locale resuelve todo el texto visible para el usuario a partir de
// catalogos YAML por idioma. Las claves son rutas con puntos
// ("tree.sadness.prompt"); un valor es un texto o un pool de variantes.
package locale

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalogs/*.yaml
var embeddedCatalogs embed.FS

// Provider es la capacidad de localizacion que consumen el motor y los servicios.
type Provider interface {
	Resolve(lang, key string, params map[string]string) string
	Pool(lang, key string) []string
	Has(lang, key string) bool
	Languages() []string
}

var (
	ErrNoCatalogs      = errors.New("locale: no catalogs found")
	ErrUnknownFallback = errors.New("locale: fallback language has no catalog")
)

type entry struct {
	text string
	pool []string
}

// Catalog implementa Provider con catalogos cargados en memoria.
type Catalog struct {
	fallback string
	langs    map[string]map[string]entry
}

// Default carga los catalogos embebidos en el binario.
func Default(fallback string) (*Catalog, error) {
	sub, err := fs.Sub(embeddedCatalogs, "catalogs")
	if err != nil {
		return nil, err
	}
	return Load(sub, fallback)
}

// LoadDir carga catalogos desde un directorio del disco.
func LoadDir(dir, fallback string) (*Catalog, error) {
	return Load(os.DirFS(dir), fallback)
}

// Load lee todos los <lang>.yaml en la raiz de fsys.
func Load(fsys fs.FS, fallback string) (*Catalog, error) {
	files, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoCatalogs
	}

	c := &Catalog{
		fallback: Normalize(fallback),
		langs:    make(map[string]map[string]entry, len(files)),
	}
	for _, name := range files {
		lang := Normalize(strings.TrimSuffix(path.Base(name), ".yaml"))
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("locale: read %s: %w", name, err)
		}
		var doc map[string]any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("locale: parse %s: %w", name, err)
		}
		entries := make(map[string]entry)
		if err := flatten("", doc, entries); err != nil {
			return nil, fmt.Errorf("locale: %s: %w", name, err)
		}
		c.langs[lang] = entries
	}
	if _, ok := c.langs[c.fallback]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFallback, c.fallback)
	}
	return c, nil
}

func flatten(prefix string, node map[string]any, out map[string]entry) error {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			if err := flatten(key, val, out); err != nil {
				return err
			}
		case []any:
			pool := make([]string, 0, len(val))
			for _, item := range val {
				s, ok := item.(string)
				if !ok {
					return fmt.Errorf("key %q: pool items must be strings", key)
				}
				pool = append(pool, s)
			}
			if len(pool) == 0 {
				return fmt.Errorf("key %q: empty pool", key)
			}
			out[key] = entry{pool: pool}
		case string:
			out[key] = entry{text: val}
		case nil:
			return fmt.Errorf("key %q: empty value", key)
		default:
			out[key] = entry{text: fmt.Sprint(val)}
		}
	}
	return nil
}

// Normalize reduce etiquetas como "fr-FR" o "EN_us" a su idioma base.
func Normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}

// Supports indica si existe un catalogo propio para lang.
func (c *Catalog) Supports(lang string) bool {
	_, ok := c.langs[Normalize(lang)]
	return ok
}

// Fallback devuelve el idioma usado cuando falta un catalogo o una clave.
func (c *Catalog) Fallback() string {
	return c.fallback
}

func (c *Catalog) Languages() []string {
	out := make([]string, 0, len(c.langs))
	for lang := range c.langs {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

func (c *Catalog) lookup(lang, key string) (entry, bool) {
	if entries, ok := c.langs[Normalize(lang)]; ok {
		if e, ok := entries[key]; ok {
			return e, true
		}
	}
	e, ok := c.langs[c.fallback][key]
	return e, ok
}

func (c *Catalog) Has(lang, key string) bool {
	entries, ok := c.langs[Normalize(lang)]
	if !ok {
		return false
	}
	_, ok = entries[key]
	return ok
}

// Resolve devuelve el texto de key con los {parametros} sustituidos.
// Una clave desconocida se devuelve tal cual para que el hueco sea visible.
func (c *Catalog) Resolve(lang, key string, params map[string]string) string {
	e, ok := c.lookup(lang, key)
	if !ok {
		return key
	}
	text := e.text
	if text == "" && len(e.pool) > 0 {
		text = e.pool[0]
	}
	return Format(text, params)
}

// Pool devuelve las variantes de key; un texto simple es un pool de uno.
func (c *Catalog) Pool(lang, key string) []string {
	e, ok := c.lookup(lang, key)
	if !ok {
		return nil
	}
	if len(e.pool) > 0 {
		out := make([]string, len(e.pool))
		copy(out, e.pool)
		return out
	}
	return []string{e.text}
}

// Format sustituye {nombre} por params["nombre"].
func Format(text string, params map[string]string) string {
	if len(params) == 0 || !strings.Contains(text, "{") {
		return text
	}
	pairs := make([]string, 0, len(params)*2)
	for k, v := range params {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
