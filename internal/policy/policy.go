// Package policy loads `.policy` XML declarations into an immutable,
// indexed cache of action defaults and localised text. The schema and the
// bounded-depth streaming parser are specified by spec.md §4.2; the element
// set and localisation-fallback behavior are grounded on
// original_source/src/polkit/polkit-policy-file.c.
package policy

import (
	"encoding/xml"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tomtom215/polkitgo/internal/identity"
	"github.com/tomtom215/polkitgo/internal/pkerrors"
	"github.com/tomtom215/polkitgo/internal/result"
)

// maxParserDepth bounds element nesting to guard against pathological
// inputs, mirroring PARSER_MAX_DEPTH in polkit-policy-file.c.
const maxParserDepth = 32

// LocalizedText maps a language tag to free text, plus an untagged
// default. Resolve implements the fallback chain of spec.md §4.2: try the
// exact tag, then the tag with any "_"-suffix stripped, then the untagged
// default.
type LocalizedText struct {
	Default string
	ByLang  map[string]string
}

// Resolve returns the best available text for lang.
func (t LocalizedText) Resolve(lang string) string {
	if lang != "" {
		if v, ok := t.ByLang[lang]; ok {
			return v
		}
		if idx := strings.IndexByte(lang, '_'); idx > 0 {
			if v, ok := t.ByLang[lang[:idx]]; ok {
				return v
			}
		}
	}
	return t.Default
}

// Action is one `<action id="…">` declaration.
type Action struct {
	ID          identity.Action
	Description LocalizedText
	Message     LocalizedText
	Vendor      string
	VendorURL   string
	IconName    string

	DefaultAny      result.Result
	DefaultInactive result.Result
	DefaultActive   result.Result

	Annotations map[string]string
}

// DefaultFor returns the implicit-default result for a subject category:
// "active", "inactive", or "any" (anything else falls back to "any").
func (a Action) DefaultFor(category string) result.Result {
	switch category {
	case "active":
		return a.DefaultActive
	case "inactive":
		return a.DefaultInactive
	default:
		return a.DefaultAny
	}
}

// Cache is the immutable, load-order-indexed output of Load.
type Cache struct {
	order      []string
	byID       map[string]Action
	diagnostic []string
}

// Lookup returns the Action for id, or ok=false if unknown to the cache.
func (c *Cache) Lookup(id string) (Action, bool) {
	a, ok := c.byID[id]
	return a, ok
}

// Actions returns all actions in load order.
func (c *Cache) Actions() []Action {
	out := make([]Action, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Diagnostics returns non-fatal notices recorded during Load (unknown
// elements skipped, etc.).
func (c *Cache) Diagnostics() []string { return c.diagnostic }

// Load parses every `*.policy` file in dir and returns an immutable Cache.
// Either every file parses, or the whole load fails (spec.md §4.2): a
// single malformed file discards the entire result.
func Load(dirFS fs.FS, dir string) (*Cache, error) {
	entries, err := fs.ReadDir(dirFS, dir)
	if err != nil {
		return nil, pkerrors.Wrap(pkerrors.KindGeneralError, err, "reading policy directory %q", dir)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".policy") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	c := &Cache{byID: make(map[string]Action)}
	for _, name := range files {
		path := filepath.Join(dir, name)
		f, err := dirFS.Open(path)
		if err != nil {
			return nil, pkerrors.Wrap(pkerrors.KindPolicyFileInvalid, err, "opening %q", path)
		}
		actions, diag, err := parseFile(f, path)
		closeErr := f.Close()
		if err != nil {
			return nil, err
		}
		if closeErr != nil {
			return nil, pkerrors.Wrap(pkerrors.KindGeneralError, closeErr, "closing %q", path)
		}
		c.diagnostic = append(c.diagnostic, diag...)
		for _, a := range actions {
			if _, dup := c.byID[a.ID.ID()]; dup {
				return nil, pkerrors.New(pkerrors.KindPolicyFileInvalid,
					"action id %q declared more than once across policy files", a.ID.ID())
			}
			c.byID[a.ID.ID()] = a
			c.order = append(c.order, a.ID.ID())
		}
	}
	return c, nil
}

// parseFile streams the tokens of one .policy file, tracking nesting depth
// and reconstructing each <action> element into an Action.
func parseFile(r io.Reader, path string) ([]Action, []string, error) {
	dec := xml.NewDecoder(r)

	var (
		actions    []Action
		diagnostic []string
		depth      int

		globalVendor, globalVendorURL, globalIcon string

		inAction bool
		cur      Action
		curLangElem string // "description" or "message", while inside one
		curLang     string
		curText     strings.Builder
		annotateKey string
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, pkerrors.Wrap(pkerrors.KindPolicyFileInvalid, err, "parsing %q", path)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth > maxParserDepth {
				return nil, nil, pkerrors.New(pkerrors.KindPolicyFileInvalid,
					"%q: element nesting exceeds depth bound %d", path, maxParserDepth)
			}
			name := t.Name.Local
			switch name {
			case "policyconfig":
				// root; nothing to do
			case "action":
				id := attr(t, "id")
				action, err := identity.NewAction(id)
				if err != nil {
					return nil, nil, pkerrors.Wrap(pkerrors.KindPolicyFileInvalid, err, "%q: invalid action id %q", path, id)
				}
				inAction = true
				cur = Action{
					ID:          action,
					Description: LocalizedText{ByLang: map[string]string{}},
					Message:     LocalizedText{ByLang: map[string]string{}},
					Vendor:      globalVendor,
					VendorURL:   globalVendorURL,
					IconName:    globalIcon,
					Annotations: map[string]string{},
				}
			case "description", "message":
				curLangElem = name
				curLang = attr(t, "lang")
				curText.Reset()
			case "vendor", "vendor_url", "icon_name":
				curLangElem = name
				curText.Reset()
			case "defaults":
				// children set DefaultAny/Inactive/Active via their own elements
			case "allow_any", "allow_inactive", "allow_active":
				curLangElem = name
				curText.Reset()
			case "annotate":
				annotateKey = attr(t, "key")
				curLangElem = "annotate"
				curText.Reset()
			default:
				diagnostic = append(diagnostic, fmt.Sprintf("%s: unknown element %q skipped", path, name))
			}

		case xml.CharData:
			if curLangElem != "" {
				curText.Write(t)
			}

		case xml.EndElement:
			depth--
			name := t.Name.Local
			switch name {
			case "action":
				if err := validateAction(cur, path); err != nil {
					return nil, nil, err
				}
				actions = append(actions, cur)
				inAction = false
			case "description":
				setLocalized(&cur.Description, curLang, curText.String())
				curLangElem = ""
			case "message":
				setLocalized(&cur.Message, curLang, curText.String())
				curLangElem = ""
			case "vendor":
				if inAction {
					cur.Vendor = curText.String()
				} else {
					globalVendor = curText.String()
				}
				curLangElem = ""
			case "vendor_url":
				if inAction {
					cur.VendorURL = curText.String()
				} else {
					globalVendorURL = curText.String()
				}
				curLangElem = ""
			case "icon_name":
				if inAction {
					cur.IconName = curText.String()
				} else {
					globalIcon = curText.String()
				}
				curLangElem = ""
			case "allow_any", "allow_inactive", "allow_active":
				r, ok := result.FromName(strings.TrimSpace(curText.String()))
				if !ok {
					return nil, nil, pkerrors.New(pkerrors.KindPolicyFileInvalid,
						"%q: unknown result word %q in <%s>", path, curText.String(), name)
				}
				switch name {
				case "allow_any":
					cur.DefaultAny = r
				case "allow_inactive":
					cur.DefaultInactive = r
				case "allow_active":
					cur.DefaultActive = r
				}
				curLangElem = ""
			case "annotate":
				cur.Annotations[annotateKey] = curText.String()
				curLangElem = ""
				annotateKey = ""
			}
		}
	}

	return actions, diagnostic, nil
}

func setLocalized(t *LocalizedText, lang, value string) {
	if lang == "" {
		t.Default = value
		return
	}
	t.ByLang[lang] = value
}

func validateAction(a Action, path string) error {
	if !identity.ValidateIconName(a.IconName) {
		return pkerrors.New(pkerrors.KindPolicyFileInvalid,
			"%q: action %q has invalid icon name %q", path, a.ID.ID(), a.IconName)
	}
	return nil
}

func attr(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
