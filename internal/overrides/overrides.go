// Package overrides loads and evaluates the configuration-driven override
// ruleset of spec.md §4.3: an ordered tree of <match>/<return>/
// <define_admin_auth> nodes rooted at <config>. Grounded on
// original_source/src/polkit/polkit-config.c, which parses the same shape
// with expat and POSIX regex (regex.h); this package reproduces that with
// encoding/xml and regexp.CompilePOSIX.
package overrides

import (
	"encoding/xml"
	"io"
	"strconv"

	"github.com/tomtom215/polkitgo/internal/pkerrors"
	"github.com/tomtom215/polkitgo/internal/result"
)

// nodeKind distinguishes the four recognised node types.
type nodeKind int

const (
	kindMatchAction nodeKind = iota
	kindMatchUser
	kindReturn
	kindDefineAdminAuth
)

// node is one element of the override tree.
type node struct {
	kind nodeKind

	pattern *posixRegexp // for kindMatchAction / kindMatchUser

	returnResult result.Result // for kindReturn

	adminUser  string // for kindDefineAdminAuth
	adminGroup string // for kindDefineAdminAuth

	children []*node
}

// Tree is a parsed, immutable override ruleset.
type Tree struct {
	root []*node
}

// AdminAuth is the administrator identity set the engine derives by
// walking define_admin_auth rules along the matching branch.
type AdminAuth struct {
	Users  []string
	Groups []string
}

// addUser and addGroup append name to the matching slice unless it is
// already present (define_admin_auth is additive per spec.md §4.3; a
// repeated identical selector is a no-op rather than a double add).
func (a *AdminAuth) addUser(name string) {
	if name == "" {
		return
	}
	for _, u := range a.Users {
		if u == name {
			return
		}
	}
	a.Users = append(a.Users, name)
}

func (a *AdminAuth) addGroup(name string) {
	if name == "" {
		return
	}
	for _, g := range a.Groups {
		if g == name {
			return
		}
	}
	a.Groups = append(a.Groups, name)
}

// Subject is the query context a Tree is evaluated against.
type Subject struct {
	ActionID string
	UID      uint32
	Username string
}

// Evaluate runs two independent walks over t, mirroring
// polkit-config.c's config_node_test (result) and
// config_node_determine_admin_auth (admin identities): the result walk
// short-circuits on the first <return> reached on a matching branch,
// while the admin walk visits every matching branch in full regardless
// of where a <return> fires along it, so a define_admin_auth appearing
// anywhere under a matching <match> — before or after a sibling
// <return> — is always collected (spec.md §8 scenario 2).
func (t *Tree) Evaluate(subj Subject) (res result.Result, admin AdminAuth) {
	res = result.Unknown
	if r, ok := walkResult(t.root, subj); ok {
		res = r
	}
	walkAdmin(t.root, subj, &admin)
	return res, admin
}

// walkResult returns the first <return> reached on a matching branch,
// depth-first left-to-right, short-circuiting siblings exactly as
// polkit-config.c's first-match-wins semantics require.
func walkResult(nodes []*node, subj Subject) (result.Result, bool) {
	for _, n := range nodes {
		switch n.kind {
		case kindMatchAction:
			if !n.pattern.MatchString(subj.ActionID) {
				continue
			}
			if r, ok := walkResult(n.children, subj); ok {
				return r, true
			}
		case kindMatchUser:
			if !(n.pattern.MatchString(subj.Username) || n.pattern.MatchString(strconv.FormatUint(uint64(subj.UID), 10))) {
				continue
			}
			if r, ok := walkResult(n.children, subj); ok {
				return r, true
			}
		case kindReturn:
			return n.returnResult, true
		}
	}
	return result.Unknown, false
}

// walkAdmin collects every define_admin_auth reached along a matching
// branch. Unlike walkResult it never stops at a <return>: it continues
// past it to any remaining siblings, since a <return> only determines
// the decision result, not whether the branch's admin rules apply.
func walkAdmin(nodes []*node, subj Subject, admin *AdminAuth) {
	for _, n := range nodes {
		switch n.kind {
		case kindMatchAction:
			if !n.pattern.MatchString(subj.ActionID) {
				continue
			}
			walkAdmin(n.children, subj, admin)
		case kindMatchUser:
			if !(n.pattern.MatchString(subj.Username) || n.pattern.MatchString(strconv.FormatUint(uint64(subj.UID), 10))) {
				continue
			}
			walkAdmin(n.children, subj, admin)
		case kindDefineAdminAuth:
			admin.addUser(n.adminUser)
			admin.addGroup(n.adminGroup)
		}
	}
}

// Load parses the override ruleset document read from r.
func Load(r io.Reader) (*Tree, error) {
	dec := xml.NewDecoder(r)

	var stack [][]*node // stack[i] accumulates children of the element at depth i
	stack = append(stack, nil)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, pkerrors.Wrap(pkerrors.KindConfigFileInvalid, err, "parsing override ruleset")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "config":
				// root; its children are collected in the root frame stack[0]
			case "match":
				n := &node{}
				if v := attr(t, "action"); v != "" {
					re, err := compilePOSIX(v)
					if err != nil {
						return nil, pkerrors.Wrap(pkerrors.KindConfigFileInvalid, err, "invalid action regex %q", v)
					}
					n.kind = kindMatchAction
					n.pattern = re
				} else if v := attr(t, "user"); v != "" {
					re, err := compilePOSIX(v)
					if err != nil {
						return nil, pkerrors.Wrap(pkerrors.KindConfigFileInvalid, err, "invalid user regex %q", v)
					}
					n.kind = kindMatchUser
					n.pattern = re
				} else {
					return nil, pkerrors.New(pkerrors.KindConfigFileInvalid, "<match> missing action or user attribute")
				}
				stack = append(stack, nil)
				stack[len(stack)-2] = append(stack[len(stack)-2], n)
			case "return":
				v := attr(t, "result")
				r, ok := result.FromName(v)
				if !ok {
					return nil, pkerrors.New(pkerrors.KindConfigFileInvalid, "<return> has unknown result %q", v)
				}
				n := &node{kind: kindReturn, returnResult: r}
				stack[len(stack)-1] = append(stack[len(stack)-1], n)
			case "define_admin_auth":
				n := &node{kind: kindDefineAdminAuth, adminUser: attr(t, "user"), adminGroup: attr(t, "group")}
				if n.adminUser == "" && n.adminGroup == "" {
					return nil, pkerrors.New(pkerrors.KindConfigFileInvalid, "<define_admin_auth> missing user or group attribute")
				}
				stack[len(stack)-1] = append(stack[len(stack)-1], n)
			default:
				// unknown elements are skipped; push a placeholder frame so
				// End handling stays balanced.
				stack = append(stack, nil)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "match":
				children := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				parent := stack[len(stack)-1]
				parent[len(parent)-1].children = children
			case "config", "return", "define_admin_auth":
				// no nested frame was pushed for these (return/define_admin_auth
				// have no children; config is the implicit root)
				if t.Name.Local == "config" {
					// nothing to pop; root frame stays at stack[0]
				}
			default:
				stack = stack[:len(stack)-1]
			}
		}
	}

	return &Tree{root: stack[0]}, nil
}

func attr(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
