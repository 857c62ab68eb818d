// Package metaauthz decides the three meta-authorization questions of
// spec.md §7: whether a requesting uid may read, revoke, or grant
// authorizations belonging to a different uid (and, separately, whether
// it may modify policy defaults). This is distinct from the decision
// engine's own decide() call: metaauthz guards the management API
// itself, decide() guards application actions. Grounded on the
// reference cartography project's internal/authz/enforcer.go, which
// wraps a casbin.SyncedEnforcer the same way; the RBAC model and policy
// CSV are new but follow that file's embed-then-fall-back-to-file
// pattern.
package metaauthz

import (
	"os"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	_ "embed"

	"github.com/tomtom215/polkitgo/internal/pkerrors"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Verb names the four management operations metaauthz gates.
type Verb string

const (
	VerbRead           Verb = "read"
	VerbRevoke         Verb = "revoke"
	VerbGrant          Verb = "grant"
	VerbModifyDefaults Verb = "modify-defaults"
)

// errorKindFor maps a denied Verb to the specific pkerrors.Kind spec.md
// §7 names for it.
var errorKindFor = map[Verb]pkerrors.Kind{
	VerbRead:           pkerrors.KindNotAuthorizedToReadOthers,
	VerbRevoke:         pkerrors.KindNotAuthorizedToRevokeOthers,
	VerbGrant:          pkerrors.KindNotAuthorizedToGrant,
	VerbModifyDefaults: pkerrors.KindNotAuthorizedToModifyDefaults,
}

// RoleResolver maps a uid to the casbin subjects it holds: typically
// "user" plus "admin" for members of the configured admin group.
type RoleResolver interface {
	RolesForUID(uid uint32) ([]string, error)
}

// Authorizer wraps a casbin enforcer configured with the embedded RBAC
// model, falling back to an on-disk policy file when one is configured
// (so an operator can add admin uids without a rebuild).
type Authorizer struct {
	enforcer *casbin.Enforcer
	roles    RoleResolver
}

// New constructs an Authorizer. If policyPath is non-empty and exists,
// the on-disk policy is used instead of the embedded one, matching the
// file-overrides-embedded convention of the reference project's
// enforcer.
func New(policyPath string, roles RoleResolver) (*Authorizer, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, pkerrors.Wrap(pkerrors.KindGeneralError, err, "metaauthz: parse model")
	}

	var enforcer *casbin.Enforcer
	if policyPath != "" && fileExists(policyPath) {
		adapter := fileadapter.NewAdapter(policyPath)
		enforcer, err = casbin.NewEnforcer(m, adapter)
	} else {
		enforcer, err = casbin.NewEnforcer(m)
		if err == nil {
			err = loadEmbeddedPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, pkerrors.Wrap(pkerrors.KindGeneralError, err, "metaauthz: build enforcer")
	}

	return &Authorizer{enforcer: enforcer, roles: roles}, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func loadEmbeddedPolicy(enforcer *casbin.Enforcer, csv string) error {
	for _, line := range strings.Split(csv, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		switch fields[0] {
		case "p":
			if len(fields) >= 4 {
				if _, err := enforcer.AddPolicy(fields[1], fields[2], fields[3]); err != nil {
					return err
				}
			}
		case "g":
			if len(fields) >= 3 {
				if _, err := enforcer.AddGroupingPolicy(fields[1], fields[2]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Check decides whether requesterUID may perform verb against
// targetUID's authorizations. requesterUID == targetUID always maps to
// object "self"; any other targetUID maps to object "other". Returns
// nil if allowed, or a *pkerrors.Error of the Kind spec.md §7 assigns
// to verb if denied.
func (a *Authorizer) Check(requesterUID, targetUID uint32, verb Verb) error {
	object := "other"
	if requesterUID == targetUID {
		object = "self"
	}

	roles, err := a.roles.RolesForUID(requesterUID)
	if err != nil {
		return pkerrors.Wrap(pkerrors.KindGeneralError, err, "metaauthz: resolve roles for uid %d", requesterUID)
	}
	if len(roles) == 0 {
		roles = []string{"user"}
	}

	for _, role := range roles {
		allowed, err := a.enforcer.Enforce(role, object, string(verb))
		if err != nil {
			return pkerrors.Wrap(pkerrors.KindGeneralError, err, "metaauthz: enforce")
		}
		if allowed {
			return nil
		}
	}

	kind, ok := errorKindFor[verb]
	if !ok {
		kind = pkerrors.KindGeneralError
	}
	return pkerrors.New(kind, "uid %d is not authorized to %s authorizations for uid %d", requesterUID, verb, targetUID)
}
