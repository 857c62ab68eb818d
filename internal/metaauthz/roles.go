package metaauthz

import (
	"os/user"
	"strconv"

	"github.com/tomtom215/polkitgo/internal/pkerrors"
)

// GroupRoleResolver resolves a uid's casbin subjects from OS group
// membership: every uid holds "user", plus "admin" if it belongs to
// the configured admin group. Grounded on the reference cartography
// project's approach of deriving RBAC subjects from an external
// source of truth rather than hand-maintained role tables.
type GroupRoleResolver struct {
	AdminGroup string
}

// RolesForUID implements RoleResolver.
func (r GroupRoleResolver) RolesForUID(uid uint32) ([]string, error) {
	roles := []string{"user"}
	if r.AdminGroup == "" {
		return roles, nil
	}

	u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10))
	if err != nil {
		// Unknown uids (e.g. a transient caller with no passwd entry)
		// hold only the default role rather than failing the check.
		return roles, nil
	}

	group, err := user.LookupGroup(r.AdminGroup)
	if err != nil {
		return nil, pkerrors.Wrap(pkerrors.KindGeneralError, err, "metaauthz: lookup admin group %q", r.AdminGroup)
	}

	gids, err := u.GroupIds()
	if err != nil {
		return nil, pkerrors.Wrap(pkerrors.KindGeneralError, err, "metaauthz: group ids for uid %d", uid)
	}
	for _, gid := range gids {
		if gid == group.Gid {
			roles = append(roles, "admin")
			break
		}
	}
	return roles, nil
}
