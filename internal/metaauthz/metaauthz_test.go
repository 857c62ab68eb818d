package metaauthz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/polkitgo/internal/pkerrors"
)

type staticRoles struct {
	byUID map[uint32][]string
}

func (s staticRoles) RolesForUID(uid uint32) ([]string, error) {
	return s.byUID[uid], nil
}

func newAuthorizer(t *testing.T, roles map[uint32][]string) *Authorizer {
	t.Helper()
	a, err := New("", staticRoles{byUID: roles})
	require.NoError(t, err)
	return a
}

func TestSelfAccessAlwaysAllowedForPlainUser(t *testing.T) {
	a := newAuthorizer(t, map[uint32][]string{1000: {"user"}})
	assert.NoError(t, a.Check(1000, 1000, VerbRead), "self read should be allowed")
	assert.NoError(t, a.Check(1000, 1000, VerbRevoke), "self revoke should be allowed")
}

func TestPlainUserDeniedAccessToOthers(t *testing.T) {
	a := newAuthorizer(t, map[uint32][]string{1000: {"user"}})
	err := a.Check(1000, 2000, VerbRead)
	require.Error(t, err, "reading another uid's grants should be denied")

	var pe *pkerrors.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, pkerrors.KindNotAuthorizedToReadOthers, pe.Kind)
}

func TestAdminAllowedAccessToOthers(t *testing.T) {
	a := newAuthorizer(t, map[uint32][]string{0: {"admin"}})
	assert.NoError(t, a.Check(0, 2000, VerbRevoke), "admin revoke-for-other should be allowed")
	assert.NoError(t, a.Check(0, 2000, VerbModifyDefaults), "admin modify-defaults should be allowed")
}

func TestMissingRoleDefaultsToUser(t *testing.T) {
	a := newAuthorizer(t, map[uint32][]string{})
	assert.NoError(t, a.Check(1000, 1000, VerbGrant), "self grant under default role should be allowed")
	assert.Error(t, a.Check(1000, 2000, VerbGrant), "default role should be denied for another uid")
}
