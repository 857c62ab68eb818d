package main

import (
	"os/user"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/tomtom215/polkitgo/internal/daemonconfig"
	"github.com/tomtom215/polkitgo/internal/pkerrors"
)

// dropPrivileges resolves cfg.Privilege's service account and permanently
// switches the process to it, mirroring polkitd/main.c's startup sequence:
// replace the supplementary group list with the service group, then set
// the real/effective group, then the real/effective user, in that order so
// the uid drop cannot be undone. cmd/polkitd calls it after constructing
// its components and before the supervisor tree starts serving, so the
// observability listener is bound, and the store files are read and
// written, under the service account.
func dropPrivileges(cfg daemonconfig.PrivilegeConfig) error {
	if cfg.User == "" {
		return pkerrors.New(pkerrors.KindGeneralError, "privilege.user must be set")
	}

	u, err := user.Lookup(cfg.User)
	if err != nil {
		return pkerrors.Wrap(pkerrors.KindGeneralError, err, "looking up service user %q", cfg.User)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return pkerrors.Wrap(pkerrors.KindGeneralError, err, "parsing uid for %q", cfg.User)
	}

	gidStr := u.Gid
	if cfg.Group != "" {
		g, err := user.LookupGroup(cfg.Group)
		if err != nil {
			return pkerrors.Wrap(pkerrors.KindGeneralError, err, "looking up service group %q", cfg.Group)
		}
		gidStr = g.Gid
	}
	gid, err := strconv.Atoi(gidStr)
	if err != nil {
		return pkerrors.Wrap(pkerrors.KindGeneralError, err, "parsing gid for %q", cfg.Group)
	}

	if err := unix.Setgroups([]int{gid}); err != nil {
		return pkerrors.Wrap(pkerrors.KindGeneralError, err, "clearing supplementary groups")
	}
	if err := syscall.Setgid(gid); err != nil {
		return pkerrors.Wrap(pkerrors.KindGeneralError, err, "setting gid %d", gid)
	}
	if err := syscall.Setuid(uid); err != nil {
		return pkerrors.Wrap(pkerrors.KindGeneralError, err, "setting uid %d", uid)
	}
	return nil
}
