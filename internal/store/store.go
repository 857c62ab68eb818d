package store

import (
	"bufio"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/polkitgo/internal/logging"
	"github.com/tomtom215/polkitgo/internal/pkerrors"
)

// fileMode is the mode every store file and its temp-file replacement must
// carry, per spec.md §4.5.
const fileMode = 0o464

// reloadTriggerName is the well-known sibling file whose mtime changing
// signals all readers to reload, per spec.md §4.5/§6.
const reloadTriggerName = "reload-trigger"

// UsernameResolver maps a uid to the OS username the store files are keyed
// by. The default resolver wraps os/user.LookupId; tests supply a fake so
// fixtures don't depend on /etc/passwd.
type UsernameResolver interface {
	Username(uid uint32) (string, error)
	UID(username string) (uint32, error)
}

// OSUsernameResolver is the production UsernameResolver.
type OSUsernameResolver struct{}

// Username implements UsernameResolver via os/user.
func (OSUsernameResolver) Username(uid uint32) (string, error) {
	u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10))
	if err != nil {
		return "", pkerrors.Wrap(pkerrors.KindGeneralError, err, "looking up username for uid %d", uid)
	}
	return u.Username, nil
}

// UID implements UsernameResolver via os/user, the reverse lookup used by
// ForActionAllUIDs to recover a uid from a "user-<name>.auths" filename.
func (OSUsernameResolver) UID(username string) (uint32, error) {
	u, err := user.Lookup(username)
	if err != nil {
		return 0, pkerrors.Wrap(pkerrors.KindGeneralError, err, "looking up uid for username %q", username)
	}
	n, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return 0, pkerrors.Wrap(pkerrors.KindGeneralError, err, "parsing uid for username %q", username)
	}
	return uint32(n), nil
}

// Store is the atomic, per-user, two-root authorization database.
type Store struct {
	PersistentRoot string
	TransientRoot  string
	Resolver       UsernameResolver

	mu    sync.Mutex
	cache map[string]*fileSnapshot // path -> cached parse
}

type fileSnapshot struct {
	modTime    time.Time
	triggerMod time.Time
	entries    []Entry
}

// New constructs a Store rooted at persistentRoot/transientRoot, resolving
// usernames with resolver (OSUsernameResolver{} in production).
func New(persistentRoot, transientRoot string, resolver UsernameResolver) *Store {
	return &Store{
		PersistentRoot: persistentRoot,
		TransientRoot:  transientRoot,
		Resolver:       resolver,
		cache:          make(map[string]*fileSnapshot),
	}
}

// rootFor returns the root directory that owns scope, per spec.md §4.5:
// always/grant/grant-negative are persistent; process*/session are
// transient.
func (s *Store) rootFor(scope Scope) string {
	switch scope {
	case ScopeAlways, ScopeGrant, ScopeGrantNegative:
		return s.PersistentRoot
	default:
		return s.TransientRoot
	}
}

func (s *Store) pathFor(root string, uid uint32) (string, error) {
	name, err := s.Resolver.Username(uid)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, fmt.Sprintf("user-%s.auths", name)), nil
}

func (s *Store) triggerPath(root string) string {
	return filepath.Join(root, reloadTriggerName)
}

// header is the explanatory blurb written into a brand-new store file,
// matching the original's "This file lists authorizations for..." comment
// block in polkit-authorization-db-write.c.
func header(username string, transient bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# This file lists authorizations for user %s\n", username)
	if transient {
		b.WriteString("# (these are temporary and will be removed on the next system boot)\n")
	}
	b.WriteString("# \n")
	b.WriteString("# File format may change at any time; do not rely on it. To manage\n")
	b.WriteString("# authorizations use the polkit-auth command-line tool instead.\n")
	b.WriteString("\n")
	return b.String()
}

// Append adds entry to uid's store file, following the exact protocol of
// spec.md §4.5: read existing (or synthesise a header), write to a sibling
// temp file at fileMode, fsync, atomic rename, then touch the
// reload-trigger. This must only be called by the privileged writer
// helper (cmd/polkit-grant-helper); the decision engine never appends
// (its only write is Revoke of a consumed one-shot entry).
func (s *Store) Append(uid uint32, entry Entry) error {
	root := s.rootFor(entry.Scope)
	path, err := s.pathFor(root, uid)
	if err != nil {
		return err
	}

	username, err := s.Resolver.Username(uid)
	if err != nil {
		return err
	}

	existing, err := os.ReadFile(path)
	isNew := false
	if err != nil {
		if !os.IsNotExist(err) {
			return pkerrors.Wrap(pkerrors.KindGeneralError, err, "reading %q", path)
		}
		isNew = true
		existing = []byte(header(username, root == s.TransientRoot))
	}

	line := entry.Serialize() + "\n"
	var newContents []byte
	if isNew {
		newContents = append(existing, []byte(line)...)
	} else {
		newContents = append(append([]byte{}, existing...), []byte(line)...)
	}

	if err := s.writeAtomic(path, newContents); err != nil {
		return err
	}
	return s.touchTrigger(root)
}

// Revoke removes the line whose Fingerprint equals fingerprint from uid's
// store file for scope's root, using the same read-rewrite-rename
// protocol. Revoking an absent entry is a success (idempotent), per
// spec.md §4.5.
func (s *Store) Revoke(uid uint32, scope Scope, fingerprint string) error {
	root := s.rootFor(scope)
	path, err := s.pathFor(root, uid)
	if err != nil {
		return err
	}

	existing, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // nothing to revoke
		}
		return pkerrors.Wrap(pkerrors.KindGeneralError, err, "reading %q", path)
	}

	lines := strings.Split(string(existing), "\n")
	var kept []string
	found := false
	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			kept = append(kept, l)
			continue
		}
		e, err := ParseLine(trimmed)
		if err == nil && e.Fingerprint() == fingerprint {
			found = true
			continue
		}
		kept = append(kept, l)
	}
	if !found {
		return nil
	}

	newContents := []byte(strings.Join(kept, "\n"))
	if err := s.writeAtomic(path, newContents); err != nil {
		return err
	}
	return s.touchTrigger(root)
}

// writeAtomic implements steps 2-4 of the append protocol: mkstemp-
// equivalent temp file at fileMode, write, fsync, atomic rename.
func (s *Store) writeAtomic(path string, contents []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return pkerrors.Wrap(pkerrors.KindGeneralError, err, "creating %q", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return pkerrors.Wrap(pkerrors.KindGeneralError, err, "creating temp file in %q", dir)
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return pkerrors.Wrap(pkerrors.KindGeneralError, err, "chmod %q", tmpPath)
	}
	if _, err := tmp.Write(contents); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return pkerrors.Wrap(pkerrors.KindGeneralError, err, "writing %q", tmpPath)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return pkerrors.Wrap(pkerrors.KindGeneralError, err, "fsync %q", tmpPath)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return pkerrors.Wrap(pkerrors.KindGeneralError, err, "closing %q", tmpPath)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return pkerrors.Wrap(pkerrors.KindGeneralError, err, "renaming %q to %q", tmpPath, path)
	}
	return nil
}

func (s *Store) touchTrigger(root string) error {
	path := s.triggerPath(root)
	now := time.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		if !os.IsNotExist(err) {
			return pkerrors.Wrap(pkerrors.KindGeneralError, err, "touching reload trigger %q", path)
		}
		f, createErr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
		if createErr != nil {
			return pkerrors.Wrap(pkerrors.KindGeneralError, createErr, "creating reload trigger %q", path)
		}
		return f.Close()
	}
	return nil
}

// load reads and parses uid's store file under root, using a cached parse
// if neither the file's mtime nor the trigger's mtime has changed since
// the last load (spec.md §4.5 "Lifecycles" / "Readers MUST re-read").
func (s *Store) load(root string, uid uint32) ([]Entry, error) {
	path, err := s.pathFor(root, uid)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, pkerrors.Wrap(pkerrors.KindGeneralError, err, "stat %q", path)
	}
	var triggerMod time.Time
	if ti, err := os.Stat(s.triggerPath(root)); err == nil {
		triggerMod = ti.ModTime()
	}

	s.mu.Lock()
	if snap, ok := s.cache[path]; ok && snap.modTime.Equal(info.ModTime()) && snap.triggerMod.Equal(triggerMod) {
		entries := snap.entries
		s.mu.Unlock()
		return entries, nil
	}
	s.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, pkerrors.Wrap(pkerrors.KindGeneralError, err, "opening %q", path)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		e, err := ParseLine(line)
		if err != nil {
			// a malformed line is skipped and reported; other lines continue
			// (spec.md §4.6 "Failure semantics").
			logging.Warn().Err(err).Str("path", path).Msg("skipping malformed store line")
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, pkerrors.Wrap(pkerrors.KindGeneralError, err, "reading %q", path)
	}

	s.mu.Lock()
	s.cache[path] = &fileSnapshot{modTime: info.ModTime(), triggerMod: triggerMod, entries: entries}
	s.mu.Unlock()

	return entries, nil
}

// Visitor is called for each matching entry during iteration. Returning
// false requests early termination.
type Visitor func(Entry) bool

// ForUID iterates every entry belonging to uid across both roots, in
// persistent-then-transient order, snapshot-consistent per call.
func (s *Store) ForUID(uid uint32, visit Visitor) error {
	for _, root := range []string{s.PersistentRoot, s.TransientRoot} {
		entries, err := s.load(root, uid)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if !visit(e) {
				return nil
			}
		}
	}
	return nil
}

// ForActionForUID iterates uid's entries filtered to actionID.
func (s *Store) ForActionForUID(actionID string, uid uint32, visit Visitor) error {
	return s.ForUID(uid, func(e Entry) bool {
		if e.ActionID != actionID {
			return true
		}
		return visit(e)
	})
}

// UIDVisitor is called with the owning uid during an all-uids scan.
type UIDVisitor func(uid uint32, e Entry) bool

// ForActionAllUIDs iterates every uid's store (discovered by listing both
// roots' user-*.auths files) filtered to actionID.
func (s *Store) ForActionAllUIDs(actionID string, visit UIDVisitor) error {
	seen := map[uint32]bool{}
	for _, root := range []string{s.PersistentRoot, s.TransientRoot} {
		uids, err := discoverUIDs(root, s.Resolver)
		if err != nil {
			return err
		}
		for _, uid := range uids {
			if seen[uid] {
				continue
			}
			seen[uid] = true
			stop := false
			err := s.ForActionForUID(actionID, uid, func(e Entry) bool {
				if !visit(uid, e) {
					stop = true
					return false
				}
				return true
			})
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}
	}
	return nil
}

func discoverUIDs(root string, resolver UsernameResolver) ([]uint32, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, pkerrors.Wrap(pkerrors.KindGeneralError, err, "listing %q", root)
	}
	var uids []uint32
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "user-") || !strings.HasSuffix(name, ".auths") {
			continue
		}
		username := strings.TrimSuffix(strings.TrimPrefix(name, "user-"), ".auths")
		uid, err := resolver.UID(username)
		if err != nil {
			continue
		}
		uids = append(uids, uid)
	}
	return uids, nil
}
