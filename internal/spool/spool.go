// Package spool implements the on-disk mailbox store. Each user owns a
// directory under the spool root; each message is one file whose first
// line is the subject and whose remaining lines are the body. Filenames
// embed the arrival identity YYYYMMDD_HHMMSS_SEQ, so lexicographic
// filename order coincides with arrival order and defines the 1-based
// indices exposed by the protocol.
package spool

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	messageExt         = ".txt"
	placeholderSubject = "(No Subject)"
	maxUsernameLen     = 8
)

// MessageInfo describes one message in a mailbox's current ordering.
type MessageInfo struct {
	// Name is the on-disk filename, i.e. the arrival identity plus extension.
	Name string

	// Subject is the first line of the message file.
	Subject string

	// Size is the file size in bytes.
	Size int64
}

// Store is a per-user directory message store rooted at a single spool
// directory. All operations on one mailbox are serialized under a lock
// keyed by username, so a list-then-index sequence inside any single
// call observes a consistent snapshot even under concurrent sessions.
type Store struct {
	root string

	mu    sync.Mutex
	boxes map[string]*sync.Mutex

	now func() time.Time
}

// Open creates the spool root directory if needed and returns a Store.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("creating spool root: %w", err)
	}
	return &Store{
		root:  root,
		boxes: make(map[string]*sync.Mutex),
		now:   time.Now,
	}, nil
}

// Root returns the spool root directory.
func (s *Store) Root() string {
	return s.root
}

// ValidUsername reports whether name is a well-formed username:
// 1 to 8 characters, each a lowercase letter or decimal digit. The
// store refuses anything else before using it as a path component.
func ValidUsername(name string) bool {
	if len(name) == 0 || len(name) > maxUsernameLen {
		return false
	}
	for _, c := range name {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// boxLock returns the mutex guarding one user's mailbox, creating it on
// first use. Mailbox locks are never removed; the map is bounded by the
// set of valid usernames ever seen.
func (s *Store) boxLock(user string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.boxes[user]
	if !ok {
		m = &sync.Mutex{}
		s.boxes[user] = m
	}
	return m
}

// Deliver persists a new message for user. The mailbox directory is
// created on first delivery. The filename is claimed with an exclusive
// create: candidate sequence numbers are probed from 1 until O_EXCL
// succeeds, which makes delivery race-free both across goroutines and
// across processes sharing the spool.
func (s *Store) Deliver(ctx context.Context, user, subject string, body []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ValidUsername(user) {
		return ErrInvalidUser
	}

	lock := s.boxLock(user)
	lock.Lock()
	defer lock.Unlock()

	dir := filepath.Join(s.root, user)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating mailbox for %s: %w", user, err)
	}

	stamp := s.now().Format("20060102_150405")
	for seq := 1; ; seq++ {
		name := fmt.Sprintf("%s_%03d%s", stamp, seq, messageExt)
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err != nil {
			if os.IsExist(err) {
				continue
			}
			return fmt.Errorf("creating message file: %w", err)
		}

		w := bufio.NewWriter(f)
		_, _ = w.WriteString(subject)
		_ = w.WriteByte('\n')
		for _, line := range body {
			_, _ = w.WriteString(line)
			_ = w.WriteByte('\n')
		}
		if err := w.Flush(); err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
			return fmt.Errorf("writing message file: %w", err)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(f.Name())
			return fmt.Errorf("closing message file: %w", err)
		}
		return nil
	}
}

// List returns the mailbox's current ordering with the subject of each
// message. A user with no mailbox directory (or an invalid name, which
// can never own one) has an empty ordering; neither case is an error.
func (s *Store) List(ctx context.Context, user string) ([]MessageInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ValidUsername(user) {
		return nil, nil
	}

	lock := s.boxLock(user)
	lock.Lock()
	defer lock.Unlock()

	return s.listLocked(user)
}

// Fetch returns every stored line of the message at the given 1-based
// index in the mailbox's current ordering, subject line first.
func (s *Store) Fetch(ctx context.Context, user string, index int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ValidUsername(user) {
		return nil, ErrInvalidUser
	}

	lock := s.boxLock(user)
	lock.Lock()
	defer lock.Unlock()

	msgs, err := s.listLocked(user)
	if err != nil {
		return nil, err
	}
	if index < 1 || index > len(msgs) {
		return nil, ErrNoSuchMessage
	}

	f, err := os.Open(filepath.Join(s.root, user, msgs[index-1].Name))
	if err != nil {
		return nil, fmt.Errorf("opening message: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	// Stored lines have no length limit, so read with ReadString rather
	// than a Scanner token.
	var lines []string
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			lines = append(lines, strings.TrimSuffix(line, "\n"))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return lines, nil
			}
			return nil, fmt.Errorf("reading message: %w", err)
		}
	}
}

// Delete permanently removes the message at the given 1-based index in
// the mailbox's current ordering. Higher indices shift down by one on
// the next call.
func (s *Store) Delete(ctx context.Context, user string, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ValidUsername(user) {
		return ErrInvalidUser
	}

	lock := s.boxLock(user)
	lock.Lock()
	defer lock.Unlock()

	msgs, err := s.listLocked(user)
	if err != nil {
		return err
	}
	if index < 1 || index > len(msgs) {
		return ErrNoSuchMessage
	}

	if err := os.Remove(filepath.Join(s.root, user, msgs[index-1].Name)); err != nil {
		return fmt.Errorf("removing message: %w", err)
	}
	return nil
}

// listLocked scans the mailbox directory. Caller holds the mailbox lock.
// os.ReadDir returns entries sorted by filename, which for the arrival
// identity naming scheme is exactly arrival order; filesystem iteration
// order is never relied on.
func (s *Store) listLocked(user string) ([]MessageInfo, error) {
	dir := filepath.Join(s.root, user)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing mailbox for %s: %w", user, err)
	}

	var msgs []MessageInfo
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), messageExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Deleted between ReadDir and Info; skip it.
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("stat message %s: %w", entry.Name(), err)
		}
		msgs = append(msgs, MessageInfo{
			Name:    entry.Name(),
			Subject: readSubject(filepath.Join(dir, entry.Name())),
			Size:    info.Size(),
		})
	}
	return msgs, nil
}

// readSubject returns the first line of a message file, or a placeholder
// when nothing is readable at all. Subject lines have no length limit;
// a read fault after some bytes still yields what was read, so a real
// subject is never masked by the placeholder.
func readSubject(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return placeholderSubject
	}
	defer func() {
		_ = f.Close()
	}()

	line, _ := bufio.NewReader(f).ReadString('\n')
	if line == "" {
		return placeholderSubject
	}
	return strings.TrimSuffix(line, "\n")
}
