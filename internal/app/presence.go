package app

import (
	"strings"
	"sync"
	"time"

	"quizboard-service/internal/domain"
)

// DefaultGracePeriod is how long a fully disconnected student is kept.
const DefaultGracePeriod = 15 * time.Second

// MaxStudentIDLength bounds client supplied identifiers.
const MaxStudentIDLength = 64

// Disconnect actions reported in DisconnectRecord.
const (
	DisconnectUnbound   = "unbound"
	DisconnectRetained  = "retained"
	DisconnectPurged    = "purged"
	DisconnectScheduled = "scheduled"
)

// Purge causes passed to the purge hook.
const (
	PurgeDeliberate   = "deliberate"
	PurgeGraceExpired = "grace-expired"
)

// DisconnectRecord is the diagnostic outcome of one disconnect.
type DisconnectRecord struct {
	ConnectionID string
	StudentID    string
	Name         string
	Reason       string
	Action       string
	Remaining    int
	Grace        time.Duration
	At           time.Time
}

// PresenceOptions configures a PresenceRegistry.
type PresenceOptions struct {
	Grace     time.Duration
	BoardSize int
	Wrap      bool
	Scheduler Scheduler
	Now       func() time.Time
	// Locker guards timer callbacks. The registry's owner must hold the same
	// lock around every other registry call.
	Locker sync.Locker
	// OnPurge runs under Locker whenever a single student is purged.
	OnPurge func(student domain.Student, cause string)
	// OnRebind receives the disconnect record of a connection that Join
	// moved off its previous student.
	OnRebind func(rec DisconnectRecord)
}

type pendingCleanup struct {
	timer Timer
	gen   uint64
}

type presenceEntry struct {
	student domain.Student
	conns   map[string]struct{}
	cleanup *pendingCleanup
}

// PresenceRegistry maps durable student identities to their live
// connections, board squares and pending cleanup timers.
//
// The registry does no locking of its own; see PresenceOptions.Locker.
type PresenceRegistry struct {
	opts     PresenceOptions
	students map[string]*presenceEntry
	order    []string
	byConn   map[string]string
	gen      uint64
}

func NewPresenceRegistry(opts PresenceOptions) *PresenceRegistry {
	if opts.Scheduler == nil {
		opts.Scheduler = WallScheduler()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Locker == nil {
		opts.Locker = &sync.Mutex{}
	}
	if opts.Grace < 0 {
		opts.Grace = 0
	}
	return &PresenceRegistry{
		opts:     opts,
		students: make(map[string]*presenceEntry),
		byConn:   make(map[string]string),
	}
}

// Join binds connID to a student, creating the identity on first sight.
// An empty name after sanitization makes the call a no-op.
func (r *PresenceRegistry) Join(connID, studentID, displayName string, resumeSquare *int) (domain.Student, bool) {
	name := SanitizeName(displayName)
	if name == "" || connID == "" {
		return domain.Student{}, false
	}
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		studentID = connID
	}
	if len(studentID) > MaxStudentIDLength {
		return domain.Student{}, false
	}

	if prev, ok := r.byConn[connID]; ok && prev != studentID {
		rec := r.release(connID, domain.ReasonRebound)
		if r.opts.OnRebind != nil {
			r.opts.OnRebind(rec)
		}
	}

	entry, ok := r.students[studentID]
	if ok {
		entry.conns[connID] = struct{}{}
		r.cancelCleanup(entry)
		if resumeSquare != nil && *resumeSquare >= 0 {
			entry.student.Square = *resumeSquare
		}
		if !entry.student.Moderated {
			entry.student.Name = name
		}
	} else {
		square := 0
		if resumeSquare != nil && *resumeSquare >= 0 {
			square = *resumeSquare
		}
		entry = &presenceEntry{
			student: domain.Student{
				ID:       studentID,
				Name:     name,
				JoinedAt: r.opts.Now(),
				Square:   square,
			},
			conns: map[string]struct{}{connID: {}},
		}
		r.students[studentID] = entry
		r.order = append(r.order, studentID)
	}
	r.recordConnection(connID, studentID)
	return entry.student, true
}

func (r *PresenceRegistry) recordConnection(connID, studentID string) {
	r.byConn[connID] = studentID
}

// Disconnect unbinds connID. A student left without connections is purged at
// once for a deliberate departure, otherwise after the grace period.
func (r *PresenceRegistry) Disconnect(connID, reason string) DisconnectRecord {
	return r.release(connID, reason)
}

func (r *PresenceRegistry) release(connID, reason string) DisconnectRecord {
	rec := DisconnectRecord{
		ConnectionID: connID,
		Reason:       reason,
		Action:       DisconnectUnbound,
		At:           r.opts.Now(),
	}
	studentID, ok := r.byConn[connID]
	if !ok {
		return rec
	}
	delete(r.byConn, connID)
	rec.StudentID = studentID

	entry, ok := r.students[studentID]
	if !ok {
		return rec
	}
	rec.Name = entry.student.Name
	delete(entry.conns, connID)
	rec.Remaining = len(entry.conns)
	if rec.Remaining > 0 {
		rec.Action = DisconnectRetained
		return rec
	}

	if reason == domain.ReasonClientLeft || r.opts.Grace == 0 {
		rec.Action = DisconnectPurged
		r.purge(studentID, PurgeDeliberate)
		return rec
	}
	rec.Action = DisconnectScheduled
	rec.Grace = r.opts.Grace
	r.scheduleCleanup(entry)
	return rec
}

func (r *PresenceRegistry) scheduleCleanup(entry *presenceEntry) {
	r.cancelCleanup(entry)
	r.gen++
	gen := r.gen
	id := entry.student.ID
	timer := r.opts.Scheduler.AfterFunc(r.opts.Grace, func() {
		r.opts.Locker.Lock()
		defer r.opts.Locker.Unlock()
		r.expire(id, gen)
	})
	entry.cleanup = &pendingCleanup{timer: timer, gen: gen}
}

// expire runs when a cleanup timer fires. The handle must still be current
// and the connection set still empty; a rejoin in between wins.
func (r *PresenceRegistry) expire(studentID string, gen uint64) {
	entry, ok := r.students[studentID]
	if !ok || entry.cleanup == nil || entry.cleanup.gen != gen {
		return
	}
	entry.cleanup = nil
	if len(entry.conns) > 0 {
		return
	}
	r.purge(studentID, PurgeGraceExpired)
}

func (r *PresenceRegistry) cancelCleanup(entry *presenceEntry) bool {
	if entry.cleanup == nil {
		return false
	}
	entry.cleanup.timer.Stop()
	entry.cleanup = nil
	return true
}

// CancelCleanup stops a pending cleanup for studentID. It reports whether a
// timer was pending; calling it again, or after the timer fired, is a no-op.
func (r *PresenceRegistry) CancelCleanup(studentID string) bool {
	entry, ok := r.students[studentID]
	if !ok {
		return false
	}
	return r.cancelCleanup(entry)
}

// CleanupPending reports whether studentID is waiting out its grace period.
func (r *PresenceRegistry) CleanupPending(studentID string) bool {
	entry, ok := r.students[studentID]
	return ok && entry.cleanup != nil
}

func (r *PresenceRegistry) purge(studentID, cause string) {
	entry, ok := r.students[studentID]
	if !ok {
		return
	}
	r.cancelCleanup(entry)
	for connID := range entry.conns {
		delete(r.byConn, connID)
	}
	delete(r.students, studentID)
	for i, id := range r.order {
		if id == studentID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.opts.OnPurge != nil {
		r.opts.OnPurge(entry.student, cause)
	}
}

// Move applies a dice roll or an absolute square to targetID. The absolute
// square wins when both are given and is never wrapped.
func (r *PresenceRegistry) Move(targetID string, roll, absolute *int) (oldSquare, newSquare int, ok bool) {
	entry, found := r.students[targetID]
	if !found {
		return 0, 0, false
	}
	oldSquare = entry.student.Square
	switch {
	case absolute != nil:
		if *absolute < 0 {
			return 0, 0, false
		}
		newSquare = *absolute
	case roll != nil:
		if *roll < 1 || *roll > 6 {
			return 0, 0, false
		}
		newSquare = oldSquare + *roll
		if r.opts.Wrap && r.opts.BoardSize > 0 {
			newSquare %= r.opts.BoardSize
		}
	default:
		return 0, 0, false
	}
	entry.student.Square = newSquare
	return oldSquare, newSquare, true
}

// Rename forces a moderated display name. It reports whether anything changed.
func (r *PresenceRegistry) Rename(targetID, fixedName string) bool {
	entry, ok := r.students[targetID]
	if !ok || fixedName == "" {
		return false
	}
	if entry.student.Name == fixedName && entry.student.Moderated {
		return false
	}
	entry.student.Name = fixedName
	entry.student.Moderated = true
	return true
}

// PurgeAll drops every identity, connection binding and timer without
// invoking the purge hook.
func (r *PresenceRegistry) PurgeAll() {
	r.StopTimers()
	r.students = make(map[string]*presenceEntry)
	r.byConn = make(map[string]string)
	r.order = nil
}

// StopTimers cancels every pending cleanup, leaving identities in place.
func (r *PresenceRegistry) StopTimers() {
	for _, entry := range r.students {
		r.cancelCleanup(entry)
	}
}

// Snapshot lists students in creation order.
func (r *PresenceRegistry) Snapshot() []domain.StudentView {
	views := make([]domain.StudentView, 0, len(r.order))
	for _, id := range r.order {
		s := r.students[id].student
		views = append(views, domain.StudentView{
			ID:       s.ID,
			Name:     s.Name,
			JoinedAt: s.JoinedAt,
			Square:   s.Square,
		})
	}
	return views
}

// Lookup returns the student registered under studentID.
func (r *PresenceRegistry) Lookup(studentID string) (domain.Student, bool) {
	entry, ok := r.students[studentID]
	if !ok {
		return domain.Student{}, false
	}
	return entry.student, true
}

// StudentFor resolves the student bound to connID.
func (r *PresenceRegistry) StudentFor(connID string) (string, bool) {
	id, ok := r.byConn[connID]
	return id, ok
}

// Connections counts live connections for studentID.
func (r *PresenceRegistry) Connections(studentID string) int {
	entry, ok := r.students[studentID]
	if !ok {
		return 0
	}
	return len(entry.conns)
}

// Len is the number of registered students.
func (r *PresenceRegistry) Len() int {
	return len(r.students)
}
