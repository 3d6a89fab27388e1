package main

import (
	"database/sql"
	"log"
	"net"
	"sync"
	"time"
)

// Session event types
const (
	EvtSessionStart = "session_start"
	EvtSessionEnd   = "session_end"
	EvtPeerJoin     = "peer_join"
	EvtPeerReject   = "peer_reject"
	EvtDeath        = "death"
)

const (
	eventFlushEvery = 2 * time.Second
	eventBatchSize  = 50
)

// SessionEvent is one row of the session event log
type SessionEvent struct {
	Type      string
	SessionID string
	Peer      string
	Data      string
	Timestamp time.Time
}

// EventLog writes session events in batches from a background goroutine so
// the simulation and network tasks never wait on the database
type EventLog struct {
	db     *DB
	events chan SessionEvent
	stop   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewEventLog creates and starts the background writer. A nil db discards
// events.
func NewEventLog(db *DB) *EventLog {
	l := &EventLog{
		db:     db,
		events: make(chan SessionEvent, 1024),
		stop:   make(chan struct{}),
	}
	l.wg.Add(1)
	go l.writer()
	return l
}

// Track enqueues an event without blocking
func (l *EventLog) Track(evtType, sessionID, peer, data string) {
	select {
	case <-l.stop:
		return
	default:
	}
	select {
	case l.events <- SessionEvent{
		Type:      evtType,
		SessionID: sessionID,
		Peer:      peer,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}:
	default:
		// full: drop rather than stall a game task
	}
}

// Stop flushes what is queued and shuts the writer down
func (l *EventLog) Stop() {
	l.once.Do(func() {
		close(l.stop)
		l.wg.Wait()
	})
}

func (l *EventLog) writer() {
	defer l.wg.Done()

	batch := make([]SessionEvent, 0, eventBatchSize)
	ticker := time.NewTicker(eventFlushEvery)
	defer ticker.Stop()

	for {
		select {
		case evt := <-l.events:
			batch = append(batch, evt)
			if len(batch) >= eventBatchSize {
				l.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				l.flush(batch)
				batch = batch[:0]
			}
		case <-l.stop:
			for {
				select {
				case evt := <-l.events:
					batch = append(batch, evt)
				default:
					l.flush(batch)
					return
				}
			}
		}
	}
}

func (l *EventLog) flush(events []SessionEvent) {
	if l.db == nil || len(events) == 0 {
		return
	}
	tx, err := l.db.conn.Begin()
	if err != nil {
		log.Printf("leaderboard: begin tx error: %v", err)
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO session_events (session_id, event_type, peer, data, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		log.Printf("leaderboard: prepare error: %v", err)
		return
	}
	defer stmt.Close()

	for _, evt := range events {
		sid := sql.NullString{String: evt.SessionID, Valid: evt.SessionID != ""}
		peer := sql.NullString{String: evt.Peer, Valid: evt.Peer != ""}
		data := sql.NullString{String: evt.Data, Valid: evt.Data != ""}
		if _, err := stmt.Exec(sid, evt.Type, peer, data, evt.Timestamp.Format(time.RFC3339)); err != nil {
			log.Printf("leaderboard: insert error: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		log.Printf("leaderboard: commit error: %v", err)
	}
}

// LeaderboardRecorder stores final scores and tracks the lifecycle of a
// session in the event log
type LeaderboardRecorder struct {
	db     *DB
	events *EventLog
}

// NewLeaderboardRecorder attaches db and events to s. Either may be nil.
func NewLeaderboardRecorder(s *Session, db *DB, events *EventLog) *LeaderboardRecorder {
	r := &LeaderboardRecorder{db: db, events: events}
	s.OnStarted(r.started)
	s.OnEnded(r.ended)
	s.OnSyncer(r.watchSyncer(s))
	s.Game.AddDeathListener(func() {
		r.track(EvtDeath, s.currentID(), "", s.Game.Mode().String())
	})
	return r
}

func (r *LeaderboardRecorder) track(evtType, sessionID, peer, data string) {
	if r.events != nil {
		r.events.Track(evtType, sessionID, peer, data)
	}
}

func (r *LeaderboardRecorder) started(s *Session) {
	r.track(EvtSessionStart, s.currentID(), "", s.Game.Mode().String())
}

func (r *LeaderboardRecorder) ended(res SessionResult) {
	r.track(EvtSessionEnd, res.ID, "", res.Mode.String())
	// deathmatch keeps no score
	if r.db == nil || res.Mode == ModeDeathmatch || res.Mode == ModeSpectate {
		return
	}
	if err := r.db.RecordScore(res); err != nil {
		log.Printf("leaderboard: %v", err)
	}
}

func (r *LeaderboardRecorder) watchSyncer(s *Session) func(*Syncer) {
	return func(sy *Syncer) {
		id := s.currentID()
		sy.OnJoin = func(addr net.Addr, ship ShipState) {
			r.track(EvtPeerJoin, id, addr.String(), ship.Mode.String())
		}
		sy.OnReject = func(addr net.Addr, err error) {
			r.track(EvtPeerReject, id, addr.String(), err.Error())
		}
	}
}
