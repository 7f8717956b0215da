// Package ws serves episodes over a websocket: one connection drives one
// episode at a time, HELLO to WELCOME handshake first, then ACT in and
// OBS/VERDICT out until the verdict goes terminal.
package ws

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"missiongrid.ai/internal/persistence/indexdb"
	"missiongrid.ai/internal/persistence/log"
	"missiongrid.ai/internal/protocol"
	"missiongrid.ai/internal/sim/descriptor"
	"missiongrid.ai/internal/sim/episode"
	"missiongrid.ai/internal/sim/grid"
	"missiongrid.ai/internal/sim/instr"
	"missiongrid.ai/internal/sim/levelgen"
)

// Sinks are the optional persistence hooks; any of them may be nil.
type Sinks struct {
	Missions *log.MissionLogger
	Episodes *log.EpisodeLogger
	Index    *indexdb.SQLiteIndex
}

type Server struct {
	reg   *levelgen.Registry
	sinks Sinks
	log   *stdlog.Logger

	upgrader websocket.Upgrader
}

func NewServer(reg *levelgen.Registry, sinks Sinks, logger *stdlog.Logger) *Server {
	return &Server{
		reg:   reg,
		sinks: sinks,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ep, missionID := s.handshake(conn)
		if ep == nil {
			return
		}
		s.runEpisode(conn, ep, missionID)
	}
}

func (s *Server) handshake(conn *websocket.Conn) (*episode.Episode, string) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, ""
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil, ""
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil, ""
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return nil, ""
	}
	if hello.AgentName == "" {
		hello.AgentName = "agent"
	}

	seed := hello.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	m, code, err := s.buildMission(hello, seed)
	if err != nil {
		s.log.Printf("handshake: mission for %s: %v", hello.AgentName, err)
		s.writeError(conn, code, err.Error())
		return nil, ""
	}

	ep := episode.New(m)
	doc := descriptor.FromMission(m)
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       uuid.NewString(),
		EpisodeID:       ep.ID,
		Level:           m.Level,
		Seed:            m.Seed,
		MaxSteps:        m.MaxSteps,
		MissionText:     m.Text,
		Mission:         *doc,
		Digest:          m.Digest(),
	}
	if err := writeJSON(conn, welcome); err != nil {
		return nil, ""
	}

	missionID := s.recordMission(m, doc)
	s.log.Printf("episode %s: %s seed=%d agent=%s %q", ep.ID, m.Level, m.Seed, hello.AgentName, m.Text)
	return ep, missionID
}

func (s *Server) buildMission(hello protocol.HelloMsg, seed int64) (*levelgen.Mission, string, error) {
	if hello.Mission != nil {
		m, err := hello.Mission.Build(seed)
		if err != nil {
			return nil, protocol.ErrBadMission, err
		}
		return m, "", nil
	}

	level := hello.Level
	if level == "" {
		level = "goto"
	}
	cfg, err := s.reg.Lookup(level)
	if err != nil {
		return nil, protocol.ErrLevelNotFound, err
	}
	if hello.Strict {
		cfg.Strict = true
	}
	m, err := levelgen.Generate(level, cfg, seed)
	if err != nil {
		return nil, protocol.ErrGenBudget, err
	}
	return m, "", nil
}

func (s *Server) runEpisode(conn *websocket.Conn, ep *episode.Episode, missionID string) {
	for !ep.Over() {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil || base.Type != protocol.TypeAct {
			s.writeError(conn, protocol.ErrProtoBadRequest, "expected ACT")
			continue
		}
		var act protocol.ActMsg
		if err := json.Unmarshal(msg, &act); err != nil || act.ProtocolVersion != protocol.Version {
			s.writeError(conn, protocol.ErrProtoBadRequest, "bad ACT")
			continue
		}
		if !grid.ValidAction(grid.Action(act.Action)) {
			s.writeError(conn, protocol.ErrBadAction, "unknown action "+act.Action)
			continue
		}

		_, verdict, err := ep.Step(grid.Action(act.Action))
		if err != nil {
			s.writeError(conn, protocol.ErrEpisodeOver, err.Error())
			break
		}

		s.recordStep(ep, act.Action, verdict)
		if err := writeJSON(conn, s.obs(ep)); err != nil {
			break
		}
		vm := protocol.VerdictMsg{
			Type:            protocol.TypeVerdict,
			ProtocolVersion: protocol.Version,
			EpisodeID:       ep.ID,
			Step:            ep.Steps(),
			Status:          string(ep.Outcome()),
			StrictNode:      verdict.StrictNode,
		}
		if err := writeJSON(conn, vm); err != nil {
			break
		}
	}

	s.recordEpisode(ep, missionID)
	s.log.Printf("episode %s: %s after %d steps", ep.ID, ep.Outcome(), ep.Steps())
}

func (s *Server) obs(ep *episode.Episode) protocol.ObsMsg {
	g := ep.World()
	obs := protocol.ObsMsg{
		Type:            protocol.TypeObs,
		ProtocolVersion: protocol.Version,
		EpisodeID:       ep.ID,
		Step:            ep.Steps(),
		Agent: protocol.AgentObs{
			Pos:      [2]int{g.Agent.Pos.X, g.Agent.Pos.Y},
			Dir:      int(g.Agent.Dir),
			Carrying: g.Agent.Carrying,
		},
		Doors:   []protocol.DoorObs{},
		Objects: []protocol.ObjectObs{},
		Status:  string(ep.Outcome()),
	}
	for _, d := range g.Doors() {
		obs.Doors = append(obs.Doors, protocol.DoorObs{
			ID:     d.ID,
			Color:  string(d.Color),
			Pos:    [2]int{d.Pos.X, d.Pos.Y},
			Open:   d.Open,
			Locked: d.Locked,
		})
	}
	for _, o := range g.Objects() {
		if !o.Alive {
			continue
		}
		obs.Objects = append(obs.Objects, protocol.ObjectObs{
			ID:      o.ID,
			Kind:    string(o.Kind),
			Color:   string(o.Color),
			Pos:     [2]int{o.Pos.X, o.Pos.Y},
			Carried: o.Carried,
		})
	}
	return obs
}

func (s *Server) recordMission(m *levelgen.Mission, doc *descriptor.Mission) string {
	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if s.sinks.Missions != nil {
		_ = s.sinks.Missions.WriteMission(log.MissionLogEntry{
			Time:     now,
			Level:    m.Level,
			Seed:     m.Seed,
			Attempts: m.Attempts,
			Digest:   m.Digest(),
			Text:     m.Text,
		})
	}
	if s.sinks.Index != nil {
		docJSON, _ := json.Marshal(doc)
		s.sinks.Index.WriteMission(indexdb.MissionRow{
			ID:       id,
			Level:    m.Level,
			Seed:     m.Seed,
			Attempts: m.Attempts,
			MaxSteps: m.MaxSteps,
			Digest:   m.Digest(),
			Text:     m.Text,
			DocJSON:  string(docJSON),
		})
	}
	return id
}

func (s *Server) recordStep(ep *episode.Episode, action string, verdict instr.Verdict) {
	if s.sinks.Episodes != nil {
		_ = s.sinks.Episodes.WriteStep(log.StepLogEntry{
			Time:       time.Now().UTC().Format(time.RFC3339Nano),
			EpisodeID:  ep.ID,
			Step:       ep.Steps(),
			Action:     action,
			Status:     string(verdict.Status),
			StrictNode: verdict.StrictNode,
		})
	}
	if s.sinks.Index != nil {
		s.sinks.Index.WriteStep(indexdb.StepRow{
			EpisodeID: ep.ID,
			Step:      ep.Steps(),
			Action:    action,
			Status:    string(verdict.Status),
		})
	}
}

func (s *Server) recordEpisode(ep *episode.Episode, missionID string) {
	if s.sinks.Index != nil {
		s.sinks.Index.WriteEpisode(indexdb.EpisodeRow{
			ID:         ep.ID,
			MissionID:  missionID,
			Steps:      ep.Steps(),
			Outcome:    string(ep.Outcome()),
			StrictNode: ep.Verdict().StrictNode,
		})
	}
}

func (s *Server) writeError(conn *websocket.Conn, code, message string) {
	_ = writeJSON(conn, protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         message,
	})
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
