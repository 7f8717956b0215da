// Command bot plays one episode against a running server with a random
// policy. Useful for smoke-testing a deployment and for generating
// episode logs to replay.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"missiongrid.ai/internal/protocol"
)

// Forward-heavy: a uniform policy mostly spins in place.
var policy = []string{
	"FORWARD", "FORWARD", "FORWARD", "FORWARD",
	"LEFT", "RIGHT",
	"TOGGLE", "PICKUP", "DROP",
}

func main() {
	var (
		url    = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name   = flag.String("name", "bot", "agent name")
		level  = flag.String("level", "goto", "level to request")
		seed   = flag.Int64("seed", 0, "mission seed (0 lets the server pick)")
		strict = flag.Bool("strict", false, "request strict debug goals")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		AgentName:       *name,
		Level:           *level,
		Seed:            *seed,
		Strict:          *strict,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	var (
		rnd       *rand.Rand
		episodeID string
		step      int
	)
	act := func() {
		step++
		a := policy[rnd.Intn(len(policy))]
		_ = conn.WriteJSON(protocol.ActMsg{
			Type:            protocol.TypeAct,
			ProtocolVersion: protocol.Version,
			EpisodeID:       episodeID,
			Step:            step,
			Action:          a,
		})
	}

	for {
		select {
		case <-stop:
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Printf("read: %v", err)
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			episodeID = w.EpisodeID
			rnd = rand.New(rand.NewSource(w.Seed))
			logger.Printf("WELCOME episode=%s level=%s seed=%d max_steps=%d %q",
				w.EpisodeID, w.Level, w.Seed, w.MaxSteps, w.MissionText)
			act()

		case protocol.TypeVerdict:
			var v protocol.VerdictMsg
			if err := json.Unmarshal(msg, &v); err != nil {
				continue
			}
			if v.Status != "ONGOING" {
				logger.Printf("episode %s: %s after %d steps (strict_node=%q)",
					v.EpisodeID, v.Status, v.Step, v.StrictNode)
				return
			}
			act()

		case protocol.TypeError:
			var e protocol.ErrorMsg
			_ = json.Unmarshal(msg, &e)
			logger.Printf("server error %s: %s", e.Code, e.Message)
			return
		}
	}
}
