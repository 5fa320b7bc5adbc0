/*
Copyright (C) 2023  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package dashboard is an optional live view into a running experiment:
// an HTTP server that upgrades to a websocket per viewer and pushes one
// JSON frame per EpochDone call. It implements sgd.Reporter and is
// otherwise uninvolved in the coordination schemes or the SVM update --
// detaching it changes nothing about a run's outcome.
package dashboard

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/launix-de/parasgd/internal/sgd"
)

// frame is the JSON shape pushed to every connected viewer, one per
// sgd.EpochEvent.
type frame struct {
	RunID    string  `json:"run_id"`
	WorkerID int     `json:"worker_id"`
	Epoch    int     `json:"epoch"`
	Score    float64 `json:"score"`
}

// client wraps one upgraded connection with the write mutex
// gorilla/websocket requires for concurrent writers (the teacher's own
// scm/network.go websocket endpoint does the same: one sendmutex per
// connection guarding WriteMessage).
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Dashboard is a standalone HTTP+WS server broadcasting epoch frames.
// Zero value is not usable; construct with New.
type Dashboard struct {
	srv      *http.Server
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

// New builds a dashboard listening on addr (e.g. ":8080") once Start is
// called. Matches spec's -dashboard :PORT driver flag.
func New(addr string) *Dashboard {
	d := &Dashboard{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", d.handleWS)
	d.srv = &http.Server{
		Addr:           addr,
		Handler:        mux,
		ReadTimeout:    300 * time.Second,
		WriteTimeout:   300 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	return d
}

// Start launches the HTTP server in the background. ListenAndServe
// errors after a clean Shutdown are swallowed; anything else is logged,
// mirroring the teacher's best-effort HTTPServe (a dashboard failing to
// bind must never abort the experiment it's observing).
func (d *Dashboard) Start() {
	go func() {
		if err := d.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("dashboard: %v", err)
		}
	}()
}

// Close stops accepting connections and drops all clients.
func (d *Dashboard) Close() error {
	err := d.srv.Close()
	// http.Server.Close does not know about hijacked (websocket)
	// connections, so close them here.
	d.mu.Lock()
	for c := range d.clients {
		c.conn.Close()
		delete(d.clients, c)
	}
	d.mu.Unlock()
	return err
}

func (d *Dashboard) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn}
	d.mu.Lock()
	d.clients[c] = struct{}{}
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.clients, c)
		d.mu.Unlock()
		conn.Close()
	}()
	// read loop purely to detect disconnect -- the dashboard is
	// push-only, viewers send nothing meaningful back.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// EpochDone implements sgd.Reporter, broadcasting one JSON frame to
// every connected viewer. A viewer whose write fails is dropped. Writes
// go out one viewer at a time with no write deadline, so a slow viewer
// delays the engine goroutine that called this until its write ends.
func (d *Dashboard) EpochDone(e sgd.EpochEvent) {
	b, err := json.Marshal(frame{RunID: e.RunID, WorkerID: e.WorkerID, Epoch: e.Epoch, Score: e.Score})
	if err != nil {
		return
	}
	d.mu.Lock()
	targets := make([]*client, 0, len(d.clients))
	for c := range d.clients {
		targets = append(targets, c)
	}
	d.mu.Unlock()

	for _, c := range targets {
		if err := c.send(b); err != nil {
			d.mu.Lock()
			delete(d.clients, c)
			d.mu.Unlock()
			c.conn.Close()
		}
	}
}

var _ sgd.Reporter = (*Dashboard)(nil)

// String implements fmt.Stringer for verbose driver logs.
func (d *Dashboard) String() string {
	return fmt.Sprintf("dashboard(%s)", d.srv.Addr)
}
