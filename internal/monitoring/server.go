package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Server exposes a lightweight ops endpoint on a separate port: system and
// pool stats over plain JSON, plus a websocket feed that pushes a snapshot
// every few seconds so a dashboard can watch the job queue live.
type Server struct {
	db   *pgxpool.Pool
	port int

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

type Snapshot struct {
	Timestamp     time.Time      `json:"timestamp"`
	CPUPercent    float64        `json:"cpu_percent"`
	MemoryPercent float64        `json:"memory_percent"`
	DiskPercent   float64        `json:"disk_percent"`
	DBTotalConns  int32          `json:"db_total_conns"`
	DBIdleConns   int32          `json:"db_idle_conns"`
	JobCounts     map[string]int `json:"job_counts"`
}

func NewServer(db *pgxpool.Pool, port int) *Server {
	return &Server{
		db:   db,
		port: port,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

// Start blocks; run it in a goroutine
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/ws", s.handleWS)

	go s.broadcastLoop()

	log.Printf("[Monitor] listening on :%d", s.port)
	return http.ListenAndServe(fmt.Sprintf(":%d", s.port), mux)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.collect(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	// Drain reads so pings/closes are processed
	go func() {
		defer s.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

func (s *Server) broadcastLoop() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		n := len(s.clients)
		s.mu.Unlock()
		if n == 0 {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		snap, err := s.collect(ctx)
		cancel()
		if err != nil {
			log.Printf("[Monitor] snapshot failed: %v", err)
			continue
		}

		data, err := json.Marshal(snap)
		if err != nil {
			continue
		}

		s.mu.Lock()
		for conn := range s.clients {
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				delete(s.clients, conn)
				conn.Close()
			}
		}
		s.mu.Unlock()
	}
}

func (s *Server) collect(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		Timestamp: time.Now(),
		JobCounts: make(map[string]int),
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		snap.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		snap.MemoryPercent = vm.UsedPercent
	}
	if du, err := disk.Usage("/"); err == nil {
		snap.DiskPercent = du.UsedPercent
	}

	stat := s.db.Stat()
	snap.DBTotalConns = stat.TotalConns()
	snap.DBIdleConns = stat.IdleConns()

	rows, err := s.db.Query(ctx, `SELECT status, COUNT(*) FROM reverse_jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		snap.JobCounts[status] = count
	}
	return snap, rows.Err()
}
