package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/sensor_events/internal/config"
	"github.com/relabs-tech/sensor_events/internal/event"
	"github.com/relabs-tech/sensor_events/internal/store"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 1000
	wsWriteTimeout     = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// wsClient serializes writes to one websocket connection.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// webServer keeps the latest event per topic and streams events to websocket
// clients.
type webServer struct {
	mu      sync.RWMutex
	latest  map[string]Payload // keyed by sensor name, meta events under "meta"
	clients map[*wsClient]struct{}
	store   *store.Store // optional
}

func newWebServer(st *store.Store) *webServer {
	return &webServer{
		latest:  make(map[string]Payload),
		clients: make(map[*wsClient]struct{}),
		store:   st,
	}
}

// update records p and forwards it to every websocket client.
func (s *webServer) update(p Payload) {
	key := p.Sensor
	if p.Kind == "meta" {
		key = metaTopic
	}

	s.mu.Lock()
	s.latest[key] = p
	clients := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.mu.Lock()
		c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		err := c.conn.WriteJSON(p)
		c.mu.Unlock()
		if err != nil {
			log.Debugf("web: dropping websocket client: %v", err)
			s.drop(c)
		}
	}
}

func (s *webServer) drop(c *wsClient) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if ok {
		c.conn.Close()
	}
}

func (s *webServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/events/latest", s.handleLatest)
	mux.HandleFunc("/api/events/recent", s.handleRecent)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

func (s *webServer) handleLatest(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	out := make([]Payload, 0, len(s.latest))
	for _, p := range s.latest {
		out = append(out, p)
	}
	s.mu.RUnlock()

	if len(out) == 0 {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind == "data"
		}
		return out[i].SensorID < out[j].SensorID
	})
	writeJSON(w, out)
}

func (s *webServer) handleRecent(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "event log disabled", http.StatusServiceUnavailable)
		return
	}
	limit := defaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, fmt.Sprintf("invalid limit %q", v), http.StatusBadRequest)
			return
		}
		limit = min(n, maxRecentLimit)
	}

	var (
		recs []store.Record
		err  error
	)
	if name := r.URL.Query().Get("sensor"); name != "" {
		id, perr := event.ParseSensor(name)
		if perr != nil {
			http.Error(w, perr.Error(), http.StatusBadRequest)
			return
		}
		recs, err = s.store.RecentForSensor(r.Context(), id, limit)
	} else {
		recs, err = s.store.Recent(r.Context(), limit)
	}
	if err != nil {
		log.Printf("web: recent events: %v", err)
		http.Error(w, "event log error", http.StatusInternalServerError)
		return
	}
	out := make([]Payload, 0, len(recs))
	for _, rec := range recs {
		p := Payload{
			Session:   rec.Session,
			Sensor:    rec.Sensor.String(),
			SensorID:  int32(rec.Sensor),
			Kind:      rec.Kind.String(),
			Timestamp: rec.Timestamp,
			Values:    rec.Values,
		}
		if rec.What != 0 {
			p.What = rec.What.String()
		}
		out = append(out, p)
	}
	writeJSON(w, out)
}

func (s *webServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	c := &wsClient{conn: conn}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	// Clients only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("web: websocket error: %v", err)
			}
			break
		}
	}
	s.drop(c)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

// RunWeb serves the latest events, the SQLite log and a websocket stream of
// everything published under the events topic.
func RunWeb(ctx context.Context) error {
	cfg := config.Get()

	var st *store.Store
	if cfg.StorePath != "" {
		var err error
		st, err = store.Open(cfg.StorePath)
		if err != nil {
			return err
		}
		defer st.Close()
	}
	srv := newWebServer(st)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	topic := cfg.TopicEvents + "/#"
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var p Payload
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			log.Printf("web: MQTT payload unmarshal error: %v", err)
			return
		}
		srv.update(p)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to MQTT topic %s", topic)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler: srv.handler(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	log.Printf("web server listening on %s", httpSrv.Addr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
