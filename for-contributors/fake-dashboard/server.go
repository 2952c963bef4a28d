package main

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"net/http/httputil"
	"sync"
	"time"
)

//go:embed web
var webFS embed.FS

// ConfigVersion is stamped on every stored dashboard config.
const ConfigVersion = "1.0.0"

// Store holds the dashboard config the admin page edits.
type Store struct {
	data map[string]interface{}
	mu   sync.RWMutex
}

// DashboardServer serves the dashboard, its /admin page and the config API.
type DashboardServer struct {
	store   *Store
	static  http.Handler
	verbose bool
	now     func() time.Time
}

// NewDashboardServer creates a server seeded with the default config.
func NewDashboardServer(verbose bool) *DashboardServer {
	sub, err := fs.Sub(webFS, "web")
	if err != nil {
		panic(err)
	}
	s := &DashboardServer{
		store:   &Store{},
		static:  http.FileServer(http.FS(sub)),
		verbose: verbose,
		now:     time.Now,
	}
	s.reset()
	return s
}

func (s *DashboardServer) reset() {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.data = defaultConfig()
	s.store.data["version"] = ConfigVersion
	s.store.data["lastModified"] = s.now().UTC().Format(time.RFC3339)
}

func defaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"basic": map[string]interface{}{
			"projects":   128,
			"area":       56000,
			"households": 3200,
		},
		"trend": []interface{}{12, 18, 25, 31, 40},
		"news": []interface{}{
			map[string]interface{}{"title": "二期工程封顶", "content": "二期主体结构顺利封顶"},
			map[string]interface{}{"title": "智慧工地上线", "content": "全部工地接入实时监控"},
		},
		"sites": []interface{}{
			map[string]interface{}{"name": "一号工地", "status": "施工中"},
		},
		"advanced": map[string]interface{}{
			"refreshSeconds": 30,
			"theme":          "dark",
		},
	}
}

func (s *DashboardServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.verbose {
		s.logRequest(r)
	}

	switch r.URL.Path {
	case "/_clear":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.reset()
		w.WriteHeader(http.StatusNoContent)
		return
	case "/api/config":
		s.handleConfig(w, r)
		return
	case "/", "/admin":
		// Both routes are rendered client-side from the same document.
		r2 := r.Clone(r.Context())
		r2.URL.Path = "/"
		s.static.ServeHTTP(w, r2)
		return
	}
	s.static.ServeHTTP(w, r)
}

func (s *DashboardServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	var (
		response interface{}
		err      error
	)

	switch r.Method {
	case http.MethodGet:
		response = s.snapshot()
	case http.MethodPut:
		response, err = s.handlePut(r.Body)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("❌ Error encoding response: %v", err)
		return
	}

	if s.verbose {
		s.logResponse(response)
	}
}

func (s *DashboardServer) snapshot() map[string]interface{} {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	out := make(map[string]interface{}, len(s.store.data))
	for k, v := range s.store.data {
		out[k] = v
	}
	return out
}

func (s *DashboardServer) handlePut(body io.Reader) (interface{}, error) {
	var config map[string]interface{}
	if err := json.NewDecoder(body).Decode(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config == nil {
		return nil, fmt.Errorf("invalid config: expected an object")
	}
	config["version"] = ConfigVersion
	config["lastModified"] = s.now().UTC().Format(time.RFC3339)

	s.store.mu.Lock()
	s.store.data = config
	s.store.mu.Unlock()

	return config, nil
}

func (s *DashboardServer) logRequest(r *http.Request) {
	dump, err := httputil.DumpRequest(r, true)
	if err != nil {
		log.Printf("❌ Error dumping request: %v", err)
		return
	}

	log.Printf("📥 Incoming Request:\n%s\n", string(dump))
}

func (s *DashboardServer) logResponse(response interface{}) {
	log.Printf("📤 Response:\nStatus: %d\nBody: %+v\n", http.StatusOK, response)
}
