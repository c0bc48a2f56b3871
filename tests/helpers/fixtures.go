package helpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/models"
)

// TestUser represents a test user fixture
type TestUser struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// DefaultTestUser is the operator most integration tests log in as
var DefaultTestUser = TestUser{
	Email:    "owner@example.com",
	Password: "test-password-123",
}

// OnlineStoreDocument is a small architecture used as the starting document
func OnlineStoreDocument() models.Document {
	return models.Document{
		"name": "online-store",
		"entities": []interface{}{
			map[string]interface{}{
				"name": "Product",
				"fields": []interface{}{
					map[string]interface{}{"name": "title", "type": "string"},
					map[string]interface{}{"name": "price", "type": "number"},
				},
			},
		},
		"apis": []interface{}{},
	}
}

// IntentResolverStub is an HTTP intent resolver speaking the /resolve and
// /suggest protocol. It understands:
//
//	add entity NAME    appends an entity to "entities"
//	rename to NAME     replaces "name"
//	refuse             business refusal
//	fail               HTTP 500
type IntentResolverStub struct {
	Server *httptest.Server

	mu       sync.Mutex
	commands []string
}

// NewIntentResolverStub starts the stub. Close it with Server.Close.
func NewIntentResolverStub() *IntentResolverStub {
	stub := &IntentResolverStub{}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/resolve", stub.resolve)
	mux.HandleFunc("/suggest", stub.suggest)

	stub.Server = httptest.NewServer(mux)
	return stub
}

// URL returns the stub's base URL
func (s *IntentResolverStub) URL() string {
	return s.Server.URL
}

// Commands returns the commands received so far
func (s *IntentResolverStub) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func (s *IntentResolverStub) resolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Command  string          `json:"command"`
		Document models.Document `json:"document"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.commands = append(s.commands, req.Command)
	s.mu.Unlock()

	doc := req.Document.Clone()
	result := models.CommandResult{Success: true, Changes: []models.Change{}}

	switch {
	case strings.HasPrefix(req.Command, "add entity "):
		name := strings.TrimPrefix(req.Command, "add entity ")
		entities, _ := doc["entities"].([]interface{})
		doc["entities"] = append(entities, map[string]interface{}{"name": name, "fields": []interface{}{}})
		result.ActionSummary = models.Bilingual("Added entity "+name, "تمت إضافة الكيان "+name)
		result.Changes = append(result.Changes, models.Change{
			Kind:       models.ChangeAdd,
			TargetKind: models.TargetEntity,
			Path:       "entities." + name,
		})

	case strings.HasPrefix(req.Command, "rename to "):
		name := strings.TrimPrefix(req.Command, "rename to ")
		before := doc["name"]
		doc["name"] = name
		result.ActionSummary = models.Bilingual("Renamed architecture", "تمت إعادة تسمية البنية")
		result.Changes = append(result.Changes, models.Change{
			Kind:       models.ChangeRename,
			TargetKind: models.TargetField,
			Path:       "name",
			Before:     before,
			After:      name,
		})

	case req.Command == "refuse":
		result = models.CommandResult{
			Success:     false,
			Explanation: models.Bilingual("The command is ambiguous.", "الأمر غامض."),
		}

	case req.Command == "fail":
		http.Error(w, "resolver exploded", http.StatusInternalServerError)
		return

	default:
		doc["lastInstruction"] = req.Command
		result.ActionSummary = models.Bilingual("Applied instruction", "تم تطبيق التعليمات")
	}

	if result.Success {
		result.UpdatedDocument = doc
	}
	writeJSON(w, result)
}

func (s *IntentResolverStub) suggest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"suggestions": []models.Suggestion{{
			Category:       models.CategorySecurity,
			Priority:       models.PriorityHigh,
			Title:          models.Bilingual("Add authentication", "إضافة المصادقة"),
			Description:    models.Bilingual("Protect every API with authentication.", "حماية كل واجهة برمجية بالمصادقة."),
			CommandText:    "require authentication on every api",
			AutoApplicable: true,
		}},
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
