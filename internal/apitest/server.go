// Package apitest provides an in-process fake of the nursery backend for
// tests. It mirrors the real service's auth, CRUD, stats and export behavior
// closely enough that client packages can be exercised end to end without a
// deployment.
package apitest

import (
	"encoding/csv"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 30 * 24 * time.Hour

// entity names double as collection keys and URL path segments.
var entityPaths = []string{
	"seedlings-received",
	"delivery-notes",
	"dead-seedlings",
	"discarded-seedlings",
	"nursery-produced",
	"distributed-seedlings",
}

type document struct {
	id        string
	userID    string
	createdAt time.Time
	fields    map[string]any
}

// Server is a stateful fake nursery backend.
type Server struct {
	secret []byte
	engine *gin.Engine

	mu          sync.Mutex
	users       map[string]string // username -> bcrypt hash
	collections map[string][]document
}

func New() *Server {
	gin.SetMode(gin.TestMode)

	s := &Server{
		secret:      []byte("apitest-secret"),
		users:       map[string]string{},
		collections: map[string][]document{},
	}

	router := gin.New()
	api := router.Group("/api")
	{
		api.POST("/auth/register", s.register)
		api.POST("/auth/login", s.login)

		authed := api.Group("", s.requireToken)
		for _, name := range entityPaths {
			name := name
			authed.GET("/"+name, func(c *gin.Context) { s.listRecords(c, name) })
			authed.POST("/"+name, func(c *gin.Context) { s.createRecord(c, name) })
			authed.DELETE("/"+name+"/:id", func(c *gin.Context) { s.deleteRecord(c, name) })
		}
		authed.GET("/dashboard/stats", s.dashboardStats)
		authed.GET("/export/csv", s.exportCSV)
	}

	s.engine = router
	return s
}

// Handler exposes the fake as an http.Handler for httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// IssueToken mints a token directly, bypassing the auth endpoints. A
// non-positive ttl produces an already-expired token.
func (s *Server) IssueToken(username string, ttl time.Duration) string {
	claims := jwt.MapClaims{
		"sub": username,
		"exp": time.Now().Add(ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(fmt.Sprintf("apitest: sign token: %v", err))
	}
	return token
}

// AddUser registers a user without going through the HTTP surface.
func (s *Server) AddUser(username, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("apitest: hash password: %v", err))
	}
	s.mu.Lock()
	s.users[username] = string(hash)
	s.mu.Unlock()
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	s.mu.Lock()
	_, exists := s.users[req.Username]
	s.mu.Unlock()
	if exists {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Username already exists"})
		return
	}

	s.AddUser(req.Username, req.Password)
	c.JSON(http.StatusOK, gin.H{
		"access_token": s.IssueToken(req.Username, tokenTTL),
		"token_type":   "bearer",
		"username":     req.Username,
	})
}

func (s *Server) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	s.mu.Lock()
	hash, exists := s.users[req.Username]
	s.mu.Unlock()
	if !exists || bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": s.IssueToken(req.Username, tokenTTL),
		"token_type":   "bearer",
		"username":     req.Username,
	})
}

func (s *Server) requireToken(c *gin.Context) {
	header := c.GetHeader("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token"})
		return
	}

	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Method.Alg())
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token"})
		return
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token"})
		return
	}

	c.Set("username", sub)
	c.Next()
}

func currentUser(c *gin.Context) string {
	return c.GetString("username")
}

func (s *Server) listRecords(c *gin.Context, name string) {
	username := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := make([]document, 0)
	for _, doc := range s.collections[name] {
		if doc.userID == username {
			docs = append(docs, doc)
		}
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].createdAt.After(docs[j].createdAt)
	})

	out := make([]map[string]any, len(docs))
	for i, doc := range docs {
		out[i] = doc.response()
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createRecord(c *gin.Context, name string) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	// the real backend discards the client-supplied user_id and stamps the
	// record with the token's subject
	doc := document{
		id:        uuid.NewString(),
		userID:    currentUser(c),
		createdAt: time.Now(),
		fields:    fields,
	}

	s.mu.Lock()
	s.collections[name] = append(s.collections[name], doc)
	s.mu.Unlock()

	c.JSON(http.StatusOK, doc.response())
}

func (s *Server) deleteRecord(c *gin.Context, name string) {
	username := currentUser(c)
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collections[name]
	for i, doc := range docs {
		if doc.id == id && doc.userID == username {
			s.collections[name] = append(docs[:i:i], docs[i+1:]...)
			c.JSON(http.StatusOK, gin.H{"message": "Deleted successfully"})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"detail": "Item not found"})
}

func (s *Server) dashboardStats(c *gin.Context) {
	username := currentUser(c)

	s.mu.Lock()
	received := s.sumQuantity("seedlings-received", username)
	dead := s.sumQuantity("dead-seedlings", username)
	discarded := s.sumQuantity("discarded-seedlings", username)
	produced := s.sumQuantity("nursery-produced", username)
	distributed := s.sumQuantity("distributed-seedlings", username)
	s.mu.Unlock()

	inNursery := received + produced - dead - discarded
	input := received + produced
	rate := 0.0
	if input > 0 {
		rate = math.Round(float64(inNursery)/float64(input)*10000) / 100
	}

	c.JSON(http.StatusOK, gin.H{
		"total_received":    received,
		"total_dead":        dead,
		"total_discarded":   discarded,
		"total_produced":    produced,
		"total_distributed": distributed,
		"survival_rate":     rate,
		"total_in_nursery":  inNursery,
	})
}

var exportSections = []struct {
	title   string
	path    string
	columns []string
}{
	{"SEEDLINGS RECEIVED", "seedlings-received", []string{"date", "type", "supplier", "price", "lot_number", "quantity"}},
	{"DELIVERY NOTES", "delivery-notes", []string{"date", "type", "expected_quantity", "actual_quantity"}},
	{"DEAD SEEDLINGS", "dead-seedlings", []string{"date", "type", "quantity"}},
	{"DISCARDED SEEDLINGS", "discarded-seedlings", []string{"date", "type", "quantity"}},
	{"NURSERY PRODUCED", "nursery-produced", []string{"date", "type", "quantity", "parent_plant", "propagation_method"}},
}

func (s *Server) exportCSV(c *gin.Context) {
	username := currentUser(c)

	var out strings.Builder
	s.mu.Lock()
	for _, section := range exportSections {
		fmt.Fprintf(&out, "\n=== %s ===\n", section.title)
		writer := csv.NewWriter(&out)
		_ = writer.Write(section.columns)
		for _, doc := range s.collections[section.path] {
			if doc.userID != username {
				continue
			}
			row := make([]string, len(section.columns))
			for i, col := range section.columns {
				row[i] = fmt.Sprintf("%v", doc.fields[col])
			}
			_ = writer.Write(row)
		}
		writer.Flush()
	}
	s.mu.Unlock()

	filename := fmt.Sprintf("nursery_data_%s.csv", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv", []byte(out.String()))
}

func (s *Server) sumQuantity(name, username string) int {
	total := 0
	for _, doc := range s.collections[name] {
		if doc.userID != username {
			continue
		}
		switch q := doc.fields["quantity"].(type) {
		case float64:
			total += int(q)
		case int:
			total += q
		}
	}
	return total
}

func (d document) response() map[string]any {
	out := make(map[string]any, len(d.fields)+3)
	for k, v := range d.fields {
		out[k] = v
	}
	out["_id"] = d.id
	out["user_id"] = d.userID
	out["created_at"] = d.createdAt.UTC().Format(time.RFC3339)
	return out
}
