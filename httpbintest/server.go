package httpbintest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"

	"github.com/kbukum/courier/errors"
	"github.com/kbukum/courier/logger"
)

const maxDelay = 10 * time.Second

// SlideshowXML is the document served by /xml.
const SlideshowXML = `<?xml version='1.0' encoding='us-ascii'?>
<!--  A SAMPLE set of slides  -->
<slideshow title="Sample Slide Show" date="Date of publication" author="Yours Truly">
	<slide type="all">
		<title>Wake up to WonderWidgets!</title>
	</slide>
	<slide type="all">
		<title>Overview</title>
		<item>Why <em>WonderWidgets</em> are great</item>
		<item/>
		<item>Who <em>buys</em> WonderWidgets</item>
	</slide>
</slideshow>`

// Server is a running fake. Every request is counted by path.
type Server struct {
	*httptest.Server

	mu   sync.Mutex
	hits map[string]int
}

// Option configures the fake.
type Option func(*options)

type options struct {
	log *logger.Logger
}

// WithLogger logs every request to log.
func WithLogger(log *logger.Logger) Option {
	return func(o *options) { o.log = log }
}

// New starts a fake that is closed when the test ends.
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()
	o := options{log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{hits: make(map[string]int)}
	engine := newEngine(gin.TestMode, o.log)
	engine.Use(s.count)
	registerRoutes(engine)

	s.Server = httptest.NewServer(engine)
	t.Cleanup(s.Close)
	return s
}

// Handler returns the fake's routes without starting a listener.
func Handler(log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	engine := newEngine(gin.ReleaseMode, log)
	registerRoutes(engine)
	return engine
}

// Hits returns how many requests reached path.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *Server) count(c *gin.Context) {
	s.mu.Lock()
	s.hits[c.Request.URL.Path]++
	s.mu.Unlock()
	c.Next()
}

func newEngine(mode string, log *logger.Logger) *gin.Engine {
	gin.SetMode(mode)
	engine := gin.New()
	engine.Use(requestID(), recovery(log), requestLogger(log.WithComponent("httpbin")))
	return engine
}

func registerRoutes(r *gin.Engine) {
	r.GET("/get", handleGet)
	r.POST("/post", handleAnything)
	r.PUT("/put", handleAnything)
	r.PATCH("/patch", handleAnything)
	r.DELETE("/delete", handleAnything)
	r.Any("/anything", handleAnything)
	r.Any("/anything/*path", handleAnything)
	r.Any("/status/:code", handleStatus)
	r.GET("/bearer", handleBearer)
	r.GET("/xml", handleXML)
	r.GET("/json", handleJSON)
	r.GET("/users", handleUsers)
	r.GET("/delay/:seconds", handleDelay)
	r.GET("/cookies", handleCookies)
	r.GET("/cookies/set", handleSetCookies)
	r.GET("/panic", func(*gin.Context) { panic("boom") })
}

func requestURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + c.Request.URL.RequestURI()
}

// flatten collapses single-element values the way httpbin does.
func flatten(values map[string][]string) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if len(v) == 1 {
			out[k] = v[0]
		} else {
			out[k] = v
		}
	}
	return out
}

func headers(c *gin.Context) map[string]string {
	out := make(map[string]string, len(c.Request.Header))
	for k := range c.Request.Header {
		out[k] = c.Request.Header.Get(k)
	}
	if c.Request.Host != "" {
		out["Host"] = c.Request.Host
	}
	return out
}

func handleGet(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"args":    flatten(c.Request.URL.Query()),
		"headers": headers(c),
		"origin":  c.ClientIP(),
		"url":     requestURL(c),
	})
}

func handleAnything(c *gin.Context) {
	body := gin.H{
		"args":    flatten(c.Request.URL.Query()),
		"data":    "",
		"files":   gin.H{},
		"form":    gin.H{},
		"headers": headers(c),
		"json":    nil,
		"method":  c.Request.Method,
		"origin":  c.ClientIP(),
		"url":     requestURL(c),
	}

	contentType := c.ContentType()
	switch {
	case contentType == gin.MIMEMultipartPOSTForm:
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, errors.Validation(err.Error()).ToResponse())
			return
		}
		files := gin.H{}
		for field, headers := range form.File {
			f, err := headers[0].Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, errors.Validation(err.Error()).ToResponse())
				return
			}
			data, _ := io.ReadAll(f)
			_ = f.Close()
			files[field] = string(data)
		}
		body["files"] = files
		body["form"] = flatten(form.Value)
	case contentType == gin.MIMEPOSTForm:
		if err := c.Request.ParseForm(); err == nil {
			body["form"] = flatten(c.Request.PostForm)
		}
	default:
		data, _ := io.ReadAll(c.Request.Body)
		body["data"] = string(data)
		if contentType == gin.MIMEJSON && len(data) > 0 {
			var v any
			if err := json.Unmarshal(data, &v); err == nil {
				body["json"] = v
			}
		}
	}
	c.JSON(http.StatusOK, body)
}

// handleStatus answers with the requested status. Error statuses carry an
// {"error":{"code","message"}} body.
func handleStatus(c *gin.Context) {
	code, err := strconv.Atoi(c.Param("code"))
	if err != nil || code < 100 || code > 599 {
		c.JSON(http.StatusBadRequest, errors.Validation("invalid status code").ToResponse())
		return
	}
	if code < 400 {
		c.Status(code)
		return
	}
	c.JSON(code, errors.FromStatus(code).ToResponse())
}

func handleBearer(c *gin.Context) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || token == "" {
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, errors.FromStatus(http.StatusUnauthorized).ToResponse())
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "token": token})
}

func handleXML(c *gin.Context) {
	c.Data(http.StatusOK, "application/xml", []byte(SlideshowXML))
}

func handleJSON(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"slideshow": gin.H{
			"author": "Yours Truly",
			"date":   "date of publication",
			"title":  "Sample Slide Show",
			"slides": []gin.H{
				{"title": "Wake up to WonderWidgets!", "type": "all"},
				{"title": "Overview", "type": "all", "items": []string{
					"Why <em>WonderWidgets</em> are great",
					"Who <em>buys</em> WonderWidgets",
				}},
			},
		},
	})
}

var firstNames = []string{"brad", "jennie", "marcus", "aiko", "tomas"}

// handleUsers serves a randomuser.me shaped page of ?results=n users.
func handleUsers(c *gin.Context) {
	n, err := strconv.Atoi(c.DefaultQuery("results", "1"))
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, errors.Validation("results must be a non-negative integer").ToResponse())
		return
	}
	users := make([]gin.H, n)
	for i := range users {
		first := firstNames[i%len(firstNames)]
		users[i] = gin.H{
			"gender": "unknown",
			"name":   gin.H{"title": "mx", "first": first, "last": "gibson"},
			"email":  first + "@example.com",
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"results": users,
		"info":    gin.H{"seed": "courier", "results": n, "page": 1},
	})
}

func handleDelay(c *gin.Context) {
	seconds, err := strconv.ParseFloat(c.Param("seconds"), 64)
	if err != nil || seconds < 0 {
		c.JSON(http.StatusBadRequest, errors.Validation("invalid delay").ToResponse())
		return
	}
	delay := min(time.Duration(seconds*float64(time.Second)), maxDelay)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-c.Request.Context().Done():
		return
	case <-timer.C:
	}
	handleGet(c)
}

func handleCookies(c *gin.Context) {
	cookies := gin.H{}
	for _, ck := range c.Request.Cookies() {
		cookies[ck.Name] = ck.Value
	}
	c.JSON(http.StatusOK, gin.H{"cookies": cookies})
}

func handleSetCookies(c *gin.Context) {
	for k, v := range c.Request.URL.Query() {
		http.SetCookie(c.Writer, &http.Cookie{Name: k, Value: v[0], Path: "/"})
	}
	c.Redirect(http.StatusFound, "/cookies")
}
