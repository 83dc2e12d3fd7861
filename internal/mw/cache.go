package mw

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// CacheHeader reports whether a response was served from the cache.
const CacheHeader = "X-Cache"

// CacheKey picks the cache entry for a request. An empty key bypasses the cache.
type CacheKey func(c *gin.Context) string

// PublicKey shares one entry per request URI among all callers, so
// availability searches with different query strings never share an entry.
func PublicKey(c *gin.Context) string {
	return c.Request.RequestURI
}

// ActorKey keeps a separate entry per user. It needs Identify earlier in the
// chain; anonymous requests use the public entry.
func ActorKey(c *gin.Context) string {
	actor := ActorFrom(c)
	if !actor.Authenticated() {
		return PublicKey(c)
	}
	return "user:" + strconv.FormatInt(actor.UserID, 10) + " " + c.Request.RequestURI
}

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

func (r cachedResponse) replay(c *gin.Context) {
	for k, v := range r.headers {
		c.Writer.Header()[k] = v
	}
	c.Writer.Header().Set(CacheHeader, "HIT")
	c.Writer.WriteHeader(r.status)
	c.Writer.Write(r.body)
}

type recordingWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Cache serves repeated GET requests from memory for duration. Only 2xx
// responses are stored; a nil key means PublicKey.
func Cache(store *cache.Cache, duration time.Duration, key CacheKey) gin.HandlerFunc {
	if key == nil {
		key = PublicKey
	}
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}
		k := key(c)
		if k == "" {
			c.Next()
			return
		}

		if hit, found := store.Get(k); found {
			hit.(cachedResponse).replay(c)
			c.Abort()
			return
		}

		c.Writer.Header().Set(CacheHeader, "MISS")
		rec := &recordingWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = rec

		c.Next()

		if status := rec.Status(); status >= 200 && status < 300 {
			headers := rec.Header().Clone()
			headers.Del(CacheHeader)
			store.Set(k, cachedResponse{status: status, headers: headers, body: rec.body.Bytes()}, duration)
		}
	}
}
