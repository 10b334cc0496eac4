package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var defaultExposed = []string{"Content-Disposition", "X-Request-ID"}

// Options configures the CORS middleware.
type Options struct {
	// AllowedOrigins lists exact origins; empty allows every origin.
	AllowedOrigins []string
	// ExposeHeaders are appended to Content-Disposition and X-Request-ID.
	ExposeHeaders []string
}

// New returns a CORS middleware for the given options.
func New(opts Options) gin.HandlerFunc {
	allowAll := len(opts.AllowedOrigins) == 0
	originSet := make(map[string]struct{}, len(opts.AllowedOrigins))
	for _, origin := range opts.AllowedOrigins {
		originSet[strings.TrimRight(origin, "/")] = struct{}{}
	}
	exposed := strings.Join(append(append([]string{}, defaultExposed...), opts.ExposeHeaders...), ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		header := c.Writer.Header()
		if origin != "" {
			if allowAll || hasOrigin(originSet, origin) {
				header.Set("Access-Control-Allow-Origin", origin)
				header.Set("Access-Control-Allow-Credentials", "true")
			}
		} else if allowAll {
			header.Set("Access-Control-Allow-Origin", "*")
		}

		header.Set("Vary", "Origin")
		header.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With, X-Request-ID")
		header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		header.Set("Access-Control-Expose-Headers", exposed)
		header.Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func hasOrigin(originSet map[string]struct{}, origin string) bool {
	_, ok := originSet[strings.TrimRight(origin, "/")]
	return ok
}
