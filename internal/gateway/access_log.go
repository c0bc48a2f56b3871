package gateway

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/auth"
)

const redacted = "REDACTED"

// AccessLogger is gin's request logger with bearer tokens removed from logged query strings
func AccessLogger(out io.Writer) gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		Output: out,
		Formatter: func(param gin.LogFormatterParams) string {
			if param.Latency > time.Minute {
				param.Latency = param.Latency.Truncate(time.Second)
			}
			return fmt.Sprintf("[GIN] %v | %3d | %13v | %15s | %-7s %#v\n%s",
				param.TimeStamp.Format("2006/01/02 - 15:04:05"),
				param.StatusCode,
				param.Latency,
				param.ClientIP,
				param.Method,
				RedactQuery(param.Path),
				param.ErrorMessage,
			)
		},
	})
}

// RedactQuery replaces the value of every token parameter in path's query string
func RedactQuery(path string) string {
	base, query, found := strings.Cut(path, "?")
	if !found || query == "" {
		return path
	}

	params := strings.Split(query, "&")
	for i, p := range params {
		name, _, _ := strings.Cut(p, "=")
		if strings.EqualFold(name, auth.TokenQueryParam) {
			params[i] = name + "=" + redacted
		}
	}
	return base + "?" + strings.Join(params, "&")
}
