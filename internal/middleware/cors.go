package middleware

import (
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/zorey-ai/backend/pkg/utils"
)

// OriginAllowed 判断请求来源是否可信：没有 Origin 头（非浏览器客户端）、
// 与服务同源，或者在 allowed 列表中。
func OriginAllowed(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if slices.Contains(allowed, origin) {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// CORS 只放行同源请求和配置的来源，其他站点的请求直接返回 403。
func CORS(allowed []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !OriginAllowed(r, allowed) {
				log.Warn().
					Str("component", "http").
					Str("origin", r.Header.Get("Origin")).
					Str("path", r.URL.Path).
					Msg("cross-origin request refused")
				utils.RespondError(w, http.StatusForbidden, "origin not allowed")
				return
			}

			if origin := r.Header.Get("Origin"); origin != "" && slices.Contains(allowed, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.Header().Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
