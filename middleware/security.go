package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
)

// QueryHygiene rejects hop-context values that could smuggle traversal
// sequences or control bytes into links composed from them. Hrefs echo query
// values back to wallet clients, so they are screened on the way in.
func QueryHygiene(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, values := range r.URL.Query() {
			for _, value := range values {
				if !cleanQueryValue(value) {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusBadRequest)
					json.NewEncoder(w).Encode(map[string]interface{}{
						"title":    "Action unavailable",
						"label":    "Unavailable",
						"disabled": true,
						"error": map[string]string{
							"message": "Invalid request parameter",
						},
					})
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

func cleanQueryValue(value string) bool {
	if strings.Contains(value, "../") || strings.Contains(value, "..\\") {
		return false
	}
	for _, c := range value {
		if c < 0x20 || c == 0x7f {
			return false
		}
	}
	return true
}
