package guard

import "net/http"

// Middleware is a best-effort request filter keyed on the presence of a
// token cookie. It does not validate the cookie and is not an
// authorization boundary.
func Middleware(cfg Config, cookieName string) func(http.Handler) http.Handler {
	cfg = cfg.withDefaults()
	g := &Guard{cfg: cfg}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hasToken := false
			if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
				hasToken = true
			}

			switch cfg.Classify(r.URL.EscapedPath()) {
			case Protected:
				if !hasToken {
					http.Redirect(w, r, LoginPath(cfg.FallbackPath, r.URL), http.StatusFound)
					return
				}
			case AuthOnly:
				if hasToken {
					http.Redirect(w, r, g.ReturnPath(r.URL.Query().Get(RedirectParam)), http.StatusFound)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
