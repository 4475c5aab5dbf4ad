package sitegen

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Admin session cookie.
const (
	sessionName   = "admin_session"
	sessionPath   = "/admin"
	sessionMaxAge = 12 * time.Hour

	// sessionLogin holds the unix time of the login the session belongs to.
	sessionLogin = "login"
)

// Content security policies. Admin pages carry inline styles and JPEG
// thumbnails; SVG previews carry inline styles only.
const (
	adminCSP   = "default-src 'none'; style-src 'unsafe-inline'; img-src 'self'; form-action 'self'; frame-ancestors 'none'"
	previewCSP = "default-src 'none'; style-src 'unsafe-inline'; frame-ancestors 'none'"
)

// hstsMaxAge is sent only when the admin cookie is marked secure.
const hstsMaxAge = 365 * 24 * 60 * 60

func (a *App) setupMiddleware() {
	e := a.Echo

	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	)

	e.HTTPErrorHandler = a.httpErrorHandler

	e.Pre(middleware.NonWWWRedirect())

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			c.Logger().Infof("%s %s -> %d (%s)", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	e.Use(middleware.Recover())

	// PNG previews are already compressed.
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return strings.HasSuffix(p, ".png") || strings.HasSuffix(p, ".jpg")
		},
	}))

	e.Use(middleware.SecureWithConfig(a.secureConfig(true)))
	e.Use(middleware.SecureWithConfig(a.secureConfig(false)))

	e.Use(session.Middleware(a.newSessionStore()))

	e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		ContextKey:     middleware.DefaultCSRFConfig.ContextKey,
		TokenLookup:    "header:X-CSRF-Token,form:_csrf",
		CookieName:     "_csrf",
		CookiePath:     sessionPath,
		CookieSameSite: http.SameSiteStrictMode,
		CookieSecure:   a.Config.Admin.CookieSecure,
		Skipper: func(c echo.Context) bool {
			return !isAdminPath(c.Request().URL.Path)
		},
		ErrorHandler: func(err error, c echo.Context) error {
			return c.String(http.StatusForbidden, "Forbidden")
		},
	}))

	e.Use(middleware.AddTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		RedirectCode: http.StatusMovedPermanently,
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return strings.HasPrefix(p, "/og/") ||
				strings.HasPrefix(p, "/admin/thumbs/") ||
				p == "/sitemap.xml" || p == "/robots.txt"
		},
	}))

	e.Use(cacheControlMiddleware)
}

// cacheControlMiddleware sets a default policy; preview handlers override
// it with the image's own.
func cacheControlMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		p := c.Request().URL.Path
		switch {
		case isAdminPath(p):
			c.Response().Header().Set("Cache-Control", "no-store")
		case p == "/sitemap.xml" || p == "/robots.txt":
			c.Response().Header().Set("Cache-Control", "public, max-age=86400")
		case strings.HasPrefix(p, "/og/"):
			c.Response().Header().Set("Cache-Control", "no-cache")
		default:
			c.Response().Header().Set("Cache-Control", "public, max-age=3600")
		}
		return next(c)
	}
}

func isAdminPath(p string) bool {
	return p == sessionPath || strings.HasPrefix(p, sessionPath+"/")
}

// secureConfig returns the header policy for admin pages or for the
// public routes. HSTS is sent only when the site runs behind TLS, which
// CookieSecure declares.
func (a *App) secureConfig(admin bool) middleware.SecureConfig {
	cfg := middleware.SecureConfig{
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: previewCSP,
		Skipper: func(c echo.Context) bool {
			return isAdminPath(c.Request().URL.Path) != admin
		},
	}
	if admin {
		cfg.ContentSecurityPolicy = adminCSP
		cfg.ReferrerPolicy = "same-origin"
	}
	if a.Config.Admin.CookieSecure {
		cfg.HSTSMaxAge = hstsMaxAge
	}
	return cfg
}

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(a.Config.Admin.SessionSecret))
	store.Options = &sessions.Options{
		Path:     sessionPath,
		HttpOnly: true,
		MaxAge:   int(sessionMaxAge / time.Second),
		SameSite: http.SameSiteStrictMode,
		Secure:   a.Config.Admin.CookieSecure,
	}
	return store
}

// IsAdmin reports whether the request carries a session from a login less
// than sessionMaxAge ago.
func IsAdmin(c echo.Context) bool {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return false
	}
	login, ok := sess.Values[sessionLogin].(int64)
	if !ok {
		return false
	}
	return time.Since(time.Unix(login, 0)) < sessionMaxAge
}

func setAdminSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values[sessionLogin] = time.Now().Unix()
	return sess.Save(c.Request(), c.Response())
}

func clearAdminSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	delete(sess.Values, sessionLogin)
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// CsrfToken returns the request's CSRF token for admin forms.
func CsrfToken(c echo.Context) string {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return token
}
