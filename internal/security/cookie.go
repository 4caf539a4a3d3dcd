package security

import (
	"net/http"
	"strings"
	"time"
)

// SessionCookieName is the cookie mirroring a granted gate session token.
const SessionCookieName = "pin_session"

type CookieManager struct {
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

func NewCookieManager(domain string, secure bool, sameSite string) *CookieManager {
	ss := http.SameSiteLaxMode
	switch strings.ToLower(sameSite) {
	case "none":
		ss = http.SameSiteNoneMode
	case "strict":
		ss = http.SameSiteStrictMode
	}
	return &CookieManager{Domain: domain, Secure: secure, SameSite: ss}
}

func (c *CookieManager) SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
		Domain:   c.Domain,
		MaxAge:   int(ttl.Seconds()),
	})
}

func (c *CookieManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
		Domain:   c.Domain,
		MaxAge:   -1,
	})
}

func GetCookie(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
