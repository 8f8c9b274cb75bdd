package httpserver

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog/log"
)

const adminCookie = "admin_token"

// AdminConfig es el par de credenciales fijo del panel.
type AdminConfig struct {
	User   string
	Pass   string
	Secret []byte
	TTL    time.Duration
}

type adminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (s *Server) issueAdminToken(user string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.admin.TTL)
	claims := adminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user,
			Issuer:    "catalog-admin",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.admin.Secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "firmar token")
	}
	return tok, exp, nil
}

func (s *Server) verifyAdminToken(raw string) (string, error) {
	var c adminClaims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.Errorf("algoritmo inesperado %s", t.Method.Alg())
		}
		return s.admin.Secret, nil
	})
	if err != nil {
		return "", err
	}
	if c.Role != "admin" || c.Subject != s.admin.User {
		return "", errors.New("claims")
	}
	return c.Subject, nil
}

func readAdminToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	if c, err := r.Cookie(adminCookie); err == nil {
		return c.Value
	}
	return ""
}

// requireAdmin corta la request con 401 si no hay sesión válida.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok := readAdminToken(r)
		if tok == "" {
			writeMessage(w, http.StatusUnauthorized, "Sesión requerida")
			return
		}
		if _, err := s.verifyAdminToken(tok); err != nil {
			log.Debug().Err(err).Msg("token admin rechazado")
			writeMessage(w, http.StatusUnauthorized, "Sesión inválida o vencida")
			return
		}
		next(w, r)
	}
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func isSecure(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// handleAdminAuth acepta JSON {user, pass} o un formulario con los mismos campos.
func (s *Server) handleAdminAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User string `json:"user"`
		Pass string `json:"pass"`
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "JSON inválido")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeMessage(w, http.StatusBadRequest, "Formulario inválido")
			return
		}
		req.User = r.FormValue("user")
		req.Pass = r.FormValue("pass")
	}
	user := strings.TrimSpace(req.User)
	okUser := secureCompare(user, s.admin.User)
	okPass := secureCompare(strings.TrimSpace(req.Pass), s.admin.Pass)
	if !okUser || !okPass {
		log.Warn().Str("user", user).Msg("login admin fallido")
		writeMessage(w, http.StatusUnauthorized, "Usuario o contraseña incorrectos")
		return
	}
	tok, exp, err := s.issueAdminToken(user)
	if err != nil {
		log.Error().Err(err).Msg("emitir token admin")
		writeMessage(w, http.StatusInternalServerError, "No se pudo iniciar sesión")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     adminCookie,
		Value:    tok,
		Path:     "/",
		MaxAge:   int(s.admin.TTL / time.Second),
		HttpOnly: true,
		Secure:   isSecure(r),
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{"message": "Sesión iniciada", "token": tok, "exp": exp.Unix()})
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: adminCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: isSecure(r), SameSite: http.SameSiteStrictMode})
	writeMessage(w, http.StatusOK, "Sesión cerrada")
}
