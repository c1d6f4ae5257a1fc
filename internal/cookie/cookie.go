package cookie

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

type Claims struct {
	jwt.RegisteredClaims
	AffiliateID int
}

const TOKENEXP = time.Hour * 3
const SECRETKEY = "supersecretkey"

func createJWTString(affiliateID int) (tokenString string, err error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(TOKENEXP)),
		},
		AffiliateID: affiliateID,
	})

	tokenString, err = token.SignedString([]byte(SECRETKEY))
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

func getAffiliateID(tokenString string) (int, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(SECRETKEY), nil
		})

	if err != nil {
		return 0, err
	}

	if !token.Valid {
		return 0, ErrInvalidToken
	}

	return claims.AffiliateID, nil
}

func CreateCookieAffiliateID(affiliateID int) *http.Cookie {
	jwtString, err := createJWTString(affiliateID)
	if err != nil {
		log.Println(err)
	}
	cookie := &http.Cookie{
		Name:     "AffiliateID",
		Value:    jwtString,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   3600,
	}
	return cookie
}

// SetCookieMiddleware issues the session cookie after a successful register
// or session handler. The handler reports the affiliate it resolved through
// the AffiliateID response header; the middleware turns that into the cookie.
func SetCookieMiddleware() func(h http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := &headerCaptureWriter{ResponseWriter: w}
			h.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}

// headerCaptureWriter swaps the AffiliateID header for a session cookie right
// before the headers are flushed.
type headerCaptureWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (w *headerCaptureWriter) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		affiliateID := w.Header().Get("AffiliateID")
		w.Header().Del("AffiliateID")
		if affiliateID != "" && statusCode < http.StatusBadRequest {
			affiliateIDint, err := strconv.Atoi(affiliateID)
			if err != nil {
				log.Println(err)
			} else {
				http.SetCookie(w.ResponseWriter, CreateCookieAffiliateID(affiliateIDint))
			}
		}
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *headerCaptureWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// CheckCookieMiddleware authenticates affiliate endpoints. The resolved
// affiliate travels to the handler through the AffiliateID request header.
func CheckCookieMiddleware() func(h http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			receivedCookie, err := r.Cookie("AffiliateID")
			if err != nil {
				switch {
				case errors.Is(err, http.ErrNoCookie):
					w.WriteHeader(http.StatusUnauthorized)
				default:
					http.Error(w, err.Error(), http.StatusInternalServerError)
				}
				return
			}

			tokenString := receivedCookie.Value

			if tokenString == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			affiliateID, err := getAffiliateID(tokenString)
			if err != nil {
				switch {
				case errors.Is(err, ErrInvalidToken):
					w.WriteHeader(http.StatusUnauthorized)
				default:
					http.Error(w, err.Error(), http.StatusInternalServerError)
				}
				return
			}
			affiliateIDstring := strconv.Itoa(affiliateID)
			r.Header.Set("AffiliateID", affiliateIDstring)
			h.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}
