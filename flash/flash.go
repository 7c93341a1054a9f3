// Package flash carries one-shot messages across a redirect in a signed cookie.
package flash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"sync"
	"time"
)

const cookieName = "flash"

// Level of a message; templates style on it.
type Level string

const (
	Success Level = "success"
	Error   Level = "error"
)

// Message is a translated flash message.
type Message struct {
	Level Level
	Text  string
}

var (
	mu     sync.RWMutex
	secret = []byte("devsessionsecret")
)

// SetSecret configures the HMAC key. Empty values are ignored.
func SetSecret(s string) {
	if s == "" {
		return
	}
	mu.Lock()
	secret = []byte(s)
	mu.Unlock()
}

func sign(payload string) string {
	mu.RLock()
	mac := hmac.New(sha256.New, secret)
	mu.RUnlock()
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Set stores a message for the next request.
func Set(w http.ResponseWriter, level Level, text string) {
	payload := base64.RawURLEncoding.EncodeToString([]byte(string(level) + "\n" + text))
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    payload + "." + sign(payload),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300,
	})
}

// Pop reads and clears the pending message. Tampered or malformed cookies are
// cleared and ignored.
func Pop(w http.ResponseWriter, r *http.Request) *Message {
	c, err := r.Cookie(cookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	expire(w)
	parts := strings.Split(c.Value, ".")
	if len(parts) != 2 {
		return nil
	}
	payload, sig := parts[0], parts[1]
	if !hmac.Equal([]byte(sig), []byte(sign(payload))) {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil
	}
	level, text, ok := strings.Cut(string(raw), "\n")
	if !ok {
		return nil
	}
	return &Message{Level: Level(level), Text: text}
}

func expire(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: "", Path: "/", Expires: time.Unix(0, 0), MaxAge: -1, HttpOnly: true, SameSite: http.SameSiteLaxMode})
}
