package response

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
	Meta    meta        `json:"meta"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type meta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

type problemDetails struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail"`
	Instance  string `json:"instance"`
	Code      string `json:"code"`
	RequestID string `json:"request_id"`
}

func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data, Meta: buildMeta(r)})
}

// Error writes the failure envelope, or RFC 7807 problem+json when the caller
// asks for it via Accept.
func Error(w http.ResponseWriter, r *http.Request, status int, code, message string, details interface{}) {
	if prefersProblemJSON(r) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(problemDetails{
			Type:      problemType(code),
			Title:     problemTitle(code, status),
			Status:    status,
			Detail:    message,
			Instance:  r.URL.Path,
			Code:      code,
			RequestID: buildMeta(r).RequestID,
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Success: false,
		Error:   &apiError{Code: code, Message: message, Details: details},
		Meta:    buildMeta(r),
	})
}

func buildMeta(r *http.Request) meta {
	id := chimiddleware.GetReqID(r.Context())
	if id == "" {
		id = r.Header.Get("X-Request-Id")
	}
	if id == "" {
		id = "req-unknown"
	}
	return meta{RequestID: id, Timestamp: time.Now().UTC()}
}

func prefersProblemJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if accept == "" {
		return false
	}
	for _, part := range strings.Split(accept, ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		if mediaType != "application/problem+json" {
			continue
		}
		if q, ok := params["q"]; ok {
			switch strings.TrimSpace(q) {
			case "0", "0.0", "0.00", "0.000":
				continue
			}
		}
		return true
	}
	return false
}

func problemType(code string) string {
	normalized := strings.ToLower(strings.TrimSpace(code))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	if normalized == "" {
		normalized = "unknown"
	}
	return "urn:problem:pingate:" + normalized
}

func problemTitle(code string, status int) string {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "BAD_REQUEST":
		return "Bad Request"
	case "INVALID_PIN":
		return "Invalid PIN"
	case "LOCKED":
		return "Locked"
	case "RATE_LIMITED":
		return "Too Many Requests"
	case "INTERNAL":
		return "Internal Server Error"
	default:
		if text := http.StatusText(status); text != "" {
			return text
		}
		return "Error"
	}
}
