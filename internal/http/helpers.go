package http

import (
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felipesemedo05/parcelas-servico/internal/core"
)

const requestIDHeader = "X-Request-ID"

// trustedProxies may set forwarding headers.
var trustedProxies = []*net.IPNet{
	parsecidr("127.0.0.0/8"),
	parsecidr("10.0.0.0/8"),
	parsecidr("172.16.0.0/12"),
	parsecidr("192.168.0.0/16"),
}

func parsecidr(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

func isTrustedProxy(ip net.IP) bool {
	for _, network := range trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// extractClientIP returns the peer address, or the first forwarded address
// when the peer is a trusted proxy.
func extractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}
	parsed := net.ParseIP(directIP)
	if parsed == nil || !isTrustedProxy(parsed) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

// requestIDFrom returns the caller's X-Request-ID or a fresh UUID.
func requestIDFrom(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(requestIDHeader)); id != "" && len(id) <= 64 {
		return id
	}
	return uuid.NewString()
}

// parseDate parses a date string in YYYY-MM-DD format.
func parseDate(s string) (core.Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return core.Date{}, err
	}
	return core.DateOf(t), nil
}

// sanitizeInput removes control characters (except tab and newlines) and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// validationMessage turns a validation failure into the text shown next to
// the form.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyReason):
		return "Informe o motivo da compra"
	case errors.Is(err, core.ErrReasonTooLong):
		return fmt.Sprintf("Motivo deve ter no máximo %d caracteres", core.MaxReasonLength)
	case errors.Is(err, core.ErrEmptyPayee):
		return "Informe para quem foi pago"
	case errors.Is(err, core.ErrEmptyMethod):
		return "Informe o método de pagamento"
	case errors.Is(err, core.ErrInvalidAmount):
		return "Valor total inválido"
	case errors.Is(err, core.ErrInvalidCount):
		return fmt.Sprintf("Número de parcelas deve estar entre 1 e %d", core.MaxInstallments)
	case errors.Is(err, core.ErrInvalidDate):
		return "Data inválida"
	case errors.Is(err, core.ErrInvalidMonth):
		return "Mês inválido"
	}
	return "Dados inválidos: " + err.Error()
}

func templateEscape(s string) string {
	return template.HTMLEscapeString(s)
}
